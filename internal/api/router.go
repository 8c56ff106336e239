package api

import (
	"net/http"

	"panaderia-be/internal/logger"
	"panaderia-be/internal/middleware"
	"panaderia-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the full HTTP surface. Auth runs before the rate
// limiter so authenticated actors are throttled per user rather than per
// IP.
func NewRouter(secret []byte, pre *PreOrderHandler, ord *OrderHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.AuthMiddleware(secret))
	r.Use(middleware.RateLimitMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	anyActor := middleware.RequireRoles(utils.RoleAdmin, utils.RoleCashier, utils.RoleCustomer)
	staffOnly := middleware.RequireRoles(utils.RoleAdmin, utils.RoleCashier)
	adminOnly := middleware.RequireRoles(utils.RoleAdmin)

	r.Route("/api", func(api chi.Router) {
		api.Route("/preorders", pre.Routes(staffOnly, adminOnly))
		api.Route("/orders", ord.Routes(anyActor, staffOnly, adminOnly))
	})

	return r
}
