package api

import (
	"errors"
	"net/http"

	"panaderia-be/internal/address"
	"panaderia-be/internal/logger"
	"panaderia-be/internal/order"
	"panaderia-be/internal/preorder"
	"panaderia-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// writeError maps domain errors to HTTP statuses. Anything unmapped is a
// 500 with an opaque message; the detail goes to the log only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		utils.WriteJSONError(w, vErr.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, preorder.ErrPINMismatch):
		utils.WriteJSONError(w, err.Error(), http.StatusUnauthorized)

	case errors.Is(err, preorder.ErrPINExpired):
		utils.WriteJSONError(w, err.Error(), http.StatusGone)

	case errors.Is(err, preorder.ErrNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, address.ErrAddressNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, preorder.ErrRequiresApproval),
		errors.Is(err, preorder.ErrAlreadyPromoted),
		errors.Is(err, preorder.ErrNotPendingApproval),
		errors.Is(err, preorder.ErrNoActivePIN),
		errors.Is(err, preorder.ErrNoItems),
		errors.Is(err, preorder.ErrConflict),
		errors.Is(err, order.ErrInvalidTransition):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)

	default:
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// pathID extracts a positive numeric id from the chi route parameter.
func pathID(r *http.Request, param string) (uint, error) {
	id, err := utils.ToUint(chi.URLParam(r, param))
	if err != nil || id == 0 {
		return 0, order.Invalid("invalid id")
	}
	return id, nil
}
