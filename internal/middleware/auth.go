package middleware

import (
	"net/http"
	"strings"

	"panaderia-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware parses an optional bearer token and, when valid, attaches
// the actor's id, email and role to the request context. Invalid or absent
// tokens leave the request anonymous; role checks happen per route.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				return secret, nil
			})

			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}

			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				var id uint
				if uid, ok := claims["user_id"].(float64); ok {
					id = uint(uid)
				}
				email, _ := claims["email"].(string)
				role, _ := claims["role"].(string)
				ctx := utils.SetUserContext(r.Context(), id, email, role)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles rejects requests whose actor does not carry one of the
// given roles.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
				utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if !allowed[utils.GetUserRoleFromContext(r.Context())] {
				utils.WriteJSONError(w, "insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
