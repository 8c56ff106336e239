package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"panaderia-be/internal/preorder"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}

var routerSecret = []byte("test-secret")

func signToken(t *testing.T, userID uint, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(userID),
		"email":   "actor@panaderia.test",
		"role":    role,
	})
	signed, err := token.SignedString(routerSecret)
	require.NoError(t, err)
	return signed
}

func TestRouter_RoleEnforcement(t *testing.T) {
	preSvc := new(MockPreOrderService)
	ordSvc := new(MockOrderService)
	router := NewRouter(routerSecret, NewPreOrderHandler(preSvc), NewOrderHandler(ordSvc))

	t.Run("PublicSubmitNeedsNoAuth", func(t *testing.T) {
		preSvc.On("Submit", mock.Anything, mock.Anything).
			Return(&preorder.SubmitResult{ID: 1, RequiresApproval: true}, nil).Once()

		rec := doJSON(t, router, http.MethodPost, "/api/preorders/public", map[string]any{})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("AnonymousConfirmIs401", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/preorders/7/confirm",
			map[string]any{"code": "123456"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("CustomerCannotApprove", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/preorders/7/approve", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, 5, "customer"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("CashierCanConfirm", func(t *testing.T) {
		preSvc.On("ConfirmByPIN", mock.Anything, uint(7), "123456", (*float64)(nil)).
			Return(uint(90), nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/preorders/7/confirm",
			jsonBody(t, map[string]any{"code": "123456"}))
		req.Header.Set("Authorization", "Bearer "+signToken(t, 2, "cashier"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("AdminListsPendingApproval", func(t *testing.T) {
		preSvc.On("ListPendingApproval", mock.Anything).
			Return([]*preorder.PreOrder{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/preorders/pending-approval", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, 1, "admin"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("TamperedTokenIsAnonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/orders/10", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Healthz", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
