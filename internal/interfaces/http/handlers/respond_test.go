package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperrors.NewValidation("bad input"), http.StatusBadRequest},
		{"unauthenticated", &apperrors.UnauthenticatedError{}, http.StatusUnauthorized},
		{"authorization", &apperrors.AuthorizationError{Message: "manager role required"}, http.StatusForbidden},
		{"not found", apperrors.NewNotFound("product", 1), http.StatusNotFound},
		{"conflict", apperrors.NewConflict("already archived"), http.StatusConflict},
		{"insufficient stock", &apperrors.InsufficientStockError{ProductName: "X", Available: 1, Requested: 2}, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}
