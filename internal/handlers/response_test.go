package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"finance-tracker-backend/internal/apperrors"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verrs := &apperrors.ValidationErrors{}
	verrs.Add(apperrors.NewIndexedValidationError(0, "date is required"))

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"aggregated validation", verrs, http.StatusBadRequest, `"errors":["Validation error at transaction 0: date is required"]`},
		{"validation", apperrors.NewValidationError("name is required"), http.StatusBadRequest, `"error":"name is required"`},
		{"not found", fmt.Errorf("merchant %w", apperrors.ErrNotFound), http.StatusNotFound, `"error":"merchant not found"`},
		{"conflict", fmt.Errorf("category %q: %w", "Food", apperrors.ErrConflict), http.StatusConflict, `conflict`},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, `no changes were applied`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}
