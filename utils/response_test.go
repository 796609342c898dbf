package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/postwall/models"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    int
		message string
	}{
		{"validation", models.NewValidationError("content is required"), http.StatusBadRequest, 40001, "content is required"},
		{"unauthenticated", models.NewUnauthenticatedError(), http.StatusUnauthorized, 40101, "authentication required"},
		{"forbidden", models.NewForbiddenError("no access"), http.StatusForbidden, 40301, "no access"},
		{"not found", models.NewNotFoundError("post", 9), http.StatusNotFound, 40401, "post 9 not found"},
		{"internal", models.NewInternalError(errors.New("secret dsn leaked")), http.StatusInternalServerError, 50001, "internal server error"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, 50001, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body JSONResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, w.Body.String(), "secret dsn")
		})
	}
}

func TestSuccessEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, gin.H{"likes": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"code":0,"message":"success","data":{"likes":1}}`, w.Body.String())
}
