package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/postwall/models"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Success: status < http.StatusBadRequest,
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created returns a 201 response carrying the new resource.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// errorStatus maps an error kind to its HTTP status and envelope code.
var errorStatus = map[string]struct{ status, code int }{
	models.KindValidation:      {http.StatusBadRequest, 40001},
	models.KindUnauthenticated: {http.StatusUnauthorized, 40101},
	models.KindForbidden:       {http.StatusForbidden, 40301},
	models.KindNotFound:        {http.StatusNotFound, 40401},
	models.KindInternal:        {http.StatusInternalServerError, 50001},
}

// StatusForKind returns the HTTP status and envelope code for an error kind.
func StatusForKind(kind string) (int, int) {
	s, ok := errorStatus[kind]
	if !ok {
		s = errorStatus[models.KindInternal]
	}
	return s.status, s.code
}

// RespondError writes the envelope for a service error. Internal causes are
// logged and never sent to the client.
func RespondError(ctx *gin.Context, err error) {
	kind := models.KindOf(err)
	status, code := StatusForKind(kind)

	message := "internal server error"
	var appErr *models.AppError
	if errors.As(err, &appErr) && kind != models.KindInternal {
		message = appErr.Message
	}
	if kind == models.KindInternal {
		Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
	}
	Error(ctx, status, code, message)
}
