package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/postwall/utils"
)

const (
	// CSRFHeader carries the anti-forgery token on mutating requests.
	CSRFHeader = "X-CSRF-Token"
	// StatusPageExpired is returned for a missing or stale anti-forgery token.
	StatusPageExpired = 419
)

// CSRFRequired checks the anti-forgery token bound to the caller's session.
// It must run after AuthRequired.
func CSRFRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !utils.VerifyCSRFToken(SessionID(ctx), ctx.GetHeader(CSRFHeader)) {
			utils.Error(ctx, StatusPageExpired, 41901, "CSRF token mismatch")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
