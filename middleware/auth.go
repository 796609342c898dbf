package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/postwall/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextSessionKey stores the JWT session id (jti).
	ContextSessionKey = "session_id"
	// ContextTokenExpiryKey stores the token expiration time.
	ContextTokenExpiryKey = "token_expires_at"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, code, msg := authenticate(ctx)
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		setPrincipal(ctx, claims)
		ctx.Next()
	}
}

// OptionalAuth attaches the principal when a valid token is presented and
// lets anonymous requests through otherwise.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") != "" {
			if claims, _, _ := authenticate(ctx); claims != nil {
				setPrincipal(ctx, claims)
			}
		}
		ctx.Next()
	}
}

func authenticate(ctx *gin.Context) (*utils.Claims, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, 40101, "authorization header missing"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, 40102, "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, 40103, "empty bearer token"
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, 40105, "invalid token"
	}

	if utils.IsSessionBlacklisted(claims.ID) {
		return nil, 40104, "token revoked"
	}
	return claims, 0, ""
}

func setPrincipal(ctx *gin.Context, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextSessionKey, claims.ID)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
	}
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(ctx *gin.Context) uint {
	return ctx.GetUint(ContextUserIDKey)
}

// Username returns the authenticated display name.
func Username(ctx *gin.Context) string {
	return ctx.GetString(ContextUsernameKey)
}

// SessionID returns the JWT session id of the request.
func SessionID(ctx *gin.Context) string {
	return ctx.GetString(ContextSessionKey)
}

// TokenExpiry returns the expiration of the presented token.
func TokenExpiry(ctx *gin.Context) time.Time {
	return ctx.GetTime(ContextTokenExpiryKey)
}
