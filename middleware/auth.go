package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token.
	ContextTokenKey = "token"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(ctx *gin.Context) (string, bool) {
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// authenticate validates the bearer token and stores the identity in ctx.
func authenticate(ctx *gin.Context) (string, bool) {
	token, ok := bearerToken(ctx)
	if !ok {
		return "No token, authorization denied", false
	}
	if utils.IsTokenBlacklisted(token) {
		return "Token has been revoked", false
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return "Token is not valid", false
	}
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextTokenKey, token)
	return "", true
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if msg, ok := authenticate(ctx); !ok {
			utils.AbortError(ctx, http.StatusUnauthorized, msg)
			return
		}
		ctx.Next()
	}
}

// OptionalAuth sets the identity when a valid token is presented and lets every request through.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authenticate(ctx)
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id, or "" for anonymous requests.
func CurrentUserID(ctx *gin.Context) string {
	return ctx.GetString(ContextUserIDKey)
}
