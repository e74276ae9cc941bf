package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/auth"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server/respond"
)

const callerIDKey = "callerId"

// DevCaller is the identity assigned when auth is disabled in development.
const DevCaller = "dev"

var publicPaths = map[string]struct{}{
	"/api/v1/health": {},
	"/metrics":       {},
}

// Auth validates bearer JWTs and stores the caller identity in context.
// Without a secret, dev-like environments let every request through as DevCaller.
func Auth(env, secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	open := secret == "" && isDevLike(env)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if _, ok := publicPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		if open {
			c.Set(callerIDKey, DevCaller)
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		claims, err := auth.VerifyJWT(secret, token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
			return
		}

		c.Set(callerIDKey, claims.Subject)
		c.Next()
	}
}

// CallerIDFromContext fetches the caller identity set by the auth middleware.
func CallerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(callerIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "":
		return true
	default:
		return false
	}
}
