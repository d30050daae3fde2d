package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/BruksfildServices01/table-reservations/internal/config"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
)

const (
	ContextActor = "actor"

	CronTokenHeader = "X-Cron-Token"
	cronActor       = "cron"
)

// AuthMiddleware resolves the actor from a Bearer JWT: the name claim, or
// sub when there is no name.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, code := actorFromBearer(c, cfg.JWTSecret)
		if code != "" {
			unauthorized(c, code)
			return
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// CronAuth accepts the shared cron token or, failing that, a JWT.
func CronAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.GetHeader(CronTokenHeader); token != "" && cfg.CronToken != "" {
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.CronToken)) == 1 {
				c.Set(ContextActor, cronActor)
				c.Next()
				return
			}
			unauthorized(c, "invalid_cron_token")
			return
		}

		actor, code := actorFromBearer(c, cfg.JWTSecret)
		if code != "" {
			unauthorized(c, code)
			return
		}
		c.Set(ContextActor, actor)
		c.Next()
	}
}

func unauthorized(c *gin.Context, code string) {
	httperr.Unauthorized(c, code, "Authentication required.")
	c.Abort()
}

func Actor(c *gin.Context) string {
	return c.GetString(ContextActor)
}

func actorFromBearer(c *gin.Context, secret string) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "missing_authorization_header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid_authorization_header"
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", "invalid_token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "invalid_token_claims"
	}

	if name, _ := claims["name"].(string); strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name), ""
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, ""
	}
	return "", "invalid_token_payload"
}
