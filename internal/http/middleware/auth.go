package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/auth"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/db"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

const ActorKey = "actor"

type TokenValidator interface {
	Validate(raw string) (*auth.Claims, error)
}

type ProfileLoader interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

// Auth resolves the bearer token to a profile. Browsers cannot set headers on
// WebSocket upgrades, so the token query parameter is accepted as well.
func Auth(tokens TokenValidator, profiles ProfileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}
		claims, err := tokens.Validate(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}
		profile, err := profiles.GetProfile(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unknown user")
				return
			}
			abort(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load profile")
			return
		}
		if profile.Blocked() {
			abort(c, http.StatusForbidden, "BLOCKED", "Account is blocked")
			return
		}
		c.Set(ActorKey, profile)
		c.Next()
	}
}

// RequireRole lets through only actors holding one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "FORBIDDEN", "Role "+actor.Role+" may not access this resource")
	}
}

func Actor(c *gin.Context) (models.Profile, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return models.Profile{}, false
	}
	p, ok := v.(models.Profile)
	return p, ok
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
