package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"labrand.store/app/internal/shared/apperr"
	"labrand.store/app/internal/shared/auth"
)

const ctxKeyIdentity = "identity"

// Authenticate resolves the bearer token through the auth collaborator and
// stashes the identity on the context. No token or a bad token is a 401.
func Authenticate(provider auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			Fail(c, apperr.UnauthorizedErr("Authentication required."))
			return
		}

		id, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			Fail(c, apperr.UnauthorizedErr("Invalid or expired token."))
			return
		}

		c.Set(ctxKeyIdentity, id)
		c.Next()
	}
}

// RequireRole gates a route to the given roles. Runs after Authenticate.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			Fail(c, apperr.UnauthorizedErr("Authentication required."))
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		Fail(c, apperr.ForbiddenErr("Insufficient role."))
	}
}

func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		if id, ok := v.(auth.Identity); ok {
			return id, true
		}
	}
	return auth.Identity{}, false
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
