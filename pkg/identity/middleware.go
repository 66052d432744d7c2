package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
)

// ContextKey is where RequireCaller stores the verified identity.
const ContextKey = "caller"

// RequireCaller rejects requests without a valid bearer token.
func RequireCaller(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, ErrMissingToken.Error(), nil)
			c.Abort()
			return
		}

		id, err := v.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid or expired token", nil)
			c.Abort()
			return
		}

		SetCaller(c, id)
		c.Next()
	}
}

func SetCaller(c *gin.Context, id registry.Identity) {
	c.Set(ContextKey, id)
}

// Caller returns the identity stored by RequireCaller, or "" if none.
func Caller(c *gin.Context) registry.Identity {
	v, ok := c.Get(ContextKey)
	if !ok {
		return ""
	}
	id, _ := v.(registry.Identity)
	return id
}
