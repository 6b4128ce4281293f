package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const contextTenantKey = "tenant"

// APIKeyRequired authenticates requests with the x-api-key header and
// stores the resolved tenant slug on the request context.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader("x-api-key"))
		if key == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		slug, ok := s.registry.Resolve(key)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextTenantKey, slug)
		c.Next()
	}
}

func tenantFromContext(c *gin.Context) string {
	return c.GetString(contextTenantKey)
}
