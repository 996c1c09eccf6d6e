// Package middleware holds the gin middleware of the console server.
package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DomainValidatorMiddleware rejects requests whose Host is not domain.
func DomainValidatorMiddleware(domain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.Host)
		if err != nil {
			host = c.Request.Host
		}

		if !strings.EqualFold(host, domain) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Next()
	}
}

// BasePathMiddleware exposes the mount path to handlers and templates.
func BasePathMiddleware(basePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("base_path", basePath)
		c.Next()
	}
}
