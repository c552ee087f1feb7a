// Package demo implements the read-only mode used for public demo instances
// seeded by cmd/seed_demo.
package demo

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const blockedMessage = "This action is disabled in demo mode"

// ContextKeyDemoMode marks requests served by a read-only instance.
const ContextKeyDemoMode = "demo_mode"

// Middleware rejects every state-changing request except signing in and out,
// so visitors can browse with the demo accounts without altering the data.
type Middleware struct {
	enabled bool
	allowed []string
}

// NewMiddleware creates a demo mode middleware. It is a no-op when disabled.
func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{
		enabled: enabled,
		allowed: []string{"/login", "/logout"},
	}
}

func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

// Handler returns the gin middleware.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyDemoMode, m.enabled)
		if !m.enabled || isReadOnly(c.Request.Method) || m.isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		m.respondBlocked(c)
	}
}

func isReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (m *Middleware) isAllowedPath(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, allowed := range m.allowed {
		if path == allowed {
			return true
		}
	}
	return false
}

func (m *Middleware) respondBlocked(c *gin.Context) {
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Reswap", "none")
		c.Header("HX-Trigger", `{"showToast": {"message": "`+blockedMessage+`", "type": "warning"}}`)
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": blockedMessage,
		"code":  "demo_mode",
	})
}
