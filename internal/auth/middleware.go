package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// AuthUser is the identity a request acts as. Controllers pass its ID and
// role to the services explicitly.
type AuthUser struct {
	ID       uint
	Username string
	Role     entities.UserRole
}

func (u *AuthUser) IsStaff() bool {
	return u != nil && u.Role == entities.UserRoleStaff
}

func (u *AuthUser) IsStudent() bool {
	return u != nil && u.Role == entities.UserRoleStudent
}

// Middleware authenticates requests by bearer token or session cookie.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		publicPaths: map[string]bool{
			"/health":   true,
			"/login":    true,
			"/register": true,
		},
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		// Bearer first for API clients
		if user := m.tryBearerAuth(c); user != nil {
			setUserContext(c, user, AuthTypeBearer)
			c.Next()
			return
		}

		if user := m.trySessionAuth(c); user != nil {
			setUserContext(c, user, AuthTypeSession)
			c.Next()
			return
		}

		abortUnauthenticated(c)
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	token, ok := bearerToken(c)
	if !ok {
		return nil
	}

	user, err := m.service.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	// The account may have been removed since login
	user, err := m.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

func setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUser, &AuthUser{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	c.Set(ContextKeyAuthType, authType)
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortUnauthenticated(c *gin.Context) {
	if c.GetHeader("HX-Request") != "" {
		c.Header("HX-Redirect", "/login")
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    "authentication required",
		"redirect": "/login",
	})
}

// RequireAuth rejects requests that carry no identity. Use it on groups that
// are mounted on public paths.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAuthUser(c) == nil {
			abortUnauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequireRole returns a middleware that admits only the given roles.
func RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		user := GetAuthUser(c)
		if user == nil {
			abortUnauthenticated(c)
			return
		}
		if !allowed[user.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// GetAuthUser returns the authenticated user, or nil.
func GetAuthUser(c *gin.Context) *AuthUser {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*AuthUser); ok {
			return user
		}
	}
	return nil
}

// GetUserID returns the authenticated user's ID, or 0.
func GetUserID(c *gin.Context) uint {
	if user := GetAuthUser(c); user != nil {
		return user.ID
	}
	return 0
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
