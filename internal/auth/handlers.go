package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/forms"
)

// Auditor records authentication events.
type Auditor interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative (//evil.com), schemes and backslash tricks
	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// homePath is where a freshly logged in user lands.
func homePath(role entities.UserRole) string {
	if role == entities.UserRoleStaff {
		return "/staff/requests"
	}
	return "/books"
}

type registerForm struct {
	Username        string `form:"username" json:"username" validate:"required,max=64"`
	Email           string `form:"email" json:"email" validate:"omitempty,email,max=254"`
	FirstName       string `form:"first_name" json:"first_name" validate:"max=150"`
	LastName        string `form:"last_name" json:"last_name" validate:"max=150"`
	Password        string `form:"password" json:"password" validate:"required"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" validate:"required,eqfield=Password"`
	Department      string `form:"department" json:"department" validate:"omitempty,oneof=CSE EC EEE BCA OTHER"`
	RollNumber      string `form:"roll_number" json:"roll_number" validate:"max=20"`
	RegisteredID    string `form:"registered_id" json:"registered_id" validate:"max=50"`
	College         string `form:"college" json:"college" validate:"max=100"`
	Phone           string `form:"phone" json:"phone" validate:"max=15"`
}

type loginForm struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
	Next     string `form:"next" json:"next"`
}

type changePasswordForm struct {
	OldPassword     string `form:"old_password" json:"old_password" validate:"required"`
	NewPassword     string `form:"new_password" json:"new_password" validate:"required"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// AuthController handles registration, login and logout.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	auditor        Auditor
	rateLimiter    *RateLimiter
}

// NewAuthController creates a new authentication controller. Call Stop on
// shutdown to release the rate limiter.
func NewAuthController(service *Service, sessionManager *SessionManager, auditor Auditor, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		auditor:        auditor,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// RegisterRoutes registers the public authentication routes.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.POST("/register", ac.Register)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
}

// Stop releases the rate limiter's cleanup goroutine.
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// Register signs up a new student.
func (ac *AuthController) Register(c *gin.Context) {
	var form registerForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	user, err := ac.service.RegisterStudent(c.Request.Context(), StudentRegistration{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Password:     form.Password,
		Department:   entities.Department(form.Department),
		RollNumber:   form.RollNumber,
		RegisteredID: form.RegisteredID,
		College:      form.College,
		Phone:        form.Phone,
	})
	if err != nil {
		ac.respondAccountError(c, err)
		return
	}

	ac.audit(user.ID, "register", c, true)
	c.JSON(http.StatusCreated, gin.H{
		"user":     user,
		"message":  "Registration successful. Please log in.",
		"redirect": "/login",
	})
}

// Login checks credentials and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	var form loginForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, form.Username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many login attempts. Please try again later.",
			"retry_after": retryAfter.String(),
		})
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, form.Username)
		ac.audit(0, "login", c, false)

		switch {
		case errors.Is(err, ErrAccountLocked):
			c.JSON(http.StatusLocked, gin.H{"error": "Account is locked. Please try again later."})
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		default:
			log.Printf("Login failed for %q: %v", form.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, form.Username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	ac.audit(user.ID, "login", c, true)

	next := homePath(user.Role)
	if isLocalPath(form.Next) {
		next = form.Next
	}
	respondRedirect(c, http.StatusOK, next, gin.H{"user": user})
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := ac.sessionManager.GetUserID(c.Request)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	if userID != 0 {
		ac.audit(userID, "logout", c, true)
	}
	respondRedirect(c, http.StatusOK, "/login", gin.H{"message": "logged out"})
}

// ChangePassword replaces the current user's password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		abortUnauthenticated(c)
		return
	}

	var form changePasswordForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	err := ac.service.ChangePassword(c.Request.Context(), user.ID, form.OldPassword, form.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			forms.Respond(c, forms.FieldErrors{{Field: "old_password", Message: "Your old password was entered incorrectly."}})
			return
		}
		ac.respondAccountError(c, err)
		return
	}

	ac.audit(user.ID, "password_change", c, true)
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (ac *AuthController) respondAccountError(c *gin.Context, err error) {
	var field string
	switch {
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrUsernameInvalid), errors.Is(err, ErrUsernameRequired):
		field = "username"
	case errors.Is(err, ErrEmailInvalid):
		field = "email"
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong), errors.Is(err, ErrPasswordRequired):
		field = "password"
	case errors.Is(err, ErrInvalidDept):
		field = "department"
	default:
		log.Printf("Account operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if errors.Is(err, ErrUserExists) {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "validation failed",
			"fields": forms.FieldErrors{{Field: field, Message: "A user with that username already exists."}},
		})
		return
	}
	forms.Respond(c, forms.FieldErrors{{Field: field, Message: err.Error()}})
}

func (ac *AuthController) audit(userID uint, action string, c *gin.Context, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

// respondRedirect answers with JSON naming the next page; HTMX callers also get HX-Redirect.
func respondRedirect(c *gin.Context, status int, path string, body gin.H) {
	if c.GetHeader("HX-Request") != "" {
		c.Header("HX-Redirect", path)
	}
	body["redirect"] = path
	c.JSON(status, body)
}

// APITokenController handles API token management endpoints.
type APITokenController struct {
	service *Service
}

// NewAPITokenController creates a new API token controller.
func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken issues a new API token for the authenticated user.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		abortUnauthenticated(c)
		return
	}

	token, err := tc.service.GenerateToken(c.Request.Context(), userID)
	if err != nil {
		log.Printf("Failed to generate token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		abortUnauthenticated(c)
		return
	}

	if err := tc.service.RevokeToken(c.Request.Context(), userID); err != nil {
		log.Printf("Failed to revoke token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
