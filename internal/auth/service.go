package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/database/users"
	"github.com/mrlokans/campuslib/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters: letters, digits and @.+-_ only")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrInvalidDept      = errors.New("unknown department")
)

const defaultMaxLoginAttempts = 5

// StudentRegistration carries the sign-up form of a new student.
type StudentRegistration struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Password     string
	Department   entities.Department
	RollNumber   string
	RegisteredID string
	College      string
	Phone        string
}

// Service handles accounts, credentials and API tokens.
type Service struct {
	db     *gorm.DB
	users  *users.Repository
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		users:  users.NewRepository(db),
		config: cfg,
		now:    time.Now,
	}
}

// RegisterStudent creates a student account together with its profile.
func (s *Service) RegisterStudent(ctx context.Context, reg StudentRegistration) (*entities.User, error) {
	if reg.Department == "" {
		reg.Department = entities.DepartmentOther
	}
	if !slices.Contains(entities.Departments, reg.Department) {
		return nil, ErrInvalidDept
	}

	user, err := s.newUser(reg.Username, reg.Email, reg.Password, entities.UserRoleStudent)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(reg.FirstName)
	user.LastName = strings.TrimSpace(reg.LastName)

	student := &entities.Student{
		Department:   reg.Department,
		RollNumber:   strings.TrimSpace(reg.RollNumber),
		RegisteredID: strings.TrimSpace(reg.RegisteredID),
		College:      strings.TrimSpace(reg.College),
		Phone:        strings.TrimSpace(reg.Phone),
	}

	if err := s.users.CreateUser(ctx, user, student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CreateStaff creates a librarian account. Staff accounts have no student profile.
func (s *Service) CreateStaff(ctx context.Context, username, email, password string) (*entities.User, error) {
	user, err := s.newUser(username, email, password, entities.UserRoleStaff)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user, nil); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) newUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	// Email is optional; RFC 5321 caps it at 254
	if email != "" && (len(email) > 254 || !emailPattern.MatchString(email)) {
		return nil, ErrEmailInvalid
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}

// Authenticate validates credentials and returns the user.
// Accounts are locked after MaxLoginAttempts consecutive failures.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(ctx, user)
		return nil, err
	}

	s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return user, nil
}

func (s *Service) recordFailedLogin(ctx context.Context, user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxLoginAttempts
	}
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		updates["locked_until"] = s.now().Add(lockoutDuration)
	}

	s.db.WithContext(ctx).Model(user).Updates(updates)
}

// GetUserByID retrieves a user with its student profile.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies a profile edit for the user.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, upd users.ProfileUpdate) (*entities.User, error) {
	if upd.Department == "" {
		upd.Department = entities.DepartmentOther
	}
	if !slices.Contains(entities.Departments, upd.Department) {
		return nil, ErrInvalidDept
	}
	upd.Email = strings.TrimSpace(upd.Email)
	if upd.Email != "" && (len(upd.Email) > 254 || !emailPattern.MatchString(upd.Email)) {
		return nil, ErrEmailInvalid
	}

	user, err := s.users.UpdateProfile(ctx, userID, upd)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// ValidateToken checks a plaintext token and returns the associated user.
// Returns ErrTokenExpired if the token is past its expiry time.
func (s *Service) ValidateToken(ctx context.Context, token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var user entities.User
	err := s.db.WithContext(ctx).Where("token_hash = ?", HashToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if s.now().Sub(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}

	return &user, nil
}

// GenerateToken creates a new API token for a user, replacing any previous one.
// Returns the plaintext token (show to user once); only the hash is stored.
func (s *Service) GenerateToken(ctx context.Context, userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": s.now(),
	})
	if result.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}

	return plaintext, nil
}

// RevokeToken removes a user's API token.
func (s *Service) RevokeToken(ctx context.Context, userID uint) error {
	result := s.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke token: %w", result.Error)
	}
	return nil
}

// ChangePassword updates a user's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(user).Update("password_hash", newHash).Error
}

// HasStaff reports whether at least one staff account exists.
func (s *Service) HasStaff(ctx context.Context) (bool, error) {
	count, err := s.users.CountByRole(ctx, entities.UserRoleStaff)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
