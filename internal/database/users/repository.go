// Package users provides database operations for accounts and student profiles.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByID(ctx, id) // Student preloaded
package users

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ProfileUpdate carries the editable profile fields. Student fields are
// ignored for staff accounts.
type ProfileUpdate struct {
	FirstName    string
	LastName     string
	Email        string
	Department   entities.Department
	RollNumber   string
	RegisteredID string
	College      string
	Phone        string
}

// CreateUser stores a user and, when given, its student profile in one transaction.
func (r *Repository) CreateUser(ctx context.Context, user *entities.User, student *entities.Student) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Student").Create(user).Error; err != nil {
			return err
		}
		if student == nil {
			return nil
		}
		student.UserID = user.ID
		if err := tx.Create(student).Error; err != nil {
			return err
		}
		user.Student = student
		return nil
	})
}

// GetUserByID retrieves a user with its student profile.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Preload("Student").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Preload("Student").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies a profile edit. A student without a profile row gets one.
func (r *Repository) UpdateProfile(ctx context.Context, userID uint, upd ProfileUpdate) (*entities.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		if err := tx.Model(&user).Updates(map[string]any{
			"first_name": upd.FirstName,
			"last_name":  upd.LastName,
			"email":      upd.Email,
		}).Error; err != nil {
			return err
		}

		if user.Role != entities.UserRoleStudent {
			return nil
		}

		var student entities.Student
		err := tx.Where("user_id = ?", userID).First(&student).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			student = entities.Student{UserID: userID}
		} else if err != nil {
			return err
		}

		student.Department = upd.Department
		student.RollNumber = upd.RollNumber
		student.RegisteredID = upd.RegisteredID
		student.College = upd.College
		student.Phone = upd.Phone
		return tx.Save(&student).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, userID)
}

// CountByRole returns how many accounts hold the role.
func (r *Repository) CountByRole(ctx context.Context, role entities.UserRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
