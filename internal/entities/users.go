package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleStaff   UserRole = "staff"
	UserRoleStudent UserRole = "student"
)

type Department string

const (
	DepartmentCSE   Department = "CSE"
	DepartmentEC    Department = "EC"
	DepartmentEEE   Department = "EEE"
	DepartmentBCA   Department = "BCA"
	DepartmentOther Department = "OTHER"
)

// Departments lists every accepted department code in display order.
var Departments = []Department{
	DepartmentCSE,
	DepartmentEC,
	DepartmentEEE,
	DepartmentBCA,
	DepartmentOther,
}

// User is a login account. Students additionally own a Student profile.
type User struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	Username     string   `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string   `gorm:"size:254" json:"email"`
	FirstName    string   `gorm:"size:150" json:"first_name"`
	LastName     string   `gorm:"size:150" json:"last_name"`
	PasswordHash string   `gorm:"size:100;not null" json:"-"`
	Role         UserRole `gorm:"size:20;default:'student';not null" json:"role"`

	TokenHash      string     `gorm:"index;size:64" json:"-"` // SHA-256 of the API token
	TokenCreatedAt *time.Time `json:"-"`

	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Student *Student `gorm:"foreignKey:UserID" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsStaff() bool {
	return u.Role == UserRoleStaff
}

func (User) TableName() string {
	return "users"
}

type Student struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Department   Department `gorm:"size:10;default:'OTHER'" json:"department"`
	RollNumber   string     `gorm:"size:20" json:"roll_number"`
	RegisteredID string     `gorm:"size:50" json:"registered_id"`
	College      string     `gorm:"size:100" json:"college"`
	Phone        string     `gorm:"size:15" json:"phone"`
	User         User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}
