package entities

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// BookRequest is an open request by a student to borrow a book.
// Rows are removed once staff accept, reject, or the student cancels.
type BookRequest struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"not null;uniqueIndex:idx_book_requests_user_book" json:"user_id"`
	BookID      uint          `gorm:"not null;index;uniqueIndex:idx_book_requests_user_book" json:"book_id"`
	Status      RequestStatus `gorm:"size:20;default:'pending';not null" json:"status"`
	RequestedAt time.Time     `gorm:"not null" json:"requested_at"`
	User        User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Book        Book          `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book,omitempty"`
}

func (r *BookRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

func (BookRequest) TableName() string {
	return "book_requests"
}

// Loan is an accepted book request: a copy in the hands of a student until returned.
// Loans are never deleted; returning stamps ReturnedAt and freezes Fine.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	RequestID  *uint      `json:"request_id,omitempty"` // id of the request this loan was accepted from
	AcceptedAt time.Time  `gorm:"not null;index" json:"accepted_at"`
	DueAt      time.Time  `gorm:"not null;index" json:"due_at"`
	Fine       int64      `gorm:"not null;default:0" json:"fine"`
	Returned   bool       `gorm:"not null;default:false;index" json:"returned"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	User       User       `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	Book       Book       `gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT" json:"book,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsOverdue reports whether an unreturned loan is past its due date at now.
func (l *Loan) IsOverdue(now time.Time) bool {
	return !l.Returned && now.After(l.DueAt)
}

func (Loan) TableName() string {
	return "loans"
}
