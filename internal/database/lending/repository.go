// Package lending provides database operations for book requests and loans.
//
// Every method that moves a copy between the shelf and a student runs in a
// single transaction together with the counter update, so available_copies
// always matches the set of unreturned loans.
package lending

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/campuslib/internal/entities"
)

// ErrNoCopiesLeft is returned by AcceptRequest when the book has no copy to lend.
var ErrNoCopiesLeft = errors.New("no copies left")

type LoanStatus string

const (
	LoanStatusAll      LoanStatus = "all"
	LoanStatusCurrent  LoanStatus = "current"
	LoanStatusReturned LoanStatus = "returned"
)

type LoanSort string

const (
	SortAcceptedDesc LoanSort = "-accepted_date"
	SortAcceptedAsc  LoanSort = "accepted_date"
	SortReturnDate   LoanSort = "return_date"
	SortFineDesc     LoanSort = "-fine"
)

// LoanFilter narrows ListLoans. Zero values mean "no filter" and newest first.
type LoanFilter struct {
	UserID  uint
	UserIDs []uint
	Status  LoanStatus
	Sort    LoanSort
}

// Repository handles request and loan persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new lending repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRequest inserts a pending request. A second open request for the same
// user and book violates idx_book_requests_user_book (gorm.ErrDuplicatedKey).
func (r *Repository) CreateRequest(ctx context.Context, req *entities.BookRequest) error {
	return r.db.WithContext(ctx).Omit("User", "Book").Create(req).Error
}

// GetRequest loads a request with its user and book.
func (r *Repository) GetRequest(ctx context.Context, id uint) (*entities.BookRequest, error) {
	var req entities.BookRequest
	err := r.db.WithContext(ctx).Preload("User").Preload("Book").First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// HasOpenRequest reports whether the user already has a request for the book.
func (r *Repository) HasOpenRequest(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.BookRequest{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// ListRequestsForUser returns a user's open requests, newest first.
func (r *Repository) ListRequestsForUser(ctx context.Context, userID uint) ([]entities.BookRequest, error) {
	var reqs []entities.BookRequest
	err := r.db.WithContext(ctx).Preload("Book").
		Where("user_id = ?", userID).
		Order("requested_at DESC, id DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListPendingRequests returns every pending request, oldest first.
func (r *Repository) ListPendingRequests(ctx context.Context) ([]entities.BookRequest, error) {
	var reqs []entities.BookRequest
	err := r.db.WithContext(ctx).Preload("User").Preload("Book").
		Where("status = ?", entities.RequestStatusPending).
		Order("requested_at ASC, id ASC").
		Find(&reqs).Error
	return reqs, err
}

// CountRequestsForUser returns how many open requests a user has.
func (r *Repository) CountRequestsForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.BookRequest{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// DeleteRequest removes a request. Returns gorm.ErrRecordNotFound if nothing was deleted.
func (r *Repository) DeleteRequest(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.BookRequest{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AcceptRequest turns a request into a loan. In one transaction it takes a
// copy off the shelf, stores the loan built by newLoan and deletes the request.
// Returns gorm.ErrRecordNotFound if the request is gone and ErrNoCopiesLeft if
// the book has no copy to lend; nothing is written in either case.
func (r *Repository) AcceptRequest(ctx context.Context, requestID uint, newLoan func(*entities.BookRequest) *entities.Loan) (*entities.Loan, error) {
	var loan *entities.Loan
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req entities.BookRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, requestID).Error; err != nil {
			return err
		}

		taken := tx.Model(&entities.Book{}).
			Where("id = ? AND available_copies > 0", req.BookID).
			Update("available_copies", gorm.Expr("available_copies - 1"))
		if taken.Error != nil {
			return taken.Error
		}
		if taken.RowsAffected == 0 {
			return ErrNoCopiesLeft
		}

		loan = newLoan(&req)
		if err := tx.Omit("User", "Book").Create(loan).Error; err != nil {
			return err
		}

		deleted := tx.Delete(&entities.BookRequest{}, req.ID)
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			// accepted by someone else between our read and delete
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetLoan(ctx, loan.ID)
}

// ReturnLoan marks a loan returned at now with its fine frozen at finalFine(loan)
// and puts the copy back on the shelf. A loan that is already returned is left
// untouched and returned with changed == false.
func (r *Repository) ReturnLoan(ctx context.Context, loanID uint, now time.Time, finalFine func(*entities.Loan) int64) (*entities.Loan, bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan entities.Loan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&loan, loanID).Error; err != nil {
			return err
		}
		if loan.Returned {
			return nil
		}

		marked := tx.Model(&entities.Loan{}).
			Where("id = ? AND returned = ?", loan.ID, false).
			Updates(map[string]any{
				"returned":    true,
				"returned_at": now,
				"fine":        finalFine(&loan),
			})
		if marked.Error != nil {
			return marked.Error
		}
		if marked.RowsAffected == 0 {
			return nil
		}

		changed = true
		return tx.Model(&entities.Book{}).
			Where("id = ?", loan.BookID).
			Update("available_copies", gorm.Expr("available_copies + 1")).Error
	})
	if err != nil {
		return nil, false, err
	}

	loan, err := r.GetLoan(ctx, loanID)
	if err != nil {
		return nil, false, err
	}
	return loan, changed, nil
}

// RaiseFine stores fine for an unreturned loan if it is higher than the
// stored value. Returns whether a row changed.
func (r *Repository) RaiseFine(ctx context.Context, loanID uint, fine int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Loan{}).
		Where("id = ? AND returned = ? AND fine < ?", loanID, false, fine).
		Update("fine", fine)
	return result.RowsAffected > 0, result.Error
}

// GetLoan loads a loan with its user and book.
func (r *Repository) GetLoan(ctx context.Context, id uint) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.WithContext(ctx).Preload("User").Preload("Book").First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListLoans returns loans matching filter with user and book preloaded.
func (r *Repository) ListLoans(ctx context.Context, filter LoanFilter) ([]entities.Loan, error) {
	query := r.db.WithContext(ctx).Preload("User").Preload("Book")

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.UserIDs != nil {
		query = query.Where("user_id IN ?", filter.UserIDs)
	}

	switch filter.Status {
	case LoanStatusCurrent:
		query = query.Where("returned = ?", false)
	case LoanStatusReturned:
		query = query.Where("returned = ?", true)
	}

	switch filter.Sort {
	case SortAcceptedAsc:
		query = query.Order("accepted_at ASC, id ASC")
	case SortReturnDate:
		query = query.Order("due_at ASC, id ASC")
	case SortFineDesc:
		query = query.Order("fine DESC, id DESC")
	default:
		query = query.Order("accepted_at DESC, id DESC")
	}

	var loans []entities.Loan
	err := query.Find(&loans).Error
	return loans, err
}

// ListOverdueLoans returns unreturned loans whose due date is before now.
func (r *Repository) ListOverdueLoans(ctx context.Context, now time.Time) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.WithContext(ctx).
		Where("returned = ? AND due_at < ?", false, now).
		Order("due_at ASC, id ASC").
		Find(&loans).Error
	return loans, err
}

// ListBorrowers returns users with at least one loan, optionally filtered by a
// case-insensitive match on username, first name, last name or email.
func (r *Repository) ListBorrowers(ctx context.Context, search string) ([]entities.User, error) {
	query := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("EXISTS (SELECT 1 FROM loans WHERE loans.user_id = users.id)")

	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var users []entities.User
	err := query.Order("username ASC").Find(&users).Error
	return users, err
}
