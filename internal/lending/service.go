// Package lending manages the borrow lifecycle of physical books: students
// request a book, staff accept or reject the request, accepted loans accrue
// fines once overdue and are eventually returned.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/libraryerr"
)

// Store is the persistence the lifecycle needs.
type Store interface {
	CreateRequest(ctx context.Context, req *entities.BookRequest) error
	GetRequest(ctx context.Context, id uint) (*entities.BookRequest, error)
	HasOpenRequest(ctx context.Context, userID, bookID uint) (bool, error)
	DeleteRequest(ctx context.Context, id uint) error
	AcceptRequest(ctx context.Context, requestID uint, newLoan func(*entities.BookRequest) *entities.Loan) (*entities.Loan, error)
	ReturnLoan(ctx context.Context, loanID uint, now time.Time, finalFine func(*entities.Loan) int64) (*entities.Loan, bool, error)
	RaiseFine(ctx context.Context, loanID uint, fine int64) (bool, error)
	GetLoan(ctx context.Context, id uint) (*entities.Loan, error)
	ListOverdueLoans(ctx context.Context, now time.Time) ([]entities.Loan, error)
}

type BookReader interface {
	GetBookByID(ctx context.Context, id uint) (*entities.Book, error)
}

// Policy supplies the loan period and overdue fine in effect.
type Policy interface {
	LoanDays() int
	FinePerDay() int64
}

type Auditor interface {
	LogLending(actorID uint, action, entityType string, entityID uint, description string, metadata map[string]any)
}

type Service struct {
	store   Store
	books   BookReader
	policy  Policy
	auditor Auditor
	now     func() time.Time
}

func NewService(store Store, books BookReader, policy Policy, auditor Auditor) *Service {
	return &Service{
		store:   store,
		books:   books,
		policy:  policy,
		auditor: auditor,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Fine is the fine for a loan due at dueAt as of now: every full day past the
// due date costs perDay. Loans that are not yet overdue cost nothing.
func Fine(dueAt, now time.Time, perDay int64) int64 {
	if !now.After(dueAt) {
		return 0
	}
	days := int64(now.Sub(dueAt) / (24 * time.Hour))
	return days * perDay
}

// SubmitRequest opens a pending request by userID for bookID. The copy
// counter is not touched until staff accept the request.
func (s *Service) SubmitRequest(ctx context.Context, userID, bookID uint) (*entities.BookRequest, error) {
	book, err := s.books.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, notFound(err, "book", bookID)
	}

	open, err := s.store.HasOpenRequest(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, libraryerr.ErrDuplicateRequest
	}
	if !book.IsAvailable() {
		return nil, libraryerr.ErrNoCopies
	}

	req := &entities.BookRequest{
		UserID:      userID,
		BookID:      bookID,
		Status:      entities.RequestStatusPending,
		RequestedAt: s.now(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, libraryerr.ErrDuplicateRequest
		}
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Book = *book

	s.audit(userID, "request_submit", "book_request", req.ID, "Requested "+book.Name, nil)
	return req, nil
}

// AcceptRequest turns a pending request into a loan due after the current
// loan period and takes one copy off the shelf.
func (s *Service) AcceptRequest(ctx context.Context, actorID, requestID uint) (*entities.Loan, error) {
	now := s.now()
	policy := s.snapshot()

	loan, err := s.store.AcceptRequest(ctx, requestID, func(req *entities.BookRequest) *entities.Loan {
		dueAt := now.AddDate(0, 0, policy.days)
		reqID := req.ID
		return &entities.Loan{
			UserID:     req.UserID,
			BookID:     req.BookID,
			RequestID:  &reqID,
			AcceptedAt: now,
			DueAt:      dueAt,
			Fine:       Fine(dueAt, now, policy.finePerDay),
		}
	})
	switch {
	case errors.Is(err, lendingRepo.ErrNoCopiesLeft):
		return nil, libraryerr.ErrNoCopies
	case err != nil:
		return nil, notFound(err, "book request", requestID)
	}

	s.audit(actorID, "request_accept", "loan", loan.ID, "Lent "+loan.Book.Name+" to "+loan.User.Username,
		map[string]any{"request_id": requestID, "due_at": loan.DueAt.Format(time.RFC3339)})
	return loan, nil
}

// RejectRequest removes a pending request.
func (s *Service) RejectRequest(ctx context.Context, actorID, requestID uint) error {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return notFound(err, "book request", requestID)
	}
	if !req.IsPending() {
		return fmt.Errorf("%w: request is %s", libraryerr.ErrInvalidState, req.Status)
	}
	if err := s.store.DeleteRequest(ctx, requestID); err != nil {
		return notFound(err, "book request", requestID)
	}

	s.audit(actorID, "request_reject", "book_request", requestID, "Rejected request for "+req.Book.Name+" by "+req.User.Username, nil)
	return nil
}

// CancelRequest lets a student withdraw their own pending request.
func (s *Service) CancelRequest(ctx context.Context, actorID, requestID uint) error {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return notFound(err, "book request", requestID)
	}
	if req.UserID != actorID || !req.IsPending() {
		return fmt.Errorf("%w: cannot cancel this request", libraryerr.ErrForbidden)
	}
	if err := s.store.DeleteRequest(ctx, requestID); err != nil {
		return notFound(err, "book request", requestID)
	}

	s.audit(actorID, "request_cancel", "book_request", requestID, "Cancelled request for "+req.Book.Name, nil)
	return nil
}

// ReturnBook marks a loan returned and puts the copy back. The fine is frozen
// at its final value. Returning a loan twice is a no-op.
func (s *Service) ReturnBook(ctx context.Context, actorID, loanID uint) (*entities.Loan, error) {
	now := s.now()
	perDay := s.policy.FinePerDay()

	loan, changed, err := s.store.ReturnLoan(ctx, loanID, now, func(l *entities.Loan) int64 {
		return max(l.Fine, Fine(l.DueAt, now, perDay))
	})
	if err != nil {
		return nil, notFound(err, "loan", loanID)
	}

	if changed {
		s.audit(actorID, "loan_return", "loan", loan.ID, "Returned "+loan.Book.Name+" from "+loan.User.Username,
			map[string]any{"fine": loan.Fine})
	}
	return loan, nil
}

// CalculateFine returns the current fine of a loan and stores it when it grew.
// Returned loans keep the fine frozen at return.
func (s *Service) CalculateFine(ctx context.Context, loanID uint) (int64, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return 0, notFound(err, "loan", loanID)
	}
	if loan.Returned {
		return loan.Fine, nil
	}

	fine := max(loan.Fine, Fine(loan.DueAt, s.now(), s.policy.FinePerDay()))
	if fine > loan.Fine {
		if _, err := s.store.RaiseFine(ctx, loan.ID, fine); err != nil {
			return 0, fmt.Errorf("store fine: %w", err)
		}
	}
	return fine, nil
}

// LiveFine is the fine of loan as of now without touching the store.
func (s *Service) LiveFine(loan *entities.Loan) int64 {
	if loan.Returned {
		return loan.Fine
	}
	return max(loan.Fine, Fine(loan.DueAt, s.now(), s.policy.FinePerDay()))
}

// RefreshFines stores the current fine of every overdue loan.
// Returns how many loans changed.
func (s *Service) RefreshFines(ctx context.Context) (int, error) {
	now := s.now()
	perDay := s.policy.FinePerDay()

	loans, err := s.store.ListOverdueLoans(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue loans: %w", err)
	}

	updated := 0
	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		changed, err := s.store.RaiseFine(ctx, loan.ID, Fine(loan.DueAt, now, perDay))
		if err != nil {
			log.Printf("Failed to refresh fine for loan %d: %v", loan.ID, err)
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

type lendingPolicy struct {
	days       int
	finePerDay int64
}

func (s *Service) snapshot() lendingPolicy {
	return lendingPolicy{days: s.policy.LoanDays(), finePerDay: s.policy.FinePerDay()}
}

func (s *Service) audit(actorID uint, action, entityType string, entityID uint, description string, metadata map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogLending(actorID, action, entityType, entityID, description, metadata)
}

// notFound converts gorm.ErrRecordNotFound into a library not-found error and
// passes every other error through.
func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return libraryerr.NotFound(entity, id)
	}
	return err
}
