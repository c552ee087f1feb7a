// Package reports answers the read-side questions of the library: the
// catalog, a student's loans and profile, and staff borrowing overviews.
// Fines shown here are live values; nothing in this package writes them.
package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/libraryerr"
)

var (
	ErrInvalidBook    = fmt.Errorf("%w: book needs a name, an accession number and non-negative copies", libraryerr.ErrInvalidState)
	ErrAccessionTaken = fmt.Errorf("%w: accession number already exists", libraryerr.ErrConflict)
)

type BorrowerSort string

const (
	SortByUsername   BorrowerSort = "username"
	SortByTotalBooks BorrowerSort = "total_books"
	SortByOverdue    BorrowerSort = "overdue"
)

type UserReader interface {
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
}

type BookStore interface {
	GetBookByID(ctx context.Context, id uint) (*entities.Book, error)
	ListBooks(ctx context.Context, search string) ([]entities.Book, error)
	CreateBook(ctx context.Context, book *entities.Book) error
	SetCover(ctx context.Context, id uint, coverKey string) error
}

type LoanReader interface {
	ListLoans(ctx context.Context, filter lendingRepo.LoanFilter) ([]entities.Loan, error)
	ListRequestsForUser(ctx context.Context, userID uint) ([]entities.BookRequest, error)
	ListPendingRequests(ctx context.Context) ([]entities.BookRequest, error)
	CountRequestsForUser(ctx context.Context, userID uint) (int64, error)
	ListBorrowers(ctx context.Context, search string) ([]entities.User, error)
}

// FineCalculator reports the fine of a loan as of now.
type FineCalculator interface {
	LiveFine(loan *entities.Loan) int64
}

type CoverSaver interface {
	Save(ctx context.Context, folder, originalName string, src io.Reader) (string, error)
}

type Auditor interface {
	LogCatalog(actorID uint, action, entityType string, entityID uint, description string)
}

// LoanView is a loan with its fine evaluated now.
type LoanView struct {
	entities.Loan
	LiveFine int64 `json:"live_fine"`
	Overdue  bool  `json:"overdue"`
}

type ProfileSummary struct {
	User         *entities.User `json:"user"`
	TotalFine    int64          `json:"total_fine"`
	CurrentLoans []LoanView     `json:"current_loans"`
	OpenRequests int64          `json:"open_requests"`
}

type BorrowerSummary struct {
	User         entities.User `json:"user"`
	TotalBooks   int           `json:"total_books"`
	CurrentBooks int           `json:"current_books"`
	OverdueBooks int           `json:"overdue_books"`
	TotalFine    int64         `json:"total_fine"`
	Loans        []LoanView    `json:"loans"`
}

type Service struct {
	users   UserReader
	books   BookStore
	loans   LoanReader
	fines   FineCalculator
	covers  CoverSaver
	auditor Auditor
	now     func() time.Time
}

func NewService(users UserReader, books BookStore, loans LoanReader, fines FineCalculator, covers CoverSaver, auditor Auditor) *Service {
	return &Service{
		users:   users,
		books:   books,
		loans:   loans,
		fines:   fines,
		covers:  covers,
		auditor: auditor,
		now:     time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) ListBooks(ctx context.Context, search string) ([]entities.Book, error) {
	return s.books.ListBooks(ctx, search)
}

func (s *Service) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.books.GetBookByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "book", id)
	}
	return book, nil
}

// AddBook adds a title to the catalog.
func (s *Service) AddBook(ctx context.Context, actorID uint, book *entities.Book) error {
	book.Name = strings.TrimSpace(book.Name)
	book.ExternalID = strings.TrimSpace(book.ExternalID)
	if book.Name == "" || book.ExternalID == "" || book.AvailableCopies < 0 {
		return ErrInvalidBook
	}

	if err := s.books.CreateBook(ctx, book); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAccessionTaken
		}
		return fmt.Errorf("create book: %w", err)
	}

	if s.auditor != nil {
		s.auditor.LogCatalog(actorID, "book_create", "book", book.ID, "Added "+book.Name)
	}
	return nil
}

// SetBookCover stores a thumbnail of src as the cover of a book.
func (s *Service) SetBookCover(ctx context.Context, actorID, bookID uint, fileName string, src io.Reader) (*entities.Book, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	key, err := s.covers.Save(ctx, "covers/books", fileName, src)
	if err != nil {
		return nil, err
	}
	if err := s.books.SetCover(ctx, book.ID, key); err != nil {
		return nil, notFound(err, "book", bookID)
	}
	book.CoverKey = key

	if s.auditor != nil {
		s.auditor.LogCatalog(actorID, "book_cover", "book", book.ID, "Updated cover of "+book.Name)
	}
	return book, nil
}

// Borrowed lists a user's loans. Sorting by fine uses live fines.
func (s *Service) Borrowed(ctx context.Context, userID uint, status lendingRepo.LoanStatus, sort lendingRepo.LoanSort) ([]LoanView, error) {
	loans, err := s.loans.ListLoans(ctx, lendingRepo.LoanFilter{UserID: userID, Status: status, Sort: sort})
	if err != nil {
		return nil, err
	}

	views := s.views(loans)
	if sort == lendingRepo.SortFineDesc {
		slices.SortStableFunc(views, func(a, b LoanView) int {
			return compareDesc(a.LiveFine, b.LiveFine)
		})
	}
	return views, nil
}

// History lists every loan of a user, returned or not, most recently accepted first.
func (s *Service) History(ctx context.Context, userID uint) ([]LoanView, error) {
	loans, err := s.loans.ListLoans(ctx, lendingRepo.LoanFilter{
		UserID: userID,
		Status: lendingRepo.LoanStatusAll,
		Sort:   lendingRepo.SortAcceptedDesc,
	})
	if err != nil {
		return nil, err
	}
	return s.views(loans), nil
}

func (s *Service) MyRequests(ctx context.Context, userID uint) ([]entities.BookRequest, error) {
	return s.loans.ListRequestsForUser(ctx, userID)
}

// Profile summarises a user's account: unpaid fines, books in hand and open requests.
func (s *Service) Profile(ctx context.Context, userID uint) (*ProfileSummary, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}

	current, err := s.Borrowed(ctx, userID, lendingRepo.LoanStatusCurrent, lendingRepo.SortAcceptedDesc)
	if err != nil {
		return nil, err
	}
	open, err := s.loans.CountRequestsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &ProfileSummary{User: user, CurrentLoans: current, OpenRequests: open}
	for _, loan := range current {
		summary.TotalFine += loan.LiveFine
	}
	return summary, nil
}

func (s *Service) PendingRequests(ctx context.Context) ([]entities.BookRequest, error) {
	return s.loans.ListPendingRequests(ctx)
}

// AcceptedLoans lists every loan for staff, optionally filtered by status.
func (s *Service) AcceptedLoans(ctx context.Context, status lendingRepo.LoanStatus) ([]LoanView, error) {
	loans, err := s.loans.ListLoans(ctx, lendingRepo.LoanFilter{Status: status})
	if err != nil {
		return nil, err
	}
	return s.views(loans), nil
}

// UserBorrowHistory summarises every user who ever borrowed a book.
func (s *Service) UserBorrowHistory(ctx context.Context, search string, sort BorrowerSort) ([]BorrowerSummary, error) {
	users, err := s.loans.ListBorrowers(ctx, search)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []BorrowerSummary{}, nil
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	loans, err := s.loans.ListLoans(ctx, lendingRepo.LoanFilter{UserIDs: ids})
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint][]LoanView, len(users))
	for _, view := range s.views(loans) {
		byUser[view.UserID] = append(byUser[view.UserID], view)
	}

	summaries := make([]BorrowerSummary, 0, len(users))
	for _, user := range users {
		summary := BorrowerSummary{User: user, Loans: byUser[user.ID]}
		for _, loan := range summary.Loans {
			summary.TotalBooks++
			if !loan.Returned {
				summary.CurrentBooks++
			}
			if loan.Overdue {
				summary.OverdueBooks++
			}
			summary.TotalFine += loan.LiveFine
		}
		summaries = append(summaries, summary)
	}

	// users arrive ordered by username, which stays the tie-break
	switch sort {
	case SortByTotalBooks:
		slices.SortStableFunc(summaries, func(a, b BorrowerSummary) int {
			return compareDesc(a.TotalBooks, b.TotalBooks)
		})
	case SortByOverdue:
		slices.SortStableFunc(summaries, func(a, b BorrowerSummary) int {
			return compareDesc(a.OverdueBooks, b.OverdueBooks)
		})
	}
	return summaries, nil
}

func (s *Service) views(loans []entities.Loan) []LoanView {
	now := s.now()
	views := make([]LoanView, len(loans))
	for i := range loans {
		views[i] = LoanView{
			Loan:     loans[i],
			LiveFine: s.fines.LiveFine(&loans[i]),
			Overdue:  loans[i].IsOverdue(now),
		}
	}
	return views
}

func compareDesc[T int | int64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return libraryerr.NotFound(entity, id)
	}
	return err
}
