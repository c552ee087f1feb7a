package http

import (
	"context"
	"io"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/campuslib/internal/booking"
	auditRepo "github.com/mrlokans/campuslib/internal/database/audit"
	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	resourcesRepo "github.com/mrlokans/campuslib/internal/database/resources"
	"github.com/mrlokans/campuslib/internal/database/users"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/lending"
	"github.com/mrlokans/campuslib/internal/reports"
	"github.com/mrlokans/campuslib/internal/resources"
	"github.com/mrlokans/campuslib/internal/settingsstore"
)

// This file collects the service interfaces the controllers depend on. Each
// controller takes only the operations it calls.

// Catalog is the book catalog plus the per-user read views.
type Catalog interface {
	ListBooks(ctx context.Context, search string) ([]entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	AddBook(ctx context.Context, actorID uint, book *entities.Book) error
	SetBookCover(ctx context.Context, actorID, bookID uint, fileName string, src io.Reader) (*entities.Book, error)
	MyRequests(ctx context.Context, userID uint) ([]entities.BookRequest, error)
	Borrowed(ctx context.Context, userID uint, status lendingRepo.LoanStatus, sort lendingRepo.LoanSort) ([]reports.LoanView, error)
	History(ctx context.Context, userID uint) ([]reports.LoanView, error)
	Profile(ctx context.Context, userID uint) (*reports.ProfileSummary, error)
	PendingRequests(ctx context.Context) ([]entities.BookRequest, error)
	AcceptedLoans(ctx context.Context, status lendingRepo.LoanStatus) ([]reports.LoanView, error)
	UserBorrowHistory(ctx context.Context, search string, sort reports.BorrowerSort) ([]reports.BorrowerSummary, error)
}

// Lending drives the request and loan lifecycle.
type Lending interface {
	SubmitRequest(ctx context.Context, userID, bookID uint) (*entities.BookRequest, error)
	AcceptRequest(ctx context.Context, actorID, requestID uint) (*entities.Loan, error)
	RejectRequest(ctx context.Context, actorID, requestID uint) error
	CancelRequest(ctx context.Context, actorID, requestID uint) error
	ReturnBook(ctx context.Context, actorID, loanID uint) (*entities.Loan, error)
	BulkAccept(ctx context.Context, actorID uint, requestIDs []uint) []lending.BulkResult
	BulkReturn(ctx context.Context, actorID uint, loanIDs []uint) []lending.BulkResult
}

// FineRefresher recomputes stored fines of overdue loans.
type FineRefresher interface {
	RefreshFines(ctx context.Context) (int, error)
}

// Bookings manages study rooms and their bookings.
type Bookings interface {
	ListRooms(ctx context.Context) ([]entities.StudyRoom, error)
	CreateRoom(ctx context.Context, actorID uint, room *entities.StudyRoom) error
	Availability(ctx context.Context, roomID uint) (*entities.StudyRoom, []entities.RoomBooking, error)
	BookRoom(ctx context.Context, userID, roomID uint, day, remarks string) (*entities.RoomBooking, error)
	MyBookings(ctx context.Context, userID uint) ([]entities.RoomBooking, error)
	CancelBooking(ctx context.Context, actorID, bookingID uint) (*entities.RoomBooking, error)
	ListBookings(ctx context.Context, status entities.BookingStatus) ([]entities.RoomBooking, error)
	DecideBooking(ctx context.Context, actorID, bookingID uint, decision booking.Decision) (*entities.RoomBooking, error)
	BulkDecide(ctx context.Context, actorID uint, bookingIDs []uint, decision booking.Decision) []booking.BulkResult
}

// Resources serves and stores digital resources.
type Resources interface {
	List(ctx context.Context, filter resourcesRepo.Filter) ([]entities.DigitalResource, error)
	Get(ctx context.Context, resourceID uint) (*entities.DigitalResource, error)
	Downloads(ctx context.Context, resourceID uint) (int64, error)
	RecordDownload(ctx context.Context, userID, resourceID uint, clientIP, userAgent string) (*entities.DigitalResource, io.ReadCloser, error)
	Upload(ctx context.Context, actorID uint, input resources.UploadInput, file resources.File, cover *resources.File) (*entities.DigitalResource, error)
	ReplaceFile(ctx context.Context, actorID, resourceID uint, file resources.File) (*entities.DigitalResource, error)
}

// ProfileEditor updates account details.
type ProfileEditor interface {
	UpdateProfile(ctx context.Context, userID uint, update users.ProfileUpdate) (*entities.User, error)
}

// LendingSettings reads and overrides the loan period and fine rate.
type LendingSettings interface {
	LendingPolicyInfo() settingsstore.LendingPolicyInfo
	SetLendingPolicy(policy settingsstore.LendingPolicy) error
	ClearLendingPolicy() error
	MaintenanceStatus() settingsstore.MaintenanceStatus
}

// SettingsAuditor records settings changes.
type SettingsAuditor interface {
	LogSettings(userID uint, action, description string)
}

// AuditLog queries the audit trail.
type AuditLog interface {
	FindEvents(q auditRepo.Query) ([]entities.AuditEvent, int64, error)
}

// TaskQueue hands work to the background workers.
type TaskQueue interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}
