// Package booking handles study room reservations. A room holds at most one
// pending or approved booking per calendar day.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	roomsRepo "github.com/mrlokans/campuslib/internal/database/rooms"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/libraryerr"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

var (
	ErrUnknownDecision = fmt.Errorf("%w: decision must be approve or reject", libraryerr.ErrInvalidState)
	ErrInvalidDate     = fmt.Errorf("%w: booking date must be YYYY-MM-DD", libraryerr.ErrInvalidState)
	ErrInvalidRoom     = fmt.Errorf("%w: room needs a code, a name and a positive capacity", libraryerr.ErrInvalidState)
	ErrRoomCodeTaken   = fmt.Errorf("%w: room code already exists", libraryerr.ErrConflict)
)

type Store interface {
	CreateRoom(ctx context.Context, room *entities.StudyRoom) error
	GetRoom(ctx context.Context, id uint) (*entities.StudyRoom, error)
	ListRooms(ctx context.Context) ([]entities.StudyRoom, error)
	CreateBooking(ctx context.Context, booking *entities.RoomBooking) error
	GetBooking(ctx context.Context, id uint) (*entities.RoomBooking, error)
	ListBookingsForUser(ctx context.Context, userID uint) ([]entities.RoomBooking, error)
	ListBookings(ctx context.Context, status entities.BookingStatus) ([]entities.RoomBooking, error)
	ListActiveBookings(ctx context.Context, roomID uint, fromDate string) ([]entities.RoomBooking, error)
	TransitionBooking(ctx context.Context, id uint, from []entities.BookingStatus, to entities.BookingStatus, minDate string) (bool, error)
	ExpirePending(ctx context.Context, beforeDate string) (int64, error)
}

type Auditor interface {
	LogBooking(actorID uint, action string, bookingID uint, description string)
	LogCatalog(actorID uint, action, entityType string, entityID uint, description string)
}

type Service struct {
	store   Store
	auditor Auditor
	now     func() time.Time
	loc     *time.Location
}

func NewService(store Store, auditor Auditor) *Service {
	return &Service{
		store:   store,
		auditor: auditor,
		now:     time.Now,
		loc:     time.Local,
	}
}

// WithClock replaces the time source and the zone that defines a calendar day.
func (s *Service) WithClock(now func() time.Time, loc *time.Location) *Service {
	s.now = now
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Today is the current calendar day in DateLayout.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(entities.DateLayout)
}

// BookRoom creates a pending booking of roomID on day for userID.
func (s *Service) BookRoom(ctx context.Context, userID, roomID uint, day, remarks string) (*entities.RoomBooking, error) {
	if _, err := time.ParseInLocation(entities.DateLayout, day, s.loc); err != nil {
		return nil, ErrInvalidDate
	}
	if day < s.Today() {
		return nil, libraryerr.ErrInThePast
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, notFound(err, "study room", roomID)
	}

	booking, err := s.insert(ctx, userID, roomID, day, remarks)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with another writer; check the slot once more
		booking, err = s.insert(ctx, userID, roomID, day, remarks)
	}
	switch {
	case errors.Is(err, roomsRepo.ErrSlotTaken), errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, libraryerr.ErrRoomTaken
	case err != nil:
		return nil, fmt.Errorf("create booking: %w", err)
	}
	booking.Room = *room

	s.logBooking(userID, "booking_create", booking.ID, fmt.Sprintf("Requested %s on %s", room.Code, day))
	return booking, nil
}

func (s *Service) insert(ctx context.Context, userID, roomID uint, day, remarks string) (*entities.RoomBooking, error) {
	booking := &entities.RoomBooking{
		UserID:      userID,
		RoomID:      roomID,
		BookingDate: day,
		Status:      entities.BookingStatusPending,
		Remarks:     strings.TrimSpace(remarks),
		RequestedAt: s.now(),
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// DecideBooking approves or rejects a pending booking.
func (s *Service) DecideBooking(ctx context.Context, actorID, bookingID uint, decision Decision) (*entities.RoomBooking, error) {
	var to entities.BookingStatus
	switch decision {
	case DecisionApprove:
		to = entities.BookingStatusApproved
	case DecisionReject:
		to = entities.BookingStatusRejected
	default:
		return nil, ErrUnknownDecision
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, notFound(err, "room booking", bookingID)
	}

	moved, err := s.store.TransitionBooking(ctx, bookingID, []entities.BookingStatus{entities.BookingStatusPending}, to, "")
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("%w: booking is %s", libraryerr.ErrInvalidState, booking.Status)
	}
	booking.Status = to

	s.logBooking(actorID, "booking_"+string(decision), bookingID,
		fmt.Sprintf("%s booking of %s on %s by %s", decisionVerb(decision), booking.Room.Code, booking.BookingDate, booking.User.Username))
	return booking, nil
}

// CancelBooking lets the owner cancel a pending or approved booking that is
// not in the past.
func (s *Service) CancelBooking(ctx context.Context, actorID, bookingID uint) (*entities.RoomBooking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, notFound(err, "room booking", bookingID)
	}
	if booking.UserID != actorID {
		return nil, fmt.Errorf("%w: not your booking", libraryerr.ErrForbidden)
	}

	today := s.Today()
	if !booking.Status.IsActive() || booking.BookingDate < today {
		return nil, libraryerr.ErrImmutable
	}

	moved, err := s.store.TransitionBooking(ctx, bookingID, entities.ActiveBookingStatuses, entities.BookingStatusCancelled, today)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, libraryerr.ErrImmutable
	}
	booking.Status = entities.BookingStatusCancelled

	s.logBooking(actorID, "booking_cancel", bookingID, fmt.Sprintf("Cancelled %s on %s", booking.Room.Code, booking.BookingDate))
	return booking, nil
}

// CreateRoom adds a study room.
func (s *Service) CreateRoom(ctx context.Context, actorID uint, room *entities.StudyRoom) error {
	room.Code = strings.TrimSpace(room.Code)
	room.Name = strings.TrimSpace(room.Name)
	if room.Code == "" || room.Name == "" || room.Capacity <= 0 {
		return ErrInvalidRoom
	}

	if err := s.store.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomCodeTaken
		}
		return fmt.Errorf("create room: %w", err)
	}

	if s.auditor != nil {
		s.auditor.LogCatalog(actorID, "room_create", "study_room", room.ID, "Added room "+room.Code)
	}
	return nil
}

// Availability returns a room with its pending and approved bookings from today on.
func (s *Service) Availability(ctx context.Context, roomID uint) (*entities.StudyRoom, []entities.RoomBooking, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, notFound(err, "study room", roomID)
	}
	bookings, err := s.store.ListActiveBookings(ctx, roomID, s.Today())
	if err != nil {
		return nil, nil, err
	}
	return room, bookings, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]entities.StudyRoom, error) {
	return s.store.ListRooms(ctx)
}

// MyBookings returns a user's bookings, latest date first.
func (s *Service) MyBookings(ctx context.Context, userID uint) ([]entities.RoomBooking, error) {
	return s.store.ListBookingsForUser(ctx, userID)
}

// ListBookings returns every booking, optionally only those in status.
func (s *Service) ListBookings(ctx context.Context, status entities.BookingStatus) ([]entities.RoomBooking, error) {
	return s.store.ListBookings(ctx, status)
}

// ExpireStale rejects pending bookings whose date has passed without a decision.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	return s.store.ExpirePending(ctx, s.Today())
}

func (s *Service) logBooking(actorID uint, action string, bookingID uint, description string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogBooking(actorID, action, bookingID, description)
}

func decisionVerb(d Decision) string {
	if d == DecisionApprove {
		return "Approved"
	}
	return "Rejected"
}

func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return libraryerr.NotFound(entity, id)
	}
	return err
}
