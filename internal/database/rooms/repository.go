// Package rooms provides database operations for study rooms and their bookings.
package rooms

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/entities"
)

// ErrSlotTaken is returned when a room already has an active booking for the date.
var ErrSlotTaken = errors.New("room already booked for date")

// Repository handles room and booking persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new rooms repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateRoom(ctx context.Context, room *entities.StudyRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *Repository) GetRoom(ctx context.Context, id uint) (*entities.StudyRoom, error) {
	var room entities.StudyRoom
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *Repository) ListRooms(ctx context.Context) ([]entities.StudyRoom, error) {
	var rooms []entities.StudyRoom
	err := r.db.WithContext(ctx).Order("code ASC").Find(&rooms).Error
	return rooms, err
}

// CreateBooking checks the slot and inserts the booking in one transaction.
// Returns ErrSlotTaken when the check finds an active booking. Two writers
// racing past the check are stopped by idx_room_bookings_active, which
// surfaces as gorm.ErrDuplicatedKey.
func (r *Repository) CreateBooking(ctx context.Context, booking *entities.RoomBooking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		err := tx.Model(&entities.RoomBooking{}).
			Where("room_id = ? AND booking_date = ? AND status IN ?", booking.RoomID, booking.BookingDate, entities.ActiveBookingStatuses).
			Count(&taken).Error
		if err != nil {
			return err
		}
		if taken > 0 {
			return ErrSlotTaken
		}
		return tx.Omit("User", "Room").Create(booking).Error
	})
}

// GetBooking loads a booking with its room and user.
func (r *Repository) GetBooking(ctx context.Context, id uint) (*entities.RoomBooking, error) {
	var booking entities.RoomBooking
	err := r.db.WithContext(ctx).Preload("Room").Preload("User").First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBookingsForUser returns a user's bookings, latest date first.
func (r *Repository) ListBookingsForUser(ctx context.Context, userID uint) ([]entities.RoomBooking, error) {
	var bookings []entities.RoomBooking
	err := r.db.WithContext(ctx).Preload("Room").
		Where("user_id = ?", userID).
		Order("booking_date DESC, id DESC").
		Find(&bookings).Error
	return bookings, err
}

// ListBookings returns all bookings, optionally only those in status.
func (r *Repository) ListBookings(ctx context.Context, status entities.BookingStatus) ([]entities.RoomBooking, error) {
	query := r.db.WithContext(ctx).Preload("Room").Preload("User")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var bookings []entities.RoomBooking
	err := query.Order("booking_date ASC, id ASC").Find(&bookings).Error
	return bookings, err
}

// ListActiveBookings returns pending and approved bookings of a room on or after fromDate.
func (r *Repository) ListActiveBookings(ctx context.Context, roomID uint, fromDate string) ([]entities.RoomBooking, error) {
	var bookings []entities.RoomBooking
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND booking_date >= ? AND status IN ?", roomID, fromDate, entities.ActiveBookingStatuses).
		Order("booking_date ASC").
		Find(&bookings).Error
	return bookings, err
}

// TransitionBooking moves a booking to status `to` only if its current status is
// one of from and, when minDate is set, its date is not before minDate.
// Returns false when no row matched.
func (r *Repository) TransitionBooking(ctx context.Context, id uint, from []entities.BookingStatus, to entities.BookingStatus, minDate string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entities.RoomBooking{}).
		Where("id = ? AND status IN ?", id, from)
	if minDate != "" {
		query = query.Where("booking_date >= ?", minDate)
	}
	result := query.Update("status", to)
	return result.RowsAffected > 0, result.Error
}

// ExpirePending rejects pending bookings dated before beforeDate.
// Returns the number of bookings changed.
func (r *Repository) ExpirePending(ctx context.Context, beforeDate string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entities.RoomBooking{}).
		Where("status = ? AND booking_date < ?", entities.BookingStatusPending, beforeDate).
		Updates(map[string]any{
			"status":  entities.BookingStatusRejected,
			"remarks": gorm.Expr("remarks || ?", " [expired]"),
		})
	return result.RowsAffected, result.Error
}
