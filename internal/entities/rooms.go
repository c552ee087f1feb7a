package entities

import (
	"time"
)

// DateLayout is the storage format of booking dates. Dates in this layout
// sort lexically in calendar order.
const DateLayout = "2006-01-02"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses hold a room for their date.
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusApproved}

func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

type StudyRoom struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;size:10;not null" json:"code"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Capacity    int       `gorm:"not null;check:chk_study_rooms_capacity,capacity > 0" json:"capacity"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (StudyRoom) TableName() string {
	return "study_rooms"
}

// RoomBooking reserves a study room for one calendar day. At most one booking
// per room and date may be pending or approved; the partial unique index below
// enforces that in the database.
type RoomBooking struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"not null;index" json:"user_id"`
	RoomID      uint          `gorm:"not null;uniqueIndex:idx_room_bookings_active,where:status <> 'cancelled' AND status <> 'rejected'" json:"room_id"`
	BookingDate string        `gorm:"size:10;not null;index;uniqueIndex:idx_room_bookings_active" json:"booking_date"`
	Status      BookingStatus `gorm:"size:20;default:'pending';not null;index" json:"status"`
	Remarks     string        `gorm:"type:text" json:"remarks"`
	RequestedAt time.Time     `gorm:"not null" json:"requested_at"`
	User        User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Room        StudyRoom     `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"room,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Date parses BookingDate in the local time zone.
func (b *RoomBooking) Date() (time.Time, error) {
	return time.ParseInLocation(DateLayout, b.BookingDate, time.Local)
}

func (RoomBooking) TableName() string {
	return "room_bookings"
}
