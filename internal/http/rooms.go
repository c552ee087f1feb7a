package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/booking"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/forms"
)

// RoomsController serves study rooms and their bookings.
type RoomsController struct {
	bookings Bookings
}

// NewRoomsController creates a new RoomsController.
func NewRoomsController(bookings Bookings) *RoomsController {
	return &RoomsController{bookings: bookings}
}

type roomForm struct {
	Code        string `form:"code" json:"code" validate:"required,max=10"`
	Name        string `form:"name" json:"name" validate:"required,max=100"`
	Capacity    int    `form:"capacity" json:"capacity" validate:"gt=0,lte=1000"`
	Description string `form:"description" json:"description" validate:"max=2000"`
}

type bookRoomForm struct {
	BookingDate string `form:"booking_date" json:"booking_date" validate:"required,datetime=2006-01-02"`
	Remarks     string `form:"remarks" json:"remarks" validate:"max=500"`
}

type bookingListQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=pending approved rejected cancelled"`
}

// ListRooms handles GET /rooms
func (rc *RoomsController) ListRooms(c *gin.Context) {
	rooms, err := rc.bookings.ListRooms(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list rooms")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// CreateRoom handles POST /rooms
func (rc *RoomsController) CreateRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var form roomForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	room := &entities.StudyRoom{
		Code:        form.Code,
		Name:        form.Name,
		Capacity:    form.Capacity,
		Description: form.Description,
	}
	if err := rc.bookings.CreateRoom(c.Request.Context(), user.ID, room); err != nil {
		respondLibraryError(c, err, "/rooms", "create room")
		return
	}

	respondCreated(c, gin.H{"room": room, "redirect": "/rooms"})
}

// Availability handles GET /rooms/:id/availability
func (rc *RoomsController) Availability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	room, bookings, err := rc.bookings.Availability(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, err, "/rooms", "room availability")
		return
	}

	taken := make([]string, 0, len(bookings))
	for _, b := range bookings {
		taken = append(taken, b.BookingDate)
	}

	c.JSON(http.StatusOK, gin.H{
		"room":        room,
		"bookings":    bookings,
		"taken_dates": taken,
	})
}

// BookRoom handles POST /rooms/:id/book
func (rc *RoomsController) BookRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var form bookRoomForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	b, err := rc.bookings.BookRoom(c.Request.Context(), user.ID, id, form.BookingDate, form.Remarks)
	if err != nil {
		respondLibraryError(c, err, "/rooms", "book room")
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message:  "Room booking requested.",
		Data:     b,
		Redirect: "/bookings",
	})
}

// MyBookings handles GET /bookings
func (rc *RoomsController) MyBookings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	bookings, err := rc.bookings.MyBookings(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list my bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// CancelBooking handles POST /bookings/:id/cancel
func (rc *RoomsController) CancelBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	b, err := rc.bookings.CancelBooking(c.Request.Context(), user.ID, id)
	if err != nil {
		respondLibraryError(c, err, "/bookings", "cancel booking")
		return
	}

	respondDone(c, "Booking cancelled.", b, "/bookings")
}

// ListBookings handles GET /staff/bookings?status=
func (rc *RoomsController) ListBookings(c *gin.Context) {
	var q bookingListQuery
	if errs := forms.Bind(c, &q); errs != nil {
		forms.Respond(c, errs)
		return
	}

	bookings, err := rc.bookings.ListBookings(c.Request.Context(), entities.BookingStatus(q.Status))
	if err != nil {
		respondInternalError(c, err, "list bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// ApproveBooking handles POST /staff/bookings/:id/approve
func (rc *RoomsController) ApproveBooking(c *gin.Context) {
	rc.decide(c, booking.DecisionApprove, "Booking approved.")
}

// RejectBooking handles POST /staff/bookings/:id/reject
func (rc *RoomsController) RejectBooking(c *gin.Context) {
	rc.decide(c, booking.DecisionReject, "Booking rejected.")
}

// BulkApprove handles POST /staff/bookings/approve
func (rc *RoomsController) BulkApprove(c *gin.Context) {
	rc.bulkDecide(c, booking.DecisionApprove, "approved")
}

// BulkReject handles POST /staff/bookings/reject
func (rc *RoomsController) BulkReject(c *gin.Context) {
	rc.bulkDecide(c, booking.DecisionReject, "rejected")
}

func (rc *RoomsController) bulkDecide(c *gin.Context, decision booking.Decision, verb string) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var form bulkForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	results := rc.bookings.BulkDecide(c.Request.Context(), user.ID, form.IDs, decision)
	items := make([]BulkItem, 0, len(results))
	for _, r := range results {
		item := newBulkItem(r.ID, r.Err)
		if r.Err == nil {
			item.Booking = r.Booking
		}
		items = append(items, item)
	}
	respondBulk(c, verb, items)
}

func (rc *RoomsController) decide(c *gin.Context, decision booking.Decision, message string) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	b, err := rc.bookings.DecideBooking(c.Request.Context(), user.ID, id, decision)
	if err != nil {
		respondLibraryError(c, err, "/staff/bookings", "decide booking")
		return
	}

	respondDone(c, message, b, "/staff/bookings")
}
