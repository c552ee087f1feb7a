package booking

import (
	"context"

	"github.com/mrlokans/campuslib/internal/entities"
)

// BulkResult is the outcome of deciding one booking of a bulk action.
type BulkResult struct {
	ID      uint
	Booking *entities.RoomBooking
	Err     error
}

// BulkDecide applies decision to each booking independently; one failure does
// not stop the rest. An unknown decision fails every item.
func (s *Service) BulkDecide(ctx context.Context, actorID uint, bookingIDs []uint, decision Decision) []BulkResult {
	results := make([]BulkResult, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		b, err := s.DecideBooking(ctx, actorID, id, decision)
		results = append(results, BulkResult{ID: id, Booking: b, Err: err})
	}
	return results
}
