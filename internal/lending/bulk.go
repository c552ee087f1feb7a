package lending

import (
	"context"

	"github.com/mrlokans/campuslib/internal/entities"
)

// BulkResult is the outcome of one item of a bulk staff action.
type BulkResult struct {
	ID   uint           `json:"id"`
	Loan *entities.Loan `json:"loan,omitempty"`
	Err  error          `json:"-"`
}

// Failed counts results that carry an error.
func Failed(results []BulkResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// BulkAccept accepts each request independently; one failure does not stop the rest.
func (s *Service) BulkAccept(ctx context.Context, actorID uint, requestIDs []uint) []BulkResult {
	results := make([]BulkResult, 0, len(requestIDs))
	for _, id := range requestIDs {
		loan, err := s.AcceptRequest(ctx, actorID, id)
		results = append(results, BulkResult{ID: id, Loan: loan, Err: err})
	}
	return results
}

// BulkReturn returns each loan independently.
func (s *Service) BulkReturn(ctx context.Context, actorID uint, loanIDs []uint) []BulkResult {
	results := make([]BulkResult, 0, len(loanIDs))
	for _, id := range loanIDs {
		loan, err := s.ReturnBook(ctx, actorID, id)
		results = append(results, BulkResult{ID: id, Loan: loan, Err: err})
	}
	return results
}
