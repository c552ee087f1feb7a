package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	lendingRepo "github.com/mrlokans/campuslib/internal/database/lending"
	"github.com/mrlokans/campuslib/internal/forms"
	"github.com/mrlokans/campuslib/internal/lending"
)

// LoansController handles the staff side of lending and the borrowed views.
type LoansController struct {
	catalog Catalog
	lending Lending
}

// NewLoansController creates a new LoansController.
func NewLoansController(catalog Catalog, lending Lending) *LoansController {
	return &LoansController{catalog: catalog, lending: lending}
}

type bulkForm struct {
	IDs []uint `form:"ids" json:"ids" validate:"required,min=1,max=200,dive,gt=0"`
}

// BulkItem reports one element of a bulk action.
type BulkItem struct {
	ID      uint   `json:"id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Loan    any    `json:"loan,omitempty"`
	Booking any    `json:"booking,omitempty"`
}

func newBulkItem(id uint, err error) BulkItem {
	item := BulkItem{ID: id, OK: err == nil}
	if err != nil {
		item.Error = err.Error()
	}
	return item
}

var loanStatuses = map[string]lendingRepo.LoanStatus{
	"":         lendingRepo.LoanStatusAll,
	"all":      lendingRepo.LoanStatusAll,
	"current":  lendingRepo.LoanStatusCurrent,
	"returned": lendingRepo.LoanStatusReturned,
}

var loanSorts = map[string]lendingRepo.LoanSort{
	"":               lendingRepo.SortAcceptedDesc,
	"-accepted_date": lendingRepo.SortAcceptedDesc,
	"accepted_date":  lendingRepo.SortAcceptedAsc,
	"return_date":    lendingRepo.SortReturnDate,
	"-fine":          lendingRepo.SortFineDesc,
}

func parseLoanStatus(c *gin.Context) (lendingRepo.LoanStatus, bool) {
	status, ok := loanStatuses[c.Query("status")]
	if !ok {
		forms.Respond(c, forms.FieldErrors{{Field: "status", Message: "Select a valid choice."}})
	}
	return status, ok
}

// PendingRequests handles GET /staff/requests
func (lc *LoansController) PendingRequests(c *gin.Context) {
	requests, err := lc.catalog.PendingRequests(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list pending requests")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"count":    len(requests),
	})
}

// AcceptRequest handles POST /staff/requests/:id/accept
func (lc *LoansController) AcceptRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.lending.AcceptRequest(c.Request.Context(), user.ID, id)
	if err != nil {
		respondLibraryError(c, err, "/staff/requests", "accept request")
		return
	}

	respondDone(c, "Request accepted.", loan, "/staff/requests")
}

// RejectRequest handles POST /staff/requests/:id/reject
func (lc *LoansController) RejectRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := lc.lending.RejectRequest(c.Request.Context(), user.ID, id); err != nil {
		respondLibraryError(c, err, "/staff/requests", "reject request")
		return
	}

	respondDone(c, "Request rejected.", nil, "/staff/requests")
}

// BulkAccept handles POST /staff/requests/accept
func (lc *LoansController) BulkAccept(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var form bulkForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	results := lc.lending.BulkAccept(c.Request.Context(), user.ID, form.IDs)
	respondBulk(c, "accepted", loanItems(results))
}

// AcceptedLoans handles GET /staff/loans?status=
func (lc *LoansController) AcceptedLoans(c *gin.Context) {
	status, ok := parseLoanStatus(c)
	if !ok {
		return
	}

	loans, err := lc.catalog.AcceptedLoans(c.Request.Context(), status)
	if err != nil {
		respondInternalError(c, err, "list loans")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": loans,
		"count": len(loans),
	})
}

// ReturnLoan handles POST /staff/loans/:id/return
func (lc *LoansController) ReturnLoan(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.lending.ReturnBook(c.Request.Context(), user.ID, id)
	if err != nil {
		respondLibraryError(c, err, "/staff/loans", "return loan")
		return
	}

	respondDone(c, "Book marked as returned.", loan, "/staff/loans")
}

// BulkReturn handles POST /staff/loans/return
func (lc *LoansController) BulkReturn(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var form bulkForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	results := lc.lending.BulkReturn(c.Request.Context(), user.ID, form.IDs)
	respondBulk(c, "returned", loanItems(results))
}

func loanItems(results []lending.BulkResult) []BulkItem {
	items := make([]BulkItem, 0, len(results))
	for _, r := range results {
		item := newBulkItem(r.ID, r.Err)
		if r.Err == nil {
			item.Loan = r.Loan
		}
		items = append(items, item)
	}
	return items
}

// respondBulk answers 200 when every item succeeded and 207 otherwise.
func respondBulk(c *gin.Context, verb string, items []BulkItem) {
	failed := 0
	for _, item := range items {
		if !item.OK {
			failed++
		}
	}

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"results":   items,
		verb:        len(items) - failed,
		"failed":    failed,
		"processed": len(items),
	})
}

// Borrowed handles GET /borrowed?status=&sort=
func (lc *LoansController) Borrowed(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	status, ok := parseLoanStatus(c)
	if !ok {
		return
	}
	sort, ok := loanSorts[c.Query("sort")]
	if !ok {
		forms.Respond(c, forms.FieldErrors{{Field: "sort", Message: "Select a valid choice."}})
		return
	}

	loans, err := lc.catalog.Borrowed(c.Request.Context(), user.ID, status, sort)
	if err != nil {
		respondInternalError(c, err, "list borrowed")
		return
	}

	var totalFine int64
	for _, l := range loans {
		if !l.Returned {
			totalFine += l.LiveFine
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"loans":      loans,
		"count":      len(loans),
		"total_fine": totalFine,
	})
}

// History handles GET /borrowed/history
func (lc *LoansController) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	loans, err := lc.catalog.History(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "borrow history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": loans,
		"count": len(loans),
	})
}
