package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/forms"
	"github.com/mrlokans/campuslib/internal/reports"
)

type ReportsController struct {
	catalog Catalog
}

func NewReportsController(catalog Catalog) *ReportsController {
	return &ReportsController{catalog: catalog}
}

type borrowHistoryQuery struct {
	Search string `form:"search" validate:"max=150"`
	Sort   string `form:"sort" validate:"omitempty,oneof=username total_books overdue"`
}

// UserBorrowHistory handles GET /reports/user-borrow-history?search=&sort=
func (rc *ReportsController) UserBorrowHistory(c *gin.Context) {
	var q borrowHistoryQuery
	if errs := forms.Bind(c, &q); errs != nil {
		forms.Respond(c, errs)
		return
	}
	sort := reports.BorrowerSort(q.Sort)
	if sort == "" {
		sort = reports.SortByUsername
	}

	borrowers, err := rc.catalog.UserBorrowHistory(c.Request.Context(), q.Search, sort)
	if err != nil {
		respondInternalError(c, err, "user borrow history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"borrowers": borrowers,
		"count":     len(borrowers),
		"search":    q.Search,
		"sort":      sort,
	})
}
