package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditRepo "github.com/mrlokans/campuslib/internal/database/audit"
	"github.com/mrlokans/campuslib/internal/entities"
)

type AuditController struct {
	log AuditLog
}

func NewAuditController(log AuditLog) *AuditController {
	return &AuditController{log: log}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /staff/audit?page=&limit=&type=&user_id=&entity_type=&entity_id=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	q := auditRepo.Query{
		EventType:  entities.AuditEventType(c.Query("type")),
		EntityType: c.Query("entity_type"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		q.UserID = uint(id)
	}
	if v := c.Query("entity_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid entity_id")
			return
		}
		q.EntityID = uint(id)
	}

	events, total, err := ac.log.FindEvents(q)
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
		"event_types":  eventTypes(),
	})
}

func eventTypes() []EventTypeOption {
	return []EventTypeOption{
		{Value: "", Label: "All Events"},
		{Value: string(entities.AuditEventAuth), Label: "Authentication"},
		{Value: string(entities.AuditEventLending), Label: "Lending"},
		{Value: string(entities.AuditEventBooking), Label: "Room bookings"},
		{Value: string(entities.AuditEventCatalog), Label: "Catalog"},
		{Value: string(entities.AuditEventResource), Label: "Digital resources"},
		{Value: string(entities.AuditEventSettings), Label: "Settings"},
		{Value: string(entities.AuditEventTask), Label: "Background tasks"},
	}
}

type EventTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
