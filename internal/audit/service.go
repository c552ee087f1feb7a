package audit

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/mrlokans/campuslib/internal/database/audit"
	"github.com/mrlokans/campuslib/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event passed to LogAsync has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogLending records a request or loan transition.
func (s *Service) LogLending(actorID uint, action, entityType string, entityID uint, description string, metadata map[string]any) {
	s.logChange(entities.AuditEventLending, actorID, action, entityType, entityID, description, metadata)
}

// LogBooking records a room booking transition.
func (s *Service) LogBooking(actorID uint, action string, bookingID uint, description string) {
	s.logChange(entities.AuditEventBooking, actorID, action, "room_booking", bookingID, description, nil)
}

// LogCatalog records a change to books or rooms.
func (s *Service) LogCatalog(actorID uint, action, entityType string, entityID uint, description string) {
	s.logChange(entities.AuditEventCatalog, actorID, action, entityType, entityID, description, nil)
}

// LogResource records an upload or file replacement of a digital resource.
func (s *Service) LogResource(actorID uint, action string, resourceID uint, description string) {
	s.logChange(entities.AuditEventResource, actorID, action, "digital_resource", resourceID, description, nil)
}

// LogSettings records a settings change event.
func (s *Service) LogSettings(userID uint, action, description string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventSettings,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogTask records the outcome of a background task.
func (s *Service) LogTask(action, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventTask,
		Action:      action,
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// FindEvents retrieves paginated audit events.
func (s *Service) FindEvents(q audit.Query) ([]entities.AuditEvent, int64, error) {
	return s.repo.FindEvents(q)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func (s *Service) logChange(eventType entities.AuditEventType, actorID uint, action, entityType string, entityID uint, description string, metadata map[string]any) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   eventType,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  entityType,
		Status:      entities.AuditStatusSuccess,
	}
	if entityID != 0 {
		event.EntityID = &entityID
	}
	if len(metadata) > 0 {
		if mdBytes, err := json.Marshal(metadata); err == nil {
			event.Metadata = datatypes.JSON(mdBytes)
		}
	}

	s.LogAsync(event)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
