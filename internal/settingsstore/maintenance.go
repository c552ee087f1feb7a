package settingsstore

import (
	"time"

	"github.com/mrlokans/campuslib/internal/entities"
)

// MaintenanceStatus represents the last scheduled maintenance run
type MaintenanceStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Status    string     `json:"status,omitempty"`  // "success", "failed", ""
	Message   string     `json:"message,omitempty"` // Error message or summary of enqueued tasks
}

func (s *SettingsStore) MaintenanceStatus() MaintenanceStatus {
	status := MaintenanceStatus{}

	if value, ok := s.lookup(entities.SettingKeyMaintenanceLastAt); ok {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			status.LastRunAt = &ts
		}
	}
	status.Status, _ = s.lookup(entities.SettingKeyMaintenanceLastStatus)
	status.Message, _ = s.lookup(entities.SettingKeyMaintenanceLastMessage)

	return status
}

func (s *SettingsStore) SetMaintenanceStatus(status, message string) error {
	return s.repo.SetSettings(map[string]string{
		entities.SettingKeyMaintenanceLastAt:      time.Now().UTC().Format(time.RFC3339),
		entities.SettingKeyMaintenanceLastStatus:  status,
		entities.SettingKeyMaintenanceLastMessage: message,
	})
}
