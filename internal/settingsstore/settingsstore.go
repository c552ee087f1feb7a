package settingsstore

import (
	"os"

	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/entities"
)

const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// Repository is the subset of the settings repository the store reads and writes.
type Repository interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSettings(values map[string]string) error
	DeleteSetting(key string) error
}

// Priority: database > environment > default
type SettingsStore struct {
	repo     Repository
	fallback config.Lending // already merged from environment and defaults by viper
}

func New(repo Repository, fallback config.Lending) *SettingsStore {
	return &SettingsStore{repo: repo, fallback: fallback}
}

// lookup returns the stored value for key, if any.
func (s *SettingsStore) lookup(key string) (string, bool) {
	setting, err := s.repo.GetSetting(key)
	if err != nil || setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

func (s *SettingsStore) source(key, envName string) string {
	if _, ok := s.lookup(key); ok {
		return SourceDatabase
	}
	if envVal := os.Getenv(envName); envVal != "" {
		return SourceEnvironment
	}
	return SourceDefault
}
