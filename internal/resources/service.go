// Package resources serves digital library files and keeps a log of every
// download.
package resources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	resourcesRepo "github.com/mrlokans/campuslib/internal/database/resources"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/libraryerr"
	"github.com/mrlokans/campuslib/internal/storage"
	"github.com/mrlokans/campuslib/internal/utils"
)

const (
	filesFolder  = "resources"
	coversFolder = "covers/resources"
)

var (
	ErrInvalidResource = fmt.Errorf("%w: resource needs a name, a known type and a file", libraryerr.ErrInvalidState)
	ErrInvalidType     = fmt.Errorf("%w: unknown resource type", libraryerr.ErrInvalidState)
)

type Store interface {
	CreateResource(ctx context.Context, res *entities.DigitalResource) error
	GetResource(ctx context.Context, id uint) (*entities.DigitalResource, error)
	ReplaceFile(ctx context.Context, id uint, fileKey, fileName string) error
	ListResources(ctx context.Context, filter resourcesRepo.Filter) ([]entities.DigitalResource, error)
	RecordEngagement(ctx context.Context, rec *entities.EngagementRecord) error
	CountEngagements(ctx context.Context, resourceID uint) (int64, error)
}

type CoverSaver interface {
	Save(ctx context.Context, folder, originalName string, src io.Reader) (string, error)
}

type Auditor interface {
	LogResource(actorID uint, action string, resourceID uint, description string)
}

// File is an uploaded file with its original name.
type File struct {
	Name    string
	Content io.Reader
}

type UploadInput struct {
	Name        string
	Author      string
	Type        entities.ResourceType
	Description string
}

type Service struct {
	store   Store
	files   storage.Store
	covers  CoverSaver
	auditor Auditor
	now     func() time.Time
}

func NewService(store Store, files storage.Store, covers CoverSaver, auditor Auditor) *Service {
	return &Service{
		store:   store,
		files:   files,
		covers:  covers,
		auditor: auditor,
		now:     time.Now,
	}
}

// RecordDownload opens the file of a resource for userID and appends an
// engagement record. The caller must close the returned reader. Failing to
// write the record is logged and does not fail the download.
func (s *Service) RecordDownload(ctx context.Context, userID, resourceID uint, clientIP, userAgent string) (*entities.DigitalResource, io.ReadCloser, error) {
	res, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, nil, notFound(err, "digital resource", resourceID)
	}

	content, err := s.files.Open(ctx, res.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: file of digital resource %d", libraryerr.ErrNotFound, resourceID)
		}
		return nil, nil, fmt.Errorf("open resource file: %w", err)
	}

	rec := &entities.EngagementRecord{
		UserID:       userID,
		ResourceID:   res.ID,
		DownloadedAt: s.now(),
		IPAddress:    clientIP,
		UserAgent:    truncate(userAgent, 500),
	}
	if err := s.store.RecordEngagement(ctx, rec); err != nil {
		log.Printf("Failed to record download of resource %d by user %d: %v", res.ID, userID, err)
	}

	return res, content, nil
}

// Upload stores a new resource file, an optional cover and the metadata row.
func (s *Service) Upload(ctx context.Context, actorID uint, input UploadInput, file File, cover *File) (*entities.DigitalResource, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || !input.Type.Valid() || file.Content == nil {
		return nil, ErrInvalidResource
	}

	file.Name = utils.SanitizeFilename(file.Name)
	fileKey, err := storage.SaveNew(ctx, s.files, filesFolder, file.Name, file.Content)
	if err != nil {
		return nil, fmt.Errorf("store resource file: %w", err)
	}

	var coverKey string
	if cover != nil && cover.Content != nil && s.covers != nil {
		coverKey, err = s.covers.Save(ctx, coversFolder, cover.Name, cover.Content)
		if err != nil {
			s.discard(ctx, fileKey)
			return nil, err
		}
	}

	res := &entities.DigitalResource{
		Name:        input.Name,
		Author:      strings.TrimSpace(input.Author),
		Type:        input.Type,
		Description: input.Description,
		FileKey:     fileKey,
		FileName:    file.Name,
		CoverKey:    coverKey,
		UploadedAt:  s.now(),
	}
	if err := s.store.CreateResource(ctx, res); err != nil {
		s.discard(ctx, fileKey)
		if coverKey != "" {
			s.discard(ctx, coverKey)
		}
		return nil, fmt.Errorf("create resource: %w", err)
	}

	s.logResource(actorID, "resource_upload", res.ID, "Uploaded "+res.Name)
	return res, nil
}

// ReplaceFile swaps the file behind a resource. Metadata stays as uploaded.
func (s *Service) ReplaceFile(ctx context.Context, actorID, resourceID uint, file File) (*entities.DigitalResource, error) {
	if file.Content == nil {
		return nil, ErrInvalidResource
	}

	res, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, notFound(err, "digital resource", resourceID)
	}

	file.Name = utils.SanitizeFilename(file.Name)
	newKey, err := storage.SaveNew(ctx, s.files, filesFolder, file.Name, file.Content)
	if err != nil {
		return nil, fmt.Errorf("store resource file: %w", err)
	}
	if err := s.store.ReplaceFile(ctx, res.ID, newKey, file.Name); err != nil {
		s.discard(ctx, newKey)
		return nil, notFound(err, "digital resource", resourceID)
	}
	s.discard(ctx, res.FileKey)

	res.FileKey = newKey
	res.FileName = file.Name

	s.logResource(actorID, "resource_replace_file", res.ID, "Replaced file of "+res.Name)
	return res, nil
}

// List returns resources matching filter. An unknown sort falls back to newest first.
func (s *Service) List(ctx context.Context, filter resourcesRepo.Filter) ([]entities.DigitalResource, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, ErrInvalidType
	}
	if !resourcesRepo.ValidSort(filter.Sort) {
		filter.Sort = resourcesRepo.SortUploadDesc
	}
	return s.store.ListResources(ctx, filter)
}

func (s *Service) Get(ctx context.Context, resourceID uint) (*entities.DigitalResource, error) {
	res, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, notFound(err, "digital resource", resourceID)
	}
	return res, nil
}

// Downloads counts the engagement records of a resource.
func (s *Service) Downloads(ctx context.Context, resourceID uint) (int64, error) {
	return s.store.CountEngagements(ctx, resourceID)
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		log.Printf("Failed to delete stored file %s: %v", key, err)
	}
}

func (s *Service) logResource(actorID uint, action string, resourceID uint, description string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogResource(actorID, action, resourceID, description)
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}

func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return libraryerr.NotFound(entity, id)
	}
	return err
}
