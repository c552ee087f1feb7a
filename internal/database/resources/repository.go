// Package resources provides database operations for digital resources and
// their download log. Engagement records are append-only: the repository
// exposes no update or delete for them.
package resources

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/entities"
)

type Sort string

const (
	SortUploadDesc Sort = "-upload_date"
	SortUploadAsc  Sort = "upload_date"
	SortNameAsc    Sort = "name"
	SortNameDesc   Sort = "-name"
	SortAuthorAsc  Sort = "author"
	SortAuthorDesc Sort = "-author"
)

var sortColumns = map[Sort]string{
	SortUploadDesc: "uploaded_at DESC",
	SortUploadAsc:  "uploaded_at ASC",
	SortNameAsc:    "name ASC",
	SortNameDesc:   "name DESC",
	SortAuthorAsc:  "author ASC",
	SortAuthorDesc: "author DESC",
}

// ValidSort reports whether s is a known ordering.
func ValidSort(s Sort) bool {
	_, ok := sortColumns[s]
	return ok
}

// Filter narrows ListResources. Zero values mean every type, no search, newest first.
type Filter struct {
	Type   entities.ResourceType
	Search string
	Sort   Sort
}

// Repository handles digital resource persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new resources repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateResource(ctx context.Context, res *entities.DigitalResource) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *Repository) GetResource(ctx context.Context, id uint) (*entities.DigitalResource, error) {
	var res entities.DigitalResource
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// ReplaceFile points a resource at a new stored file.
func (r *Repository) ReplaceFile(ctx context.Context, id uint, fileKey, fileName string) error {
	result := r.db.WithContext(ctx).Model(&entities.DigitalResource{}).Where("id = ?", id).
		Updates(map[string]any{"file_key": fileKey, "file_name": fileName})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListResources returns resources matching the filter.
func (r *Repository) ListResources(ctx context.Context, filter Filter) ([]entities.DigitalResource, error) {
	query := r.db.WithContext(ctx)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(author) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern, pattern)
	}

	order, ok := sortColumns[filter.Sort]
	if !ok {
		order = sortColumns[SortUploadDesc]
	}

	var list []entities.DigitalResource
	err := query.Order(order).Order("id DESC").Find(&list).Error
	return list, err
}

// RecordEngagement appends one download record.
func (r *Repository) RecordEngagement(ctx context.Context, rec *entities.EngagementRecord) error {
	return r.db.WithContext(ctx).Omit("User", "Resource").Create(rec).Error
}

// ListEngagements returns a resource's download log, newest first.
func (r *Repository) ListEngagements(ctx context.Context, resourceID uint) ([]entities.EngagementRecord, error) {
	var recs []entities.EngagementRecord
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("downloaded_at DESC, id DESC").
		Find(&recs).Error
	return recs, err
}

// CountEngagements returns how many times a resource was downloaded.
func (r *Repository) CountEngagements(ctx context.Context, resourceID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.EngagementRecord{}).Where("resource_id = ?", resourceID).Count(&count).Error
	return count, err
}
