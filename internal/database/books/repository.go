// Package books provides database operations for the physical catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(ctx, 123)
//
// Copy counters are only changed by the lending repository, inside the
// transactions that accept and return loans.
package books

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/entities"
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListBooks returns the catalog ordered by name, optionally filtered by a
// case-insensitive match on name or author.
func (r *Repository) ListBooks(ctx context.Context, search string) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.WithContext(ctx).Order("name ASC, id ASC")
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(author) LIKE ?", pattern, pattern)
	}
	err := query.Find(&books).Error
	return books, err
}

// CreateBook adds a catalog entry. A duplicate ExternalID yields gorm.ErrDuplicatedKey.
func (r *Repository) CreateBook(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// SetCover records the storage key of a book's cover image.
func (r *Repository) SetCover(ctx context.Context, id uint, coverKey string) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("cover_key", coverKey)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountBooks returns the number of catalog entries.
func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}
