package entities

import (
	"time"
)

type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"index;size:200;not null" json:"name"`
	Author          string    `gorm:"index;size:200" json:"author"`
	ExternalID      string    `gorm:"uniqueIndex;size:64;not null" json:"external_id"` // library accession number
	Description     string    `gorm:"type:text" json:"description"`
	CoverKey        string    `gorm:"size:255" json:"cover_key,omitempty"`
	AvailableCopies int       `gorm:"not null;default:0;check:chk_books_available_copies,available_copies >= 0" json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

func (Book) TableName() string {
	return "books"
}
