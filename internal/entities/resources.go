package entities

import (
	"time"
)

type ResourceType string

const (
	ResourceTypeMagazine ResourceType = "MAGAZINE"
	ResourceTypeJournal  ResourceType = "JOURNAL"
	ResourceTypeBook     ResourceType = "BOOK"
	ResourceTypeResearch ResourceType = "RESEARCH"
)

var ResourceTypes = []ResourceType{
	ResourceTypeMagazine,
	ResourceTypeJournal,
	ResourceTypeBook,
	ResourceTypeResearch,
}

func (t ResourceType) Valid() bool {
	for _, known := range ResourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DigitalResource describes an uploaded file. Only FileKey may change after upload.
type DigitalResource struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"index;size:200;not null" json:"name"`
	Author      string       `gorm:"index;size:200" json:"author"`
	Type        ResourceType `gorm:"size:20;not null;index" json:"resource_type"`
	Description string       `gorm:"type:text" json:"description"`
	FileKey     string       `gorm:"size:255;not null" json:"-"`
	FileName    string       `gorm:"size:255" json:"file_name"`
	CoverKey    string       `gorm:"size:255" json:"cover_key,omitempty"`
	UploadedAt  time.Time    `gorm:"not null;index" json:"upload_date"`
}

func (DigitalResource) TableName() string {
	return "digital_resources"
}

// EngagementRecord is one download of a digital resource. Append-only.
type EngagementRecord struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	ResourceID   uint            `gorm:"not null;index" json:"resource_id"`
	DownloadedAt time.Time       `gorm:"not null;index" json:"download_date"`
	IPAddress    string          `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent    string          `gorm:"size:500" json:"user_agent,omitempty"`
	User         User            `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	Resource     DigitalResource `gorm:"foreignKey:ResourceID;constraint:OnDelete:RESTRICT" json:"resource,omitempty"`
}

func (EngagementRecord) TableName() string {
	return "digital_engagement_records"
}
