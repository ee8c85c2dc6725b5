package models

import (
	"strings"
	"time"
)

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypePDF   FileType = "pdf"
)

// FileTypeFor classifies an upload by its content type.
func FileTypeFor(contentType string) FileType {
	if strings.HasPrefix(contentType, "image/") {
		return FileTypeImage
	}
	return FileTypePDF
}

// JobCardImage is a stored attachment (photo or PDF) of exactly one job card.
type JobCardImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobCardID  uint      `gorm:"not null;index" json:"job_card_id"`
	URL        string    `gorm:"type:varchar(512);not null" json:"url"`
	StorageKey string    `gorm:"type:varchar(255);not null" json:"storage_key"`
	FileType   FileType  `gorm:"type:varchar(10);not null" json:"file_type"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
