package models

import "time"

// Worker is a technician who can be assigned to job cards and complaints.
type Worker struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	WorkerName  string `gorm:"type:varchar(255);not null" json:"worker_name"`
	PhoneNumber string `gorm:"type:varchar(50);not null" json:"phone_number"`
	WorkerImage string `gorm:"type:varchar(512)" json:"worker_image"`
	StorageKey  string `gorm:"type:varchar(255)" json:"storage_key"`
	// Status true means available.
	Status    bool      `gorm:"not null;default:true" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
