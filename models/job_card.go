package models

import (
	"time"

	"gorm.io/datatypes"
)

type JobCardStatus string

const (
	JobCardPending   JobCardStatus = "Pending"
	JobCardCompleted JobCardStatus = "Completed"
	JobCardReturned  JobCardStatus = "Returned"
	JobCardBilled    JobCardStatus = "Billed"
)

// JobCardStatuses lists every status in reporting order.
var JobCardStatuses = []JobCardStatus{JobCardPending, JobCardCompleted, JobCardReturned, JobCardBilled}

func (s JobCardStatus) Valid() bool {
	for _, status := range JobCardStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// JobCard is a repair ticket for equipment brought into the workshop.
type JobCard struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	JobCardNumber string        `gorm:"type:varchar(20);uniqueIndex;not null" json:"job_card_number"`
	Status        JobCardStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`

	CustomerName    string                      `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerAddress string                      `gorm:"type:text;not null" json:"customer_address"`
	PhoneNumbers    datatypes.JSONSlice[string] `gorm:"type:text" json:"phone_numbers"`

	Make            string `gorm:"type:varchar(255)" json:"make"`
	HP              *int   `gorm:"column:hp" json:"hp"`
	KVA             *int   `gorm:"column:kva" json:"kva"`
	RPM             *int   `gorm:"column:rpm" json:"rpm"`
	Type            string `gorm:"type:varchar(255)" json:"type"`
	Frame           string `gorm:"type:varchar(255)" json:"frame"`
	SrNo            string `gorm:"type:varchar(255);not null" json:"sr_no"`
	DealerName      string `gorm:"type:varchar(255)" json:"dealer_name"`
	DealerNumber    string `gorm:"type:varchar(50)" json:"dealer_number"`
	Works           string `gorm:"type:text" json:"works"`
	Spares          string `gorm:"type:text" json:"spares"`
	IndustrialWorks string `gorm:"type:text" json:"industrial_works"`
	Others          string `gorm:"type:text" json:"others"`
	Warranty        bool   `gorm:"not null;default:false" json:"warranty"`

	// AttachmentIDs keeps the ordered list of JobCardImage ids owned by this card.
	AttachmentIDs datatypes.JSONSlice[uint] `gorm:"type:text" json:"attachment_ids"`
	Images        []JobCardImage            `gorm:"-" json:"images"`

	WorkerID *uint   `gorm:"index" json:"worker_id"`
	Worker   *Worker `gorm:"foreignKey:WorkerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"worker,omitempty"`

	InvoiceNumber *string    `gorm:"type:varchar(100)" json:"invoice_number"`
	InvoiceDate   *time.Time `json:"invoice_date"`
	OutDate       *time.Time `json:"out_date"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// HasAttachment reports whether imageID is on the attachment list.
func (jc *JobCard) HasAttachment(imageID uint) bool {
	for _, id := range jc.AttachmentIDs {
		if id == imageID {
			return true
		}
	}
	return false
}
