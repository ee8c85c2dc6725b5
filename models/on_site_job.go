package models

import (
	"time"

	"gorm.io/datatypes"
)

type WarrantyStatus string

const (
	Warranty    WarrantyStatus = "Warranty"
	NonWarranty WarrantyStatus = "Non-Warranty"
)

func (s WarrantyStatus) Valid() bool {
	return s == Warranty || s == NonWarranty
}

type ComplaintStatus string

const (
	ComplaintPending        ComplaintStatus = "Pending"
	ComplaintClosed         ComplaintStatus = "Closed"
	ComplaintSentToWorkshop ComplaintStatus = "Sent to Workshop"
)

func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintPending, ComplaintClosed, ComplaintSentToWorkshop:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}

// OnSiteJob is a field-service complaint logged against a customer site visit.
type OnSiteJob struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	CustomerName    string                      `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerAddress string                      `gorm:"type:text;not null" json:"customer_address"`
	ComplaintNumber *string                     `gorm:"type:varchar(100);uniqueIndex" json:"complaint_number"`
	PhoneNumbers    datatypes.JSONSlice[string] `gorm:"type:text" json:"phone_numbers"`
	Make            string                      `gorm:"type:varchar(255)" json:"make"`
	DealerName      string                      `gorm:"type:varchar(255)" json:"dealer_name"`

	WarrantyStatus    WarrantyStatus `gorm:"type:varchar(20);not null;default:'Non-Warranty'" json:"warranty_status"`
	ReportedComplaint string         `gorm:"type:text" json:"reported_complaint"`
	ComplaintDetails  string         `gorm:"type:text" json:"complaint_details"`

	AttendedDate     *time.Time `json:"attended_date"`
	AttendedPersonID *uint      `gorm:"index" json:"attended_person_id"`
	AttendedPerson   *Worker    `gorm:"foreignKey:AttendedPersonID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"attended_person,omitempty"`

	ComplaintStatus ComplaintStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"complaint_status"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;default:'Pending';index" json:"payment_status"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
