package models

// Counter is a named monotonically increasing sequence.
type Counter struct {
	Name  string `gorm:"primaryKey;type:varchar(50)" json:"name"`
	Value int64  `gorm:"not null;default:0" json:"value"`
}
