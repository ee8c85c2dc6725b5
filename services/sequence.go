package services

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/workshop-app/models"
)

// JobCardCounter is the counter that numbers job cards.
const JobCardCounter = "jobCardNumber"

// SequenceGenerator hands out job card numbers of the form "<sequence>/<YY>".
type SequenceGenerator struct {
	Now func() time.Time
}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{Now: time.Now}
}

// Next increments the job card counter and formats the new value with the
// current two-digit year. Pass the transaction that inserts the job card so
// that a number is never consumed without a job card being stored.
func (sg *SequenceGenerator) Next(tx *gorm.DB) (string, error) {
	value, err := IncrementCounter(tx, JobCardCounter)
	if err != nil {
		return "", err
	}
	return FormatJobCardNumber(value, sg.Now()), nil
}

func FormatJobCardNumber(sequence int64, at time.Time) string {
	return fmt.Sprintf("%d/%02d", sequence, at.Year()%100)
}

// IncrementCounter atomically adds one to the named counter and returns the
// new value. The increment is a single UPDATE on the counter row, so
// concurrent callers never observe the same value.
func IncrementCounter(db *gorm.DB, name string) (int64, error) {
	var value int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Counter{Name: name}).Error; err != nil {
			return errors.Wrapf(err, "failed to initialise counter %s", name)
		}

		res := tx.Model(&models.Counter{}).
			Where("name = ?", name).
			UpdateColumn("value", gorm.Expr("value + ?", 1))
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to increment counter %s", name)
		}
		if res.RowsAffected != 1 {
			return errors.Errorf("counter %s not found", name)
		}

		var counter models.Counter
		if err := tx.Where("name = ?", name).Take(&counter).Error; err != nil {
			return errors.Wrapf(err, "failed to read counter %s", name)
		}
		value = counter.Value
		return nil
	})
	return value, err
}
