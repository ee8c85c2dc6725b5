package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/yeremiapane/workshop-app/metrics"
	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/storage"
	"github.com/yeremiapane/workshop-app/utils"
)

const sweepBatchSize = 100

// OrphanSweeper removes job card images that no job card lists any more,
// together with their stored files.
type OrphanSweeper struct {
	DB       *gorm.DB
	Uploader *storage.Uploader
	StopChan chan struct{}
	Interval time.Duration
	// Grace keeps images created during an in-flight request out of the sweep.
	Grace time.Duration
	Now   func() time.Time
}

func NewOrphanSweeper(db *gorm.DB, uploader *storage.Uploader, interval, grace time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		DB:       db,
		Uploader: uploader,
		StopChan: make(chan struct{}),
		Interval: interval,
		Grace:    grace,
		Now:      time.Now,
	}
}

func (sw *OrphanSweeper) Start() {
	if sw.Interval <= 0 {
		utils.InfoLogger.Println("Orphan sweeper disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(sw.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := sw.Sweep(context.Background()); err != nil {
					utils.ErrorLogger.WithError(err).Error("Orphan sweep failed")
				}
			case <-sw.StopChan:
				return
			}
		}
	}()
}

func (sw *OrphanSweeper) Stop() {
	close(sw.StopChan)
}

// Sweep runs one pass and returns the number of images removed.
func (sw *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := sw.Now().Add(-sw.Grace)
	db := sw.DB.WithContext(ctx)

	removed := 0
	var lastID uint
	for {
		var images []models.JobCardImage
		if err := db.Where("id > ? AND created_at < ?", lastID, cutoff).
			Order("id ASC").
			Limit(sweepBatchSize).
			Find(&images).Error; err != nil {
			return removed, errors.Wrap(err, "failed to fetch images to sweep")
		}
		if len(images) == 0 {
			break
		}
		lastID = images[len(images)-1].ID

		owners, err := sw.loadOwners(db, images)
		if err != nil {
			return removed, err
		}
		for _, img := range images {
			if owner, ok := owners[img.JobCardID]; ok && owner.HasAttachment(img.ID) {
				continue
			}
			if err := sw.Uploader.Delete(ctx, img.StorageKey); err != nil {
				utils.ErrorLogger.WithError(err).Errorf("Failed to delete stored file of orphan image %d", img.ID)
				continue
			}
			if err := db.Delete(&models.JobCardImage{}, img.ID).Error; err != nil {
				utils.ErrorLogger.WithError(err).Errorf("Failed to delete orphan image record %d", img.ID)
				continue
			}
			removed++
			metrics.OrphansSwept.Inc()
		}
		if len(images) < sweepBatchSize {
			break
		}
	}

	if removed > 0 {
		utils.InfoLogger.Printf("Removed %d orphan job card images", removed)
	}
	return removed, nil
}

func (sw *OrphanSweeper) loadOwners(db *gorm.DB, images []models.JobCardImage) (map[uint]models.JobCard, error) {
	ids := make([]uint, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.JobCardID)
	}
	var cards []models.JobCard
	if err := db.Select("id", "attachment_ids").Where("id IN ?", ids).Find(&cards).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load job cards of swept images")
	}
	owners := make(map[uint]models.JobCard, len(cards))
	for _, jc := range cards {
		owners[jc.ID] = jc
	}
	return owners, nil
}
