package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/workshop-app/metrics"
	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/storage"
	"github.com/yeremiapane/workshop-app/utils"
)

// JobCardInput carries every field accepted when a job card is created.
// HP, KVA and RPM are raw form values; unparsable values are dropped.
type JobCardInput struct {
	CustomerName    string   `json:"customer_name" validate:"required"`
	CustomerAddress string   `json:"customer_address" validate:"required"`
	PhoneNumbers    []string `json:"phone_numbers" validate:"required,min=1,dive,required"`
	SrNo            string   `json:"sr_no" validate:"required"`

	Make            string `json:"make"`
	HP              string `json:"hp"`
	KVA             string `json:"kva"`
	RPM             string `json:"rpm"`
	Type            string `json:"type"`
	Frame           string `json:"frame"`
	DealerName      string `json:"dealer_name"`
	DealerNumber    string `json:"dealer_number"`
	Works           string `json:"works"`
	Spares          string `json:"spares"`
	IndustrialWorks string `json:"industrial_works"`
	Others          string `json:"others"`
	Warranty        bool   `json:"warranty"`
}

func (in *JobCardInput) normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)
	in.SrNo = strings.TrimSpace(in.SrNo)
	if in.PhoneNumbers != nil {
		in.PhoneNumbers = normalizeList(in.PhoneNumbers)
	}
}

func (in *JobCardInput) toJobCard() models.JobCard {
	return models.JobCard{
		Status:          models.JobCardPending,
		CustomerName:    in.CustomerName,
		CustomerAddress: in.CustomerAddress,
		PhoneNumbers:    in.PhoneNumbers,
		SrNo:            in.SrNo,
		Make:            strings.TrimSpace(in.Make),
		HP:              parseOptionalInt(in.HP),
		KVA:             parseOptionalInt(in.KVA),
		RPM:             parseOptionalInt(in.RPM),
		Type:            strings.TrimSpace(in.Type),
		Frame:           strings.TrimSpace(in.Frame),
		DealerName:      strings.TrimSpace(in.DealerName),
		DealerNumber:    strings.TrimSpace(in.DealerNumber),
		Works:           in.Works,
		Spares:          in.Spares,
		IndustrialWorks: in.IndustrialWorks,
		Others:          in.Others,
		Warranty:        in.Warranty,
		AttachmentIDs:   []uint{},
	}
}

// JobCardPatch is a partial update. Nil fields are left untouched.
type JobCardPatch struct {
	CustomerName    *string
	CustomerAddress *string
	PhoneNumbers    []string
	SrNo            *string
	Make            *string
	HP              *string
	KVA             *string
	RPM             *string
	Type            *string
	Frame           *string
	DealerName      *string
	DealerNumber    *string
	Works           *string
	Spares          *string
	IndustrialWorks *string
	Others          *string
	Warranty        *bool
}

// apply copies the patch onto jc and returns every violated field.
func (p *JobCardPatch) apply(jc *models.JobCard) []string {
	var problems []string
	required := func(name string, value *string, dst *string) {
		if value == nil {
			return
		}
		if v := strings.TrimSpace(*value); v != "" {
			*dst = v
			return
		}
		problems = append(problems, name+" cannot be empty")
	}
	optional := func(value *string, dst *string) {
		if value != nil {
			*dst = *value
		}
	}
	number := func(value *string, dst **int) {
		if value == nil {
			return
		}
		if n := parseOptionalInt(*value); n != nil {
			*dst = n
		}
	}

	required("customer_name", p.CustomerName, &jc.CustomerName)
	required("customer_address", p.CustomerAddress, &jc.CustomerAddress)
	required("sr_no", p.SrNo, &jc.SrNo)
	if p.PhoneNumbers != nil {
		if phones := normalizeList(p.PhoneNumbers); len(phones) > 0 {
			jc.PhoneNumbers = phones
		} else {
			problems = append(problems, "phone_numbers must contain at least 1 entry")
		}
	}

	optional(p.Make, &jc.Make)
	optional(p.Type, &jc.Type)
	optional(p.Frame, &jc.Frame)
	optional(p.DealerName, &jc.DealerName)
	optional(p.DealerNumber, &jc.DealerNumber)
	optional(p.Works, &jc.Works)
	optional(p.Spares, &jc.Spares)
	optional(p.IndustrialWorks, &jc.IndustrialWorks)
	optional(p.Others, &jc.Others)
	number(p.HP, &jc.HP)
	number(p.KVA, &jc.KVA)
	number(p.RPM, &jc.RPM)
	if p.Warranty != nil {
		jc.Warranty = *p.Warranty
	}
	return problems
}

// StatusCount is one row of the job card report.
type StatusCount struct {
	Status models.JobCardStatus `json:"status"`
	Count  int64                `json:"count"`
}

// JobCardService runs the job card lifecycle: numbering, attachments and
// status transitions.
//
// Writes are read-modify-write without version checks, so concurrent edits of
// the same job card are last-writer-wins.
type JobCardService struct {
	db       *gorm.DB
	sequence *SequenceGenerator
	uploader *storage.Uploader
	now      func() time.Time
}

func NewJobCardService(db *gorm.DB, sequence *SequenceGenerator, uploader *storage.Uploader) *JobCardService {
	return &JobCardService{db: db, sequence: sequence, uploader: uploader, now: time.Now}
}

// Create validates the input, stores the files and then numbers and inserts
// the job card together with its image records in one transaction.
func (s *JobCardService) Create(ctx context.Context, in JobCardInput, files []storage.File) (*models.JobCard, error) {
	in.normalize()
	if err := validateStruct("Missing or invalid job card fields", in); err != nil {
		return nil, err
	}
	if problems := storage.CheckFiles(files); len(problems) > 0 {
		return nil, utils.NewValidationError("Invalid attachments", problems...)
	}

	uploads, err := s.uploader.UploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	jobCard := in.toJobCard()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.sequence.Next(tx)
		if err != nil {
			return err
		}
		jobCard.JobCardNumber = number

		if err := tx.Omit(clause.Associations).Create(&jobCard).Error; err != nil {
			return errors.Wrap(err, "failed to insert job card")
		}

		images, err := createImages(tx, jobCard.ID, uploads)
		if err != nil {
			return err
		}
		if len(images) > 0 {
			jobCard.AttachmentIDs = imageIDs(images)
			if err := tx.Model(&jobCard).Update("attachment_ids", jobCard.AttachmentIDs).Error; err != nil {
				return errors.Wrap(err, "failed to link attachments")
			}
		}
		jobCard.Images = images
		return nil
	})
	if err != nil {
		return nil, s.compensate(ctx, uploads, errors.Wrap(err, "failed to create job card"))
	}

	metrics.JobCardsCreated.Inc()
	utils.InfoLogger.Printf("Job card %s created (ID=%d, attachments=%d)", jobCard.JobCardNumber, jobCard.ID, len(jobCard.Images))
	return &jobCard, nil
}

// AddImages appends new attachments to a job card that is not billed.
func (s *JobCardService) AddImages(ctx context.Context, id uint, files []storage.File) (*models.JobCard, error) {
	jobCard, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if jobCard.Status == models.JobCardBilled {
		return nil, utils.NewValidationError("Cannot add images to a billed job card")
	}
	if len(files) == 0 {
		return nil, utils.NewValidationError("No files provided")
	}
	if problems := storage.CheckFiles(files); len(problems) > 0 {
		return nil, utils.NewValidationError("Invalid attachments", problems...)
	}

	uploads, err := s.uploader.UploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.find(tx, id)
		if err != nil {
			return err
		}
		if current.Status == models.JobCardBilled {
			return utils.NewValidationError("Cannot add images to a billed job card")
		}

		images, err := createImages(tx, current.ID, uploads)
		if err != nil {
			return err
		}
		current.AttachmentIDs = append(current.AttachmentIDs, imageIDs(images)...)
		return tx.Model(current).Update("attachment_ids", current.AttachmentIDs).Error
	})
	if err != nil {
		return nil, s.compensate(ctx, uploads, err)
	}

	return s.Get(ctx, id)
}

// Edit applies patch, appends newFiles and removes removedImageIDs.
//
// Removed images leave the attachment list in the same transaction that
// applies the patch; their stored files and records are deleted afterwards.
// Those deletions are best-effort: failures are reported as a partial failure
// and the leftover records can be removed by a later edit or the orphan sweep.
func (s *JobCardService) Edit(ctx context.Context, id uint, patch JobCardPatch, newFiles []storage.File, removedImageIDs []uint) (*models.JobCard, error) {
	jobCard, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	probe := *jobCard
	if problems := patch.apply(&probe); len(problems) > 0 {
		return nil, utils.NewValidationError("Missing or invalid job card fields", problems...)
	}
	if jobCard.Status == models.JobCardBilled && (len(newFiles) > 0 || len(removedImageIDs) > 0) {
		return nil, utils.NewValidationError("Cannot change attachments of a billed job card")
	}
	if problems := storage.CheckFiles(newFiles); len(problems) > 0 {
		return nil, utils.NewValidationError("Invalid attachments", problems...)
	}

	removals, err := s.ownedImages(ctx, jobCard.ID, removedImageIDs)
	if err != nil {
		return nil, err
	}

	uploads, err := s.uploader.UploadAll(ctx, newFiles)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.find(tx, id)
		if err != nil {
			return err
		}
		patch.apply(current)

		images, err := createImages(tx, current.ID, uploads)
		if err != nil {
			return err
		}
		current.AttachmentIDs = append(withoutImages(current.AttachmentIDs, removals), imageIDs(images)...)

		if err := tx.Omit(clause.Associations).Save(current).Error; err != nil {
			return errors.Wrap(err, "failed to update job card")
		}
		return nil
	})
	if err != nil {
		return nil, s.compensate(ctx, uploads, err)
	}

	failed := s.deleteImages(ctx, removals)
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(failed) > 0 {
		return updated, utils.NewPartialFailureError("Job card updated but some attachments could not be deleted", failed, nil)
	}
	return updated, nil
}

// Transition writes a new status. Any status may follow any other; Completed
// stamps the out date and Billed requires an invoice number.
func (s *JobCardService) Transition(ctx context.Context, id uint, target models.JobCardStatus, invoiceNumber string) (*models.JobCard, error) {
	now := s.now()
	updates := map[string]interface{}{"status": target}
	switch target {
	case models.JobCardPending, models.JobCardReturned:
	case models.JobCardCompleted:
		updates["out_date"] = now
	case models.JobCardBilled:
		invoiceNumber = strings.TrimSpace(invoiceNumber)
		if invoiceNumber == "" {
			return nil, utils.NewValidationError("Invoice number is required")
		}
		updates["invoice_number"] = invoiceNumber
		updates["invoice_date"] = now
	default:
		return nil, utils.NewValidationError("Invalid job card status", string(target))
	}

	db := s.db.WithContext(ctx)
	jobCard, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(jobCard).Updates(updates).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to set job card %d to %s", id, target)
	}

	metrics.JobCardTransitions.WithLabelValues(string(target)).Inc()
	utils.InfoLogger.Printf("Job card %s moved from %s to %s", jobCard.JobCardNumber, jobCard.Status, target)
	return s.Get(ctx, id)
}

// Get returns a job card with its images, in attachment order, and worker.
func (s *JobCardService) Get(ctx context.Context, id uint) (*models.JobCard, error) {
	var jobCard models.JobCard
	if err := s.db.WithContext(ctx).Preload("Worker").First(&jobCard, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Job card not found")
		}
		return nil, errors.Wrapf(err, "failed to load job card %d", id)
	}
	cards := []models.JobCard{jobCard}
	if err := s.populateImages(ctx, cards); err != nil {
		return nil, err
	}
	return &cards[0], nil
}

// Search returns one page of job cards, newest first.
func (s *JobCardService) Search(ctx context.Context, q JobCardQuery) (utils.PageResult[models.JobCard], error) {
	query := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&models.JobCard{})
		db = applyTextSearch(db, q.SearchTerm, jobCardTextColumns, jobCardNumericColumns)
		if q.Warranty != nil {
			db = db.Where("warranty = ?", *q.Warranty)
		}
		if q.Status != nil {
			db = db.Where("status = ?", *q.Status)
		}
		return db
	}

	var count int64
	if err := query().Count(&count).Error; err != nil {
		return utils.PageResult[models.JobCard]{}, errors.Wrap(err, "failed to count job cards")
	}

	var cards []models.JobCard
	if err := query().Preload("Worker").
		Order("created_at DESC").Order("id DESC").
		Offset(q.Page.Offset()).Limit(q.Page.Limit).
		Find(&cards).Error; err != nil {
		return utils.PageResult[models.JobCard]{}, errors.Wrap(err, "failed to search job cards")
	}
	if err := s.populateImages(ctx, cards); err != nil {
		return utils.PageResult[models.JobCard]{}, err
	}
	return utils.NewPageResult(cards, count, q.Page), nil
}

// Reports counts job cards per status, including statuses with no cards.
func (s *JobCardService) Reports(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := s.db.WithContext(ctx).Model(&models.JobCard{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count job cards by status")
	}

	counts := make(map[models.JobCardStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	report := make([]StatusCount, 0, len(models.JobCardStatuses))
	for _, status := range models.JobCardStatuses {
		report = append(report, StatusCount{Status: status, Count: counts[status]})
	}
	return report, nil
}

func (s *JobCardService) find(db *gorm.DB, id uint) (*models.JobCard, error) {
	var jobCard models.JobCard
	if err := db.First(&jobCard, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Job card not found")
		}
		return nil, errors.Wrapf(err, "failed to load job card %d", id)
	}
	return &jobCard, nil
}

// ownedImages loads the requested images that belong to jobCardID. Unknown
// ids and images of other job cards are skipped.
func (s *JobCardService) ownedImages(ctx context.Context, jobCardID uint, ids []uint) ([]models.JobCardImage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var images []models.JobCardImage
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load removed images")
	}

	owned := images[:0]
	for _, img := range images {
		if img.JobCardID != jobCardID {
			utils.InfoLogger.Printf("Ignoring removal of image %d: it belongs to job card %d, not %d", img.ID, img.JobCardID, jobCardID)
			continue
		}
		owned = append(owned, img)
	}
	return owned, nil
}

// deleteImages frees the stored file and then the record of every image and
// returns the ids that could not be fully deleted.
func (s *JobCardService) deleteImages(ctx context.Context, images []models.JobCardImage) []string {
	var failed []string
	for _, img := range images {
		if err := s.uploader.Delete(ctx, img.StorageKey); err != nil {
			utils.ErrorLogger.WithError(err).Errorf("Failed to delete stored file of image %d", img.ID)
			failed = append(failed, strconv.FormatUint(uint64(img.ID), 10))
			continue
		}
		if err := s.db.WithContext(ctx).Delete(&models.JobCardImage{}, img.ID).Error; err != nil {
			utils.ErrorLogger.WithError(err).Errorf("Failed to delete image record %d", img.ID)
			failed = append(failed, strconv.FormatUint(uint64(img.ID), 10))
		}
	}
	return failed
}

func (s *JobCardService) populateImages(ctx context.Context, cards []models.JobCard) error {
	var ids []uint
	for _, jc := range cards {
		ids = append(ids, jc.AttachmentIDs...)
	}
	byID := make(map[uint]models.JobCardImage, len(ids))
	if len(ids) > 0 {
		var images []models.JobCardImage
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&images).Error; err != nil {
			return errors.Wrap(err, "failed to load job card images")
		}
		for _, img := range images {
			byID[img.ID] = img
		}
	}

	for i := range cards {
		cards[i].Images = make([]models.JobCardImage, 0, len(cards[i].AttachmentIDs))
		for _, id := range cards[i].AttachmentIDs {
			if img, ok := byID[id]; ok {
				cards[i].Images = append(cards[i].Images, img)
			}
		}
	}
	return nil
}

// compensate deletes uploads stored for a write that did not commit.
func (s *JobCardService) compensate(ctx context.Context, uploads []storage.Upload, cause error) error {
	if orphaned := s.uploader.Discard(context.WithoutCancel(ctx), uploads); len(orphaned) > 0 {
		return utils.NewPartialFailureError("Request failed and stored files could not be removed", orphaned, cause)
	}
	return cause
}

func createImages(tx *gorm.DB, jobCardID uint, uploads []storage.Upload) ([]models.JobCardImage, error) {
	images := make([]models.JobCardImage, 0, len(uploads))
	for _, up := range uploads {
		images = append(images, models.JobCardImage{
			JobCardID:  jobCardID,
			URL:        up.URL,
			StorageKey: up.Key,
			FileType:   models.FileTypeFor(up.ContentType),
		})
	}
	if len(images) == 0 {
		return images, nil
	}
	if err := tx.Create(&images).Error; err != nil {
		return nil, errors.Wrap(err, "failed to insert job card images")
	}
	return images, nil
}

func imageIDs(images []models.JobCardImage) []uint {
	ids := make([]uint, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids
}

func withoutImages(ids []uint, removed []models.JobCardImage) []uint {
	drop := make(map[uint]struct{}, len(removed))
	for _, img := range removed {
		drop[img.ID] = struct{}{}
	}
	kept := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	return kept
}
