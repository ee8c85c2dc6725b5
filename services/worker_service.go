package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/storage"
	"github.com/yeremiapane/workshop-app/utils"
)

type WorkerInput struct {
	WorkerName  string `json:"worker_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// WorkerPatch overwrites only the fields that are non-empty.
type WorkerPatch struct {
	WorkerName  string `json:"worker_name"`
	PhoneNumber string `json:"phone_number"`
}

type WorkerService struct {
	db       *gorm.DB
	uploader *storage.Uploader
}

func NewWorkerService(db *gorm.DB, uploader *storage.Uploader) *WorkerService {
	return &WorkerService{db: db, uploader: uploader}
}

// Create stores the profile image and inserts an available worker.
func (s *WorkerService) Create(ctx context.Context, in WorkerInput, image *storage.File) (*models.Worker, error) {
	in.WorkerName = strings.TrimSpace(in.WorkerName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := validateStruct("Missing or invalid worker fields", in); err != nil {
		return nil, err
	}
	up, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	worker := models.Worker{
		WorkerName:  in.WorkerName,
		PhoneNumber: in.PhoneNumber,
		WorkerImage: up.URL,
		StorageKey:  up.Key,
		Status:      true,
	}
	if err := s.db.WithContext(ctx).Create(&worker).Error; err != nil {
		s.discard(ctx, up)
		return nil, errors.Wrap(err, "failed to create worker")
	}
	utils.InfoLogger.Printf("Worker %q created (ID=%d)", worker.WorkerName, worker.ID)
	return &worker, nil
}

func (s *WorkerService) List(ctx context.Context, page utils.Pagination) (utils.PageResult[models.Worker], error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Worker{}).Count(&count).Error; err != nil {
		return utils.PageResult[models.Worker]{}, errors.Wrap(err, "failed to count workers")
	}
	var workers []models.Worker
	if err := s.db.WithContext(ctx).Order("id ASC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&workers).Error; err != nil {
		return utils.PageResult[models.Worker]{}, errors.Wrap(err, "failed to list workers")
	}
	return utils.NewPageResult(workers, count, page), nil
}

// ListAvailable returns every worker whose status is true.
func (s *WorkerService) ListAvailable(ctx context.Context) ([]models.Worker, error) {
	workers := []models.Worker{}
	if err := s.db.WithContext(ctx).Where("status = ?", true).Order("worker_name ASC").Find(&workers).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list available workers")
	}
	return workers, nil
}

func (s *WorkerService) Get(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	if err := s.db.WithContext(ctx).First(&worker, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Worker not found")
		}
		return nil, errors.Wrapf(err, "failed to load worker %d", id)
	}
	return &worker, nil
}

func (s *WorkerService) Edit(ctx context.Context, id uint, patch WorkerPatch) (*models.Worker, error) {
	worker, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if v := strings.TrimSpace(patch.WorkerName); v != "" {
		updates["worker_name"] = v
	}
	if v := strings.TrimSpace(patch.PhoneNumber); v != "" {
		updates["phone_number"] = v
	}
	if len(updates) == 0 {
		return worker, nil
	}
	if err := s.db.WithContext(ctx).Model(worker).Updates(updates).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to update worker %d", id)
	}
	return s.Get(ctx, id)
}

// ChangeStatus flips availability with a single UPDATE so two calls always
// return the worker to its original state.
func (s *WorkerService) ChangeStatus(ctx context.Context, id uint) (*models.Worker, error) {
	res := s.db.WithContext(ctx).Model(&models.Worker{}).
		Where("id = ?", id).
		UpdateColumn("status", gorm.Expr("NOT status"))
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to toggle worker %d", id)
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewNotFoundError("Worker not found")
	}
	return s.Get(ctx, id)
}

// AssignToJobCard sets the worker of a job card. Unavailable workers can be
// assigned.
func (s *WorkerService) AssignToJobCard(ctx context.Context, workerID, jobCardID uint) (*models.JobCard, error) {
	if workerID == 0 || jobCardID == 0 {
		return nil, utils.NewValidationError("Worker id and job card id are required")
	}
	worker, err := s.Get(ctx, workerID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var jobCard models.JobCard
	if err := db.First(&jobCard, jobCardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Job card not found")
		}
		return nil, errors.Wrapf(err, "failed to load job card %d", jobCardID)
	}
	if err := db.Model(&jobCard).Update("worker_id", worker.ID).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to assign worker %d to job card %d", workerID, jobCardID)
	}
	jobCard.WorkerID = &worker.ID
	jobCard.Worker = worker
	utils.InfoLogger.Printf("Worker %d assigned to job card %s", worker.ID, jobCard.JobCardNumber)
	return &jobCard, nil
}

// UpdateImage replaces the profile image. The old file is deleted after the
// new one is saved; a failed delete only leaves an unreferenced object.
func (s *WorkerService) UpdateImage(ctx context.Context, id uint, image *storage.File) (*models.Worker, error) {
	worker, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	up, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	oldKey := worker.StorageKey
	if err := s.db.WithContext(ctx).Model(worker).Updates(map[string]interface{}{
		"worker_image": up.URL,
		"storage_key":  up.Key,
	}).Error; err != nil {
		s.discard(ctx, up)
		return nil, errors.Wrapf(err, "failed to update image of worker %d", id)
	}

	if oldKey != "" {
		if err := s.uploader.Delete(context.WithoutCancel(ctx), oldKey); err != nil {
			utils.ErrorLogger.WithError(err).Errorf("Failed to delete old image %s of worker %d", oldKey, id)
		}
	}
	return s.Get(ctx, id)
}

func (s *WorkerService) uploadImage(ctx context.Context, image *storage.File) (storage.Upload, error) {
	if image == nil {
		return storage.Upload{}, utils.NewValidationError("No file provided")
	}
	if !strings.HasPrefix(image.ContentType, "image/") {
		return storage.Upload{}, utils.NewValidationError("Invalid worker image", image.Name+": only images are accepted")
	}
	if problems := storage.CheckFiles([]storage.File{*image}); len(problems) > 0 {
		return storage.Upload{}, utils.NewValidationError("Invalid worker image", problems...)
	}
	up, err := s.uploader.Upload(ctx, *image)
	if err != nil {
		return storage.Upload{}, utils.NewUploadError(err)
	}
	return up, nil
}

func (s *WorkerService) discard(ctx context.Context, up storage.Upload) {
	s.uploader.Discard(context.WithoutCancel(ctx), []storage.Upload{up})
}
