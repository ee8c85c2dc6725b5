package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/utils"
)

// OnSiteInput is the body of a create or edit request for an on-site complaint.
type OnSiteInput struct {
	CustomerName      string     `json:"customer_name" validate:"required"`
	CustomerAddress   string     `json:"customer_address" validate:"required"`
	PhoneNumbers      []string   `json:"phone_numbers" validate:"required,min=1,dive,required"`
	ComplaintNumber   string     `json:"complaint_number"`
	Make              string     `json:"make"`
	DealerName        string     `json:"dealer_name"`
	WarrantyStatus    string     `json:"warranty_status" validate:"omitempty,oneof=Warranty Non-Warranty"`
	ReportedComplaint string     `json:"reported_complaint"`
	ComplaintDetails  string     `json:"complaint_details"`
	AttendedDate      *time.Time `json:"attended_date"`
	AttendedPersonID  *uint      `json:"attended_person_id"`
}

func (in *OnSiteInput) normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)
	in.ComplaintNumber = strings.TrimSpace(in.ComplaintNumber)
	in.WarrantyStatus = strings.TrimSpace(in.WarrantyStatus)
	if in.PhoneNumbers != nil {
		in.PhoneNumbers = normalizeList(in.PhoneNumbers)
	}
	if in.AttendedPersonID != nil && *in.AttendedPersonID == 0 {
		in.AttendedPersonID = nil
	}
}

type OnSiteService struct {
	db *gorm.DB
}

func NewOnSiteService(db *gorm.DB) *OnSiteService {
	return &OnSiteService{db: db}
}

// Create records a new complaint. Complaint numbers are unique when given.
func (s *OnSiteService) Create(ctx context.Context, in OnSiteInput) (*models.OnSiteJob, error) {
	in.normalize()
	if err := validateStruct("Missing or invalid on-site fields", in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.checkComplaintNumber(db, in.ComplaintNumber, 0); err != nil {
		return nil, err
	}
	if err := s.checkWorker(db, in.AttendedPersonID); err != nil {
		return nil, err
	}

	job := models.OnSiteJob{
		CustomerName:      in.CustomerName,
		CustomerAddress:   in.CustomerAddress,
		PhoneNumbers:      in.PhoneNumbers,
		Make:              strings.TrimSpace(in.Make),
		DealerName:        strings.TrimSpace(in.DealerName),
		WarrantyStatus:    models.NonWarranty,
		ReportedComplaint: in.ReportedComplaint,
		ComplaintDetails:  in.ComplaintDetails,
		AttendedDate:      in.AttendedDate,
		AttendedPersonID:  in.AttendedPersonID,
		ComplaintStatus:   models.ComplaintPending,
		PaymentStatus:     models.PaymentPending,
	}
	if in.ComplaintNumber != "" {
		job.ComplaintNumber = &in.ComplaintNumber
	}
	if in.WarrantyStatus != "" {
		job.WarrantyStatus = models.WarrantyStatus(in.WarrantyStatus)
	}

	if err := db.Omit(clause.Associations).Create(&job).Error; err != nil {
		return nil, translateComplaintErr(err, "failed to create on-site job")
	}
	utils.InfoLogger.Printf("On-site job created (ID=%d)", job.ID)
	return s.Get(ctx, job.ID)
}

// Edit replaces the complaint fields. Optional fields left empty keep their
// stored values; status fields are changed only through their own operations.
func (s *OnSiteService) Edit(ctx context.Context, id uint, in OnSiteInput) (*models.OnSiteJob, error) {
	in.normalize()
	if err := validateStruct("Missing or invalid on-site fields", in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	job, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkComplaintNumber(db, in.ComplaintNumber, id); err != nil {
		return nil, err
	}
	if err := s.checkWorker(db, in.AttendedPersonID); err != nil {
		return nil, err
	}

	job.CustomerName = in.CustomerName
	job.CustomerAddress = in.CustomerAddress
	job.PhoneNumbers = in.PhoneNumbers
	if in.ComplaintNumber != "" {
		job.ComplaintNumber = &in.ComplaintNumber
	}
	keep := func(value string, dst *string) {
		if v := strings.TrimSpace(value); v != "" {
			*dst = v
		}
	}
	keep(in.Make, &job.Make)
	keep(in.DealerName, &job.DealerName)
	keep(in.ReportedComplaint, &job.ReportedComplaint)
	keep(in.ComplaintDetails, &job.ComplaintDetails)
	if in.WarrantyStatus != "" {
		job.WarrantyStatus = models.WarrantyStatus(in.WarrantyStatus)
	}
	if in.AttendedDate != nil {
		job.AttendedDate = in.AttendedDate
	}
	if in.AttendedPersonID != nil {
		job.AttendedPersonID = in.AttendedPersonID
	}

	if err := db.Omit(clause.Associations).Save(job).Error; err != nil {
		return nil, translateComplaintErr(err, "failed to update on-site job")
	}
	return s.Get(ctx, id)
}

// AssignWorker sets the worker who attends the complaint.
func (s *OnSiteService) AssignWorker(ctx context.Context, id, workerID uint) (*models.OnSiteJob, error) {
	if workerID == 0 {
		return nil, utils.NewValidationError("Worker id is required")
	}
	db := s.db.WithContext(ctx)
	if err := s.checkWorker(db, &workerID); err != nil {
		return nil, err
	}
	job, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(job).Update("attended_person_id", workerID).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to assign worker %d to on-site job %d", workerID, id)
	}
	utils.InfoLogger.Printf("Worker %d assigned to on-site job %d", workerID, id)
	return s.Get(ctx, id)
}

func (s *OnSiteService) SetComplaintStatus(ctx context.Context, id uint, status models.ComplaintStatus) (*models.OnSiteJob, error) {
	if !status.Valid() {
		return nil, utils.NewValidationError("Invalid complaint status", string(status))
	}
	return s.setColumn(ctx, id, "complaint_status", status)
}

func (s *OnSiteService) SetPaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) (*models.OnSiteJob, error) {
	if !status.Valid() {
		return nil, utils.NewValidationError("Invalid payment status", string(status))
	}
	return s.setColumn(ctx, id, "payment_status", status)
}

func (s *OnSiteService) Get(ctx context.Context, id uint) (*models.OnSiteJob, error) {
	var job models.OnSiteJob
	if err := s.db.WithContext(ctx).Preload("AttendedPerson").First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("On-site job not found")
		}
		return nil, errors.Wrapf(err, "failed to load on-site job %d", id)
	}
	return &job, nil
}

// Search returns one page of complaints, newest first.
func (s *OnSiteService) Search(ctx context.Context, q OnSiteQuery) (utils.PageResult[models.OnSiteJob], error) {
	query := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&models.OnSiteJob{})
		db = applyTextSearch(db, q.SearchTerm, onSiteTextColumns, nil)
		if q.WarrantyStatus != nil {
			db = db.Where("warranty_status = ?", *q.WarrantyStatus)
		}
		if q.ComplaintStatus != nil {
			db = db.Where("complaint_status = ?", *q.ComplaintStatus)
		}
		if q.PaymentStatus != nil {
			db = db.Where("payment_status = ?", *q.PaymentStatus)
		}
		return db
	}

	var count int64
	if err := query().Count(&count).Error; err != nil {
		return utils.PageResult[models.OnSiteJob]{}, errors.Wrap(err, "failed to count on-site jobs")
	}
	var jobs []models.OnSiteJob
	if err := query().Preload("AttendedPerson").
		Order("created_at DESC").Order("id DESC").
		Offset(q.Page.Offset()).Limit(q.Page.Limit).
		Find(&jobs).Error; err != nil {
		return utils.PageResult[models.OnSiteJob]{}, errors.Wrap(err, "failed to search on-site jobs")
	}
	return utils.NewPageResult(jobs, count, q.Page), nil
}

func (s *OnSiteService) setColumn(ctx context.Context, id uint, column string, value interface{}) (*models.OnSiteJob, error) {
	db := s.db.WithContext(ctx)
	job, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(job).Update(column, value).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to update %s of on-site job %d", column, id)
	}
	return s.Get(ctx, id)
}

func (s *OnSiteService) find(db *gorm.DB, id uint) (*models.OnSiteJob, error) {
	var job models.OnSiteJob
	if err := db.First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("On-site job not found")
		}
		return nil, errors.Wrapf(err, "failed to load on-site job %d", id)
	}
	return &job, nil
}

// checkComplaintNumber fails when number is already used by a job other than
// exceptID.
func (s *OnSiteService) checkComplaintNumber(db *gorm.DB, number string, exceptID uint) error {
	if number == "" {
		return nil
	}
	var count int64
	q := db.Model(&models.OnSiteJob{}).Where("complaint_number = ?", number)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "failed to check complaint number")
	}
	if count > 0 {
		return utils.NewValidationError("Complaint number already exists")
	}
	return nil
}

func (s *OnSiteService) checkWorker(db *gorm.DB, workerID *uint) error {
	if workerID == nil {
		return nil
	}
	var count int64
	if err := db.Model(&models.Worker{}).Where("id = ?", *workerID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "failed to check worker")
	}
	if count == 0 {
		return utils.NewNotFoundError("Worker not found")
	}
	return nil
}

// translateComplaintErr maps a unique index race on complaint_number to the
// same validation error the pre-check returns.
func translateComplaintErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.NewValidationError("Complaint number already exists")
	}
	return errors.Wrap(err, msg)
}
