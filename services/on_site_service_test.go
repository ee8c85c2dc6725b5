package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/utils"
)

func validOnSiteInput(number string) OnSiteInput {
	return OnSiteInput{
		CustomerName:      "Shree Textiles",
		CustomerAddress:   "Plot 7, MIDC",
		PhoneNumbers:      []string{"9000000001"},
		ComplaintNumber:   number,
		Make:              "ABB",
		ReportedComplaint: "Motor overheating",
	}
}

func TestCreateOnSiteDefaults(t *testing.T) {
	svc := NewOnSiteService(setupTestDB(t))

	job, err := svc.Create(context.Background(), validOnSiteInput("C-1"))
	require.NoError(t, err)
	assert.Equal(t, models.NonWarranty, job.WarrantyStatus)
	assert.Equal(t, models.ComplaintPending, job.ComplaintStatus)
	assert.Equal(t, models.PaymentPending, job.PaymentStatus)
	require.NotNil(t, job.ComplaintNumber)
	assert.Equal(t, "C-1", *job.ComplaintNumber)

	noNumber, err := svc.Create(context.Background(), validOnSiteInput(""))
	require.NoError(t, err)
	assert.Nil(t, noNumber.ComplaintNumber)
	again, err := svc.Create(context.Background(), validOnSiteInput(""))
	require.NoError(t, err, "complaints without a number never collide")
	assert.NotEqual(t, noNumber.ID, again.ID)
}

func TestCreateOnSiteRejectsDuplicateComplaintNumber(t *testing.T) {
	db := setupTestDB(t)
	svc := NewOnSiteService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, validOnSiteInput("C-7"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validOnSiteInput("C-7"))
	requireKind(t, utils.KindValidation, err)

	var count int64
	db.Model(&models.OnSiteJob{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateOnSiteValidation(t *testing.T) {
	svc := NewOnSiteService(setupTestDB(t))

	in := validOnSiteInput("")
	in.CustomerName = ""
	in.WarrantyStatus = "Lifetime"
	_, err := svc.Create(context.Background(), in)
	requireKind(t, utils.KindValidation, err)
	assert.Len(t, errorDetails(err), 2)

	in = validOnSiteInput("")
	missing := uint(42)
	in.AttendedPersonID = &missing
	_, err = svc.Create(context.Background(), in)
	requireKind(t, utils.KindNotFound, err)
}

func TestEditOnSiteKeepsUnsetOptionalFields(t *testing.T) {
	svc := NewOnSiteService(setupTestDB(t))
	ctx := context.Background()

	job, err := svc.Create(ctx, validOnSiteInput("C-1"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validOnSiteInput("C-2"))
	require.NoError(t, err)

	edit := OnSiteInput{
		CustomerName:    "Shree Textiles Pvt Ltd",
		CustomerAddress: "Plot 7, MIDC",
		PhoneNumbers:    []string{"9000000001", "9000000002"},
		ComplaintNumber: "C-1",
		WarrantyStatus:  string(models.Warranty),
	}
	updated, err := svc.Edit(ctx, job.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "Shree Textiles Pvt Ltd", updated.CustomerName)
	assert.Equal(t, "ABB", updated.Make)
	assert.Equal(t, "Motor overheating", updated.ReportedComplaint)
	assert.Equal(t, models.Warranty, updated.WarrantyStatus)
	assert.Len(t, updated.PhoneNumbers, 2)

	edit.ComplaintNumber = "C-2"
	_, err = svc.Edit(ctx, job.ID, edit)
	requireKind(t, utils.KindValidation, err)

	_, err = svc.Edit(ctx, 999, edit)
	requireKind(t, utils.KindNotFound, err)
}

func TestOnSiteStatusesAreIndependent(t *testing.T) {
	svc := NewOnSiteService(setupTestDB(t))
	ctx := context.Background()

	job, err := svc.Create(ctx, validOnSiteInput(""))
	require.NoError(t, err)

	job, err = svc.SetPaymentStatus(ctx, job.ID, models.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, job.PaymentStatus)
	assert.Equal(t, models.ComplaintPending, job.ComplaintStatus)

	job, err = svc.SetComplaintStatus(ctx, job.ID, models.ComplaintSentToWorkshop)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintSentToWorkshop, job.ComplaintStatus)
	assert.Equal(t, models.PaymentPaid, job.PaymentStatus)

	_, err = svc.SetComplaintStatus(ctx, job.ID, "Reopened")
	requireKind(t, utils.KindValidation, err)
	_, err = svc.SetPaymentStatus(ctx, job.ID, "Refunded")
	requireKind(t, utils.KindValidation, err)
	_, err = svc.SetPaymentStatus(ctx, 999, models.PaymentPaid)
	requireKind(t, utils.KindNotFound, err)
}

func TestOnSiteAssignWorker(t *testing.T) {
	db := setupTestDB(t)
	svc := NewOnSiteService(db)
	ctx := context.Background()

	worker := models.Worker{WorkerName: "Anil", PhoneNumber: "1", Status: true}
	require.NoError(t, db.Create(&worker).Error)
	job, err := svc.Create(ctx, validOnSiteInput(""))
	require.NoError(t, err)

	_, err = svc.AssignWorker(ctx, job.ID, 0)
	requireKind(t, utils.KindValidation, err)
	_, err = svc.AssignWorker(ctx, job.ID, 555)
	requireKind(t, utils.KindNotFound, err)

	assigned, err := svc.AssignWorker(ctx, job.ID, worker.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AttendedPerson)
	assert.Equal(t, "Anil", assigned.AttendedPerson.WorkerName)
}

func TestSearchOnSite(t *testing.T) {
	svc := NewOnSiteService(setupTestDB(t))
	ctx := context.Background()

	first, err := svc.Create(ctx, validOnSiteInput("WB-100"))
	require.NoError(t, err)
	other := validOnSiteInput("WB-200")
	other.CustomerName = "Ganesh Agro"
	other.WarrantyStatus = string(models.Warranty)
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)
	_, err = svc.SetPaymentStatus(ctx, first.ID, models.PaymentPaid)
	require.NoError(t, err)

	page := utils.Pagination{Page: 1, Limit: 10}

	result, err := svc.Search(ctx, OnSiteQuery{SearchTerm: "ganesh", Page: page})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Ganesh Agro", result.Data[0].CustomerName)

	paid := models.PaymentPaid
	result, err = svc.Search(ctx, OnSiteQuery{PaymentStatus: &paid, Page: page})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, first.ID, result.Data[0].ID)

	warranty := models.Warranty
	result, err = svc.Search(ctx, OnSiteQuery{SearchTerm: "WB-", WarrantyStatus: &warranty, Page: page})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.CountOfDocuments)
}
