package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/storage"
	"github.com/yeremiapane/workshop-app/utils"
)

func newWorkerService(t *testing.T) (*WorkerService, *gorm.DB, *testStore) {
	t.Helper()
	db := setupTestDB(t)
	store := newTestStore(t)
	return NewWorkerService(db, storage.NewUploader(store)), db, store
}

func createWorker(t *testing.T, svc *WorkerService, name string) *models.Worker {
	t.Helper()
	image := pngFile(t, name+".png", 40, 40)
	worker, err := svc.Create(context.Background(), WorkerInput{WorkerName: name, PhoneNumber: "98"}, &image)
	require.NoError(t, err)
	return worker
}

func TestCreateWorker(t *testing.T) {
	svc, _, store := newWorkerService(t)

	worker := createWorker(t, svc, "Suresh")
	assert.True(t, worker.Status)
	assert.NotEmpty(t, worker.WorkerImage)
	assert.Equal(t, []string{worker.StorageKey}, store.files(t))

	_, err := svc.Create(context.Background(), WorkerInput{WorkerName: "No Image", PhoneNumber: "1"}, nil)
	requireKind(t, utils.KindValidation, err)

	pdf := pdfFile("cv.pdf")
	_, err = svc.Create(context.Background(), WorkerInput{WorkerName: "Pdf", PhoneNumber: "1"}, &pdf)
	requireKind(t, utils.KindValidation, err)

	image := pngFile(t, "x.png", 5, 5)
	_, err = svc.Create(context.Background(), WorkerInput{}, &image)
	requireKind(t, utils.KindValidation, err)
	assert.Len(t, errorDetails(err), 2)
	assert.Len(t, store.files(t), 1, "rejected input stores nothing")
}

func TestChangeStatusTwiceRestoresAvailability(t *testing.T) {
	svc, _, _ := newWorkerService(t)
	ctx := context.Background()
	worker := createWorker(t, svc, "Mahesh")

	toggled, err := svc.ChangeStatus(ctx, worker.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Status)

	available, err := svc.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	restored, err := svc.ChangeStatus(ctx, worker.ID)
	require.NoError(t, err)
	assert.True(t, restored.Status)

	_, err = svc.ChangeStatus(ctx, 999)
	requireKind(t, utils.KindNotFound, err)
}

func TestEditWorkerOverwritesOnlyGivenFields(t *testing.T) {
	svc, _, _ := newWorkerService(t)
	worker := createWorker(t, svc, "Ramesh")

	updated, err := svc.Edit(context.Background(), worker.ID, WorkerPatch{PhoneNumber: "777"})
	require.NoError(t, err)
	assert.Equal(t, "Ramesh", updated.WorkerName)
	assert.Equal(t, "777", updated.PhoneNumber)
}

func TestListWorkersPaginates(t *testing.T) {
	svc, _, _ := newWorkerService(t)
	for _, name := range []string{"A", "B", "C"} {
		createWorker(t, svc, name)
	}

	page, err := svc.List(context.Background(), utils.Pagination{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.CountOfDocuments)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "C", page.Data[0].WorkerName)
}

func TestAssignWorkerToJobCard(t *testing.T) {
	svc, db, _ := newWorkerService(t)
	ctx := context.Background()
	worker := createWorker(t, svc, "Dinesh")

	jobCard := models.JobCard{JobCardNumber: "1/24", CustomerName: "c", CustomerAddress: "a", SrNo: "s"}
	require.NoError(t, db.Create(&jobCard).Error)

	_, err := svc.AssignToJobCard(ctx, 999, jobCard.ID)
	requireKind(t, utils.KindNotFound, err)
	_, err = svc.AssignToJobCard(ctx, worker.ID, 999)
	requireKind(t, utils.KindNotFound, err)

	// Unavailable workers can still be assigned.
	_, err = svc.ChangeStatus(ctx, worker.ID)
	require.NoError(t, err)
	assigned, err := svc.AssignToJobCard(ctx, worker.ID, jobCard.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.WorkerID)
	assert.Equal(t, worker.ID, *assigned.WorkerID)

	var stored models.JobCard
	require.NoError(t, db.First(&stored, jobCard.ID).Error)
	require.NotNil(t, stored.WorkerID)
	assert.Equal(t, worker.ID, *stored.WorkerID)
}

func TestUpdateWorkerImageReplacesStoredFile(t *testing.T) {
	svc, _, store := newWorkerService(t)
	worker := createWorker(t, svc, "Vijay")

	image := pngFile(t, "new.png", 20, 20)
	updated, err := svc.UpdateImage(context.Background(), worker.ID, &image)
	require.NoError(t, err)
	assert.NotEqual(t, worker.StorageKey, updated.StorageKey)
	assert.Equal(t, []string{updated.StorageKey}, store.files(t))

	_, err = svc.UpdateImage(context.Background(), 999, &image)
	requireKind(t, utils.KindNotFound, err)
}
