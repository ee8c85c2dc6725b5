package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/storage"
	"github.com/yeremiapane/workshop-app/utils"
)

var fixedNow = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

// setupTestDB opens a fresh SQLite file per test. One connection keeps
// concurrent writers from hitting SQLITE_BUSY.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, "?_busy_timeout=5000&_foreign_keys=on", 1)
}

// setupPooledTestDB allows several connections at once. WAL and immediate
// transactions make writers queue on the busy timeout instead of failing.
func setupPooledTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	return openTestDB(t, "?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=on", conns)
}

func openTestDB(t *testing.T, params string, conns int) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "workshop.db") + params
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Worker{},
		&models.Counter{},
		&models.JobCard{},
		&models.JobCardImage{},
		&models.OnSiteJob{},
	))
	return db
}

// testStore is a LocalStore whose deletes can be made to fail.
type testStore struct {
	*storage.LocalStore
	mu         sync.Mutex
	failStore  bool
	failDelete bool
}

func (s *testStore) Store(ctx context.Context, key string, data []byte, contentType string) (storage.StoredObject, error) {
	s.mu.Lock()
	fail := s.failStore
	s.mu.Unlock()
	if fail {
		return storage.StoredObject{}, errors.New("storage unavailable")
	}
	return s.LocalStore.Store(ctx, key, data, contentType)
}

func (s *testStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failDelete
	s.mu.Unlock()
	if fail {
		return errors.New("storage unavailable")
	}
	return s.LocalStore.Delete(ctx, key)
}

func (s *testStore) setFailDelete(fail bool) {
	s.mu.Lock()
	s.failDelete = fail
	s.mu.Unlock()
}

func (s *testStore) setFailStore(fail bool) {
	s.mu.Lock()
	s.failStore = fail
	s.mu.Unlock()
}

func (s *testStore) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	return &testStore{LocalStore: local}
}

func newJobCardService(t *testing.T) (*JobCardService, *gorm.DB, *testStore) {
	t.Helper()
	db := setupTestDB(t)
	store := newTestStore(t)
	sequence := &SequenceGenerator{Now: func() time.Time { return fixedNow }}
	svc := NewJobCardService(db, sequence, storage.NewUploader(store))
	svc.now = func() time.Time { return fixedNow }
	return svc, db, store
}

func validJobCardInput() JobCardInput {
	return JobCardInput{
		CustomerName:    "Ravi Motors",
		CustomerAddress: "12 Industrial Estate, Pune",
		PhoneNumbers:    []string{"9876543210"},
		SrNo:            "SR-100",
		Make:            "Kirloskar",
		HP:              "15",
	}
}

func pngFile(t *testing.T, name string, w, h int) storage.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return storage.File{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}

func pdfFile(name string) storage.File {
	return storage.File{Name: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}
}

func requireKind(t *testing.T, kind utils.ErrorKind, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, utils.KindOf(err), err.Error())
}

func errorDetails(err error) []string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

func containsPrefix(values []string, prefix string) bool {
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}
