package controllers_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/router"
	"github.com/yeremiapane/workshop-app/services"
	"github.com/yeremiapane/workshop-app/storage"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	store  *storage.LocalStore
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "workshop.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Worker{},
		&models.Counter{},
		&models.JobCard{},
		&models.JobCardImage{},
		&models.OnSiteJob{},
	))

	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	uploader := storage.NewUploader(store)

	r := router.SetupRouter(router.Options{
		JobCards:  services.NewJobCardService(db, services.NewSequenceGenerator(), uploader),
		OnSite:    services.NewOnSiteService(db),
		Workers:   services.NewWorkerService(db, uploader),
		UploadDir: store.Dir(),
	})
	return &testApp{router: r, db: db, store: store}
}

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, req *http.Request) (int, response) {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (a *testApp) doJSON(t *testing.T, method, url string, body interface{}) (int, response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	return a.do(t, req)
}

type formFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

// multipartRequest builds a form where repeated keys become repeated fields.
func multipartRequest(t *testing.T, method, url string, fields map[string][]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func jobCardFields() map[string][]string {
	return map[string][]string{
		"customer_name":    {"Kulkarni Pumps"},
		"customer_address": {"Gokul Nagar, Nashik"},
		"phone_numbers":    {"9822000000", "0253-111111"},
		"sr_no":            {"KP-77"},
		"make":             {"Texmo"},
		"hp":               {"1500"},
		"warranty":         {"true"},
	}
}
