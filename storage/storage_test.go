package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/workshop-app/utils"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// flakyStore wraps a LocalStore and fails chosen calls.
type flakyStore struct {
	*LocalStore
	mu          sync.Mutex
	failStoreOf string
	failDelete  bool
	// stored receives one value per successful Store. When set, a failing
	// Store waits for one success first.
	stored chan struct{}
}

func (f *flakyStore) Store(ctx context.Context, key string, data []byte, contentType string) (StoredObject, error) {
	f.mu.Lock()
	fail := f.failStoreOf != "" && strings.HasPrefix(key, f.failStoreOf)
	f.mu.Unlock()
	if fail {
		if f.stored != nil {
			<-f.stored
		}
		return StoredObject{}, errors.New("bucket unavailable")
	}
	obj, err := f.LocalStore.Store(ctx, key, data, contentType)
	if err == nil && f.stored != nil {
		f.stored <- struct{}{}
	}
	return obj, err
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errors.New("bucket unavailable")
	}
	return f.LocalStore.Delete(ctx, key)
}

func newFlakyStore(t *testing.T) *flakyStore {
	local, err := NewLocalStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	return &flakyStore{LocalStore: local}
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProcessImageScalesDownWideImages(t *testing.T) {
	out, err := ProcessImage(pngBytes(t, 1000, 400))
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 500, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestProcessImageKeepsNarrowImages(t *testing.T) {
	out, err := ProcessImage(pngBytes(t, 320, 240))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, err := ProcessImage([]byte("not an image"))
	assert.Error(t, err)
}

// pngHeader returns the signature and IHDR chunk of a grayscale PNG. Only the
// header is present, which is all a dimension check reads.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestProcessImageRejectsHugeDimensions(t *testing.T) {
	_, err := ProcessImage(pngHeader(16000, 16000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImageTooLarge))
}

func TestCheckFilesRejectsHugeImages(t *testing.T) {
	problems := CheckFiles([]File{
		{Name: "bomb.png", ContentType: "image/png", Data: pngHeader(16000, 16000)},
		{Name: "fine.png", ContentType: "image/png", Data: pngBytes(t, 64, 64)},
	})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "bomb.png")
}

func TestUploadAllRejectsHugeImageBeforeStoring(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	_, err = NewUploader(store).UploadAll(context.Background(), []File{
		{Name: "bomb.png", ContentType: "image/png", Data: pngHeader(8000, 8000)},
	})
	require.Error(t, err)
	assert.Equal(t, utils.KindUpload, utils.KindOf(err))
	assert.True(t, errors.Is(err, ErrImageTooLarge))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckFiles(t *testing.T) {
	ok := []File{
		{Name: "a.png", ContentType: "image/png", Data: []byte{1}},
		{Name: "b.pdf", ContentType: "application/pdf", Data: []byte{1}},
	}
	assert.Empty(t, CheckFiles(ok))

	bad := []File{
		{Name: "c.exe", ContentType: "application/octet-stream", Data: []byte{1}},
		{Name: "d.png", ContentType: "image/png", Data: make([]byte, MaxFileSize+1)},
	}
	problems := CheckFiles(bad)
	assert.Len(t, problems, 2)

	tooMany := make([]File, MaxFilesPerReq+1)
	for i := range tooMany {
		tooMany[i] = File{Name: "x.pdf", ContentType: "application/pdf"}
	}
	assert.Len(t, CheckFiles(tooMany), 1)
}

func TestObjectKey(t *testing.T) {
	key := objectKey("../../etc/My Photo!.PNG", ".png")
	assert.True(t, strings.HasPrefix(key, "My-Photo-"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, filepath.Base(key), key)

	assert.True(t, strings.HasPrefix(objectKey("???", ".pdf"), "file-"))
	assert.False(t, strings.Contains(objectKey("a", ".p/df"), "/"))
	assert.NotEqual(t, objectKey("a.pdf", ".pdf"), objectKey("a.pdf", ".pdf"))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := store.Store(ctx, "report.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/report.pdf", obj.URL)
	assert.Equal(t, "report.pdf", obj.Key)
	assert.FileExists(t, filepath.Join(store.Dir(), "report.pdf"))

	require.NoError(t, store.Delete(ctx, "report.pdf"))
	assert.NoFileExists(t, filepath.Join(store.Dir(), "report.pdf"))
	assert.NoError(t, store.Delete(ctx, "report.pdf"), "deleting a missing file is not an error")

	_, err = store.Store(ctx, "../escape.pdf", []byte("x"), "application/pdf")
	assert.Error(t, err)
}

func TestUploadAllTransformsImages(t *testing.T) {
	store := newFlakyStore(t)
	uploader := NewUploader(store)

	uploads, err := uploader.UploadAll(context.Background(), []File{
		{Name: "front.png", ContentType: "image/png", Data: pngBytes(t, 800, 800)},
		{Name: "bill.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)
	require.Len(t, uploads, 2)

	assert.True(t, strings.HasSuffix(uploads[0].Key, ".jpg"))
	assert.Equal(t, "image/png", uploads[0].ContentType)
	assert.True(t, strings.HasSuffix(uploads[1].Key, ".pdf"))

	data, err := os.ReadFile(filepath.Join(store.Dir(), uploads[0].Key))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, MaxImageWidth, cfg.Width)
}

func TestUploadAllRemovesStoredFilesOnFailure(t *testing.T) {
	store := newFlakyStore(t)
	store.failStoreOf = "broken"
	store.stored = make(chan struct{}, 2)
	uploader := NewUploader(store)

	_, err := uploader.UploadAll(context.Background(), []File{
		{Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
		{Name: "broken.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	require.Error(t, err)
	assert.Equal(t, utils.KindUpload, utils.KindOf(err))
	assert.Empty(t, storedFiles(t, store.Dir()))
}

func TestUploadAllReportsOrphansWhenCleanupFails(t *testing.T) {
	store := newFlakyStore(t)
	store.failStoreOf = "broken"
	store.failDelete = true
	store.stored = make(chan struct{}, 1)
	uploader := NewUploader(store)

	_, err := uploader.UploadAll(context.Background(), []File{
		{Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
		{Name: "broken.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	require.Error(t, err)
	assert.Equal(t, utils.KindPartialFailure, utils.KindOf(err))

	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Details, 1)
	assert.True(t, strings.HasPrefix(appErr.Details[0], "a-"))
	assert.Equal(t, appErr.Details, storedFiles(t, store.Dir()))
}
