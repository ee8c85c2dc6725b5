package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/yeremiapane/workshop-app/metrics"
	"github.com/yeremiapane/workshop-app/utils"
)

const (
	MaxFileSize    = 10 << 20
	MaxFilesPerReq = 5
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	safeExt         = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
)

// File is an upload received from a client.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Upload is a file that reached the attachment store.
type Upload struct {
	StoredObject
	// ContentType is the content type the client sent, before any transform.
	ContentType string
}

// CheckFiles returns one message per file that cannot be accepted.
func CheckFiles(files []File) []string {
	var problems []string
	if len(files) > MaxFilesPerReq {
		problems = append(problems, fmt.Sprintf("at most %d files can be uploaded at once", MaxFilesPerReq))
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") && f.ContentType != "application/pdf" {
			problems = append(problems, fmt.Sprintf("%s: only images and PDF files are accepted", f.Name))
		}
		if len(f.Data) > MaxFileSize {
			problems = append(problems, fmt.Sprintf("%s: file is larger than %d bytes", f.Name, MaxFileSize))
			continue
		}
		if strings.HasPrefix(f.ContentType, "image/") {
			if err := checkDimensions(f.Data); errors.Is(err, ErrImageTooLarge) {
				problems = append(problems, fmt.Sprintf("%s: image is larger than %d pixels", f.Name, MaxImagePixels))
			}
		}
	}
	return problems
}

// Uploader runs the pre-store transform and writes files to an AttachmentStore.
type Uploader struct {
	store AttachmentStore
}

func NewUploader(store AttachmentStore) *Uploader {
	return &Uploader{store: store}
}

// UploadAll stores every file concurrently. If any upload fails the files
// already stored are deleted again and an upload error is returned; when that
// cleanup also fails the error is a partial failure naming the orphaned keys.
func (u *Uploader) UploadAll(ctx context.Context, files []File) ([]Upload, error) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]Upload, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			up, err := u.Upload(gctx, f)
			if err != nil {
				return err
			}
			results[i] = up
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var stored []Upload
		for _, up := range results {
			if up.Key != "" {
				stored = append(stored, up)
			}
		}
		if orphaned := u.Discard(context.WithoutCancel(ctx), stored); len(orphaned) > 0 {
			return nil, utils.NewPartialFailureError("File upload failed and stored files could not be removed", orphaned, err)
		}
		return nil, utils.NewUploadError(err)
	}
	return results, nil
}

// Upload transforms and stores a single file.
func (u *Uploader) Upload(ctx context.Context, f File) (Upload, error) {
	data, contentType, ext := f.Data, f.ContentType, strings.ToLower(filepath.Ext(f.Name))
	if strings.HasPrefix(f.ContentType, "image/") {
		processed, err := ProcessImage(f.Data)
		if err != nil {
			metrics.AttachmentUploads.WithLabelValues("failed").Inc()
			return Upload{}, errors.Wrapf(err, "failed to process %s", f.Name)
		}
		data, contentType, ext = processed, "image/jpeg", ".jpg"
	}

	obj, err := u.store.Store(ctx, objectKey(f.Name, ext), data, contentType)
	if err != nil {
		metrics.AttachmentUploads.WithLabelValues("failed").Inc()
		return Upload{}, errors.Wrapf(err, "failed to store %s", f.Name)
	}
	metrics.AttachmentUploads.WithLabelValues("success").Inc()
	return Upload{StoredObject: obj, ContentType: f.ContentType}, nil
}

// Discard deletes stored uploads and returns the keys that could not be deleted.
func (u *Uploader) Discard(ctx context.Context, uploads []Upload) []string {
	var failed []string
	for _, up := range uploads {
		if err := u.Delete(ctx, up.Key); err != nil {
			utils.ErrorLogger.WithError(err).Errorf("Orphaned stored file %s", up.Key)
			failed = append(failed, up.Key)
		}
	}
	return failed
}

// Delete removes one stored object by key.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if err := u.store.Delete(ctx, key); err != nil {
		metrics.AttachmentDeletes.WithLabelValues("failed").Inc()
		return err
	}
	metrics.AttachmentDeletes.WithLabelValues("success").Inc()
	return nil
}

// objectKey builds a unique key that keeps a readable part of the original name.
func objectKey(name, ext string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "-"), "-")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "file"
	}
	if !safeExt.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%s-%s%s", base, uuid.NewString(), ext)
}
