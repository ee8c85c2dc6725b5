package config

import (
	"github.com/pkg/errors"

	"github.com/yeremiapane/workshop-app/storage"
)

// NewAttachmentStore builds the store selected by STORAGE_DRIVER. The local
// store also returns the directory the router serves under /uploads.
func NewAttachmentStore(cfg *Config) (storage.AttachmentStore, string, error) {
	switch cfg.StorageDriver {
	case "s3":
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UseSSL:          cfg.S3UseSSL,
			PublicBaseURL:   cfg.S3PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	case "local":
		store, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL+"/uploads")
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	default:
		return nil, "", errors.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
