package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LocalStore writes attachments to a directory served by the router under
// /uploads. Used for development and tests.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating upload directory %s", dir)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) path(key string) (string, error) {
	if key == "" || filepath.Base(key) != key {
		return "", errors.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *LocalStore) Store(ctx context.Context, key string, data []byte, contentType string) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	path, err := s.path(key)
	if err != nil {
		return StoredObject{}, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return StoredObject{}, errors.Wrapf(err, "error saving file %s", key)
	}
	return StoredObject{URL: s.baseURL + "/" + url.PathEscape(key), Key: key}, nil
}

// Delete removes the file for key. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "error deleting file %s", key)
	}
	return nil
}
