package controllers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/yeremiapane/workshop-app/storage"
	"github.com/yeremiapane/workshop-app/utils"
)

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, utils.NewValidationError("Invalid id", raw)
	}
	return uint(id), nil
}

// parseBoolParam reads an optional boolean query value.
func parseBoolParam(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, utils.NewValidationError("Invalid query value", key+" must be true or false")
	}
	return &v, nil
}

// queryFlag treats a present flag as set, so "?pending" and "?pending=yes"
// both count. Only an explicit false value turns it off.
func queryFlag(c *gin.Context, key string) bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return false
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
		return v
	}
	return true
}

// formList reads a repeated form field. A single value holding a JSON array
// is accepted as well.
func formList(c *gin.Context, key string) ([]string, bool) {
	values, ok := c.GetPostFormArray(key)
	if !ok {
		return nil, false
	}
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var decoded []interface{}
		if err := json.Unmarshal([]byte(values[0]), &decoded); err == nil {
			out := make([]string, 0, len(decoded))
			for _, v := range decoded {
				switch t := v.(type) {
				case string:
					out = append(out, t)
				case float64:
					out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
				}
			}
			return out, true
		}
	}
	return values, true
}

func formString(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

func formBool(c *gin.Context, key string) *bool {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	b := strings.EqualFold(strings.TrimSpace(v), "true")
	return &b
}

func formIDs(c *gin.Context, key string) ([]uint, error) {
	raw, _ := formList(c, key)
	ids := make([]uint, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		id, err := parseID(r)
		if err != nil {
			return nil, utils.NewValidationError("Invalid "+key, r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readFiles loads every uploaded file of field into memory.
func readFiles(c *gin.Context, field string) ([]storage.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, utils.NewValidationError("Invalid multipart form", err.Error())
	}
	headers := form.File[field]
	if len(headers) > storage.MaxFilesPerReq {
		return nil, utils.NewValidationError("Invalid attachments", "at most 5 files can be uploaded at once")
	}

	files := make([]storage.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// readSingleFile returns nil when field carries no file.
func readSingleFile(c *gin.Context, field string) (*storage.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, utils.NewValidationError("Invalid multipart form", err.Error())
	}
	f, err := readFile(fh)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func readFile(fh *multipart.FileHeader) (storage.File, error) {
	if fh.Size > storage.MaxFileSize {
		return storage.File{}, utils.NewValidationError("Invalid attachments", fh.Filename+": file is too large")
	}
	src, err := fh.Open()
	if err != nil {
		return storage.File{}, errors.Wrapf(err, "failed to open upload %s", fh.Filename)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, storage.MaxFileSize+1))
	if err != nil {
		return storage.File{}, errors.Wrapf(err, "failed to read upload %s", fh.Filename)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return storage.File{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}
