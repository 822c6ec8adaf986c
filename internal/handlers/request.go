package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/stylocore/catalog-api/internal/platform/auth"
	"github.com/stylocore/catalog-api/internal/platform/config"
	"github.com/stylocore/catalog-api/internal/services"
)

const (
	maxJSONBodySize     = 256 * 1024
	defaultMaxFileBytes = 10 << 20
	defaultMaxFiles     = 10
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

// UploadLimits bounds multipart uploads.
type UploadLimits struct {
	MaxFileBytes int64
	MaxFiles     int
}

// UploadLimitsFromConfig copies the upload section of the config.
func UploadLimitsFromConfig(cfg config.UploadConfig) UploadLimits {
	return UploadLimits{MaxFileBytes: cfg.MaxFileBytes, MaxFiles: cfg.MaxFiles}
}

func (l UploadLimits) normalise() UploadLimits {
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = defaultMaxFileBytes
	}
	if l.MaxFiles <= 0 {
		l.MaxFiles = defaultMaxFiles
	}
	return l
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxJSONBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeJSONBody reads a bounded body and rejects unknown fields.
func decodeJSONBody(r *http.Request, dst any) error {
	data, err := readLimitedBody(r, maxJSONBodySize)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart parses the form with a total size bound derived from the limits.
func parseMultipart(w http.ResponseWriter, r *http.Request, limits UploadLimits) error {
	limits = limits.normalise()
	total := limits.MaxFileBytes*int64(limits.MaxFiles) + maxJSONBodySize
	r.Body = http.MaxBytesReader(w, r.Body, total)
	if err := r.ParseMultipartForm(limits.MaxFileBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return fmt.Errorf("invalid multipart body: %w", err)
	}
	return nil
}

// formFiles reads every file posted under field. The form must already be parsed.
func formFiles(r *http.Request, field string, limits UploadLimits) ([]services.UploadFile, error) {
	limits = limits.normalise()
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) > limits.MaxFiles {
		return nil, fmt.Errorf("at most %d files may be uploaded at once", limits.MaxFiles)
	}
	files := make([]services.UploadFile, 0, len(headers))
	for _, header := range headers {
		if header.Size > limits.MaxFileBytes {
			return nil, fmt.Errorf("file %q exceeds %d bytes", header.Filename, limits.MaxFileBytes)
		}
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", header.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, limits.MaxFileBytes+1))
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", header.Filename, err)
		}
		if int64(len(data)) > limits.MaxFileBytes {
			return nil, fmt.Errorf("file %q exceeds %d bytes", header.Filename, limits.MaxFileBytes)
		}
		files = append(files, services.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func actorID(ctx context.Context) string {
	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		return ""
	}
	return strings.TrimSpace(session.UID)
}
