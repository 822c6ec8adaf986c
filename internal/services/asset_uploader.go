package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
)

const (
	defaultUploadConcurrency = 4
	uploaderMeterName        = "github.com/stylocore/catalog-api/internal/services/assets"
)

// AssetStore is the blob store surface used for catalog media.
type AssetStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (pstorage.Object, error)
	List(ctx context.Context, prefix string) ([]pstorage.Object, error)
}

// AssetUploaderDeps bundles constructor inputs for the asset uploader.
type AssetUploaderDeps struct {
	Store         AssetStore
	Prefix        string
	Purpose       pstorage.AssetPurpose
	MaxConcurrent int
	NewID         func() string
	Meter         metric.Meter
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

// AssetUploader writes files under unique keys and returns their download URLs. Existing keys are
// never overwritten.
type AssetUploader struct {
	store       AssetStore
	prefix      string
	purpose     pstorage.AssetPurpose
	concurrency int
	newID       func() string
	logger      logFunc

	uploads metric.Int64Counter
	bytes   metric.Int64Counter
}

// NewAssetUploader constructs an uploader for product images unless another purpose is given.
func NewAssetUploader(deps AssetUploaderDeps) (*AssetUploader, error) {
	if deps.Store == nil {
		return nil, errors.New("asset uploader: store is required")
	}
	prefix := strings.TrimSpace(deps.Prefix)
	if prefix == "" {
		return nil, errors.New("asset uploader: prefix is required")
	}
	purpose := deps.Purpose
	if purpose == "" {
		purpose = pstorage.PurposeProductImage
	}
	concurrency := deps.MaxConcurrent
	if concurrency <= 0 {
		concurrency = defaultUploadConcurrency
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := logFunc(deps.Logger)
	if logger == nil {
		logger = nopLogger
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(uploaderMeterName)
	}
	uploads, err := meter.Int64Counter("catalog.assets.uploads",
		metric.WithDescription("Asset uploads by outcome"))
	if err != nil {
		return nil, fmt.Errorf("asset uploader: create upload counter: %w", err)
	}
	written, err := meter.Int64Counter("catalog.assets.bytes",
		metric.WithDescription("Bytes written to the blob store"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("asset uploader: create bytes counter: %w", err)
	}

	return &AssetUploader{
		store:       deps.Store,
		prefix:      prefix,
		purpose:     purpose,
		concurrency: concurrency,
		newID:       newID,
		logger:      logger,
		uploads:     uploads,
		bytes:       written,
	}, nil
}

// Upload stores one file and returns its download URL. Every failure matches ErrAssetUploadFailed.
func (u *AssetUploader) Upload(ctx context.Context, file UploadFile) (string, error) {
	object, err := u.put(ctx, file)
	if err != nil {
		return "", err
	}
	return object.URL, nil
}

// UploadAll uploads files concurrently and returns their URLs in input order.
func (u *AssetUploader) UploadAll(ctx context.Context, files []UploadFile) ([]string, error) {
	objects, err := u.UploadObjects(ctx, files)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(objects))
	for i, object := range objects {
		urls[i] = object.URL
	}
	return urls, nil
}

// UploadObjects uploads files concurrently and returns the stored objects in input order. The first
// failure cancels the remaining uploads; objects already written stay in the bucket.
func (u *AssetUploader) UploadObjects(ctx context.Context, files []UploadFile) ([]pstorage.Object, error) {
	if len(files) == 0 {
		return nil, nil
	}
	objects := make([]pstorage.Object, len(files))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(u.concurrency)
	for i, file := range files {
		group.Go(func() error {
			object, err := u.put(gctx, file)
			if err != nil {
				return err
			}
			objects[i] = object
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return objects, nil
}

// List returns the objects stored under the uploader's prefix.
func (u *AssetUploader) List(ctx context.Context) ([]pstorage.Object, error) {
	return u.store.List(ctx, u.prefix)
}

func (u *AssetUploader) put(ctx context.Context, file UploadFile) (pstorage.Object, error) {
	key, err := pstorage.BuildObjectPath(u.purpose, pstorage.PathParams{
		Prefix:   u.prefix,
		UniqueID: u.newID(),
		FileName: file.Name,
	})
	if err != nil {
		return pstorage.Object{}, fmt.Errorf("%w: %v", ErrAssetUploadFailed, err)
	}

	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}

	object, err := u.store.Put(ctx, key, contentType, bytes.NewReader(file.Data))
	if err != nil {
		u.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		u.logger(ctx, "catalog.asset.upload.failed", map[string]any{
			"key":   key,
			"error": err,
		})
		return pstorage.Object{}, fmt.Errorf("%w: %s: %w", ErrAssetUploadFailed, key, err)
	}
	u.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	u.bytes.Add(ctx, int64(len(file.Data)))
	return object, nil
}
