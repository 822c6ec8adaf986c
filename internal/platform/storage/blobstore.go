package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	downloadTokenMetadataKey = "firebaseStorageDownloadTokens"
	defaultDownloadHost      = "https://firebasestorage.googleapis.com"
)

// ErrObjectExists is returned when Put targets a key that is already taken.
var ErrObjectExists = errors.New("storage: object already exists")

// Object describes a stored blob and the public download URL derived from its token.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	URL         string
}

// BlobStore writes and lists objects in a single Firebase Storage bucket.
type BlobStore struct {
	client       *gcs.Client
	bucket       string
	downloadHost string
	newToken     func() string
}

// BlobStoreOption customises BlobStore behaviour.
type BlobStoreOption func(*BlobStore)

// WithDownloadHost overrides the host used for download URLs, for example when pointing at the emulator.
func WithDownloadHost(host string) BlobStoreOption {
	return func(s *BlobStore) {
		if trimmed := strings.TrimRight(strings.TrimSpace(host), "/"); trimmed != "" {
			s.downloadHost = trimmed
		}
	}
}

// WithTokenGenerator replaces the download token source.
func WithTokenGenerator(fn func() string) BlobStoreOption {
	return func(s *BlobStore) {
		if fn != nil {
			s.newToken = fn
		}
	}
}

// NewBlobStore constructs a BlobStore backed by the provided Cloud Storage client.
func NewBlobStore(client *gcs.Client, bucket string, opts ...BlobStoreOption) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	store := &BlobStore{
		client:       client,
		bucket:       bucket,
		downloadHost: defaultDownloadHost,
		newToken:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Put streams body into key and returns the object with its download URL. Existing objects are
// never overwritten.
func (s *BlobStore) Put(ctx context.Context, key, contentType string, body io.Reader) (Object, error) {
	if s == nil || s.client == nil {
		return Object{}, errors.New("storage: blob store is not initialised")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Object{}, errors.New("storage: object key is required")
	}
	if body == nil {
		return Object{}, errors.New("storage: body is required")
	}

	token := s.newToken()
	handle := s.client.Bucket(s.bucket).Object(key).If(gcs.Conditions{DoesNotExist: true})
	writer := handle.NewWriter(ctx)
	writer.ContentType = strings.TrimSpace(contentType)
	writer.Metadata = map[string]string{downloadTokenMetadataKey: token}

	size, err := io.Copy(writer, body)
	if err != nil {
		_ = writer.Close()
		return Object{}, fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			return Object{}, fmt.Errorf("storage: write %s: %w", key, ErrObjectExists)
		}
		return Object{}, fmt.Errorf("storage: finalise %s: %w", key, err)
	}

	return Object{Key: key, ContentType: writer.ContentType, Size: size, URL: s.DownloadURL(key, token)}, nil
}

// List returns every object beneath prefix that carries a download token, ordered by key.
func (s *BlobStore) List(ctx context.Context, prefix string) ([]Object, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("storage: blob store is not initialised")
	}
	iter := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var objects []Object
	for {
		attrs, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		token := firstToken(attrs.Metadata[downloadTokenMetadataKey])
		if token == "" {
			continue
		}
		objects = append(objects, Object{
			Key:         attrs.Name,
			ContentType: attrs.ContentType,
			Size:        attrs.Size,
			URL:         s.DownloadURL(attrs.Name, token),
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// DownloadURL renders the token-authorised Firebase download URL for key.
func (s *BlobStore) DownloadURL(key, token string) string {
	values := url.Values{}
	values.Set("alt", "media")
	if token != "" {
		values.Set("token", token)
	}
	return fmt.Sprintf("%s/v0/b/%s/o/%s?%s", s.downloadHost, s.bucket, url.PathEscape(key), values.Encode())
}

// Bucket returns the bucket name the store writes to.
func (s *BlobStore) Bucket() string {
	return s.bucket
}

// Firebase stores a comma separated list when several tokens were issued.
func firstToken(raw string) string {
	if idx := strings.IndexByte(raw, ','); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
