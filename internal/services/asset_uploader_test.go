package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
)

func TestAssetUploaderKeysAndOrder(t *testing.T) {
	store := newMemoryAssetStore()
	uploader, err := NewAssetUploader(AssetUploaderDeps{Store: store, Prefix: "/products/"})
	require.NoError(t, err)

	files := make([]UploadFile, 6)
	for i := range files {
		files[i] = UploadFile{Name: fmt.Sprintf("shot %d.jpg", i), ContentType: "image/jpeg", Data: []byte{byte(i)}}
	}
	urls, err := uploader.UploadAll(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, urls, len(files))

	seen := map[string]struct{}{}
	for i, url := range urls {
		key := strings.TrimPrefix(url, "https://files.test/")
		require.True(t, strings.HasPrefix(key, "products/"), key)
		rest := strings.TrimPrefix(key, "products/")
		id, name, ok := strings.Cut(rest, "-")
		require.True(t, ok, key)
		assert.Len(t, id, 26, "ulid prefix")
		assert.Equal(t, fmt.Sprintf("shot_%d.jpg", i), name)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, len(files), "every upload gets its own id")
}

func TestAssetUploaderRespectsConcurrencyLimit(t *testing.T) {
	store := newMemoryAssetStore()
	var active, peak atomic.Int32
	var mu sync.Mutex
	store.putFn = func(context.Context, string) error {
		current := active.Add(1)
		mu.Lock()
		if current > peak.Load() {
			peak.Store(current)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}
	uploader, err := NewAssetUploader(AssetUploaderDeps{Store: store, Prefix: "products/", MaxConcurrent: 2})
	require.NoError(t, err)

	files := make([]UploadFile, 8)
	for i := range files {
		files[i] = UploadFile{Name: fmt.Sprintf("%d.png", i), Data: []byte("x")}
	}
	_, err = uploader.UploadAll(context.Background(), files)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 8, store.count())
}

func TestAssetUploaderFailures(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		store := newMemoryAssetStore()
		store.failOn = "bad"
		logs := &logRecorder{}
		uploader, err := NewAssetUploader(AssetUploaderDeps{Store: store, Prefix: "products/", Logger: logs.log})
		require.NoError(t, err)

		_, err = uploader.Upload(context.Background(), UploadFile{Name: "bad.png", Data: []byte("x")})
		require.ErrorIs(t, err, ErrAssetUploadFailed)
		assert.Equal(t, []string{"catalog.asset.upload.failed"}, logs.events())
	})

	t.Run("invalid name", func(t *testing.T) {
		uploader, err := NewAssetUploader(AssetUploaderDeps{Store: newMemoryAssetStore(), Prefix: "products/"})
		require.NoError(t, err)
		_, err = uploader.Upload(context.Background(), UploadFile{Name: "../", Data: []byte("x")})
		require.ErrorIs(t, err, ErrAssetUploadFailed)
	})

	t.Run("existing key is kept", func(t *testing.T) {
		store := newMemoryAssetStore()
		uploader, err := NewAssetUploader(AssetUploaderDeps{
			Store:   store,
			Prefix:  "uploadedImages/",
			Purpose: pstorage.PurposeGalleryImage,
		})
		require.NoError(t, err)
		_, err = uploader.Upload(context.Background(), UploadFile{Name: "look.jpg", Data: []byte("one")})
		require.NoError(t, err)

		_, err = uploader.Upload(context.Background(), UploadFile{Name: "look.jpg", Data: []byte("two")})
		require.ErrorIs(t, err, ErrAssetUploadFailed)
		require.True(t, errors.Is(err, pstorage.ErrObjectExists))
		objects, _ := uploader.List(context.Background())
		require.Len(t, objects, 1)
		assert.EqualValues(t, 3, objects[0].Size)
	})
}

func TestNewAssetUploaderValidatesDeps(t *testing.T) {
	_, err := NewAssetUploader(AssetUploaderDeps{Prefix: "products/"})
	require.Error(t, err)
	_, err = NewAssetUploader(AssetUploaderDeps{Store: newMemoryAssetStore(), Prefix: " "})
	require.Error(t, err)
}
