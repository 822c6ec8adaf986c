package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/stylocore/catalog-api/internal/domain"
	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
)

type catalogFixture struct {
	service   CatalogService
	repo      *memoryProductRepo
	store     *memoryAssetStore
	publisher *recordingPublisher
	logs      *logRecorder
}

func newCatalogFixture(t *testing.T) catalogFixture {
	t.Helper()
	repo := newMemoryProductRepo()
	store := newMemoryAssetStore()
	publisher := &recordingPublisher{}
	logs := &logRecorder{}

	var seq atomic.Int64
	uploader, err := NewAssetUploader(AssetUploaderDeps{
		Store:  store,
		Prefix: "products/",
		NewID: func() string {
			return fmt.Sprintf("01TEST%04d", seq.Add(1))
		},
		Logger: logs.log,
	})
	require.NoError(t, err)

	gallery := newMemoryGallery(t, store)

	service, err := NewCatalogService(CatalogServiceDeps{
		Products:  repo,
		Uploader:  uploader,
		Gallery:   gallery,
		Publisher: publisher,
		Clock:     fixedClock,
		Logger:    logs.log,
	})
	require.NoError(t, err)
	return catalogFixture{service: service, repo: repo, store: store, publisher: publisher, logs: logs}
}

func newMemoryGallery(t *testing.T, store *memoryAssetStore) GalleryService {
	t.Helper()
	uploader, err := NewAssetUploader(AssetUploaderDeps{
		Store:   store,
		Prefix:  "uploadedImages/",
		Purpose: pstorage.PurposeGalleryImage,
	})
	require.NoError(t, err)
	gallery, err := NewGalleryService(GalleryServiceDeps{Uploader: uploader})
	require.NoError(t, err)
	return gallery
}

func redShirtOps() []EditOp {
	return []EditOp{
		{Kind: OpSetField, Path: "name", Value: "Red Shirt"},
		{Kind: OpSetField, Path: "price", Value: "19.99"},
		{Kind: OpSetField, Path: "dimensions.length", Value: "10"},
		{Kind: OpSetField, Path: "dimensions.width", Value: "20"},
		{Kind: OpSetField, Path: "dimensions.height", Value: "30"},
		{Kind: OpSetVariantField, Index: 0, Field: VariantFieldColorName, Value: "Red"},
		{Kind: OpSetVariantField, Index: 0, Field: VariantFieldHexCode, Value: "#FF0000"},
		{Kind: OpSetSizeField, Index: 0, Size: "M", Field: SizeFieldInventory, Value: "30"},
		{Kind: OpSetSizeField, Index: 0, Size: "M", Field: SizeFieldPrice, Value: "19.99"},
	}
}

func TestCatalogServiceCreateStoresNumericFields(t *testing.T) {
	f := newCatalogFixture(t)

	created, err := f.service.Create(context.Background(), CreateProductCommand{Ops: redShirtOps(), ActorID: "admin-1"})
	require.NoError(t, err)

	assert.Equal(t, "prod_1", created.ID)
	assert.Equal(t, 19.99, created.Price)
	assert.Equal(t, domain.Dimensions{Length: 10, Width: 20, Height: 30}, created.Dimensions)
	assert.Equal(t, fixedClock(), created.CreatedAt)
	require.Len(t, created.Colors, 1)
	assert.Equal(t, SizeStock{Inventory: "30", Price: "19.99"}, created.Colors[0].Sizes[domain.SizeM])
	assert.False(t, created.Version.IsZero())

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, CatalogEvent{
		Type:       EventProductCreated,
		ProductID:  "prod_1",
		ActorID:    "admin-1",
		OccurredAt: fixedClock(),
	}, f.publisher.events[0])
}

func TestCatalogServiceCreateUploadsStagedImages(t *testing.T) {
	f := newCatalogFixture(t)
	ops := append(redShirtOps(), EditOp{
		Kind:  OpAttachImages,
		Index: 0,
		Files: []UploadFile{
			{Name: "front.png", ContentType: "image/png", Data: []byte("front")},
			{Name: "back side.png", Data: []byte("\x89PNG\r\n\x1a\nrest")},
		},
	})

	created, err := f.service.Create(context.Background(), CreateProductCommand{Ops: ops})
	require.NoError(t, err)

	images := created.Colors[0].Images
	require.Len(t, images, 2)
	assert.True(t, strings.HasPrefix(images[0], "https://files.test/products/"))
	assert.True(t, strings.HasSuffix(images[0], "-front.png"))
	assert.True(t, strings.HasSuffix(images[1], "-back_side.png"))
	objects, _ := f.store.List(context.Background(), "products/")
	for _, object := range objects {
		if strings.HasSuffix(object.Key, "back_side.png") {
			assert.Equal(t, "image/png", object.ContentType)
		}
	}
}

func TestCatalogServiceCreateWritesNothingOnFailure(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		f := newCatalogFixture(t)
		ops := append(redShirtOps(),
			EditOp{Kind: OpSetField, Path: "price", Value: "0"},
			EditOp{Kind: OpAttachImages, Index: 0, Files: []UploadFile{{Name: "a.png", Data: []byte("a")}}},
		)
		_, err := f.service.Create(context.Background(), CreateProductCommand{Ops: ops})
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Zero(t, f.repo.inserts)
		assert.Zero(t, f.store.count(), "validation must run before uploads")
	})

	t.Run("upload", func(t *testing.T) {
		f := newCatalogFixture(t)
		f.store.failOn = "broken"
		ops := append(redShirtOps(), EditOp{Kind: OpAttachImages, Index: 0, Files: []UploadFile{
			{Name: "ok.png", Data: []byte("a")},
			{Name: "broken.png", Data: []byte("b")},
		}})
		_, err := f.service.Create(context.Background(), CreateProductCommand{Ops: ops})
		require.ErrorIs(t, err, ErrAssetUploadFailed)
		assert.Zero(t, f.repo.inserts)
		assert.Empty(t, f.publisher.events)
		assert.Contains(t, f.logs.events(), "catalog.asset.upload.failed")
	})

	t.Run("placeholder left behind", func(t *testing.T) {
		f := newCatalogFixture(t)
		ops := append(redShirtOps(), EditOp{Kind: OpEnableSize, Index: 0, Size: "L"})
		_, err := f.service.Create(context.Background(), CreateProductCommand{Ops: ops})
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Zero(t, f.repo.inserts)
	})
}

func TestCatalogServiceCreateSanitisesDescription(t *testing.T) {
	f := newCatalogFixture(t)
	ops := append(redShirtOps(), EditOp{Kind: OpSetField, Path: "description", Value: `<p>Soft <b>cotton</b></p><script>alert(1)</script>`})

	created, err := f.service.Create(context.Background(), CreateProductCommand{Ops: ops})
	require.NoError(t, err)
	assert.Equal(t, "<p>Soft <b>cotton</b></p>", created.Description)
}

func TestCatalogServiceUpdateMergesAndAppendsImages(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	created, err := f.service.Create(ctx, CreateProductCommand{Ops: append(redShirtOps(), EditOp{
		Kind: OpAttachImages, Index: 0, Files: []UploadFile{{Name: "a.png", Data: []byte("a")}},
	})})
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, UpdateProductCommand{
		ProductID: created.ID,
		Ops: []EditOp{
			{Kind: OpSetSizeField, Index: 0, Size: "M", Field: SizeFieldInventory, Value: "28"},
			{Kind: OpAttachImages, Index: 0, Files: []UploadFile{{Name: "b.png", Data: []byte("b")}}},
		},
		ExpectedVersion: created.Version,
	})
	require.NoError(t, err)

	require.Len(t, updated.Colors[0].Images, 2)
	assert.Equal(t, created.Colors[0].Images[0], updated.Colors[0].Images[0])
	assert.True(t, strings.HasSuffix(updated.Colors[0].Images[1], "-b.png"))
	assert.Equal(t, SizeStock{Inventory: "28", Price: "19.99"}, updated.Colors[0].Sizes[domain.SizeM])
	assert.Equal(t, created.Name, updated.Name)
	assert.True(t, updated.Version.After(created.Version))
	assert.Equal(t, EventProductUpdated, f.publisher.events[len(f.publisher.events)-1].Type)
}

func TestCatalogServiceUpdateDetectsConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("stale expected version", func(t *testing.T) {
		f := newCatalogFixture(t)
		created, err := f.service.Create(ctx, CreateProductCommand{Ops: redShirtOps()})
		require.NoError(t, err)
		f.repo.touch(created.ID)

		_, err = f.service.Update(ctx, UpdateProductCommand{
			ProductID:       created.ID,
			Ops:             []EditOp{{Kind: OpAttachImages, Index: 0, Files: []UploadFile{{Name: "x.png", Data: []byte("x")}}}},
			ExpectedVersion: created.Version,
		})
		require.ErrorIs(t, err, ErrConflictDetected)
		assert.Zero(t, f.repo.replaces)
		assert.Zero(t, f.store.count(), "conflict must be detected before uploading")
	})

	t.Run("concurrent write between read and replace", func(t *testing.T) {
		f := newCatalogFixture(t)
		created, err := f.service.Create(ctx, CreateProductCommand{Ops: redShirtOps()})
		require.NoError(t, err)

		f.store.putFn = func(context.Context, string) error {
			f.repo.touch(created.ID)
			return nil
		}
		_, err = f.service.Update(ctx, UpdateProductCommand{
			ProductID: created.ID,
			Ops:       []EditOp{{Kind: OpAttachImages, Index: 0, Files: []UploadFile{{Name: "x.png", Data: []byte("x")}}}},
		})
		require.ErrorIs(t, err, ErrConflictDetected)
		assert.Contains(t, f.logs.events(), "catalog.product.update.conflict")
	})
}

func TestCatalogServiceUpdateFailuresKeepStoredDocument(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	created, err := f.service.Create(ctx, CreateProductCommand{Ops: redShirtOps()})
	require.NoError(t, err)

	_, err = f.service.Update(ctx, UpdateProductCommand{ProductID: "missing"})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.service.Update(ctx, UpdateProductCommand{
		ProductID: created.ID,
		Ops:       []EditOp{{Kind: OpRemoveVariant, Index: 4}},
	})
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	f.store.failOn = "late"
	_, err = f.service.Update(ctx, UpdateProductCommand{
		ProductID: created.ID,
		Ops: []EditOp{
			{Kind: OpSetField, Path: "name", Value: "Renamed"},
			{Kind: OpAttachImages, Index: 0, Files: []UploadFile{{Name: "late.png", Data: []byte("x")}}},
		},
	})
	require.ErrorIs(t, err, ErrAssetUploadFailed)

	stored, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
	assert.Zero(t, f.repo.replaces)
}

func TestCatalogServiceDeleteKeepsOrderSnapshots(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	created, err := f.service.Create(ctx, CreateProductCommand{Ops: []EditOp{
		{Kind: OpSetField, Path: "name", Value: "Red Shirt"},
		{Kind: OpSetField, Path: "price", Value: "25"},
		{Kind: OpSetField, Path: "dimensions.length", Value: "1"},
		{Kind: OpSetField, Path: "dimensions.width", Value: "1"},
		{Kind: OpSetField, Path: "dimensions.height", Value: "1"},
		{Kind: OpSetVariantField, Index: 0, Field: VariantFieldColorName, Value: "Red"},
		{Kind: OpSetSizeField, Index: 0, Size: "M", Field: SizeFieldInventory, Value: "10"},
		{Kind: OpSetSizeField, Index: 0, Size: "M", Field: SizeFieldPrice, Value: "25"},
		{Kind: OpSetSizeField, Index: 0, Size: "L", Field: SizeFieldInventory, Value: "5"},
		{Kind: OpSetSizeField, Index: 0, Size: "L", Field: SizeFieldPrice, Value: "25"},
	}})
	require.NoError(t, err)

	item, err := SnapshotItem(created, 0, 1)
	require.NoError(t, err)
	orders := newMemoryOrderRepo()
	order, err := orders.Insert(ctx, domain.Order{ID: "order_1", CustomerName: "Asha", Items: []domain.OrderItem{item}})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, created.ID))
	_, err = f.service.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrProductNotFound)

	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	snapshot := stored.Items[0]
	assert.Equal(t, []domain.OrderItemColor{{Name: "Red"}}, snapshot.Colors)
	assert.Equal(t, map[SizeLabel]domain.SizeStockSnapshot{
		domain.SizeM: {Inventory: 10, Price: 25},
		domain.SizeL: {Inventory: 5, Price: 25},
	}, snapshot.Sizes)

	err = f.service.Delete(ctx, created.ID)
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, EventProductDeleted, f.publisher.events[len(f.publisher.events)-1].Type)
}

func TestCatalogServiceCreateFromGallery(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	gallery := newMemoryGallery(t, f.store)
	uploaded, err := gallery.Upload(ctx, []UploadFile{
		{Name: "one.jpg", Data: []byte("1")},
		{Name: "two.jpg", Data: []byte("2")},
		{Name: "three.jpg", Data: []byte("3")},
	})
	require.NoError(t, err)
	urls := []string{uploaded[0].URL, uploaded[1].URL, uploaded[2].URL}

	scalarOps := []EditOp{
		{Kind: OpSetField, Path: "name", Value: "Gallery Tote"},
		{Kind: OpSetField, Path: "price", Value: "40"},
		{Kind: OpSetField, Path: "dimensions.length", Value: "30"},
		{Kind: OpSetField, Path: "dimensions.width", Value: "10"},
		{Kind: OpSetField, Path: "dimensions.height", Value: "40"},
	}

	t.Run("too few images", func(t *testing.T) {
		_, err := f.service.CreateFromGallery(ctx, GalleryProductCommand{Ops: scalarOps, ImageURLs: []string{urls[0], urls[0], urls[1]}})
		assert.Equal(t, []string{"images"}, violationFields(t, err))
	})

	t.Run("unknown image", func(t *testing.T) {
		_, err := f.service.CreateFromGallery(ctx, GalleryProductCommand{Ops: scalarOps, ImageURLs: append(urls[:2:2], "https://elsewhere.test/x.jpg")})
		assert.Equal(t, []string{"images[2]"}, violationFields(t, err))
	})

	t.Run("variant ops are refused", func(t *testing.T) {
		_, err := f.service.CreateFromGallery(ctx, GalleryProductCommand{Ops: []EditOp{{Kind: OpAddVariant}}, ImageURLs: urls})
		require.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("creates single default variant", func(t *testing.T) {
		created, err := f.service.CreateFromGallery(ctx, GalleryProductCommand{Ops: scalarOps, ImageURLs: urls, ActorID: "admin-1"})
		require.NoError(t, err)
		require.Len(t, created.Colors, 1)
		assert.Equal(t, defaultGalleryColorName, created.Colors[0].Name)
		assert.Equal(t, urls, created.Colors[0].Images)
		assert.Empty(t, created.Colors[0].Sizes)
	})
}

func TestCatalogServicePreviewDoesNotWrite(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	draft, err := f.service.Preview(ctx, PreviewProductCommand{
		Ops:  append(redShirtOps(), EditOp{Kind: OpEnableSize, Index: 0, Size: "S"}),
		Mode: ValidationDraft,
	})
	require.NoError(t, err)
	assert.Contains(t, draft.Colors[0].Sizes, domain.SizeS)

	_, err = f.service.Preview(ctx, PreviewProductCommand{
		Ops:  append(redShirtOps(), EditOp{Kind: OpEnableSize, Index: 0, Size: "S"}),
		Mode: ValidationFinal,
	})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Zero(t, f.repo.inserts)

	_, err = f.service.Preview(ctx, PreviewProductCommand{ProductID: "missing"})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogServicePreviewSanitisesDescription(t *testing.T) {
	f := newCatalogFixture(t)
	ops := append(redShirtOps(), EditOp{Kind: OpSetField, Path: "description", Value: `<p>Soft <b>cotton</b></p><script>alert(1)</script>`})

	preview, err := f.service.Preview(context.Background(), PreviewProductCommand{Ops: ops, Mode: ValidationFinal})
	require.NoError(t, err)
	assert.Equal(t, "<p>Soft <b>cotton</b></p>", preview.Description)
}

func TestCatalogServiceListAndPublishFailures(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.publisher.err = errors.New("pubsub down")

	ops := append(redShirtOps(), EditOp{Kind: OpSetField, Path: "tags", Values: []string{"shirts"}})
	_, err := f.service.Create(ctx, CreateProductCommand{Ops: ops})
	require.NoError(t, err, "publish failures must not fail the write")
	assert.Contains(t, f.logs.events(), eventPublishFailedLogKey)

	_, err = f.service.Create(ctx, CreateProductCommand{Ops: redShirtOps()})
	require.NoError(t, err)

	tagged, err := f.service.List(ctx, ProductFilter{Tag: "shirts"})
	require.NoError(t, err)
	assert.Len(t, tagged, 1)
	all, err := f.service.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCatalogServiceTranslatesRepositoryErrors(t *testing.T) {
	f := newCatalogFixture(t)
	f.repo.insertErr = errRepoUnavailable

	_, err := f.service.Create(context.Background(), CreateProductCommand{Ops: redShirtOps()})
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestNewCatalogServiceRequiresDependencies(t *testing.T) {
	_, err := NewCatalogService(CatalogServiceDeps{})
	require.Error(t, err)
	_, err = NewCatalogService(CatalogServiceDeps{Products: newMemoryProductRepo()})
	require.Error(t, err)
}

func TestSnapshotItemIsIndependentOfProduct(t *testing.T) {
	product := sampleProduct()
	item, err := SnapshotItem(product, 0, 2)
	require.NoError(t, err)

	product.Name = "Changed"
	product.Colors[0].Images[0] = "https://files.test/changed.png"
	product.Colors[0].Sizes[domain.SizeM] = SizeStock{Inventory: "0", Price: "1"}
	product.Tags[0] = "changed"

	assert.Equal(t, "Red Shirt", item.Name)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "https://files.test/a.png", item.Images[0])
	assert.Equal(t, domain.SizeStockSnapshot{Inventory: 10, Price: 25}, item.Sizes[domain.SizeM])
	assert.Equal(t, []string{"shirts"}, item.Tags)

	_, err = SnapshotItem(product, 3, 1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = SnapshotItem(product, 0, 0)
	require.ErrorIs(t, err, ErrValidationFailed)
}
