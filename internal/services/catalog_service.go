package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/stylocore/catalog-api/internal/domain"
	"github.com/stylocore/catalog-api/internal/repositories"
)

const (
	minGalleryImages        = 3
	maxGalleryImages        = 5
	defaultGalleryColorName = "Default"
)

// ImageUploader resolves staged files to download URLs.
type ImageUploader interface {
	UploadAll(ctx context.Context, files []UploadFile) ([]string, error)
}

// GalleryLister lists images already present in the gallery.
type GalleryLister interface {
	List(ctx context.Context) ([]GalleryImage, error)
}

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products          repositories.ProductRepository
	Uploader          ImageUploader
	Gallery           GalleryLister
	Publisher         CatalogEventPublisher
	DescriptionPolicy *bluemonday.Policy
	Clock             func() time.Time
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	products  repositories.ProductRepository
	uploader  ImageUploader
	gallery   GalleryLister
	publisher CatalogEventPublisher
	policy    *bluemonday.Policy
	merger    VariantMerger
	validator ProductValidator
	clock     func() time.Time
	logger    logFunc
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	if deps.Uploader == nil {
		return nil, errors.New("catalog service: uploader is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	policy := deps.DescriptionPolicy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	logger := logFunc(deps.Logger)
	if logger == nil {
		logger = nopLogger
	}
	return &catalogService{
		products:  deps.Products,
		uploader:  deps.Uploader,
		gallery:   deps.Gallery,
		publisher: deps.Publisher,
		policy:    policy,
		merger:    NewVariantMerger(),
		validator: NewProductValidator(),
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

func (s *catalogService) Create(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	product, staged, err := s.merger.Apply(s.template(), cmd.Ops)
	if err != nil {
		return Product{}, err
	}
	product.Description = s.policy.Sanitize(product.Description)
	if err := s.validator.Validate(product, ValidationFinal); err != nil {
		return Product{}, err
	}
	if err := s.resolveUploads(ctx, &product, staged); err != nil {
		return Product{}, err
	}

	stored, err := s.products.Insert(ctx, product)
	if err != nil {
		return Product{}, translateRepositoryError(err, nil)
	}
	publishEvent(ctx, s.publisher, s.logger, CatalogEvent{
		Type:       EventProductCreated,
		ProductID:  stored.ID,
		ActorID:    strings.TrimSpace(cmd.ActorID),
		OccurredAt: s.clock(),
	})
	return stored, nil
}

func (s *catalogService) Update(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, invalidField("id", "is required")
	}
	current, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, translateRepositoryError(err, ErrProductNotFound)
	}

	expected := current.Version
	if !cmd.ExpectedVersion.IsZero() {
		if !cmd.ExpectedVersion.Equal(current.Version) {
			return Product{}, fmt.Errorf("%w: product %s changed since version %s", ErrConflictDetected, productID, cmd.ExpectedVersion.Format(time.RFC3339Nano))
		}
		expected = cmd.ExpectedVersion
	}

	merged, staged, err := s.merger.Apply(current, cmd.Ops)
	if err != nil {
		return Product{}, err
	}
	if merged.Description != current.Description {
		merged.Description = s.policy.Sanitize(merged.Description)
	}
	if err := s.validator.Validate(merged, ValidationFinal); err != nil {
		return Product{}, err
	}
	if err := s.resolveUploads(ctx, &merged, staged); err != nil {
		return Product{}, err
	}

	stored, err := s.products.Replace(ctx, merged, expected)
	if err != nil {
		err = translateRepositoryError(err, ErrProductNotFound)
		if errors.Is(err, ErrConflictDetected) {
			s.logger(ctx, "catalog.product.update.conflict", map[string]any{
				"productId": productID,
				"version":   expected.Format(time.RFC3339Nano),
			})
		}
		return Product{}, err
	}
	publishEvent(ctx, s.publisher, s.logger, CatalogEvent{
		Type:       EventProductUpdated,
		ProductID:  stored.ID,
		ActorID:    strings.TrimSpace(cmd.ActorID),
		OccurredAt: s.clock(),
	})
	return stored, nil
}

func (s *catalogService) Delete(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return invalidField("id", "is required")
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return translateRepositoryError(err, ErrProductNotFound)
	}
	publishEvent(ctx, s.publisher, s.logger, CatalogEvent{
		Type:       EventProductDeleted,
		ProductID:  productID,
		OccurredAt: s.clock(),
	})
	return nil
}

func (s *catalogService) Get(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, invalidField("id", "is required")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, translateRepositoryError(err, ErrProductNotFound)
	}
	return product, nil
}

func (s *catalogService) List(ctx context.Context, filter ProductFilter) ([]Product, error) {
	products, err := s.products.List(ctx, repositories.ProductListFilter{Tag: strings.TrimSpace(filter.Tag)})
	if err != nil {
		return nil, translateRepositoryError(err, nil)
	}
	return products, nil
}

func (s *catalogService) CreateFromGallery(ctx context.Context, cmd GalleryProductCommand) (Product, error) {
	for i, op := range cmd.Ops {
		if op.Kind != OpSetField {
			return Product{}, invalidField(fmt.Sprintf("ops[%d]", i), "only setField is allowed for gallery products")
		}
	}
	urls, err := s.selectGalleryImages(ctx, cmd.ImageURLs)
	if err != nil {
		return Product{}, err
	}

	template := s.template()
	template.Colors[0].Name = strings.TrimSpace(cmd.ColorName)
	if template.Colors[0].Name == "" {
		template.Colors[0].Name = defaultGalleryColorName
	}
	template.Colors[0].Images = urls

	product, _, err := s.merger.Apply(template, cmd.Ops)
	if err != nil {
		return Product{}, err
	}
	product.Description = s.policy.Sanitize(product.Description)
	if err := s.validator.Validate(product, ValidationFinal); err != nil {
		return Product{}, err
	}

	stored, err := s.products.Insert(ctx, product)
	if err != nil {
		return Product{}, translateRepositoryError(err, nil)
	}
	publishEvent(ctx, s.publisher, s.logger, CatalogEvent{
		Type:       EventProductCreated,
		ProductID:  stored.ID,
		ActorID:    strings.TrimSpace(cmd.ActorID),
		OccurredAt: s.clock(),
	})
	return stored, nil
}

func (s *catalogService) Preview(ctx context.Context, cmd PreviewProductCommand) (Product, error) {
	base := s.template()
	if productID := strings.TrimSpace(cmd.ProductID); productID != "" {
		current, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return Product{}, translateRepositoryError(err, ErrProductNotFound)
		}
		base = current
	}
	merged, _, err := s.merger.Apply(base, cmd.Ops)
	if err != nil {
		return Product{}, err
	}
	if merged.Description != base.Description || cmd.ProductID == "" {
		merged.Description = s.policy.Sanitize(merged.Description)
	}
	if err := s.validator.Validate(merged, cmd.Mode); err != nil {
		return Product{}, err
	}
	return merged, nil
}

// template is the default single-variant product new submissions start from.
func (s *catalogService) template() Product {
	return Product{
		CreatedAt: s.clock(),
		Tags:      []string{},
		Colors:    []ColorVariant{domain.NewColorVariant()},
	}
}

func (s *catalogService) resolveUploads(ctx context.Context, product *Product, staged []StagedUpload) error {
	if len(staged) == 0 {
		return nil
	}
	files := make([]UploadFile, len(staged))
	for i, upload := range staged {
		files[i] = upload.File
	}
	urls, err := s.uploader.UploadAll(ctx, files)
	if err != nil {
		if !errors.Is(err, ErrAssetUploadFailed) {
			err = fmt.Errorf("%w: %w", ErrAssetUploadFailed, err)
		}
		return err
	}
	return AppendImages(product, staged, urls)
}

func (s *catalogService) selectGalleryImages(ctx context.Context, requested []string) ([]string, error) {
	seen := make(map[string]struct{}, len(requested))
	urls := make([]string, 0, len(requested))
	for _, raw := range requested {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	if len(urls) < minGalleryImages || len(urls) > maxGalleryImages {
		return nil, invalidField("images", "select between %d and %d gallery images", minGalleryImages, maxGalleryImages)
	}
	if s.gallery == nil {
		return urls, nil
	}

	images, err := s.gallery.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(images))
	for _, image := range images {
		known[image.URL] = struct{}{}
	}
	verr := &ValidationError{}
	for i, url := range urls {
		if _, ok := known[url]; !ok {
			verr.add(fmt.Sprintf("images[%d]", i), "is not a gallery image")
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return urls, nil
}
