package services

import (
	"context"
	"errors"
	"sort"

	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
)

// GalleryUploader stores and lists gallery objects.
type GalleryUploader interface {
	UploadObjects(ctx context.Context, files []UploadFile) ([]pstorage.Object, error)
	List(ctx context.Context) ([]pstorage.Object, error)
}

// GalleryServiceDeps bundles constructor inputs for the gallery service.
type GalleryServiceDeps struct {
	Uploader GalleryUploader
}

type galleryService struct {
	uploader GalleryUploader
}

var _ GalleryService = (*galleryService)(nil)

// NewGalleryService constructs the gallery service. The uploader must be bound to the gallery prefix.
func NewGalleryService(deps GalleryServiceDeps) (GalleryService, error) {
	if deps.Uploader == nil {
		return nil, errors.New("gallery service: uploader is required")
	}
	return &galleryService{uploader: deps.Uploader}, nil
}

func (s *galleryService) List(ctx context.Context) ([]GalleryImage, error) {
	objects, err := s.uploader.List(ctx)
	if err != nil {
		return nil, err
	}
	images := toGalleryImages(objects)
	sort.Slice(images, func(i, j int) bool { return images[i].Key < images[j].Key })
	return images, nil
}

// Upload stores files under their own names. A name already present in the gallery fails with
// pstorage.ErrObjectExists inside ErrAssetUploadFailed.
func (s *galleryService) Upload(ctx context.Context, files []UploadFile) ([]GalleryImage, error) {
	if len(files) == 0 {
		return nil, invalidField("files", "at least one file is required")
	}
	objects, err := s.uploader.UploadObjects(ctx, files)
	if err != nil {
		return nil, err
	}
	return toGalleryImages(objects), nil
}

func toGalleryImages(objects []pstorage.Object) []GalleryImage {
	images := make([]GalleryImage, 0, len(objects))
	for _, object := range objects {
		images = append(images, GalleryImage{Key: object.Key, URL: object.URL})
	}
	return images
}
