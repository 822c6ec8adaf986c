package services

import (
	"context"
	"time"

	domain "github.com/stylocore/catalog-api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	ColorVariant       = domain.ColorVariant
	SizeLabel          = domain.SizeLabel
	SizeStock          = domain.SizeStock
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	DeliveryStatus     = domain.DeliveryStatus
	CategoryList       = domain.CategoryList
	Coupon             = domain.Coupon
	Booking            = domain.Booking
	GalleryImage       = domain.GalleryImage
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService orchestrates product edits: merge, validate, upload, then a guarded write.
type CatalogService interface {
	Create(ctx context.Context, cmd CreateProductCommand) (Product, error)
	Update(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	Delete(ctx context.Context, productID string) error
	Get(ctx context.Context, productID string) (Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	// CreateFromGallery builds a single-variant product from previously uploaded gallery images.
	CreateFromGallery(ctx context.Context, cmd GalleryProductCommand) (Product, error)
	// Preview merges the ops and validates the result without uploading or writing anything.
	Preview(ctx context.Context, cmd PreviewProductCommand) (Product, error)
}

// CreateProductCommand creates a product from the default template and the supplied ops.
type CreateProductCommand struct {
	Ops     []EditOp
	ActorID string
}

// UpdateProductCommand applies ops to a stored product. A zero ExpectedVersion guards the write
// with the version observed during the read.
type UpdateProductCommand struct {
	ProductID       string
	Ops             []EditOp
	ExpectedVersion time.Time
	ActorID         string
}

// PreviewProductCommand dry-runs ops against a stored product, or the template when ProductID is empty.
type PreviewProductCommand struct {
	ProductID string
	Ops       []EditOp
	Mode      ValidationMode
}

// GalleryProductCommand describes a product built from gallery images. Ops may only set scalar fields.
type GalleryProductCommand struct {
	Ops       []EditOp
	ColorName string
	ImageURLs []string
	ActorID   string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Tag string
}

// OrderService reads order snapshots and moves them through delivery states.
type OrderService interface {
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	SetDeliveryStatus(ctx context.Context, cmd DeliveryStatusCommand) (Order, error)
}

// OrderFilter matches orders whose ID or customer name contains Query, ignoring case.
type OrderFilter struct {
	Query string
}

// DeliveryStatusCommand changes the delivery status of one order.
type DeliveryStatusCommand struct {
	OrderID string
	Status  string
	ActorID string
}

// CategoryService manages the ordered category name list.
type CategoryService interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, name string) ([]string, error)
	Rename(ctx context.Context, index int, name string) ([]string, error)
	Remove(ctx context.Context, name string) ([]string, error)
}

// CouponService manages discount coupons.
type CouponService interface {
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, coupon Coupon) (Coupon, error)
	Delete(ctx context.Context, couponID string) error
}

// BookingService lists and cancels bookings.
type BookingService interface {
	List(ctx context.Context) ([]Booking, error)
	Cancel(ctx context.Context, bookingID string) error
}

// GalleryService uploads and lists shared gallery images.
type GalleryService interface {
	List(ctx context.Context) ([]GalleryImage, error)
	Upload(ctx context.Context, files []UploadFile) ([]GalleryImage, error)
}

// SystemService exposes health reports for readiness endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
