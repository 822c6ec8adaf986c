package repositories

import (
	"context"
	"time"

	"github.com/stylocore/catalog-api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	// Insert writes a new product under a generated identifier and returns it with ID and Version set.
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	// Replace overwrites the stored product. A non-zero expected version must match the stored
	// update time or a conflict error is returned.
	Replace(ctx context.Context, product domain.Product, expected time.Time) (domain.Product, error)
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	Tag string
}

// OrderRepository reads order snapshots and mutates their delivery status.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	// UpdateDeliveryStatus writes the deliveryStatus field only.
	UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus) error
}

// CategoryRepository manages the single category list document.
type CategoryRepository interface {
	Load(ctx context.Context) (domain.CategoryList, error)
	// Mutate applies fn to the current names inside a transaction and stores the result. The
	// document is created when none exists.
	Mutate(ctx context.Context, fn func(names []string) ([]string, error)) (domain.CategoryList, error)
}

// CouponRepository persists discount coupons.
type CouponRepository interface {
	Insert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error)
	Delete(ctx context.Context, couponID string) error
	List(ctx context.Context) ([]domain.Coupon, error)
}

// BookingRepository reads and cancels customer bookings.
type BookingRepository interface {
	List(ctx context.Context) ([]domain.Booking, error)
	Delete(ctx context.Context, bookingID string) error
}

// HealthRepository exposes dependency health checks for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
