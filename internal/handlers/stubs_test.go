package handlers

import (
	"context"

	"github.com/stylocore/catalog-api/internal/services"
)

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

type stubCatalogService struct {
	createFn      func(context.Context, services.CreateProductCommand) (services.Product, error)
	updateFn      func(context.Context, services.UpdateProductCommand) (services.Product, error)
	deleteFn      func(context.Context, string) error
	getFn         func(context.Context, string) (services.Product, error)
	listFn        func(context.Context, services.ProductFilter) ([]services.Product, error)
	fromGalleryFn func(context.Context, services.GalleryProductCommand) (services.Product, error)
	previewFn     func(context.Context, services.PreviewProductCommand) (services.Product, error)
}

func (s *stubCatalogService) Create(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
	return s.createFn(ctx, cmd)
}

func (s *stubCatalogService) Update(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
	return s.updateFn(ctx, cmd)
}

func (s *stubCatalogService) Delete(ctx context.Context, productID string) error {
	return s.deleteFn(ctx, productID)
}

func (s *stubCatalogService) Get(ctx context.Context, productID string) (services.Product, error) {
	return s.getFn(ctx, productID)
}

func (s *stubCatalogService) List(ctx context.Context, filter services.ProductFilter) ([]services.Product, error) {
	return s.listFn(ctx, filter)
}

func (s *stubCatalogService) CreateFromGallery(ctx context.Context, cmd services.GalleryProductCommand) (services.Product, error) {
	return s.fromGalleryFn(ctx, cmd)
}

func (s *stubCatalogService) Preview(ctx context.Context, cmd services.PreviewProductCommand) (services.Product, error) {
	return s.previewFn(ctx, cmd)
}

type stubGalleryService struct {
	images   []services.GalleryImage
	uploaded []services.UploadFile
	err      error
}

func (s *stubGalleryService) List(context.Context) ([]services.GalleryImage, error) {
	return s.images, s.err
}

func (s *stubGalleryService) Upload(_ context.Context, files []services.UploadFile) ([]services.GalleryImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.uploaded = append(s.uploaded, files...)
	out := make([]services.GalleryImage, 0, len(files))
	for _, file := range files {
		out = append(out, services.GalleryImage{Key: "uploadedImages/" + file.Name, URL: "https://files.test/uploadedImages/" + file.Name})
	}
	return out, nil
}

type stubCategoryService struct {
	names   []string
	removed string
	err     error
}

func (s *stubCategoryService) List(context.Context) ([]string, error) { return s.names, s.err }

func (s *stubCategoryService) Add(_ context.Context, name string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.names = append(s.names, name)
	return s.names, nil
}

func (s *stubCategoryService) Rename(_ context.Context, index int, name string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if index < 0 || index >= len(s.names) {
		return nil, &services.IndexError{Target: "category", Index: index, Length: len(s.names)}
	}
	s.names[index] = name
	return s.names, nil
}

func (s *stubCategoryService) Remove(_ context.Context, name string) ([]string, error) {
	s.removed = name
	return s.names, s.err
}

type stubCouponService struct {
	created services.Coupon
	err     error
}

func (s *stubCouponService) List(context.Context) ([]services.Coupon, error) {
	return []services.Coupon{s.created}, s.err
}

func (s *stubCouponService) Create(_ context.Context, coupon services.Coupon) (services.Coupon, error) {
	if s.err != nil {
		return services.Coupon{}, s.err
	}
	coupon.ID = "coupon_1"
	s.created = coupon
	return coupon, nil
}

func (s *stubCouponService) Delete(_ context.Context, couponID string) error {
	if couponID != s.created.ID {
		return services.ErrCouponNotFound
	}
	return s.err
}

type stubOrderService struct {
	orders    []services.Order
	lastQuery string
	lastCmd   services.DeliveryStatusCommand
	err       error
}

func (s *stubOrderService) ListOrders(_ context.Context, filter services.OrderFilter) ([]services.Order, error) {
	s.lastQuery = filter.Query
	return s.orders, s.err
}

func (s *stubOrderService) GetOrder(_ context.Context, orderID string) (services.Order, error) {
	for _, order := range s.orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return services.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) SetDeliveryStatus(ctx context.Context, cmd services.DeliveryStatusCommand) (services.Order, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return services.Order{}, s.err
	}
	return s.GetOrder(ctx, cmd.OrderID)
}

type stubBookingService struct {
	bookings  []services.Booking
	cancelled string
	err       error
}

func (s *stubBookingService) List(context.Context) ([]services.Booking, error) {
	return s.bookings, s.err
}

func (s *stubBookingService) Cancel(_ context.Context, bookingID string) error {
	s.cancelled = bookingID
	return s.err
}

var (
	_ services.SystemService   = (*stubSystemService)(nil)
	_ services.CatalogService  = (*stubCatalogService)(nil)
	_ services.GalleryService  = (*stubGalleryService)(nil)
	_ services.CategoryService = (*stubCategoryService)(nil)
	_ services.CouponService   = (*stubCouponService)(nil)
	_ services.OrderService    = (*stubOrderService)(nil)
	_ services.BookingService  = (*stubBookingService)(nil)
)
