package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/stylocore/catalog-api/internal/services"
)

// AdminServices bundles the services served under /admin.
type AdminServices struct {
	Catalog    services.CatalogService
	Gallery    services.GalleryService
	Categories services.CategoryService
	Coupons    services.CouponService
	Orders     services.OrderService
	Bookings   services.BookingService
}

// NewAdminRoutes returns a registrar mounting every admin handler group. Groups whose services are
// missing are left unregistered.
func NewAdminRoutes(svc AdminServices, limits UploadLimits) RouteRegistrar {
	return func(r chi.Router) {
		if svc.Catalog != nil {
			NewProductHandlers(svc.Catalog, limits).Routes(r)
		}
		if svc.Gallery != nil && svc.Categories != nil && svc.Coupons != nil {
			NewMerchandisingHandlers(svc.Gallery, svc.Categories, svc.Coupons, limits).Routes(r)
		}
		if svc.Orders != nil && svc.Bookings != nil {
			NewOrderHandlers(svc.Orders, svc.Bookings).Routes(r)
		}
	}
}
