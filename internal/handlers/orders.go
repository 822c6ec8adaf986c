package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stylocore/catalog-api/internal/services"
)

// OrderHandlers exposes order search, delivery status and booking endpoints.
type OrderHandlers struct {
	orders   services.OrderService
	bookings services.BookingService
}

// NewOrderHandlers constructs order handlers.
func NewOrderHandlers(orders services.OrderService, bookings services.BookingService) *OrderHandlers {
	return &OrderHandlers{orders: orders, bookings: bookings}
}

// Routes registers the /orders and /bookings endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Put("/orders/{orderID}/status", h.setDeliveryStatus)

	r.Get("/bookings", h.listBookings)
	r.Delete("/bookings/{bookingID}", h.cancelBooking)
}

type deliveryStatusRequest struct {
	Status string `json:"status"`
}

type orderItemPayload struct {
	ProductID   string                      `json:"product_id"`
	Name        string                      `json:"name"`
	Quantity    int                         `json:"quantity"`
	Price       float64                     `json:"price"`
	Brand       string                      `json:"brand"`
	Description string                      `json:"description"`
	Tags        []string                    `json:"tags"`
	Dimensions  dimensionsPayload           `json:"dimensions"`
	Colors      []orderItemColorPayload     `json:"colors"`
	Sizes       map[string]sizeSnapshotItem `json:"sizes"`
	Images      []string                    `json:"images"`
}

type orderItemColorPayload struct {
	Name    string `json:"color_name"`
	HexCode string `json:"hex_code"`
}

type sizeSnapshotItem struct {
	Inventory int     `json:"inventory"`
	Price     float64 `json:"price"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	CustomerName    string             `json:"customer_name"`
	Email           string             `json:"email"`
	Phone           string             `json:"phone"`
	DeliveryAddress string             `json:"delivery_address"`
	City            string             `json:"city"`
	State           string             `json:"state"`
	ZipCode         string             `json:"zip_code"`
	CreatedAt       string             `json:"created_at,omitempty"`
	TotalPrice      float64            `json:"total_price"`
	DeliveryStatus  string             `json:"delivery_status"`
	Items           []orderItemPayload `json:"items"`
}

type bookingPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
}

// listOrders filters by q against order ID and customer name, ignoring case.
func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.orders.ListOrders(ctx, services.OrderFilter{Query: r.URL.Query().Get("q")})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, newOrderPayload(order))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderPayload(order))
}

func (h *OrderHandlers) setDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req deliveryStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	order, err := h.orders.SetDeliveryStatus(ctx, services.DeliveryStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  req.Status,
		ActorID: actorID(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderPayload(order))
}

func (h *OrderHandlers) listBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bookings, err := h.bookings.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]bookingPayload, 0, len(bookings))
	for _, booking := range bookings {
		items = append(items, bookingPayload{ID: booking.ID, Title: booking.Title, Location: booking.Location})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *OrderHandlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.bookings.Cancel(ctx, chi.URLParam(r, "bookingID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		CustomerName:    order.CustomerName,
		Email:           order.Email,
		Phone:           order.Phone,
		DeliveryAddress: order.DeliveryAddress,
		City:            order.City,
		State:           order.State,
		ZipCode:         order.ZipCode,
		TotalPrice:      order.TotalPrice,
		DeliveryStatus:  string(order.DeliveryStatus),
		Items:           make([]orderItemPayload, 0, len(order.Items)),
	}
	if !order.CreatedAt.IsZero() {
		payload.CreatedAt = order.CreatedAt.UTC().Format(time.RFC3339)
	}
	for _, item := range order.Items {
		colors := make([]orderItemColorPayload, 0, len(item.Colors))
		for _, color := range item.Colors {
			colors = append(colors, orderItemColorPayload{Name: color.Name, HexCode: color.HexCode})
		}
		sizes := make(map[string]sizeSnapshotItem, len(item.Sizes))
		for label, stock := range item.Sizes {
			sizes[string(label)] = sizeSnapshotItem{Inventory: stock.Inventory, Price: stock.Price}
		}
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Brand:       item.Brand,
			Description: item.Description,
			Tags:        nonNil(item.Tags),
			Dimensions: dimensionsPayload{
				Length: item.Dimensions.Length,
				Width:  item.Dimensions.Width,
				Height: item.Dimensions.Height,
			},
			Colors: colors,
			Sizes:  sizes,
			Images: nonNil(item.Images),
		})
	}
	return payload
}
