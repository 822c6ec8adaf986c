package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	domain "github.com/stylocore/catalog-api/internal/domain"
	"github.com/stylocore/catalog-api/internal/repositories"
)

// OrderServiceDeps bundles constructor inputs for the order service.
type OrderServiceDeps struct {
	Orders    repositories.OrderRepository
	Publisher CatalogEventPublisher
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	publisher CatalogEventPublisher
	clock     func() time.Time
	logger    logFunc
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs the order snapshot service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := logFunc(deps.Logger)
	if logger == nil {
		logger = nopLogger
	}
	return &orderService{
		orders:    deps.Orders,
		publisher: deps.Publisher,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// ListOrders returns orders whose ID or customer name contains the query, ignoring case.
func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, translateRepositoryError(err, nil)
	}
	query := strings.TrimSpace(filter.Query)
	if query == "" {
		return orders, nil
	}
	// Casers are stateful and must not be shared between requests.
	fold := cases.Fold()
	needle := fold.String(query)
	matched := make([]Order, 0, len(orders))
	for _, order := range orders {
		if strings.Contains(fold.String(order.ID), needle) || strings.Contains(fold.String(order.CustomerName), needle) {
			matched = append(matched, order)
		}
	}
	return matched, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, invalidField("id", "is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, translateRepositoryError(err, ErrOrderNotFound)
	}
	return order, nil
}

// SetDeliveryStatus writes the status field only and re-reads the order.
func (s *orderService) SetDeliveryStatus(ctx context.Context, cmd DeliveryStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, invalidField("id", "is required")
	}
	status, err := domain.ParseDeliveryStatus(cmd.Status)
	if err != nil {
		return Order{}, invalidField("deliveryStatus", "must be one of Processing, Delivered, Cancelled")
	}
	if err := s.orders.UpdateDeliveryStatus(ctx, orderID, status); err != nil {
		return Order{}, translateRepositoryError(err, ErrOrderNotFound)
	}
	publishEvent(ctx, s.publisher, s.logger, CatalogEvent{
		Type:       EventOrderStatusChanged,
		OrderID:    orderID,
		Status:     string(status),
		ActorID:    strings.TrimSpace(cmd.ActorID),
		OccurredAt: s.clock(),
	})
	return s.GetOrder(ctx, orderID)
}

// SnapshotItem freezes one color variant of a product into an order item. Sizes whose text does
// not parse are left out of the snapshot.
func SnapshotItem(product Product, colorIndex, quantity int) (OrderItem, error) {
	if colorIndex < 0 || colorIndex >= len(product.Colors) {
		return OrderItem{}, &IndexError{Target: "variant", Index: colorIndex, Length: len(product.Colors)}
	}
	if quantity <= 0 {
		return OrderItem{}, invalidField("quantity", "must be greater than zero")
	}
	source := product.Clone()
	variant := source.Colors[colorIndex]

	sizes := make(map[SizeLabel]domain.SizeStockSnapshot, len(variant.Sizes))
	for label, stock := range variant.Sizes {
		inventory, err := strconv.Atoi(strings.TrimSpace(stock.Inventory))
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(stock.Price), 64)
		if err != nil {
			continue
		}
		sizes[label] = domain.SizeStockSnapshot{Inventory: inventory, Price: price}
	}

	return OrderItem{
		ProductID:   source.ID,
		Name:        source.Name,
		Quantity:    quantity,
		Price:       source.Price,
		Brand:       source.Brand,
		Description: source.Description,
		Tags:        source.Tags,
		Dimensions:  source.Dimensions,
		Colors:      []domain.OrderItemColor{{Name: variant.Name, HexCode: variant.HexCode}},
		Sizes:       sizes,
		Images:      variant.Images,
	}, nil
}
