package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"

	"github.com/stylocore/catalog-api/internal/domain"
	pfirestore "github.com/stylocore/catalog-api/internal/platform/firestore"
	"github.com/stylocore/catalog-api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository reads order snapshots from the orders collection.
type OrderRepository struct {
	base *pfirestore.BaseRepository[domain.Order]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base: pfirestore.NewBaseRepository[domain.Order](provider, ordersCollection, encodeOrder, decodeOrder),
	}, nil
}

// Insert stores a new order. Checkout lives outside this service; the method backs fixtures and
// imports.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if order.ID != "" {
		if _, err := r.base.Set(ctx, order.ID, order); err != nil {
			return domain.Order{}, err
		}
		return order, nil
	}
	id, _, err := r.base.Add(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	order.ID = id
	return order, nil
}

// FindByID loads an order by document ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order := doc.Data
	order.ID = doc.ID
	return order, nil
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	docs, err := r.base.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order := doc.Data
		order.ID = doc.ID
		orders = append(orders, order)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateDeliveryStatus writes the deliveryStatus field and nothing else.
func (r *OrderRepository) UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	_, err := r.base.Update(ctx, orderID, []firestore.Update{
		{Path: "deliveryStatus", Value: string(status)},
	}, firestore.Exists)
	return err
}

func encodeOrder(_ context.Context, order domain.Order) (any, error) {
	items := make([]any, 0, len(order.Items))
	for _, item := range order.Items {
		colors := make([]any, 0, len(item.Colors))
		for _, color := range item.Colors {
			colors = append(colors, map[string]any{"color_name": color.Name, "hex_code": color.HexCode})
		}
		sizes := make(map[string]any, len(item.Sizes))
		for label, stock := range item.Sizes {
			sizes[string(label)] = map[string]any{"inventory": stock.Inventory, "price": stock.Price}
		}
		items = append(items, map[string]any{
			"productId":       item.ProductID,
			"name":            item.Name,
			"quantity":        item.Quantity,
			"price":           item.Price,
			"brand":           item.Brand,
			"description":     item.Description,
			"tags":            nonNilStrings(item.Tags),
			"dimensions":      encodeDimensions(item.Dimensions),
			"colors":          colors,
			"sizes_inventory": sizes,
			"images":          nonNilStrings(item.Images),
		})
	}
	status := order.DeliveryStatus
	if status == "" {
		status = domain.DeliveryStatusProcessing
	}
	return map[string]any{
		"name":            order.CustomerName,
		"email":           order.Email,
		"phoneNumber":     order.Phone,
		"deliveryAddress": order.DeliveryAddress,
		"city":            order.City,
		"state":           order.State,
		"zipCode":         order.ZipCode,
		"createdAt":       order.CreatedAt.UTC(),
		"totalPrice":      order.TotalPrice,
		"deliveryStatus":  string(status),
		"items":           items,
	}, nil
}

func decodeOrder(_ context.Context, snap *firestore.DocumentSnapshot) (domain.Order, error) {
	return orderFromMap(snap.Data())
}

func orderFromMap(data map[string]any) (domain.Order, error) {
	order := domain.Order{
		CustomerName:    stringField(data, "name"),
		Email:           stringField(data, "email"),
		Phone:           stringField(data, "phoneNumber"),
		DeliveryAddress: stringField(data, "deliveryAddress"),
		City:            stringField(data, "city"),
		State:           stringField(data, "state"),
		ZipCode:         stringField(data, "zipCode"),
		DeliveryStatus:  domain.NormalizeDeliveryStatus(stringField(data, "deliveryStatus")),
	}
	var err error
	if order.CreatedAt, err = timeField(data, "createdAt"); err != nil {
		return domain.Order{}, err
	}
	if order.TotalPrice, err = floatField(data, "totalPrice"); err != nil {
		return domain.Order{}, fmt.Errorf("totalPrice: %w", err)
	}

	for i, raw := range mapSlice(data["items"]) {
		item, err := orderItemFromMap(raw)
		if err != nil {
			return domain.Order{}, fmt.Errorf("items[%d]: %w", i, err)
		}
		order.Items = append(order.Items, item)
	}
	return order, nil
}

func orderItemFromMap(raw map[string]any) (domain.OrderItem, error) {
	item := domain.OrderItem{
		ProductID:   stringField(raw, "productId"),
		Name:        stringField(raw, "name"),
		Brand:       stringField(raw, "brand"),
		Description: stringField(raw, "description"),
		Tags:        stringSlice(raw["tags"]),
		Images:      stringSlice(raw["images"]),
		Sizes:       map[domain.SizeLabel]domain.SizeStockSnapshot{},
	}
	var err error
	if item.Quantity, err = toInt(raw["quantity"]); err != nil {
		return item, fmt.Errorf("quantity: %w", err)
	}
	if item.Price, err = floatField(raw, "price"); err != nil {
		return item, fmt.Errorf("price: %w", err)
	}
	if dims := mapField(raw, "dimensions"); dims != nil {
		if item.Dimensions, err = dimensionsFromMap(dims); err != nil {
			return item, err
		}
	}
	for _, color := range mapSlice(raw["colors"]) {
		item.Colors = append(item.Colors, domain.OrderItemColor{
			Name:    stringField(color, "color_name"),
			HexCode: stringField(color, "hex_code"),
		})
	}
	for key, value := range mapField(raw, "sizes_inventory") {
		label, err := domain.ParseSizeLabel(key)
		if err != nil {
			// snapshots are read-only history; skip sizes that no longer parse
			continue
		}
		stock, _ := value.(map[string]any)
		inventory, err := toInt(stock["inventory"])
		if err != nil {
			return item, fmt.Errorf("sizes_inventory.%s.inventory: %w", key, err)
		}
		price, err := toFloat(stock["price"])
		if err != nil {
			return item, fmt.Errorf("sizes_inventory.%s.price: %w", key, err)
		}
		item.Sizes[label] = domain.SizeStockSnapshot{Inventory: inventory, Price: price}
	}
	return item, nil
}
