package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryStatus enumerates the delivery states tracked for an order.
type DeliveryStatus string

const (
	DeliveryStatusProcessing DeliveryStatus = "Processing"
	DeliveryStatusDelivered  DeliveryStatus = "Delivered"
	DeliveryStatusCancelled  DeliveryStatus = "Cancelled"
)

var legacyDeliveryStatuses = map[string]DeliveryStatus{
	"processing": DeliveryStatusProcessing,
	"pending":    DeliveryStatusProcessing,
	"shipped":    DeliveryStatusProcessing,
	"in transit": DeliveryStatusProcessing,
	"delivered":  DeliveryStatusDelivered,
	"completed":  DeliveryStatusDelivered,
	"cancelled":  DeliveryStatusCancelled,
	"canceled":   DeliveryStatusCancelled,
}

// ParseDeliveryStatus maps user input onto the enumeration, accepting the legacy free-text spellings.
func ParseDeliveryStatus(raw string) (DeliveryStatus, error) {
	key := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if status, ok := legacyDeliveryStatuses[key]; ok {
		return status, nil
	}
	return "", fmt.Errorf("domain: unsupported delivery status %q", raw)
}

// NormalizeDeliveryStatus converts stored values to the enumeration. Unknown text reads as Processing.
func NormalizeDeliveryStatus(raw string) DeliveryStatus {
	status, err := ParseDeliveryStatus(raw)
	if err != nil {
		return DeliveryStatusProcessing
	}
	return status
}

// SizeStockSnapshot is the frozen inventory and price of one size at checkout time.
type SizeStockSnapshot struct {
	Inventory int
	Price     float64
}

// OrderItemColor is the frozen color of a purchased variant.
type OrderItemColor struct {
	Name    string
	HexCode string
}

// OrderItem is a value copy of the purchased product data. It never references the live product.
type OrderItem struct {
	ProductID   string
	Name        string
	Quantity    int
	Price       float64
	Brand       string
	Description string
	Tags        []string
	Dimensions  Dimensions
	Colors      []OrderItemColor
	Sizes       map[SizeLabel]SizeStockSnapshot
	Images      []string
}

// Clone returns a deep copy of the item.
func (i OrderItem) Clone() OrderItem {
	out := i
	out.Tags = cloneStrings(i.Tags)
	out.Images = cloneStrings(i.Images)
	if i.Colors != nil {
		out.Colors = make([]OrderItemColor, len(i.Colors))
		copy(out.Colors, i.Colors)
	}
	if i.Sizes != nil {
		out.Sizes = make(map[SizeLabel]SizeStockSnapshot, len(i.Sizes))
		for size, stock := range i.Sizes {
			out.Sizes[size] = stock
		}
	}
	return out
}

// Order is a placed order together with its item snapshots.
type Order struct {
	ID              string
	CustomerName    string
	Email           string
	Phone           string
	DeliveryAddress string
	City            string
	State           string
	ZipCode         string
	CreatedAt       time.Time
	TotalPrice      float64
	DeliveryStatus  DeliveryStatus
	Items           []OrderItem
}

// Booking is a customer booking managed from the admin surface.
type Booking struct {
	ID       string
	Title    string
	Location string
}
