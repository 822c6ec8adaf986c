package domain

import "time"

// CategoryList is the single document holding every category name in display order.
type CategoryList struct {
	ID    string
	Names []string
}

// Coupon is a discount code with a percentage and an expiry date.
type Coupon struct {
	ID         string
	Code       string
	Discount   float64
	ValidUntil time.Time
}

// GalleryImage is an image previously uploaded to the shared gallery.
type GalleryImage struct {
	Key string
	URL string
}
