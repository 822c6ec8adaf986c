package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ValidationMode selects how strictly placeholders are treated.
type ValidationMode int

const (
	// ValidationDraft tolerates empty size placeholders and an empty variant list.
	ValidationDraft ValidationMode = iota
	// ValidationFinal requires every placeholder to be resolved before commit.
	ValidationFinal
)

// ParseValidationMode maps "draft" and "final" onto a mode. Anything else is final.
func ParseValidationMode(raw string) ValidationMode {
	if strings.EqualFold(strings.TrimSpace(raw), "draft") {
		return ValidationDraft
	}
	return ValidationFinal
}

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ProductValidator checks numeric and structural constraints of a product. It never consults
// other products or the category list.
type ProductValidator struct{}

// NewProductValidator returns a validator.
func NewProductValidator() ProductValidator {
	return ProductValidator{}
}

// Validate returns nil or a *ValidationError listing every violation.
func (ProductValidator) Validate(product Product, mode ValidationMode) error {
	verr := &ValidationError{}
	final := mode == ValidationFinal

	if final && strings.TrimSpace(product.Name) == "" {
		verr.add("name", "is required")
	}
	if !(product.Price > 0) || !isFinite(product.Price) {
		verr.add("price", "must be greater than zero")
	}
	if product.Weight < 0 || !isFinite(product.Weight) {
		verr.add("weight", "must not be negative")
	}
	for _, dim := range []struct {
		name  string
		value float64
	}{
		{"dimensions.length", product.Dimensions.Length},
		{"dimensions.width", product.Dimensions.Width},
		{"dimensions.height", product.Dimensions.Height},
	} {
		if !(dim.value > 0) || !isFinite(dim.value) {
			verr.add(dim.name, "must be greater than zero")
		}
	}

	if final && len(product.Colors) == 0 {
		verr.add("colors", "at least one color variant is required")
	}
	for i, variant := range product.Colors {
		if variant.HexCode != "" && !hexColorPattern.MatchString(variant.HexCode) {
			verr.add(fmt.Sprintf("colors[%d].hex_code", i), "must be #RGB or #RRGGBB")
		}
		for size, stock := range variant.Sizes {
			path := sizePath(i, size)
			if !size.Valid() {
				verr.add(path, "unsupported size")
				continue
			}
			validateInventory(verr, path, stock.Inventory, final)
			validateSizePrice(verr, path, stock.Price, final)
		}
	}

	sortViolations(verr.Violations)
	return verr.orNil()
}

func validateInventory(verr *ValidationError, path, raw string, final bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		if final {
			verr.add(path+".inventory", "is required")
		}
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		verr.add(path+".inventory", "must be a non-negative integer")
	}
}

func validateSizePrice(verr *ValidationError, path, raw string, final bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		if final {
			verr.add(path+".price", "is required")
		}
		return
	}
	price, err := parseFiniteFloat(value)
	if err != nil || !(price > 0) {
		verr.add(path+".price", "must be a number greater than zero")
	}
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// parseFiniteFloat rejects the Inf and NaN spellings strconv accepts; JSON cannot encode them.
func parseFiniteFloat(raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if !isFinite(value) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return value, nil
}

// ValidateCoupon checks a coupon before it is stored.
func ValidateCoupon(coupon Coupon) error {
	verr := &ValidationError{}
	if strings.TrimSpace(coupon.Code) == "" {
		verr.add("code", "is required")
	}
	if coupon.Discount < 0 || coupon.Discount > 100 {
		verr.add("discount", "must be between 0 and 100")
	}
	if coupon.ValidUntil.IsZero() {
		verr.add("validUntil", "is required")
	}
	return verr.orNil()
}
