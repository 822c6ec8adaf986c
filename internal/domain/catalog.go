package domain

import (
	"fmt"
	"strings"
	"time"
)

// SizeLabel enumerates the garment sizes a variant may carry.
type SizeLabel string

const (
	SizeXS   SizeLabel = "XS"
	SizeS    SizeLabel = "S"
	SizeM    SizeLabel = "M"
	SizeL    SizeLabel = "L"
	SizeXL   SizeLabel = "XL"
	SizeXXL  SizeLabel = "XXL"
	SizeXXXL SizeLabel = "XXXL"
)

// SizeLabels lists every supported size in display order.
var SizeLabels = []SizeLabel{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeXXXL}

// ParseSizeLabel normalises raw input to a SizeLabel, rejecting values outside the enumeration.
func ParseSizeLabel(raw string) (SizeLabel, error) {
	candidate := SizeLabel(strings.ToUpper(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("domain: unsupported size %q", raw)
}

// Valid reports whether the label is part of the fixed size enumeration.
func (s SizeLabel) Valid() bool {
	for _, label := range SizeLabels {
		if s == label {
			return true
		}
	}
	return false
}

// SizeStock holds the inventory count and price override for one size of a variant.
// Values are kept as text while a product is being edited; empty strings are placeholders.
type SizeStock struct {
	Inventory string
	Price     string
}

// ColorVariant is a color option of a product, partitioned by size.
type ColorVariant struct {
	Name    string
	HexCode string
	Images  []string
	Sizes   map[SizeLabel]SizeStock
}

// Dimensions captures the physical measurements of a product.
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// Product is the catalog entry edited by merchants.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	SKU         string
	Brand       string
	Weight      float64
	CreatedAt   time.Time
	Tags        []string
	Dimensions  Dimensions
	Colors      []ColorVariant
	// Version is the document update time observed when the product was read.
	Version time.Time
}

// Clone returns a deep copy of the product so callers may mutate it freely.
func (p Product) Clone() Product {
	out := p
	out.Tags = cloneStrings(p.Tags)
	if p.Colors != nil {
		out.Colors = make([]ColorVariant, len(p.Colors))
		for i, color := range p.Colors {
			out.Colors[i] = color.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the variant.
func (v ColorVariant) Clone() ColorVariant {
	out := v
	out.Images = cloneStrings(v.Images)
	if v.Sizes != nil {
		out.Sizes = make(map[SizeLabel]SizeStock, len(v.Sizes))
		for size, stock := range v.Sizes {
			out.Sizes[size] = stock
		}
	}
	return out
}

// NewColorVariant returns an empty variant with an initialised size map.
func NewColorVariant() ColorVariant {
	return ColorVariant{
		Images: []string{},
		Sizes:  map[SizeLabel]SizeStock{},
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
