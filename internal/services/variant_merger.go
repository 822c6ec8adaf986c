package services

import (
	"fmt"
	"strings"

	domain "github.com/stylocore/catalog-api/internal/domain"
)

// EditOpKind names one atomic product edit.
type EditOpKind string

const (
	OpSetField        EditOpKind = "setField"
	OpAddVariant      EditOpKind = "addVariant"
	OpRemoveVariant   EditOpKind = "removeVariant"
	OpSetVariantField EditOpKind = "setVariantField"
	OpEnableSize      EditOpKind = "enableSize"
	OpDisableSize     EditOpKind = "disableSize"
	OpSetSizeField    EditOpKind = "setSizeField"
	OpAttachImages    EditOpKind = "attachImages"
)

// Variant and size field names accepted by setVariantField and setSizeField.
const (
	VariantFieldColorName = "color_name"
	VariantFieldHexCode   = "hex_code"
	SizeFieldInventory    = "inventory"
	SizeFieldPrice        = "price"
)

// EditOp is one edit applied by the merger. Which fields are read depends on Kind.
type EditOp struct {
	Kind EditOpKind
	// Path addresses a product field for setField: name, description, price, sku, brand, weight,
	// tags or dimensions.length|width|height.
	Path string
	// Index addresses a color variant.
	Index int
	// Field is color_name|hex_code for setVariantField and inventory|price for setSizeField.
	Field string
	Size  string
	Value string
	// Values carries the tag list for setField("tags").
	Values []string
	Files  []UploadFile
}

// UploadFile is a raw file awaiting upload to the blob store.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// StagedUpload ties a file to the variant whose image list receives its URL.
type StagedUpload struct {
	VariantIndex int
	File         UploadFile
}

// VariantMerger applies edit ops to an in-memory product.
type VariantMerger struct{}

// NewVariantMerger returns a merger.
func NewVariantMerger() VariantMerger {
	return VariantMerger{}
}

// Apply returns a copy of product with ops applied in order. The input is never modified and on
// error no partial result is returned. Staged uploads follow their variant when earlier variants are
// removed, and are dropped with their variant.
func (VariantMerger) Apply(product Product, ops []EditOp) (Product, []StagedUpload, error) {
	out := product.Clone()
	pending := make([][]UploadFile, len(out.Colors))

	for i, op := range ops {
		var err error
		switch op.Kind {
		case OpSetField:
			err = setProductField(&out, op)
		case OpAddVariant:
			out.Colors = append(out.Colors, domain.NewColorVariant())
			pending = append(pending, nil)
		case OpRemoveVariant:
			if err = checkVariantIndex(out, op.Index); err == nil {
				out.Colors = append(out.Colors[:op.Index:op.Index], out.Colors[op.Index+1:]...)
				pending = append(pending[:op.Index:op.Index], pending[op.Index+1:]...)
			}
		case OpSetVariantField:
			err = setVariantField(&out, op)
		case OpEnableSize:
			err = withSize(&out, op, func(variant *ColorVariant, size SizeLabel) error {
				if _, ok := variant.Sizes[size]; !ok {
					variant.Sizes[size] = SizeStock{}
				}
				return nil
			})
		case OpDisableSize:
			err = withSize(&out, op, func(variant *ColorVariant, size SizeLabel) error {
				delete(variant.Sizes, size)
				return nil
			})
		case OpSetSizeField:
			err = withSize(&out, op, func(variant *ColorVariant, size SizeLabel) error {
				stock := variant.Sizes[size]
				switch op.Field {
				case SizeFieldInventory:
					stock.Inventory = strings.TrimSpace(op.Value)
				case SizeFieldPrice:
					stock.Price = strings.TrimSpace(op.Value)
				default:
					return invalidField(sizePath(op.Index, size), "unsupported size field %q", op.Field)
				}
				variant.Sizes[size] = stock
				return nil
			})
		case OpAttachImages:
			if err = checkVariantIndex(out, op.Index); err == nil {
				pending[op.Index] = append(pending[op.Index], op.Files...)
			}
		default:
			err = invalidField(fmt.Sprintf("ops[%d]", i), "unsupported operation %q", op.Kind)
		}
		if err != nil {
			return Product{}, nil, err
		}
	}

	var staged []StagedUpload
	for index, files := range pending {
		for _, file := range files {
			staged = append(staged, StagedUpload{VariantIndex: index, File: file})
		}
	}
	return out, staged, nil
}

// AppendImages adds resolved URLs to the end of each variant's image list.
func AppendImages(product *Product, staged []StagedUpload, urls []string) error {
	if len(staged) != len(urls) {
		return fmt.Errorf("catalog: %d staged uploads resolved to %d urls", len(staged), len(urls))
	}
	for i, upload := range staged {
		if upload.VariantIndex < 0 || upload.VariantIndex >= len(product.Colors) {
			return &IndexError{Target: "variant", Index: upload.VariantIndex, Length: len(product.Colors)}
		}
		variant := &product.Colors[upload.VariantIndex]
		variant.Images = append(variant.Images, urls[i])
	}
	return nil
}

func setProductField(product *Product, op EditOp) error {
	path := strings.ToLower(strings.TrimSpace(op.Path))
	switch path {
	case "name":
		product.Name = strings.TrimSpace(op.Value)
	case "description":
		product.Description = op.Value
	case "sku":
		product.SKU = strings.TrimSpace(op.Value)
	case "brand":
		product.Brand = strings.TrimSpace(op.Value)
	case "tags":
		product.Tags = normalizeTags(op.Values)
	case "price":
		return parseNumberInto(&product.Price, path, op.Value)
	case "weight":
		return parseNumberInto(&product.Weight, path, op.Value)
	case "dimensions.length":
		return parseNumberInto(&product.Dimensions.Length, path, op.Value)
	case "dimensions.width":
		return parseNumberInto(&product.Dimensions.Width, path, op.Value)
	case "dimensions.height":
		return parseNumberInto(&product.Dimensions.Height, path, op.Value)
	default:
		return invalidField(op.Path, "unsupported field path")
	}
	return nil
}

func parseNumberInto(target *float64, field, raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		*target = 0
		return nil
	}
	value, err := parseFiniteFloat(trimmed)
	if err != nil {
		return invalidField(field, "must be a number")
	}
	*target = value
	return nil
}

func setVariantField(product *Product, op EditOp) error {
	if err := checkVariantIndex(*product, op.Index); err != nil {
		return err
	}
	variant := &product.Colors[op.Index]
	switch op.Field {
	case VariantFieldColorName:
		variant.Name = strings.TrimSpace(op.Value)
	case VariantFieldHexCode:
		variant.HexCode = strings.TrimSpace(op.Value)
	default:
		return invalidField(fmt.Sprintf("colors[%d]", op.Index), "unsupported variant field %q", op.Field)
	}
	return nil
}

func withSize(product *Product, op EditOp, fn func(variant *ColorVariant, size SizeLabel) error) error {
	if err := checkVariantIndex(*product, op.Index); err != nil {
		return err
	}
	size, err := domain.ParseSizeLabel(op.Size)
	if err != nil {
		return invalidField(fmt.Sprintf("colors[%d].sizes", op.Index), "unsupported size %q", op.Size)
	}
	variant := &product.Colors[op.Index]
	if variant.Sizes == nil {
		variant.Sizes = map[SizeLabel]SizeStock{}
	}
	return fn(variant, size)
}

func checkVariantIndex(product Product, index int) error {
	if index < 0 || index >= len(product.Colors) {
		return &IndexError{Target: "variant", Index: index, Length: len(product.Colors)}
	}
	return nil
}

func sizePath(index int, size SizeLabel) string {
	return fmt.Sprintf("colors[%d].sizes[%s]", index, size)
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
