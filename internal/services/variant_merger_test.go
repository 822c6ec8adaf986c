package services

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	domain "github.com/stylocore/catalog-api/internal/domain"
)

func genSizeStock() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 500),
		gen.Float64Range(0.5, 999),
	).Map(func(values []interface{}) SizeStock {
		return SizeStock{
			Inventory: strconv.Itoa(values[0].(int)),
			Price:     strconv.FormatFloat(values[1].(float64), 'f', 2, 64),
		}
	})
}

func genColorVariant() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.OneConstOf("", "#fff", "#FF0000", "#a1b2c3"),
		gen.IntRange(0, 3),
		gen.IntRange(0, 1<<len(domain.SizeLabels)-1),
		gen.SliceOfN(len(domain.SizeLabels), genSizeStock()),
	).Map(func(values []interface{}) ColorVariant {
		variant := domain.NewColorVariant()
		variant.Name = values[0].(string)
		variant.HexCode = values[1].(string)
		for i := 0; i < values[2].(int); i++ {
			variant.Images = append(variant.Images, fmt.Sprintf("https://files.test/%s-%d.png", variant.Name, i))
		}
		mask := values[3].(int)
		stocks := values[4].([]SizeStock)
		for i, label := range domain.SizeLabels {
			if mask&(1<<i) != 0 {
				variant.Sizes[label] = stocks[i]
			}
		}
		return variant
	})
}

// genValidProduct produces products that pass final validation.
func genValidProduct() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.Float64Range(0.01, 5000),
		gen.Float64Range(0.1, 300),
		gen.Float64Range(0.1, 300),
		gen.Float64Range(0.1, 300),
		gen.IntRange(1, 3),
		gen.SliceOfN(3, genColorVariant()),
		gen.SliceOfN(2, gen.Identifier()),
	).Map(func(values []interface{}) Product {
		count := values[5].(int)
		return Product{
			ID:    "prod_gen",
			Name:  values[0].(string),
			Price: values[1].(float64),
			Dimensions: domain.Dimensions{
				Length: values[2].(float64),
				Width:  values[3].(float64),
				Height: values[4].(float64),
			},
			Colors: values[6].([]ColorVariant)[:count],
			Tags:   values[7].([]string),
		}
	})
}

func TestVariantMergerProperties(t *testing.T) {
	merger := NewVariantMerger()
	validator := NewProductValidator()
	properties := gopter.NewProperties(nil)

	properties.Property("an empty op list validates and returns an equal product", prop.ForAll(
		func(product Product) bool {
			merged, staged, err := merger.Apply(product, nil)
			if err != nil || len(staged) != 0 {
				return false
			}
			if err := validator.Validate(merged, ValidationFinal); err != nil {
				t.Logf("validate: %v", err)
				return false
			}
			return reflect.DeepEqual(merged, product)
		},
		genValidProduct(),
	))

	properties.Property("attached images are appended after existing ones", prop.ForAll(
		func(product Product, pick int) bool {
			index := pick % len(product.Colors)
			before := append([]string(nil), product.Colors[index].Images...)

			merged, staged, err := merger.Apply(product, []EditOp{{
				Kind:  OpAttachImages,
				Index: index,
				Files: []UploadFile{{Name: "c.png", Data: []byte("c")}},
			}})
			if err != nil || len(staged) != 1 || staged[0].VariantIndex != index {
				return false
			}
			if err := AppendImages(&merged, staged, []string{"https://files.test/c.png"}); err != nil {
				return false
			}
			want := append(before, "https://files.test/c.png")
			if !reflect.DeepEqual(merged.Colors[index].Images, want) {
				return false
			}
			// the input keeps its own image list
			return len(product.Colors[index].Images) == len(before)
		},
		genValidProduct(),
		gen.IntRange(0, 10),
	))

	properties.Property("enabling then disabling a size not yet carried restores the size map", prop.ForAll(
		func(product Product, pick int) bool {
			index := pick % len(product.Colors)
			delete(product.Colors[index].Sizes, domain.SizeL)
			before := product.Clone().Colors[index].Sizes

			merged, _, err := merger.Apply(product, []EditOp{
				{Kind: OpEnableSize, Index: index, Size: "L"},
				{Kind: OpDisableSize, Index: index, Size: "L"},
			})
			if err != nil {
				return false
			}
			return reflect.DeepEqual(merged.Colors[index].Sizes, before)
		},
		genValidProduct(),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestVariantMergerRemoveOutOfRange(t *testing.T) {
	product := sampleProduct()
	snapshot := product.Clone()

	merged, staged, err := NewVariantMerger().Apply(product, []EditOp{
		{Kind: OpSetField, Path: "name", Value: "Changed"},
		{Kind: OpRemoveVariant, Index: 5},
	})
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	var indexErr *IndexError
	if !errors.As(err, &indexErr) || indexErr.Index != 5 || indexErr.Length != 1 {
		t.Fatalf("unexpected index error %#v", err)
	}
	if !reflect.DeepEqual(merged, Product{}) || staged != nil {
		t.Fatalf("expected no partial result, got %+v %+v", merged, staged)
	}
	if !reflect.DeepEqual(product, snapshot) {
		t.Fatalf("input product was modified: %+v", product)
	}
}

func TestVariantMergerAppliesOpsInOrder(t *testing.T) {
	product := sampleProduct()

	merged, staged, err := NewVariantMerger().Apply(product, []EditOp{
		{Kind: OpSetField, Path: "price", Value: "10"},
		{Kind: OpSetField, Path: "price", Value: "12.5"},
		{Kind: OpSetField, Path: "dimensions.width", Value: "4"},
		{Kind: OpSetField, Path: "tags", Values: []string{" summer ", "summer", "", "linen"}},
		{Kind: OpAddVariant},
		{Kind: OpSetVariantField, Index: 1, Field: VariantFieldColorName, Value: "Blue"},
		{Kind: OpSetVariantField, Index: 1, Field: VariantFieldHexCode, Value: "#0000FF"},
		{Kind: OpSetSizeField, Index: 1, Size: "xl", Field: SizeFieldInventory, Value: "3"},
		{Kind: OpEnableSize, Index: 0, Size: "M"},
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(staged) != 0 {
		t.Fatalf("expected no staged uploads, got %d", len(staged))
	}
	if merged.Price != 12.5 || merged.Dimensions.Width != 4 {
		t.Fatalf("unexpected scalar fields %+v", merged)
	}
	if !reflect.DeepEqual(merged.Tags, []string{"summer", "linen"}) {
		t.Fatalf("unexpected tags %v", merged.Tags)
	}
	blue := merged.Colors[1]
	if blue.Name != "Blue" || blue.HexCode != "#0000FF" {
		t.Fatalf("unexpected variant %+v", blue)
	}
	if got := blue.Sizes[domain.SizeXL]; got != (SizeStock{Inventory: "3"}) {
		t.Fatalf("expected auto-created size entry, got %+v", got)
	}
	if got := merged.Colors[0].Sizes[domain.SizeM]; got != (SizeStock{Inventory: "10", Price: "25"}) {
		t.Fatalf("enableSize must not reset an existing size, got %+v", got)
	}
	if !reflect.DeepEqual(merged.Colors[0].Images, product.Colors[0].Images) {
		t.Fatalf("unrelated images changed: %v", merged.Colors[0].Images)
	}
}

func TestVariantMergerStagedUploadsFollowTheirVariant(t *testing.T) {
	product := sampleProduct()
	product.Colors = append(product.Colors, ColorVariant{Name: "Blue", Sizes: map[SizeLabel]SizeStock{}})

	_, staged, err := NewVariantMerger().Apply(product, []EditOp{
		{Kind: OpAttachImages, Index: 0, Files: []UploadFile{{Name: "red.png"}}},
		{Kind: OpAttachImages, Index: 1, Files: []UploadFile{{Name: "blue-1.png"}, {Name: "blue-2.png"}}},
		{Kind: OpRemoveVariant, Index: 0},
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(staged) != 2 {
		t.Fatalf("expected uploads of the removed variant to be dropped, got %+v", staged)
	}
	for _, upload := range staged {
		if upload.VariantIndex != 0 {
			t.Fatalf("expected uploads to move to index 0, got %+v", upload)
		}
	}
	if staged[0].File.Name != "blue-1.png" || staged[1].File.Name != "blue-2.png" {
		t.Fatalf("expected upload order preserved, got %+v", staged)
	}
}

func TestVariantMergerRejectsInvalidOps(t *testing.T) {
	cases := []struct {
		name string
		op   EditOp
		want error
	}{
		{name: "unknown kind", op: EditOp{Kind: "rename"}, want: ErrValidationFailed},
		{name: "unknown path", op: EditOp{Kind: OpSetField, Path: "colors"}, want: ErrValidationFailed},
		{name: "bad number", op: EditOp{Kind: OpSetField, Path: "price", Value: "abc"}, want: ErrValidationFailed},
		{name: "infinite price", op: EditOp{Kind: OpSetField, Path: "price", Value: "Inf"}, want: ErrValidationFailed},
		{name: "infinite dimension", op: EditOp{Kind: OpSetField, Path: "dimensions.height", Value: "Infinity"}, want: ErrValidationFailed},
		{name: "nan weight", op: EditOp{Kind: OpSetField, Path: "weight", Value: "NaN"}, want: ErrValidationFailed},
		{name: "bad size", op: EditOp{Kind: OpEnableSize, Size: "XXXXL"}, want: ErrValidationFailed},
		{name: "bad size field", op: EditOp{Kind: OpSetSizeField, Size: "M", Field: "weight"}, want: ErrValidationFailed},
		{name: "bad variant field", op: EditOp{Kind: OpSetVariantField, Field: "images"}, want: ErrValidationFailed},
		{name: "negative index", op: EditOp{Kind: OpDisableSize, Index: -1, Size: "M"}, want: ErrIndexOutOfRange},
		{name: "attach out of range", op: EditOp{Kind: OpAttachImages, Index: 3}, want: ErrIndexOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := NewVariantMerger().Apply(sampleProduct(), []EditOp{tc.op})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAppendImagesRejectsMismatchedResults(t *testing.T) {
	product := sampleProduct()
	err := AppendImages(&product, []StagedUpload{{VariantIndex: 0}}, nil)
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func sampleProduct() Product {
	return Product{
		ID:         "prod_1",
		Name:       "Red Shirt",
		Price:      25,
		Dimensions: domain.Dimensions{Length: 10, Width: 20, Height: 2},
		Tags:       []string{"shirts"},
		Colors: []ColorVariant{{
			Name:    "Red",
			HexCode: "#FF0000",
			Images:  []string{"https://files.test/a.png", "https://files.test/b.png"},
			Sizes: map[SizeLabel]SizeStock{
				domain.SizeM: {Inventory: "10", Price: "25"},
				domain.SizeL: {Inventory: "5", Price: "25"},
			},
		}},
	}
}
