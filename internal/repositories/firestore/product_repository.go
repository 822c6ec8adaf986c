package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/stylocore/catalog-api/internal/domain"
	pfirestore "github.com/stylocore/catalog-api/internal/platform/firestore"
	"github.com/stylocore/catalog-api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists catalog products in the products collection.
type ProductRepository struct {
	base *pfirestore.BaseRepository[domain.Product]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base: pfirestore.NewBaseRepository[domain.Product](provider, productsCollection, encodeProduct, decodeProduct),
	}, nil
}

// Insert writes a new product document with a Firestore generated ID.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id, result, err := r.base.Add(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	stored := product.Clone()
	stored.ID = id
	stored.Version = result.UpdateTime
	return stored, nil
}

// Replace overwrites every field of the stored product, guarded by the expected update time.
func (r *ProductRepository) Replace(ctx context.Context, product domain.Product, expected time.Time) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	result, err := r.base.Replace(ctx, product.ID, product, expected)
	if err != nil {
		return domain.Product{}, err
	}
	stored := product.Clone()
	stored.Version = result.UpdateTime
	return stored, nil
}

// Delete removes the product document. Images in storage are left in place.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	return r.base.Delete(ctx, productID)
}

// FindByID loads a product and records its update time as the version.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return withMetadata(doc), nil
}

// List returns products ordered by name, optionally limited to a tag.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	tag := strings.TrimSpace(filter.Tag)
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if tag != "" {
			q = q.Where("tags", "array-contains", tag)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, withMetadata(doc))
	}
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return products, nil
}

func withMetadata(doc pfirestore.Document[domain.Product]) domain.Product {
	product := doc.Data
	product.ID = doc.ID
	product.Version = doc.UpdateTime
	return product
}

// encodeProduct writes inventory as integers and prices as floats. Empty placeholders must
// have been resolved before a product reaches the store.
func encodeProduct(_ context.Context, product domain.Product) (any, error) {
	colors := make([]any, 0, len(product.Colors))
	for i, color := range product.Colors {
		sizes := make(map[string]any, len(color.Sizes))
		for label, stock := range color.Sizes {
			if !label.Valid() {
				return nil, fmt.Errorf("colors[%d]: unsupported size %q", i, label)
			}
			inventory, err := strconv.Atoi(strings.TrimSpace(stock.Inventory))
			if err != nil {
				return nil, fmt.Errorf("colors[%d].sizes[%s].inventory: %w", i, label, err)
			}
			price, err := strconv.ParseFloat(strings.TrimSpace(stock.Price), 64)
			if err != nil {
				return nil, fmt.Errorf("colors[%d].sizes[%s].price: %w", i, label, err)
			}
			sizes[string(label)] = map[string]any{"inventory": inventory, "price": price}
		}
		colors = append(colors, map[string]any{
			"color_name":      color.Name,
			"hex_code":        color.HexCode,
			"images":          nonNilStrings(color.Images),
			"sizes_inventory": sizes,
		})
	}

	return map[string]any{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"sku":         product.SKU,
		"brand":       product.Brand,
		"weight":      product.Weight,
		"date_added":  product.CreatedAt.UTC(),
		"tags":        nonNilStrings(product.Tags),
		"dimensions":  encodeDimensions(product.Dimensions),
		"colors":      colors,
	}, nil
}

func decodeProduct(_ context.Context, snap *firestore.DocumentSnapshot) (domain.Product, error) {
	return productFromMap(snap.Data())
}

func productFromMap(data map[string]any) (domain.Product, error) {
	var (
		product domain.Product
		err     error
	)
	product.Name = stringField(data, "name")
	product.Description = stringField(data, "description")
	product.SKU = stringField(data, "sku")
	product.Brand = stringField(data, "brand")
	product.Tags = stringSlice(data["tags"])
	if product.Price, err = floatField(data, "price"); err != nil {
		return domain.Product{}, fmt.Errorf("price: %w", err)
	}
	if product.Weight, err = floatField(data, "weight"); err != nil {
		return domain.Product{}, fmt.Errorf("weight: %w", err)
	}
	if product.CreatedAt, err = timeField(data, "date_added"); err != nil {
		return domain.Product{}, err
	}
	if dims := mapField(data, "dimensions"); dims != nil {
		if product.Dimensions, err = dimensionsFromMap(dims); err != nil {
			return domain.Product{}, err
		}
	}

	for i, raw := range mapSlice(data["colors"]) {
		color := domain.NewColorVariant()
		color.Name = stringField(raw, "color_name")
		color.HexCode = stringField(raw, "hex_code")
		if images := stringSlice(raw["images"]); images != nil {
			color.Images = images
		}
		for key, value := range mapField(raw, "sizes_inventory") {
			label, err := domain.ParseSizeLabel(key)
			if err != nil {
				return domain.Product{}, fmt.Errorf("colors[%d]: %w", i, err)
			}
			stock, _ := value.(map[string]any)
			color.Sizes[label] = domain.SizeStock{
				Inventory: numberText(stock["inventory"]),
				Price:     numberText(stock["price"]),
			}
		}
		product.Colors = append(product.Colors, color)
	}
	return product, nil
}

func dimensionsFromMap(dims map[string]any) (domain.Dimensions, error) {
	var (
		out domain.Dimensions
		err error
	)
	if out.Length, err = floatField(dims, "length"); err != nil {
		return out, fmt.Errorf("dimensions.length: %w", err)
	}
	if out.Width, err = floatField(dims, "width"); err != nil {
		return out, fmt.Errorf("dimensions.width: %w", err)
	}
	if out.Height, err = floatField(dims, "height"); err != nil {
		return out, fmt.Errorf("dimensions.height: %w", err)
	}
	return out, nil
}

func encodeDimensions(d domain.Dimensions) map[string]any {
	return map[string]any{"length": d.Length, "width": d.Width, "height": d.Height}
}
