package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stylocore/catalog-api/internal/services"
)

const variantFilesFieldPrefix = "variant."

// ProductHandlers exposes product editing endpoints.
type ProductHandlers struct {
	catalog services.CatalogService
	limits  UploadLimits
}

// NewProductHandlers constructs product handlers.
func NewProductHandlers(catalog services.CatalogService, limits UploadLimits) *ProductHandlers {
	return &ProductHandlers{catalog: catalog, limits: limits.normalise()}
}

// Routes registers the /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Post("/products:fromGallery", h.createFromGallery)
	r.Post("/products:validate", h.validateProduct)
	r.Get("/products/{productID}", h.getProduct)
	r.Patch("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
	r.Post("/products/{productID}:validate", h.validateProduct)
	r.Post("/products/{productID}/variants/{index}/images", h.uploadVariantImages)
}

type editOpRequest struct {
	Op     string   `json:"op"`
	Path   string   `json:"path,omitempty"`
	Index  int      `json:"index,omitempty"`
	Field  string   `json:"field,omitempty"`
	Size   string   `json:"size,omitempty"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

type editProductRequest struct {
	Ops  []editOpRequest `json:"ops"`
	Mode string          `json:"mode,omitempty"`
}

type galleryProductRequest struct {
	Ops       []editOpRequest `json:"ops"`
	ColorName string          `json:"color_name,omitempty"`
	Images    []string        `json:"images"`
}

type sizeStockPayload struct {
	Inventory string `json:"inventory"`
	Price     string `json:"price"`
}

type colorVariantPayload struct {
	Name    string                      `json:"color_name"`
	HexCode string                      `json:"hex_code"`
	Images  []string                    `json:"images"`
	Sizes   map[string]sizeStockPayload `json:"sizes"`
}

type dimensionsPayload struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type productPayload struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Price       float64               `json:"price"`
	SKU         string                `json:"sku"`
	Brand       string                `json:"brand"`
	Weight      float64               `json:"weight"`
	CreatedAt   string                `json:"created_at,omitempty"`
	Tags        []string              `json:"tags"`
	Dimensions  dimensionsPayload     `json:"dimensions"`
	Colors      []colorVariantPayload `json:"colors"`
	Version     string                `json:"version,omitempty"`
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := h.catalog.List(ctx, services.ProductFilter{Tag: r.URL.Query().Get("tag")})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]productPayload, 0, len(products))
	for _, product := range products {
		items = append(items, newProductPayload(product))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, err := h.catalog.Get(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeVersioned(w, http.StatusOK, product)
}

// createProduct accepts JSON ops, or a multipart form with the ops JSON in the "ops" field and files
// under "variant.<index>".
func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ops, err := h.decodeOps(w, r)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	product, err := h.catalog.Create(ctx, services.CreateProductCommand{Ops: ops, ActorID: actorID(ctx)})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeVersioned(w, http.StatusCreated, product)
}

// updateProduct applies ops to the stored product. An If-Match header holding the version returned by
// a previous read turns a stale edit into 409.
func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	expected, err := parseIfMatch(r)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	ops, err := h.decodeOps(w, r)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	product, err := h.catalog.Update(ctx, services.UpdateProductCommand{
		ProductID:       chi.URLParam(r, "productID"),
		Ops:             ops,
		ExpectedVersion: expected,
		ActorID:         actorID(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeVersioned(w, http.StatusOK, product)
}

func (h *ProductHandlers) uploadVariantImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(ctx, w, errors.New("variant index must be an integer"))
		return
	}
	expected, err := parseIfMatch(r)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	if !isMultipart(r) {
		writeBadRequest(ctx, w, errors.New("multipart/form-data body required"))
		return
	}
	if err := parseMultipart(w, r, h.limits); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	files, err := formFiles(r, "images", h.limits)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	if len(files) == 0 {
		writeBadRequest(ctx, w, errors.New("at least one file is required under \"images\""))
		return
	}

	product, err := h.catalog.Update(ctx, services.UpdateProductCommand{
		ProductID:       chi.URLParam(r, "productID"),
		Ops:             []services.EditOp{{Kind: services.OpAttachImages, Index: index, Files: files}},
		ExpectedVersion: expected,
		ActorID:         actorID(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeVersioned(w, http.StatusOK, product)
}

func (h *ProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.Delete(ctx, chi.URLParam(r, "productID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandlers) createFromGallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req galleryProductRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	ops, err := toEditOps(req.Ops)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	product, err := h.catalog.CreateFromGallery(ctx, services.GalleryProductCommand{
		Ops:       ops,
		ColorName: req.ColorName,
		ImageURLs: req.Images,
		ActorID:   actorID(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeVersioned(w, http.StatusCreated, product)
}

// validateProduct previews ops without writing. Mode "draft" tolerates empty size entries.
func (h *ProductHandlers) validateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req editProductRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	ops, err := toEditOps(req.Ops)
	if err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	product, err := h.catalog.Preview(ctx, services.PreviewProductCommand{
		ProductID: chi.URLParam(r, "productID"),
		Ops:       ops,
		Mode:      services.ParseValidationMode(req.Mode),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "product": newProductPayload(product)})
}

func (h *ProductHandlers) decodeOps(w http.ResponseWriter, r *http.Request) ([]services.EditOp, error) {
	if !isMultipart(r) {
		var req editProductRequest
		if err := decodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return toEditOps(req.Ops)
	}

	if err := parseMultipart(w, r, h.limits); err != nil {
		return nil, err
	}
	var raw []editOpRequest
	if encoded := strings.TrimSpace(r.FormValue("ops")); encoded != "" {
		if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
			return nil, fmt.Errorf("invalid ops field: %w", err)
		}
	}
	ops, err := toEditOps(raw)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		if strings.HasPrefix(field, variantFilesFieldPrefix) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	for _, field := range fields {
		index, err := strconv.Atoi(strings.TrimPrefix(field, variantFilesFieldPrefix))
		if err != nil {
			return nil, fmt.Errorf("file field %q must be %s<index>", field, variantFilesFieldPrefix)
		}
		files, err := formFiles(r, field, h.limits)
		if err != nil {
			return nil, err
		}
		ops = append(ops, services.EditOp{Kind: services.OpAttachImages, Index: index, Files: files})
	}
	return ops, nil
}

func toEditOps(reqs []editOpRequest) ([]services.EditOp, error) {
	ops := make([]services.EditOp, 0, len(reqs))
	for i, req := range reqs {
		kind := services.EditOpKind(strings.TrimSpace(req.Op))
		if kind == "" {
			return nil, fmt.Errorf("ops[%d].op is required", i)
		}
		if kind == services.OpAttachImages {
			return nil, fmt.Errorf("ops[%d]: attachImages is only accepted as multipart files", i)
		}
		ops = append(ops, services.EditOp{
			Kind:   kind,
			Path:   req.Path,
			Index:  req.Index,
			Field:  req.Field,
			Size:   req.Size,
			Value:  req.Value,
			Values: req.Values,
		})
	}
	return ops, nil
}

func parseIfMatch(r *http.Request) (time.Time, error) {
	raw := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	if raw == "" || raw == "*" {
		return time.Time{}, nil
	}
	version, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.New("If-Match must carry the product version as an RFC3339 timestamp")
	}
	return version, nil
}

func writeVersioned(w http.ResponseWriter, status int, product services.Product) {
	if !product.Version.IsZero() {
		w.Header().Set("ETag", fmt.Sprintf("%q", product.Version.UTC().Format(time.RFC3339Nano)))
	}
	writeJSON(w, status, newProductPayload(product))
}

func newProductPayload(product services.Product) productPayload {
	payload := productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		SKU:         product.SKU,
		Brand:       product.Brand,
		Weight:      product.Weight,
		Tags:        nonNil(product.Tags),
		Dimensions: dimensionsPayload{
			Length: product.Dimensions.Length,
			Width:  product.Dimensions.Width,
			Height: product.Dimensions.Height,
		},
		Colors: make([]colorVariantPayload, 0, len(product.Colors)),
	}
	if !product.CreatedAt.IsZero() {
		payload.CreatedAt = product.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !product.Version.IsZero() {
		payload.Version = product.Version.UTC().Format(time.RFC3339Nano)
	}
	for _, color := range product.Colors {
		sizes := make(map[string]sizeStockPayload, len(color.Sizes))
		for label, stock := range color.Sizes {
			sizes[string(label)] = sizeStockPayload{Inventory: stock.Inventory, Price: stock.Price}
		}
		payload.Colors = append(payload.Colors, colorVariantPayload{
			Name:    color.Name,
			HexCode: color.HexCode,
			Images:  nonNil(color.Images),
			Sizes:   sizes,
		})
	}
	return payload
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
