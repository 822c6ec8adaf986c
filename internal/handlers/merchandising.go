package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stylocore/catalog-api/internal/services"
)

// MerchandisingHandlers exposes the gallery, category list and coupon endpoints.
type MerchandisingHandlers struct {
	gallery    services.GalleryService
	categories services.CategoryService
	coupons    services.CouponService
	limits     UploadLimits
}

// NewMerchandisingHandlers constructs merchandising handlers.
func NewMerchandisingHandlers(gallery services.GalleryService, categories services.CategoryService, coupons services.CouponService, limits UploadLimits) *MerchandisingHandlers {
	return &MerchandisingHandlers{
		gallery:    gallery,
		categories: categories,
		coupons:    coupons,
		limits:     limits.normalise(),
	}
}

// Routes registers the /gallery, /categories and /coupons endpoints.
func (h *MerchandisingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/gallery", h.listGallery)
	r.Post("/gallery", h.uploadGallery)

	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.addCategory)
	r.Put("/categories/{index}", h.renameCategory)
	r.Delete("/categories/{name}", h.removeCategory)

	r.Get("/coupons", h.listCoupons)
	r.Post("/coupons", h.createCoupon)
	r.Delete("/coupons/{couponID}", h.deleteCoupon)
}

type galleryImagePayload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

type couponRequest struct {
	Code       string  `json:"code"`
	Discount   float64 `json:"discount"`
	ValidUntil string  `json:"valid_until"`
}

type couponPayload struct {
	ID         string  `json:"id"`
	Code       string  `json:"code"`
	Discount   float64 `json:"discount"`
	ValidUntil string  `json:"valid_until"`
}

func (h *MerchandisingHandlers) listGallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	images, err := h.gallery.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": newGalleryPayloads(images)})
}

// uploadGallery stores the files posted under "images" using their own names.
func (h *MerchandisingHandlers) uploadGallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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
	images, err := h.gallery.Upload(ctx, files)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": newGalleryPayloads(images)})
}

func (h *MerchandisingHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := h.categories.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(names)})
}

func (h *MerchandisingHandlers) addCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req categoryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	names, err := h.categories.Add(ctx, req.Name)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": nonNil(names)})
}

func (h *MerchandisingHandlers) renameCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(ctx, w, errors.New("category index must be an integer"))
		return
	}
	var req categoryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	names, err := h.categories.Rename(ctx, index, req.Name)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(names)})
}

func (h *MerchandisingHandlers) removeCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	// chi matches on RawPath when it is set, leaving params escaped; otherwise they are already decoded.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeBadRequest(ctx, w, errors.New("category name is not a valid path segment"))
			return
		}
		name = unescaped
	}
	names, err := h.categories.Remove(ctx, name)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(names)})
}

func (h *MerchandisingHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coupons, err := h.coupons.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]couponPayload, 0, len(coupons))
	for _, coupon := range coupons {
		items = append(items, newCouponPayload(coupon))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// createCoupon accepts valid_until as YYYY-MM-DD or RFC3339.
func (h *MerchandisingHandlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req couponRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(ctx, w, err)
		return
	}
	validUntil, err := services.ParseCouponDate(req.ValidUntil)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	coupon, err := h.coupons.Create(ctx, services.Coupon{
		Code:       req.Code,
		Discount:   req.Discount,
		ValidUntil: validUntil,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCouponPayload(coupon))
}

func (h *MerchandisingHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.coupons.Delete(ctx, chi.URLParam(r, "couponID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newGalleryPayloads(images []services.GalleryImage) []galleryImagePayload {
	items := make([]galleryImagePayload, 0, len(images))
	for _, image := range images {
		items = append(items, galleryImagePayload{Key: image.Key, URL: image.URL})
	}
	return items
}

func newCouponPayload(coupon services.Coupon) couponPayload {
	return couponPayload{
		ID:         coupon.ID,
		Code:       coupon.Code,
		Discount:   coupon.Discount,
		ValidUntil: coupon.ValidUntil.UTC().Format(time.DateOnly),
	}
}
