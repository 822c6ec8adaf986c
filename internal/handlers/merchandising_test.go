package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
	"github.com/stylocore/catalog-api/internal/services"
)

func newMerchandisingRouter(gallery *stubGalleryService, categories *stubCategoryService, coupons *stubCouponService) chi.Router {
	return NewRouter(WithAdminRoutes(NewAdminRoutes(AdminServices{
		Gallery:    gallery,
		Categories: categories,
		Coupons:    coupons,
	}, UploadLimits{})))
}

func TestMerchandisingHandlersGalleryUpload(t *testing.T) {
	gallery := &stubGalleryService{}
	router := newMerchandisingRouter(gallery, &stubCategoryService{}, &stubCouponService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"one.jpg", "two.jpg"} {
		part, _ := mw.CreateFormFile("images", name)
		_, _ = part.Write([]byte(name))
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/gallery", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(gallery.uploaded) != 2 || gallery.uploaded[1].Name != "two.jpg" {
		t.Fatalf("unexpected uploads %+v", gallery.uploaded)
	}
	var body struct {
		Items []galleryImagePayload `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Items[0].Key != "uploadedImages/one.jpg" {
		t.Fatalf("unexpected items %+v", body.Items)
	}
}

func TestMerchandisingHandlersGalleryDuplicateName(t *testing.T) {
	gallery := &stubGalleryService{err: fmt.Errorf("%w: %w", services.ErrAssetUploadFailed, pstorage.ErrObjectExists)}
	router := newMerchandisingRouter(gallery, &stubCategoryService{}, &stubCouponService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("images", "one.jpg")
	_, _ = part.Write([]byte("x"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/gallery", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/gallery", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for non-multipart body, got %d", rr.Code)
	}
}

func TestMerchandisingHandlersCategories(t *testing.T) {
	categories := &stubCategoryService{names: []string{"Shirts"}}
	router := newMerchandisingRouter(&stubGalleryService{}, categories, &stubCouponService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/categories", strings.NewReader(`{"name":"Dresses"}`)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/admin/categories/1", strings.NewReader(`{"name":"Gowns"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body struct {
		Items []string `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(body.Items, ",") != "Shirts,Gowns" {
		t.Fatalf("unexpected categories %v", body.Items)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/admin/categories/7", strings.NewReader(`{"name":"Hats"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for out of range index, got %d", rr.Code)
	}

	for path, want := range map[string]string{
		"Summer%20Sale": "Summer Sale",
		"50%25off":      "50%off",
		"A%2520B":       "A%20B",
		"Tops%2FTees":   "Tops/Tees",
	} {
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/categories/"+path, nil))
		if rr.Code != http.StatusOK || categories.removed != want {
			t.Fatalf("remove %s: unexpected response %d (%q)", path, rr.Code, categories.removed)
		}
	}
}

func TestMerchandisingHandlersCoupons(t *testing.T) {
	coupons := &stubCouponService{}
	router := newMerchandisingRouter(&stubGalleryService{}, &stubCategoryService{}, coupons)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/coupons",
		strings.NewReader(`{"code":"SPRING15","discount":15,"valid_until":"2030-03-31"}`)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !coupons.created.ValidUntil.Equal(time.Date(2030, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %s", coupons.created.ValidUntil)
	}
	var created couponPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ValidUntil != "2030-03-31" {
		t.Fatalf("expected the calendar date back, got %q", created.ValidUntil)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/coupons",
		strings.NewReader(`{"code":"X","discount":15,"valid_until":"31/03/2030"}`)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/coupons/coupon_9", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/coupons/coupon_1", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
}
