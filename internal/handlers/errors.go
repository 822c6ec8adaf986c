package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/stylocore/catalog-api/internal/platform/httpx"
	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
	"github.com/stylocore/catalog-api/internal/services"
)

type violationPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// writeServiceError maps service sentinels onto the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		violations := make([]violationPayload, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			violations = append(violations, violationPayload{Field: v.Field, Message: v.Message})
		}
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", "request failed validation", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"violations": violations}))
		return
	}

	var ierr *services.IndexError
	if errors.As(err, &ierr) {
		httpx.WriteError(ctx, w, httpx.NewError("index_out_of_range", err.Error(), http.StatusBadRequest).
			WithDetails(map[string]any{"index": ierr.Index, "length": ierr.Length}))
		return
	}

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBookingNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("booking_not_found", "booking not found", http.StatusNotFound))
	case errors.Is(err, services.ErrConflictDetected):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, pstorage.ErrObjectExists):
		httpx.WriteError(ctx, w, httpx.NewError("asset_exists", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrAssetUploadFailed):
		httpx.WriteError(ctx, w, httpx.NewError("asset_upload_failed", err.Error(), http.StatusBadGateway))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "document store unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		httpx.WriteError(ctx, w, httpx.NewError("request_cancelled", err.Error(), http.StatusGatewayTimeout))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", err.Error(), http.StatusInternalServerError))
	}
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
}
