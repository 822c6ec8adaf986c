package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stylocore/catalog-api/internal/repositories"
)

// CouponServiceDeps bundles constructor inputs for the coupon service.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
}

type couponService struct {
	coupons repositories.CouponRepository
}

var _ CouponService = (*couponService)(nil)

// NewCouponService constructs the coupon service.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}
	return &couponService{coupons: deps.Coupons}, nil
}

func (s *couponService) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, translateRepositoryError(err, nil)
	}
	return coupons, nil
}

// Create validates and stores a coupon. The expiry keeps only its calendar day, stored as UTC midnight.
func (s *couponService) Create(ctx context.Context, coupon Coupon) (Coupon, error) {
	coupon.ID = ""
	coupon.Code = strings.TrimSpace(coupon.Code)
	coupon.ValidUntil = calendarDay(coupon.ValidUntil)
	if err := ValidateCoupon(coupon); err != nil {
		return Coupon{}, err
	}
	stored, err := s.coupons.Insert(ctx, coupon)
	if err != nil {
		return Coupon{}, translateRepositoryError(err, nil)
	}
	return stored, nil
}

func (s *couponService) Delete(ctx context.Context, couponID string) error {
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return invalidField("id", "is required")
	}
	if err := s.coupons.Delete(ctx, couponID); err != nil {
		return translateRepositoryError(err, ErrCouponNotFound)
	}
	return nil
}

// ParseCouponDate accepts a calendar date (YYYY-MM-DD) or an RFC3339 timestamp. A timestamp
// contributes the date in its own offset, so 2030-04-01T01:00:00+05:30 is 1 April.
func ParseCouponDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, trimmed); err == nil {
		return calendarDay(t), nil
	}
	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, invalidField("validUntil", "must be YYYY-MM-DD or RFC3339")
	}
	return calendarDay(t), nil
}

func calendarDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
