package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/stylocore/catalog-api/internal/domain"
	pfirestore "github.com/stylocore/catalog-api/internal/platform/firestore"
	"github.com/stylocore/catalog-api/internal/repositories"
)

const couponsCollection = "coupons"

// CouponRepository persists coupons in the coupons collection.
type CouponRepository struct {
	base *pfirestore.BaseRepository[domain.Coupon]
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		base: pfirestore.NewBaseRepository[domain.Coupon](provider, couponsCollection, encodeCoupon, decodeCoupon),
	}, nil
}

// Insert stores a coupon under a generated ID.
func (r *CouponRepository) Insert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	if r == nil || r.base == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	id, _, err := r.base.Add(ctx, coupon)
	if err != nil {
		return domain.Coupon{}, err
	}
	coupon.ID = id
	return coupon, nil
}

// Delete removes the coupon document.
func (r *CouponRepository) Delete(ctx context.Context, couponID string) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	return r.base.Delete(ctx, couponID)
}

// List returns every coupon ordered by code.
func (r *CouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("coupon repository not initialised")
	}
	docs, err := r.base.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	coupons := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		coupon := doc.Data
		coupon.ID = doc.ID
		coupons = append(coupons, coupon)
	}
	sort.SliceStable(coupons, func(i, j int) bool {
		return strings.ToLower(coupons[i].Code) < strings.ToLower(coupons[j].Code)
	})
	return coupons, nil
}

func encodeCoupon(_ context.Context, coupon domain.Coupon) (any, error) {
	return map[string]any{
		"code":       coupon.Code,
		"discount":   coupon.Discount,
		"validUntil": coupon.ValidUntil.UTC(),
	}, nil
}

func decodeCoupon(_ context.Context, snap *firestore.DocumentSnapshot) (domain.Coupon, error) {
	data := snap.Data()
	coupon := domain.Coupon{Code: stringField(data, "code")}
	var err error
	if coupon.Discount, err = floatField(data, "discount"); err != nil {
		return domain.Coupon{}, fmt.Errorf("discount: %w", err)
	}
	if coupon.ValidUntil, err = timeField(data, "validUntil"); err != nil {
		return domain.Coupon{}, err
	}
	return coupon, nil
}
