package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCouponDate(t *testing.T) {
	parsed, err := ParseCouponDate("2030-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 3, 31, 0, 0, 0, 0, time.UTC), parsed)
	year, month, day := parsed.Date()
	assert.Equal(t, []int{2030, 3, 31}, []int{year, int(month), day})

	for raw, want := range map[string]time.Time{
		"2030-03-31T23:00:00+05:30": time.Date(2030, 3, 31, 0, 0, 0, 0, time.UTC),
		"2030-04-01T01:00:00+05:30": time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC),
		"2030-03-31T22:00:00-04:00": time.Date(2030, 3, 31, 0, 0, 0, 0, time.UTC),
	} {
		parsed, err := ParseCouponDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, parsed, raw)
		assert.Equal(t, want.Format(time.DateOnly), parsed.UTC().Format(time.DateOnly), raw)
	}

	for _, raw := range []string{"", "31/03/2030", "2030-13-01"} {
		_, err := ParseCouponDate(raw)
		assert.ErrorIs(t, err, ErrValidationFailed, "input %q", raw)
	}
}

func TestCouponServiceCreate(t *testing.T) {
	repo := &stubCouponRepo{}
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo})
	require.NoError(t, err)

	local := time.FixedZone("IST", 5*3600+1800)
	created, err := svc.Create(context.Background(), Coupon{
		ID:         "client-supplied",
		Code:       "  SPRING15 ",
		Discount:   15,
		ValidUntil: time.Date(2030, 4, 1, 0, 0, 0, 0, local),
	})
	require.NoError(t, err)
	assert.Equal(t, "coupon_1", created.ID)
	assert.Equal(t, "SPRING15", created.Code)
	assert.Equal(t, time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC), created.ValidUntil)

	_, err = svc.Create(context.Background(), Coupon{Code: "BAD", Discount: -5, ValidUntil: time.Now()})
	assert.Equal(t, []string{"discount"}, violationFields(t, err))
	assert.Len(t, repo.coupons, 1)

	coupons, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, coupons, 1)
}

func TestCouponServiceDelete(t *testing.T) {
	repo := &stubCouponRepo{}
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo})
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), Coupon{Code: "X", Discount: 10, ValidUntil: fixedClock()})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), ErrCouponNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), ""), ErrValidationFailed)
}

func TestCouponServiceTranslatesInsertErrors(t *testing.T) {
	svc, err := NewCouponService(CouponServiceDeps{Coupons: &stubCouponRepo{insertErr: errRepoUnavailable}})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Coupon{Code: "X", Discount: 10, ValidUntil: fixedClock()})
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
