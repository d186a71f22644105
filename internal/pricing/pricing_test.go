package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/mhlin/bakeshop-system/internal/model"
)

func activeCoupon(t model.CouponType, value int64) model.Coupon {
	now := time.Now()
	return model.Coupon{
		ID:        "c-1",
		Code:      "TEST",
		Type:      t,
		Value:     value,
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		IsActive:  true,
	}
}

func TestApply_FixedDiscount(t *testing.T) {
	c := activeCoupon(model.CouponTypeFixed, 100)

	app, err := Apply(c, 400, time.Now())
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if app.DiscountAmount != 100 {
		t.Fatalf("DiscountAmount = %d, want 100", app.DiscountAmount)
	}
	if app.FinalTotal != 300 {
		t.Fatalf("FinalTotal = %d, want 300", app.FinalTotal)
	}
}

func TestApply_FixedDiscountClampedToTotal(t *testing.T) {
	c := activeCoupon(model.CouponTypeFixed, 500)

	app, err := Apply(c, 300, time.Now())
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if app.DiscountAmount != 300 {
		t.Fatalf("DiscountAmount = %d, want 300", app.DiscountAmount)
	}
	if app.FinalTotal != 0 {
		t.Fatalf("FinalTotal = %d, want 0", app.FinalTotal)
	}
}

func TestApply_PercentageDiscount(t *testing.T) {
	tests := []struct {
		name         string
		value        int64
		maxDiscount  *int64
		orderTotal   int64
		wantDiscount int64
	}{
		{
			name:         "plain percentage",
			value:        10,
			orderTotal:   1000,
			wantDiscount: 100,
		},
		{
			name:         "rounds down",
			value:        15,
			orderTotal:   999,
			wantDiscount: 149,
		},
		{
			name:         "clamped to max discount",
			value:        20,
			maxDiscount:  ptrInt64(500),
			orderTotal:   3000,
			wantDiscount: 500,
		},
		{
			name:         "max discount above computed amount",
			value:        20,
			maxDiscount:  ptrInt64(1000),
			orderTotal:   3000,
			wantDiscount: 600,
		},
		{
			name:         "hundred percent clamped to total",
			value:        100,
			orderTotal:   250,
			wantDiscount: 250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := activeCoupon(model.CouponTypePercentage, tt.value)
			c.MaxDiscount = tt.maxDiscount

			app, err := Apply(c, tt.orderTotal, time.Now())
			if err != nil {
				t.Fatalf("Apply error: %v", err)
			}
			if app.DiscountAmount != tt.wantDiscount {
				t.Fatalf("DiscountAmount = %d, want %d", app.DiscountAmount, tt.wantDiscount)
			}
			if app.FinalTotal != tt.orderTotal-tt.wantDiscount {
				t.Fatalf("FinalTotal = %d, want %d", app.FinalTotal, tt.orderTotal-tt.wantDiscount)
			}
			if app.FinalTotal < 0 {
				t.Fatalf("FinalTotal must not be negative, got %d", app.FinalTotal)
			}
		})
	}
}

// Сценарий из постановки: SUMMER20 — 20%, минимум 1000, максимум скидки 500.
func TestApply_Summer20Scenario(t *testing.T) {
	c := activeCoupon(model.CouponTypePercentage, 20)
	c.Code = "SUMMER20"
	c.MinPurchase = 1000
	c.MaxDiscount = ptrInt64(500)

	app, err := Apply(c, 3000, time.Now())
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if app.DiscountAmount != 500 {
		t.Fatalf("DiscountAmount = %d, want 500", app.DiscountAmount)
	}
	if app.FinalTotal != 2500 {
		t.Fatalf("FinalTotal = %d, want 2500", app.FinalTotal)
	}
}

func TestApply_BelowMinimum(t *testing.T) {
	c := activeCoupon(model.CouponTypeFixed, 100)
	c.Code = "WELCOME100"
	c.MinPurchase = 500

	_, err := Apply(c, 400, time.Now())

	var belowMin *BelowMinimumError
	if !errors.As(err, &belowMin) {
		t.Fatalf("expected BelowMinimumError, got %v", err)
	}
	if belowMin.Minimum != 500 {
		t.Fatalf("Minimum = %d, want 500", belowMin.Minimum)
	}
	if got := belowMin.Error(); got != "minimum purchase amount is NT$500" {
		t.Fatalf("message = %q", got)
	}
}

func TestApply_ValidationOrder(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(c *model.Coupon)
		wantErr error
	}{
		{
			name:    "inactive",
			mutate:  func(c *model.Coupon) { c.IsActive = false },
			wantErr: ErrCouponInactive,
		},
		{
			name:    "not yet valid",
			mutate:  func(c *model.Coupon) { c.StartDate = now.Add(time.Hour) },
			wantErr: ErrCouponNotYetValid,
		},
		{
			name: "expired despite active flag",
			mutate: func(c *model.Coupon) {
				c.EndDate = now.Add(-24 * time.Hour)
			},
			wantErr: ErrCouponExpired,
		},
		{
			name: "usage limit reached",
			mutate: func(c *model.Coupon) {
				limit := 5
				c.UsageLimit = &limit
				c.UsageCount = 5
			},
			wantErr: ErrCouponUsageExceeded,
		},
		{
			name: "inactive wins over expired",
			mutate: func(c *model.Coupon) {
				c.IsActive = false
				c.EndDate = now.Add(-24 * time.Hour)
			},
			wantErr: ErrCouponInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := activeCoupon(model.CouponTypeFixed, 50)
			tt.mutate(&c)

			_, err := Apply(c, 1000, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApply_UsageLimitNotSet(t *testing.T) {
	c := activeCoupon(model.CouponTypeFixed, 50)
	c.UsageCount = 100000

	if _, err := Apply(c, 1000, time.Now()); err != nil {
		t.Fatalf("Apply error without usage limit: %v", err)
	}
}

func TestApply_InclusiveWindowBounds(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	c := activeCoupon(model.CouponTypeFixed, 50)
	c.StartDate = now
	c.EndDate = now

	if _, err := Apply(c, 1000, now); err != nil {
		t.Fatalf("Apply at window boundary: %v", err)
	}
}

func TestApply_Deterministic(t *testing.T) {
	c := activeCoupon(model.CouponTypePercentage, 33)
	now := time.Now()

	a, err := Apply(c, 777, now)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	b, err := Apply(c, 777, now)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if a.DiscountAmount != b.DiscountAmount || a.FinalTotal != b.FinalTotal {
		t.Fatalf("Apply is not deterministic: %+v vs %+v", a, b)
	}
}

func ptrInt64(v int64) *int64 {
	return &v
}
