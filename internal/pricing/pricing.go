// Package pricing реализует проверку купонов и расчёт скидки.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/mhlin/bakeshop-system/internal/model"
)

// ErrCouponInactive возвращается, если купон отключён администратором.
var (
	ErrCouponInactive = errors.New("coupon is not active")
	// ErrCouponNotYetValid возвращается до начала действия купона.
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	// ErrCouponExpired возвращается после окончания действия купона.
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrCouponUsageExceeded возвращается при исчерпании лимита использований.
	ErrCouponUsageExceeded = errors.New("coupon usage limit reached")
)

// BelowMinimumError возвращается, когда сумма заказа меньше минимальной
// для применения купона. Сообщение содержит требуемый минимум.
type BelowMinimumError struct {
	Minimum int64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum purchase amount is NT$%d", e.Minimum)
}

// Application содержит результат применения купона к сумме заказа.
type Application struct {
	Coupon         model.Coupon
	DiscountAmount int64
	FinalTotal     int64
}

// Apply проверяет условия купона и вычисляет скидку для указанной суммы заказа.
// Функция чистая: результат зависит только от купона, суммы и момента времени.
// Порядок проверок фиксирован: активность, окно действия, лимит использований,
// минимальная сумма заказа.
func Apply(c model.Coupon, orderTotal int64, now time.Time) (*Application, error) {
	if !c.IsActive {
		return nil, ErrCouponInactive
	}
	if now.Before(c.StartDate) {
		return nil, ErrCouponNotYetValid
	}
	if now.After(c.EndDate) {
		return nil, ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return nil, ErrCouponUsageExceeded
	}
	if c.MinPurchase > 0 && orderTotal < c.MinPurchase {
		return nil, &BelowMinimumError{Minimum: c.MinPurchase}
	}

	discount := Discount(c, orderTotal)

	return &Application{
		Coupon:         c,
		DiscountAmount: discount,
		FinalTotal:     orderTotal - discount,
	}, nil
}

// Discount вычисляет размер скидки без проверки условий применения.
// Скидка никогда не превышает сумму заказа.
func Discount(c model.Coupon, orderTotal int64) int64 {
	var discount int64

	switch c.Type {
	case model.CouponTypePercentage:
		// Целочисленное деление даёт округление вниз.
		discount = orderTotal * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	default:
		discount = c.Value
	}

	if discount > orderTotal {
		discount = orderTotal
	}

	return discount
}
