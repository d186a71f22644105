// Package model содержит доменные сущности магазина пекарни.
package model

import "time"

// CouponType определяет способ расчёта скидки по купону.
type CouponType string

const (
	// CouponTypeFixed — скидка на фиксированную сумму.
	CouponTypeFixed CouponType = "fixed"
	// CouponTypePercentage — процентная скидка от суммы заказа.
	CouponTypePercentage CouponType = "percentage"
)

// ValidCouponType сообщает, является ли значение допустимым типом купона.
func ValidCouponType(t CouponType) bool {
	return t == CouponTypeFixed || t == CouponTypePercentage
}

// Coupon представляет купон на скидку.
// Все денежные значения хранятся в целых новых тайваньских долларах.
type Coupon struct {
	ID          string
	Code        string
	Name        string
	Type        CouponType
	Value       int64
	MinPurchase int64
	MaxDiscount *int64
	StartDate   time.Time
	EndDate     time.Time
	UsageLimit  *int
	UsageCount  int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus сообщает, является ли значение допустимым статусом заказа.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ProductCategory описывает категорию товара.
type ProductCategory string

const (
	CategoryBread  ProductCategory = "bread"
	CategoryCake   ProductCategory = "cake"
	CategoryCookie ProductCategory = "cookie"
	CategoryDrink  ProductCategory = "drink"
	CategoryGift   ProductCategory = "gift"
)

// ValidProductCategory сообщает, является ли значение допустимой категорией товара.
func ValidProductCategory(c ProductCategory) bool {
	switch c {
	case CategoryBread, CategoryCake, CategoryCookie, CategoryDrink, CategoryGift:
		return true
	}
	return false
}

// Product представляет товар каталога.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Category    ProductCategory
	ImageURL    string
	IsActive    bool
	CreatedAt   time.Time
}

// OrderItem — снимок товара на момент оформления заказа.
// Изменения каталога после оформления на заказ не влияют.
type OrderItem struct {
	ProductID string
	Name      string
	Price     int64
	Quantity  int
	Category  ProductCategory
}

// Subtotal возвращает стоимость позиции заказа.
func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// ShippingInfo содержит данные получателя заказа.
type ShippingInfo struct {
	Name    string
	Email   string
	Phone   string
	Address string
	UserID  *string
}

// TransferReport содержит сведения о банковском переводе, сообщённые покупателем.
type TransferReport struct {
	Date          string
	Time          string
	Amount        int64
	AccountSuffix string
	Reported      bool
	ReceiptID     string
}

// PaymentInfo содержит способ оплаты и данные перевода, если он был сообщён.
type PaymentInfo struct {
	Method   string
	Transfer *TransferReport
}

// Order представляет заказ покупателя.
type Order struct {
	ID              string
	Items           []OrderItem
	Shipping        ShippingInfo
	Payment         PaymentInfo
	Status          OrderStatus
	Subtotal        int64
	Discount        int64
	Total           int64
	AppliedCouponID *string
	CreatedAt       time.Time
}

// UserRole описывает роль учётной записи.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Name         string
	Role         UserRole
	CreatedAt    time.Time
}
