// Package service реализует бизнес-логику магазина пекарни.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/mhlin/bakeshop-system/internal/bank"
	"github.com/mhlin/bakeshop-system/internal/model"
	"github.com/mhlin/bakeshop-system/internal/pricing"
	"github.com/mhlin/bakeshop-system/internal/report"
	"github.com/mhlin/bakeshop-system/internal/repository"
	"github.com/mhlin/bakeshop-system/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProducts(ctx context.Context, category model.ProductCategory, activeOnly bool) ([]model.Product, error)
	CreateCoupon(ctx context.Context, c *model.Coupon) error
	UpdateCoupon(ctx context.Context, c *model.Coupon) error
	DeleteCoupon(ctx context.Context, id string) error
	GetCoupons(ctx context.Context) ([]model.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*model.Coupon, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	GetOrdersInRange(ctx context.Context, from, to time.Time) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	SetTransferReport(ctx context.Context, orderID string, tr model.TransferReport) error
	GetOrdersForTransferCheck(ctx context.Context, limit int) ([]repository.TransferCheck, error)
}

// ErrInvalidInput возвращается при некорректных входных данных операции.
var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials возвращается при неверном email или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service содержит бизнес-логику магазина пекарни.
type Service struct {
	repo       Repository
	bankClient *bank.Client
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом банковского шлюза.
func NewService(repo Repository, bankClient *bank.Client) *Service {
	return &Service{
		repo:       repo,
		bankClient: bankClient,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового покупателя.
func (s *Service) RegisterUser(ctx context.Context, email, password, name string) (*model.User, error) {
	if !validation.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidInput)
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashPassword(email, password),
		Name:         name,
		Role:         model.UserRoleCustomer,
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// AuthenticateUser проверяет email и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(email, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// ListProducts возвращает товары каталога.
func (s *Service) ListProducts(ctx context.Context, category model.ProductCategory, activeOnly bool) ([]model.Product, error) {
	if category != "" && !model.ValidProductCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	return s.repo.GetProducts(ctx, category, activeOnly)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct создаёт товар каталога.
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct обновляет товар каталога.
func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	return s.repo.UpdateProduct(ctx, p)
}

// DeleteProduct удаляет товар каталога.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

func validateProduct(p *model.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty product name", ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidInput)
	}
	if !model.ValidProductCategory(p.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, p.Category)
	}
	return nil
}

// CreateCoupon создаёт купон.
func (s *Service) CreateCoupon(ctx context.Context, c *model.Coupon) (*model.Coupon, error) {
	if err := validateCoupon(c); err != nil {
		return nil, err
	}
	c.ID = uuid.NewString()
	c.UsageCount = 0
	if err := s.repo.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCoupon обновляет поля купона.
func (s *Service) UpdateCoupon(ctx context.Context, c *model.Coupon) error {
	if err := validateCoupon(c); err != nil {
		return err
	}
	return s.repo.UpdateCoupon(ctx, c)
}

// DeleteCoupon удаляет купон.
func (s *Service) DeleteCoupon(ctx context.Context, id string) error {
	return s.repo.DeleteCoupon(ctx, id)
}

// ListCoupons возвращает все купоны.
func (s *Service) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	return s.repo.GetCoupons(ctx)
}

func validateCoupon(c *model.Coupon) error {
	if !validation.IsValidCouponCode(c.Code) {
		return fmt.Errorf("%w: malformed coupon code", ErrInvalidInput)
	}
	if !model.ValidCouponType(c.Type) {
		return fmt.Errorf("%w: unknown coupon type %q", ErrInvalidInput, c.Type)
	}
	if c.Value < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidInput)
	}
	if c.Type == model.CouponTypePercentage && c.Value > 100 {
		return fmt.Errorf("%w: percentage value must not exceed 100", ErrInvalidInput)
	}
	if c.MinPurchase < 0 {
		return fmt.Errorf("%w: negative minimum purchase", ErrInvalidInput)
	}
	if c.MaxDiscount != nil {
		if c.Type != model.CouponTypePercentage {
			return fmt.Errorf("%w: max discount applies to percentage coupons only", ErrInvalidInput)
		}
		if *c.MaxDiscount < 0 {
			return fmt.Errorf("%w: negative max discount", ErrInvalidInput)
		}
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return fmt.Errorf("%w: usage limit must be positive", ErrInvalidInput)
	}
	return nil
}

// ApplyCoupon проверяет купон для указанной суммы заказа и вычисляет скидку.
// Счётчик использований при этом не изменяется: списание происходит
// только при оформлении заказа.
func (s *Service) ApplyCoupon(ctx context.Context, code string, orderTotal int64) (*pricing.Application, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty coupon code", ErrInvalidInput)
	}
	if orderTotal < 0 {
		return nil, fmt.Errorf("%w: negative order total", ErrInvalidInput)
	}

	c, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return pricing.Apply(*c, orderTotal, time.Now())
}

// OrderItemInput описывает одну позицию оформляемого заказа.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// CreateOrderInput содержит данные для оформления заказа.
type CreateOrderInput struct {
	Items         []OrderItemInput
	Shipping      model.ShippingInfo
	PaymentMethod string
	CouponCode    string
}

// CreateOrder оформляет заказ: снимает снимки товаров, считает сумму,
// повторно проверяет купон и атомарно списывает его использование.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalidInput)
	}
	if in.Shipping.Name == "" || in.Shipping.Address == "" {
		return nil, fmt.Errorf("%w: incomplete shipping info", ErrInvalidInput)
	}
	if !validation.IsValidEmail(in.Shipping.Email) {
		return nil, fmt.Errorf("%w: malformed shipping email", ErrInvalidInput)
	}

	now := time.Now()

	var items []model.OrderItem
	var subtotal int64
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
		}

		p, err := s.repo.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: product %s is unavailable", ErrInvalidInput, p.ID)
		}

		item := model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Category:  p.Category,
		}
		items = append(items, item)
		subtotal += item.Subtotal()
	}

	var discount int64
	var appliedCouponID *string
	if in.CouponCode != "" {
		c, err := s.repo.GetCouponByCode(ctx, in.CouponCode)
		if err != nil {
			return nil, err
		}
		app, err := pricing.Apply(*c, subtotal, now)
		if err != nil {
			return nil, err
		}
		discount = app.DiscountAmount
		appliedCouponID = &c.ID
	}

	method := in.PaymentMethod
	if method == "" {
		method = "bank_transfer"
	}

	order := &model.Order{
		ID:              newOrderID(now),
		Items:           items,
		Shipping:        in.Shipping,
		Payment:         model.PaymentInfo{Method: method},
		Status:          model.OrderStatusPending,
		Subtotal:        subtotal,
		Discount:        discount,
		Total:           subtotal - discount,
		AppliedCouponID: appliedCouponID,
		CreatedAt:       now,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		// Лимит мог быть исчерпан конкурирующим заказом между проверкой и списанием.
		if errors.Is(err, repository.ErrCouponExhausted) {
			return nil, pricing.ErrCouponUsageExceeded
		}
		return nil, err
	}

	return order, nil
}

// newOrderID формирует человекочитаемый номер заказа: время оформления
// и случайный суффикс.
func newOrderID(now time.Time) string {
	return fmt.Sprintf("%s-%04d", now.Format("20060102150405"), rand.Intn(10000))
}

// GetOrder возвращает заказ по номеру.
func (s *Service) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders возвращает заказы, опционально отфильтрованные по статусу.
func (s *Service) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if status != "" && !model.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.GetOrders(ctx, status)
}

// UpdateOrderStatus устанавливает статус заказа. Переходы не ограничены:
// администратор может назначить любой статус.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if !model.ValidOrderStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.UpdateOrderStatus(ctx, id, status)
}

// ReportTransfer сохраняет сведения о банковском переводе, сообщённые покупателем.
func (s *Service) ReportTransfer(ctx context.Context, orderID string, tr model.TransferReport) error {
	if tr.Amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidInput)
	}
	if tr.AccountSuffix == "" {
		return fmt.Errorf("%w: empty account suffix", ErrInvalidInput)
	}
	tr.Reported = true
	return s.repo.SetTransferReport(ctx, orderID, tr)
}

// SalesReport строит отчёт о продажах за окно [start, end].
// Заказы выбираются с запасом на предшествующее окно той же длины
// для расчёта прироста.
func (s *Service) SalesReport(ctx context.Context, start, end time.Time, period report.Period) (*report.SalesReport, error) {
	length := end.Sub(start)
	fetchFrom := start.Add(-length - time.Nanosecond)

	orders, err := s.repo.GetOrdersInRange(ctx, fetchFrom, end)
	if err != nil {
		return nil, err
	}

	return report.BuildSales(orders, start, end, period), nil
}

// Dashboard содержит сводку для главного экрана администратора.
type Dashboard struct {
	TodayOrders   int
	TodayRevenue  int64
	MonthOrders   int
	MonthRevenue  int64
	PendingOrders int
	RecentOrders  []model.Order
	TopProducts   []report.ProductStat
}

const (
	dashboardTopProducts  = 5
	dashboardRecentOrders = 10
)

// GetDashboard строит сводку по текущему месяцу.
func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	monthOrders, err := s.repo.GetOrdersInRange(ctx, monthStart, now)
	if err != nil {
		return nil, err
	}

	todayOrders := report.FilterByWindow(monthOrders, todayStart, now)

	pending, err := s.repo.GetOrders(ctx, model.OrderStatusPending)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetOrders(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(recent) > dashboardRecentOrders {
		recent = recent[:dashboardRecentOrders]
	}

	return &Dashboard{
		TodayOrders:   len(todayOrders),
		TodayRevenue:  report.Revenue(todayOrders),
		MonthOrders:   len(monthOrders),
		MonthRevenue:  report.Revenue(monthOrders),
		PendingOrders: len(pending),
		RecentOrders:  recent,
		TopProducts:   report.TopProducts(monthOrders, dashboardTopProducts),
	}, nil
}

// StartTransferChecks запускает фоновый процесс подтверждения банковских переводов.
func (s *Service) StartTransferChecks(ctx context.Context) {
	if s.bankClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processTransferBatch(ctx)
			}
		}
	}()
}

func (s *Service) processTransferBatch(ctx context.Context) {
	checks, err := s.repo.GetOrdersForTransferCheck(ctx, 100)
	if err != nil {
		return
	}

	for _, tc := range checks {
		resp, statusCode, retryAfter, err := s.bankClient.GetTransferStatus(ctx, tc.ReceiptID)
		if err != nil {
			continue
		}

		if statusCode == 429 {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if resp == nil {
			continue
		}

		switch resp.Status {
		case bank.StatusConfirmed:
			_ = s.repo.UpdateOrderStatus(ctx, tc.OrderID, model.OrderStatusPaid)
		case bank.StatusReceived, bank.StatusPending, bank.StatusNotFound, bank.StatusMismatch:
			// Перевод ещё не подтверждён, заказ остаётся в ожидании.
		}
	}
}
