// Package handler содержит HTTP-обработчики API магазина пекарни.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mhlin/bakeshop-system/internal/middleware"
	"github.com/mhlin/bakeshop-system/internal/model"
	"github.com/mhlin/bakeshop-system/internal/pricing"
	"github.com/mhlin/bakeshop-system/internal/report"
	"github.com/mhlin/bakeshop-system/internal/repository"
	"github.com/mhlin/bakeshop-system/internal/service"
	"github.com/mhlin/bakeshop-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password, name string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	ListProducts(ctx context.Context, category model.ProductCategory, activeOnly bool) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	CreateCoupon(ctx context.Context, c *model.Coupon) (*model.Coupon, error)
	UpdateCoupon(ctx context.Context, c *model.Coupon) error
	DeleteCoupon(ctx context.Context, id string) error
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	ApplyCoupon(ctx context.Context, code string, orderTotal int64) (*pricing.Application, error)
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	ReportTransfer(ctx context.Context, orderID string, tr model.TransferReport) error
	SalesReport(ctx context.Context, start, end time.Time, period report.Period) (*report.SalesReport, error)
	GetDashboard(ctx context.Context) (*service.Dashboard, error)
}

// Handler реализует HTTP-обработчики API магазина пекарни.
type Handler struct {
	service Service
	logger  *zap.Logger
	auth    *middleware.Auth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.Auth) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		auth:    auth,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// round1 округляет проценты до одного десятичного знака для ответов API.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			writeError(w, http.StatusConflict, "email is already registered")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.auth.IssueToken(u.ID, u.Role)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	})
}

// Login выполняет аутентификацию пользователя и выпуск токена.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.auth.IssueToken(u.ID, u.Role)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	})
}

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl,omitempty"`
	IsActive    bool   `json:"isActive"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    string(p.Category),
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
	}
}

// GetProducts возвращает товары каталога. Параметр category фильтрует
// по категории, параметр all=true включает отключённые товары.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	category := model.ProductCategory(r.URL.Query().Get("category"))
	activeOnly := r.URL.Query().Get("all") != "true"

	products, err := h.service.ListProducts(r.Context(), category, activeOnly)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("list products error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает один товар каталога.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("get product error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
	IsActive    *bool  `json:"isActive"`
}

func (req productRequest) toModel() *model.Product {
	p := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    model.ProductCategory(req.Category),
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p
}

// CreateProduct создаёт товар каталога.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.toModel())
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create product error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(*p))
}

// UpdateProduct обновляет товар каталога.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p := req.toModel()
	p.ID = chi.URLParam(r, "id")

	if err := h.service.UpdateProduct(r.Context(), p); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("update product error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// DeleteProduct удаляет товар каталога.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("delete product error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type couponResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Value       int64  `json:"value"`
	MinPurchase int64  `json:"minPurchase"`
	MaxDiscount *int64 `json:"maxDiscount,omitempty"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	UsageLimit  *int   `json:"usageLimit,omitempty"`
	UsageCount  int    `json:"usageCount"`
	IsActive    bool   `json:"isActive"`
}

func toCouponResponse(c model.Coupon) couponResponse {
	return couponResponse{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Type:        string(c.Type),
		Value:       c.Value,
		MinPurchase: c.MinPurchase,
		MaxDiscount: c.MaxDiscount,
		StartDate:   c.StartDate.Format(time.RFC3339),
		EndDate:     c.EndDate.Format(time.RFC3339),
		UsageLimit:  c.UsageLimit,
		UsageCount:  c.UsageCount,
		IsActive:    c.IsActive,
	}
}

type couponRequest struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Value       int64     `json:"value"`
	MinPurchase int64     `json:"minPurchase"`
	MaxDiscount *int64    `json:"maxDiscount"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	UsageLimit  *int      `json:"usageLimit"`
	IsActive    *bool     `json:"isActive"`
}

func (req couponRequest) toModel() *model.Coupon {
	c := &model.Coupon{
		Code:        req.Code,
		Name:        req.Name,
		Type:        model.CouponType(req.Type),
		Value:       req.Value,
		MinPurchase: req.MinPurchase,
		MaxDiscount: req.MaxDiscount,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		UsageLimit:  req.UsageLimit,
		IsActive:    true,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return c
}

// GetCoupons возвращает все купоны.
func (h *Handler) GetCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.ListCoupons(r.Context())
	if err != nil {
		h.logger.Error("list coupons error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]couponResponse, 0, len(coupons))
	for _, c := range coupons {
		resp = append(resp, toCouponResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateCoupon создаёт купон.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	c, err := h.service.CreateCoupon(r.Context(), req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCouponExists):
			writeError(w, http.StatusConflict, "coupon code already exists")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("create coupon error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toCouponResponse(*c))
}

// UpdateCoupon обновляет купон.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	c := req.toModel()
	c.ID = chi.URLParam(r, "id")

	if err := h.service.UpdateCoupon(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, repository.ErrCouponNotFound):
			writeError(w, http.StatusNotFound, "coupon not found")
		case errors.Is(err, repository.ErrCouponExists):
			writeError(w, http.StatusConflict, "coupon code already exists")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("update coupon error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toCouponResponse(*c))
}

// DeleteCoupon удаляет купон.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCoupon(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		h.logger.Error("delete coupon error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type applyCouponRequest struct {
	Code       string `json:"code"`
	OrderTotal int64  `json:"orderTotal"`
}

type applyCouponResponse struct {
	Valid          bool           `json:"valid"`
	Coupon         couponResponse `json:"coupon"`
	DiscountAmount int64          `json:"discountAmount"`
	FinalTotal     int64          `json:"finalTotal"`
}

// ApplyCoupon проверяет купон для указанной суммы заказа и возвращает
// размер скидки. Счётчик использований не изменяется.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	app, err := h.service.ApplyCoupon(r.Context(), req.Code, req.OrderTotal)
	if err != nil {
		h.writeCouponError(w, err, "apply coupon error")
		return
	}

	writeJSON(w, http.StatusOK, applyCouponResponse{
		Valid:          true,
		Coupon:         toCouponResponse(app.Coupon),
		DiscountAmount: app.DiscountAmount,
		FinalTotal:     app.FinalTotal,
	})
}

// writeCouponError преобразует ошибки проверки купона в HTTP-ответы:
// отсутствующий купон — 404, нарушенные условия применения — 400.
func (h *Handler) writeCouponError(w http.ResponseWriter, err error, logMsg string) {
	var belowMin *pricing.BelowMinimumError

	switch {
	case errors.Is(err, repository.ErrCouponNotFound):
		writeError(w, http.StatusNotFound, "coupon not found")
	case errors.Is(err, pricing.ErrCouponInactive),
		errors.Is(err, pricing.ErrCouponNotYetValid),
		errors.Is(err, pricing.ErrCouponExpired),
		errors.Is(err, pricing.ErrCouponUsageExceeded):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &belowMin):
		writeError(w, http.StatusBadRequest, belowMin.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(logMsg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type orderItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category"`
	Subtotal  int64  `json:"subtotal"`
}

type shippingResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address"`
}

type transferResponse struct {
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	Amount        int64  `json:"amount"`
	AccountSuffix string `json:"accountSuffix"`
	ReceiptID     string `json:"receiptId,omitempty"`
}

type paymentResponse struct {
	Method   string            `json:"method"`
	Transfer *transferResponse `json:"transfer,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Items           []orderItemResponse `json:"items"`
	Shipping        shippingResponse    `json:"shipping"`
	Payment         paymentResponse     `json:"payment"`
	Status          string              `json:"status"`
	Subtotal        int64               `json:"subtotal"`
	Discount        int64               `json:"discount"`
	Total           int64               `json:"total"`
	AppliedCouponID *string             `json:"appliedCouponId,omitempty"`
	CreatedAt       string              `json:"createdAt"`
}

func toOrderResponse(o model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Category:  string(it.Category),
			Subtotal:  it.Subtotal(),
		})
	}

	payment := paymentResponse{Method: o.Payment.Method}
	if o.Payment.Transfer != nil {
		payment.Transfer = &transferResponse{
			Date:          o.Payment.Transfer.Date,
			Time:          o.Payment.Transfer.Time,
			Amount:        o.Payment.Transfer.Amount,
			AccountSuffix: o.Payment.Transfer.AccountSuffix,
			ReceiptID:     o.Payment.Transfer.ReceiptID,
		}
	}

	return orderResponse{
		ID: o.ID,
		Items: items,
		Shipping: shippingResponse{
			Name:    o.Shipping.Name,
			Email:   o.Shipping.Email,
			Phone:   o.Shipping.Phone,
			Address: o.Shipping.Address,
		},
		Payment:         payment,
		Status:          string(o.Status),
		Subtotal:        o.Subtotal,
		Discount:        o.Discount,
		Total:           o.Total,
		AppliedCouponID: o.AppliedCouponID,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type shippingRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type createOrderRequest struct {
	Items         []orderItemRequest `json:"items"`
	Shipping      shippingRequest    `json:"shipping"`
	PaymentMethod string             `json:"paymentMethod"`
	CouponCode    string             `json:"couponCode"`
}

// CreateOrder оформляет заказ покупателя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	in := service.CreateOrderInput{
		Shipping: model.ShippingInfo{
			Name:    req.Shipping.Name,
			Email:   req.Shipping.Email,
			Phone:   req.Shipping.Phone,
			Address: req.Shipping.Address,
		},
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		in.Shipping.UserID = &userID
	}

	order, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusBadRequest, "unknown product in order")
			return
		}
		h.writeCouponError(w, err, "create order error")
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(*order))
}

// GetOrder возвращает заказ по номеру.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("get order error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

type transferRequest struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	Amount        int64  `json:"amount"`
	AccountSuffix string `json:"accountSuffix"`
	ReceiptID     string `json:"receiptId"`
}

// ReportTransfer сохраняет сведения о банковском переводе по заказу.
func (h *Handler) ReportTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	tr := model.TransferReport{
		Date:          req.Date,
		Time:          req.Time,
		Amount:        req.Amount,
		AccountSuffix: req.AccountSuffix,
		ReceiptID:     req.ReceiptID,
	}

	if err := h.service.ReportTransfer(r.Context(), chi.URLParam(r, "id"), tr); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("report transfer error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetOrders возвращает заказы, опционально отфильтрованные по статусу.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	status := model.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.service.ListOrders(r.Context(), status)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("list orders error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus устанавливает статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	orderID := chi.URLParam(r, "id")
	if err := h.service.UpdateOrderStatus(r.Context(), orderID, model.OrderStatus(req.Status)); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.String("order", orderID))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type periodBucketResponse struct {
	Period  string `json:"period"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type productStatResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

type categoryStatResponse struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Revenue  int64  `json:"revenue"`
}

type customerStatResponse struct {
	Email   string `json:"email"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type growthResponse struct {
	Revenue float64 `json:"revenue"`
	Orders  float64 `json:"orders"`
}

type salesReportResponse struct {
	StartDate         string                 `json:"startDate"`
	EndDate           string                 `json:"endDate"`
	Period            string                 `json:"period"`
	TotalOrders       int                    `json:"totalOrders"`
	TotalRevenue      int64                  `json:"totalRevenue"`
	AverageOrderValue int64                  `json:"averageOrderValue"`
	OrdersByStatus    map[string]int         `json:"ordersByStatus"`
	RevenueByPeriod   []periodBucketResponse `json:"revenueByPeriod"`
	TopProducts       []productStatResponse  `json:"topProducts"`
	CategoryStats     []categoryStatResponse `json:"categoryStats"`
	Growth            growthResponse         `json:"growth"`
	DistinctCustomers int                    `json:"distinctCustomers"`
	RepeatCustomers   int                    `json:"repeatCustomers"`
	RetentionRate     float64                `json:"retentionRate"`
	TopCustomers      []customerStatResponse `json:"topCustomers"`
}

func toSalesReportResponse(r *report.SalesReport) salesReportResponse {
	byStatus := make(map[string]int, len(r.OrdersByStatus))
	for status, n := range r.OrdersByStatus {
		byStatus[string(status)] = n
	}

	buckets := make([]periodBucketResponse, 0, len(r.RevenueByPeriod))
	for _, b := range r.RevenueByPeriod {
		buckets = append(buckets, periodBucketResponse{
			Period:  b.Period,
			Orders:  b.Orders,
			Revenue: b.Revenue,
		})
	}

	products := make([]productStatResponse, 0, len(r.TopProducts))
	for _, p := range r.TopProducts {
		products = append(products, productStatResponse{
			ProductID: p.ProductID,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Revenue:   p.Revenue,
		})
	}

	categories := make([]categoryStatResponse, 0, len(r.CategoryStats))
	for _, c := range r.CategoryStats {
		categories = append(categories, categoryStatResponse{
			Category: string(c.Category),
			Quantity: c.Quantity,
			Revenue:  c.Revenue,
		})
	}

	customers := make([]customerStatResponse, 0, len(r.TopCustomers))
	for _, c := range r.TopCustomers {
		customers = append(customers, customerStatResponse{
			Email:   c.Email,
			Orders:  c.Orders,
			Revenue: c.Revenue,
		})
	}

	return salesReportResponse{
		StartDate:         r.StartDate.Format(time.RFC3339),
		EndDate:           r.EndDate.Format(time.RFC3339),
		Period:            string(r.Period),
		TotalOrders:       r.TotalOrders,
		TotalRevenue:      r.TotalRevenue,
		AverageOrderValue: r.AverageOrderValue,
		OrdersByStatus:    byStatus,
		RevenueByPeriod:   buckets,
		TopProducts:       products,
		CategoryStats:     categories,
		Growth: growthResponse{
			Revenue: round1(r.Growth.Revenue),
			Orders:  round1(r.Growth.Orders),
		},
		DistinctCustomers: r.DistinctCustomers,
		RepeatCustomers:   r.RepeatCustomers,
		RetentionRate:     round1(r.RetentionRate),
		TopCustomers:      customers,
	}
}

// GetSalesReport строит отчёт о продажах за указанное окно.
// Параметры: startDate и endDate в формате YYYY-MM-DD, period —
// daily, weekly, monthly или yearly.
func (h *Handler) GetSalesReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, end, err := validation.ParseDateRange(q.Get("startDate"), q.Get("endDate"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	period, ok := report.ParsePeriod(q.Get("period"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown period "+q.Get("period"))
		return
	}

	rep, err := h.service.SalesReport(r.Context(), start, end, period)
	if err != nil {
		h.logger.Error("sales report error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toSalesReportResponse(rep))
}

type dashboardResponse struct {
	TodayOrders   int                   `json:"todayOrders"`
	TodayRevenue  int64                 `json:"todayRevenue"`
	MonthOrders   int                   `json:"monthOrders"`
	MonthRevenue  int64                 `json:"monthRevenue"`
	PendingOrders int                   `json:"pendingOrders"`
	RecentOrders  []orderResponse       `json:"recentOrders"`
	TopProducts   []productStatResponse `json:"topProducts"`
}

// GetDashboard возвращает сводку для главного экрана администратора.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetDashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	recent := make([]orderResponse, 0, len(d.RecentOrders))
	for _, o := range d.RecentOrders {
		recent = append(recent, toOrderResponse(o))
	}

	products := make([]productStatResponse, 0, len(d.TopProducts))
	for _, p := range d.TopProducts {
		products = append(products, productStatResponse{
			ProductID: p.ProductID,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Revenue:   p.Revenue,
		})
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		TodayOrders:   d.TodayOrders,
		TodayRevenue:  d.TodayRevenue,
		MonthOrders:   d.MonthOrders,
		MonthRevenue:  d.MonthRevenue,
		PendingOrders: d.PendingOrders,
		RecentOrders:  recent,
		TopProducts:   products,
	})
}
