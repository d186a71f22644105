// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mhlin/bakeshop-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже занятым email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrCouponNotFound возвращается, если купон с указанным кодом не найден.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponExists возвращается при попытке создать купон с уже занятым кодом.
	ErrCouponExists = errors.New("coupon code already exists")
	// ErrCouponExhausted возвращается, если лимит использований купона исчерпан
	// на момент оформления заказа.
	ErrCouponExhausted = errors.New("coupon usage limit exhausted")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при сериализационных и сетевых сбоях.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser сохраняет нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, role, created_at FROM users WHERE email = $1`,
		email,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.UserRole(role)

	return &u, nil
}

// CreateProduct сохраняет новый товар каталога.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, description, price, category, image_url, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Description, p.Price, string(p.Category), p.ImageURL, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// UpdateProduct обновляет товар каталога.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, category = $5, image_url = $6, is_active = $7
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, string(p.Category), p.ImageURL, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct удаляет товар каталога.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, price, category, image_url, is_active, created_at
		 FROM products WHERE id = $1`,
		id,
	)

	var p model.Product
	var category string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &category, &p.ImageURL, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p.Category = model.ProductCategory(category)

	return &p, nil
}

// GetProducts возвращает товары каталога, опционально отфильтрованные
// по категории и признаку активности.
func (r *PostgresRepository) GetProducts(ctx context.Context, category model.ProductCategory, activeOnly bool) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, price, category, image_url, is_active, created_at
		 FROM products
		 WHERE ($1 = '' OR category = $1)
		   AND (NOT $2 OR is_active)
		 ORDER BY created_at DESC`,
		string(category), activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		var p model.Product
		var cat string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &cat, &p.ImageURL, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Category = model.ProductCategory(cat)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const couponColumns = `id, code, name, type, value, min_purchase, max_discount,
	start_date, end_date, usage_limit, usage_count, is_active, created_at, updated_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	var couponType string
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &couponType, &c.Value, &c.MinPurchase, &c.MaxDiscount,
		&c.StartDate, &c.EndDate, &c.UsageLimit, &c.UsageCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Type = model.CouponType(couponType)
	return &c, nil
}

// CreateCoupon сохраняет новый купон.
func (r *PostgresRepository) CreateCoupon(ctx context.Context, c *model.Coupon) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (id, code, name, type, value, min_purchase, max_discount,
			start_date, end_date, usage_limit, usage_count, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Code, c.Name, string(c.Type), c.Value, c.MinPurchase, c.MaxDiscount,
		c.StartDate, c.EndDate, c.UsageLimit, c.UsageCount, c.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrCouponExists, c.Code)
		}
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

// UpdateCoupon обновляет поля купона. Счётчик использований не изменяется.
func (r *PostgresRepository) UpdateCoupon(ctx context.Context, c *model.Coupon) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE coupons
		 SET code = $2, name = $3, type = $4, value = $5, min_purchase = $6, max_discount = $7,
		     start_date = $8, end_date = $9, usage_limit = $10, is_active = $11, updated_at = now()
		 WHERE id = $1`,
		c.ID, c.Code, c.Name, string(c.Type), c.Value, c.MinPurchase, c.MaxDiscount,
		c.StartDate, c.EndDate, c.UsageLimit, c.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrCouponExists, c.Code)
		}
		return fmt.Errorf("update coupon: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// DeleteCoupon удаляет купон.
func (r *PostgresRepository) DeleteCoupon(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// GetCoupons возвращает все купоны.
func (r *PostgresRepository) GetCoupons(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select coupons: %w", err)
	}
	defer rows.Close()

	var res []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		res = append(res, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCouponByCode возвращает купон по коду без учёта регистра.
func (r *PostgresRepository) GetCouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE lower(code) = lower($1)`,
		code,
	)

	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return c, nil
}

// CreateOrder сохраняет заказ с позициями. Если к заказу применён купон,
// его счётчик использований увеличивается в той же транзакции с проверкой
// лимита, поэтому конкурирующие оформления не могут превысить лимит.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if o.AppliedCouponID != nil {
			cmdTag, err := tx.Exec(ctx,
				`UPDATE coupons
				 SET usage_count = usage_count + 1, updated_at = now()
				 WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`,
				*o.AppliedCouponID,
			)
			if err != nil {
				return fmt.Errorf("redeem coupon: %w", err)
			}
			if cmdTag.RowsAffected() == 0 {
				return ErrCouponExhausted
			}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, status, subtotal, discount, total, applied_coupon_id,
				shipping_name, shipping_email, shipping_phone, shipping_address, payment_method, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			o.ID, o.Shipping.UserID, string(o.Status), o.Subtotal, o.Discount, o.Total, o.AppliedCouponID,
			o.Shipping.Name, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address, o.Payment.Method, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range o.Items {
			_, err = tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, name, price, quantity, category)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, it.ProductID, it.Name, it.Price, it.Quantity, string(it.Category),
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

func scanOrderRow(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var status string
	var transferReported bool
	var tr model.TransferReport

	err := row.Scan(
		&o.ID, &o.Shipping.UserID, &status, &o.Subtotal, &o.Discount, &o.Total, &o.AppliedCouponID,
		&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address,
		&o.Payment.Method, &transferReported,
		&tr.Date, &tr.Time, &tr.Amount, &tr.AccountSuffix, &tr.ReceiptID,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = model.OrderStatus(status)
	if transferReported {
		tr.Reported = true
		o.Payment.Transfer = &tr
	}

	return &o, nil
}

const orderColumns = `id, user_id, status, subtotal, discount, total, applied_coupon_id,
	shipping_name, shipping_email, shipping_phone, shipping_address,
	payment_method, transfer_reported,
	transfer_date, transfer_time, transfer_amount, transfer_account_suffix, transfer_receipt_id,
	created_at`

// GetOrder возвращает заказ с позициями по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	)

	o, err := scanOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]

	return o, nil
}

// GetOrders возвращает заказы, опционально отфильтрованные по статусу.
func (r *PostgresRepository) GetOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

// GetOrdersInRange возвращает заказы, созданные в окне [from, to] включительно.
func (r *PostgresRepository) GetOrdersInRange(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE created_at >= $1 AND created_at <= $2
		 ORDER BY created_at`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders in range: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

func (r *PostgresRepository) collectOrders(ctx context.Context, rows pgx.Rows) ([]model.Order, error) {
	var res []model.Order
	var ids []string
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
		ids = append(ids, o.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Items = items[res[i].ID]
	}

	return res, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]model.OrderItem, error) {
	res := make(map[string][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return res, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, name, price, quantity, category
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it model.OrderItem
		var category string
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &category); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Category = model.ProductCategory(category)
		res[orderID] = append(res[orderID], it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateOrderStatus устанавливает статус заказа.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SetTransferReport сохраняет сведения о банковском переводе для заказа.
func (r *PostgresRepository) SetTransferReport(ctx context.Context, orderID string, tr model.TransferReport) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET transfer_reported = TRUE, transfer_date = $2, transfer_time = $3,
		     transfer_amount = $4, transfer_account_suffix = $5, transfer_receipt_id = $6
		 WHERE id = $1`,
		orderID, tr.Date, tr.Time, tr.Amount, tr.AccountSuffix, tr.ReceiptID,
	)
	if err != nil {
		return fmt.Errorf("set transfer report: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// TransferCheck описывает заказ, ожидающий подтверждения перевода банком.
type TransferCheck struct {
	OrderID   string
	ReceiptID string
}

// GetOrdersForTransferCheck возвращает неоплаченные заказы с сообщённым переводом.
func (r *PostgresRepository) GetOrdersForTransferCheck(ctx context.Context, limit int) ([]TransferCheck, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, transfer_receipt_id
		 FROM orders
		 WHERE status = $1 AND transfer_reported AND transfer_receipt_id <> ''
		 ORDER BY created_at
		 LIMIT $2`,
		string(model.OrderStatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders for transfer check: %w", err)
	}
	defer rows.Close()

	var res []TransferCheck
	for rows.Next() {
		var tc TransferCheck
		if err := rows.Scan(&tc.OrderID, &tc.ReceiptID); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
