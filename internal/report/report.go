// Package report реализует агрегацию заказов для отчётов о продажах.
package report

import (
	"sort"
	"time"

	"github.com/mhlin/bakeshop-system/internal/model"
)

// Period определяет гранулярность разбиения выручки по периодам.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod разбирает строковое значение гранулярности.
// Пустая строка означает месячную гранулярность по умолчанию.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "":
		return PeriodMonthly, true
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return Period(s), true
	}
	return "", false
}

// PeriodBucket содержит количество заказов и выручку за один период.
type PeriodBucket struct {
	Period  string
	Orders  int
	Revenue int64
}

// ProductStat содержит накопленные продажи одного товара.
type ProductStat struct {
	ProductID string
	Name      string
	Quantity  int
	Revenue   int64
}

// CategoryStat содержит накопленные продажи одной категории.
type CategoryStat struct {
	Category model.ProductCategory
	Quantity int
	Revenue  int64
}

// CustomerStat содержит накопленные заказы одного покупателя.
// Покупатели группируются по email из данных доставки.
type CustomerStat struct {
	Email   string
	Orders  int
	Revenue int64
}

// Growth содержит прирост показателей относительно предыдущего окна, в процентах.
type Growth struct {
	Revenue float64
	Orders  float64
}

// SalesReport содержит сводную статистику продаж за период.
type SalesReport struct {
	StartDate         time.Time
	EndDate           time.Time
	Period            Period
	TotalOrders       int
	TotalRevenue      int64
	AverageOrderValue int64
	OrdersByStatus    map[model.OrderStatus]int
	RevenueByPeriod   []PeriodBucket
	TopProducts       []ProductStat
	CategoryStats     []CategoryStat
	Growth            Growth
	DistinctCustomers int
	RepeatCustomers   int
	RetentionRate     float64
	TopCustomers      []CustomerStat
}

const (
	topProductsLimit  = 10
	topCustomersLimit = 10
)

// BuildSales строит отчёт по заказам за окно [start, end] включительно.
// Во входном срезе допустимы и более ранние заказы: для расчёта прироста
// используется предшествующее окно той же длины. Пустое окно даёт нулевую
// статистику, а не ошибку.
func BuildSales(orders []model.Order, start, end time.Time, period Period) *SalesReport {
	window := FilterByWindow(orders, start, end)

	length := end.Sub(start)
	prevEnd := start.Add(-time.Nanosecond)
	prevStart := prevEnd.Add(-length)
	previous := FilterByWindow(orders, prevStart, prevEnd)

	r := &SalesReport{
		StartDate:       start,
		EndDate:         end,
		Period:          period,
		TotalOrders:     len(window),
		TotalRevenue:    Revenue(window),
		OrdersByStatus:  ordersByStatus(window),
		RevenueByPeriod: revenueByPeriod(window, period),
		TopProducts:     TopProducts(window, topProductsLimit),
		CategoryStats:   categoryStats(window),
	}

	if r.TotalOrders > 0 {
		r.AverageOrderValue = r.TotalRevenue / int64(r.TotalOrders)
	}

	r.Growth = Growth{
		Revenue: growthPercent(r.TotalRevenue, Revenue(previous)),
		Orders:  growthPercent(int64(r.TotalOrders), int64(len(previous))),
	}

	customers := customerStats(window)
	r.DistinctCustomers = len(customers)
	for _, c := range customers {
		if c.Orders > 1 {
			r.RepeatCustomers++
		}
	}
	if r.DistinctCustomers > 0 {
		r.RetentionRate = float64(r.RepeatCustomers) / float64(r.DistinctCustomers) * 100
	}
	if len(customers) > topCustomersLimit {
		customers = customers[:topCustomersLimit]
	}
	r.TopCustomers = customers

	return r
}

// FilterByWindow возвращает заказы, созданные в окне [start, end] включительно.
func FilterByWindow(orders []model.Order, start, end time.Time) []model.Order {
	res := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.CreatedAt.Before(start) || o.CreatedAt.After(end) {
			continue
		}
		res = append(res, o)
	}
	return res
}

// Revenue возвращает суммарную выручку по заказам.
func Revenue(orders []model.Order) int64 {
	var total int64
	for _, o := range orders {
		total += o.Total
	}
	return total
}

// TopProducts возвращает не более n товаров, отсортированных по убыванию выручки.
func TopProducts(orders []model.Order, n int) []ProductStat {
	byID := make(map[string]*ProductStat)
	for _, o := range orders {
		for _, it := range o.Items {
			s, ok := byID[it.ProductID]
			if !ok {
				s = &ProductStat{ProductID: it.ProductID, Name: it.Name}
				byID[it.ProductID] = s
			}
			s.Quantity += it.Quantity
			s.Revenue += it.Subtotal()
		}
	}

	res := make([]ProductStat, 0, len(byID))
	for _, s := range byID {
		res = append(res, *s)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Revenue != res[j].Revenue {
			return res[i].Revenue > res[j].Revenue
		}
		if res[i].Quantity != res[j].Quantity {
			return res[i].Quantity > res[j].Quantity
		}
		return res[i].ProductID < res[j].ProductID
	})

	if len(res) > n {
		res = res[:n]
	}
	return res
}

func ordersByStatus(orders []model.Order) map[model.OrderStatus]int {
	res := map[model.OrderStatus]int{
		model.OrderStatusPending:   0,
		model.OrderStatusPaid:      0,
		model.OrderStatusShipped:   0,
		model.OrderStatusDelivered: 0,
		model.OrderStatusCancelled: 0,
	}
	for _, o := range orders {
		res[o.Status]++
	}
	return res
}

func revenueByPeriod(orders []model.Order, period Period) []PeriodBucket {
	byKey := make(map[string]*PeriodBucket)
	for _, o := range orders {
		key := bucketKey(o.CreatedAt, period)
		b, ok := byKey[key]
		if !ok {
			b = &PeriodBucket{Period: key}
			byKey[key] = b
		}
		b.Orders++
		b.Revenue += o.Total
	}

	res := make([]PeriodBucket, 0, len(byKey))
	for _, b := range byKey {
		res = append(res, *b)
	}

	// Ключи формата YYYY[-MM[-DD]] упорядочиваются лексикографически.
	sort.Slice(res, func(i, j int) bool {
		return res[i].Period < res[j].Period
	})

	return res
}

func bucketKey(t time.Time, period Period) string {
	switch period {
	case PeriodDaily:
		return t.Format("2006-01-02")
	case PeriodWeekly:
		return weekStart(t).Format("2006-01-02")
	case PeriodYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

// weekStart возвращает понедельник недели, содержащей t (начало ISO-недели).
func weekStart(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return t.AddDate(0, 0, 1-wd)
}

func categoryStats(orders []model.Order) []CategoryStat {
	byCategory := make(map[model.ProductCategory]*CategoryStat)
	for _, o := range orders {
		for _, it := range o.Items {
			s, ok := byCategory[it.Category]
			if !ok {
				s = &CategoryStat{Category: it.Category}
				byCategory[it.Category] = s
			}
			s.Quantity += it.Quantity
			s.Revenue += it.Subtotal()
		}
	}

	res := make([]CategoryStat, 0, len(byCategory))
	for _, s := range byCategory {
		res = append(res, *s)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Revenue != res[j].Revenue {
			return res[i].Revenue > res[j].Revenue
		}
		return res[i].Category < res[j].Category
	})

	return res
}

func customerStats(orders []model.Order) []CustomerStat {
	byEmail := make(map[string]*CustomerStat)
	for _, o := range orders {
		if o.Shipping.Email == "" {
			continue
		}
		s, ok := byEmail[o.Shipping.Email]
		if !ok {
			s = &CustomerStat{Email: o.Shipping.Email}
			byEmail[o.Shipping.Email] = s
		}
		s.Orders++
		s.Revenue += o.Total
	}

	res := make([]CustomerStat, 0, len(byEmail))
	for _, s := range byEmail {
		res = append(res, *s)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Revenue != res[j].Revenue {
			return res[i].Revenue > res[j].Revenue
		}
		return res[i].Email < res[j].Email
	})

	return res
}

// growthPercent возвращает прирост в процентах относительно предыдущего значения.
// При нулевом предыдущем значении прирост считается равным нулю.
func growthPercent(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
