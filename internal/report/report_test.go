package report

import (
	"testing"
	"time"

	"github.com/mhlin/bakeshop-system/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func order(id string, created time.Time, total int64, status model.OrderStatus, email string, items ...model.OrderItem) model.Order {
	return model.Order{
		ID:        id,
		Items:     items,
		Shipping:  model.ShippingInfo{Email: email},
		Status:    status,
		Total:     total,
		CreatedAt: created,
	}
}

func TestBuildSales_EmptyWindow(t *testing.T) {
	r := BuildSales(nil, day("2026-01-01"), day("2026-01-31"), PeriodDaily)

	if r.TotalOrders != 0 {
		t.Fatalf("TotalOrders = %d, want 0", r.TotalOrders)
	}
	if r.TotalRevenue != 0 {
		t.Fatalf("TotalRevenue = %d, want 0", r.TotalRevenue)
	}
	if r.AverageOrderValue != 0 {
		t.Fatalf("AverageOrderValue = %d, want 0", r.AverageOrderValue)
	}
	if r.Growth.Revenue != 0 || r.Growth.Orders != 0 {
		t.Fatalf("Growth = %+v, want zero", r.Growth)
	}
	if r.RetentionRate != 0 {
		t.Fatalf("RetentionRate = %v, want 0", r.RetentionRate)
	}
	if len(r.RevenueByPeriod) != 0 {
		t.Fatalf("RevenueByPeriod = %v, want empty", r.RevenueByPeriod)
	}
}

func TestBuildSales_Totals(t *testing.T) {
	orders := []model.Order{
		order("a", day("2026-02-10"), 1000, model.OrderStatusPaid, "a@example.com"),
		order("b", day("2026-02-15"), 2000, model.OrderStatusPending, "b@example.com"),
	}

	r := BuildSales(orders, day("2026-02-01"), day("2026-02-28"), PeriodMonthly)

	if r.TotalOrders != 2 {
		t.Fatalf("TotalOrders = %d, want 2", r.TotalOrders)
	}
	if r.TotalRevenue != 3000 {
		t.Fatalf("TotalRevenue = %d, want 3000", r.TotalRevenue)
	}
	if r.AverageOrderValue != 1500 {
		t.Fatalf("AverageOrderValue = %d, want 1500", r.AverageOrderValue)
	}
	if r.OrdersByStatus[model.OrderStatusPaid] != 1 {
		t.Fatalf("paid orders = %d, want 1", r.OrdersByStatus[model.OrderStatusPaid])
	}
	if r.OrdersByStatus[model.OrderStatusCancelled] != 0 {
		t.Fatalf("cancelled orders = %d, want 0", r.OrdersByStatus[model.OrderStatusCancelled])
	}
}

func TestBuildSales_WindowFiltering(t *testing.T) {
	orders := []model.Order{
		order("before", day("2026-01-31"), 100, model.OrderStatusPaid, "a@example.com"),
		order("inside", day("2026-02-01"), 200, model.OrderStatusPaid, "a@example.com"),
		order("after", day("2026-03-01"), 400, model.OrderStatusPaid, "a@example.com"),
	}

	r := BuildSales(orders, day("2026-02-01"), day("2026-02-28"), PeriodDaily)

	if r.TotalOrders != 1 || r.TotalRevenue != 200 {
		t.Fatalf("got %d orders / %d revenue, want 1 / 200", r.TotalOrders, r.TotalRevenue)
	}
}

func TestBuildSales_BucketsSortedAndConserveRevenue(t *testing.T) {
	orders := []model.Order{
		order("c", day("2026-03-20"), 300, model.OrderStatusPaid, "a@example.com"),
		order("a", day("2026-01-05"), 100, model.OrderStatusPaid, "a@example.com"),
		order("b", day("2026-02-11"), 200, model.OrderStatusPaid, "a@example.com"),
		order("d", day("2026-02-25"), 50, model.OrderStatusPaid, "a@example.com"),
	}

	r := BuildSales(orders, day("2026-01-01"), day("2026-03-31"), PeriodMonthly)

	want := []PeriodBucket{
		{Period: "2026-01", Orders: 1, Revenue: 100},
		{Period: "2026-02", Orders: 2, Revenue: 250},
		{Period: "2026-03", Orders: 1, Revenue: 300},
	}
	if len(r.RevenueByPeriod) != len(want) {
		t.Fatalf("buckets = %+v, want %+v", r.RevenueByPeriod, want)
	}

	var sum int64
	for i, b := range r.RevenueByPeriod {
		if b != want[i] {
			t.Fatalf("bucket[%d] = %+v, want %+v", i, b, want[i])
		}
		sum += b.Revenue
	}
	if sum != r.TotalRevenue {
		t.Fatalf("bucket revenue sum = %d, total = %d", sum, r.TotalRevenue)
	}
}

func TestBucketKey(t *testing.T) {
	// 2026-02-11 — среда, понедельник той же недели — 2026-02-09.
	ts := day("2026-02-11")

	tests := []struct {
		period Period
		want   string
	}{
		{PeriodDaily, "2026-02-11"},
		{PeriodWeekly, "2026-02-09"},
		{PeriodMonthly, "2026-02"},
		{PeriodYearly, "2026"},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			if got := bucketKey(ts, tt.period); got != tt.want {
				t.Fatalf("bucketKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeekStart_SundayBelongsToPreviousWeek(t *testing.T) {
	// 2026-02-15 — воскресенье, ISO-неделя начинается 2026-02-09.
	got := weekStart(day("2026-02-15")).Format("2006-01-02")
	if got != "2026-02-09" {
		t.Fatalf("weekStart = %q, want 2026-02-09", got)
	}
}

func TestBuildSales_Growth(t *testing.T) {
	orders := []model.Order{
		// Предыдущее окно: январь.
		order("p1", day("2026-01-10"), 1000, model.OrderStatusPaid, "a@example.com"),
		// Текущее окно: февраль (длина окна совпадает с январём по дням).
		order("c1", day("2026-02-10"), 1500, model.OrderStatusPaid, "a@example.com"),
		order("c2", day("2026-02-20"), 1500, model.OrderStatusPaid, "b@example.com"),
	}

	r := BuildSales(orders, day("2026-02-01"), day("2026-03-01"), PeriodMonthly)

	if r.Growth.Revenue != 200 {
		t.Fatalf("revenue growth = %v, want 200", r.Growth.Revenue)
	}
	if r.Growth.Orders != 100 {
		t.Fatalf("orders growth = %v, want 100", r.Growth.Orders)
	}
}

func TestBuildSales_GrowthZeroWhenNoPreviousData(t *testing.T) {
	orders := []model.Order{
		order("c1", day("2026-02-10"), 1500, model.OrderStatusPaid, "a@example.com"),
	}

	r := BuildSales(orders, day("2026-02-01"), day("2026-02-28"), PeriodMonthly)

	if r.Growth.Revenue != 0 || r.Growth.Orders != 0 {
		t.Fatalf("growth = %+v, want zero when previous window is empty", r.Growth)
	}
}

func TestTopProducts(t *testing.T) {
	items := func(id string, price int64, qty int) model.OrderItem {
		return model.OrderItem{ProductID: id, Name: id, Price: price, Quantity: qty, Category: model.CategoryBread}
	}

	orders := []model.Order{
		order("a", day("2026-02-10"), 0, model.OrderStatusPaid, "a@example.com",
			items("croissant", 60, 2), items("sourdough", 180, 1)),
		order("b", day("2026-02-11"), 0, model.OrderStatusPaid, "b@example.com",
			items("croissant", 60, 3)),
	}

	top := TopProducts(orders, 10)

	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	if top[0].ProductID != "croissant" || top[0].Quantity != 5 || top[0].Revenue != 300 {
		t.Fatalf("top[0] = %+v", top[0])
	}
	if top[1].ProductID != "sourdough" || top[1].Revenue != 180 {
		t.Fatalf("top[1] = %+v", top[1])
	}

	limited := TopProducts(orders, 1)
	if len(limited) != 1 || limited[0].ProductID != "croissant" {
		t.Fatalf("limited = %+v", limited)
	}
}

func TestBuildSales_Customers(t *testing.T) {
	orders := []model.Order{
		order("a", day("2026-02-01"), 500, model.OrderStatusPaid, "repeat@example.com"),
		order("b", day("2026-02-05"), 700, model.OrderStatusPaid, "repeat@example.com"),
		order("c", day("2026-02-10"), 300, model.OrderStatusPaid, "once@example.com"),
	}

	r := BuildSales(orders, day("2026-02-01"), day("2026-02-28"), PeriodMonthly)

	if r.DistinctCustomers != 2 {
		t.Fatalf("DistinctCustomers = %d, want 2", r.DistinctCustomers)
	}
	if r.RepeatCustomers != 1 {
		t.Fatalf("RepeatCustomers = %d, want 1", r.RepeatCustomers)
	}
	if r.RetentionRate != 50 {
		t.Fatalf("RetentionRate = %v, want 50", r.RetentionRate)
	}
	if len(r.TopCustomers) != 2 || r.TopCustomers[0].Email != "repeat@example.com" {
		t.Fatalf("TopCustomers = %+v", r.TopCustomers)
	}
	if r.TopCustomers[0].Revenue != 1200 {
		t.Fatalf("top customer revenue = %d, want 1200", r.TopCustomers[0].Revenue)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in    string
		want  Period
		valid bool
	}{
		{"", PeriodMonthly, true},
		{"daily", PeriodDaily, true},
		{"weekly", PeriodWeekly, true},
		{"monthly", PeriodMonthly, true},
		{"yearly", PeriodYearly, true},
		{"hourly", "", false},
	}

	for _, tt := range tests {
		got, ok := ParsePeriod(tt.in)
		if ok != tt.valid || got != tt.want {
			t.Fatalf("ParsePeriod(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}
