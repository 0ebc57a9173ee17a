package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	topItemsLimit         = 5
	uncategorizedCategory = "Uncategorized"
)

// Aggregator reduces raw order rows into a Data snapshot. The zero value
// uses time.Now in UTC.
type Aggregator struct {
	Now                func() time.Time
	Location           *time.Location
	NormalizeClockSkew bool
}

func (a Aggregator) location() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.UTC
}

func (a Aggregator) now() time.Time {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	return now.In(a.location())
}

func (a Aggregator) Aggregate(orders []OrderRow, categories []CategoryRow, tr TimeRange) Data {
	now := a.now()
	if a.NormalizeClockSkew {
		orders = normalizeClockSkew(orders, now)
	}

	display, comparison := tr.Windows(now)
	displayOrders := make([]OrderRow, 0, len(orders))
	comparisonOrders := make([]OrderRow, 0)
	for _, order := range orders {
		created := order.CreatedAt.In(now.Location())
		switch {
		case display.Contains(created):
			displayOrders = append(displayOrders, order)
		case comparison.Contains(created):
			comparisonOrders = append(comparisonOrders, order)
		}
	}

	displayRevenue := sumRevenue(displayOrders)
	comparisonRevenue := sumRevenue(comparisonOrders)
	displayCount := float64(len(displayOrders))
	comparisonCount := float64(len(comparisonOrders))

	today := startOfDay(now)
	weekStart := today.AddDate(0, 0, -6)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	revenueToday, ordersToday := sumSince(orders, today, now)
	revenueWeek, ordersWeek := sumSince(orders, weekStart, now)
	revenueMonth, ordersMonth := sumSince(orders, monthStart, now)

	return Data{
		Revenue: Period{
			Total:     displayRevenue,
			Today:     revenueToday,
			ThisWeek:  revenueWeek,
			ThisMonth: revenueMonth,
			Growth:    growth(displayRevenue, comparisonRevenue),
		},
		Orders: Period{
			Total:     displayCount,
			Today:     float64(ordersToday),
			ThisWeek:  float64(ordersWeek),
			ThisMonth: float64(ordersMonth),
			Growth:    growth(displayCount, comparisonCount),
		},
		Customers:           buildCustomers(displayOrders, comparisonOrders),
		TopItems:            buildTopItems(displayOrders),
		SalesByDay:          buildSalesByDay(displayOrders, tr, now),
		SalesByHour:         buildSalesByHour(displayOrders, now.Location()),
		CategoryPerformance: buildCategoryPerformance(displayOrders, categories),
	}
}

func money(value float64) decimal.Decimal {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(value)
}

func sumRevenue(orders []OrderRow) float64 {
	total := decimal.Zero
	for _, order := range orders {
		total = total.Add(money(order.Amount()))
	}
	return total.InexactFloat64()
}

func sumSince(orders []OrderRow, since, now time.Time) (float64, int) {
	total := decimal.Zero
	count := 0
	for _, order := range orders {
		if order.CreatedAt.Before(since) || order.CreatedAt.After(now) {
			continue
		}
		total = total.Add(money(order.Amount()))
		count++
	}
	return total.InexactFloat64(), count
}

// growth is the percentage change versus previous, defined as 0 when the
// comparison value is zero.
func growth(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func normalizeEmail(email *string) string {
	if email == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*email))
}

func buildCustomers(displayOrders, comparisonOrders []OrderRow) Customers {
	counts := make(map[string]int)
	for _, list := range [][]OrderRow{displayOrders, comparisonOrders} {
		for _, order := range list {
			if email := normalizeEmail(order.CustomerEmail); email != "" {
				counts[email]++
			}
		}
	}

	seen := make(map[string]struct{})
	out := Customers{}
	for _, order := range displayOrders {
		email := normalizeEmail(order.CustomerEmail)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out.Total++
		if counts[email] > 1 {
			out.Returning++
		} else {
			out.New++
		}
	}
	return out
}

type itemAccumulator struct {
	name     string
	quantity int
	revenue  decimal.Decimal
}

func buildTopItems(orders []OrderRow) []TopItem {
	byKey := make(map[string]*itemAccumulator)
	for _, order := range orders {
		for _, item := range order.Items {
			if item.MenuItem == nil {
				continue
			}
			key := item.MenuItem.ID
			if key == "" {
				key = "name:" + item.MenuItem.Name
			}
			acc, ok := byKey[key]
			if !ok {
				acc = &itemAccumulator{name: item.MenuItem.Name}
				byKey[key] = acc
			}
			acc.quantity += item.Quantity
			acc.revenue = acc.revenue.Add(money(item.Revenue()))
		}
	}

	items := make([]TopItem, 0, len(byKey))
	for _, acc := range byKey {
		items = append(items, TopItem{Name: acc.name, Quantity: acc.quantity, Revenue: acc.revenue.InexactFloat64()})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Revenue == items[j].Revenue {
			return items[i].Name < items[j].Name
		}
		return items[i].Revenue > items[j].Revenue
	})
	if len(items) > topItemsLimit {
		items = items[:topItemsLimit]
	}
	return items
}

func buildSalesByDay(orders []OrderRow, tr TimeRange, now time.Time) []DaySales {
	loc := now.Location()
	if tr == RangeToday {
		buckets := make([]DaySales, 24)
		revenue := make([]decimal.Decimal, 24)
		for hour := range buckets {
			label := fmt.Sprintf("%02d:00", hour)
			buckets[hour] = DaySales{Date: label, Label: label}
		}
		today := startOfDay(now)
		for _, order := range orders {
			created := order.CreatedAt.In(loc)
			if created.Before(today) {
				continue
			}
			hour := created.Hour()
			revenue[hour] = revenue[hour].Add(money(order.Amount()))
			buckets[hour].Orders++
		}
		for hour := range buckets {
			buckets[hour].Revenue = revenue[hour].InexactFloat64()
		}
		return buckets
	}

	const days = 7
	first := startOfDay(now).AddDate(0, 0, -(days - 1))
	buckets := make([]DaySales, days)
	revenue := make([]decimal.Decimal, days)
	index := make(map[string]int, days)
	for i := range buckets {
		day := first.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		buckets[i] = DaySales{Date: key, Label: day.Format("Mon")}
		index[key] = i
	}
	for _, order := range orders {
		i, ok := index[order.CreatedAt.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		revenue[i] = revenue[i].Add(money(order.Amount()))
		buckets[i].Orders++
	}
	for i := range buckets {
		buckets[i].Revenue = revenue[i].InexactFloat64()
	}
	return buckets
}

func buildSalesByHour(orders []OrderRow, loc *time.Location) []HourSales {
	buckets := make([]HourSales, 24)
	revenue := make([]decimal.Decimal, 24)
	for hour := range buckets {
		buckets[hour].Hour = hour
	}
	for _, order := range orders {
		hour := order.CreatedAt.In(loc).Hour()
		revenue[hour] = revenue[hour].Add(money(order.Amount()))
		buckets[hour].Orders++
	}
	for hour := range buckets {
		buckets[hour].Revenue = revenue[hour].InexactFloat64()
	}
	return buckets
}

type categoryAccumulator struct {
	name    string
	revenue decimal.Decimal
	orders  map[string]struct{}
}

func buildCategoryPerformance(orders []OrderRow, categories []CategoryRow) []CategorySales {
	names := make(map[string]string, len(categories))
	for _, category := range categories {
		names[category.ID] = category.Name
	}

	byCategory := make(map[string]*categoryAccumulator)
	for i, order := range orders {
		orderKey := order.ID
		if orderKey == "" {
			orderKey = fmt.Sprintf("#%d", i)
		}
		for _, item := range order.Items {
			if item.MenuItem == nil {
				continue
			}
			key := ""
			name := uncategorizedCategory
			if item.MenuItem.CategoryID != nil {
				if resolved, ok := names[*item.MenuItem.CategoryID]; ok {
					key = *item.MenuItem.CategoryID
					name = resolved
				}
			}
			acc, ok := byCategory[key]
			if !ok {
				acc = &categoryAccumulator{name: name, orders: make(map[string]struct{})}
				byCategory[key] = acc
			}
			acc.revenue = acc.revenue.Add(money(item.Revenue()))
			acc.orders[orderKey] = struct{}{}
		}
	}

	out := make([]CategorySales, 0, len(byCategory))
	for _, acc := range byCategory {
		out = append(out, CategorySales{Category: acc.name, Revenue: acc.revenue.InexactFloat64(), Orders: len(acc.orders)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue == out[j].Revenue {
			return out[i].Category < out[j].Category
		}
		return out[i].Revenue > out[j].Revenue
	})
	return out
}
