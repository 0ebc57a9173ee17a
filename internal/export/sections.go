package export

import (
	"fmt"
	"strconv"
	"time"

	"citai-analytics-service/internal/analytics"
)

const (
	sheetSummary    = "Executive Summary"
	sheetTopItems   = "Top Items"
	sheetDaily      = "Daily Trends"
	sheetHourly     = "Hourly Analysis"
	sheetCategories = "Category Performance"
	sheetRawData    = "Raw Data"
)

// section is one logical block of a tabular report. CSV and Excel render the
// same sections in the same order.
type section struct {
	Title string
	Rows  [][]string
}

type reportInput struct {
	Data        *analytics.Data
	Info        analytics.RestaurantInfo
	Range       DateRange
	Options     Options
	GeneratedAt time.Time
}

func (in reportInput) money(v float64) string {
	return analytics.FormatCurrency(v, in.Info.CurrencyConfig)
}

func formatGrowth(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func formatDateRange(r DateRange) string {
	return r.From.Format("2006-01-02") + " to " + r.To.Format("2006-01-02")
}

func formatGeneratedAt(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// dayLabel renders a trend bucket date, keeping the raw value when it is
// not an ISO day.
func dayLabel(raw string) string {
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return raw
	}
	return parsed.Format("Mon Jan 02")
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

func averagePrice(revenue float64, quantity int) float64 {
	if quantity == 0 {
		return 0
	}
	return revenue / float64(quantity)
}

func headerRows(in reportInput) [][]string {
	return [][]string{
		{"Analytics Report", in.Info.Name},
		{"Date Range", formatDateRange(in.Range)},
		{"Generated", formatGeneratedAt(in.GeneratedAt)},
	}
}

func summaryRows(in reportInput) [][]string {
	d := in.Data
	return [][]string{
		{"Metric", "Value", "Growth"},
		{"Total Revenue", in.money(d.Revenue.Total), formatGrowth(d.Revenue.Growth)},
		{"Total Orders", formatCount(d.Orders.Total), formatGrowth(d.Orders.Growth)},
		{"Average Order Value", in.money(d.AverageOrderValue()), ""},
		{"Total Customers", strconv.Itoa(d.Customers.Total), ""},
		{"New Customers", strconv.Itoa(d.Customers.New), ""},
		{"Returning Customers", strconv.Itoa(d.Customers.Returning), ""},
		{"Retention Rate", formatPercent(d.RetentionRate()), ""},
	}
}

func topItemRows(in reportInput) [][]string {
	rows := [][]string{{"Rank", "Item", "Quantity", "Revenue", "Avg Price"}}
	for i, item := range in.Data.TopItems {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Name,
			strconv.Itoa(item.Quantity),
			in.money(item.Revenue),
			in.money(averagePrice(item.Revenue, item.Quantity)),
		})
	}
	return rows
}

func dailyRows(in reportInput) [][]string {
	rows := [][]string{{"Date", "Revenue", "Orders"}}
	for _, day := range in.Data.SalesByDay {
		rows = append(rows, []string{dayLabel(day.Date), in.money(day.Revenue), strconv.Itoa(day.Orders)})
	}
	return rows
}

func hourlyRows(in reportInput) [][]string {
	rows := [][]string{{"Hour", "Revenue", "Orders"}}
	for _, hour := range in.Data.SalesByHour {
		rows = append(rows, []string{hourLabel(hour.Hour), in.money(hour.Revenue), strconv.Itoa(hour.Orders)})
	}
	return rows
}

func categoryRows(in reportInput) [][]string {
	rows := [][]string{{"Category", "Revenue", "Orders"}}
	for _, category := range in.Data.CategoryPerformance {
		rows = append(rows, []string{category.Category, in.money(category.Revenue), strconv.Itoa(category.Orders)})
	}
	return rows
}

func rawRevenueRows(d *analytics.Data) [][]string {
	return [][]string{
		{"revenue.total", strconv.FormatFloat(d.Revenue.Total, 'f', 2, 64)},
		{"revenue.today", strconv.FormatFloat(d.Revenue.Today, 'f', 2, 64)},
		{"revenue.thisWeek", strconv.FormatFloat(d.Revenue.ThisWeek, 'f', 2, 64)},
		{"revenue.thisMonth", strconv.FormatFloat(d.Revenue.ThisMonth, 'f', 2, 64)},
		{"revenue.growth", strconv.FormatFloat(d.Revenue.Growth, 'f', 2, 64)},
	}
}

func rawOrderRows(d *analytics.Data) [][]string {
	return [][]string{
		{"orders.total", formatCount(d.Orders.Total)},
		{"orders.today", formatCount(d.Orders.Today)},
		{"orders.thisWeek", formatCount(d.Orders.ThisWeek)},
		{"orders.thisMonth", formatCount(d.Orders.ThisMonth)},
		{"orders.growth", strconv.FormatFloat(d.Orders.Growth, 'f', 2, 64)},
	}
}

func rawDataRows(in reportInput) [][]string {
	rows := [][]string{{"Metric", "Value"}}
	rows = append(rows, rawRevenueRows(in.Data)...)
	rows = append(rows, rawOrderRows(in.Data)...)
	return rows
}

// buildSections applies the inclusion flags. Key metrics, daily trends and
// category performance do not depend on any flag.
func buildSections(in reportInput) []section {
	d := in.Data
	sections := []section{{Title: sheetSummary, Rows: summaryRows(in)}}
	if in.Options.IncludeTopItems && len(d.TopItems) > 0 {
		sections = append(sections, section{Title: sheetTopItems, Rows: topItemRows(in)})
	}
	if len(d.SalesByDay) > 0 {
		sections = append(sections, section{Title: sheetDaily, Rows: dailyRows(in)})
	}
	if in.Options.IncludeHourlyData && len(d.SalesByHour) > 0 {
		sections = append(sections, section{Title: sheetHourly, Rows: hourlyRows(in)})
	}
	if len(d.CategoryPerformance) > 0 {
		sections = append(sections, section{Title: sheetCategories, Rows: categoryRows(in)})
	}
	if in.Options.IncludeRawData {
		sections = append(sections, section{Title: sheetRawData, Rows: rawDataRows(in)})
	}
	return sections
}
