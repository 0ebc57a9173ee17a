package export

import (
	"fmt"
	"strconv"

	"citai-analytics-service/internal/analytics"
)

var reportFooter = Footer{
	Notice:      "Confidential - for internal use only",
	Attribution: "Generated by Citai Analytics",
}

func growthTone(v float64) Tone {
	if v < 0 {
		return ToneNegative
	}
	return TonePositive
}

func insightTone(t analytics.InsightType) Tone {
	switch t {
	case analytics.InsightPositive:
		return TonePositive
	case analytics.InsightNegative:
		return ToneNegative
	default:
		return ToneInfo
	}
}

// generateReport paints the full analytics report. logo may be nil.
func generateReport(in reportInput, logo []byte) (*ReportBuilder, error) {
	if in.Data == nil {
		return nil, ErrAnalyticsRequired
	}
	d := in.Data
	b := NewReportBuilder(reportFooter)

	b.AddHeader(in.Info.Name, "Analytics Report", []string{
		formatDateRange(in.Range),
		"Generated " + formatGeneratedAt(in.GeneratedAt),
	}, logo)

	b.AddSection("Executive Summary")
	b.AddMetricCards([]MetricCard{
		{
			Title:  "Total Revenue",
			Value:  in.money(d.Revenue.Total),
			Detail: formatGrowth(d.Revenue.Growth) + " vs previous period",
			Tone:   growthTone(d.Revenue.Growth),
		},
		{
			Title:  "Total Orders",
			Value:  formatCount(d.Orders.Total),
			Detail: formatGrowth(d.Orders.Growth) + " vs previous period",
			Tone:   growthTone(d.Orders.Growth),
		},
		{
			Title:  "Average Order Value",
			Value:  in.money(d.AverageOrderValue()),
			Detail: "per order",
		},
		{
			Title:  "Customers",
			Value:  strconv.Itoa(d.Customers.Total),
			Detail: fmt.Sprintf("%d new / %d returning", d.Customers.New, d.Customers.Returning),
		},
	})

	if in.Options.IncludeInsights {
		b.AddSection("Key Insights")
		for _, insight := range analytics.DeriveInsights(d, in.Info.CurrencyConfig) {
			b.AddInsight(insight.Message, insightTone(insight.Type))
		}
		b.currentY += sectionSpacing
	}

	if in.Options.IncludeTopItems && len(d.TopItems) > 0 {
		rows := topItemRows(in)
		b.AddSection("Top Selling Items")
		b.AddTable(rows[0], rows[1:], 36)
	}

	if in.Options.IncludeHourlyData && len(d.SalesByHour) > 0 {
		rows := hourlyRows(in)
		b.AddSection("Hourly Analysis")
		b.AddTable(rows[0], rows[1:], 60)
	}

	if len(d.CategoryPerformance) > 0 {
		rows := categoryRows(in)
		b.AddSection("Category Performance")
		b.AddTable(rows[0], rows[1:], 60)
	}

	if len(d.SalesByDay) > 0 {
		rows := dailyRows(in)
		b.AddSection("Daily Trends")
		b.AddTable(rows[0], rows[1:], 60)
	}

	if in.Options.IncludeCustomerData {
		b.AddSection("Customer Analytics")
		b.AddMetricCards([]MetricCard{
			{Title: "Total Customers", Value: strconv.Itoa(d.Customers.Total)},
			{Title: "New Customers", Value: strconv.Itoa(d.Customers.New), Tone: TonePositive, Detail: "first order in period"},
			{Title: "Returning Customers", Value: strconv.Itoa(d.Customers.Returning), Tone: ToneInfo, Detail: "more than one order"},
			{Title: "Retention Rate", Value: formatPercent(d.RetentionRate())},
		})
	}

	if in.Options.IncludeRawData {
		b.AddSection("Raw Data")
		b.AddKeyValueTable("Revenue", "Value", rawRevenueRows(d))
		b.AddKeyValueTable("Orders", "Value", rawOrderRows(d))
	}

	return b, nil
}

func renderPDF(in reportInput, logo []byte) ([]byte, error) {
	b, err := generateReport(in, logo)
	if err != nil {
		return nil, err
	}
	return b.Finish()
}
