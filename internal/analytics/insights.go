package analytics

import (
	"fmt"
	"math"
)

type InsightType string

const (
	InsightPositive InsightType = "positive"
	InsightNegative InsightType = "negative"
	InsightInfo     InsightType = "info"
)

type Insight struct {
	Type     InsightType `json:"type"`
	Category string      `json:"category"`
	Message  string      `json:"message"`
	Value    float64     `json:"value"`
}

type insightRule struct {
	Name    string
	Applies func(d *Data) bool
	Build   func(d *Data, cfg *CurrencyConfig) Insight
}

// insightRules run in order and each contributes at most one insight.
// Falling order volume has no rule.
var insightRules = []insightRule{
	{
		Name:    "revenue_up",
		Applies: func(d *Data) bool { return d.Revenue.Growth > 0 },
		Build: func(d *Data, _ *CurrencyConfig) Insight {
			return Insight{
				Type:     InsightPositive,
				Category: "revenue",
				Message:  fmt.Sprintf("Revenue increased by %.1f%% compared to the previous period", d.Revenue.Growth),
				Value:    d.Revenue.Growth,
			}
		},
	},
	{
		Name:    "revenue_down",
		Applies: func(d *Data) bool { return d.Revenue.Growth < 0 },
		Build: func(d *Data, _ *CurrencyConfig) Insight {
			drop := math.Abs(d.Revenue.Growth)
			return Insight{
				Type:     InsightNegative,
				Category: "revenue",
				Message:  fmt.Sprintf("Revenue decreased by %.1f%% compared to the previous period", drop),
				Value:    drop,
			}
		},
	},
	{
		Name:    "orders_up",
		Applies: func(d *Data) bool { return d.Orders.Growth > 0 },
		Build: func(d *Data, _ *CurrencyConfig) Insight {
			return Insight{
				Type:     InsightPositive,
				Category: "orders",
				Message:  fmt.Sprintf("Order volume increased by %.1f%%", d.Orders.Growth),
				Value:    d.Orders.Growth,
			}
		},
	},
	{
		Name:    "new_customers",
		Applies: func(d *Data) bool { return d.Customers.New > 0 },
		Build: func(d *Data, _ *CurrencyConfig) Insight {
			return Insight{
				Type:     InsightInfo,
				Category: "customers",
				Message:  fmt.Sprintf("%d new customers this period", d.Customers.New),
				Value:    float64(d.Customers.New),
			}
		},
	},
	{
		Name:    "average_order_value",
		Applies: func(*Data) bool { return true },
		Build: func(d *Data, cfg *CurrencyConfig) Insight {
			aov := d.AverageOrderValue()
			return Insight{
				Type:     InsightInfo,
				Category: "orders",
				Message:  fmt.Sprintf("Average order value is %s", FormatCurrency(aov, cfg)),
				Value:    aov,
			}
		},
	},
}

// DeriveInsights returns the qualitative statements shared by every report
// format. Renderers map Type to their own presentation.
func DeriveInsights(d *Data, cfg *CurrencyConfig) []Insight {
	if d == nil {
		return nil
	}
	out := make([]Insight, 0, len(insightRules))
	for _, rule := range insightRules {
		if rule.Applies(d) {
			out = append(out, rule.Build(d, cfg))
		}
	}
	return out
}
