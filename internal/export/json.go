package export

import (
	"encoding/json"
	"time"

	"citai-analytics-service/internal/analytics"
)

type jsonMetadata struct {
	Restaurant    analytics.RestaurantInfo `json:"restaurant"`
	DateRange     DateRange                `json:"dateRange"`
	GeneratedAt   time.Time                `json:"generatedAt"`
	ExportOptions Options                  `json:"exportOptions"`
}

type jsonDocument struct {
	Metadata  jsonMetadata        `json:"metadata"`
	Analytics *analytics.Data     `json:"analytics"`
	Insights  []analytics.Insight `json:"insights,omitempty"`
}

func renderJSON(in reportInput) ([]byte, error) {
	doc := jsonDocument{
		Metadata: jsonMetadata{
			Restaurant:    in.Info,
			DateRange:     in.Range,
			GeneratedAt:   in.GeneratedAt,
			ExportOptions: in.Options,
		},
		Analytics: in.Data,
	}
	if in.Options.IncludeInsights {
		doc.Insights = analytics.DeriveInsights(in.Data, in.Info.CurrencyConfig)
	}
	return json.MarshalIndent(doc, "", "  ")
}
