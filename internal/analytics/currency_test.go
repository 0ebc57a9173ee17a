package analytics

import (
	"math"
	"testing"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		name     string
		amount   float64
		cfg      *CurrencyConfig
		decimals int
		expected string
	}{
		{name: "default usd", amount: 12.5, cfg: nil, decimals: 2, expected: "$12.50"},
		{name: "euro after", amount: 12.5, cfg: &CurrencyConfig{Currency: "EUR", Position: "after"}, decimals: 2, expected: "12.50€"},
		{name: "pound before", amount: 3, cfg: &CurrencyConfig{Currency: "GBP", Position: "before"}, decimals: 2, expected: "£3.00"},
		{name: "empty position defaults before", amount: 1, cfg: &CurrencyConfig{Currency: "BRL"}, decimals: 2, expected: "R$1.00"},
		{name: "unknown code", amount: 9.99, cfg: &CurrencyConfig{Currency: "XYZ", Position: "after"}, decimals: 2, expected: "9.99$"},
		{name: "lowercase code", amount: 100, cfg: &CurrencyConfig{Currency: "jpy"}, decimals: 0, expected: "¥100"},
		{name: "no grouping", amount: 1234567.891, cfg: nil, decimals: 2, expected: "$1234567.89"},
		{name: "negative passthrough", amount: -4.2, cfg: nil, decimals: 1, expected: "$-4.2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatCurrencyDecimals(tc.amount, tc.cfg, tc.decimals); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestFormatCurrencyNaN(t *testing.T) {
	if got := FormatCurrency(math.NaN(), nil); got != "$NaN" {
		t.Fatalf("expected $NaN, got %s", got)
	}
}
