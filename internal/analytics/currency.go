package analytics

import (
	"strconv"
	"strings"
)

const (
	PositionBefore = "before"
	PositionAfter  = "after"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
	"CHF": "CHF",
	"CNY": "¥",
	"MXN": "MX$",
	"BRL": "R$",
}

func CurrencySymbol(code string) string {
	if symbol, ok := currencySymbols[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return symbol
	}
	return "$"
}

// FormatCurrency renders amount with two decimals and the configured symbol.
// A nil config means USD with the symbol in front.
func FormatCurrency(amount float64, cfg *CurrencyConfig) string {
	return FormatCurrencyDecimals(amount, cfg, 2)
}

// FormatCurrencyDecimals does no grouping and no validation; NaN and
// negative values are formatted as-is.
func FormatCurrencyDecimals(amount float64, cfg *CurrencyConfig, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	value := strconv.FormatFloat(amount, 'f', decimals, 64)
	if cfg == nil {
		return "$" + value
	}
	symbol := CurrencySymbol(cfg.Currency)
	if cfg.Position == PositionAfter {
		return value + symbol
	}
	return symbol + value
}
