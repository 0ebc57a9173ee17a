package store

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func numericToFloat64(value pgtype.Numeric) float64 {
	if !value.Valid {
		return 0
	}
	f, err := value.Float64Value()
	if err == nil && f.Valid {
		return f.Float64
	}
	// NaN and infinity land here; fall back to the text form.
	text, err := value.MarshalJSON()
	if err != nil {
		return 0
	}
	d, err := decimal.NewFromString(string(text))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// numericPtr keeps SQL NULL distinct from zero.
func numericPtr(value pgtype.Numeric) *float64 {
	if !value.Valid {
		return nil
	}
	v := numericToFloat64(value)
	return &v
}

func textPtr(value pgtype.Text) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func textOrDefault(value pgtype.Text, fallback string) string {
	if !value.Valid || value.String == "" {
		return fallback
	}
	return value.String
}
