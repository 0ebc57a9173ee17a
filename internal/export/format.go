package export

import (
	"regexp"
	"strings"
	"time"
)

type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatPDF, FormatExcel, FormatCSV, FormatJSON:
		return f, nil
	case "xlsx":
		return FormatExcel, nil
	default:
		return "", &UnsupportedFormatError{Format: value}
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	default:
		return string(f)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv;charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Label is the human name used in error messages.
func (f Format) Label() string {
	switch f {
	case FormatPDF:
		return "PDF"
	case FormatExcel:
		return "Excel"
	case FormatCSV:
		return "CSV"
	case FormatJSON:
		return "JSON"
	default:
		return string(f)
	}
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type Options struct {
	IncludeCharts       bool `json:"includeCharts"`
	IncludeRawData      bool `json:"includeRawData"`
	IncludeInsights     bool `json:"includeInsights"`
	IncludeTopItems     bool `json:"includeTopItems"`
	IncludeHourlyData   bool `json:"includeHourlyData"`
	IncludeCustomerData bool `json:"includeCustomerData"`
}

// File is a rendered report ready to be served or stored.
type File struct {
	Format      Format
	Filename    string
	ContentType string
	Data        []byte
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(name), "-")
}

// GenerateFilename builds {slug}-analytics_{from}_to_{to}.{ext}.
func GenerateFilename(format Format, restaurantName string, r DateRange) string {
	return slugify(restaurantName) + "-analytics_" +
		r.From.Format("2006-01-02") + "_to_" + r.To.Format("2006-01-02") +
		"." + format.Extension()
}
