package export

import (
	"strings"
)

const utf8BOM = "\ufeff"

// renderCSV joins cells with commas without quoting; names and currency
// strings are written verbatim.
func renderCSV(in reportInput) []byte {
	var b strings.Builder
	b.WriteString(utf8BOM)
	writeCSVRows(&b, headerRows(in))

	for _, s := range buildSections(in) {
		b.WriteString("\n")
		b.WriteString(strings.ToUpper(s.Title))
		b.WriteString("\n")
		writeCSVRows(&b, s.Rows)
	}
	return []byte(b.String())
}

func writeCSVRows(b *strings.Builder, rows [][]string) {
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
}
