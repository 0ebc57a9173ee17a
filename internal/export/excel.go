package export

import (
	"errors"

	"github.com/xuri/excelize/v2"
)

type Sheet struct {
	Name string
	Rows [][]string
}

// SpreadsheetWriter turns sheets into an encoded workbook.
type SpreadsheetWriter interface {
	WriteWorkbook(sheets []Sheet) ([]byte, error)
}

type ExcelizeWriter struct {
	ColumnWidth float64
}

func NewExcelizeWriter() *ExcelizeWriter {
	return &ExcelizeWriter{ColumnWidth: 22}
}

func (w *ExcelizeWriter) WriteWorkbook(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, err
		}

		for r, row := range sheet.Rows {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				return nil, err
			}
		}
		if w.ColumnWidth > 0 {
			if err := f.SetColWidth(sheet.Name, "A", "F", w.ColumnWidth); err != nil {
				return nil, err
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildSheets(in reportInput) []Sheet {
	sections := buildSections(in)
	sheets := make([]Sheet, 0, len(sections))
	for i, s := range sections {
		rows := s.Rows
		if i == 0 {
			rows = append(append(headerRows(in), []string{}), s.Rows...)
		}
		sheets = append(sheets, Sheet{Name: s.Title, Rows: rows})
	}
	return sheets
}
