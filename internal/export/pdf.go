package export

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
)

type Tone int

const (
	ToneNeutral Tone = iota
	TonePositive
	ToneNegative
	ToneInfo
)

type rgb struct{ r, g, b int }

var (
	colorBrand    = rgb{37, 99, 235}
	colorText     = rgb{31, 41, 55}
	colorMuted    = rgb{107, 114, 128}
	colorCard     = rgb{243, 244, 246}
	colorRule     = rgb{209, 213, 219}
	colorPositive = rgb{22, 163, 74}
	colorNegative = rgb{220, 38, 38}
	colorInfo     = rgb{37, 99, 235}
)

func toneColor(t Tone) rgb {
	switch t {
	case TonePositive:
		return colorPositive
	case ToneNegative:
		return colorNegative
	case ToneInfo:
		return colorInfo
	default:
		return colorMuted
	}
}

const (
	pageMargin      = 15.0
	headerHeight    = 40.0
	footerReserve   = 25.0
	sectionSpacing  = 6.0
	tableRowHeight  = 7.0
	cardHeight      = 26.0
	cardGap         = 4.0
	insightHeight   = 7.0
	defaultFontName = "Helvetica"
)

type MetricCard struct {
	Title  string
	Value  string
	Detail string
	Tone   Tone
}

type Footer struct {
	Notice      string
	Attribution string
}

// ReportBuilder lays out an A4 report top to bottom. Every Add method checks
// the remaining space and breaks the page itself; there is no reflow.
type ReportBuilder struct {
	pdf        *gofpdf.Fpdf
	tr         func(string) string
	pageWidth  float64
	pageHeight float64
	margin     float64
	currentY   float64
	footer     Footer
	images     int
}

func NewReportBuilder(footer Footer) *ReportBuilder {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	width, height := pdf.GetPageSize()

	b := &ReportBuilder{
		pdf:        pdf,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		pageWidth:  width,
		pageHeight: height,
		margin:     pageMargin,
		footer:     footer,
	}
	pdf.AddPage()
	b.currentY = b.margin
	return b
}

func (b *ReportBuilder) contentWidth() float64 {
	return b.pageWidth - 2*b.margin
}

func (b *ReportBuilder) bottom() float64 {
	return b.pageHeight - footerReserve
}

func (b *ReportBuilder) CurrentY() float64 {
	return b.currentY
}

func (b *ReportBuilder) PageCount() int {
	return b.pdf.PageCount()
}

func (b *ReportBuilder) setText(c rgb) {
	b.pdf.SetTextColor(c.r, c.g, c.b)
}

func (b *ReportBuilder) setFill(c rgb) {
	b.pdf.SetFillColor(c.r, c.g, c.b)
}

// EnsureSpace starts a new page when fewer than height millimetres remain
// above the footer. It reports whether a page was added.
func (b *ReportBuilder) EnsureSpace(height float64) bool {
	if b.bottom()-b.currentY >= height {
		return false
	}
	b.pdf.AddPage()
	b.currentY = b.margin
	return true
}

// AddHeader paints the brand band. logo is an optional JPEG.
func (b *ReportBuilder) AddHeader(title, subtitle string, rightLines []string, logo []byte) {
	b.setFill(colorBrand)
	b.pdf.Rect(0, 0, b.pageWidth, headerHeight, "F")

	textX := b.margin
	if len(logo) > 0 {
		b.images++
		name := fmt.Sprintf("logo-%d", b.images)
		opts := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
		b.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(logo))
		if b.pdf.Ok() {
			b.pdf.ImageOptions(name, b.margin, 8, 24, 24, false, opts, 0, "")
			textX += 28
		} else {
			// Unreadable logos are dropped; the report itself is still valid.
			b.pdf.ClearError()
		}
	}

	b.setText(rgb{255, 255, 255})
	b.pdf.SetFont(defaultFontName, "B", 20)
	b.pdf.SetXY(textX, 10)
	b.pdf.CellFormat(b.contentWidth()/2, 9, b.tr(title), "", 0, "L", false, 0, "")
	b.pdf.SetFont(defaultFontName, "", 12)
	b.pdf.SetXY(textX, 20)
	b.pdf.CellFormat(b.contentWidth()/2, 6, b.tr(subtitle), "", 0, "L", false, 0, "")

	b.pdf.SetFont(defaultFontName, "", 9)
	y := 12.0
	for _, line := range rightLines {
		b.pdf.SetXY(b.margin, y)
		b.pdf.CellFormat(b.contentWidth(), 5, b.tr(line), "", 0, "R", false, 0, "")
		y += 6
	}

	b.currentY = headerHeight + 10
}

func (b *ReportBuilder) AddSection(title string) {
	b.EnsureSpace(14 + tableRowHeight*2)
	b.setText(colorText)
	b.pdf.SetFont(defaultFontName, "B", 14)
	b.pdf.SetXY(b.margin, b.currentY)
	b.pdf.CellFormat(b.contentWidth(), 8, b.tr(title), "", 0, "L", false, 0, "")
	b.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	b.pdf.SetLineWidth(0.3)
	b.pdf.Line(b.margin, b.currentY+9, b.pageWidth-b.margin, b.currentY+9)
	b.currentY += 13
}

// AddMetricCards draws the cards side by side on one row.
func (b *ReportBuilder) AddMetricCards(cards []MetricCard) {
	if len(cards) == 0 {
		return
	}
	b.EnsureSpace(cardHeight + sectionSpacing)
	width := (b.contentWidth() - cardGap*float64(len(cards)-1)) / float64(len(cards))
	for i, card := range cards {
		x := b.margin + float64(i)*(width+cardGap)
		b.AddMetricCard(card, x, width)
	}
	b.currentY += cardHeight + sectionSpacing
}

// AddMetricCard draws one card at x on the current row without moving the
// cursor.
func (b *ReportBuilder) AddMetricCard(card MetricCard, x, width float64) {
	y := b.currentY
	b.setFill(colorCard)
	b.pdf.Rect(x, y, width, cardHeight, "F")

	b.setText(colorMuted)
	b.pdf.SetFont(defaultFontName, "", 8)
	b.pdf.SetXY(x+3, y+3)
	b.pdf.CellFormat(width-6, 4, b.tr(card.Title), "", 0, "L", false, 0, "")

	b.setText(colorText)
	b.pdf.SetFont(defaultFontName, "B", 13)
	b.pdf.SetXY(x+3, y+9)
	b.pdf.CellFormat(width-6, 7, b.tr(card.Value), "", 0, "L", false, 0, "")

	if card.Detail != "" {
		b.setText(toneColor(card.Tone))
		b.pdf.SetFont(defaultFontName, "", 8)
		b.pdf.SetXY(x+3, y+18)
		b.pdf.CellFormat(width-6, 4, b.tr(card.Detail), "", 0, "L", false, 0, "")
	}
}

func (b *ReportBuilder) AddInsight(text string, tone Tone) {
	b.EnsureSpace(insightHeight)
	c := toneColor(tone)
	b.setFill(c)
	b.pdf.Circle(b.margin+2, b.currentY+3.5, 1.2, "F")

	b.setText(colorText)
	b.pdf.SetFont(defaultFontName, "", 10)
	b.pdf.SetXY(b.margin+6, b.currentY+1)
	b.pdf.CellFormat(b.contentWidth()-6, 5, b.tr(text), "", 0, "L", false, 0, "")
	b.currentY += insightHeight
}

// AddTable prints plain positioned text; column i starts at margin+i*colOffset.
// The header row is repeated after a page break.
func (b *ReportBuilder) AddTable(headers []string, rows [][]string, colOffset float64) {
	if colOffset <= 0 && len(headers) > 0 {
		colOffset = b.contentWidth() / float64(len(headers))
	}
	b.EnsureSpace(tableRowHeight * 2)
	b.tableHeader(headers, colOffset)

	b.pdf.SetFont(defaultFontName, "", 9)
	for _, row := range rows {
		if b.EnsureSpace(tableRowHeight) {
			b.tableHeader(headers, colOffset)
			b.pdf.SetFont(defaultFontName, "", 9)
		}
		b.setText(colorText)
		for i, cell := range row {
			b.pdf.SetXY(b.margin+float64(i)*colOffset, b.currentY)
			b.pdf.CellFormat(colOffset, tableRowHeight, b.tr(cell), "", 0, "L", false, 0, "")
		}
		b.currentY += tableRowHeight
	}
	b.currentY += sectionSpacing
}

func (b *ReportBuilder) tableHeader(headers []string, colOffset float64) {
	b.setFill(colorCard)
	b.pdf.Rect(b.margin, b.currentY, b.contentWidth(), tableRowHeight, "F")
	b.setText(colorText)
	b.pdf.SetFont(defaultFontName, "B", 9)
	for i, header := range headers {
		b.pdf.SetXY(b.margin+float64(i)*colOffset, b.currentY)
		b.pdf.CellFormat(colOffset, tableRowHeight, b.tr(header), "", 0, "L", false, 0, "")
	}
	b.currentY += tableRowHeight
}

func (b *ReportBuilder) AddKeyValueTable(keyHeader, valueHeader string, pairs [][]string) {
	b.AddTable([]string{keyHeader, valueHeader}, pairs, b.contentWidth()/2)
}

// Finish stamps the footer on every page and encodes the document.
func (b *ReportBuilder) Finish() ([]byte, error) {
	total := b.pdf.PageCount()
	for page := 1; page <= total; page++ {
		b.pdf.SetPage(page)
		b.drawFooter(page, total)
	}

	var out bytes.Buffer
	if err := b.pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (b *ReportBuilder) drawFooter(page, total int) {
	y := b.pageHeight - 15
	b.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	b.pdf.SetLineWidth(0.2)
	b.pdf.Line(b.margin, y, b.pageWidth-b.margin, y)

	b.setText(colorMuted)
	b.pdf.SetFont(defaultFontName, "", 8)
	b.pdf.SetXY(b.margin, y+2)
	b.pdf.CellFormat(b.contentWidth(), 5, fmt.Sprintf("Page %d of %d", page, total), "", 0, "C", false, 0, "")
	b.pdf.SetXY(b.margin, y+2)
	b.pdf.CellFormat(b.contentWidth(), 5, b.tr(b.footer.Notice), "", 0, "L", false, 0, "")
	b.pdf.SetXY(b.margin, y+2)
	b.pdf.CellFormat(b.contentWidth(), 5, b.tr(b.footer.Attribution), "", 0, "R", false, 0, "")
}
