package rendering

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Theme holds the visual settings shared by every rendered document.
type Theme struct {
	BrandName    string
	FontFamily   string
	PrimaryColor string // table head fill and header rule
	TextColor    string
	MutedColor   string // header and footer text
	AltRowColor  string
	LineColor    string
	FontSizePt   float64
	MarginInches float64
}

// DefaultTheme is the portal's house style.
func DefaultTheme() Theme {
	return Theme{
		BrandName:    "HR Portal",
		FontFamily:   "Helvetica, Arial, sans-serif",
		PrimaryColor: "#1F4E79",
		TextColor:    "#1A1A1A",
		MutedColor:   "#6B7280",
		AltRowColor:  "#F3F6FA",
		LineColor:    "#D0D7E2",
		FontSizePt:   9,
		MarginInches: 0.6,
	}
}

// Decorator produces a Chrome print header or footer template for a
// document generated at the given time.
type Decorator func(generatedAt time.Time) string

// Decorations returns the page header and footer for a document titled title.
// The footer carries the generation date and "Page X of Y"; Chrome fills in
// the pageNumber and totalPages spans while printing.
func (t Theme) Decorations(title string) (header, footer Decorator) {
	box := fmt.Sprintf(
		"font-family:%s;font-size:8px;color:%s;width:100%%;margin:0 %.2fin;display:flex;justify-content:space-between;",
		t.FontFamily, t.MutedColor, t.MarginInches)

	header = func(time.Time) string {
		return fmt.Sprintf(
			`<div style="%sborder-bottom:1px solid %s;padding-bottom:2px;"><span>%s</span><span>%s</span></div>`,
			box, t.PrimaryColor,
			template.HTMLEscapeString(t.BrandName),
			template.HTMLEscapeString(title))
	}
	footer = func(generatedAt time.Time) string {
		return fmt.Sprintf(
			`<div style="%s"><span>Generated %s</span><span>Page <span class="pageNumber"></span> of <span class="totalPages"></span></span></div>`,
			box, generatedAt.Format("2006-01-02 15:04 MST"))
	}
	return header, footer
}

// TableStyle describes how report tables are drawn.
type TableStyle struct {
	HeadFill    string
	HeadText    string
	AltRowFill  string
	FontSizePt  float64
	CellPadding string
	LineColor   string
}

// TableStyle returns the table style derived from the theme.
func (t Theme) TableStyle() TableStyle {
	return TableStyle{
		HeadFill:    t.PrimaryColor,
		HeadText:    "#FFFFFF",
		AltRowFill:  t.AltRowColor,
		FontSizePt:  t.FontSizePt,
		CellPadding: "4px 6px",
		LineColor:   t.LineColor,
	}
}

// CSS renders the style as rules for table.report.
func (s TableStyle) CSS() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "table.report{border-collapse:collapse;width:100%%;font-size:%gpt;margin-bottom:12px;}\n", s.FontSizePt)
	fmt.Fprintf(&sb, "table.report th,table.report td{padding:%s;border:1px solid %s;text-align:left;vertical-align:top;}\n", s.CellPadding, s.LineColor)
	fmt.Fprintf(&sb, "table.report thead th{background:%s;color:%s;font-weight:600;}\n", s.HeadFill, s.HeadText)
	fmt.Fprintf(&sb, "table.report tbody tr:nth-child(even){background:%s;}\n", s.AltRowFill)
	return sb.String()
}
