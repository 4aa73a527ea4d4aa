package rendering

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	maxSheetName   = 31
	defaultColumnW = 18
)

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")", ":", "-", "*", "-", "?", "", "/", "-", `\`, "-",
)

// WriteXLSX writes report as a workbook: a Summary sheet followed by one
// sheet per table. Table heads use the theme's head colors.
func WriteXLSX(w io.Writer, theme Theme, report *Report) error {
	if report == nil {
		return &RenderError{Format: "xlsx", Message: "report is nil"}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	style := theme.TableStyle()
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: hexColor(style.HeadText)},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hexColor(style.HeadFill)}},
	})
	if err != nil {
		return &RenderError{Format: "xlsx", Message: "failed to create head style", Cause: err}
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return &RenderError{Format: "xlsx", Message: "failed to create label style", Cause: err}
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return &RenderError{Format: "xlsx", Message: "failed to name summary sheet", Cause: err}
	}
	summary := [][]any{{"Title", report.Title}}
	if report.Subtitle != "" {
		summary = append(summary, []any{"Subtitle", report.Subtitle})
	}
	summary = append(summary, []any{"Generated", report.generatedAt().Format("2006-01-02 15:04 MST")})
	for _, field := range report.Summary {
		summary = append(summary, []any{field.Label, field.Value})
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), labelStyle); err != nil {
		return &RenderError{Format: "xlsx", Message: "failed to style summary", Cause: err}
	}
	_ = f.SetColWidth(summarySheet, "A", "B", 2*defaultColumnW)

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for i, table := range report.Tables {
		name := uniqueSheetName(table.Title, i+1, used)
		if _, err := f.NewSheet(name); err != nil {
			return &RenderError{Format: "xlsx", Message: "failed to add sheet " + name, Cause: err}
		}
		if err := writeTable(f, name, table, headStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return &RenderError{Format: "xlsx", Message: "failed to write workbook", Cause: err}
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, table Table, headStyle int) error {
	head := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		head[i] = c
	}
	if err := setRow(f, sheet, 1, head); err != nil {
		return err
	}
	if len(table.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err != nil {
			return &RenderError{Format: "xlsx", Message: "invalid column count", Cause: err}
		}
		if err := f.SetCellStyle(sheet, "A1", last, headStyle); err != nil {
			return &RenderError{Format: "xlsx", Message: "failed to style head", Cause: err}
		}
		lastCol, _, _ := excelize.SplitCellName(last)
		_ = f.SetColWidth(sheet, "A", lastCol, defaultColumnW)
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	for i, row := range table.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return &RenderError{Format: "xlsx", Message: "invalid row", Cause: err}
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return &RenderError{Format: "xlsx", Message: fmt.Sprintf("failed to write %s!%s", sheet, cell), Cause: err}
	}
	return nil
}

// uniqueSheetName makes title a legal sheet name not already in used.
// Sheet names compare case-insensitively, so used is keyed by lower case.
func uniqueSheetName(title string, n int, used map[string]bool) string {
	name := strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(title)), "'")
	if name == "" {
		name = fmt.Sprintf("Table %d", n)
	}
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	base := name
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		runes := []rune(base)
		if len(runes)+len(suffix) > maxSheetName {
			runes = runes[:maxSheetName-len(suffix)]
		}
		name = string(runes) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func hexColor(c string) string {
	return strings.ToUpper(strings.TrimPrefix(c, "#"))
}
