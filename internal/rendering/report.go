package rendering

import (
	"bytes"
	"html/template"
	"time"
)

// Field is a labelled summary value shown above the tables.
type Field struct {
	Label string
	Value string
}

// Table is one titled grid of cells.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Report is a document-neutral report: a title, summary fields and tables.
type Report struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Summary     []Field
	Tables      []Table
}

func (r *Report) generatedAt() time.Time {
	if r.GeneratedAt.IsZero() {
		return time.Now()
	}
	return r.GeneratedAt
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Report.Title}}</title>
<style>
@page { size: Letter; }
body { font-family: {{.Theme.FontFamily}}; color: {{.Theme.TextColor}}; font-size: {{.Theme.FontSizePt}}pt; margin: 0; }
h1 { color: {{.Theme.PrimaryColor}}; font-size: 16pt; margin: 0 0 2px 0; }
h2 { font-size: 11pt; margin: 14px 0 6px 0; }
p.subtitle { color: {{.Theme.MutedColor}}; margin: 0 0 10px 0; }
dl.summary { display: grid; grid-template-columns: max-content auto; gap: 2px 12px; margin: 0 0 10px 0; }
dl.summary dt { font-weight: 600; }
dl.summary dd { margin: 0; }
{{.CSS}}
</style>
</head>
<body>
<h1>{{.Report.Title}}</h1>
{{- if .Report.Subtitle}}
<p class="subtitle">{{.Report.Subtitle}}</p>
{{- end}}
{{- if .Report.Summary}}
<dl class="summary">
{{- range .Report.Summary}}
<dt>{{.Label}}</dt><dd>{{.Value}}</dd>
{{- end}}
</dl>
{{- end}}
{{- range .Report.Tables}}
<section>
{{- if .Title}}
<h2>{{.Title}}</h2>
{{- end}}
<table class="report">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</section>
{{- end}}
</body>
</html>
`))

// RenderHTML renders report as a standalone HTML page in theme.
func RenderHTML(theme Theme, report *Report) (string, error) {
	if report == nil {
		return "", &RenderError{Format: "html", Message: "report is nil"}
	}
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, struct {
		Theme  Theme
		Report *Report
		CSS    template.CSS
	}{
		Theme:  theme,
		Report: report,
		CSS:    template.CSS(theme.TableStyle().CSS()),
	})
	if err != nil {
		return "", &RenderError{Format: "html", Message: "failed to execute template", Cause: err}
	}
	return buf.String(), nil
}

// SampleReport is a single-page report used to preview the theme.
func SampleReport(now time.Time) *Report {
	return &Report{
		Title:       "Sample Report",
		Subtitle:    "Theme preview with placeholder data",
		GeneratedAt: now,
		Summary: []Field{
			{Label: "Employees", Value: "3"},
			{Label: "Certificates", Value: "5"},
		},
		Tables: []Table{{
			Title:   "Training Certificates",
			Columns: []string{"Employee", "Training", "Issued"},
			Rows: [][]string{
				{"Ana Silva", "Food Safety", now.AddDate(0, -2, 0).Format("2006-01-02")},
				{"Ben Okafor", "Food Safety", now.AddDate(0, -1, 0).Format("2006-01-02")},
				{"Ana Silva", "First Aid", now.AddDate(0, 0, -10).Format("2006-01-02")},
				{"Chen Wei", "Forklift", now.AddDate(0, 0, -3).Format("2006-01-02")},
				{"Ben Okafor", "First Aid", now.Format("2006-01-02")},
			},
		}},
	}
}
