package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/hr-portal/internal/certs"
	"github.com/jonathan/hr-portal/internal/hiring"
	"github.com/jonathan/hr-portal/internal/rendering"
	"github.com/jonathan/hr-portal/internal/types"
)

// HireDocument converts a hire report for the renderers.
func HireDocument(report *hiring.Report, now time.Time) *rendering.Report {
	return &rendering.Report{
		Title:       "Hire Count",
		Subtitle:    "Job " + report.JobID,
		GeneratedAt: now,
		Summary: []rendering.Field{
			{Label: "Hired", Value: strconv.Itoa(report.Hired)},
		},
		Tables: []rendering.Table{
			{
				Title:   "Hired by source",
				Columns: []string{"Source", "Count"},
				Rows: [][]string{
					{"direct job_id", strconv.Itoa(report.HiredBreakdown.DirectJobID)},
					{"payload fallback", strconv.Itoa(report.HiredBreakdown.PayloadFallback)},
				},
			},
			{
				Title:   "Rows scanned",
				Columns: []string{"Set", "Rows"},
				Rows: [][]string{
					{"direct", strconv.Itoa(report.Scanned.DirectRows)},
					{"legacy", strconv.Itoa(report.Scanned.LegacyRows)},
					{"legacy matching job", strconv.Itoa(report.Scanned.LegacyMatchingJob)},
				},
			},
		},
	}
}

// CertificateDocument converts a certificate audit for the renderers.
func CertificateDocument(report *certs.Report, now time.Time) *rendering.Report {
	doc := &rendering.Report{
		Title:       "Certificate Audit",
		GeneratedAt: now,
		Summary: []rendering.Field{
			{Label: "Certificates", Value: strconv.Itoa(report.Total)},
			{Label: "Distinct names", Value: strconv.Itoa(len(report.DistinctNames))},
			{Label: "Policies", Value: policySummary(report.Policies)},
		},
	}

	if len(report.Variants) > 0 {
		rows := make([][]string, 0, len(report.Variants))
		for _, v := range report.Variants {
			rows = append(rows, []string{v.Name, v.TrainingID, strconv.Itoa(v.Count)})
		}
		doc.Tables = append(doc.Tables, rendering.Table{
			Title:   "Name variants",
			Columns: []string{"Name", "Training", "Count"},
			Rows:    rows,
		})
	}

	names := make([][]string, 0, len(report.DistinctNames))
	for _, n := range report.DistinctNames {
		names = append(names, []string{n})
	}
	doc.Tables = append(doc.Tables, rendering.Table{
		Title:   "Distinct names",
		Columns: []string{"Employee name"},
		Rows:    names,
	})

	rows := make([][]string, 0, len(report.Certificates))
	for _, c := range report.Certificates {
		rows = append(rows, []string{
			c.ID.String(),
			optional(c.TrainingID),
			c.EmployeeName,
			optional(c.EmployeeID),
			formatTime(c.CreatedAt.Time),
		})
	}
	doc.Tables = append(doc.Tables, rendering.Table{
		Title:   "Certificates",
		Columns: []string{"ID", "Training", "Employee name", "Employee", "Created"},
		Rows:    rows,
	})

	if report.Policies.Available {
		rows := make([][]string, 0, len(report.Policies.Rows))
		for _, p := range report.Policies.Rows {
			rows = append(rows, []string{p.Name, p.Command, strings.Join(p.Roles, ", "), deref(p.Using), deref(p.WithCheck)})
		}
		doc.Tables = append(doc.Tables, rendering.Table{
			Title:   "Row-level security",
			Columns: []string{"Policy", "Command", "Roles", "Using", "With check"},
			Rows:    rows,
		})
	}
	return doc
}

func policySummary(p certs.Policies) string {
	if p.Available {
		return strconv.Itoa(len(p.Rows))
	}
	return p.Reason
}

func optional(id *types.FlexID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
