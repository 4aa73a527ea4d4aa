// Package observability formats admin reports for people: boxed text for the
// terminal and document models for the renderers.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/hr-portal/internal/certs"
	"github.com/jonathan/hr-portal/internal/hiring"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted text output of reports
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// PrintHireReport outputs the hire count and how it was reached.
func (p *Printer) PrintHireReport(report *hiring.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", report.JobID))
	sb.WriteString(fmt.Sprintf("Hired:    %d\n", report.Hired))
	sb.WriteString("\n")
	sb.WriteString("Breakdown:\n")
	sb.WriteString(fmt.Sprintf("  • direct job_id     %d\n", report.HiredBreakdown.DirectJobID))
	sb.WriteString(fmt.Sprintf("  • payload fallback  %d\n", report.HiredBreakdown.PayloadFallback))
	sb.WriteString("\n")
	sb.WriteString("Scanned:\n")
	sb.WriteString(fmt.Sprintf("  • direct rows       %d\n", report.Scanned.DirectRows))
	sb.WriteString(fmt.Sprintf("  • legacy rows       %d\n", report.Scanned.LegacyRows))
	sb.WriteString(fmt.Sprintf("  • legacy matching   %d", report.Scanned.LegacyMatchingJob))

	p.printBox("HIRE COUNT", sb.String())
}

// PrintCertificateAudit outputs the audit summary: totals, variant counts,
// the distinct names and the policy state.
func (p *Printer) PrintCertificateAudit(report *certs.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Certificates: %d\n", report.Total))

	if len(report.Variants) > 0 {
		sb.WriteString("\nVariants:\n")
		for _, v := range report.Variants {
			sb.WriteString(fmt.Sprintf("  • %q %d", v.Name, v.Count))
			if v.TrainingID != "" {
				sb.WriteString(fmt.Sprintf(" (training %s)", v.TrainingID))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\nDistinct names: %d\n", len(report.DistinctNames)))
	count := min(len(report.DistinctNames), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %q\n", report.DistinctNames[i]))
	}
	if len(report.DistinctNames) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.DistinctNames)-maxItemsToShow))
	}

	sb.WriteString("\n")
	if report.Policies.Available {
		sb.WriteString(fmt.Sprintf("Policies: %d\n", len(report.Policies.Rows)))
		for _, pol := range report.Policies.Rows {
			sb.WriteString(fmt.Sprintf("  • %s (%s)\n", pol.Name, pol.Command))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Policies: %s\n", report.Policies.Reason))
	}

	p.printBox("CERTIFICATE AUDIT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMessage outputs a single titled line, used for short command results.
func (p *Printer) PrintMessage(title, message string) {
	p.printBox(title, message)
}
