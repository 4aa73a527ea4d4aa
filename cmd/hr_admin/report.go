package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/hr-portal/internal/rendering"
	"github.com/jonathan/hr-portal/internal/schemas"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Report output formats.
const (
	formatJSON = "json"
	formatText = "text"
)

// reportFlags are the output flags shared by the report commands.
type reportFlags struct {
	format   string
	xlsxPath string
	pdfPath  string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", formatJSON, "Report format on stdout: json or text")
	cmd.Flags().StringVar(&f.xlsxPath, "xlsx", "", "Also write the report as an XLSX workbook")
	cmd.Flags().StringVar(&f.pdfPath, "pdf", "", "Also print the report to PDF (needs Chrome)")
}

func (f *reportFlags) validate() error {
	switch f.format {
	case formatJSON, formatText:
		return nil
	default:
		return fmt.Errorf("unknown --format %q: use %s or %s", f.format, formatJSON, formatText)
	}
}

// emitReport checks report against schema, prints it and writes the
// requested documents.
func emitReport(ctx context.Context, cmd *cobra.Command, flags *reportFlags, schema string, report any, text func(), doc *rendering.Report) error {
	if err := schemas.Validate(schema, report); err != nil {
		return fmt.Errorf("report failed its schema check: %w", err)
	}

	if flags.format == formatText {
		text()
	} else if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	theme := rendering.DefaultTheme()
	if flags.xlsxPath != "" {
		if err := writeXLSXFile(flags.xlsxPath, theme, doc); err != nil {
			return err
		}
		logger.Info("wrote workbook", zap.String("path", flags.xlsxPath))
	}
	if flags.pdfPath != "" {
		pdf, err := rendering.PrintPDF(ctx, theme, doc)
		if err != nil {
			return err
		}
		if err := writeFile(flags.pdfPath, pdf); err != nil {
			return err
		}
		logger.Info("wrote pdf", zap.String("path", flags.pdfPath), zap.Int("bytes", len(pdf)))
	}
	return nil
}

func writeXLSXFile(path string, theme rendering.Theme, doc *rendering.Report) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := rendering.WriteXLSX(f, theme, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
