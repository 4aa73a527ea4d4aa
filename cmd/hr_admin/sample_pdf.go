package main

import (
	"fmt"
	"time"

	"github.com/jonathan/hr-portal/internal/rendering"
	"github.com/spf13/cobra"
)

// DefaultSamplePath is where sample-pdf writes unless --out is given.
const DefaultSamplePath = "public/samples/sample-report.pdf"

var samplePDFCmd = &cobra.Command{
	Use:   "sample-pdf",
	Short: "Write a single-page sample report in the portal theme",
	RunE:  runSamplePDF,
}

var (
	samplePDFOut  string
	samplePDFHTML bool
)

func init() {
	samplePDFCmd.Flags().StringVarP(&samplePDFOut, "out", "o", DefaultSamplePath, "Output path")
	samplePDFCmd.Flags().BoolVar(&samplePDFHTML, "html", false, "Write the HTML page instead of printing it")
	rootCmd.AddCommand(samplePDFCmd)
}

func runSamplePDF(cmd *cobra.Command, _ []string) error {
	theme := rendering.DefaultTheme()
	report := rendering.SampleReport(time.Now())

	var data []byte
	if samplePDFHTML {
		html, err := rendering.RenderHTML(theme, report)
		if err != nil {
			return err
		}
		data = []byte(html)
	} else {
		pdf, err := rendering.PrintPDF(commandContext(cmd), theme, report)
		if err != nil {
			return err
		}
		data = pdf
	}

	if err := writeFile(samplePDFOut, data); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", samplePDFOut, len(data))
	return nil
}
