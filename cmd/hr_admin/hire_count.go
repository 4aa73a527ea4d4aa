package main

import (
	"time"

	"github.com/jonathan/hr-portal/internal/hiring"
	"github.com/jonathan/hr-portal/internal/observability"
	"github.com/jonathan/hr-portal/internal/schemas"
	"github.com/spf13/cobra"
)

var hireCountCmd = &cobra.Command{
	Use:   "hire-count <job_id>",
	Short: "Count hired applications for a job",
	Long:  "Counts hired applications linked by job_id plus legacy rows whose job_id is null and whose payload names the job.",
	RunE:  runHireCount,
}

var hireCountFlags reportFlags

func init() {
	hireCountFlags.register(hireCountCmd)
	rootCmd.AddCommand(hireCountCmd)
}

func runHireCount(cmd *cobra.Command, args []string) error {
	if err := requireArgs(cmd, args, 1); err != nil {
		return err
	}
	if err := hireCountFlags.validate(); err != nil {
		return err
	}

	cfg, _, err := loadBackend()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	report, err := hiring.Load(ctx, hiring.ClientFetcher{Client: newClient(cfg, true)}, args[0])
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	return emitReport(ctx, cmd, &hireCountFlags, schemas.HireReport, report,
		func() { printer.PrintHireReport(&report) },
		observability.HireDocument(&report, time.Now()))
}
