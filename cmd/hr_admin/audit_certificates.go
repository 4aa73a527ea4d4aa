package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/hr-portal/internal/certs"
	"github.com/jonathan/hr-portal/internal/db"
	"github.com/jonathan/hr-portal/internal/observability"
	"github.com/jonathan/hr-portal/internal/schemas"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var auditCertificatesCmd = &cobra.Command{
	Use:   "audit-certificates",
	Short: "Audit certificate rows and their access policies",
	Long: `Reads every certificate, counts rows per operator-supplied employee name
variant (exact match), lists the distinct names and, when a database URL is
configured, the row-level security policies of the table.`,
	RunE: runAuditCertificates,
}

var (
	auditVariants   []string
	auditTrainingID string
	auditFlags      reportFlags
)

func init() {
	auditCertificatesCmd.Flags().StringArrayVar(&auditVariants, "variant", nil, "Employee name spelling to count exactly (repeatable)")
	auditCertificatesCmd.Flags().StringVar(&auditTrainingID, "training-id", "", "Restrict variant counts to one training")
	auditFlags.register(auditCertificatesCmd)
	rootCmd.AddCommand(auditCertificatesCmd)
}

// unreachablePolicies stands in for the database when it cannot be reached.
type unreachablePolicies struct{ err error }

func (u unreachablePolicies) ListPolicies(context.Context, ...string) ([]db.Policy, error) {
	return nil, u.err
}

func runAuditCertificates(cmd *cobra.Command, _ []string) error {
	if err := auditFlags.validate(); err != nil {
		return err
	}

	cfg, _, err := loadBackend()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	auditor := &certs.Auditor{Client: newClient(cfg, true), Logger: logger}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Debug("policy database unreachable", zap.Error(err))
			auditor.Policies = unreachablePolicies{err: fmt.Errorf("connect: %w", err)}
		} else {
			defer database.Close()
			auditor.Policies = database
		}
	}

	report, err := auditor.Run(ctx, certs.Options{Variants: auditVariants, TrainingID: auditTrainingID})
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	return emitReport(ctx, cmd, &auditFlags, schemas.CertificateAudit, report,
		func() { printer.PrintCertificateAudit(&report) },
		observability.CertificateDocument(&report, time.Now()))
}
