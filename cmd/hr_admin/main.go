// Package main implements hr_admin, the administrative command line of the HR portal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile string
	verbose bool
	logger  = zap.NewNop()
)

// errUsage is returned after usage has been printed for missing arguments.
var errUsage = errors.New("missing required arguments")

var rootCmd = &cobra.Command{
	Use:           "hr_admin",
	Short:         "HR portal administration toolkit",
	Long:          "Operator commands for the HR portal backend: sign-in checks, certificate audits, hire counts, report rendering, role changes and the edge handler server.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "KEY=VALUE file read before the process environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

func main() {
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the production logger on stderr so stdout stays a clean report.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// requireArgs prints usage and fails when fewer than n arguments were given.
func requireArgs(cmd *cobra.Command, args []string, n int) error {
	if len(args) >= n {
		return nil
	}
	_ = cmd.Usage()
	return errUsage
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadBackend resolves the backend settings from the env file and process environment.
func loadBackend() (*config.Backend, map[string]string, error) {
	env, err := config.LoadEnv(envFile)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadBackend(env)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("backend configured",
		zap.String("url", cfg.URL),
		zap.Bool("service_key", cfg.ServiceKey != ""),
		zap.Bool("database", cfg.DatabaseURL != ""))
	return cfg, env, nil
}

func newClient(cfg *config.Backend, preferService bool) *backend.Client {
	return backend.New(cfg.URL, cfg.Key(preferService), backend.WithLogger(logger.Named("backend")))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
