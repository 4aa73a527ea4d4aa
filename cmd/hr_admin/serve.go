package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/hr-portal/internal/config"
	"github.com/jonathan/hr-portal/internal/server"
	"github.com/jonathan/hr-portal/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort           int
	servePolicyPath     string
	serveResolveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the edge handlers and the role-guarded API",
	Long:  `Start an HTTP server hosting admin-reset-password, create-employee-auth and request-password-reset under /functions/v1/, plus /api/me/role and the admin-only /api/admin/hires/{job_id}.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&servePolicyPath, "policy", "", "YAML route-role policy (default: built-in)")
	serveCmd.Flags().DurationVar(&serveResolveTimeout, "resolve-timeout", 0, "Bound on role lookups; 0 waits for the backend")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, env, err := loadBackend()
	if err != nil {
		return err
	}

	passwords, err := config.NewPasswordConfig(env)
	if err != nil {
		return fmt.Errorf("invalid password policy: %w", err)
	}

	srv, err := server.New(server.Config{
		Port:           servePort,
		Backend:        cfg,
		PolicyPath:     servePolicyPath,
		ResolveTimeout: serveResolveTimeout,
		RateLimit:      ratelimit.LoadConfig(env),
		Passwords:      passwords,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
