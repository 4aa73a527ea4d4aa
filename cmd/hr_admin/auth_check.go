package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var authCheckCmd = &cobra.Command{
	Use:   "auth-check <email> <password>",
	Short: "Try a password sign-in with the anon key",
	Long:  "Performs one password-grant sign-in. A rejected sign-in is printed, not treated as a failure. The password is never printed or logged.",
	RunE:  runAuthCheck,
}

func init() {
	rootCmd.AddCommand(authCheckCmd)
}

func runAuthCheck(cmd *cobra.Command, args []string) error {
	if err := requireArgs(cmd, args, 2); err != nil {
		return err
	}
	email, password := args[0], args[1]

	cfg, _, err := loadBackend()
	if err != nil {
		return err
	}

	logger.Debug("password grant", zap.String("email", email))
	token, err := newClient(cfg, false).PasswordGrant(commandContext(cmd), email, password)

	out := cmd.OutOrStdout()
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		_, _ = fmt.Fprintf(out, "Sign-in failed: HTTP %d %s: %s\n", httpErr.StatusCode, httpErr.Status, httpErr.Message())
		return nil
	}
	if err != nil {
		return fmt.Errorf("sign-in request failed: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Sign-in OK: user_id=%s\n", token.ResolvedUserID())
	return nil
}
