package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var setRoleCmd = &cobra.Command{
	Use:   "set-role <email> <role>",
	Short: "Change the profile role of a user",
	Long:  "Finds the auth user by email (full user list scan) and patches the role of their profile. Needs the service role key.",
	RunE:  runSetRole,
}

func init() {
	rootCmd.AddCommand(setRoleCmd)
}

func runSetRole(cmd *cobra.Command, args []string) error {
	if err := requireArgs(cmd, args, 2); err != nil {
		return err
	}
	email, role := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	if role == "" {
		return fmt.Errorf("role must not be empty")
	}

	cfg, _, err := loadBackend()
	if err != nil {
		return err
	}
	if err := cfg.RequireServiceKey(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	client := newClient(cfg, true)

	user, err := client.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user not found: %s", email)
	}

	rows, err := client.Patch(ctx, "profiles",
		url.Values{"id": {backend.Eq(user.ID)}},
		map[string]string{"role": role})
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("profile not found for user %s", user.ID)
	}

	var profile types.Profile
	if err := json.Unmarshal(rows[0], &profile); err != nil {
		return fmt.Errorf("failed to decode profile: %w", err)
	}
	logger.Info("role changed", zap.String("user_id", user.ID), zap.String("role", role))
	return writeJSON(cmd.OutOrStdout(), profile)
}
