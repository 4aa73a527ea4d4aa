package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/jonathan/hr-portal/internal/backend/backendtest"
	"github.com/jonathan/hr-portal/internal/config"
	"github.com/spf13/cobra"
)

// useFake points the commands at fake through the process environment and
// an absent env file.
func useFake(t *testing.T, fake *backendtest.Fake) {
	t.Helper()
	for _, keys := range [][]string{
		config.URLKeys, config.AnonKeyKeys, config.ServiceKeyKeys,
		config.JWTSecretKeys, config.DatabaseURLKeys,
	} {
		for _, key := range keys {
			t.Setenv(key, "")
		}
	}
	t.Setenv("BACKEND_URL", fake.URL())
	t.Setenv("BACKEND_ANON_KEY", backendtest.AnonKey)
	t.Setenv("BACKEND_SERVICE_ROLE_KEY", backendtest.ServiceKey)

	previous := envFile
	envFile = filepath.Join(t.TempDir(), "absent.env")
	t.Cleanup(func() { envFile = previous })
}

// execute runs a command body with its output captured.
func execute(run func(*cobra.Command, []string) error, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := &cobra.Command{Use: "test <args>"}
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetContext(context.Background())
	err := run(cmd, args)
	return out.String(), err
}
