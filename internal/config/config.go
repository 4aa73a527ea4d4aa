// Package config provides environment loading and configuration for the HR portal tools.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvFile is the local configuration file read by every command.
const DefaultEnvFile = ".env"

// LoadEnvFile parses a KEY=VALUE file into a mapping.
// Lines are trimmed; blank lines, comment lines and lines without '=' are
// skipped. The first '=' splits key and value, and a value wrapped in matching
// single or double quotes loses them. Values are otherwise taken verbatim:
// no variable expansion, no inline comments. A missing file yields an empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan env file %s: %w", path, err)
	}
	return values, nil
}

// unquote strips one pair of matching surrounding quotes.
func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// LoadEnv reads the env file at path and overlays the process environment.
// Process values win on key collision.
func LoadEnv(path string) (map[string]string, error) {
	values, err := LoadEnvFile(path)
	if err != nil {
		return nil, err
	}
	return Overlay(values, os.Environ()), nil
}

// Overlay returns a copy of base with KEY=VALUE entries applied on top.
func Overlay(base map[string]string, entries []string) map[string]string {
	merged := make(map[string]string, len(base)+len(entries))
	for k, v := range base {
		merged[k] = v
	}
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		merged[key] = value
	}
	return merged
}

// FirstNonEmpty returns the value of the first key in keys with a non-blank value.
func FirstNonEmpty(env map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(env[key]); v != "" {
			return v
		}
	}
	return ""
}

// Alias lists accepted for each backend setting, in priority order.
var (
	URLKeys         = []string{"BACKEND_URL", "SUPABASE_URL", "VITE_SUPABASE_URL"}
	AnonKeyKeys     = []string{"BACKEND_ANON_KEY", "SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY", "VITE_SUPABASE_PUBLISHABLE_KEY"}
	ServiceKeyKeys  = []string{"BACKEND_SERVICE_ROLE_KEY", "SUPABASE_SERVICE_ROLE_KEY", "SERVICE_ROLE_KEY"}
	JWTSecretKeys   = []string{"BACKEND_JWT_SECRET", "SUPABASE_JWT_SECRET"}
	DatabaseURLKeys = []string{"DATABASE_URL", "SUPABASE_DB_URL"}
)

// MissingError reports a required setting that none of its aliases provided.
type MissingError struct {
	Setting string
	Aliases []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing %s: set one of %s", e.Setting, strings.Join(e.Aliases, ", "))
}

// Backend holds the resolved connection settings for the managed backend.
type Backend struct {
	URL         string
	AnonKey     string
	ServiceKey  string
	JWTSecret   string // optional; enables local token verification
	DatabaseURL string // optional; enables policy introspection
}

// LoadBackend resolves backend settings from an environment mapping.
// The URL and at least one key are required.
func LoadBackend(env map[string]string) (*Backend, error) {
	cfg := &Backend{
		URL:         strings.TrimRight(FirstNonEmpty(env, URLKeys...), "/"),
		AnonKey:     FirstNonEmpty(env, AnonKeyKeys...),
		ServiceKey:  FirstNonEmpty(env, ServiceKeyKeys...),
		JWTSecret:   FirstNonEmpty(env, JWTSecretKeys...),
		DatabaseURL: FirstNonEmpty(env, DatabaseURLKeys...),
	}

	if cfg.URL == "" {
		return nil, &MissingError{Setting: "backend URL", Aliases: URLKeys}
	}
	if cfg.AnonKey == "" && cfg.ServiceKey == "" {
		return nil, &MissingError{
			Setting: "backend key",
			Aliases: append(append([]string{}, ServiceKeyKeys...), AnonKeyKeys...),
		}
	}
	return cfg, nil
}

// Key returns the service key when preferService is set and available,
// otherwise the anon key, falling back to whichever is present.
func (b *Backend) Key(preferService bool) string {
	if preferService && b.ServiceKey != "" {
		return b.ServiceKey
	}
	if b.AnonKey != "" {
		return b.AnonKey
	}
	return b.ServiceKey
}

// RequireServiceKey fails when privileged calls are needed but only the anon key is set.
func (b *Backend) RequireServiceKey() error {
	if b.ServiceKey == "" {
		return &MissingError{Setting: "service role key", Aliases: ServiceKeyKeys}
	}
	return nil
}
