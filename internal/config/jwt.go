// Package config provides JWT verification settings for backend-issued access tokens.
package config

import (
	"fmt"
	"strings"
)

// DefaultTokenAudience is the audience claim the backend stamps on signed-in user tokens.
const DefaultTokenAudience = "authenticated"

// JWTConfig holds configuration for verifying access tokens locally.
type JWTConfig struct {
	Secret   string
	Audience string
}

// NewJWTConfig creates a JWT configuration from the backend settings.
// It fails when no JWT secret was configured; callers fall back to remote
// verification in that case.
func NewJWTConfig(backend *Backend) (*JWTConfig, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend configuration is required")
	}

	config := &JWTConfig{
		Secret:   backend.JWTSecret,
		Audience: DefaultTokenAudience,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	c.Secret = strings.TrimSpace(c.Secret)
	if c.Secret == "" {
		return fmt.Errorf("JWT secret is required but not set (%s)", strings.Join(JWTSecretKeys, ", "))
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes, got: %d", len(c.Secret))
	}
	if c.Audience == "" {
		c.Audience = DefaultTokenAudience
	}
	return nil
}
