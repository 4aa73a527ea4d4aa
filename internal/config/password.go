// Package config provides password policy and hashing functionality.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordMinLength matches the backend's default minimum password length.
const DefaultPasswordMinLength = 6

// PasswordConfig holds the password policy and hashing parameters.
type PasswordConfig struct {
	BcryptCost int
	MinLength  int
	Pepper     string // optional global secret appended before hashing
}

// NewPasswordConfig creates a password configuration from an environment mapping.
// It reads BCRYPT_COST (default: 12), PASSWORD_MIN_LENGTH (default: 6) and
// optionally PASSWORD_PEPPER.
func NewPasswordConfig(env map[string]string) (*PasswordConfig, error) {
	cost, err := envInt(env, "BCRYPT_COST", 12)
	if err != nil {
		return nil, err
	}
	minLength, err := envInt(env, "PASSWORD_MIN_LENGTH", DefaultPasswordMinLength)
	if err != nil {
		return nil, err
	}

	config := &PasswordConfig{
		BcryptCost: cost,
		MinLength:  minLength,
		Pepper:     env["PASSWORD_PEPPER"],
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

func envInt(env map[string]string, key string, def int) (int, error) {
	raw := strings.TrimSpace(env[key])
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

// normalize validates the configuration.
func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	if c.MinLength < 1 || c.MinLength > 72 {
		return fmt.Errorf("password min length out of range: %d (must be 1-72)", c.MinLength)
	}
	return nil
}

// CheckPolicy reports whether pw satisfies the configured policy.
func (c *PasswordConfig) CheckPolicy(pw string) error {
	if len(pw) < c.MinLength {
		return fmt.Errorf("password must be at least %d characters", c.MinLength)
	}
	if len(pw)+len(c.Pepper) > 72 {
		return fmt.Errorf("password must be at most %d bytes", 72-len(c.Pepper))
	}
	return nil
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw+c.Pepper), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a stored hash (with optional pepper).
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(pw+c.Pepper)) == nil
}
