package guard

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// Rule requires Role on every path starting with Prefix.
type Rule struct {
	Prefix string `yaml:"prefix"`
	Role   string `yaml:"role"`
}

// Policy maps route prefixes to required roles.
type Policy struct {
	Rules []Rule `yaml:"rules"`
}

// ParsePolicy decodes a YAML route policy.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse route policy: %w", err)
	}
	for i, rule := range p.Rules {
		if !strings.HasPrefix(rule.Prefix, "/") {
			return nil, fmt.Errorf("rule %d: prefix %q must start with /", i, rule.Prefix)
		}
		if strings.TrimSpace(rule.Role) == "" {
			return nil, fmt.Errorf("rule %d: role is required", i)
		}
	}
	// longest prefix first so RequiredRole picks the most specific rule
	sort.SliceStable(p.Rules, func(i, j int) bool {
		return len(p.Rules[i].Prefix) > len(p.Rules[j].Prefix)
	})
	return &p, nil
}

// LoadPolicy reads a policy file, or the built-in policy when path is empty.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// RequiredRole returns the role guarding path, if any.
func (p *Policy) RequiredRole(path string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, rule := range p.Rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule.Role, true
		}
	}
	return "", false
}
