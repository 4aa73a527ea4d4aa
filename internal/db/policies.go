package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Policy is one row-level security policy as listed by pg_policies.
type Policy struct {
	Schema     string   `json:"schemaname"`
	Table      string   `json:"tablename"`
	Name       string   `json:"policyname"`
	Permissive string   `json:"permissive"`
	Roles      []string `json:"roles"`
	Command    string   `json:"cmd"`
	Using      *string  `json:"qual"`
	WithCheck  *string  `json:"with_check"`
}

const policiesQuery = `
SELECT schemaname, tablename, policyname, permissive, roles::text[], cmd, qual, with_check
FROM pg_policies
WHERE tablename = ANY($1)
ORDER BY tablename, policyname`

// ListPolicies returns the row-level security policies defined on tables.
// Reading pg_policies usually needs a privileged role.
func (db *DB) ListPolicies(ctx context.Context, tables ...string) ([]Policy, error) {
	if len(tables) == 0 {
		return []Policy{}, nil
	}

	rows, err := db.pool.Query(ctx, policiesQuery, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}

	policies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Policy, error) {
		var p Policy
		err := row.Scan(&p.Schema, &p.Table, &p.Name, &p.Permissive, &p.Roles, &p.Command, &p.Using, &p.WithCheck)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan policies: %w", err)
	}
	return policies, nil
}
