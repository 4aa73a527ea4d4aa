// Package certs audits the certificates table for employee-name drift.
//
// Name variants are supplied by the operator for one investigation at a time.
// They are compared literally and never used to merge or normalize rows.
package certs

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/db"
	"github.com/jonathan/hr-portal/internal/types"
	"go.uber.org/zap"
)

// Table is the audited table.
const Table = "certificates"

// RowLimit caps the certificate read.
const RowLimit = 10000

// VariantCount is the number of certificates whose employee_name equals Name exactly.
type VariantCount struct {
	Name       string `json:"name"`
	TrainingID string `json:"training_id,omitempty"`
	Count      int    `json:"count"`
}

// Policies reports the row-level security policies, when they could be read.
type Policies struct {
	Available bool        `json:"available"`
	Rows      []db.Policy `json:"rows,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Report is the result of one audit.
type Report struct {
	Total         int                 `json:"total"`
	Certificates  []types.Certificate `json:"certificates"`
	Variants      []VariantCount      `json:"variants"`
	DistinctNames []string            `json:"distinct_names"`
	Policies      Policies            `json:"policies"`
}

// Options selects what the audit looks at.
type Options struct {
	Variants   []string
	TrainingID string // restricts variant counts when set
}

// Summarize builds the report body from certificates already read.
func Summarize(certificates []types.Certificate, opts Options) Report {
	if certificates == nil {
		certificates = []types.Certificate{}
	}
	r := Report{
		Total:         len(certificates),
		Certificates:  certificates,
		Variants:      make([]VariantCount, 0, len(opts.Variants)),
		DistinctNames: DistinctNames(certificates),
	}

	for _, name := range opts.Variants {
		vc := VariantCount{Name: name, TrainingID: opts.TrainingID}
		for i := range certificates {
			c := &certificates[i]
			if c.EmployeeName != name {
				continue
			}
			if opts.TrainingID != "" && (c.TrainingID == nil || c.TrainingID.String() != opts.TrainingID) {
				continue
			}
			vc.Count++
		}
		r.Variants = append(r.Variants, vc)
	}
	return r
}

// DistinctNames returns the exact employee_name strings present, sorted.
func DistinctNames(certificates []types.Certificate) []string {
	seen := make(map[string]struct{}, len(certificates))
	names := make([]string, 0)
	for i := range certificates {
		name := certificates[i].EmployeeName
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PolicyLister reads row-level security policies.
type PolicyLister interface {
	ListPolicies(ctx context.Context, tables ...string) ([]db.Policy, error)
}

// Auditor reads certificates and, optionally, their policies.
type Auditor struct {
	Client   *backend.Client
	Policies PolicyLister // nil when no database is configured
	Logger   *zap.Logger
}

// Run performs the audit. Certificate read failures are fatal; policy
// introspection failures are reported as unavailable.
func (a *Auditor) Run(ctx context.Context, opts Options) (Report, error) {
	certificates, err := backend.Fetch[types.Certificate](ctx, a.Client, Table, url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
		"limit":  {strconv.Itoa(RowLimit)},
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load certificates: %w", err)
	}

	report := Summarize(certificates, opts)
	report.Policies = a.policies(ctx)
	return report, nil
}

func (a *Auditor) policies(ctx context.Context) Policies {
	if a.Policies == nil {
		return Policies{Reason: "unavailable: no database URL configured"}
	}
	rows, err := a.Policies.ListPolicies(ctx, Table)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Debug("policy introspection failed", zap.Error(err))
		}
		return Policies{Reason: "unavailable: " + err.Error()}
	}
	if rows == nil {
		rows = []db.Policy{}
	}
	return Policies{Available: true, Rows: rows}
}
