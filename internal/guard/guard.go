// Package guard resolves the caller's role and decides whether a route may be served.
package guard

import (
	"context"
	"errors"
	"strings"
	"time"
)

// State is the progress of a role lookup.
type State string

const (
	StateLoading  State = "loading"
	StateResolved State = "resolved"
	StateError    State = "error"
)

// Result is the outcome of resolving one caller's role.
// Role is nil when the caller is anonymous, has no profile, or the lookup failed.
type Result struct {
	State State   `json:"state"`
	Role  *string `json:"role"`
	Err   string  `json:"error,omitempty"`
}

// Loading is the result of a lookup that has not finished.
func Loading() Result { return Result{State: StateLoading} }

// Resolved is a finished lookup. An empty role is stored as nil.
func Resolved(role string) Result {
	role = strings.TrimSpace(role)
	if role == "" {
		return Result{State: StateResolved}
	}
	return Result{State: StateResolved, Role: &role}
}

// Failed is a lookup that ended in err.
func Failed(err error) Result {
	return Result{State: StateError, Err: err.Error()}
}

// RoleName returns the role or "".
func (r Result) RoleName() string {
	if r.Role == nil {
		return ""
	}
	return *r.Role
}

// Decision is what the gate does with a request.
type Decision int

const (
	Pending Decision = iota
	Granted
	Denied
)

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "pending"
	}
}

// Evaluate compares the resolved role with required, ignoring case.
func Evaluate(result Result, required string) Decision {
	if result.State == StateLoading {
		return Pending
	}
	if result.Role != nil && strings.EqualFold(strings.TrimSpace(*result.Role), strings.TrimSpace(required)) {
		return Granted
	}
	return Denied
}

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// RoleFetcher looks up the stored role of a user. found is false when the
// user has no profile row.
type RoleFetcher interface {
	FetchRole(ctx context.Context, userID string) (role string, found bool, err error)
}

// Resolver turns an identity into a Result.
type Resolver struct {
	Fetcher RoleFetcher
	// Timeout bounds the lookup when positive. A lookup cut short by it is
	// reported as still loading rather than failed.
	Timeout time.Duration
}

// Resolve looks up the role of id. A nil identity resolves to no role.
func (r *Resolver) Resolve(ctx context.Context, id *Identity) Result {
	if id == nil || id.UserID == "" {
		return Resolved("")
	}

	lookupCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	role, found, err := r.Fetcher.FetchRole(lookupCtx, id.UserID)
	if err != nil {
		if r.Timeout > 0 && ctx.Err() == nil && errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
			return Loading()
		}
		return Failed(err)
	}
	if !found {
		return Resolved("")
	}
	return Resolved(role)
}
