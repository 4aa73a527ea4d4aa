package guard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/backend/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		required string
		want     Decision
	}{
		{name: "same case", result: Resolved("admin"), required: "admin", want: Granted},
		{name: "case variant", result: Resolved("ADMIN"), required: "Admin", want: Granted},
		{name: "other role", result: Resolved("HR"), required: "Admin", want: Denied},
		{name: "no role", result: Resolved(""), required: "Admin", want: Denied},
		{name: "loading", result: Loading(), required: "Admin", want: Pending},
		{name: "error", result: Failed(errors.New("boom")), required: "Admin", want: Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.result, tt.required))
		})
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "granted", Granted.String())
	assert.Equal(t, "denied", Denied.String())
}

func TestResult_JSON(t *testing.T) {
	data, err := json.Marshal(Resolved("hr"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"resolved","role":"hr"}`, string(data))

	data, err = json.Marshal(Failed(errors.New("boom")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"error","role":null,"error":"boom"}`, string(data))
}

type stubFetcher struct {
	role  string
	found bool
	err   error
	delay time.Duration
	calls int
}

func (s *stubFetcher) FetchRole(ctx context.Context, _ string) (string, bool, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	return s.role, s.found, s.err
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	caller := &Identity{UserID: "u1"}

	t.Run("anonymous", func(t *testing.T) {
		f := &stubFetcher{}
		got := (&Resolver{Fetcher: f}).Resolve(ctx, nil)
		assert.Equal(t, StateResolved, got.State)
		assert.Nil(t, got.Role)
		assert.Zero(t, f.calls, "no lookup without identity")
	})

	t.Run("found", func(t *testing.T) {
		got := (&Resolver{Fetcher: &stubFetcher{role: "Admin", found: true}}).Resolve(ctx, caller)
		assert.Equal(t, "Admin", got.RoleName())
	})

	t.Run("no profile", func(t *testing.T) {
		got := (&Resolver{Fetcher: &stubFetcher{}}).Resolve(ctx, caller)
		assert.Equal(t, StateResolved, got.State)
		assert.Nil(t, got.Role)
	})

	t.Run("error leaves role null", func(t *testing.T) {
		got := (&Resolver{Fetcher: &stubFetcher{err: errors.New("backend down")}}).Resolve(ctx, caller)
		assert.Equal(t, StateError, got.State)
		assert.Nil(t, got.Role)
		assert.Equal(t, "backend down", got.Err)
	})

	t.Run("timeout reports loading", func(t *testing.T) {
		r := &Resolver{Fetcher: &stubFetcher{delay: time.Second, found: true, role: "admin"}, Timeout: 10 * time.Millisecond}
		got := r.Resolve(ctx, caller)
		assert.Equal(t, StateLoading, got.State)
		assert.Equal(t, Pending, Evaluate(got, "admin"))
	})

	t.Run("cancelled caller is an error", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		r := &Resolver{Fetcher: &stubFetcher{delay: time.Second}, Timeout: time.Minute}
		got := r.Resolve(cancelled, caller)
		assert.Equal(t, StateError, got.State)
	})
}

func TestProfileRoles_FetchRole(t *testing.T) {
	fake := backendtest.New(t)
	fake.Seed("profiles", map[string]any{"id": "u1", "role": "HR", "first_name": "Ana"})
	fetcher := ProfileRoles{Client: backend.New(fake.URL(), backendtest.ServiceKey)}

	role, found, err := fetcher.FetchRole(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "HR", role)

	_, found, err = fetcher.FetchRole(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	_, ok := ResultFrom(ctx)
	assert.False(t, ok)
	assert.Nil(t, IdentityFrom(ctx))

	ctx = WithResult(ctx, Resolved("hr"))
	ctx = WithIdentity(ctx, &Identity{UserID: "u1"})

	r, ok := ResultFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "hr", r.RoleName())
	assert.Equal(t, "u1", IdentityFrom(ctx).UserID)
}
