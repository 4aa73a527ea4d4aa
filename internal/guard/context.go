package guard

import "context"

type contextKey string

const (
	resultKey   contextKey = "roleResult"
	identityKey contextKey = "identity"
)

// WithResult stores the role result of the current request.
func WithResult(ctx context.Context, r Result) context.Context {
	return context.WithValue(ctx, resultKey, r)
}

// ResultFrom returns the role result stored by WithResult.
func ResultFrom(ctx context.Context) (Result, bool) {
	r, ok := ctx.Value(resultKey).(Result)
	return r, ok
}

// WithIdentity stores the authenticated caller.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller stored by WithIdentity, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
