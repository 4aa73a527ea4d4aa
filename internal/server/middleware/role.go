package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/hr-portal/internal/guard"
)

// NotAuthorizedPath is where denied callers are sent.
const NotAuthorizedPath = "/not-authorized"

// RetryAfterSeconds is advertised while a role lookup is still pending.
const RetryAfterSeconds = "1"

// RequireRole gates every path the policy names. The caller's role is
// resolved once per request and stored in the context for the handler.
// Denied callers are redirected with 303 See Other; while the role is still
// loading the request is answered with 202 and a placeholder body.
func RequireRole(policy *guard.Policy, resolver *guard.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required, guarded := policy.RequiredRole(r.URL.Path)
			if !guarded {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			result := resolver.Resolve(ctx, guard.IdentityFrom(ctx))
			ctx = guard.WithResult(ctx, result)

			switch guard.Evaluate(result, required) {
			case guard.Granted:
				next.ServeHTTP(w, r.WithContext(ctx))
			case guard.Pending:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", RetryAfterSeconds)
				w.WriteHeader(http.StatusAccepted)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"state":   result.State,
					"message": "Checking permissions",
				})
			default:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Location", NotAuthorizedPath)
				w.WriteHeader(http.StatusSeeOther)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "not authorized",
				})
			}
		})
	}
}
