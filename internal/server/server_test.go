package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonathan/hr-portal/internal/backend/backendtest"
	"github.com/jonathan/hr-portal/internal/config"
	"github.com/jonathan/hr-portal/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	fake   *backendtest.Fake
	server *Server
	http   *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	fake := backendtest.New(t)

	cfg := Config{
		Backend:   fake.Backend(),
		RateLimit: &ratelimit.Config{Enabled: false},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		fake:   fake,
		server: s,
		http:   srv,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

// signIn creates a user with a profile role and returns its access token.
func (e *testEnv) signIn(email, role string) string {
	user := e.fake.AddUser(email, "password1")
	if role != "" {
		e.fake.Seed("profiles", map[string]any{"id": user.ID, "role": role, "email": email})
	}
	return e.fake.IssueToken(user.ID, user.Email)
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestNew_RequiresServiceKey(t *testing.T) {
	_, err := New(Config{Backend: &config.Backend{URL: "http://x", AnonKey: "anon"}})
	assert.ErrorContains(t, err, "service role key")

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{
		"/functions/v1/admin-reset-password",
		"/functions/v1/create-employee-auth",
		"/functions/v1/request-password-reset",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodOptions, path, "", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "authorization, x-client-info, apikey, content-type", resp.Header.Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "POST, GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
			assert.Empty(t, env.fake.Requests(), "pre-flight never reaches the backend")

			resp, _ = env.do(t, http.MethodPost, path, "", "{}")
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), "errors carry CORS headers too")
		})
	}
}

func TestEdgeHandlers_EmptyBodyNamesMissingField(t *testing.T) {
	env := newTestEnv(t)
	callers := map[string]string{
		"anonymous": "",
		"hr":        env.signIn("hr@example.com", "hr"),
		"admin":     env.signIn("admin@example.com", "admin"),
	}

	tests := []struct {
		path string
		body string
		want string
	}{
		{path: "/functions/v1/admin-reset-password", body: "{}", want: "email is required"},
		{path: "/functions/v1/admin-reset-password", body: `{"email":"a@b.co"}`, want: "new_password is required"},
		{path: "/functions/v1/create-employee-auth", body: "{}", want: "email is required"},
		{path: "/functions/v1/create-employee-auth", body: `{"email":"a@b.co"}`, want: "password is required"},
		{path: "/functions/v1/request-password-reset", body: "{}", want: "email is required"},
		{path: "/functions/v1/request-password-reset", body: "", want: "email is required"},
		{path: "/functions/v1/request-password-reset", body: `{"email":"   "}`, want: "email is required"},
	}

	for name, token := range callers {
		for _, tt := range tests {
			t.Run(name+" "+tt.path+" "+tt.body, func(t *testing.T) {
				resp, body := env.do(t, http.MethodPost, tt.path, token, tt.body)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.want, body["error"])
				assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			})
		}
	}
}

func TestEdgeHandlers_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/functions/v1/request-password-reset", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestNotAuthorizedRoute(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/not-authorized", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not authorized", body["error"])
}

func TestMyRole(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn("hr@example.com", "HR")

	resp, body := env.do(t, http.MethodGet, "/api/me/role", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "resolved", body["state"])
	assert.Nil(t, body["role"])

	_, body = env.do(t, http.MethodGet, "/api/me/role", token, nil)
	assert.Equal(t, "resolved", body["state"])
	assert.Equal(t, "HR", body["role"])

	_, body = env.do(t, http.MethodGet, "/api/me/role", "forged.token.value", nil)
	assert.Nil(t, body["role"], "invalid tokens are anonymous")
}

func TestMyRole_RemoteTokenVerification(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Backend.JWTSecret = "" })
	token := env.signIn("admin@example.com", "admin")

	_, body := env.do(t, http.MethodGet, "/api/me/role", token, nil)
	assert.Equal(t, "admin", body["role"])

	var sawUserLookup bool
	for _, r := range env.fake.Requests() {
		if r.Path == "/auth/v1/user" {
			sawUserLookup = true
		}
	}
	assert.True(t, sawUserLookup, "token checked by the backend when no secret is configured")
}

func TestWithRecover(t *testing.T) {
	env := newTestEnv(t)
	h := env.server.withCORS(env.server.withRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/functions/v1/request-password-reset", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"success":false,"error":"kaboom"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/functions/v1/request-password-reset", Method: http.MethodPost, Limit: 1, Window: time.Hour},
			},
		}
	})

	resp, _ := env.do(t, http.MethodPost, "/functions/v1/request-password-reset", "", "{}")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp, body := env.do(t, http.MethodPost, "/functions/v1/request-password-reset", "", "{}")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, false, body["success"])
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	fake := backendtest.New(t)
	s, err := New(Config{Backend: fake.Backend()})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
