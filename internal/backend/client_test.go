package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jonathan/hr-portal/internal/backend/backendtest"
	"github.com/jonathan/hr-portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAll_SendsBothAuthHeaders(t *testing.T) {
	fake := backendtest.New(t)
	fake.Seed("certificates", map[string]any{"id": "c1", "employee_name": "Ana"})

	client := New(fake.URL(), backendtest.ServiceKey)
	rows, err := client.FetchAll(context.Background(), "certificates", url.Values{"limit": {"10"}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/rest/v1/certificates", reqs[0].Path)
	assert.Equal(t, "limit=10", reqs[0].Query)
	assert.Equal(t, backendtest.ServiceKey, reqs[0].APIKey)
	assert.Equal(t, "Bearer "+backendtest.ServiceKey, reqs[0].Authorization)
}

func TestFetchAll_NonArrayBodyYieldsEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"object": `{"rows": [1,2]}`,
		"null":   `null`,
		"text":   `not json`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			rows, err := New(srv.URL, "k").FetchAll(context.Background(), "applications", nil)
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestFetchAll_ErrorBodyTruncated(t *testing.T) {
	long := strings.Repeat("x", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").FetchAll(context.Background(), "applications", nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "Bad Request", httpErr.Status)
	assert.Len(t, httpErr.Body, MaxErrorBody)
}

func TestFetchAll_HTMLErrorFlattened(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html><head><style>body{}</style></head>
<body><h1>502 Bad Gateway</h1>
<p>upstream   unavailable</p></body></html>`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").FetchAll(context.Background(), "applications", nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "502 Bad Gateway upstream unavailable", httpErr.Body)
}

func TestHTTPError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *HTTPError
		want string
	}{
		{name: "msg field", err: &HTTPError{Status: "Unprocessable Entity", Body: `{"msg":"already registered"}`}, want: "already registered"},
		{name: "error description", err: &HTTPError{Body: `{"error":"invalid_grant","error_description":"Invalid login credentials"}`}, want: "Invalid login credentials"},
		{name: "plain body", err: &HTTPError{Body: "gateway timeout"}, want: "gateway timeout"},
		{name: "empty body", err: &HTTPError{Status: "Not Found"}, want: "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Message())
		})
	}
}

func TestFetch_DecodesTypedRows(t *testing.T) {
	fake := backendtest.New(t)
	fake.Seed("applications",
		map[string]any{"id": 1, "status": "hired", "job_id": "42"},
		map[string]any{"id": 2, "status": "applied", "job_id": nil},
	)

	client := New(fake.URL(), backendtest.AnonKey)
	apps, err := Fetch[types.Application](context.Background(), client, "applications",
		url.Values{"job_id": {Eq("42")}})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, types.FlexID("1"), apps[0].ID)
	require.NotNil(t, apps[0].JobID)
	assert.Equal(t, "42", apps[0].JobID.String())

	legacy, err := Fetch[types.Application](context.Background(), client, "applications",
		url.Values{"job_id": {IsNull}})
	require.NoError(t, err)
	require.Len(t, legacy, 1)
	assert.Nil(t, legacy[0].JobID)
}

func TestInsertUpsertPatch(t *testing.T) {
	fake := backendtest.New(t)
	client := New(fake.URL(), backendtest.ServiceKey)
	ctx := context.Background()

	inserted, err := client.Insert(ctx, "notifications", []types.Notification{
		{UserID: "u1", Title: "t", Type: types.NotificationPasswordReset},
		{UserID: "u2", Title: "t", Type: types.NotificationPasswordReset},
	})
	require.NoError(t, err)
	assert.Len(t, inserted, 2)
	assert.Len(t, fake.Rows("notifications"), 2)

	_, err = client.Upsert(ctx, "profiles", types.Profile{ID: "p1", Role: "employee"}, "id")
	require.NoError(t, err)
	_, err = client.Upsert(ctx, "profiles", types.Profile{ID: "p1", Role: "hr"}, "id")
	require.NoError(t, err)

	profiles := fake.Rows("profiles")
	require.Len(t, profiles, 1, "upsert merges on the conflict column")
	assert.Equal(t, "hr", profiles[0]["role"])

	for _, r := range fake.Requests() {
		if r.Path == "/rest/v1/profiles" {
			assert.Contains(t, r.Prefer, "resolution=merge-duplicates")
		}
	}

	patched, err := client.Patch(ctx, "profiles", url.Values{"id": {Eq("p1")}}, map[string]string{"role": "admin"})
	require.NoError(t, err)
	assert.Len(t, patched, 1)

	none, err := client.Patch(ctx, "profiles", url.Values{"id": {Eq("missing")}}, map[string]string{"role": "admin"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = client.Patch(ctx, "profiles", nil, map[string]string{"role": "admin"})
	assert.Error(t, err, "unfiltered patches are refused")
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	fake := backendtest.New(t)
	client := New(fake.URL()+"/", backendtest.AnonKey)

	_, err := client.FetchAll(context.Background(), "profiles", nil)
	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/profiles", fake.Requests()[0].Path)
}
