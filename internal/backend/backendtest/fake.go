// Package backendtest provides an in-memory stand-in for the managed backend
// (REST tables, password grant, admin user API) for use in tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/hr-portal/internal/config"
	"github.com/jonathan/hr-portal/internal/types"
)

// Keys and secret the fake accepts.
const (
	AnonKey    = "test-anon-key"
	ServiceKey = "test-service-role-key"
	JWTSecret  = "test-jwt-secret-with-at-least-32-bytes"
)

// Recorded is a request observed by the fake.
type Recorded struct {
	Method        string
	Path          string
	Query         string
	APIKey        string
	Authorization string
	Prefer        string
}

type user struct {
	types.AuthUser
	passwordHash string
}

type failure struct {
	status int
	body   string
}

// Fake is an in-memory backend served over httptest.
type Fake struct {
	Server *httptest.Server

	passwords *config.PasswordConfig

	mu       sync.Mutex
	tables   map[string][]map[string]any
	users    []*user
	failures map[string]failure
	requests []Recorded
}

// New starts a fake backend and stops it when the test ends.
func New(t testing.TB) *Fake {
	t.Helper()
	f := &Fake{
		passwords: &config.PasswordConfig{BcryptCost: 10, MinLength: config.DefaultPasswordMinLength},
		tables:    make(map[string][]map[string]any),
		failures:  make(map[string]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v1/{table}", f.handleSelect)
	mux.HandleFunc("POST /rest/v1/{table}", f.handleInsert)
	mux.HandleFunc("PATCH /rest/v1/{table}", f.handlePatch)
	mux.HandleFunc("POST /auth/v1/token", f.handleToken)
	mux.HandleFunc("GET /auth/v1/user", f.handleUser)
	mux.HandleFunc("GET /auth/v1/admin/users", f.admin(f.handleListUsers))
	mux.HandleFunc("POST /auth/v1/admin/users", f.admin(f.handleCreateUser))
	mux.HandleFunc("PUT /auth/v1/admin/users/{id}", f.admin(f.handleUpdateUser))

	f.Server = httptest.NewServer(f.intercept(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake.
func (f *Fake) URL() string { return f.Server.URL }

// Backend returns a configuration pointing at the fake with every key set.
func (f *Fake) Backend() *config.Backend {
	return &config.Backend{
		URL:        f.Server.URL,
		AnonKey:    AnonKey,
		ServiceKey: ServiceKey,
		JWTSecret:  JWTSecret,
	}
}

// Seed appends rows to table. Rows may be maps or structs with JSON tags.
func (f *Fake) Seed(table string, rows ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		row, err := toRow(r)
		if err != nil {
			panic(fmt.Sprintf("backendtest: seed %s: %v", table, err))
		}
		f.tables[table] = append(f.tables[table], row)
	}
}

// Rows returns a copy of the rows of table.
func (f *Fake) Rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.tables[table]))
	for _, row := range f.tables[table] {
		out = append(out, cloneRow(row))
	}
	return out
}

// AddUser registers an auth user directly and returns it.
func (f *Fake) AddUser(email, password string) types.AuthUser {
	hash, err := f.passwords.HashPassword(password)
	if err != nil {
		panic(fmt.Sprintf("backendtest: hash password: %v", err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &user{
		AuthUser: types.AuthUser{
			ID:        uuid.NewString(),
			Email:     email,
			CreatedAt: time.Now().UTC(),
		},
		passwordHash: hash,
	}
	f.users = append(f.users, u)
	return u.AuthUser
}

// Users returns every auth user in creation order.
func (f *Fake) Users() []types.AuthUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.AuthUser, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u.AuthUser)
	}
	return out
}

// CheckPassword reports whether the user with email has password.
func (f *Fake) CheckPassword(email, password string) bool {
	f.mu.Lock()
	u := f.userByEmail(email)
	f.mu.Unlock()
	return u != nil && f.passwords.VerifyPassword(password, u.passwordHash)
}

// IssueToken signs an access token for the user with id.
func (f *Fake) IssueToken(userID, email string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  "authenticated",
		"aud":   config.DefaultTokenAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		panic(fmt.Sprintf("backendtest: sign token: %v", err))
	}
	return signed
}

// Fail makes every request whose path starts with prefix answer status with body.
func (f *Fake) Fail(prefix string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[prefix] = failure{status: status, body: body}
}

// Requests returns the requests observed so far.
func (f *Fake) Requests() []Recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Recorded(nil), f.requests...)
}

func (f *Fake) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			APIKey:        r.Header.Get("apikey"),
			Authorization: r.Header.Get("Authorization"),
			Prefer:        r.Header.Get("Prefer"),
		})
		var injected *failure
		for prefix, fail := range f.failures {
			if strings.HasPrefix(r.URL.Path, prefix) {
				injected = &fail
				break
			}
		}
		f.mu.Unlock()

		if injected != nil {
			w.WriteHeader(injected.status)
			_, _ = w.Write([]byte(injected.body))
			return
		}

		key := r.Header.Get("apikey")
		if key != AnonKey && key != ServiceKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *Fake) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) != ServiceKey {
			writeJSON(w, http.StatusForbidden, map[string]string{"msg": "User not allowed"})
			return
		}
		next(w, r)
	}
}

func (f *Fake) handleSelect(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	q := r.URL.Query()

	f.mu.Lock()
	var matched []map[string]any
	for _, row := range f.filterRows(table, q) {
		matched = append(matched, cloneRow(row))
	}
	f.mu.Unlock()

	if order := q.Get("order"); order != "" {
		col, dir, _ := strings.Cut(order, ".")
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := textOf(matched[i][col]), textOf(matched[j][col])
			if strings.HasPrefix(dir, "desc") {
				return a > b
			}
			return a < b
		})
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]map[string]any, 0, len(matched))
	for _, row := range matched {
		out = append(out, project(row, q.Get("select")))
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *Fake) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	incoming, err := decodeRows(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	merge := strings.Contains(r.Header.Get("Prefer"), "resolution=merge-duplicates")
	conflict := r.URL.Query().Get("on_conflict")
	if conflict == "" {
		conflict = "id"
	}

	f.mu.Lock()
	stored := make([]map[string]any, 0, len(incoming))
	for _, row := range incoming {
		if _, ok := row["id"]; !ok {
			row["id"] = uuid.NewString()
		}
		if merge {
			if existing := f.findRow(table, conflict, row[conflict]); existing != nil {
				for k, v := range row {
					existing[k] = v
				}
				stored = append(stored, cloneRow(existing))
				continue
			}
		}
		f.tables[table] = append(f.tables[table], row)
		stored = append(stored, cloneRow(row))
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, stored)
}

func (f *Fake) handlePatch(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	matched := f.filterRows(table, r.URL.Query())
	out := make([]map[string]any, 0, len(matched))
	for _, row := range matched {
		for k, v := range patch {
			row[k] = v
		}
		out = append(out, cloneRow(row))
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (f *Fake) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	u := f.userByEmail(body.Email)
	f.mu.Unlock()

	if u == nil || !f.passwords.VerifyPassword(body.Password, u.passwordHash) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  f.IssueToken(u.ID, u.Email),
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": uuid.NewString(),
		"user":          u.AuthUser,
	})
}

func (f *Fake) handleUser(w http.ResponseWriter, r *http.Request) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(bearer(r), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(JWTSecret), nil
	})
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT: " + err.Error()})
		return
	}
	sub, _ := claims.GetSubject()

	f.mu.Lock()
	u := f.userByID(sub)
	f.mu.Unlock()

	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, u.AuthUser)
}

func (f *Fake) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 50
	}

	f.mu.Lock()
	users := make([]types.AuthUser, 0, perPage)
	for i := (page - 1) * perPage; i < len(f.users) && len(users) < perPage; i++ {
		users = append(users, f.users[i].AuthUser)
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"users": users, "aud": config.DefaultTokenAudience})
}

type userAttributes struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (f *Fake) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var attrs userAttributes
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return
	}
	if err := f.passwords.CheckPolicy(attrs.Password); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": err.Error()})
		return
	}

	f.mu.Lock()
	exists := f.userByEmail(attrs.Email) != nil
	f.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"msg": "A user with this email address has already been registered",
		})
		return
	}

	created := f.AddUser(attrs.Email, attrs.Password)
	if attrs.UserMetadata != nil {
		f.mu.Lock()
		u := f.userByID(created.ID)
		u.UserMetadata = attrs.UserMetadata
		created = u.AuthUser
		f.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, created)
}

func (f *Fake) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var attrs userAttributes
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return
	}

	var hash string
	if attrs.Password != "" {
		if err := f.passwords.CheckPolicy(attrs.Password); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": err.Error()})
			return
		}
		h, err := f.passwords.HashPassword(attrs.Password)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"msg": err.Error()})
			return
		}
		hash = h
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userByID(r.PathValue("id"))
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "User not found"})
		return
	}
	if hash != "" {
		u.passwordHash = hash
	}
	if attrs.Email != "" {
		u.Email = attrs.Email
	}
	if attrs.UserMetadata != nil {
		u.UserMetadata = attrs.UserMetadata
	}
	writeJSON(w, http.StatusOK, u.AuthUser)
}

// filterRows returns the live rows of table matching q. Callers hold f.mu.
func (f *Fake) filterRows(table string, q map[string][]string) []map[string]any {
	var out []map[string]any
	for _, row := range f.tables[table] {
		if matches(row, q) {
			out = append(out, row)
		}
	}
	return out
}

func (f *Fake) findRow(table, col string, value any) map[string]any {
	if value == nil {
		return nil
	}
	for _, row := range f.tables[table] {
		if textOf(row[col]) == textOf(value) {
			return row
		}
	}
	return nil
}

func (f *Fake) userByEmail(email string) *user {
	email = strings.TrimSpace(email)
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (f *Fake) userByID(id string) *user {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

var reserved = map[string]bool{"select": true, "order": true, "limit": true, "offset": true, "on_conflict": true}

func matches(row map[string]any, q map[string][]string) bool {
	for col, filters := range q {
		if reserved[col] {
			continue
		}
		for _, filter := range filters {
			if !matchFilter(row[col], filter) {
				return false
			}
		}
	}
	return true
}

func matchFilter(value any, filter string) bool {
	op, operand, _ := strings.Cut(filter, ".")
	switch op {
	case "eq":
		return value != nil && textOf(value) == operand
	case "neq":
		return value != nil && textOf(value) != operand
	case "is":
		if operand == "null" {
			return value == nil
		}
		return value != nil && textOf(value) == operand
	case "in":
		list := strings.TrimSuffix(strings.TrimPrefix(operand, "("), ")")
		for _, candidate := range strings.Split(list, ",") {
			if value != nil && textOf(value) == candidate {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func project(row map[string]any, sel string) map[string]any {
	if sel == "" || sel == "*" {
		return cloneRow(row)
	}
	out := make(map[string]any)
	for _, col := range strings.Split(sel, ",") {
		col = strings.TrimSpace(col)
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return types.FormatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, _ := json.Marshal(t)
		return string(data)
	}
}

func decodeRows(r *http.Request) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw) > 0 && raw[0] == '[' {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

func toRow(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return cloneRow(m), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return row, nil
}

func cloneRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func bearer(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
