package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/handler"
	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/repository"
)

// memStore backs both the verifier and the handlers.
type memStore struct {
	mu    sync.Mutex
	creds map[string]auth.Credential
	users map[int64]model.User
	lists int
}

func (s *memStore) FindCredentialByEmail(_ context.Context, email string) (auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[email]
	if !ok {
		return auth.Credential{}, auth.ErrCredentialNotFound
	}
	return c, nil
}

func (s *memStore) FindCredentialByID(_ context.Context, id int64) (auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creds {
		if c.UserID == id {
			return c, nil
		}
	}
	return auth.Credential{}, auth.ErrCredentialNotFound
}

func (s *memStore) TouchLastLogin(context.Context, int64, time.Time) error { return nil }

func (s *memStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.creds {
		if c.UserID == id {
			c.PasswordHash = hash
			s.creds[k] = c
			return nil
		}
	}
	return auth.ErrCredentialNotFound
}

func (s *memStore) List(context.Context, int, int) ([]model.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	out := []model.User{s.users[1], s.users[2]}
	return out, len(out), nil
}

func (s *memStore) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *memStore) GetByID(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memStore) Create(context.Context, model.NewUser) (int64, error)   { return 0, nil }
func (s *memStore) Update(context.Context, int64, model.UserUpdate) error { return nil }
func (s *memStore) Delete(context.Context, int64) error                   { return nil }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	srv   *httptest.Server
	store *memStore
	clock *clock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := auth.Config{Secret: []byte("router-test-secret"), BcryptCost: bcrypt.MinCost, Now: clk.Now}

	hasher, err := auth.NewHasher(cfg)
	require.NoError(t, err)
	hash := func(p string) string {
		h, err := hasher.Hash(context.Background(), p)
		require.NoError(t, err)
		return h
	}
	store := &memStore{
		creds: map[string]auth.Credential{
			"admin@example.com": {UserID: 1, Email: "admin@example.com", Name: "Admin", PasswordHash: hash("correct"), Active: true, Role: auth.RoleAdmin},
			"alice@example.com": {UserID: 2, Email: "alice@example.com", Name: "Alice", PasswordHash: hash("alice-secret"), Active: true, Role: auth.RoleStandard},
		},
		users: map[int64]model.User{
			1: {ID: 1, Email: "admin@example.com", Name: "Admin", Admin: true, Active: true, Quota: 1 << 30},
			2: {ID: 2, Email: "alice@example.com", Name: "Alice", Active: true, Quota: 1 << 30},
		},
	}

	verifier, err := auth.NewVerifier(cfg, store, hasher, nil)
	require.NoError(t, err)
	gate, err := auth.NewGate(cfg)
	require.NoError(t, err)

	e := New(Deps{
		Gate:     gate,
		Auth:     handler.NewAuthHandler(verifier, store, nil, nil),
		Users:    handler.NewUserHandler(store, hasher, nil),
		Domains:  handler.NewDomainHandler(nil, nil, nil),
		Settings: handler.NewSettingHandler(nil, nil, nil),
		Spam:     handler.NewSpamHandler(nil, nil),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store, clock: clk}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return resp.StatusCode, m
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

func TestAdminLogin(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"correct"}`)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin", user["role"])
	assert.Equal(t, "admin@example.com", user["email"])
}

func TestWrongPassword(t *testing.T) {
	ts := newTestServer(t)

	for _, creds := range []string{
		`{"email":"admin@example.com","password":"incorrect"}`,
		`{"email":"nobody@example.com","password":"incorrect"}`,
	} {
		status, body := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, map[string]any{"error": "Invalid email or password"}, body)
	}
}

func TestExpiredTokenNeverReachesHandler(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "admin@example.com", "correct")

	status, _ := ts.do(t, http.MethodGet, "/api/users", token, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, ts.store.listCalls())

	ts.clock.Advance(25 * time.Hour)
	status, body := ts.do(t, http.MethodGet, "/api/users", token, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["error"])
	assert.Equal(t, 1, ts.store.listCalls(), "handler must not run")
}

func TestStandardUserOnAdminRoute(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice@example.com", "alice-secret")

	status, body := ts.do(t, http.MethodGet, "/api/users", token, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Insufficient permissions", body["error"])
	assert.Zero(t, ts.store.listCalls())

	// Ownership: own record is readable, someone else's is not.
	status, _ = ts.do(t, http.MethodGet, "/api/users/2", token, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/users/1", token, "")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestMissingTokenAndUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access token required", body["error"])

	status, body = ts.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", body["error"])
}

func TestChangePasswordThenLogin(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice@example.com", "alice-secret")

	status, body := ts.do(t, http.MethodPost, "/api/auth/change-password", token,
		`{"currentPassword":"wrong-secret","newPassword":"brand-new-secret"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Current password is incorrect", body["error"])

	status, _ = ts.do(t, http.MethodPost, "/api/auth/change-password", token,
		`{"currentPassword":"alice-secret","newPassword":"brand-new-secret"}`)
	require.Equal(t, http.StatusOK, status)

	ts.login(t, "alice@example.com", "brand-new-secret")
	status, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"alice-secret"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}
