package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/middleware"
	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/repository"
	"github.com/iliyamo/koemail-admin/internal/service"
)

var (
	adminP = auth.Principal{UserID: 1, Email: "admin@example.com", Role: auth.RoleAdmin}
	aliceP = auth.Principal{UserID: 2, Email: "alice@example.com", Role: auth.RoleStandard}
)

// newContext builds an echo context for method/target with an optional
// JSON body and, when p is non-nil, an authenticated caller.
func newContext(method, target, body string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		middleware.SetPrincipal(c, *p)
	}
	return c, rec
}

func withParam(c echo.Context, name, value string) echo.Context {
	c.SetParamNames(name)
	c.SetParamValues(value)
	return c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

// recordingAuditor keeps every entry it is given.
type recordingAuditor struct {
	mu      sync.Mutex
	entries []service.Entry
	actors  []int64
}

func (a *recordingAuditor) Record(ctx context.Context, e service.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	var actor int64
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		actor = p.UserID
	}
	a.actors = append(a.actors, actor)
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// fakeAuthenticator returns canned results.
type fakeAuthenticator struct {
	login     *auth.Login
	loginErr  error
	changeErr error
	gotEmail  string
	changed   bool
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, email, _ string) (*auth.Login, error) {
	f.gotEmail = email
	return f.login, f.loginErr
}

func (f *fakeAuthenticator) ChangePassword(context.Context, auth.Principal, string, string) error {
	if f.changeErr == nil {
		f.changed = true
	}
	return f.changeErr
}

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	byID      map[int64]model.User
	nextID    int64
	created   []model.NewUser
	updated   []model.UserUpdate
	deleted   []int64
	createErr error
	err       error
	gotPage   [2]int
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]model.User{}, nextID: 100}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) List(_ context.Context, page, limit int) ([]model.User, int, error) {
	f.gotPage = [2]int{page, limit}
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([]model.User, 0, len(f.byID))
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, nu model.NewUser) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, nu)
	f.nextID++
	f.byID[f.nextID] = model.User{ID: f.nextID, Email: nu.Email, Name: nu.Name, Quota: nu.Quota, Admin: nu.Admin, Active: true}
	return f.nextID, nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, upd model.UserUpdate) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.updated = append(f.updated, upd)
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Quota != nil {
		u.Quota = *upd.Quota
	}
	if upd.Admin != nil {
		u.Admin = *upd.Admin
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type prefixHasher struct{ err error }

func (h prefixHasher) Hash(_ context.Context, plain string) (string, error) {
	return "hashed:" + plain, h.err
}

func sampleUsers() *fakeUsers {
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return newFakeUsers(
		model.User{ID: 1, Email: "admin@example.com", Name: "Admin", Domain: "example.com", Admin: true, Active: true, Quota: 1000},
		model.User{ID: 2, Email: "alice@example.com", Name: "Alice", Domain: "example.com", Active: true, Quota: 1000,
			LastLogin: &last, Usage: model.QuotaUsage{BytesUsed: 250, MessageCount: 7}},
	)
}
