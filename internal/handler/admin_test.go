package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/koemail-admin/internal/model"
	"github.com/iliyamo/koemail-admin/internal/queue"
	"github.com/iliyamo/koemail-admin/internal/repository"
)

type fakeDomains struct {
	list    []model.Domain
	created []string
	err     error
}

func (f *fakeDomains) List(context.Context) ([]model.Domain, error) { return f.list, f.err }

func (f *fakeDomains) Create(_ context.Context, name, _ string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, name)
	return int64(len(f.created)), nil
}

type fakeAliases struct{ list []model.Alias }

func (f fakeAliases) List(context.Context) ([]model.Alias, error) { return f.list, nil }

type fakeSettings struct {
	byKey map[string]model.Setting
}

func (f *fakeSettings) List(context.Context) ([]model.Setting, error) {
	out := make([]model.Setting, 0, len(f.byKey))
	for _, s := range f.byKey {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSettings) Get(_ context.Context, key string) (model.Setting, error) {
	s, ok := f.byKey[key]
	if !ok {
		return model.Setting{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeSettings) UpdateValue(_ context.Context, key, value string) error {
	s, ok := f.byKey[key]
	if !ok {
		return repository.ErrNotFound
	}
	s.Value = value
	f.byKey[key] = s
	return nil
}

type fakeStats struct{ st model.Stats }

func (f fakeStats) Summary(context.Context) (model.Stats, error) { return f.st, nil }

type fakeQuarantine struct {
	msgs     map[int64]model.QuarantinedMessage
	released []int64
}

func (f *fakeQuarantine) ListForUser(_ context.Context, userID int64) ([]model.QuarantinedMessage, error) {
	out := []model.QuarantinedMessage{}
	for _, m := range f.msgs {
		if m.UserID == userID && !m.Released {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeQuarantine) Release(_ context.Context, id, userID int64, _ time.Time) error {
	m, ok := f.msgs[id]
	if !ok || m.UserID != userID || m.Released {
		return repository.ErrNotFound
	}
	m.Released = true
	f.msgs[id] = m
	f.released = append(f.released, id)
	return nil
}

func TestDomains_Create(t *testing.T) {
	domains := &fakeDomains{}
	audit := &recordingAuditor{}
	h := NewDomainHandler(domains, fakeAliases{}, audit)

	c, rec := newContext(http.MethodPost, "/api/domains", `{"domain":"Mail.Example.ORG","description":"Primary"}`, &adminP)
	require.NoError(t, h.CreateDomain(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"mail.example.org"}, domains.created)
	body := decode(t, rec)
	assert.Equal(t, "mail.example.org", body["domain"])
	assert.Equal(t, true, body["active"])
	assert.Equal(t, []string{queue.ActionDomainCreated}, audit.actions())
}

func TestDomains_CreateRejects(t *testing.T) {
	for _, name := range []string{"", "localhost", "-bad.com", "bad-.com", "a..b", "spaces in.com", "under_score.com"} {
		domains := &fakeDomains{}
		h := NewDomainHandler(domains, fakeAliases{}, nil)
		c, rec := newContext(http.MethodPost, "/api/domains", `{"domain":"`+name+`"}`, &adminP)
		require.NoError(t, h.CreateDomain(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Empty(t, domains.created, name)
	}

	h := NewDomainHandler(&fakeDomains{err: repository.ErrDomainExists}, fakeAliases{}, nil)
	c, rec := newContext(http.MethodPost, "/api/domains", `{"domain":"example.com"}`, &adminP)
	require.NoError(t, h.CreateDomain(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Domain already exists", decode(t, rec)["error"])
}

func TestDomains_Lists(t *testing.T) {
	h := NewDomainHandler(
		&fakeDomains{list: []model.Domain{{ID: 1, Domain: "example.com", UserCount: 2}}},
		fakeAliases{list: []model.Alias{{ID: 1, Source: "info@example.com", Destination: "alice@example.com", DomainName: "example.com"}}},
		nil,
	)

	c, rec := newContext(http.MethodGet, "/api/domains", "", &adminP)
	require.NoError(t, h.ListDomains(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_count":2`)

	c, rec = newContext(http.MethodGet, "/api/aliases", "", &adminP)
	require.NoError(t, h.ListAliases(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"domain_name":"example.com"`)

	h.Domains = &fakeDomains{err: errors.New("db down")}
	c, rec = newContext(http.MethodGet, "/api/domains", "", &adminP)
	require.NoError(t, h.ListDomains(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSettings(t *testing.T) {
	settings := &fakeSettings{byKey: map[string]model.Setting{
		"max_message_size": {Key: "max_message_size", Value: "26214400", Type: "integer"},
	}}
	audit := &recordingAuditor{}
	h := NewSettingHandler(settings, fakeStats{}, audit)

	c, rec := newContext(http.MethodGet, "/api/settings/max_message_size", "", &adminP)
	require.NoError(t, h.Get(withParam(c, "key", "max_message_size")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "26214400", decode(t, rec)["value"])

	c, rec = newContext(http.MethodGet, "/api/settings/nope", "", &adminP)
	require.NoError(t, h.Get(withParam(c, "key", "nope")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Setting not found", decode(t, rec)["error"])

	c, rec = newContext(http.MethodPut, "/api/settings/max_message_size", `{"value":"1024"}`, &adminP)
	require.NoError(t, h.Update(withParam(c, "key", "max_message_size")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1024", settings.byKey["max_message_size"].Value)
	assert.Equal(t, []string{queue.ActionSettingUpdated}, audit.actions())
	assert.Equal(t, "setting:max_message_size", audit.entries[0].Target)
	for _, v := range audit.entries[0].Details {
		assert.NotContains(t, v, "1024", "setting values stay out of the audit trail")
	}

	c, rec = newContext(http.MethodPut, "/api/settings/max_message_size", `{}`, &adminP)
	require.NoError(t, h.Update(withParam(c, "key", "max_message_size")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodPut, "/api/settings/nope", `{"value":"1"}`, &adminP)
	require.NoError(t, h.Update(withParam(c, "key", "nope")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodGet, "/api/settings", "", &adminP)
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats(t *testing.T) {
	h := NewSettingHandler(&fakeSettings{}, fakeStats{st: model.Stats{Users: 3, Domains: 2, Aliases: 1, Storage: 4096}}, nil)

	c, rec := newContext(http.MethodGet, "/api/stats", "", &adminP)
	require.NoError(t, h.Summary(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":3,"domains":2,"aliases":1,"storage":4096}`, rec.Body.String())
}

func TestSpam_ListAndRelease(t *testing.T) {
	q := &fakeQuarantine{msgs: map[int64]model.QuarantinedMessage{
		10: {ID: 10, UserID: 2, Sender: "spam@bad.test", Subject: "win"},
		11: {ID: 11, UserID: 1, Sender: "spam@bad.test", Subject: "prize"},
	}}
	audit := &recordingAuditor{}
	h := NewSpamHandler(q, audit)

	c, rec := newContext(http.MethodGet, "/api/spam/quarantine", "", &aliceP)
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":10`)
	assert.NotContains(t, rec.Body.String(), `"id":11`)

	// Another user's message reads as missing, even for an admin.
	c, rec = newContext(http.MethodPost, "/api/spam/quarantine/10/release", "", &adminP)
	require.NoError(t, h.Release(withParam(c, "id", "10")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/spam/quarantine/10/release", "", &aliceP)
	require.NoError(t, h.Release(withParam(c, "id", "10")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Message released from quarantine", decode(t, rec)["message"])
	assert.Equal(t, []int64{10}, q.released)
	assert.Equal(t, []string{queue.ActionMessageReleased}, audit.actions())

	c, rec = newContext(http.MethodPost, "/api/spam/quarantine/abc/release", "", &aliceP)
	require.NoError(t, h.Release(withParam(c, "id", "abc")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("refused") })

	c, rec := newContext(http.MethodGet, "/health", "", nil)
	require.NoError(t, NewHealthHandler(ok, nil).Check(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["redis"])

	c, rec = newContext(http.MethodGet, "/health", "", nil)
	require.NoError(t, NewHealthHandler(down, nil).Check(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "down", decode(t, rec)["database"])

	// Nothing listens on port 1.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c, rec = newContext(http.MethodGet, "/health", "", nil)
	require.NoError(t, NewHealthHandler(ok, rdb).Check(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "down", decode(t, rec)["redis"])
}
