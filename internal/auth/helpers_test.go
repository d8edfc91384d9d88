package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-signing-secret")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func testConfig(clock *fakeClock) Config {
	return Config{Secret: testSecret, BcryptCost: bcrypt.MinCost, HashWorkers: 2, Now: clock.Now}
}

// fakeStore is an in-memory CredentialStore.
type fakeStore struct {
	mu        sync.Mutex
	byID      map[int64]Credential
	findErr   error
	touchErr  error
	updateErr error
	touched   map[int64]time.Time
	updates   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[int64]Credential{}, touched: map[int64]time.Time{}}
}

func (s *fakeStore) add(t *testing.T, h *Hasher, c Credential, password string) {
	t.Helper()
	hash, err := h.Hash(context.Background(), password)
	require.NoError(t, err)
	c.PasswordHash = hash
	s.mu.Lock()
	s.byID[c.UserID] = c
	s.mu.Unlock()
}

func (s *fakeStore) hashOf(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id].PasswordHash
}

func (s *fakeStore) FindCredentialByEmail(_ context.Context, email string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return Credential{}, s.findErr
	}
	for _, c := range s.byID {
		if c.Email == email {
			return c, nil
		}
	}
	return Credential{}, ErrCredentialNotFound
}

func (s *fakeStore) FindCredentialByID(_ context.Context, id int64) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return Credential{}, s.findErr
	}
	c, ok := s.byID[id]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return c, nil
}

func (s *fakeStore) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touchErr != nil {
		return s.touchErr
	}
	s.touched[id] = at
	return nil
}

func (s *fakeStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	c, ok := s.byID[id]
	if !ok {
		return errors.New("no such user")
	}
	c.PasswordHash = hash
	s.byID[id] = c
	s.updates++
	return nil
}

type fixture struct {
	clock    *fakeClock
	store    *fakeStore
	verifier *Verifier
	gate     *Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	cfg := testConfig(clock)
	store := newFakeStore()

	v, err := NewVerifier(cfg, store, nil, nil)
	require.NoError(t, err)
	g, err := NewGate(cfg)
	require.NoError(t, err)

	store.add(t, v.Hasher(), Credential{UserID: 1, Email: "admin@example.com", Name: "Admin", Active: true, Role: RoleAdmin}, "correct")
	store.add(t, v.Hasher(), Credential{UserID: 2, Email: "alice@example.com", Name: "Alice", Active: true, Role: RoleStandard}, "alice-secret")
	store.add(t, v.Hasher(), Credential{UserID: 3, Email: "bob@example.com", Name: "Bob", Active: false, Role: RoleStandard}, "bob-secret")

	return &fixture{clock: clock, store: store, verifier: v, gate: g}
}
