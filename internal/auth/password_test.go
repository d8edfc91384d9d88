package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(Config{BcryptCost: bcrypt.MinCost, HashWorkers: 1})
	require.NoError(t, err)
	return h
}

func TestHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)
	ctx := context.Background()

	for _, pw := range []string{"correct", "pässwörd-ünïcode", " spaced out "} {
		hash, err := h.Hash(ctx, pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, hash)

		ok, err := h.Compare(ctx, hash, pw)
		require.NoError(t, err)
		assert.True(t, ok, "same password must verify")

		ok, err = h.Compare(ctx, hash, pw+"x")
		require.NoError(t, err)
		assert.False(t, ok, "different password must not verify")
	}
}

func TestHasher_SaltsEachHash(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash(context.Background(), "same")
	require.NoError(t, err)
	b, err := h.Hash(context.Background(), "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_MalformedHashNeverMatches(t *testing.T) {
	h := newTestHasher(t)

	ok, err := h.Compare(context.Background(), "not-a-bcrypt-hash", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_UsesConfiguredCost(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash(context.Background(), "pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestHasher_CancelledContext(t *testing.T) {
	h := newTestHasher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "pw")
	assert.ErrorIs(t, err, context.Canceled)
}
