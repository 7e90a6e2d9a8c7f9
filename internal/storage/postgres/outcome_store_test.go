package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

func TestOutcomeStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tokenID := createTestToken(t, ctx, pool, "MintOutcome")
	store := NewOutcomeStore(pool)

	err := store.Upsert(ctx, &domain.TokenOutcome{
		TokenID:        tokenID,
		InitialMcapUSD: ptr(50_000.0),
		PeakMcapUSD:    ptr(50_000.0),
		PeakMultiplier: ptr(1.0),
		TimeToPeakMs:   ptr(int64(0)),
		UpdatedAt:      1000,
	})
	require.NoError(t, err)

	got, err := store.GetByToken(ctx, tokenID)
	require.NoError(t, err)
	require.NotNil(t, got.InitialMcapUSD)
	assert.InDelta(t, 50_000, *got.InitialMcapUSD, 0.01)
	assert.False(t, got.IsRug)
}

func TestOutcomeStore_PeaksAreMonotonic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tokenID := createTestToken(t, ctx, pool, "MintPeak")
	store := NewOutcomeStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TokenOutcome{
		TokenID:        tokenID,
		InitialMcapUSD: ptr(50_000.0),
		PeakMcapUSD:    ptr(250_000.0),
		PeakMultiplier: ptr(5.0),
		TimeToPeakMs:   ptr(int64(120_000)),
		UpdatedAt:      1000,
	}))

	// A lower observation must not pull the peak down, must not replace
	// the initial mcap, and must not touch time-to-peak.
	require.NoError(t, store.Upsert(ctx, &domain.TokenOutcome{
		TokenID:        tokenID,
		InitialMcapUSD: ptr(99_000.0),
		PeakMcapUSD:    ptr(100_000.0),
		PeakMultiplier: ptr(2.0),
		TimeToPeakMs:   ptr(int64(300_000)),
		UpdatedAt:      2000,
	}))

	got, err := store.GetByToken(ctx, tokenID)
	require.NoError(t, err)
	assert.InDelta(t, 50_000, *got.InitialMcapUSD, 0.01)
	assert.InDelta(t, 250_000, *got.PeakMcapUSD, 0.01)
	assert.InDelta(t, 5.0, *got.PeakMultiplier, 0.0001)
	assert.Equal(t, int64(120_000), *got.TimeToPeakMs)
	assert.Equal(t, int64(2000), got.UpdatedAt)

	// A higher observation advances the peak and its timestamp.
	require.NoError(t, store.Upsert(ctx, &domain.TokenOutcome{
		TokenID:        tokenID,
		PeakMcapUSD:    ptr(400_000.0),
		PeakMultiplier: ptr(8.0),
		TimeToPeakMs:   ptr(int64(600_000)),
		UpdatedAt:      3000,
	}))

	got, err = store.GetByToken(ctx, tokenID)
	require.NoError(t, err)
	assert.InDelta(t, 400_000, *got.PeakMcapUSD, 0.01)
	assert.Equal(t, int64(600_000), *got.TimeToPeakMs)
}

func TestOutcomeStore_RugFlagIsSticky(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tokenID := createTestToken(t, ctx, pool, "MintRug")
	store := NewOutcomeStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TokenOutcome{TokenID: tokenID, IsRug: true, UpdatedAt: 1000}))
	require.NoError(t, store.Upsert(ctx, &domain.TokenOutcome{TokenID: tokenID, IsRug: false, UpdatedAt: 2000}))

	got, err := store.GetByToken(ctx, tokenID)
	require.NoError(t, err)
	assert.True(t, got.IsRug)
}

func TestOutcomeStore_GetByTokenNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutcomeStore(pool)
	_, err := store.GetByToken(context.Background(), 99999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
