// AngelaMos | 2026
// engine_test.go

package loyalty

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() (*Engine, *mockRepository) {
	repo := newMockRepository()
	return NewEngine(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		points int
		want   Tier
	}{
		{0, TierBronze},
		{40, TierBronze},
		{99, TierBronze},
		{100, TierSilver},
		{249, TierSilver},
		{250, TierGold},
		{499, TierGold},
		{500, TierPlatinum},
		{10_000, TierPlatinum},
		{-5, TierBronze},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.points), "points=%d", tt.points)
	}
}

func TestTierFor_Monotonic(t *testing.T) {
	prev := TierFor(0).Rank()
	for p := 1; p <= 1000; p++ {
		rank := TierFor(p).Rank()
		require.GreaterOrEqual(t, rank, prev, "points=%d", p)
		prev = rank
	}
}

func TestCredit_AwardsPointsAndNotifies(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedAccount("bob-id", "bob@x.com", 0)
	repo.seedReferral("tok-1", "bob@x.com", "carol@x.com")

	outcome, err := engine.Credit(context.Background(), "tok-1", "carol@x.com")
	require.NoError(t, err)
	require.NotNil(t, outcome)

	l, notes, remaining := repo.snapshot("bob@x.com", "bob-id")
	assert.Equal(t, 40, l.LoyaltyPoints)
	assert.Equal(t, 1, l.ReferredCount)
	assert.Equal(t, TierFor(40), l.Tier)
	assert.Len(t, notes, 1)
	assert.Contains(t, notes[0], "40 points")
	assert.Zero(t, remaining)
}

func TestCredit_TierChangeAddsNotification(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedAccount("bob-id", "bob@x.com", 80)
	repo.seedReferral("tok-1", "bob@x.com", "carol@x.com")

	outcome, err := engine.Credit(context.Background(), "tok-1", "carol@x.com")
	require.NoError(t, err)

	assert.Equal(t, TierBronze, outcome.PreviousTier)
	assert.Equal(t, TierSilver, outcome.Tier)

	l, notes, _ := repo.snapshot("bob@x.com", "bob-id")
	assert.Equal(t, TierSilver, l.Tier)
	require.Len(t, notes, 2)
	assert.Contains(t, notes[0], "Silver")
}

func TestCredit_SecondUseIsNoop(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedAccount("bob-id", "bob@x.com", 0)
	repo.seedReferral("tok-1", "bob@x.com", "carol@x.com")

	_, err := engine.Credit(context.Background(), "tok-1", "carol@x.com")
	require.NoError(t, err)

	outcome, err := engine.Credit(context.Background(), "tok-1", "dave@x.com")
	require.NoError(t, err)
	assert.Nil(t, outcome)

	l, _, _ := repo.snapshot("bob@x.com", "bob-id")
	assert.Equal(t, 40, l.LoyaltyPoints)
}

func TestCredit_MissingPiecesAreNoops(t *testing.T) {
	t.Run("no referral", func(t *testing.T) {
		engine, _ := newTestEngine()
		outcome, err := engine.Credit(context.Background(), "nope", "c@x.com")
		assert.NoError(t, err)
		assert.Nil(t, outcome)
	})

	t.Run("no referrer account", func(t *testing.T) {
		engine, repo := newTestEngine()
		repo.seedReferral("tok", "ghost@x.com", "c@x.com")

		outcome, err := engine.Credit(context.Background(), "tok", "c@x.com")
		assert.NoError(t, err)
		assert.Nil(t, outcome)

		exists, err := engine.ReferralExists(context.Background(), "tok")
		require.NoError(t, err)
		assert.False(t, exists, "referral must be consumed")
	})

	t.Run("no loyalty record", func(t *testing.T) {
		engine, repo := newTestEngine()
		repo.accounts["bob@x.com"] = "bob-id"
		repo.seedReferral("tok", "bob@x.com", "c@x.com")

		outcome, err := engine.Credit(context.Background(), "tok", "c@x.com")
		assert.NoError(t, err)
		assert.Nil(t, outcome)

		exists, err := engine.ReferralExists(context.Background(), "tok")
		require.NoError(t, err)
		assert.False(t, exists, "referral must be consumed")
	})
}

func TestProcessReferral_ConsumesUncreditableReferral(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedReferral("tok", "ghost@x.com", "c@x.com")

	engine.ProcessReferral(context.Background(), "tok", "c@x.com")

	exists, err := engine.ReferralExists(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, remaining := repo.snapshot("ghost@x.com", "")
	assert.Zero(t, remaining)
}

func TestCredit_FailureRollsBackEverything(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedAccount("bob-id", "bob@x.com", 90)
	repo.seedReferral("tok-1", "bob@x.com", "carol@x.com")
	repo.failNotify = true

	_, err := engine.Credit(context.Background(), "tok-1", "carol@x.com")
	require.ErrorIs(t, err, errInjected)

	l, notes, remaining := repo.snapshot("bob@x.com", "bob-id")
	assert.Equal(t, 90, l.LoyaltyPoints)
	assert.Equal(t, TierBronze, l.Tier)
	assert.Empty(t, notes)
	assert.Equal(t, 1, remaining)
}

func TestProcessReferral_SwallowsErrors(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedAccount("bob-id", "bob@x.com", 0)
	repo.seedReferral("tok-1", "bob@x.com", "carol@x.com")
	repo.failNotify = true

	assert.NotPanics(t, func() {
		engine.ProcessReferral(context.Background(), "tok-1", "carol@x.com")
	})
}

func TestCredit_ConcurrentConsumersCreditOnce(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedAccount("bob-id", "bob@x.com", 0)
	repo.seedReferral("tok-1", "bob@x.com", "carol@x.com")

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			engine.ProcessReferral(context.Background(), "tok-1", "carol@x.com")
		}()
	}
	wg.Wait()

	l, notes, _ := repo.snapshot("bob@x.com", "bob-id")
	assert.Equal(t, 40, l.LoyaltyPoints)
	assert.Equal(t, 1, l.ReferredCount)
	assert.Len(t, notes, 1)
}

func TestCreateReferral(t *testing.T) {
	engine, _ := newTestEngine()

	ref, err := engine.CreateReferral(context.Background(), "Bob@X.com", " Carol@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", ref.ReferrerEmail)
	assert.Equal(t, "carol@x.com", ref.ReferredEmail)
	assert.NotEmpty(t, ref.Token)

	exists, err := engine.ReferralExists(context.Background(), ref.Token)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = engine.ReferralExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = engine.CreateReferral(context.Background(), "bob@x.com", "BOB@x.com")
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestEnroll_KeepsExistingRecord(t *testing.T) {
	engine, repo := newTestEngine()
	repo.seedAccount("bob-id", "bob@x.com", 120)

	require.NoError(t, engine.Enroll(context.Background(), "BOB@x.com"))
	require.NoError(t, engine.Enroll(context.Background(), "new@x.com"))

	l, err := engine.GetLoyalty(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, 120, l.LoyaltyPoints)

	l, err = engine.GetLoyalty(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, TierBronze, l.Tier)
}
