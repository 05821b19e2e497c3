package shares

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipvault/snipvault/internal/server/models"
)

func activeLink(maxViews *int) *models.ShareLink {
	return &models.ShareLink{
		ID:          "s-1",
		TokenHash:   "th",
		ResourceRef: "snippet:1",
		ShareType:   models.ShareTypeView,
		Limits:      models.ShareLimits{MaxViews: maxViews},
		State:       models.ShareStateActive,
		CreatedBy:   "u-1",
		CreatedAt:   time.Now(),
	}
}

func TestMemoryRepository_ConsumeView_ConcurrencyBound(t *testing.T) {
	const maxViews = 5
	const callers = 64

	repo := NewMemoryRepository()
	n := maxViews
	require.NoError(t, repo.Create(context.Background(), activeLink(&n)))

	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, ok, err := repo.ConsumeView(context.Background(), "s-1", time.Now(), "ip", "ua")
			if err == nil && ok {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(maxViews), granted)

	link, err := repo.GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, maxViews, link.Limits.CurrentViews)
	assert.Equal(t, models.ShareStateExhausted, link.State)
}

func TestMemoryRepository_CloneIsolation(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), activeLink(nil)))

	got, err := repo.GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	got.State = models.ShareStateRevoked // mutate the copy

	again, err := repo.GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.ShareStateActive, again.State)
}

func TestMemoryRepository_SweepInvalid(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	expired := activeLink(nil)
	expired.ID, expired.TokenHash = "s-exp", "th-exp"
	expired.Limits.ExpiresAt = &past
	require.NoError(t, repo.Create(ctx, expired))

	zero := 0
	spent := activeLink(&zero)
	spent.ID, spent.TokenHash = "s-spent", "th-spent"
	require.NoError(t, repo.Create(ctx, spent))

	nExpired, nExhausted, err := repo.SweepInvalid(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), nExpired)
	assert.Equal(t, int64(1), nExhausted)

	// Idempotent: a second sweep changes nothing.
	nExpired, nExhausted, err = repo.SweepInvalid(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, nExpired)
	assert.Zero(t, nExhausted)
}
