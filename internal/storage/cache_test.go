package storage_test

import (
	"context"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/dssltest"
	"github.com/dssldrf/dusseldorf/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Domains(t *testing.T) {
	t.Parallel()

	numCalls := 0
	store := dssltest.NewStore()
	store.OnDomains = func(_ context.Context) (domains []string, err error) {
		numCalls++

		return []string{dssltest.Domain}, nil
	}

	c := storage.NewCache(&storage.CacheConfig{
		Logger: slogutil.NewDiscardLogger(),
		Store:  store,
	})

	ctx := context.Background()
	for range 3 {
		domains, err := c.Domains(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{dssltest.Domain}, domains)
	}

	assert.Equal(t, 1, numCalls)
}

func TestCache_ZoneForFQDN_negative(t *testing.T) {
	t.Parallel()

	numCalls := 0
	store := dssltest.NewStore()
	store.OnZoneForFQDN = func(_ context.Context, _ string) (zone string, err error) {
		numCalls++

		return "", nil
	}

	c := storage.NewCache(&storage.CacheConfig{
		Logger: slogutil.NewDiscardLogger(),
		Store:  store,
	})

	ctx := context.Background()
	for range 2 {
		zone, err := c.ZoneForFQDN(ctx, "unknown.d.test")
		require.NoError(t, err)

		assert.Empty(t, zone)
	}

	assert.Equal(t, 1, numCalls, "negative results must be cached")
}

func TestCache_guarantee(t *testing.T) {
	t.Parallel()

	const testError errors.Error = "store is down"

	t.Run("memoised_ping", func(t *testing.T) {
		t.Parallel()

		numPings := 0
		store := dssltest.NewStore()
		store.OnPing = func(_ context.Context) (err error) {
			numPings++

			return nil
		}

		c := storage.NewCache(&storage.CacheConfig{
			Logger: slogutil.NewDiscardLogger(),
			Store:  store,
		})

		ctx := context.Background()

		// RuleResults is uncached, so every call goes through the
		// connectivity guarantee.
		for range 3 {
			_, err := c.RuleResults(ctx, "rule-id")
			require.NoError(t, err)
		}

		assert.Equal(t, 1, numPings)
	})

	t.Run("reconnect", func(t *testing.T) {
		t.Parallel()

		numReconnects := 0
		store := dssltest.NewStore()
		store.OnPing = func(_ context.Context) (err error) { return testError }
		store.OnReconnect = func(_ context.Context) (err error) {
			numReconnects++

			return nil
		}

		c := storage.NewCache(&storage.CacheConfig{
			Logger: slogutil.NewDiscardLogger(),
			Store:  store,
		})

		_, err := c.RuleResults(context.Background(), "rule-id")
		require.NoError(t, err)

		assert.Equal(t, 1, numReconnects)
	})

	t.Run("unavailable", func(t *testing.T) {
		t.Parallel()

		store := dssltest.NewStore()
		store.OnPing = func(_ context.Context) (err error) { return testError }
		store.OnReconnect = func(_ context.Context) (err error) { return testError }

		c := storage.NewCache(&storage.CacheConfig{
			Logger: slogutil.NewDiscardLogger(),
			Store:  store,
		})

		_, err := c.RuleResults(context.Background(), "rule-id")
		require.Error(t, err)

		var unavailErr *dssldrf.StoreUnavailableError
		assert.ErrorAs(t, err, &unavailErr)
		assert.ErrorIs(t, err, testError)
	})
}
