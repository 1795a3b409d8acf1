package docstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/config"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
)

func setupMongoStore(t *testing.T, notifier Notifier) *MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo container test in short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := ConnectMongo(ctx, config.MongoConfig{URI: uri, ConnectTimeout: 10 * time.Second, MaxPoolSize: 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	store, err := NewMongoStore(client.Database("storefront_test").Collection("users"), notifier, Options{MaxConflictRetries: 50})
	require.NoError(t, err)
	return store
}

func TestMongoStoreLifecycle(t *testing.T) {
	hub := NewHub()
	store := setupMongoStore(t, hub)
	ctx := context.Background()

	_, err := store.Load(ctx, "ghost")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	doc, err := store.Ensure(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	sub, err := store.Subscribe(ctx, "user-1")
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, int64(1), nextSnapshot(t, sub).Version)

	updated, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, addOne("p1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	live := nextSnapshot(t, sub)
	assert.Equal(t, int64(2), live.Version)
	assert.Equal(t, 1, live.Cart.Quantity("p1"))

	again, err := store.Ensure(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Version)
}

func TestMongoStoreConcurrentIncrements(t *testing.T) {
	store := setupMongoStore(t, nil)
	ctx := context.Background()
	_, err := store.Ensure(ctx, "user-1")
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, addOne("p1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, writers, doc.Cart.Quantity("p1"))
}
