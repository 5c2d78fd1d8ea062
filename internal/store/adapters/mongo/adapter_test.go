package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

// Integración: requiere TEST_MONGO_URI.
func TestBackend_Integration(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := store.OpenBackend(ctx, store.BackendConfig{
		Driver:       "mongo",
		DSN:          uri,
		Database:     "connkeeper_it",
		Table:        "users_" + uuid.NewString()[:8],
		EnsureSchema: true,
	})
	require.NoError(t, err)
	mb := b.(*Backend)
	defer func() {
		_ = mb.coll.Drop(context.Background())
		_ = b.Close()
	}()

	require.NoError(t, b.Insert(ctx, store.Document{
		"_id":     "u1",
		"profile": map[string]any{"username": "bob", "email": "bob@example.com"},
	}))
	require.ErrorIs(t, b.Insert(ctx, store.Document{"_id": "u1"}), repository.ErrAlreadyExists)

	require.NoError(t, b.Set(ctx, "u1", store.Document{"connections.reddit.accessToken": "at"}))
	doc, err := b.FindOne(ctx, "profile.username", "bob")
	require.NoError(t, err)
	v, ok := store.GetPath(doc, "connections.reddit.accessToken")
	require.True(t, ok)
	assert.Equal(t, "at", v)

	require.NoError(t, b.Unset(ctx, "u1", []string{"connections.reddit"}))
	doc, err = b.FindOne(ctx, "_id", "u1")
	require.NoError(t, err)
	_, ok = store.GetPath(doc, "connections.reddit")
	assert.False(t, ok)

	_, err = b.FindOne(ctx, "profile.email", "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
