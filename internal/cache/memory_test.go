package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("ck:")

	_, err := c.Get(ctx, "missing")
	require.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "hint:alice", "secondary", 0))
	v, err := c.Get(ctx, "hint:alice")
	require.NoError(t, err)
	require.Equal(t, "secondary", v)

	require.NoError(t, c.Delete(ctx, "hint:alice"))
	_, err = c.Get(ctx, "hint:alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_TTLExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestMemory_PrefixIsolates(t *testing.T) {
	ctx := context.Background()
	a := NewMemory("a:")
	require.NoError(t, a.Set(ctx, "k", "1", 0))
	require.NoError(t, a.Ping(ctx))

	// Instancias distintas no comparten estado; el prefijo sólo afecta la key física.
	_, err := NewMemory("b:").Get(ctx, "k")
	require.True(t, IsNotFound(err))
	require.NoError(t, a.Close())
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))

	_, err = New(context.Background(), Config{Driver: "memcached"})
	require.Error(t, err)
}

func TestNewRedis_UnreachableFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := New(ctx, Config{Driver: "redis", Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
