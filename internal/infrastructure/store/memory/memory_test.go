package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerPepe/402fly/internal/infrastructure/store"
	"github.com/SerPepe/402fly/internal/infrastructure/store/memory"
)

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Set(ctx, "key", []byte("value"), time.Hour))

	got, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Set(ctx, "key", []byte("value"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := s.Get(ctx, "key")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Set(ctx, "key", []byte("value"), time.Hour))
	require.NoError(t, s.Delete(ctx, "key"))

	_, err := s.Get(ctx, "key")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "key"), store.ErrNotFound)
}

func TestStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Set(ctx, "stale", []byte("a"), 10*time.Millisecond))
	require.NoError(t, s.Set(ctx, "live", []byte("b"), time.Hour))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, s.Cleanup())

	_, err := s.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestJSON_RoundTrip(t *testing.T) {
	ctx := context.Background()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	typed := store.JSON[record]{Underlying: memory.New(), Prefix: "rec/"}

	require.NoError(t, typed.Set(ctx, "a", record{Name: "x", Count: 3}, time.Hour))

	got, err := typed.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, record{Name: "x", Count: 3}, got)

	_, err = typed.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
