package stability

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing(t *testing.T) {
	r := newRing(3)
	assert.Empty(t, r.Labels())

	r.Push("A")
	r.Push("B")
	assert.Equal(t, []string{"A", "B"}, r.Labels())

	r.Push("C")
	r.Push("D")
	assert.Equal(t, []string{"B", "C", "D"}, r.Labels())
	assert.Equal(t, 3, r.Len())

	r.Reset()
	assert.Equal(t, 0, r.Len())
	r.Push("E")
	assert.Equal(t, []string{"E"}, r.Labels())
}

func TestMemoryStore_AppendCapacity(t *testing.T) {
	s := NewMemoryStore(10, MemoryOptions{})
	ctx := context.Background()

	var window []string
	for i := 0; i < 15; i++ {
		var err error
		window, err = s.Append(ctx, "s", string(rune('A'+i)))
		require.NoError(t, err)
	}

	require.Len(t, window, 10)
	assert.Equal(t, "F", window[0])
	assert.Equal(t, "O", window[9])
}

func TestMemoryStore_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10, MemoryOptions{TTL: time.Minute})
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = s.Append(ctx, "old", "A")
	now = now.Add(45 * time.Second)
	_, _ = s.Append(ctx, "fresh", "B")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.Nil(t, s.Window("old"))
	assert.Equal(t, []string{"B"}, s.Window("fresh"))
}

func TestMemoryStore_MaxSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10, MemoryOptions{MaxSessions: 2})
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = s.Append(ctx, "a", "A")
	now = now.Add(time.Second)
	_, _ = s.Append(ctx, "b", "B")
	now = now.Add(time.Second)
	_, _ = s.Append(ctx, "a", "A") // a is now most recent
	now = now.Add(time.Second)
	_, _ = s.Append(ctx, "c", "C")

	assert.Equal(t, 2, s.Len())
	assert.Nil(t, s.Window("b"))
	assert.Equal(t, []string{"A", "A"}, s.Window("a"))
}

func TestMemoryStore_MaxSessionsEmptyID(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10, MemoryOptions{MaxSessions: 2})
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for _, id := range []string{"", "b", "c"} {
		_, _ = s.Append(ctx, id, "A")
		now = now.Add(time.Second)
	}

	assert.Equal(t, 2, s.Len())
	assert.Nil(t, s.Window(""), "the empty id was least recently seen")
	assert.Equal(t, []string{"A"}, s.Window("b"))
	assert.Equal(t, []string{"A"}, s.Window("c"))
}

func TestMemoryStore_RunStopsOnCancel(t *testing.T) {
	s := NewMemoryStore(10, MemoryOptions{TTL: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SIGNBRIDGE_TEST_REDIS")
	if addr == "" {
		t.Skip("SIGNBRIDGE_TEST_REDIS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, 10, time.Minute).WithPrefix("signbridge:test:" + t.Name() + ":")
	require.NoError(t, s.Ping(ctx))
	defer s.Clear(ctx, "s")

	var window []string
	for i := 0; i < 12; i++ {
		var err error
		window, err = s.Append(ctx, "s", string(rune('A'+i)))
		require.NoError(t, err)
	}
	require.Len(t, window, 10)
	assert.Equal(t, "C", window[0])

	require.NoError(t, s.Clear(ctx, "s"))
	window, err := s.Append(ctx, "s", "Y")
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, window)

	stab := New(DefaultConfig(), s)
	require.NoError(t, stab.Clear(ctx, "s"))
	var d Decision
	for i := 0; i < 10; i++ {
		d, err = stab.Evaluate(ctx, "s", "B", 0.9)
		require.NoError(t, err)
	}
	assert.True(t, d.Stable)
}
