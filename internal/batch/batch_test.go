package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescesKeysWithinWindow(t *testing.T) {
	var calls int64

	b := New(20*time.Millisecond, func(ctx context.Context, keys []string) (map[string]int, error) {
		atomic.AddInt64(&calls, 1)
		out := make(map[string]int, len(keys))
		for _, k := range keys {
			out[k] = len(k)
		}
		return out, nil
	})

	h1 := b.Add("alice")
	h2 := b.Add("bob")
	h3 := b.Add("alice") // тот же ключ в том же окне

	assert.Same(t, h1, h3)

	ctx := context.Background()
	v1, ok1, err1 := h1.Wait(ctx)
	v2, ok2, err2 := h2.Wait(ctx)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, 5, v1)
	assert.Equal(t, 3, v2)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestConcurrentSameKeySharesOneFetch(t *testing.T) {
	var calls int64

	b := New(20*time.Millisecond, func(ctx context.Context, keys []string) (map[string]string, error) {
		atomic.AddInt64(&calls, 1)
		out := make(map[string]string, len(keys))
		for _, k := range keys {
			out[k] = "v:" + k
		}
		return out, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok, err := b.Add("seller").Wait(context.Background())
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v:seller", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestMissingKeyResolvesAbsentWithoutFailingSiblings(t *testing.T) {
	b := New(10*time.Millisecond, func(ctx context.Context, keys []string) (map[string]int, error) {
		// «ghost» намеренно отсутствует в результате
		return map[string]int{"alice": 1}, nil
	})

	hAlice := b.Add("alice")
	hGhost := b.Add("ghost")

	ctx := context.Background()

	v, ok, err := hAlice.Wait(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok, err = hGhost.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchErrorFailsOnlyItsWindow(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	b := New(10*time.Millisecond, func(ctx context.Context, keys []string) (map[string]int, error) {
		if fail.Load() {
			return nil, errors.New("транспорт недоступен")
		}
		return map[string]int{"bob": 2}, nil
	})

	_, _, err := b.Add("alice").Wait(context.Background())
	require.Error(t, err)

	// Следующее окно выполняется независимо от упавшего
	fail.Store(false)
	v, ok, err := b.Add("bob").Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestWaitRespectsContext(t *testing.T) {
	b := New(time.Hour, func(ctx context.Context, keys []string) (map[string]int, error) {
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := b.Add("alice").Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
