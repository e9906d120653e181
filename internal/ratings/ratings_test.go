package ratings

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

func TestGetBatchCachesResults(t *testing.T) {
	var calls int64

	cache := NewCache(func(ctx context.Context, usernames []string) (map[string]models.RatingSummary, error) {
		atomic.AddInt64(&calls, 1)
		return map[string]models.RatingSummary{
			"alice": {Rating: 4.5, ReviewCount: 12},
		}, nil
	})

	ctx := context.Background()

	got := cache.GetBatch(ctx, []string{"alice", "bob"})
	require.Contains(t, got, "alice")
	require.NotNil(t, got["alice"])
	assert.Equal(t, 4.5, got["alice"].Rating)
	assert.Equal(t, 12, got["alice"].ReviewCount)

	// bob проверен, отзывов нет — запись есть, значение nil
	require.Contains(t, got, "bob")
	assert.Nil(t, got["bob"])

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestCachedNamesIssueNoBackendCalls(t *testing.T) {
	var calls int64

	cache := NewCache(func(ctx context.Context, usernames []string) (map[string]models.RatingSummary, error) {
		atomic.AddInt64(&calls, 1)
		return map[string]models.RatingSummary{}, nil
	})

	ctx := context.Background()

	// Первый запрос резолвит оба имени в «отзывов нет»
	cache.GetBatch(ctx, []string{"alice", "bob"})
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))

	// Повторный запрос для закэшированных nil-записей — ноль обращений
	got := cache.GetBatch(ctx, []string{"alice", "bob"})
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	assert.Len(t, got, 2)
	assert.Nil(t, got["alice"])
	assert.Nil(t, got["bob"])
}

func TestOnlyMissingNamesAreFetched(t *testing.T) {
	var lastKeys []string

	cache := NewCache(func(ctx context.Context, usernames []string) (map[string]models.RatingSummary, error) {
		lastKeys = usernames
		out := make(map[string]models.RatingSummary, len(usernames))
		for _, u := range usernames {
			out[u] = models.RatingSummary{Rating: 5, ReviewCount: 1}
		}
		return out, nil
	})

	ctx := context.Background()

	cache.GetBatch(ctx, []string{"alice"})
	cache.GetBatch(ctx, []string{"alice", "bob", "carol"})

	assert.ElementsMatch(t, []string{"bob", "carol"}, lastKeys)
}

func TestFetchErrorDegradesSilently(t *testing.T) {
	var calls int64
	fail := true

	cache := NewCache(func(ctx context.Context, usernames []string) (map[string]models.RatingSummary, error) {
		atomic.AddInt64(&calls, 1)
		if fail {
			return nil, errors.New("бэкенд недоступен")
		}
		return map[string]models.RatingSummary{"alice": {Rating: 4, ReviewCount: 3}}, nil
	})

	ctx := context.Background()

	got := cache.GetBatch(ctx, []string{"alice"})
	assert.Empty(t, got, "после ошибки имя остаётся непроверенным")

	// После ошибки имя не считается проверенным: следующая попытка загружает
	fail = false
	got = cache.GetBatch(ctx, []string{"alice"})
	require.NotNil(t, got["alice"])
	assert.Equal(t, 4.0, got["alice"].Rating)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestMergeDoesNotEraseNewerEntries(t *testing.T) {
	cache := NewCache(nil)

	// Быстрая партия уже записала свежую запись
	cache.merge([]string{"alice"}, map[string]models.RatingSummary{
		"alice": {Rating: 4.8, ReviewCount: 20},
	})

	// Медленная партия пришла поздно и не нашла alice:
	// существующая запись не должна быть затёрта nil-ом
	cache.merge([]string{"alice", "bob"}, map[string]models.RatingSummary{})

	got := cache.snapshot([]string{"alice", "bob"})
	require.NotNil(t, got["alice"])
	assert.Equal(t, 4.8, got["alice"].Rating)
	assert.Nil(t, got["bob"])
}

func TestReset(t *testing.T) {
	cache := NewCache(func(ctx context.Context, usernames []string) (map[string]models.RatingSummary, error) {
		return map[string]models.RatingSummary{"alice": {Rating: 5, ReviewCount: 2}}, nil
	})

	cache.GetBatch(context.Background(), []string{"alice"})
	assert.Equal(t, 1, cache.Size())

	cache.Reset()
	assert.Equal(t, 0, cache.Size())
}
