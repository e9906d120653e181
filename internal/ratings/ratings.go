// Пакет ratings кэширует агрегированные рейтинги пользователей на время
// сессии. Кэш только пополняется и никогда не вытесняет записи; сбрасывается
// целиком при выходе пользователя из приложения.
package ratings

import (
	"context"
	"log"
	"sync"

	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

// FetchFunc загружает агрегированные рейтинги для набора username.
// Пользователь без отзывов может отсутствовать в результате.
type FetchFunc func(ctx context.Context, usernames []string) (map[string]models.RatingSummary, error)

// Cache представляет сессионный кэш рейтингов.
// Значение nil в записи означает «проверено, отзывов нет» — в отличие от
// отсутствия записи («ещё не проверяли»).
type Cache struct {
	fetch FetchFunc

	mu      sync.RWMutex
	entries map[string]*models.RatingSummary
}

// NewCache создает новый кэш рейтингов
func NewCache(fetch FetchFunc) *Cache {
	return &Cache{
		fetch:   fetch,
		entries: make(map[string]*models.RatingSummary),
	}
}

// GetBatch возвращает рейтинги для набора username. Уже закэшированные
// имена (включая закэшированное «отзывов нет») в запрос к бэкенду не
// попадают. Ошибка загрузки деградирует до отсутствующих записей и
// наружу не распространяется: обогащение ленты не должно ронять рендер.
func (c *Cache) GetBatch(ctx context.Context, usernames []string) map[string]*models.RatingSummary {
	missing := c.collectMissing(usernames)

	if len(missing) > 0 {
		fetched, err := c.fetch(ctx, missing)
		if err != nil {
			// Имена остаются «непроверенными» и попробуются в следующий раз
			log.Printf("Ошибка загрузки рейтингов: %v", err)
		} else {
			c.merge(missing, fetched)
		}
	}

	return c.snapshot(usernames)
}

// Size возвращает количество записей в кэше
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset очищает кэш, вызывается при выходе пользователя
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*models.RatingSummary)
}

// collectMissing возвращает имена, которых ещё нет в кэше
func (c *Cache) collectMissing(usernames []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	seen := make(map[string]bool, len(usernames))
	for _, name := range usernames {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := c.entries[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// merge дописывает результаты загрузки по одной записи. Кэш никогда не
// перезаписывается целиком: медленная партия, пришедшая поздно, не должна
// стереть записи более свежей быстрой партии.
func (c *Cache) merge(requested []string, fetched map[string]models.RatingSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range requested {
		if summary, ok := fetched[name]; ok {
			s := summary
			c.entries[name] = &s
		} else if _, exists := c.entries[name]; !exists {
			// Проверили — отзывов нет
			c.entries[name] = nil
		}
	}
}

// snapshot возвращает текущее состояние кэша для набора имён
func (c *Cache) snapshot(usernames []string) map[string]*models.RatingSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*models.RatingSummary, len(usernames))
	for _, name := range usernames {
		if entry, ok := c.entries[name]; ok {
			out[name] = entry
		}
	}
	return out
}
