// Пакет batch склеивает близкие по времени запросы одного вида
// (например, «загрузить профиль продавца X») в один обращение к бэкенду.
// Кэширования между окнами нет: слой живёт только в рамках запроса.
package batch

import (
	"context"
	"sync"
	"time"
)

// BatchFunc выполняет один групповой запрос для набора ключей.
// Ключ, отсутствующий в результате, считается разрешившимся в «нет данных»
// и не является ошибкой для остальных ключей.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Batcher собирает ключи, добавленные в пределах одного окна,
// и выполняет для них один групповой запрос
type Batcher[K comparable, V any] struct {
	window time.Duration
	fn     BatchFunc[K, V]

	mu      sync.Mutex
	pending map[K]*Handle[V]
	timer   *time.Timer
}

// Handle представляет отложенный результат для одного ключа
type Handle[V any] struct {
	done  chan struct{}
	value V
	found bool
	err   error
}

// Wait блокируется до разрешения результата или отмены контекста.
// Возвращает значение, признак наличия данных и ошибку группового запроса.
func (h *Handle[V]) Wait(ctx context.Context) (V, bool, error) {
	select {
	case <-h.done:
		return h.value, h.found, h.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

// New создает новый Batcher с заданным окном накопления
func New[K comparable, V any](window time.Duration, fn BatchFunc[K, V]) *Batcher[K, V] {
	return &Batcher[K, V]{
		window:  window,
		fn:      fn,
		pending: make(map[K]*Handle[V]),
	}
}

// Add ставит ключ в текущее окно и возвращает handle результата.
// Повторное добавление того же ключа в пределах окна возвращает
// общий handle: группового запроса по ключу будет ровно один.
func (b *Batcher[K, V]) Add(key K) *Handle[V] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.pending[key]; ok {
		return h
	}

	h := &Handle[V]{done: make(chan struct{})}
	b.pending[key] = h

	// Первый ключ в окне взводит таймер сброса
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.flush)
	}

	return h
}

// flush выполняет групповой запрос для накопленного окна
func (b *Batcher[K, V]) flush() {
	b.mu.Lock()
	batch := b.pending
	b.pending = make(map[K]*Handle[V])
	b.timer = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	keys := make([]K, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := b.fn(ctx, keys)

	for k, h := range batch {
		if err != nil {
			// Ошибка транспорта валит только ключи этого окна
			h.err = err
		} else if v, ok := results[k]; ok {
			h.value = v
			h.found = true
		}
		close(h.done)
	}
}
