// Пакет feed реализует сессию ленты объявлений: инкрементальную пагинацию,
// фильтр по расстоянию и подавление устаревших ответов. Сессия создается
// при открытии экрана ленты и умирает вместе с ним.
package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rajivgeraev/nearbuy-api/internal/catalog"
	"github.com/rajivgeraev/nearbuy-api/internal/geo"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

// Stage представляет стадию жизни ленты
type Stage string

const (
	StageLoading Stage = "loading"
	StageReady   Stage = "ready"
	StageEmpty   Stage = "empty"
	StageError   Stage = "error"
)

// DefaultPageSize количество объявлений на страницу
const DefaultPageSize = 20

// Session владеет состоянием одной сессии ленты: накопленным списком,
// курсором пагинации и фильтрами. Все методы потокобезопасны.
type Session struct {
	src   ListingSource
	limit int

	mu sync.Mutex

	// generation растет при каждом Refresh; ответ, захвативший старое
	// значение, применен не будет
	generation uint64
	inFlight   bool

	items   []models.Listing
	seen    map[uuid.UUID]bool
	cursor  string
	hasMore bool
	stage   Stage
	lastErr error

	search         string
	category       *catalog.Category
	origin         *geo.Point
	radiusKm       *float64
	sortByDistance bool
}

// NewSession создает новую сессию ленты
func NewSession(src ListingSource) *Session {
	return &Session{
		src:     src,
		limit:   DefaultPageSize,
		seen:    make(map[uuid.UUID]bool),
		hasMore: true,
		stage:   StageLoading,
	}
}

// LoadMore загружает следующую страницу ленты. Ничего не делает, если
// загрузка уже идет или страниц больше нет. Результат дописывается в конец
// списка с дедупликацией по идентификатору.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.inFlight = true
	gen := s.generation
	q := s.buildQuery(s.cursor)
	s.mu.Unlock()

	page, err := s.src.Page(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Пока запрос летел, случился Refresh: ответ устарел и отбрасывается
	// целиком, состояние сессии уже принадлежит новому поколению
	if s.generation != gen {
		return nil
	}

	s.inFlight = false

	if err != nil {
		s.stage = StageError
		s.lastErr = err
		return err
	}

	s.appendPage(page)
	return nil
}

// Refresh сбрасывает накопленный список и курсор и загружает первую
// страницу заново. Refresh, выданный при летящем LoadMore, побеждает:
// устаревший ответ фильтруется в момент применения, без отмены запроса.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.inFlight = true
	s.items = nil
	s.seen = make(map[uuid.UUID]bool)
	s.cursor = ""
	s.hasMore = true
	s.stage = StageLoading
	s.lastErr = nil
	q := s.buildQuery("")
	s.mu.Unlock()

	page, err := s.src.Page(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Этот Refresh сам был вытеснен более новым
	if s.generation != gen {
		return nil
	}

	s.inFlight = false

	if err != nil {
		s.stage = StageError
		s.lastErr = err
		return err
	}

	s.appendPage(page)
	return nil
}

// appendPage дописывает страницу в список, вызывается под мьютексом
func (s *Session) appendPage(page *Page) {
	for _, item := range page.Items {
		if s.seen[item.ID] {
			continue
		}
		s.seen[item.ID] = true
		s.items = append(s.items, item)
	}

	s.cursor = page.NextCursor
	s.hasMore = page.NextCursor != ""

	if len(s.items) == 0 {
		s.stage = StageEmpty
	} else {
		s.stage = StageReady
	}
}

// buildQuery собирает запрос страницы из текущих фильтров,
// вызывается под мьютексом
func (s *Session) buildQuery(cursor string) Query {
	sort := SortRecency
	// Сортировка по расстоянию требует известной геопозиции;
	// без нее лента остается отсортированной по свежести
	if s.sortByDistance && s.origin != nil {
		sort = SortDistance
	}

	return Query{
		Cursor:   cursor,
		Limit:    s.limit,
		Search:   s.search,
		Category: s.category,
		Origin:   s.origin,
		RadiusKm: s.radiusKm,
		Sort:     sort,
	}
}

// SetDistanceFilter задает радиус поиска в километрах. nil означает
// «любое расстояние». Любой выбор в фильтре расстояния включает режим
// сортировки по расстоянию.
func (s *Session) SetDistanceFilter(radiusKm *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radiusKm = radiusKm
	s.sortByDistance = true
}

// ToggleDistanceSort переключает режим сортировки по расстоянию.
// Если геопозиция недоступна, вызывающий обязан сперва запросить ее
// у устройства — до этого лента сортируется по свежести.
func (s *Session) ToggleDistanceSort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortByDistance = !s.sortByDistance
}

// SetLocation задает текущую геопозицию пользователя
func (s *Session) SetLocation(p geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origin = &p
}

// HasLocation сообщает, известна ли геопозиция. Отсутствие геопозиции —
// отдельное состояние, а не ошибка.
func (s *Session) HasLocation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.origin != nil
}

// SetSearch задает поисковую строку, применяется при следующем Refresh
func (s *Session) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = q
}

// SetCategory задает фильтр по категории, nil снимает фильтр
func (s *Session) SetCategory(c *catalog.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.category = c
}

// Items возвращает копию накопленного списка
func (s *Session) Items() []models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Listing, len(s.items))
	copy(out, s.items)
	return out
}

// Stage возвращает текущую стадию ленты
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Err возвращает последнюю ошибку загрузки
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HasMore сообщает, остались ли незагруженные страницы
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// DistanceSort сообщает, включена ли сортировка по расстоянию
func (s *Session) DistanceSort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortByDistance
}
