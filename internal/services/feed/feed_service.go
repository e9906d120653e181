package feed

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/nearbuy-api/internal/batch"
	"github.com/rajivgeraev/nearbuy-api/internal/catalog"
	"github.com/rajivgeraev/nearbuy-api/internal/db"
	"github.com/rajivgeraev/nearbuy-api/internal/feed"
	"github.com/rajivgeraev/nearbuy-api/internal/geo"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
	"github.com/rajivgeraev/nearbuy-api/internal/ratings"
	"github.com/rajivgeraev/nearbuy-api/internal/storage"
)

// sessionTTL определяет, сколько живет неактивная сессия ленты
const sessionTTL = 30 * time.Minute

// profileBatchWindow — окно слияния запросов профилей продавцов
const profileBatchWindow = 50 * time.Millisecond

// FeedService раздает ленту объявлений. Каждому открытому экрану ленты
// соответствует сессия на сервере: клиент передает ее идентификатор
// в каждом запросе, а сессия накапливает страницы и фильтры.
type FeedService struct {
	store    *storage.ListingStore
	profiles *batch.Batcher[string, models.SellerProfile]
	ratings  *ratings.Cache

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	session  *feed.Session
	lastSeen time.Time
}

// NewFeedService создает новый экземпляр FeedService
func NewFeedService(store *storage.ListingStore, profileStore *storage.ProfileStore, ratingCache *ratings.Cache) *FeedService {
	return &FeedService{
		store:    store,
		profiles: batch.New(profileBatchWindow, profileStore.ByUsernames),
		ratings:  ratingCache,
		sessions: make(map[string]*sessionEntry),
	}
}

// GetFeed возвращает очередной срез ленты. Параметры запроса:
// session — идентификатор сессии (пустой создает новую),
// action — more (следующая страница) или refresh (сброс и первая страница),
// search, category, lat, lng, radius — фильтры сессии.
// Ошибки обогащения профилями и рейтингами не роняют ответ: лента
// отдается без недостающих блоков.
func (s *FeedService) GetFeed(c fiber.Ctx) error {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	session := s.getSession(sessionID)

	session.SetSearch(c.Query("search"))

	if catStr := c.Query("category"); catStr != "" {
		cat, err := catalog.ParseCategory(catStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неизвестная категория"})
		}
		session.SetCategory(&cat)
	} else {
		session.SetCategory(nil)
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr == nil && lngErr == nil {
		point := geo.Point{Latitude: lat, Longitude: lng}
		if !point.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверные координаты"})
		}
		session.SetLocation(point)
	}

	// Любой выбор в фильтре расстояния включает сортировку по расстоянию;
	// значение any означает «любое расстояние» без ограничения радиуса
	if radius := c.Query("radius"); radius != "" {
		if radius == "any" {
			session.SetDistanceFilter(nil)
		} else {
			km, err := strconv.ParseFloat(radius, 64)
			if err != nil || km <= 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный радиус поиска"})
			}
			session.SetDistanceFilter(&km)
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var loadErr error
	if c.Query("action", "more") == "refresh" {
		loadErr = session.Refresh(ctx)
	} else {
		loadErr = session.LoadMore(ctx)
	}
	if loadErr != nil {
		log.Printf("Ошибка загрузки ленты: %v", loadErr)
	}

	items := session.Items()

	return c.JSON(fiber.Map{
		"session":  sessionID,
		"items":    items,
		"stage":    session.Stage(),
		"has_more": session.HasMore(),
		"sellers":  s.sellersFor(items),
		"ratings":  s.ratingsFor(items),
	})
}

// ResetFeedSession закрывает сессию ленты при уходе с экрана
func (s *FeedService) ResetFeedSession(c fiber.Ctx) error {
	sessionID := c.Query("session")

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	return c.JSON(fiber.Map{"success": true})
}

// getSession возвращает сессию по идентификатору, создавая новую при
// необходимости. Заодно выметает сессии, к которым давно не обращались.
func (s *FeedService) getSession(id string) *feed.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > sessionTTL {
			delete(s.sessions, key)
		}
	}

	entry, ok := s.sessions[id]
	if !ok {
		entry = &sessionEntry{session: feed.NewSession(s.store)}
		s.sessions[id] = entry
	}
	entry.lastSeen = now

	return entry.session
}

// sellersFor собирает профили продавцов для карточек ленты. Запросы
// одного окна сливаются в один обход базы, повторные имена внутри окна
// не порождают лишних обращений.
func (s *FeedService) sellersFor(items []models.Listing) map[string]models.SellerProfile {
	sellers := make(map[string]models.SellerProfile)

	handles := make(map[string]*batch.Handle[models.SellerProfile])
	for _, item := range items {
		if item.Username == "" {
			continue
		}
		if _, ok := handles[item.Username]; ok {
			continue
		}
		handles[item.Username] = s.profiles.Add(item.Username)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	for username, h := range handles {
		profile, ok, err := h.Wait(ctx)
		if err != nil {
			log.Printf("Ошибка загрузки профилей продавцов: %v", err)
			continue
		}
		if ok {
			sellers[username] = profile
		}
	}

	return sellers
}

// ratingsFor возвращает рейтинги продавцов из сессионного кэша.
// nil в значении означает «проверено, отзывов нет» — клиент в этом
// случае прячет блок рейтинга, а не показывает ноль.
func (s *FeedService) ratingsFor(items []models.Listing) map[string]*models.RatingSummary {
	usernames := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		if item.Username == "" || seen[item.Username] {
			continue
		}
		seen[item.Username] = true
		usernames = append(usernames, item.Username)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	return s.ratings.GetBatch(ctx, usernames)
}
