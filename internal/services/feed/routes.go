package feed

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты ленты объявлений
func (s *FeedService) SetupRoutes(app *fiber.App) {
	// Лента публичная: просмотр не требует авторизации
	app.Get("/api/feed", s.GetFeed)

	// Закрытие сессии ленты при уходе с экрана
	app.Delete("/api/feed/session", s.ResetFeedSession)
}
