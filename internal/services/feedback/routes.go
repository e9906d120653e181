package feedback

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/nearbuy-api/internal/middleware"
)

// SetupRoutes настраивает маршруты отзывов и рейтингов
func (s *FeedbackService) SetupRoutes(app *fiber.App) {
	// Публичный маршрут рейтингов продавцов
	app.Get("/api/feedback/ratings", s.GetRatings)

	// Защищенный маршрут создания отзыва
	api := app.Group("/api/feedback")
	api.Use(middleware.AuthMiddleware(s.jwtService))
	api.Post("/", s.CreateFeedback)
}
