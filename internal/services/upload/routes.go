package upload

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/nearbuy-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для загрузки изображений
func (s *UploadService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/upload")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для загрузки изображения через сервер
	api.Post("/image", s.UploadImage)

	// Маршрут для получения параметров прямой загрузки с клиента
	api.Get("/params", s.GenerateUploadParams)
}
