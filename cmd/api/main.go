package main

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/nearbuy-api/internal/config"
	"github.com/rajivgeraev/nearbuy-api/internal/db"
	"github.com/rajivgeraev/nearbuy-api/internal/ratings"
	"github.com/rajivgeraev/nearbuy-api/internal/services/auth"
	"github.com/rajivgeraev/nearbuy-api/internal/services/feed"
	"github.com/rajivgeraev/nearbuy-api/internal/services/feedback"
	"github.com/rajivgeraev/nearbuy-api/internal/services/listing"
	"github.com/rajivgeraev/nearbuy-api/internal/services/upload"
	"github.com/rajivgeraev/nearbuy-api/internal/storage"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "NearBuy API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём хранилища
	userStore := storage.NewUserStore(db.Pool)
	listingStore := storage.NewListingStore(db.Pool)
	profileStore := storage.NewProfileStore(db.Pool)
	feedbackStore := storage.NewFeedbackStore(db.Pool)

	// Общий кэш рейтингов: лента, деталь объявления и API отзывов
	// смотрят в одни и те же агрегаты
	ratingCache := ratings.NewCache(feedbackStore.AggregateByUsernames)

	// Создаём сервисы
	authService := auth.NewAuthService(cfg, userStore)
	uploadService, err := upload.NewUploadService(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации Cloudinary: %v", err)
	}
	feedService := feed.NewFeedService(listingStore, profileStore, ratingCache)
	listingService := listing.NewListingService(cfg, listingStore, profileStore, ratingCache, uploadService)
	feedbackService := feedback.NewFeedbackService(cfg, feedbackStore, ratingCache)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	uploadService.SetupRoutes(app)
	feedService.SetupRoutes(app)
	listingService.SetupRoutes(app)
	feedbackService.SetupRoutes(app)

	// Запускаем сервер
	log.Println("✅ NearBuy API запущен на порту 8080")
	log.Fatal(app.Listen(":8080"))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
