package feedback

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/nearbuy-api/internal/config"
	"github.com/rajivgeraev/nearbuy-api/internal/db"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
	"github.com/rajivgeraev/nearbuy-api/internal/ratings"
	"github.com/rajivgeraev/nearbuy-api/internal/storage"
	"github.com/rajivgeraev/nearbuy-api/internal/utils"
)

// FeedbackService представляет сервис отзывов и рейтингов продавцов
type FeedbackService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	store      *storage.FeedbackStore
	ratings    *ratings.Cache
}

// NewFeedbackService создает новый экземпляр FeedbackService
func NewFeedbackService(cfg *config.Config, store *storage.FeedbackStore, ratingCache *ratings.Cache) *FeedbackService {
	return &FeedbackService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		store:      store,
		ratings:    ratingCache,
	}
}

// CreateFeedback сохраняет отзыв о продавце. После сохранения кэш
// рейтингов сбрасывается, чтобы следующий запрос увидел новое среднее.
func (s *FeedbackService) CreateFeedback(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestBody struct {
		ToUsername string `json:"to_username"`
		Rating     int    `json:"rating"`
		Comment    string `json:"comment"`
	}

	if err := c.Bind().Body(&requestBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат запроса"})
	}

	if requestBody.ToUsername == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не указан получатель отзыва"})
	}
	if requestBody.Rating < 1 || requestBody.Rating > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Оценка должна быть от 1 до 5"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	feedback := &models.Feedback{
		ID:         uuid.New(),
		FromUserID: userUUID,
		ToUsername: requestBody.ToUsername,
		Rating:     requestBody.Rating,
		Comment:    requestBody.Comment,
	}

	if err := s.store.Insert(ctx, feedback); err != nil {
		log.Printf("Ошибка сохранения отзыва: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения отзыва"})
	}

	s.ratings.Reset()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Отзыв сохранен",
	})
}

// GetRatings возвращает агрегированные рейтинги для списка username.
// Имена, у которых отзывов нет, приходят со значением null: клиент
// отличает «отзывов нет» от «рейтинг еще не проверяли».
func (s *FeedbackService) GetRatings(c fiber.Ctx) error {
	raw := c.Query("usernames")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не указаны usernames"})
	}

	var usernames []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			usernames = append(usernames, name)
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	return c.JSON(fiber.Map{
		"ratings": s.ratings.GetBatch(ctx, usernames),
	})
}
