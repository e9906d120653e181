package auth

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/nearbuy-api/internal/config"
	"github.com/rajivgeraev/nearbuy-api/internal/db"
	"github.com/rajivgeraev/nearbuy-api/internal/storage"
	"github.com/rajivgeraev/nearbuy-api/internal/utils"
)

// AuthService – структура для обработки авторизации
type AuthService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	users      *storage.UserStore
}

// NewAuthService – конструктор AuthService
func NewAuthService(cfg *config.Config, users *storage.UserStore) *AuthService {
	return &AuthService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		users:      users,
	}
}

// GetJWTService возвращает JWT сервис для middleware
func (s *AuthService) GetJWTService() *utils.JWTService {
	return s.jwtService
}

// TelegramAuthHandler проверяет initData, заводит пользователя и возвращает JWT
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Проверяем initData
	expiration := 24 * time.Hour
	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, expiration); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Невалидные данные Telegram"})
	}

	// Парсим данные
	data, err := initdata.Parse(payload.InitData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не удалось разобрать initData"})
	}

	// Создаем или обновляем пользователя
	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.UpsertTelegramUser(ctx, data.User.ID,
		data.User.Username, data.User.FirstName, data.User.LastName, data.User.PhotoURL)
	if err != nil {
		log.Printf("Ошибка создания пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Генерируем JWT
	jwtToken, err := s.jwtService.GenerateToken(user.ID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Не удалось создать токен"})
	}

	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user": fiber.Map{
			"id":         user.ID,
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"avatar_url": user.AvatarURL,
			"location":   user.Location,
			"verified":   user.Verified,
		},
	})
}
