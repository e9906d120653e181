package listing

import (
	"errors"
	"io"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/nearbuy-api/internal/catalog"
	"github.com/rajivgeraev/nearbuy-api/internal/config"
	"github.com/rajivgeraev/nearbuy-api/internal/db"
	"github.com/rajivgeraev/nearbuy-api/internal/geo"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
	"github.com/rajivgeraev/nearbuy-api/internal/ratings"
	"github.com/rajivgeraev/nearbuy-api/internal/storage"
	"github.com/rajivgeraev/nearbuy-api/internal/utils"
	"github.com/rajivgeraev/nearbuy-api/internal/wizard"
)

// ListingService представляет сервис для работы с объявлениями и запросами
type ListingService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	store      *storage.ListingStore
	profiles   *storage.ProfileStore
	ratings    *ratings.Cache
	uploader   wizard.Uploader
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(cfg *config.Config, store *storage.ListingStore, profiles *storage.ProfileStore,
	ratingCache *ratings.Cache, uploader wizard.Uploader) *ListingService {
	return &ListingService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		store:      store,
		profiles:   profiles,
		ratings:    ratingCache,
		uploader:   uploader,
	}
}

// CreateListing обрабатывает создание объявления или запроса.
// Запрос приходит multipart-формой с полями мастера и, опционально,
// одним изображением. Поля прогоняются через мастер создания: порядок
// валидации и типоспецифичное отображение полей цены живут там.
func (s *ListingService) CreateListing(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	w := wizard.New(s.uploader, s.store)

	itemType := models.ItemType(c.FormValue("item_type"))
	if itemType == "" {
		itemType = models.ItemTypeListing
	}
	if err := w.SelectType(itemType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неизвестный тип записи"})
	}

	if catStr := c.FormValue("category"); catStr != "" {
		cat, err := catalog.ParseCategory(catStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неизвестная категория", "field": "category"})
		}
		if err := w.SelectCategory(cat); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	w.SetTitle(c.FormValue("title"))
	w.SetDescription(c.FormValue("description"))
	w.SetPrice(c.FormValue("price"))
	if pt := c.FormValue("price_type"); pt != "" {
		w.SetPriceType(models.PriceType(pt))
	}
	w.SetBudget(c.FormValue("budget_min"), c.FormValue("budget_max"))

	if unit := c.FormValue("price_unit"); unit != "" {
		if err := w.SetPriceUnit(catalog.PriceUnit(unit)); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимая единица цены", "field": "price_unit"})
		}
	}

	lat, latErr := strconv.ParseFloat(c.FormValue("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if latErr == nil && lngErr == nil {
		point := geo.Point{Latitude: lat, Longitude: lng}
		if !point.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверные координаты", "field": "location"})
		}
		w.SetLocation(point, c.FormValue("location"))
	}

	w.SetDelivery(c.FormValue("pickup") == "true", c.FormValue("delivery") == "true")

	if days, err := strconv.Atoi(c.FormValue("duration_days")); err == nil {
		w.SetDuration(days)
	}

	// Одно изображение, новое всегда заменяет прежнее
	if fileHeader, err := c.FormFile("image"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не удалось прочитать изображение"})
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не удалось прочитать изображение"})
		}
		w.AttachImage(data, fileHeader.Filename)
	}

	// Категория не выбрана: сообщаем об ошибках в порядке валидации формы
	if w.Step() != wizard.StepFormEntry {
		if c.FormValue("title") == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название обязательно", "field": "title"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Выберите категорию", "field": "category"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	record, err := w.Submit(ctx, userUUID)
	if err != nil {
		var vErr *wizard.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": vErr.Message, "field": vErr.Field})
		}
		log.Printf("Ошибка создания записи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения объявления"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"listing_id": record.ID,
		"message":    "Объявление успешно создано",
	})
}

// GetMyListings возвращает список объявлений текущего пользователя
func (s *ListingService) GetMyListings(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	limit := 20
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	listings, total, err := s.store.Mine(ctx, userUUID, limit, offset)
	if err != nil {
		log.Printf("Ошибка запроса объявлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetListing возвращает детальную информацию об объявлении вместе
// с профилем и рейтингом продавца. Недоступность обогащения не роняет
// ответ: клиент покажет заглушку вместо профиля.
func (s *ListingService) GetListing(c fiber.Ctx) error {
	listingUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	l, err := s.store.ByID(ctx, listingUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка получения объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	response := fiber.Map{"listing": l}

	if l.Username != "" {
		profiles, err := s.profiles.ByUsernames(ctx, []string{l.Username})
		if err != nil {
			log.Printf("Ошибка загрузки профиля продавца: %v", err)
		} else if p, ok := profiles[l.Username]; ok {
			response["seller"] = p
		}

		if summary, ok := s.ratings.GetBatch(ctx, []string{l.Username})[l.Username]; ok && summary != nil {
			response["rating"] = summary
		}
	}

	return c.JSON(response)
}

// DeleteListing удаляет объявление текущего пользователя
func (s *ListingService) DeleteListing(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	listingUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	ownerID, err := s.store.OwnerOf(ctx, listingUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к удалению этого объявления"})
	}

	if err := s.store.Delete(ctx, listingUUID); err != nil {
		log.Printf("Ошибка удаления объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления объявления"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Объявление успешно удалено",
	})
}
