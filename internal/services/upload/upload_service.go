package upload

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/nearbuy-api/internal/config"
	"github.com/rajivgeraev/nearbuy-api/internal/imageproc"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
	"github.com/rajivgeraev/nearbuy-api/internal/utils"
)

// UploadService предоставляет загрузку изображений в Cloudinary.
// Перед загрузкой каждое изображение проходит фиксированную обработку
// (уменьшение и перекодирование), одинаковую для камеры и галереи.
type UploadService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	cld        *cloudinary.Cloudinary
}

// NewUploadService создает новый экземпляр UploadService
func NewUploadService(cfg *config.Config) (*UploadService, error) {
	cld, err := cloudinary.NewFromParams(
		cfg.CloudinaryConfig.CloudName,
		cfg.CloudinaryConfig.APIKey,
		cfg.CloudinaryConfig.APISecret,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}

	return &UploadService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		cld:        cld,
	}, nil
}

// Upload обрабатывает изображение и загружает его в Cloudinary.
// Используется мастером создания объявления.
func (s *UploadService) Upload(ctx context.Context, data []byte, fileName string) (*models.ListingImage, error) {
	prepared, err := imageproc.Prepare(data)
	if err != nil {
		return nil, err
	}

	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(prepared.Data), uploader.UploadParams{
		PublicID: uuid.New().String(),
		Folder:   s.cfg.CloudinaryConfig.UploadFolder,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки в Cloudinary: %w", err)
	}

	return &models.ListingImage{
		ID:       uuid.New(),
		URL:      resp.SecureURL,
		PublicID: resp.PublicID,
		Width:    prepared.Width,
		Height:   prepared.Height,
		Bytes:    len(prepared.Data),
	}, nil
}

// UploadImage принимает multipart-файл, обрабатывает и загружает его.
// Возвращает метаданные для последующего прикрепления к объявлению.
func (s *UploadService) UploadImage(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Файл изображения не передан"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("Ошибка открытия файла: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не удалось прочитать файл"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("Ошибка чтения файла: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не удалось прочитать файл"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	img, err := s.Upload(ctx, data, fileHeader.Filename)
	if err != nil {
		log.Printf("Ошибка загрузки изображения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка загрузки изображения"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"image": img,
	})
}

// GenerateSignature создаёт корректную подпись для Cloudinary
func (s *UploadService) GenerateSignature(params map[string]string) string {
	// Сортируем ключи параметров
	var keys []string
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Формируем строку для подписи
	var signParts []string
	for _, k := range keys {
		signParts = append(signParts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	signatureString := strings.Join(signParts, "&")

	// Добавляем API-секрет в конец строки
	signatureString += s.cfg.CloudinaryConfig.APISecret

	// Создаем SHA-1 хеш
	h := sha1.New()
	h.Write([]byte(signatureString))

	return hex.EncodeToString(h.Sum(nil))
}

// GenerateUploadParams создаёт параметры для прямой загрузки с клиента
func (s *UploadService) GenerateUploadParams(c fiber.Ctx) error {
	listingID := c.Query("listing_id")
	if listingID == "" {
		listingID = uuid.New().String()
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	params := map[string]string{
		"timestamp": timestamp,
	}
	signature := s.GenerateSignature(params)

	return c.JSON(fiber.Map{
		"timestamp":  timestamp,
		"signature":  signature,
		"api_key":    s.cfg.CloudinaryConfig.APIKey,
		"cloud_name": s.cfg.CloudinaryConfig.CloudName,
		"listing_id": listingID,
	})
}
