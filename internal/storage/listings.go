package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/nearbuy-api/internal/feed"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

// ListingStore работает с таблицами listings и listing_images.
// Реализует feed.ListingSource для ленты.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore создает новый ListingStore
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// выражение расстояния по формуле гаверсинусов, км;
// $lat и $lng подставляются как аргументы запроса
const distanceExpr = `6371 * acos(
		least(1.0, cos(radians(%[1]s)) * cos(radians(l.latitude)) *
		cos(radians(l.longitude) - radians(%[2]s)) +
		sin(radians(%[1]s)) * sin(radians(l.latitude))))`

// Page возвращает одну страницу активных объявлений по запросу ленты.
// Курсор — это смещение в выдаче; пустой NextCursor означает конец.
func (s *ListingStore) Page(ctx context.Context, q feed.Query) (*feed.Page, error) {
	offset := 0
	if q.Cursor != "" {
		parsed, err := strconv.Atoi(q.Cursor)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("неверный курсор страницы: %q", q.Cursor)
		}
		offset = parsed
	}

	limit := q.Limit
	if limit <= 0 {
		limit = feed.DefaultPageSize
	}

	query := `
		SELECT l.id, l.user_id, u.username, l.item_type, l.title, l.description, l.category,
		       l.price, l.price_unit, l.price_type, l.budget_min, l.budget_max,
		       l.latitude, l.longitude, l.location, l.pickup, l.delivery, l.status,
		       l.created_at, l.expires_at, l.updated_at`
	args := []any{}
	idx := 1

	distance := q.Sort == feed.SortDistance && q.Origin != nil
	if distance {
		latArg := fmt.Sprintf("$%d", idx)
		args = append(args, q.Origin.Latitude)
		idx++
		lngArg := fmt.Sprintf("$%d", idx)
		args = append(args, q.Origin.Longitude)
		idx++
		query += ",\n\t\t       " + fmt.Sprintf(distanceExpr, latArg, lngArg) + " AS distance_km"
	}

	query += `
		FROM listings l
		JOIN users u ON u.id = l.user_id
		WHERE l.status = 'active' AND (l.expires_at IS NULL OR l.expires_at > NOW())`

	if q.Category != nil {
		query += fmt.Sprintf(" AND l.category = $%d", idx)
		args = append(args, string(*q.Category))
		idx++
	}

	if q.Search != "" {
		query += fmt.Sprintf(" AND (l.title ILIKE $%d OR l.description ILIKE $%d)", idx, idx)
		args = append(args, "%"+q.Search+"%")
		idx++
	}

	if distance {
		// Для расстояния нужна геоточка объявления
		query += " AND l.latitude IS NOT NULL AND l.longitude IS NOT NULL"

		if q.RadiusKm != nil {
			query += fmt.Sprintf(" AND %s <= $%d", fmt.Sprintf(distanceExpr, "$1", "$2"), idx)
			args = append(args, *q.RadiusKm)
			idx++
		}

		query += " ORDER BY distance_km ASC, l.created_at DESC"
	} else {
		query += " ORDER BY l.created_at DESC, l.id DESC"
	}

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса страницы ленты: %w", err)
	}
	defer rows.Close()

	var items []models.Listing
	for rows.Next() {
		var l models.Listing
		dest := []any{
			&l.ID, &l.UserID, &l.Username, &l.ItemType, &l.Title, &l.Description, &l.Category,
			&l.Price, &l.PriceUnit, &l.PriceType, &l.BudgetMin, &l.BudgetMax,
			&l.Latitude, &l.Longitude, &l.Location, &l.Pickup, &l.Delivery, &l.Status,
			&l.CreatedAt, &l.ExpiresAt, &l.UpdatedAt,
		}
		if distance {
			dest = append(dest, &l.DistanceKm)
		}
		if err := rows.Scan(dest...); err != nil {
			log.Printf("Ошибка сканирования объявления: %v", err)
			continue
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения страницы ленты: %w", err)
	}

	// Подтягиваем изображения для каждого объявления
	for i := range items {
		images, err := s.imagesFor(ctx, items[i].ID)
		if err != nil {
			log.Printf("Ошибка запроса изображений: %v", err)
			continue
		}
		items[i].Images = images
	}

	next := ""
	if len(items) == limit {
		next = strconv.Itoa(offset + limit)
	}

	return &feed.Page{Items: items, NextCursor: next}, nil
}

// Insert сохраняет объявление вместе с изображениями в одной транзакции.
// При любой ошибке транзакция откатывается: частичных записей не остается.
func (s *ListingStore) Insert(ctx context.Context, l *models.Listing) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO listings (id, user_id, item_type, title, description, category,
			price, price_unit, price_type, budget_min, budget_max,
			latitude, longitude, location, pickup, delivery, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, l.ID, l.UserID, l.ItemType, l.Title, l.Description, l.Category,
		l.Price, l.PriceUnit, l.PriceType, l.BudgetMin, l.BudgetMax,
		l.Latitude, l.Longitude, l.Location, l.Pickup, l.Delivery, l.Status, l.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка вставки объявления: %w", err)
	}

	for _, img := range l.Images {
		_, err = tx.Exec(ctx, `
			INSERT INTO listing_images (id, listing_id, url, preview_url, public_id, width, height, bytes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, img.ID, l.ID, img.URL, img.PreviewURL, img.PublicID, img.Width, img.Height, img.Bytes)
		if err != nil {
			return fmt.Errorf("ошибка вставки изображения: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// ByID возвращает объявление по идентификатору, pgx.ErrNoRows если его нет
func (s *ListingStore) ByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	err := s.pool.QueryRow(ctx, `
		SELECT l.id, l.user_id, u.username, l.item_type, l.title, l.description, l.category,
		       l.price, l.price_unit, l.price_type, l.budget_min, l.budget_max,
		       l.latitude, l.longitude, l.location, l.pickup, l.delivery, l.status,
		       l.created_at, l.expires_at, l.updated_at
		FROM listings l
		JOIN users u ON u.id = l.user_id
		WHERE l.id = $1
	`, id).Scan(
		&l.ID, &l.UserID, &l.Username, &l.ItemType, &l.Title, &l.Description, &l.Category,
		&l.Price, &l.PriceUnit, &l.PriceType, &l.BudgetMin, &l.BudgetMax,
		&l.Latitude, &l.Longitude, &l.Location, &l.Pickup, &l.Delivery, &l.Status,
		&l.CreatedAt, &l.ExpiresAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	images, err := s.imagesFor(ctx, l.ID)
	if err != nil {
		log.Printf("Ошибка запроса изображений: %v", err)
	} else {
		l.Images = images
	}

	return &l, nil
}

// Mine возвращает объявления пользователя, свежие сверху
func (s *ListingStore) Mine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Listing, int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, item_type, title, description, category,
		       price, price_unit, price_type, budget_min, budget_max,
		       latitude, longitude, location, pickup, delivery, status,
		       created_at, expires_at, updated_at
		FROM listings
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	defer rows.Close()

	var items []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.ItemType, &l.Title, &l.Description, &l.Category,
			&l.Price, &l.PriceUnit, &l.PriceType, &l.BudgetMin, &l.BudgetMax,
			&l.Latitude, &l.Longitude, &l.Location, &l.Pickup, &l.Delivery, &l.Status,
			&l.CreatedAt, &l.ExpiresAt, &l.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования объявления: %v", err)
			continue
		}
		items = append(items, l)
	}

	for i := range items {
		images, err := s.imagesFor(ctx, items[i].ID)
		if err != nil {
			log.Printf("Ошибка запроса изображений: %v", err)
			continue
		}
		items[i].Images = images
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE user_id = $1`, userID).Scan(&total); err != nil {
		log.Printf("Ошибка подсчета объявлений: %v", err)
	}

	return items, total, nil
}

// OwnerOf возвращает владельца объявления
func (s *ListingStore) OwnerOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT user_id FROM listings WHERE id = $1`, id).Scan(&ownerID)
	return ownerID, err
}

// Delete удаляет объявление вместе с изображениями
func (s *ListingStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `DELETE FROM listing_images WHERE listing_id = $1`, id); err != nil {
		return fmt.Errorf("ошибка удаления изображений: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("ошибка удаления объявления: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// imagesFor возвращает изображения объявления в порядке добавления
func (s *ListingStore) imagesFor(ctx context.Context, listingID uuid.UUID) ([]models.ListingImage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, listing_id, url, preview_url, public_id, width, height, bytes, created_at
		FROM listing_images
		WHERE listing_id = $1
		ORDER BY created_at ASC
	`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.ListingImage
	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(
			&img.ID, &img.ListingID, &img.URL, &img.PreviewURL, &img.PublicID,
			&img.Width, &img.Height, &img.Bytes, &img.CreatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования изображения: %v", err)
			continue
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

var _ feed.ListingSource = (*ListingStore)(nil)
