package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

// FeedbackStore работает с таблицей отзывов и агрегированными рейтингами
type FeedbackStore struct {
	pool *pgxpool.Pool
}

// NewFeedbackStore создает новый FeedbackStore
func NewFeedbackStore(pool *pgxpool.Pool) *FeedbackStore {
	return &FeedbackStore{pool: pool}
}

// Insert сохраняет отзыв
func (s *FeedbackStore) Insert(ctx context.Context, f *models.Feedback) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (id, from_user_id, to_username, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
	`, f.ID, f.FromUserID, f.ToUsername, f.Rating, f.Comment)
	if err != nil {
		return fmt.Errorf("ошибка вставки отзыва: %w", err)
	}
	return nil
}

// AggregateByUsernames возвращает средний рейтинг и число отзывов для
// набора username одним запросом. Пользователи без отзывов в результате
// отсутствуют.
func (s *FeedbackStore) AggregateByUsernames(ctx context.Context, usernames []string) (map[string]models.RatingSummary, error) {
	if len(usernames) == 0 {
		return map[string]models.RatingSummary{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT to_username, ROUND(AVG(rating)::numeric, 1)::float8, COUNT(*)
		FROM feedback
		WHERE to_username = ANY($1)
		GROUP BY to_username
	`, usernames)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса рейтингов: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.RatingSummary, len(usernames))
	for rows.Next() {
		var username string
		var summary models.RatingSummary
		if err := rows.Scan(&username, &summary.Rating, &summary.ReviewCount); err != nil {
			log.Printf("Ошибка сканирования рейтинга: %v", err)
			continue
		}
		out[username] = summary
	}

	return out, rows.Err()
}
