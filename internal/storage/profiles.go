package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

// ProfileStore загружает публичные профили продавцов по username
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore создает новый ProfileStore
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// ByUsernames возвращает профили для набора username одним запросом.
// Имена без профиля в результате отсутствуют.
func (s *ProfileStore) ByUsernames(ctx context.Context, usernames []string) (map[string]models.SellerProfile, error) {
	if len(usernames) == 0 {
		return map[string]models.SellerProfile{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT username, first_name, last_name, avatar_url, location, verified
		FROM users
		WHERE username = ANY($1)
	`, usernames)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса профилей: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.SellerProfile, len(usernames))
	for rows.Next() {
		var p models.SellerProfile
		if err := rows.Scan(&p.Username, &p.FirstName, &p.LastName, &p.AvatarURL, &p.Location, &p.Verified); err != nil {
			log.Printf("Ошибка сканирования профиля: %v", err)
			continue
		}
		out[p.Username] = p
	}

	return out, rows.Err()
}
