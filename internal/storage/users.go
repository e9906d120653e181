package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User представляет пользователя в системе
type User struct {
	ID          uuid.UUID
	Username    string
	FirstName   string
	LastName    string
	AvatarURL   string
	Location    string
	Verified    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time
}

// UserStore работает с таблицами users и telegram_users
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore создает новый UserStore
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// UpsertTelegramUser создает пользователя при первом входе через Telegram
// или обновляет его данные и время входа при повторном
func (s *UserStore) UpsertTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName, photoURL string) (*User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT user_id FROM telegram_users WHERE telegram_id = $1
	`, telegramID).Scan(&userID)

	switch {
	case err == pgx.ErrNoRows:
		// Первый вход: создаем пользователя и привязку к Telegram
		err = tx.QueryRow(ctx, `
			INSERT INTO users (username, first_name, last_name, avatar_url, last_login_at)
			VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
			RETURNING id
		`, username, firstName, lastName, photoURL).Scan(&userID)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO telegram_users (user_id, telegram_id, username, first_name, last_name, photo_url)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, userID, telegramID, username, firstName, lastName, photoURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания Telegram пользователя: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("ошибка поиска Telegram пользователя: %w", err)
	default:
		// Повторный вход: освежаем данные из Telegram и время входа
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET username = $2, first_name = $3, last_name = $4, avatar_url = $5,
			    last_login_at = CURRENT_TIMESTAMP, updated_at = NOW()
			WHERE id = $1
		`, userID, username, firstName, lastName, photoURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка обновления пользователя: %w", err)
		}
	}

	var user User
	err = tx.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, avatar_url, location, verified,
		       created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.AvatarURL,
		&user.Location, &user.Verified, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения пользователя: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return &user, nil
}
