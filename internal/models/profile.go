package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerProfile представляет публичный профиль продавца.
// Загружается лениво по username и кэшируется на время сессии.
type SellerProfile struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
	Location  string `json:"location"`
	Verified  bool   `json:"verified"`
}

// RatingSummary представляет агрегированный рейтинг пользователя
type RatingSummary struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// Feedback представляет отзыв одного пользователя о другом
type Feedback struct {
	ID         uuid.UUID `json:"id"`
	FromUserID uuid.UUID `json:"from_user_id"`
	ToUsername string    `json:"to_username"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
