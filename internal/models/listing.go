package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rajivgeraev/nearbuy-api/internal/catalog"
)

// ItemType различает объявления о продаже и запросы на покупку
type ItemType string

const (
	ItemTypeListing ItemType = "listing"
	ItemTypeRequest ItemType = "request"
)

// PriceType определяет способ указания цены в запросе
type PriceType string

const (
	PriceTypeFixed PriceType = "fixed"
	PriceTypeRange PriceType = "range"
)

// Listing представляет объявление или запрос в системе.
// Объявления и запросы делят общую форму и различаются полями цены:
// у объявления одна цена с единицей измерения, у запроса — бюджет
// (фиксированный или диапазон budget_min..budget_max).
type Listing struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	ItemType    ItemType          `json:"item_type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    catalog.Category  `json:"category"`
	Price       *float64          `json:"price,omitempty"`
	PriceUnit   catalog.PriceUnit `json:"price_unit,omitempty"`
	PriceType   PriceType         `json:"price_type,omitempty"`
	BudgetMin   *float64          `json:"budget_min,omitempty"`
	BudgetMax   *float64          `json:"budget_max,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	Location    string            `json:"location,omitempty"`
	Pickup      bool              `json:"pickup"`
	Delivery    bool              `json:"delivery"`
	Status      string            `json:"status"`
	Images      []ListingImage    `json:"images"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Username продавца, денормализуется при выборке для обогащения ленты
	Username string `json:"username,omitempty"`

	// Расстояние до пользователя в км, заполняется при сортировке по расстоянию
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// ListingImage представляет изображение объявления
type ListingImage struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listing_id"`
	URL        string    `json:"url"`
	PreviewURL string    `json:"preview_url,omitempty"`
	PublicID   string    `json:"public_id"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	Bytes      int       `json:"bytes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasLocation сообщает, задана ли у объявления геоточка
func (l *Listing) HasLocation() bool {
	return l.Latitude != nil && l.Longitude != nil
}
