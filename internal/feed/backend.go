package feed

import (
	"context"

	"github.com/rajivgeraev/nearbuy-api/internal/catalog"
	"github.com/rajivgeraev/nearbuy-api/internal/geo"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

// SortMode определяет порядок выдачи ленты
type SortMode string

const (
	SortRecency  SortMode = "recency"
	SortDistance SortMode = "distance"
)

// Query описывает один запрос страницы ленты к бэкенду
type Query struct {
	Cursor   string
	Limit    int
	Search   string
	Category *catalog.Category
	Origin   *geo.Point
	RadiusKm *float64
	Sort     SortMode
}

// Page представляет одну страницу выдачи.
// Пустой NextCursor означает, что страниц больше нет.
type Page struct {
	Items      []models.Listing
	NextCursor string
}

// ListingSource поставляет страницы объявлений.
// Продакшен-реализация живет в internal/storage.
type ListingSource interface {
	Page(ctx context.Context, q Query) (*Page, error)
}
