// Пакет wizard реализует пошаговую форму создания объявления или запроса:
// выбор типа → выбор категории → заполнение формы → отправка.
// Состояние формы живет от открытия экрана до успешной отправки или ухода
// с экрана.
package wizard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rajivgeraev/nearbuy-api/internal/catalog"
	"github.com/rajivgeraev/nearbuy-api/internal/geo"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

// Step представляет шаг мастера
type Step string

const (
	StepTypeSelection     Step = "type_selection"
	StepCategorySelection Step = "category_selection"
	StepFormEntry         Step = "form_entry"
)

// ValidationError описывает ошибку валидации формы, исправимую пользователем
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Uploader загружает подготовленное изображение в объектное хранилище
type Uploader interface {
	Upload(ctx context.Context, data []byte, fileName string) (*models.ListingImage, error)
}

// Creator сохраняет готовую запись в бэкенде
type Creator interface {
	Insert(ctx context.Context, l *models.Listing) error
}

// PickedImage представляет локально выбранное изображение до загрузки
type PickedImage struct {
	Data     []byte
	FileName string
}

// Form хранит введенные пользователем поля. Цены приходят строками из
// полей ввода и разбираются только при отправке.
type Form struct {
	Title        string
	Description  string
	Price        string
	PriceUnit    catalog.PriceUnit
	PriceType    models.PriceType
	BudgetMin    string
	BudgetMax    string
	Location     *geo.Point
	LocationName string
	Pickup       bool
	Delivery     bool
	DurationDays int
	Image        *PickedImage
}

// Wizard представляет машину состояний мастера создания объявления
type Wizard struct {
	uploader Uploader
	creator  Creator

	step     Step
	itemType models.ItemType
	category *catalog.Category
	form     Form
}

// New создает мастер в начальном состоянии
func New(uploader Uploader, creator Creator) *Wizard {
	return &Wizard{
		uploader: uploader,
		creator:  creator,
		step:     StepTypeSelection,
	}
}

// Step возвращает текущий шаг мастера
func (w *Wizard) Step() Step {
	return w.step
}

// Category возвращает выбранную категорию, nil если не выбрана
func (w *Wizard) Category() *catalog.Category {
	return w.category
}

// Form возвращает текущее состояние формы
func (w *Wizard) Form() Form {
	return w.form
}

// SelectType выбирает тип записи и переводит мастер к выбору категории
func (w *Wizard) SelectType(t models.ItemType) error {
	if w.step != StepTypeSelection {
		return fmt.Errorf("выбор типа доступен только на первом шаге")
	}
	if t != models.ItemTypeListing && t != models.ItemTypeRequest {
		return fmt.Errorf("неизвестный тип записи: %q", t)
	}

	w.itemType = t
	w.step = StepCategorySelection
	return nil
}

// SelectCategory выбирает категорию и переводит мастер к форме.
// Единица цены по умолчанию — первая из допустимых для категории,
// срок публикации — первый из вариантов категории.
func (w *Wizard) SelectCategory(c catalog.Category) error {
	if w.step != StepCategorySelection {
		return fmt.Errorf("выбор категории требует выбранного типа записи")
	}

	w.category = &c
	w.form.PriceUnit = catalog.DefaultUnit(c)
	w.form.DurationDays = catalog.DurationsFor(c)[0]
	w.step = StepFormEntry
	return nil
}

// Back возвращает мастер на предыдущий шаг
func (w *Wizard) Back() {
	switch w.step {
	case StepFormEntry:
		w.step = StepCategorySelection
	case StepCategorySelection:
		w.step = StepTypeSelection
	}
}

// SetTitle задает заголовок
func (w *Wizard) SetTitle(title string) { w.form.Title = title }

// SetDescription задает описание
func (w *Wizard) SetDescription(d string) { w.form.Description = d }

// SetPrice задает цену объявления (строка из поля ввода)
func (w *Wizard) SetPrice(p string) { w.form.Price = p }

// SetPriceType задает способ указания бюджета запроса
func (w *Wizard) SetPriceType(t models.PriceType) { w.form.PriceType = t }

// SetBudget задает границы бюджета запроса
func (w *Wizard) SetBudget(min, max string) {
	w.form.BudgetMin = min
	w.form.BudgetMax = max
}

// SetPriceUnit задает единицу цены, отклоняя недопустимую для категории
func (w *Wizard) SetPriceUnit(u catalog.PriceUnit) error {
	if w.category == nil || !catalog.ValidUnit(*w.category, u) {
		return fmt.Errorf("единица цены %q недопустима для категории", u)
	}
	w.form.PriceUnit = u
	return nil
}

// SetLocation задает геоточку и отображаемое название места
func (w *Wizard) SetLocation(p geo.Point, name string) {
	w.form.Location = &p
	w.form.LocationName = name
}

// SetDelivery задает флаги самовывоза и доставки
func (w *Wizard) SetDelivery(pickup, delivery bool) {
	w.form.Pickup = pickup
	w.form.Delivery = delivery
}

// SetDuration задает срок публикации в днях
func (w *Wizard) SetDuration(days int) { w.form.DurationDays = days }

// AttachImage прикрепляет изображение. Лимит — одно изображение:
// новое всегда заменяет прежнее, а не добавляется к нему.
func (w *Wizard) AttachImage(data []byte, fileName string) {
	w.form.Image = &PickedImage{Data: data, FileName: fileName}
}

// Image возвращает прикрепленное изображение, nil если его нет
func (w *Wizard) Image() *PickedImage {
	return w.form.Image
}

// Reset возвращает мастер в начальное состояние и очищает форму
func (w *Wizard) Reset() {
	w.step = StepTypeSelection
	w.itemType = ""
	w.category = nil
	w.form = Form{}
}

// Submit валидирует форму и сохраняет запись. Валидация идет по порядку,
// возвращается первая ошибка, до бэкенда дело в этом случае не доходит.
// При ошибке загрузки изображения или сохранения частично собранная
// запись отбрасывается целиком. Успех сбрасывает мастер к выбору типа.
func (w *Wizard) Submit(ctx context.Context, userID uuid.UUID) (*models.Listing, error) {
	if w.step != StepFormEntry {
		return nil, fmt.Errorf("отправка доступна только с шага формы")
	}

	record, err := w.buildRecord(userID)
	if err != nil {
		return nil, err
	}

	// Сначала изображение: без URL запись не собрать
	if w.form.Image != nil {
		img, err := w.uploader.Upload(ctx, w.form.Image.Data, w.form.Image.FileName)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки изображения: %w", err)
		}
		img.ListingID = record.ID
		record.Images = []models.ListingImage{*img}
	}

	if err := w.creator.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("ошибка сохранения записи: %w", err)
	}

	w.Reset()
	return record, nil
}

// buildRecord валидирует форму и собирает запись для сохранения
func (w *Wizard) buildRecord(userID uuid.UUID) (*models.Listing, error) {
	if w.form.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "Название обязательно"}
	}
	if w.category == nil {
		return nil, &ValidationError{Field: "category", Message: "Выберите категорию"}
	}

	record := &models.Listing{
		ID:          uuid.New(),
		UserID:      userID,
		ItemType:    w.itemType,
		Title:       w.form.Title,
		Description: w.form.Description,
		Category:    *w.category,
		Location:    w.form.LocationName,
		Pickup:      w.form.Pickup,
		Delivery:    w.form.Delivery,
		Status:      "active",
	}

	// Типоспецифичные поля цены
	if w.itemType == models.ItemTypeRequest {
		priceType := w.form.PriceType
		if priceType == "" {
			priceType = models.PriceTypeFixed
		}

		min, err := strconv.ParseFloat(w.form.BudgetMin, 64)
		if err != nil {
			return nil, &ValidationError{Field: "price", Message: "Укажите бюджет"}
		}

		record.PriceType = priceType
		record.BudgetMin = &min

		// budget_max сохраняется только при диапазоне, если он разбирается
		// как число и не меньше нижней границы; иначе остается пустым
		if priceType == models.PriceTypeRange {
			if max, err := strconv.ParseFloat(w.form.BudgetMax, 64); err == nil && max >= min {
				record.BudgetMax = &max
			}
		}
	} else {
		price, err := strconv.ParseFloat(w.form.Price, 64)
		if err != nil {
			return nil, &ValidationError{Field: "price", Message: "Укажите цену"}
		}

		unit := w.form.PriceUnit
		if !catalog.ValidUnit(*w.category, unit) {
			unit = catalog.DefaultUnit(*w.category)
		}

		record.Price = &price
		record.PriceUnit = unit
	}

	if w.form.Location == nil {
		return nil, &ValidationError{Field: "location", Message: "Укажите место на карте"}
	}
	record.Latitude = &w.form.Location.Latitude
	record.Longitude = &w.form.Location.Longitude

	days := w.form.DurationDays
	if days <= 0 {
		days = catalog.DurationsFor(*w.category)[0]
	}
	expires := time.Now().AddDate(0, 0, days)
	record.ExpiresAt = &expires

	return record, nil
}
