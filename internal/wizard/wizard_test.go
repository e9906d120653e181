package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/nearbuy-api/internal/catalog"
	"github.com/rajivgeraev/nearbuy-api/internal/geo"
	"github.com/rajivgeraev/nearbuy-api/internal/models"
)

type fakeUploader struct {
	calls int
	fail  bool
	last  string
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte, fileName string) (*models.ListingImage, error) {
	u.calls++
	u.last = fileName
	if u.fail {
		return nil, errors.New("хранилище недоступно")
	}
	return &models.ListingImage{
		ID:       uuid.New(),
		URL:      "https://cdn.example.com/" + fileName,
		PublicID: "nearbuy/" + fileName,
	}, nil
}

type fakeCreator struct {
	calls    int
	fail     bool
	inserted *models.Listing
}

func (c *fakeCreator) Insert(ctx context.Context, l *models.Listing) error {
	c.calls++
	if c.fail {
		return errors.New("вставка не удалась")
	}
	c.inserted = l
	return nil
}

func newFilledWizard(t *testing.T, itemType models.ItemType) (*Wizard, *fakeUploader, *fakeCreator) {
	t.Helper()

	up := &fakeUploader{}
	cr := &fakeCreator{}
	w := New(up, cr)

	require.NoError(t, w.SelectType(itemType))
	require.NoError(t, w.SelectCategory(catalog.CategoryGroceries))
	w.SetTitle("Домашние яблоки")
	w.SetLocation(geo.Point{Latitude: 55.75, Longitude: 37.61}, "Москва, Арбат")
	if itemType == models.ItemTypeRequest {
		w.SetBudget("100", "")
	} else {
		w.SetPrice("250")
	}

	return w, up, cr
}

func TestStepTransitions(t *testing.T) {
	w := New(&fakeUploader{}, &fakeCreator{})
	assert.Equal(t, StepTypeSelection, w.Step())

	// Категорию нельзя выбрать раньше типа
	require.Error(t, w.SelectCategory(catalog.CategoryTools))

	require.NoError(t, w.SelectType(models.ItemTypeListing))
	assert.Equal(t, StepCategorySelection, w.Step())

	require.NoError(t, w.SelectCategory(catalog.CategoryTools))
	assert.Equal(t, StepFormEntry, w.Step())

	w.Back()
	assert.Equal(t, StepCategorySelection, w.Step())
	w.Back()
	assert.Equal(t, StepTypeSelection, w.Step())
	w.Back()
	assert.Equal(t, StepTypeSelection, w.Step())
}

func TestSelectCategoryPicksDefaultUnitAndDuration(t *testing.T) {
	w := New(&fakeUploader{}, &fakeCreator{})
	require.NoError(t, w.SelectType(models.ItemTypeListing))
	require.NoError(t, w.SelectCategory(catalog.CategoryGroceries))

	assert.Equal(t, catalog.UnitPerKg, w.Form().PriceUnit)
	assert.Equal(t, 1, w.Form().DurationDays)
}

func TestSubmitEmptyTitleFailsWithoutBackendCalls(t *testing.T) {
	w, up, cr := newFilledWizard(t, models.ItemTypeListing)
	w.SetTitle("")
	w.AttachImage([]byte{1, 2, 3}, "photo.jpg")

	_, err := w.Submit(context.Background(), uuid.New())

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
	assert.Equal(t, 0, up.calls)
	assert.Equal(t, 0, cr.calls)
}

func TestSubmitValidationOrder(t *testing.T) {
	w, _, _ := newFilledWizard(t, models.ItemTypeListing)
	w.SetTitle("")
	w.SetPrice("")
	w.form.Location = nil

	// Первая ошибка по порядку — заголовок
	_, err := w.Submit(context.Background(), uuid.New())
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)

	w.SetTitle("Стол")
	_, err = w.Submit(context.Background(), uuid.New())
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.Field)

	w.SetPrice("1200")
	_, err = w.Submit(context.Background(), uuid.New())
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "location", vErr.Field)
}

func TestSecondImageReplacesFirst(t *testing.T) {
	w, up, _ := newFilledWizard(t, models.ItemTypeListing)

	w.AttachImage([]byte("first"), "first.jpg")
	w.AttachImage([]byte("second"), "second.jpg")

	require.NotNil(t, w.Image())
	assert.Equal(t, "second.jpg", w.Image().FileName)

	record, err := w.Submit(context.Background(), uuid.New())
	require.NoError(t, err)

	// В записи ровно одно изображение — последнее выбранное
	require.Len(t, record.Images, 1)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, "second.jpg", up.last)
}

func TestSubmitListingMapsPriceFields(t *testing.T) {
	w, _, cr := newFilledWizard(t, models.ItemTypeListing)
	w.SetPrice("250")
	require.NoError(t, w.SetPriceUnit(catalog.UnitPerPack))

	userID := uuid.New()
	record, err := w.Submit(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, models.ItemTypeListing, record.ItemType)
	assert.Equal(t, userID, record.UserID)
	require.NotNil(t, record.Price)
	assert.Equal(t, 250.0, *record.Price)
	assert.Equal(t, catalog.UnitPerPack, record.PriceUnit)
	assert.Nil(t, record.BudgetMin)
	assert.Nil(t, record.BudgetMax)
	require.NotNil(t, cr.inserted)
	require.NotNil(t, record.ExpiresAt)
}

func TestSubmitRequestBudgetRange(t *testing.T) {
	tests := []struct {
		name      string
		priceType models.PriceType
		min, max  string
		wantMax   *float64
	}{
		{name: "диапазон с корректной верхней границей", priceType: models.PriceTypeRange, min: "100", max: "300", wantMax: ptr(300.0)},
		{name: "верхняя граница не число", priceType: models.PriceTypeRange, min: "100", max: "много", wantMax: nil},
		{name: "верхняя граница меньше нижней", priceType: models.PriceTypeRange, min: "300", max: "100", wantMax: nil},
		{name: "фиксированный бюджет игнорирует максимум", priceType: models.PriceTypeFixed, min: "100", max: "300", wantMax: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, _ := newFilledWizard(t, models.ItemTypeRequest)
			w.SetPriceType(tt.priceType)
			w.SetBudget(tt.min, tt.max)

			record, err := w.Submit(context.Background(), uuid.New())
			require.NoError(t, err)

			require.NotNil(t, record.BudgetMin)
			if tt.wantMax == nil {
				assert.Nil(t, record.BudgetMax)
			} else {
				require.NotNil(t, record.BudgetMax)
				assert.Equal(t, *tt.wantMax, *record.BudgetMax)
			}
		})
	}
}

func TestSubmitUploadFailureDiscardsRecord(t *testing.T) {
	w, up, cr := newFilledWizard(t, models.ItemTypeListing)
	up.fail = true
	w.AttachImage([]byte{1}, "photo.jpg")

	_, err := w.Submit(context.Background(), uuid.New())
	require.Error(t, err)

	// Запись не сохранялась, мастер остался на форме для повтора
	assert.Equal(t, 0, cr.calls)
	assert.Equal(t, StepFormEntry, w.Step())
}

func TestSubmitInsertFailureLeavesNoPartialState(t *testing.T) {
	w, _, cr := newFilledWizard(t, models.ItemTypeListing)
	cr.fail = true

	_, err := w.Submit(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Nil(t, cr.inserted)
	assert.Equal(t, StepFormEntry, w.Step())
}

func TestSubmitSuccessResetsWizard(t *testing.T) {
	w, _, _ := newFilledWizard(t, models.ItemTypeListing)
	w.AttachImage([]byte{1}, "photo.jpg")

	_, err := w.Submit(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, StepTypeSelection, w.Step())
	assert.Nil(t, w.Category())
	assert.Nil(t, w.Image())
	assert.Empty(t, w.Form().Title)
}

func ptr(f float64) *float64 { return &f }
