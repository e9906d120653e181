package catalog

import "fmt"

// Category представляет категорию объявления. Набор категорий закрытый:
// добавление новой категории требует правки всех switch в этом пакете.
type Category string

const (
	CategoryGroceries    Category = "groceries"
	CategoryHomemadeFood Category = "homemade_food"
	CategoryElectronics  Category = "electronics"
	CategoryFurniture    Category = "furniture"
	CategoryClothing     Category = "clothing"
	CategoryTools        Category = "tools"
	CategoryServices     Category = "services"
	CategoryOther        Category = "other"
)

// PriceUnit представляет единицу измерения цены
type PriceUnit string

const (
	UnitPerKg      PriceUnit = "per_kg"
	UnitPerPiece   PriceUnit = "per_piece"
	UnitPerPack    PriceUnit = "per_pack"
	UnitPerBundle  PriceUnit = "per_bundle"
	UnitPerPortion PriceUnit = "per_portion"
	UnitPerItem    PriceUnit = "per_item"
	UnitPerHour    PriceUnit = "per_hour"
	UnitPerDay     PriceUnit = "per_day"
	UnitPerJob     PriceUnit = "per_job"
)

// Categories возвращает все категории в порядке отображения
func Categories() []Category {
	return []Category{
		CategoryGroceries,
		CategoryHomemadeFood,
		CategoryElectronics,
		CategoryFurniture,
		CategoryClothing,
		CategoryTools,
		CategoryServices,
		CategoryOther,
	}
}

// ParseCategory проверяет строку и возвращает категорию.
// Неизвестная категория — это ошибка, а не тихий fallback.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryGroceries, CategoryHomemadeFood, CategoryElectronics,
		CategoryFurniture, CategoryClothing, CategoryTools,
		CategoryServices, CategoryOther:
		return Category(s), nil
	}
	return "", fmt.Errorf("неизвестная категория: %q", s)
}

// UnitsFor возвращает допустимые единицы цены для категории.
// Первый элемент списка — единица по умолчанию.
func UnitsFor(c Category) []PriceUnit {
	switch c {
	case CategoryGroceries:
		return []PriceUnit{UnitPerKg, UnitPerPiece, UnitPerPack, UnitPerBundle}
	case CategoryHomemadeFood:
		return []PriceUnit{UnitPerPortion, UnitPerPiece, UnitPerKg}
	case CategoryElectronics:
		return []PriceUnit{UnitPerItem}
	case CategoryFurniture:
		return []PriceUnit{UnitPerItem}
	case CategoryClothing:
		return []PriceUnit{UnitPerItem}
	case CategoryTools:
		return []PriceUnit{UnitPerDay, UnitPerHour, UnitPerItem}
	case CategoryServices:
		return []PriceUnit{UnitPerHour, UnitPerJob, UnitPerDay}
	case CategoryOther:
		return []PriceUnit{UnitPerItem}
	}
	return nil
}

// DefaultUnit возвращает единицу цены по умолчанию для категории
func DefaultUnit(c Category) PriceUnit {
	units := UnitsFor(c)
	if len(units) == 0 {
		return ""
	}
	return units[0]
}

// ValidUnit проверяет, что единица цены допустима для категории
func ValidUnit(c Category, u PriceUnit) bool {
	for _, unit := range UnitsFor(c) {
		if unit == u {
			return true
		}
	}
	return false
}

// DurationsFor возвращает варианты срока публикации в днях.
// Первый элемент — срок по умолчанию. Скоропортящиеся категории
// живут короче остальных.
func DurationsFor(c Category) []int {
	switch c {
	case CategoryGroceries, CategoryHomemadeFood:
		return []int{1, 3, 7}
	case CategoryElectronics, CategoryFurniture, CategoryClothing,
		CategoryTools, CategoryServices, CategoryOther:
		return []int{7, 14, 30}
	}
	return nil
}

// Icon возвращает имя иконки категории для клиента
func Icon(c Category) string {
	switch c {
	case CategoryGroceries:
		return "basket"
	case CategoryHomemadeFood:
		return "chef-hat"
	case CategoryElectronics:
		return "devices"
	case CategoryFurniture:
		return "sofa"
	case CategoryClothing:
		return "tshirt"
	case CategoryTools:
		return "wrench"
	case CategoryServices:
		return "handshake"
	case CategoryOther:
		return "tag"
	}
	return ""
}
