package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUnitIsFirstAllowed(t *testing.T) {
	for _, c := range Categories() {
		units := UnitsFor(c)
		require.NotEmpty(t, units, "категория %s без единиц цены", c)
		assert.Equal(t, units[0], DefaultUnit(c), "категория %s", c)
	}
}

func TestGroceriesUnits(t *testing.T) {
	units := UnitsFor(CategoryGroceries)
	assert.Equal(t, []PriceUnit{UnitPerKg, UnitPerPiece, UnitPerPack, UnitPerBundle}, units)
	assert.Equal(t, UnitPerKg, DefaultUnit(CategoryGroceries))
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{input: "groceries", want: CategoryGroceries},
		{input: "services", want: CategoryServices},
		{input: "other", want: CategoryOther},
		{input: "grocery", wantErr: true},
		{input: "", wantErr: true},
		{input: "GROCERIES", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCategory(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidUnit(t *testing.T) {
	assert.True(t, ValidUnit(CategoryGroceries, UnitPerPack))
	assert.False(t, ValidUnit(CategoryGroceries, UnitPerHour))
	assert.False(t, ValidUnit(CategoryElectronics, UnitPerKg))
	assert.True(t, ValidUnit(CategoryServices, UnitPerJob))
}

func TestDurationsAndIconsCoverAllCategories(t *testing.T) {
	for _, c := range Categories() {
		assert.NotEmpty(t, DurationsFor(c), "категория %s без сроков публикации", c)
		assert.NotEmpty(t, Icon(c), "категория %s без иконки", c)
	}
}
