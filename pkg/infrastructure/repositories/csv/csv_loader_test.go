package csv

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/blendplan/pkg/domain/entities"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadMaterials(t *testing.T) {
	path := writeFile(t, "materials.csv", "name,category,hardness\nVEG1,PRIMARY,8.8\nOIL1, secondary ,6.1\nVEG2,VEGETABLE,2\n")

	materials, err := NewLoader().LoadMaterials(path)
	require.NoError(t, err)
	require.Len(t, materials, 3)

	assert.Equal(t, entities.Material{Name: "VEG1", Category: entities.Primary, Hardness: 8.8}, *materials[0])
	assert.Equal(t, entities.Material{Name: "OIL1", Category: entities.Secondary, Hardness: 6.1}, *materials[1])
	assert.Equal(t, entities.Primary, materials[2].Category)
}

func TestLoader_ReadMaterials_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"header only", "name,category,hardness\n", "at least one data row"},
		{"wrong header", "name,kind,hardness\nA,PRIMARY,1\n", "header mismatch"},
		{"bad category", "name,category,hardness\nA,TERTIARY,1\n", "row 2: invalid category"},
		{"bad hardness", "name,category,hardness\nA,PRIMARY,soft\n", "row 2: invalid hardness"},
		{"empty name", "name,category,hardness\nA,PRIMARY,1\n,PRIMARY,1\n", "row 3"},
		{"ragged row", "name,category,hardness\nA,PRIMARY\n", "failed to read materials CSV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().ReadMaterials(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_LoadMarketPrices(t *testing.T) {
	path := writeFile(t, "prices.csv", "period,A,B\n2024/01,100,120\n2024/02,110,130\n")

	prices, err := NewLoader().LoadMarketPrices(path)
	require.NoError(t, err)

	jan := entities.MustPeriod(2024, 1)
	feb := entities.MustPeriod(2024, 2)
	assert.Equal(t, entities.MarketPrices{
		{Period: jan, Material: "A"}: 100,
		{Period: jan, Material: "B"}: 120,
		{Period: feb, Material: "A"}: 110,
		{Period: feb, Material: "B"}: 130,
	}, prices)
}

func TestLoader_ReadMarketPrices_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"no materials", "period\n2024/01\n", "header must start with period"},
		{"wrong first column", "month,A\n2024/01,1\n", "header must start with period"},
		{"duplicate material", "period,A,A\n2024/01,1,2\n", "duplicate material A"},
		{"non-numeric price", "period,A,B\n2024/01,100,cheap\n", "row 2, column B: invalid price \"cheap\""},
		{"negative price", "period,A\n2024/01,-1\n", "cannot be negative"},
		{"duplicate period", "period,A\n2024/01,1\n2024/01,2\n", "row 3: duplicate period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().ReadMarketPrices(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_ReadMarketPrices_BadPeriod(t *testing.T) {
	_, err := NewLoader().ReadMarketPrices(strings.NewReader("period,A\n2024-01,100\n"))

	var formatErr *entities.FormatError
	require.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
	assert.Equal(t, "2024-01", formatErr.Input)
	assert.Contains(t, err.Error(), "row 2")
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadMaterials(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
