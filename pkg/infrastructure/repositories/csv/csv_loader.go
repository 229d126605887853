package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vsinha/blendplan/pkg/domain/entities"
)

// Loader handles loading blending data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadMaterials loads materials from a CSV file with the header
// name,category,hardness.
func (l *Loader) LoadMaterials(filename string) ([]*entities.Material, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open materials file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadMaterials(file)
}

// ReadMaterials parses materials CSV from r
func (l *Loader) ReadMaterials(r io.Reader) ([]*entities.Material, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read materials CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("materials CSV must have header and at least one data row")
	}

	expectedHeader := []string{"name", "category", "hardness"}
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("materials CSV header mismatch. Expected: %v, Got: %v", expectedHeader, header)
	}

	var materials []*entities.Material
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("materials CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		material, err := parseMaterial(record)
		if err != nil {
			return nil, fmt.Errorf("materials CSV row %d: %w", i+2, err)
		}

		materials = append(materials, material)
	}

	return materials, nil
}

// LoadMarketPrices loads a price table from a CSV file. The header is a
// period column followed by one column per material; each row holds a
// period in YYYY/MM form and one price per material.
func (l *Loader) LoadMarketPrices(filename string) (entities.MarketPrices, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open prices file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadMarketPrices(file)
}

// ReadMarketPrices parses a price table CSV from r
func (l *Loader) ReadMarketPrices(r io.Reader) (entities.MarketPrices, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read prices CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("prices CSV must have header and at least one data row")
	}

	header := records[0]
	if len(header) < 2 || strings.ToLower(strings.TrimSpace(header[0])) != "period" {
		return nil, fmt.Errorf("prices CSV header must start with period followed by material names, got: %v", header)
	}

	materials := make([]entities.MaterialName, len(header)-1)
	seen := make(map[entities.MaterialName]bool, len(materials))
	for i, col := range header[1:] {
		name := entities.MaterialName(strings.TrimSpace(col))
		if name == "" {
			return nil, fmt.Errorf("prices CSV header column %d: empty material name", i+2)
		}
		if seen[name] {
			return nil, fmt.Errorf("prices CSV header column %d: duplicate material %s", i+2, name)
		}
		seen[name] = true
		materials[i] = name
	}

	prices := make(entities.MarketPrices, (len(records)-1)*len(materials))
	periods := make(map[entities.Period]bool, len(records)-1)
	for i, record := range records[1:] {
		row := i + 2
		if len(record) != len(header) {
			return nil, fmt.Errorf("prices CSV row %d: expected %d columns, got %d", row, len(header), len(record))
		}

		period, err := entities.ParsePeriod(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("prices CSV row %d: %w", row, err)
		}
		if periods[period] {
			return nil, fmt.Errorf("prices CSV row %d: duplicate period %s", row, period)
		}
		periods[period] = true

		for j, name := range materials {
			value := strings.TrimSpace(record[j+1])
			price, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("prices CSV row %d, column %s: invalid price %q", row, name, value)
			}
			if price < 0 {
				return nil, fmt.Errorf("prices CSV row %d, column %s: price cannot be negative, got %v", row, name, price)
			}
			prices[entities.PriceKey{Period: period, Material: name}] = price
		}
	}

	return prices, nil
}

func readAll(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseMaterial(record []string) (*entities.Material, error) {
	name := entities.MaterialName(strings.TrimSpace(record[0]))

	category, err := entities.ParseCategory(record[1])
	if err != nil {
		return nil, err
	}

	hardness, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid hardness: %s", record[2])
	}

	return entities.NewMaterial(name, category, hardness)
}
