package memory

import (
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/repositories"
)

// PriceRepository provides in-memory market price storage
type PriceRepository struct {
	prices entities.MarketPrices
}

// NewPriceRepository creates a new in-memory price repository
func NewPriceRepository() *PriceRepository {
	return &PriceRepository{
		prices: make(entities.MarketPrices),
	}
}

// Verify interface compliance
var _ repositories.PriceRepository = (*PriceRepository)(nil)

// LoadPrices merges prices into the repository; later loads overwrite
// earlier entries for the same period and material.
func (r *PriceRepository) LoadPrices(prices entities.MarketPrices) error {
	for k, v := range prices {
		r.prices[k] = v
	}
	return nil
}

// SetPrice stores a single price
func (r *PriceRepository) SetPrice(period entities.Period, name entities.MaterialName, price float64) {
	r.prices[entities.PriceKey{Period: period, Material: name}] = price
}

// GetPrice returns the price of a material in a period
func (r *PriceRepository) GetPrice(period entities.Period, name entities.MaterialName) (float64, error) {
	price, ok := r.prices[entities.PriceKey{Period: period, Material: name}]
	if !ok {
		return 0, &entities.LookupError{Period: period, Material: name}
	}
	return price, nil
}

// GetMarketPrices returns a copy of the full price table
func (r *PriceRepository) GetMarketPrices() (entities.MarketPrices, error) {
	prices := make(entities.MarketPrices, len(r.prices))
	for k, v := range r.prices {
		prices[k] = v
	}
	return prices, nil
}
