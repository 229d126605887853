package repositories

import "github.com/vsinha/blendplan/pkg/domain/entities"

// PriceRepository provides access to market purchase prices
type PriceRepository interface {
	GetPrice(period entities.Period, name entities.MaterialName) (float64, error)
	GetMarketPrices() (entities.MarketPrices, error)
	LoadPrices(prices entities.MarketPrices) error
}
