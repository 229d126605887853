package commands

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/vsinha/blendplan/pkg/application/services/planning"
	"github.com/vsinha/blendplan/pkg/infrastructure/config"
	"github.com/vsinha/blendplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/blendplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/blendplan/pkg/infrastructure/solver/gonumlp"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

// Config holds the command line settings shared by the commands. Flags
// override the values of the configuration file.
type Config struct {
	ConfigFile    string
	MaterialsFile string
	PricesFile    string
	Format        string
	OutputDir     string
	ExportMPS     string
	MetricsFile   string
	Timeout       time.Duration
}

// loadConfig reads the configuration file and applies flag overrides
func loadConfig(c Config) (*config.Config, error) {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return nil, err
	}
	if c.MaterialsFile != "" {
		cfg.Data.Materials = c.MaterialsFile
	}
	if c.PricesFile != "" {
		cfg.Data.Prices = c.PricesFile
	}
	if c.Timeout > 0 {
		cfg.Solver.Timeout = c.Timeout
	}
	if cfg.Data.Materials == "" || cfg.Data.Prices == "" {
		return nil, fmt.Errorf("materials and prices files are required (set data.materials and data.prices or use --materials and --prices)")
	}
	return cfg, nil
}

// loadRepositories reads the input CSV files into memory repositories
func loadRepositories(cfg *config.Config, logger logr.Logger) (*memory.MaterialRepository, *memory.PriceRepository, error) {
	loader := csv.NewLoader()

	materials, err := loader.LoadMaterials(cfg.Data.Materials)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading materials: %w", err)
	}
	prices, err := loader.LoadMarketPrices(cfg.Data.Prices)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading market prices: %w", err)
	}
	logger.Info("Data loaded", "materials", len(materials), "prices", len(prices))

	materialRepo := memory.NewMaterialRepository(len(materials))
	if err := materialRepo.LoadMaterials(materials); err != nil {
		return nil, nil, fmt.Errorf("failed to load materials into repository: %w", err)
	}
	priceRepo := memory.NewPriceRepository()
	if err := priceRepo.LoadPrices(prices); err != nil {
		return nil, nil, fmt.Errorf("failed to load prices into repository: %w", err)
	}
	return materialRepo, priceRepo, nil
}

// buildRequest converts the configuration into a planning request
func buildRequest(cfg *config.Config) (planning.Request, error) {
	first, last, err := cfg.Periods()
	if err != nil {
		return planning.Request{}, err
	}
	params, err := cfg.ToParameters()
	if err != nil {
		return planning.Request{}, err
	}
	gens, err := cfg.Generators()
	if err != nil {
		return planning.Request{}, err
	}
	return planning.Request{
		First:      first,
		Last:       last,
		Parameters: params,
		Generators: gens,
		Timeout:    cfg.Solver.Timeout,
		StrictBigM: cfg.Solver.StrictBigM,
	}, nil
}

// engineFactory builds gonum engines with the configured limits
func engineFactory(cfg *config.Config) planning.EngineFactory {
	opts := []gonumlp.Option{
		gonumlp.WithTolerance(cfg.Solver.Tolerance),
		gonumlp.WithIntegralityTolerance(cfg.Solver.IntegralityTolerance),
	}
	if cfg.Solver.MaxNodes > 0 {
		opts = append(opts, gonumlp.WithMaxNodes(cfg.Solver.MaxNodes))
	}
	return func() model.Engine { return gonumlp.New(opts...) }
}
