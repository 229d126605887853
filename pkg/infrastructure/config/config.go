// Package config loads blending run configuration from YAML files with
// environment overrides.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/blendplan/pkg/domain/constraints"
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/infrastructure/solver/gonumlp"
)

// EnvPrefix prefixes environment overrides, e.g. BLENDPLAN_SOLVER_TIMEOUT
const EnvPrefix = "BLENDPLAN"

// DefaultTimeout bounds a solve when the configuration sets none
const DefaultTimeout = time.Minute

// Config is the full configuration of a planning run
type Config struct {
	Horizon    HorizonConfig    `mapstructure:"horizon" yaml:"horizon"`
	Data       DataConfig       `mapstructure:"data" yaml:"data"`
	Parameters ParametersConfig `mapstructure:"parameters" yaml:"parameters"`
	Solver     SolverConfig     `mapstructure:"solver" yaml:"solver"`
}

// HorizonConfig is the inclusive planning window in YYYY/MM form
type HorizonConfig struct {
	First string `mapstructure:"first" yaml:"first"`
	Last  string `mapstructure:"last" yaml:"last"`
}

// DataConfig locates the input CSV files. Relative paths are resolved
// against the directory of the configuration file.
type DataConfig struct {
	Materials string `mapstructure:"materials" yaml:"materials"`
	Prices    string `mapstructure:"prices" yaml:"prices"`
}

// ParametersConfig mirrors entities.Parameters with string category keys
type ParametersConfig struct {
	SellPrice      float64            `mapstructure:"sellPrice" yaml:"sellPrice"`
	RefineCapacity map[string]float64 `mapstructure:"refineCapacity" yaml:"refineCapacity"`
	MaxStorage     float64            `mapstructure:"maxStorage" yaml:"maxStorage"`
	StorageCost    float64            `mapstructure:"storageCost" yaml:"storageCost"`
	HardnessLower  float64            `mapstructure:"hardnessLower" yaml:"hardnessLower"`
	HardnessUpper  float64            `mapstructure:"hardnessUpper" yaml:"hardnessUpper"`
	InitialStock   float64            `mapstructure:"initialStock" yaml:"initialStock"`
	FinalStock     float64            `mapstructure:"finalStock" yaml:"finalStock"`
	MinBatch       float64            `mapstructure:"minBatch" yaml:"minBatch"`
	MaxDistinct    int                `mapstructure:"maxDistinct" yaml:"maxDistinct"`
	BigM           float64            `mapstructure:"bigM" yaml:"bigM"`
	Dependencies   []DependencyConfig `mapstructure:"dependencies" yaml:"dependencies,omitempty"`
}

// DependencyConfig is one "prerequisites imply dependent" rule
type DependencyConfig struct {
	Prerequisites []string `mapstructure:"prerequisites" yaml:"prerequisites"`
	Dependent     string   `mapstructure:"dependent" yaml:"dependent"`
}

// SolverConfig selects the constraint rules and bounds the solve
type SolverConfig struct {
	Timeout              time.Duration `mapstructure:"timeout" yaml:"-"`
	Eps                  float64       `mapstructure:"eps" yaml:"eps"`
	Constraints          []string      `mapstructure:"constraints" yaml:"constraints"`
	StrictBigM           bool          `mapstructure:"strictBigM" yaml:"strictBigM"`
	MaxNodes             int           `mapstructure:"maxNodes" yaml:"maxNodes"`
	Tolerance            float64       `mapstructure:"tolerance" yaml:"tolerance"`
	IntegralityTolerance float64       `mapstructure:"integralityTolerance" yaml:"integralityTolerance"`
}

// MarshalYAML writes the timeout in duration notation
func (s SolverConfig) MarshalYAML() (any, error) {
	type plain SolverConfig
	return struct {
		Timeout string `yaml:"timeout"`
		Rest    plain  `yaml:",inline"`
	}{Timeout: s.Timeout.String(), Rest: plain(s)}, nil
}

// Default returns the configuration of the reference problem with every
// constraint rule enabled and no input files.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	cfg.normalize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	p := entities.DefaultParameters()
	v.SetDefault("parameters.sellPrice", p.SellPrice)
	for c, capacity := range p.RefineCapacity {
		v.SetDefault("parameters.refineCapacity."+c.String(), capacity)
	}
	v.SetDefault("parameters.maxStorage", p.MaxStorage)
	v.SetDefault("parameters.storageCost", p.StorageCost)
	v.SetDefault("parameters.hardnessLower", p.HardnessLower)
	v.SetDefault("parameters.hardnessUpper", p.HardnessUpper)
	v.SetDefault("parameters.initialStock", p.InitialStock)
	v.SetDefault("parameters.finalStock", p.FinalStock)
	v.SetDefault("parameters.minBatch", p.MinBatch)
	v.SetDefault("parameters.maxDistinct", p.MaxDistinct)
	v.SetDefault("parameters.bigM", p.BigM)

	v.SetDefault("horizon.first", "")
	v.SetDefault("horizon.last", "")
	v.SetDefault("data.materials", "")
	v.SetDefault("data.prices", "")

	v.SetDefault("solver.timeout", DefaultTimeout)
	v.SetDefault("solver.eps", constraints.DefaultEps)
	v.SetDefault("solver.constraints", constraints.Names())
	v.SetDefault("solver.strictBigM", false)
	v.SetDefault("solver.maxNodes", 0)
	v.SetDefault("solver.tolerance", gonumlp.DefaultTolerance)
	v.SetDefault("solver.integralityTolerance", gonumlp.DefaultIntegralityTolerance)
}

// Load reads the YAML file at path, applies BLENDPLAN_* environment
// overrides and validates the result. An empty path yields the defaults
// with environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation. It serves callers that only display
// the configuration, such as the defaults before a horizon is set.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if path != "" {
		base := filepath.Dir(path)
		cfg.Data.Materials = resolve(base, cfg.Data.Materials)
		cfg.Data.Prices = resolve(base, cfg.Data.Prices)
	}
	return cfg, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// normalize rewrites capacity keys to canonical category names. Viper
// lower-cases map keys, and the dataset aliases are accepted; an alias
// overrides the canonical entry it maps to.
func (c *Config) normalize() {
	capacity := make(map[string]float64, len(c.Parameters.RefineCapacity))
	var aliases []string
	for k, v := range c.Parameters.RefineCapacity {
		cat, err := entities.ParseCategory(k)
		if err == nil && cat.String() != strings.ToUpper(k) {
			aliases = append(aliases, k)
			continue
		}
		if err == nil {
			k = cat.String()
		}
		capacity[k] = v
	}
	for _, k := range aliases {
		cat, _ := entities.ParseCategory(k)
		capacity[cat.String()] = c.Parameters.RefineCapacity[k]
	}
	c.Parameters.RefineCapacity = capacity
}

// Validate checks the horizon, solver settings and parameters
func (c *Config) Validate() error {
	if _, _, err := c.Periods(); err != nil {
		return err
	}
	if c.Solver.Timeout < 0 {
		return fmt.Errorf("solver timeout cannot be negative, got %s", c.Solver.Timeout)
	}
	if c.Solver.Eps < 0 {
		return fmt.Errorf("solver eps cannot be negative, got %g", c.Solver.Eps)
	}
	if c.Solver.MaxNodes < 0 {
		return fmt.Errorf("solver maxNodes cannot be negative, got %d", c.Solver.MaxNodes)
	}
	if !(c.Solver.Tolerance > 0) || !(c.Solver.IntegralityTolerance > 0) {
		return fmt.Errorf("solver tolerances must be positive")
	}
	if _, err := c.Generators(); err != nil {
		return err
	}
	params, err := c.ToParameters()
	if err != nil {
		return err
	}
	return params.Validate()
}

// Periods parses the horizon bounds
func (c *Config) Periods() (first, last entities.Period, err error) {
	first, err = entities.ParsePeriod(c.Horizon.First)
	if err != nil {
		return first, last, fmt.Errorf("horizon.first: %w", err)
	}
	last, err = entities.ParsePeriod(c.Horizon.Last)
	if err != nil {
		return first, last, fmt.Errorf("horizon.last: %w", err)
	}
	if first.After(last) {
		return first, last, fmt.Errorf("horizon.first %s is after horizon.last %s", first, last)
	}
	return first, last, nil
}

// Generators returns the selected constraint rules in configured order
func (c *Config) Generators() ([]constraints.Generator, error) {
	gens, err := constraints.Select(c.Solver.Constraints, c.Solver.Eps)
	if err != nil {
		return nil, fmt.Errorf("solver.constraints: %w", err)
	}
	return gens, nil
}

// ToParameters converts the parameter section to domain parameters
func (c *Config) ToParameters() (entities.Parameters, error) {
	pc := c.Parameters
	params := entities.Parameters{
		SellPrice:      pc.SellPrice,
		RefineCapacity: make(map[entities.Category]float64, len(pc.RefineCapacity)),
		MaxStorage:     pc.MaxStorage,
		StorageCost:    pc.StorageCost,
		HardnessLower:  pc.HardnessLower,
		HardnessUpper:  pc.HardnessUpper,
		InitialStock:   pc.InitialStock,
		FinalStock:     pc.FinalStock,
		MinBatch:       pc.MinBatch,
		MaxDistinct:    pc.MaxDistinct,
		BigM:           pc.BigM,
	}
	for name, capacity := range pc.RefineCapacity {
		cat, err := entities.ParseCategory(name)
		if err != nil {
			return entities.Parameters{}, fmt.Errorf("parameters.refineCapacity: %w", err)
		}
		params.RefineCapacity[cat] = capacity
	}
	for _, d := range pc.Dependencies {
		rule := entities.DependencyRule{Dependent: entities.MaterialName(d.Dependent)}
		for _, p := range d.Prerequisites {
			rule.Prerequisites = append(rule.Prerequisites, entities.MaterialName(p))
		}
		params.Dependencies = append(params.Dependencies, rule)
	}
	return params, nil
}

// WriteYAML writes the configuration in the format Load reads
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
