package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vsinha/blendplan/pkg/application/services/planning"
	"github.com/vsinha/blendplan/pkg/infrastructure/events"
	"github.com/vsinha/blendplan/pkg/infrastructure/logging"
	"github.com/vsinha/blendplan/pkg/infrastructure/metrics"
	"github.com/vsinha/blendplan/pkg/interfaces/cli/output"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

// PlanCommand loads the inputs, solves the blending model and prints the
// plan
type PlanCommand struct {
	config Config
	logger logr.Logger
	stdout io.Writer
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(config Config, logger logr.Logger, stdout io.Writer) *PlanCommand {
	return &PlanCommand{config: config, logger: logger, stdout: stdout}
}

// Execute runs the plan command. A run that ends without a plan still
// prints its status before the error is returned.
func (c *PlanCommand) Execute(ctx context.Context) error {
	cfg, err := loadConfig(c.config)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	req, err := buildRequest(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	materialRepo, priceRepo, err := loadRepositories(cfg, c.logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return err
	}
	store := events.NewMemoryStore(c.logger)
	if _, err := store.Subscribe(nil, events.HandlerFunc(func(e events.Event) error {
		c.logger.V(logging.TRACE).Info("Planning event", "type", e.Type(), "version", e.Version(), "data", e.Data())
		return nil
	})); err != nil {
		return err
	}

	service, err := planning.NewServiceWithConfig(materialRepo, priceRepo, planning.ServiceConfig{
		EngineFactory: engineFactory(cfg),
		Store:         store,
		Recorder:      recorder,
		Logger:        c.logger,
	})
	if err != nil {
		return err
	}

	if c.config.ExportMPS != "" {
		f, err := os.Create(c.config.ExportMPS)
		if err != nil {
			return fmt.Errorf("failed to create MPS file: %w", err)
		}
		defer f.Close()
		req.ExportMPS = f
	}

	result, runErr := service.Run(ctx, req)

	if c.config.MetricsFile != "" {
		if err := metrics.WriteTextfile(registry, c.config.MetricsFile); err != nil {
			return err
		}
	}

	var statusErr *model.EngineStatusError
	if runErr != nil && (result == nil || !errors.As(runErr, &statusErr)) {
		return fmt.Errorf("planning failed: %w", runErr)
	}

	path, err := output.Generate(c.stdout, result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
	})
	if err != nil {
		return err
	}
	if path != "" {
		c.logger.Info("Results saved", "path", path)
	}

	if runErr != nil {
		return fmt.Errorf("no plan: %w", runErr)
	}
	return nil
}
