package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/vsinha/blendplan/pkg/application/services/planning"
)

// ExportCommand writes the assembled model in MPS format without solving
type ExportCommand struct {
	config Config
	logger logr.Logger
	stdout io.Writer
}

// NewExportCommand creates an export command. The model goes to
// config.ExportMPS, or to stdout when that is empty.
func NewExportCommand(config Config, logger logr.Logger, stdout io.Writer) *ExportCommand {
	return &ExportCommand{config: config, logger: logger, stdout: stdout}
}

func (c *ExportCommand) Execute(ctx context.Context) error {
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

	service, err := planning.NewServiceWithConfig(materialRepo, priceRepo, planning.ServiceConfig{
		Logger: c.logger,
	})
	if err != nil {
		return err
	}

	if c.config.ExportMPS == "" {
		return service.Export(ctx, req, c.stdout)
	}

	f, err := os.Create(c.config.ExportMPS)
	if err != nil {
		return fmt.Errorf("failed to create MPS file: %w", err)
	}
	if err := service.Export(ctx, req, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write MPS file: %w", err)
	}
	c.logger.Info("Model exported", "path", c.config.ExportMPS)
	return nil
}
