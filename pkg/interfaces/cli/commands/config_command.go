package commands

import (
	"io"

	"github.com/vsinha/blendplan/pkg/infrastructure/config"
)

// ConfigCommand prints the effective configuration: the file when one is
// given, otherwise the defaults, with BLENDPLAN_* overrides applied either way
type ConfigCommand struct {
	config Config
	stdout io.Writer
}

func NewConfigCommand(config Config, stdout io.Writer) *ConfigCommand {
	return &ConfigCommand{config: config, stdout: stdout}
}

func (c *ConfigCommand) Execute() error {
	load := config.Load
	if c.config.ConfigFile == "" {
		load = config.Read
	}
	cfg, err := load(c.config.ConfigFile)
	if err != nil {
		return err
	}
	return cfg.WriteYAML(c.stdout)
}
