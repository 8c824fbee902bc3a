package commands

import (
	"github.com/mosaicnetworks/hastings/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Hastings config.Config `mapstructure:",squash"`
	LogDir   string        `mapstructure:"log-dir"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Hastings: *config.NewDefaultConfig(),
	}
}
