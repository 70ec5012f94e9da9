package cmd

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/diffscope/internal/config"
	"github.com/diffscope/internal/logging"
)

// loadAppConfig reads the configuration referenced by the global
// --config flag and builds the root logger from it.
func loadAppConfig(c *cli.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logging.New(cfg.General.LogLevel, cfg.General.PrettyLogs)
	return cfg, log, nil
}

// readInput returns the contents of path, or stdin when path is "-" or
// empty.
func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
