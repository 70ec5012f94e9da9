package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/diffscope/internal/toolset"
)

// DepsCommand prints the dependency graph around one file.
func DepsCommand() *cli.Command {
	return &cli.Command{
		Name:      "deps",
		Usage:     "Show what a file imports and what imports it",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "Working tree root"},
			&cli.IntFlag{Name: "depth", Value: 1, Usage: "Hops to recurse in both directions"},
		},
		Action: runDeps,
	}
}

func runDeps(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: FILE")
	}

	cfg, log, err := loadAppConfig(c)
	if err != nil {
		return err
	}

	ts, err := toolset.New(c.String("root"), toolset.Config{
		SearchBinary:   cfg.Search.Binary,
		SearchTimeout:  time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
		CacheSize:      cfg.Search.CacheSize,
		IgnoreFileName: cfg.Search.IgnoreFile,
	}, log)
	if err != nil {
		return err
	}

	fmt.Println(ts.DependencyGraph(c.Args().First(), c.Int("depth")))
	return nil
}
