package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/diffscope/internal/toolset"
)

// SearchCommand runs the repository-search tool from the command line,
// mainly for inspecting what the agent would see.
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the working tree the way the review agent does",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "Working tree root"},
			&cli.BoolFlag{Name: "case-sensitive", Aliases: []string{"s"}},
			&cli.BoolFlag{Name: "regex", Aliases: []string{"e"}},
			&cli.BoolFlag{Name: "word", Aliases: []string{"w"}, Usage: "Match whole words only"},
			&cli.StringSliceFlag{Name: "ext", Usage: "Restrict to file extensions"},
			&cli.StringSliceFlag{Name: "path", Usage: "Restrict to paths under root"},
			&cli.IntFlag{Name: "context", Aliases: []string{"C"}, Value: toolset.DefaultContextLines},
			&cli.IntFlag{Name: "max", Value: toolset.DefaultMaxResults},
		},
		Action: runSearch,
	}
}

func runSearch(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: QUERY")
	}

	cfg, log, err := loadAppConfig(c)
	if err != nil {
		return err
	}

	ts, err := toolset.New(c.String("root"), toolset.Config{
		SearchBinary:   cfg.Search.Binary,
		SearchTimeout:  time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
		MaxOutputBytes: cfg.Search.MaxOutputKB * 1024,
		CacheSize:      cfg.Search.CacheSize,
		IgnoreFileName: cfg.Search.IgnoreFile,
	}, log)
	if err != nil {
		return err
	}

	result := ts.SearchRepository(c.Context, c.Args().First(), toolset.SearchOptions{
		CaseSensitive: c.Bool("case-sensitive"),
		Regex:         c.Bool("regex"),
		WordBoundary:  c.Bool("word"),
		Extensions:    c.StringSlice("ext"),
		Paths:         c.StringSlice("path"),
		ContextLines:  c.Int("context"),
		MaxResults:    c.Int("max"),
	})
	fmt.Println(result)
	return nil
}
