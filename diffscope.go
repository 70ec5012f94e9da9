package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/diffscope/cmd"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "diffscope",
		Usage:   "anchor AI review comments onto exact diff lines and publish them",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			cmd.ReviewCommand(),
			cmd.SegmentCommand(),
			cmd.AnchorCommand(),
			cmd.SearchCommand(),
			cmd.DepsCommand(),
			cmd.PublishCommand(),
			cmd.ConfigCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
