package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/diffscope/internal/diff"
)

// SegmentCommand splits a unified diff into reviewable units.
func SegmentCommand() *cli.Command {
	return &cli.Command{
		Name:      "segment",
		Usage:     "Split a unified diff into per-file or per-hunk units",
		ArgsUsage: "[DIFF_FILE|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "granularity",
				Aliases: []string{"g"},
				Usage:   "Unit granularity: file or hunk",
			},
		},
		Action: runSegment,
	}
}

func runSegment(c *cli.Context) error {
	cfg, _, err := loadAppConfig(c)
	if err != nil {
		return err
	}

	granularity := cfg.General.Granularity
	if c.IsSet("granularity") {
		granularity = c.String("granularity")
	}
	mode := diff.ByHunk
	if granularity == "file" {
		mode = diff.ByFile
	}

	raw, err := readInput(c.Args().First())
	if err != nil {
		return fmt.Errorf("reading diff: %w", err)
	}

	units, err := diff.NewSegmenter(mode).Segment(raw)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(units, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
