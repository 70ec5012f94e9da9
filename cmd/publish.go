package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/diffscope/internal/publisher"
	"github.com/diffscope/pkg/models"
)

// PublishCommand posts anchored findings (the output of anchor) as one
// review, falling back to per-comment posting on batch failure.
func PublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish anchored findings to the pull request",
		ArgsUsage: "FINDINGS_FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "pr", Usage: "Pull request number", Required: true},
			&cli.StringFlag{Name: "commit", Usage: "Head commit SHA the comments anchor to", Required: true},
			&cli.StringFlag{Name: "summary", Usage: "Review summary body"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"d"}, Usage: "Print the review instead of posting"},
		},
		Action: runPublish,
	}
}

func runPublish(c *cli.Context) error {
	cfg, log, err := loadAppConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(!c.Bool("dry-run")); err != nil {
		return err
	}

	raw, err := readInput(c.Args().First())
	if err != nil {
		return fmt.Errorf("reading findings: %w", err)
	}
	var parsed models.ParsedResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fmt.Errorf("decoding findings: %w", err)
	}

	if c.Bool("dry-run") {
		for _, f := range parsed.Findings {
			line := "?"
			if f.ResolvedLine != nil {
				line = fmt.Sprintf("%d", *f.ResolvedLine)
			}
			fmt.Printf("%s:%s [%s] %s\n", f.Path, line, f.Severity, f.Message)
		}
		return nil
	}

	api, err := publisher.NewGitHubAPI(c.Context, cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo)
	if err != nil {
		return err
	}

	pub := publisher.New(api, publisher.Config{
		MaxSecondaryRetries: cfg.Publish.MaxSecondaryRetries,
		SecondaryMinWait:    time.Duration(cfg.Publish.SecondaryMinWaitSecs) * time.Second,
		PrimaryDefaultWait:  time.Duration(cfg.Publish.PrimaryWaitSecs) * time.Second,
	}, nil, log)

	result, err := pub.PublishReview(c.Context, c.Int("pr"), c.String("commit"), parsed.Findings, c.String("summary"))
	if result != nil {
		log.Info().Bool("batch", result.BatchPosted).Int("posted", result.Posted).
			Int("skipped", result.Skipped).Int("failed", len(result.Failed)).
			Msg("publish finished")
		for _, fc := range result.Failed {
			log.Error().Str("path", fc.Path).Int("line", fc.Line).Err(fc.Err).
				Msg("comment could not be posted")
		}
	}
	return err
}
