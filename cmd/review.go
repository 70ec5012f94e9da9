package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/diffscope/internal/ai"
	"github.com/diffscope/internal/diff"
	"github.com/diffscope/internal/publisher"
	"github.com/diffscope/internal/review"
	"github.com/diffscope/internal/toolset"
)

// ReviewCommand runs the whole pipeline on one diff: model review with
// tool access, response parsing, line anchoring, and optionally
// publishing the result.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Review a diff end to end",
		ArgsUsage: "DIFF_FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "Working tree root the tools may explore"},
			&cli.BoolFlag{Name: "no-tools", Usage: "Disable repository exploration tools"},
			&cli.IntFlag{Name: "tool-rounds", Value: review.DefaultMaxToolRounds, Usage: "Maximum tool round-trips"},
			&cli.IntFlag{Name: "pr", Usage: "Pull request number to publish to"},
			&cli.StringFlag{Name: "commit", Usage: "Head commit SHA the comments anchor to"},
			&cli.StringFlag{Name: "summary", Usage: "Review summary body"},
		},
		Action: runReview,
	}
}

func runReview(c *cli.Context) error {
	publish := c.Int("pr") != 0
	if publish && c.String("commit") == "" {
		return fmt.Errorf("--commit is required when publishing")
	}

	cfg, log, err := loadAppConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(publish); err != nil {
		return err
	}

	rawDiff, err := readInput(c.Args().First())
	if err != nil {
		return fmt.Errorf("reading diff: %w", err)
	}

	granularity := diff.ByHunk
	if cfg.General.Granularity == "file" {
		granularity = diff.ByFile
	}

	var tools *toolset.Toolset
	if !c.Bool("no-tools") {
		tools, err = toolset.New(c.String("root"), toolset.Config{
			SearchBinary:   cfg.Search.Binary,
			SearchTimeout:  time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
			MaxOutputBytes: cfg.Search.MaxOutputKB * 1024,
			CacheSize:      cfg.Search.CacheSize,
			IgnoreFileName: cfg.Search.IgnoreFile,
		}, log)
		if err != nil {
			return err
		}
	}

	provider, err := ai.NewLangchainProvider(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Temperature, log)
	if err != nil {
		return err
	}

	svc := review.New(provider, nil, tools, review.Config{
		Granularity:   granularity,
		MaxToolRounds: c.Int("tool-rounds"),
	}, log)

	parsed, err := svc.Run(c.Context, rawDiff, nil)
	if err != nil {
		return err
	}

	if !publish {
		out, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
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
	}
	return err
}
