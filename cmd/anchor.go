package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/diffscope/internal/diff"
	"github.com/diffscope/internal/parser"
)

// AnchorCommand parses a model response and anchors each finding onto
// a concrete line of the given diff.
func AnchorCommand() *cli.Command {
	return &cli.Command{
		Name:      "anchor",
		Usage:     "Resolve model findings to target-revision line numbers",
		ArgsUsage: "RESPONSE_FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "diff",
				Aliases:  []string{"d"},
				Usage:    "Unified diff `FILE` the response reviewed",
				Required: true,
			},
		},
		Action: runAnchor,
	}
}

func runAnchor(c *cli.Context) error {
	_, log, err := loadAppConfig(c)
	if err != nil {
		return err
	}

	response, err := readInput(c.Args().First())
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	rawDiff, err := readInput(c.String("diff"))
	if err != nil {
		return fmt.Errorf("reading diff: %w", err)
	}

	parsed := parser.NewScanParser().Parse(response)
	resolver := diff.NewResolver(diff.BuildLineMap(rawDiff))
	resolver.ResolveAll(parsed.Findings)

	unresolved := 0
	for _, f := range parsed.Findings {
		if f.ResolvedLine == nil {
			unresolved++
		}
	}
	log.Info().Int("findings", len(parsed.Findings)).Int("unresolved", unresolved).
		Int("resolved_comments", len(parsed.Resolved)).Msg("anchoring complete")

	out, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
