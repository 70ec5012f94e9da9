// Package review runs the full pipeline for one diff: segment, prompt
// the model, serve its tool requests, parse the structured response,
// and anchor every finding to an exact new-file line. Publishing is a
// separate step so a run can be inspected before anything is posted.
package review

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diffscope/internal/ai"
	"github.com/diffscope/internal/diff"
	"github.com/diffscope/internal/parser"
	"github.com/diffscope/internal/prompts"
	"github.com/diffscope/internal/toolcall"
	"github.com/diffscope/internal/toolset"
	"github.com/diffscope/pkg/models"
)

// DefaultMaxToolRounds bounds how many tool round-trips the model gets
// before it must produce a review.
const DefaultMaxToolRounds = 5

var toolRecordRe = regexp.MustCompile(`(?s)<tool\s+kind="(\w+)"\s*>(.*?)</tool>`)

// Config tunes one review run.
type Config struct {
	Granularity   diff.Granularity
	MaxToolRounds int
}

// Service orchestrates a review run. Instances are per-run and not
// safe for concurrent use.
type Service struct {
	provider ai.Provider
	parser   parser.ResponseParser
	tools    *toolset.Toolset // nil disables tool rounds
	cfg      Config
	log      zerolog.Logger
}

// New builds a service. A nil toolset disables repository exploration
// and the model is asked for a single-shot review.
func New(provider ai.Provider, respParser parser.ResponseParser, tools *toolset.Toolset, cfg Config, log zerolog.Logger) *Service {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if respParser == nil {
		respParser = parser.NewScanParser()
	}
	return &Service{
		provider: provider,
		parser:   respParser,
		tools:    tools,
		cfg:      cfg,
		log:      log.With().Str("component", "review").Logger(),
	}
}

// Run reviews one diff and returns the parsed response with findings
// anchored. Findings whose quoted line no longer matches keep a nil
// ResolvedLine; the publisher decides what to do with them.
func (s *Service) Run(ctx context.Context, diffText string, prior []models.ResolvedComment) (*models.ParsedResponse, error) {
	log := s.log.With().Str("run_id", uuid.NewString()).Logger()

	units, err := diff.NewSegmenter(s.cfg.Granularity).Segment(diffText)
	if err != nil {
		return nil, fmt.Errorf("segmenting diff: %w", err)
	}
	log.Info().Int("units", len(units)).Msg("diff segmented")

	prompt := prompts.BuildReview(units, prior)
	if s.tools != nil {
		prompt += prompts.ToolInstructions
	}

	raw, err := s.converse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parsed := s.parser.Parse(raw)
	diff.NewResolver(diff.BuildLineMap(diffText)).ResolveAll(parsed.Findings)

	anchored := 0
	for _, f := range parsed.Findings {
		if f.ResolvedLine != nil {
			anchored++
		}
	}
	log.Info().Int("findings", len(parsed.Findings)).Int("anchored", anchored).
		Int("resolved", len(parsed.Resolved)).Msg("review complete")
	return parsed, nil
}

// converse runs the prompt, serving tool requests until the model
// stops asking or the round budget runs out.
func (s *Service) converse(ctx context.Context, prompt string) (string, error) {
	transcript := prompt
	for round := 0; ; round++ {
		raw, err := s.provider.Review(ctx, transcript)
		if err != nil {
			return "", err
		}

		requests := toolRecordRe.FindAllStringSubmatch(raw, -1)
		if s.tools == nil || len(requests) == 0 {
			return raw, nil
		}
		if round >= s.cfg.MaxToolRounds {
			s.log.Warn().Int("rounds", round).Msg("tool round budget exhausted, taking response as-is")
			return raw, nil
		}

		var results strings.Builder
		for _, m := range requests {
			kind, payload := m[1], m[2]
			output := s.serveTool(ctx, kind, payload)
			fmt.Fprintf(&results, "<tool_result kind=%q>\n%s\n</tool_result>\n", kind, output)
		}
		s.log.Debug().Int("round", round+1).Int("requests", len(requests)).Msg("served tool requests")

		transcript = transcript + "\n\n" + raw + "\n\n" + results.String() +
			"\nContinue. Request more tools or emit your review."
	}
}

// serveTool never fails the run: decode and execution problems go back
// to the model as text so it can correct its request.
func (s *Service) serveTool(ctx context.Context, kind, payload string) string {
	call, err := toolcall.Decode(kind, strings.TrimSpace(payload))
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return call.Dispatch(ctx, s.tools)
}
