// Package publisher posts review findings through the platform comment
// API. All findings go out as one batched review; if the batch call
// fails, each finding is retried as an individual comment so one
// malformed comment never loses the rest. Every call is wrapped in
// rate-limit handling that distinguishes the platform's primary quota
// from its abuse-detection throttle.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/diffscope/pkg/models"
)

// PlatformAPI is the slice of the platform client the publisher needs.
// Production wraps an authenticated client; tests inject fakes.
type PlatformAPI interface {
	CreateBatchReview(ctx context.Context, prNumber int, review *github.PullRequestReviewRequest) error
	CreateSingleComment(ctx context.Context, prNumber int, comment *github.PullRequestComment) error
}

// Config tunes retry behavior.
type Config struct {
	// MaxSecondaryRetries bounds successive abuse-throttle waits.
	MaxSecondaryRetries int
	// SecondaryMinWait is the floor for the first abuse-throttle wait;
	// it doubles per successive hit.
	SecondaryMinWait time.Duration
	// PrimaryDefaultWait applies when the platform gives no explicit
	// retry-after and no known reset time.
	PrimaryDefaultWait time.Duration
	// ResetBuffer pads a known quota reset time.
	ResetBuffer time.Duration
	// MutationsPerSecond paces outbound mutation calls client-side.
	MutationsPerSecond float64
}

func (c *Config) applyDefaults() {
	if c.MaxSecondaryRetries <= 0 {
		c.MaxSecondaryRetries = 3
	}
	if c.SecondaryMinWait <= 0 {
		c.SecondaryMinWait = 60 * time.Second
	}
	if c.PrimaryDefaultWait <= 0 {
		c.PrimaryDefaultWait = 60 * time.Second
	}
	if c.ResetBuffer <= 0 {
		c.ResetBuffer = 5 * time.Second
	}
	if c.MutationsPerSecond <= 0 {
		c.MutationsPerSecond = 1
	}
}

// Result reports what the run managed to post. Earlier successes are
// never rolled back by later failures.
type Result struct {
	BatchPosted  bool
	Posted       int
	Skipped      int
	FallbackUsed bool
	Failed       []FailedComment
}

// FailedComment records one finding the fallback path could not post.
type FailedComment struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// Publisher owns per-run retry state; instances are not shared across
// runs, so no internal locking is needed.
type Publisher struct {
	api     PlatformAPI
	cfg     Config
	clock   Clock
	limiter *rate.Limiter
	log     zerolog.Logger

	secondaryHits int
}

// New creates a publisher around an authenticated platform handle.
func New(api PlatformAPI, cfg Config, clock Clock, log zerolog.Logger) *Publisher {
	cfg.applyDefaults()
	if clock == nil {
		clock = NewRealClock()
	}
	return &Publisher{
		api:     api,
		cfg:     cfg,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Limit(cfg.MutationsPerSecond), 1),
		log:     log.With().Str("component", "publisher").Logger(),
	}
}

// PublishReview submits findings as a single review with a summary
// body and decision event. Findings without a resolved line are
// skipped here; whether to demote or drop them is decided above the
// core. On batch failure the findings are posted one by one.
func (p *Publisher) PublishReview(ctx context.Context, prNumber int, commitID string, findings []*models.Finding, summary string) (*Result, error) {
	result := &Result{}

	var comments []*github.DraftReviewComment
	var postable []*models.Finding
	for _, f := range findings {
		if f.ResolvedLine == nil {
			p.log.Warn().Str("path", f.Path).Str("quoted", f.QuotedLine).
				Msg("skipping finding with no anchored line")
			result.Skipped++
			continue
		}
		postable = append(postable, f)
		comments = append(comments, &github.DraftReviewComment{
			Path: github.Ptr(f.Path),
			Line: github.Ptr(*f.ResolvedLine),
			Side: github.Ptr("RIGHT"),
			Body: github.Ptr(formatBody(f)),
		})
	}

	if len(comments) == 0 && summary == "" {
		return result, nil
	}

	review := &github.PullRequestReviewRequest{
		CommitID: github.Ptr(commitID),
		Body:     github.Ptr(summary),
		Event:    github.Ptr("COMMENT"),
		Comments: comments,
	}

	batchErr := p.attempt(ctx, func() error {
		return p.api.CreateBatchReview(ctx, prNumber, review)
	})
	if batchErr == nil {
		result.BatchPosted = true
		result.Posted = len(comments)
		return result, nil
	}
	if isAbort(batchErr) {
		return result, batchErr
	}

	p.log.Warn().Err(batchErr).Msg("batch review failed, falling back to per-comment posting")
	result.FallbackUsed = true

	for _, f := range postable {
		comment := &github.PullRequestComment{
			Path:     github.Ptr(f.Path),
			Line:     github.Ptr(*f.ResolvedLine),
			Side:     github.Ptr("RIGHT"),
			CommitID: github.Ptr(commitID),
			Body:     github.Ptr(formatBody(f)),
		}
		err := p.attempt(ctx, func() error {
			return p.api.CreateSingleComment(ctx, prNumber, comment)
		})
		if err != nil {
			if isAbort(err) {
				// Comments already posted stay posted; surface the abort.
				return result, err
			}
			result.Failed = append(result.Failed, FailedComment{
				Path:    f.Path,
				Line:    *f.ResolvedLine,
				Message: f.Message,
				Err:     err,
			})
			continue
		}
		result.Posted++
	}

	return result, nil
}

// attempt runs one platform mutation through the rate-limit state
// machine: success resets the secondary counter; a secondary hit waits
// with doubling backoff up to the retry budget; a primary hit waits
// per the platform's hints and retries, each fresh hit handled
// independently; anything else propagates immediately.
func (p *Publisher) attempt(ctx context.Context, op func() error) error {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		err := op()
		if err == nil {
			p.secondaryHits = 0
			return nil
		}

		c := classify(err)
		switch c.class {
		case classSecondary:
			p.secondaryHits++
			if p.secondaryHits > p.cfg.MaxSecondaryRetries {
				return fmt.Errorf("%w: %d successive secondary hits: %v", ErrRateLimitExceeded, p.secondaryHits-1, err)
			}
			wait := p.cfg.SecondaryMinWait << (p.secondaryHits - 1)
			if c.retryAfter > wait {
				wait = c.retryAfter
			}
			p.log.Warn().Dur("wait", wait).Int("hit", p.secondaryHits).
				Msg("secondary rate limit, backing off")
			if serr := p.clock.Sleep(ctx, wait); serr != nil {
				return serr
			}

		case classPrimary:
			wait := p.primaryWait(c)
			p.log.Warn().Dur("wait", wait).Msg("primary rate limit, waiting for quota")
			if serr := p.clock.Sleep(ctx, wait); serr != nil {
				return serr
			}

		default:
			return err
		}
	}
}

// primaryWait prefers an explicit retry-after, then a known reset time
// plus a small safety buffer, then the fixed default.
func (p *Publisher) primaryWait(c classified) time.Duration {
	if c.retryAfter > 0 {
		return c.retryAfter
	}
	if !c.reset.IsZero() {
		if until := c.reset.Sub(p.clock.Now()); until > 0 {
			return until + p.cfg.ResetBuffer
		}
		return p.cfg.ResetBuffer
	}
	return p.cfg.PrimaryDefaultWait
}

func isAbort(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// formatBody renders one finding as a platform comment body, with a
// severity tag and an optional suggestion block.
func formatBody(f *models.Finding) string {
	body := fmt.Sprintf("**[%s]** %s", f.Severity, f.Message)
	if f.Suggestion != "" {
		body += fmt.Sprintf("\n\n```suggestion\n%s\n```", f.Suggestion)
	}
	return body
}
