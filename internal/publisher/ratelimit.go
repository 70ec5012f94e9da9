package publisher

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
)

// ErrRateLimitExceeded is raised when the secondary rate limit retry
// budget is exhausted. It aborts only the publish step.
var ErrRateLimitExceeded = errors.New("rate limit retry budget exceeded")

// limitClass distinguishes the platform's throttling signals.
type limitClass int

const (
	classNone limitClass = iota
	// classSecondary is the abuse-detection throttle: a 403 carrying
	// the secondary/abuse message marker. Triggered by burstiness.
	classSecondary
	// classPrimary is the standard per-window quota: 403 or 429 with
	// the quota exhausted.
	classPrimary
)

// classified carries the class plus whatever wait hints the platform
// supplied.
type classified struct {
	class      limitClass
	retryAfter time.Duration // explicit Retry-After, 0 if absent
	reset      time.Time     // known quota reset time, zero if unknown
}

// classify inspects a platform error. Anything that is not a rate
// limit signal is classNone and handled as a permanent failure by the
// caller.
func classify(err error) classified {
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		c := classified{class: classSecondary}
		if abuseErr.RetryAfter != nil {
			c.retryAfter = *abuseErr.RetryAfter
		}
		return c
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return classified{class: classPrimary, reset: rateErr.Rate.Reset.Time}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		msg := strings.ToLower(respErr.Message)
		if status == http.StatusForbidden && (strings.Contains(msg, "secondary rate limit") || strings.Contains(msg, "abuse")) {
			return classified{class: classSecondary, retryAfter: retryAfterHeader(respErr.Response)}
		}
		if (status == http.StatusForbidden || status == http.StatusTooManyRequests) && strings.Contains(msg, "rate limit") {
			return classified{class: classPrimary, retryAfter: retryAfterHeader(respErr.Response)}
		}
	}

	return classified{class: classNone}
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return 0
}
