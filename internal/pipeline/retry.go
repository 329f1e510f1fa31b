package pipeline

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/fetcher"
	"github.com/sells-group/lead-qualifier/internal/model"
)

// RetryConfig controls per-fetch retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 3.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration
	// MaxBackoff caps the backoff delay. Default: 30s.
	MaxBackoff time.Duration
	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64
	// JitterFraction adds random jitter as a fraction of the computed
	// delay. Default: 0.25.
	JitterFraction float64
}

// DefaultRetryConfig returns the standard fetch retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// Outcome is the terminal result of executing one fetch through the retry
// policy: either a profile or the last FetchError, with the attempt count.
type Outcome struct {
	URL      string
	Profile  *model.RawProfile
	Err      *fetcher.FetchError
	Attempts int
}

// Success reports whether the fetch ultimately produced a profile.
func (o Outcome) Success() bool {
	return o.Profile != nil
}

// attemptState is the per-fetch retry state machine. Every fetch walks
// Pending -> Attempting and terminates in Success, PermanentFailure, or
// RetriesExhausted; transient failures loop through RetryWait.
type attemptState int

const (
	statePending attemptState = iota
	stateAttempting
	stateRetryWait
	stateSuccess
	statePermanentFailure
	stateRetriesExhausted
)

// RetryPolicy wraps a Fetcher with bounded retries and exponential backoff.
// It never propagates an error past its boundary: every execution ends in
// an Outcome.
type RetryPolicy struct {
	cfg   RetryConfig
	fetch fetcher.Fetcher

	// sleep is swappable in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a retry policy around the given fetcher.
func NewRetryPolicy(fetch fetcher.Fetcher, cfg RetryConfig) *RetryPolicy {
	return &RetryPolicy{
		cfg:   cfg.withDefaults(),
		fetch: fetch,
		sleep: sleepCtx,
	}
}

// Execute runs the fetch state machine for one profile URL. Transient
// failures are retried with backoff up to MaxAttempts; permanent failures
// terminate after the failing attempt. Context cancellation ends the
// machine with the last error.
func (p *RetryPolicy) Execute(ctx context.Context, profileURL string) Outcome {
	out := Outcome{URL: profileURL}
	var lastErr *fetcher.FetchError

	state := statePending
	for {
		switch state {
		case statePending:
			state = stateAttempting

		case stateAttempting:
			out.Attempts++
			profile, err := p.fetch.Fetch(ctx, profileURL)
			if err == nil {
				out.Profile = profile
				state = stateSuccess
				break
			}
			lastErr = asFetchError(profileURL, err)

			switch {
			case ctx.Err() != nil:
				state = stateRetriesExhausted
			case lastErr.Kind == fetcher.KindPermanent:
				state = statePermanentFailure
			case out.Attempts >= p.cfg.MaxAttempts:
				state = stateRetriesExhausted
			default:
				state = stateRetryWait
			}

		case stateRetryWait:
			delay := p.backoff(out.Attempts - 1)
			zap.L().Debug("pipeline: retrying fetch",
				zap.String("url", profileURL),
				zap.Int("attempt", out.Attempts),
				zap.Duration("backoff", delay),
				zap.Error(lastErr),
			)
			if err := p.sleep(ctx, delay); err != nil {
				state = stateRetriesExhausted
				break
			}
			state = stateAttempting

		case stateSuccess:
			return out

		case statePermanentFailure, stateRetriesExhausted:
			out.Err = lastErr
			return out
		}
	}
}

// backoff computes the delay before retry number attempt (0-based), with
// exponential growth and jitter.
func (p *RetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.cfg.InitialBackoff) * math.Pow(p.cfg.Multiplier, float64(attempt))
	if delay > float64(p.cfg.MaxBackoff) {
		delay = float64(p.cfg.MaxBackoff)
	}

	if p.cfg.JitterFraction > 0 {
		jitterRange := delay * p.cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// asFetchError normalizes any fetcher error into a *FetchError, classifying
// untyped errors by their transport characteristics.
func asFetchError(profileURL string, err error) *fetcher.FetchError {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if fetcher.IsTransient(err) {
		return fetcher.Transient(profileURL, err.Error(), err)
	}
	return fetcher.Permanent(profileURL, err.Error(), err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
