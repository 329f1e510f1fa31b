package pipeline

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/fetcher"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/scorer"
)

// Options configure a pipeline run.
type Options struct {
	// Concurrency is the maximum number of in-flight fetches. Default: 5.
	Concurrency int
	// RequestDelay is the minimum delay between fetch starts. 0 disables
	// pacing.
	RequestDelay time.Duration
	// Retry controls per-fetch retry behavior.
	Retry RetryConfig
	// Breaker controls source protection. A zero value disables it.
	Breaker BreakerConfig
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 5
	}
	o.Retry = o.Retry.withDefaults()
	return o
}

// event is one unit's contribution to the run statistics, sent to the
// collector goroutine. Exactly one event is emitted per non-abandoned URL.
type event struct {
	index int
	lead  *model.ScoredLead
	err   *fetcher.FetchError
}

// Pipeline runs the fetch-and-score flow for a batch of profile URLs with
// bounded concurrency, pacing, retries, and source protection.
type Pipeline struct {
	fetch  fetcher.Fetcher
	engine *scorer.Engine
	opts   Options
}

// New creates a pipeline over the given fetcher and scoring engine.
func New(fetch fetcher.Fetcher, engine *scorer.Engine, opts Options) *Pipeline {
	return &Pipeline{fetch: fetch, engine: engine, opts: opts.withDefaults()}
}

// Run fetches and scores every profile URL and returns all scored leads in
// descending score order (ties keep input order) together with the run
// statistics. Individual fetch failures are counted, not propagated; Run
// only fails as a whole when the context is canceled before any work can
// complete. Filtering and truncation are the aggregator's job, not Run's.
func (p *Pipeline) Run(ctx context.Context, profileURLs []string) ([]model.ScoredLead, model.RunStats, error) {
	start := time.Now()
	stats := model.RunStats{TotalRequested: len(profileURLs)}
	if len(profileURLs) == 0 {
		stats.Elapsed = time.Since(start)
		return nil, stats, nil
	}

	limiter := NewLimiter(p.opts.Concurrency, p.opts.RequestDelay)
	retry := NewRetryPolicy(p.fetch, p.opts.Retry)
	breaker := NewBreaker(p.opts.Breaker)

	// Buffered to the batch size so workers never block on emission and
	// the collector never blocks a worker.
	events := make(chan event, len(profileURLs))

	type ranked struct {
		index int
		lead  model.ScoredLead
	}

	// The collector goroutine is the sole owner of the mutable run state;
	// workers communicate through the events channel only.
	collected := make([]ranked, 0, len(profileURLs))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.lead != nil {
				stats.Succeeded++
				collected = append(collected, ranked{index: ev.index, lead: *ev.lead})
				continue
			}
			stats.Failed++
			zap.L().Warn("pipeline: profile failed",
				zap.String("url", profileURLs[ev.index]),
				zap.Error(ev.err),
			)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, profileURL := range profileURLs {
		g.Go(func() error {
			if gctx.Err() != nil {
				// Abandoned before starting; contributes nothing.
				return nil
			}

			if !breaker.Allow() {
				events <- event{index: i, err: fetcher.Transient(profileURL, "source breaker open", nil)}
				return nil
			}

			if err := limiter.Acquire(gctx); err != nil {
				// Canceled while queued; abandoned.
				return nil
			}
			outcome := retry.Execute(gctx, profileURL)
			// Free the fetch slot before scoring so CPU work never
			// starves the fetch lanes.
			limiter.Release()

			if !outcome.Success() {
				if outcome.Err != nil && outcome.Err.Kind == fetcher.KindTransient {
					breaker.RecordTransientFailure()
				}
				events <- event{index: i, err: outcome.Err}
				return nil
			}
			breaker.RecordSuccess()

			lead := p.engine.Score(*outcome.Profile)
			events <- event{index: i, lead: &lead}
			return nil
		})
	}

	_ = g.Wait()
	close(events)
	<-done

	sort.SliceStable(collected, func(i, j int) bool {
		if collected[i].lead.TotalScore != collected[j].lead.TotalScore {
			return collected[i].lead.TotalScore > collected[j].lead.TotalScore
		}
		return collected[i].index < collected[j].index
	})

	leads := make([]model.ScoredLead, len(collected))
	for i, r := range collected {
		leads[i] = r.lead
	}

	stats.Elapsed = time.Since(start)
	zap.L().Info("pipeline: run complete",
		zap.Int("requested", stats.TotalRequested),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", stats.Elapsed),
	)

	if err := ctx.Err(); err != nil && stats.Succeeded == 0 && stats.Failed == 0 {
		return nil, stats, err
	}
	return leads, stats, nil
}
