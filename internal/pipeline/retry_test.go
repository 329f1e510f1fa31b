package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/fetcher"
	"github.com/sells-group/lead-qualifier/internal/model"
)

// scriptedFetcher returns a pre-planned sequence of results per URL.
type scriptedFetcher struct {
	mu      sync.Mutex
	scripts map[string][]error
	calls   map[string]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		scripts: make(map[string][]error),
		calls:   make(map[string]int),
	}
}

// script sets the error sequence for url; a nil entry means success.
func (f *scriptedFetcher) script(url string, errs ...error) {
	f.scripts[url] = errs
}

func (f *scriptedFetcher) Fetch(_ context.Context, url string) (*model.RawProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.calls[url]
	f.calls[url] = n + 1

	script := f.scripts[url]
	if n < len(script) && script[n] != nil {
		return nil, script[n]
	}
	return &model.RawProfile{URL: url, Name: "Profile " + url}, nil
}

func (f *scriptedFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestPolicy(f fetcher.Fetcher, cfg RetryConfig) *RetryPolicy {
	p := NewRetryPolicy(f, cfg)
	p.sleep = noSleep
	return p
}

func TestExecuteFirstAttemptSuccess(t *testing.T) {
	f := newScriptedFetcher()
	p := newTestPolicy(f, DefaultRetryConfig())

	out := p.Execute(context.Background(), "https://example.com/in/a")

	assert.True(t, out.Success())
	assert.Equal(t, 1, out.Attempts)
	assert.Nil(t, out.Err)
	require.NotNil(t, out.Profile)
	assert.Equal(t, "https://example.com/in/a", out.Profile.URL)
}

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	url := "https://example.com/in/flaky"
	f := newScriptedFetcher()
	f.script(url,
		fetcher.Transient(url, "throttled", nil),
		fetcher.Transient(url, "timeout", nil),
		nil,
	)
	p := newTestPolicy(f, DefaultRetryConfig())

	out := p.Execute(context.Background(), url)

	assert.True(t, out.Success())
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, f.callCount(url))
}

func TestExecutePermanentFailsImmediately(t *testing.T) {
	url := "https://example.com/in/gone"
	f := newScriptedFetcher()
	f.script(url,
		fetcher.Permanent(url, "not found", nil),
		nil, // would succeed, must never be reached
	)
	p := newTestPolicy(f, DefaultRetryConfig())

	out := p.Execute(context.Background(), url)

	assert.False(t, out.Success())
	assert.Equal(t, 1, out.Attempts)
	require.NotNil(t, out.Err)
	assert.Equal(t, fetcher.KindPermanent, out.Err.Kind)
	assert.Equal(t, 1, f.callCount(url))
}

func TestExecuteExhaustsRetries(t *testing.T) {
	url := "https://example.com/in/down"
	f := newScriptedFetcher()
	f.script(url,
		fetcher.Transient(url, "throttled", nil),
		fetcher.Transient(url, "throttled", nil),
		fetcher.Transient(url, "throttled", nil),
		nil, // out of budget, must never be reached
	)
	p := newTestPolicy(f, RetryConfig{MaxAttempts: 3})

	out := p.Execute(context.Background(), url)

	assert.False(t, out.Success())
	assert.Equal(t, 3, out.Attempts)
	require.NotNil(t, out.Err)
	assert.Equal(t, fetcher.KindTransient, out.Err.Kind)
	assert.Equal(t, 3, f.callCount(url))
}

func TestExecuteStopsOnCancel(t *testing.T) {
	url := "https://example.com/in/slow"
	f := newScriptedFetcher()
	f.script(url,
		fetcher.Transient(url, "throttled", nil),
		fetcher.Transient(url, "throttled", nil),
		fetcher.Transient(url, "throttled", nil),
	)
	p := NewRetryPolicy(f, RetryConfig{MaxAttempts: 5, InitialBackoff: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := p.Execute(ctx, url)

	assert.False(t, out.Success())
	assert.Equal(t, 1, out.Attempts)
	require.NotNil(t, out.Err)
}

func TestExecuteClassifiesUntypedErrors(t *testing.T) {
	url := "https://example.com/in/odd"
	f := newScriptedFetcher()
	f.script(url, assert.AnError, nil)
	p := newTestPolicy(f, DefaultRetryConfig())

	out := p.Execute(context.Background(), url)

	// assert.AnError has no transient signature, so it is permanent.
	assert.False(t, out.Success())
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, fetcher.KindPermanent, out.Err.Kind)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := NewRetryPolicy(newScriptedFetcher(), RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	})

	assert.Equal(t, 100*time.Millisecond, p.backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.backoff(1))
	assert.Equal(t, 300*time.Millisecond, p.backoff(2))
	assert.Equal(t, 300*time.Millisecond, p.backoff(3))
}

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Multiplier)
}
