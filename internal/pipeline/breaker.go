package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// BreakerState is the source-protection circuit state.
type BreakerState int

const (
	// BreakerClosed admits fetches normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects fetches until the reset timeout elapses.
	BreakerOpen
	// BreakerHalfOpen admits a single probe fetch to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls the source-protection breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive transient fetch
	// failures that opens the circuit. 0 disables the breaker.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a half-open
	// probe is admitted. Default: 30s.
	ResetTimeout time.Duration
}

// Breaker pauses fetch issuance when the profile source looks like it is
// actively blocking the run: a streak of transient failures (throttling,
// timeouts) opens the circuit and skipped profiles fail fast instead of
// hammering the source. Permanent failures never trip it; they say
// something about one profile, not about the source.
type Breaker struct {
	cfg BreakerConfig

	mu            sync.Mutex
	state         BreakerState
	consecutive   int
	lastFailure   time.Time
	probeInFlight bool

	now func() time.Time
}

// NewBreaker creates a breaker. With FailureThreshold 0 the breaker is
// disabled and Allow always admits.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: BreakerClosed, now: time.Now}
}

// Allow reports whether a fetch may be issued now.
func (b *Breaker) Allow() bool {
	if b.cfg.FailureThreshold <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
			b.transition(BreakerHalfOpen)
			b.probeInFlight = true
			return true
		}
		return false
	case BreakerHalfOpen:
		// One probe at a time.
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default:
		return true
	}
}

// RecordSuccess notes a successful fetch, closing the circuit.
func (b *Breaker) RecordSuccess() {
	if b.cfg.FailureThreshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutive = 0
	b.probeInFlight = false
	if b.state != BreakerClosed {
		b.transition(BreakerClosed)
	}
}

// RecordTransientFailure notes a transient fetch failure; a streak past the
// threshold opens the circuit.
func (b *Breaker) RecordTransientFailure() {
	if b.cfg.FailureThreshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutive++
	b.lastFailure = b.now()
	b.probeInFlight = false
	if b.state == BreakerHalfOpen || b.consecutive >= b.cfg.FailureThreshold {
		if b.state != BreakerOpen {
			b.transition(BreakerOpen)
		}
	}
}

// State returns the current circuit state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	zap.L().Warn("pipeline: source breaker state change",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("consecutive_failures", b.consecutive),
	)
}
