// Package resync provides the retry, circuit-breaker, and error
// aggregation fabric shared by every remote call the order sync
// pipeline makes (storefront gateway, RMS store).
package resync

import (
	"sync"
	"time"

	"github.com/qhato/ecommerce/pkg/logging"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures threshold and timing behavior for a
// single named breaker.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures to trip Closed -> Open
	SuccessThreshold int           // consecutive successes to close HalfOpen -> Closed
	ResetTimeout     time.Duration // time Open must elapse before allowing a probe
	OpTimeout        time.Duration // per-attempt timeout RetryExecutor applies while this breaker is attached
}

// CircuitBreakerStats is a point-in-time snapshot of a breaker.
type CircuitBreakerStats struct {
	Name               string
	State              State
	ConsecutiveFails   int
	ConsecutiveSuccess int
	LastFailure        time.Time
	LastStateChange    time.Time
}

// CircuitBreaker is a mutex-guarded three-state breaker. Closed allows
// calls; Open refuses them until ResetTimeout elapses, after which the
// next call is let through as a HalfOpen probe; HalfOpen closes again
// after SuccessThreshold consecutive successes, or reopens on the
// first failure.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	log logging.Logger

	mu                 sync.Mutex
	state              State
	consecutiveFails   int
	consecutiveSuccess int
	lastFailure        time.Time
	lastStateChange    time.Time
}

// NewCircuitBreaker builds a breaker with defaults filled in for any
// zero-valued config field.
func NewCircuitBreaker(cfg CircuitBreakerConfig, log logging.Logger) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 30 * time.Second
	}
	if log == nil {
		log = logging.NewNoopLogger()
	}
	return &CircuitBreaker{
		cfg:             cfg,
		log:             log,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// CanExecute reports whether a call is currently allowed. In Open
// state it transitions to HalfOpen once the reset timeout has elapsed
// and then returns true for that single probe call.
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(b.lastFailure) >= b.cfg.ResetTimeout {
			b.setState(StateHalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess registers a successful call outcome.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	switch b.state {
	case StateHalfOpen:
		b.consecutiveSuccess++
		if b.consecutiveSuccess >= b.cfg.SuccessThreshold {
			b.setState(StateClosed)
		}
	case StateClosed:
		// no-op, already closed
	}
}

// RecordFailure registers a failed call outcome.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	b.consecutiveSuccess = 0

	switch b.state {
	case StateHalfOpen:
		b.setState(StateOpen)
	case StateClosed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.cfg.FailureThreshold {
			b.setState(StateOpen)
		}
	}
}

// setState must be called with mu held.
func (b *CircuitBreaker) setState(s State) {
	if b.state == s {
		return
	}
	prev := b.state
	b.state = s
	b.lastStateChange = time.Now()
	if s == StateClosed {
		b.consecutiveFails = 0
		b.consecutiveSuccess = 0
	}
	b.log.Info("circuit breaker state change",
		logging.String("breaker", b.cfg.Name),
		logging.String("from", prev.String()),
		logging.String("to", s.String()),
	)
}

// State returns the current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OpTimeout returns the per-attempt timeout RetryExecutor should apply
// while this breaker is attached.
func (b *CircuitBreaker) OpTimeout() time.Duration {
	return b.cfg.OpTimeout
}

// Stats returns a snapshot for metrics/diagnostics.
func (b *CircuitBreaker) Stats() CircuitBreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CircuitBreakerStats{
		Name:               b.cfg.Name,
		State:              b.state,
		ConsecutiveFails:   b.consecutiveFails,
		ConsecutiveSuccess: b.consecutiveSuccess,
		LastFailure:        b.lastFailure,
		LastStateChange:    b.lastStateChange,
	}
}

// Reset forces the breaker back to Closed, clearing all counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
}

// Manager is a registry of named breakers, mirroring how the three
// named RetryExecutor policies (Storefront/Rms/Sync) each own their
// own breaker instance (or none, for Sync).
type Manager struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	log      logging.Logger
}

// NewManager creates an empty breaker registry.
func NewManager(log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNoopLogger()
	}
	return &Manager{breakers: make(map[string]*CircuitBreaker), log: log}
}

// GetOrCreate returns the named breaker, creating it with cfg on
// first use.
func (m *Manager) GetOrCreate(cfg CircuitBreakerConfig) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[cfg.Name]; ok {
		return b
	}
	b := NewCircuitBreaker(cfg, m.log)
	m.breakers[cfg.Name] = b
	return b
}

// AllStats snapshots every registered breaker, keyed by name.
func (m *Manager) AllStats() map[string]CircuitBreakerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]CircuitBreakerStats, len(m.breakers))
	for name, b := range m.breakers {
		out[name] = b.Stats()
	}
	return out
}
