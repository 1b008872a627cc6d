package resync

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	apperrors "github.com/qhato/ecommerce/pkg/errors"
	"github.com/qhato/ecommerce/pkg/logging"
)

// RetryPolicy configures backoff and retry classification for one
// RetryExecutor instance.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
	// StopOn is a set of error codes that abort retrying immediately
	// even if the error would otherwise be retryable.
	StopOn map[apperrors.ErrorCode]struct{}
}

// Metrics is a point-in-time snapshot of one executor's counters.
type Metrics struct {
	Attempts    int64
	Successes   int64
	Failures    int64
	Retries     int64
	AvgDuration time.Duration
}

// Executor runs an operation under a named retry policy and an
// optional attached CircuitBreaker.
type Executor struct {
	Name    string
	policy  RetryPolicy
	breaker *CircuitBreaker
	log     logging.Logger

	mu          sync.Mutex
	attempts    int64
	successes   int64
	failures    int64
	retries     int64
	totalDur    time.Duration
	sampleCount int64
}

// NewExecutor builds a RetryExecutor. breaker may be nil (the Sync
// policy has none per spec).
func NewExecutor(name string, policy RetryPolicy, breaker *CircuitBreaker, log logging.Logger) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.ExponentialBase <= 0 {
		policy.ExponentialBase = 2
	}
	if log == nil {
		log = logging.NewNoopLogger()
	}
	return &Executor{Name: name, policy: policy, breaker: breaker, log: log}
}

// Op is the operation RetryExecutor wraps. It must return an
// *apperrors.AppError (or wrap one) on failure so the executor can
// classify retryability and severity; any other error type is treated
// as non-retryable.
type Op func(ctx context.Context) (any, error)

// Execute runs op under this executor's policy and breaker.
func (e *Executor) Execute(ctx context.Context, op Op) (any, error) {
	if e.breaker != nil && !e.breaker.CanExecute() {
		e.recordFailure()
		return nil, apperrors.CircuitOpenErr(e.Name)
	}

	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		start := time.Now()
		result, err := e.runOnce(ctx, op)
		dur := time.Since(start)
		e.recordAttempt(dur)

		if err == nil {
			e.recordSuccess()
			if e.breaker != nil {
				e.breaker.RecordSuccess()
			}
			return result, nil
		}

		lastErr = err
		if e.breaker != nil {
			e.breaker.RecordFailure()
		}

		appErr := asAppError(err)
		if e.shouldStop(appErr, attempt) {
			break
		}

		delay := e.nextDelay(appErr, attempt)
		e.recordRetry()
		select {
		case <-ctx.Done():
			e.recordFailure()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	e.recordFailure()
	return nil, lastErr
}

// runOnce executes a single attempt under a per-attempt timeout equal
// to the attached breaker's OpTimeout, if any.
func (e *Executor) runOnce(ctx context.Context, op Op) (any, error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if e.breaker != nil {
		attemptCtx, cancel = context.WithTimeout(ctx, e.breaker.OpTimeout())
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := op(attemptCtx)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-attemptCtx.Done():
		return nil, apperrors.TransientAPI("operation timed out", attemptCtx.Err())
	}
}

func (e *Executor) shouldStop(appErr *apperrors.AppError, attempt int) bool {
	if attempt >= e.policy.MaxAttempts {
		return true
	}
	if appErr == nil {
		return true
	}
	if _, stop := e.policy.StopOn[appErr.Code]; stop {
		return true
	}
	return !appErr.Retryable
}

// nextDelay honors a rate-limit retry-after hint if present, else
// applies exponential backoff with optional ±10% jitter, both clamped
// to MaxDelay.
func (e *Executor) nextDelay(appErr *apperrors.AppError, attempt int) time.Duration {
	if appErr != nil && appErr.Code == apperrors.ErrCodeRateLimited && appErr.RetryAfter >= 0 {
		d := time.Duration(appErr.RetryAfter) * time.Second
		if d > e.policy.MaxDelay {
			d = e.policy.MaxDelay
		}
		return d
	}

	base := float64(e.policy.BaseDelay) * math.Pow(e.policy.ExponentialBase, float64(attempt-1))
	d := time.Duration(base)
	if d > e.policy.MaxDelay {
		d = e.policy.MaxDelay
	}
	if e.policy.Jitter {
		jitterRange := float64(d) * 0.10
		offset := (rand.Float64()*2 - 1) * jitterRange
		d = time.Duration(float64(d) + offset)
		if d < 0 {
			d = 0
		}
	}
	return d
}

func asAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func (e *Executor) recordAttempt(dur time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts++
	e.totalDur += dur
	e.sampleCount++
}

func (e *Executor) recordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.successes++
}

func (e *Executor) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures++
}

func (e *Executor) recordRetry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retries++
}

// Metrics returns a snapshot of this executor's counters.
func (e *Executor) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	var avg time.Duration
	if e.sampleCount > 0 {
		avg = e.totalDur / time.Duration(e.sampleCount)
	}
	return Metrics{
		Attempts:    e.attempts,
		Successes:   e.successes,
		Failures:    e.failures,
		Retries:     e.retries,
		AvgDuration: avg,
	}
}

// BreakerStats exposes the attached breaker's stats, if any.
func (e *Executor) BreakerStats() (CircuitBreakerStats, bool) {
	if e.breaker == nil {
		return CircuitBreakerStats{}, false
	}
	return e.breaker.Stats(), true
}

// NamedPolicies builds the three named RetryExecutor instances the
// order sync pipeline requires at startup: Storefront, Rms, and Sync.
func NamedPolicies(log logging.Logger) (storefront, rms, sync *Executor) {
	manager := NewManager(log)

	storefrontBreaker := manager.GetOrCreate(CircuitBreakerConfig{
		Name:             "storefront",
		FailureThreshold: 10,
		SuccessThreshold: 1,
		ResetTimeout:     60 * time.Second,
		OpTimeout:        180 * time.Second,
	})
	storefront = NewExecutor("storefront", RetryPolicy{
		MaxAttempts:     3,
		BaseDelay:       1 * time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2,
		Jitter:          true,
		StopOn: map[apperrors.ErrorCode]struct{}{
			apperrors.ErrCodeUnauthorized: {},
			apperrors.ErrCodePermanentAPI: {},
		},
	}, storefrontBreaker, log)

	rmsBreaker := manager.GetOrCreate(CircuitBreakerConfig{
		Name:             "rms",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		ResetTimeout:     300 * time.Second,
		OpTimeout:        45 * time.Second,
	})
	rms = NewExecutor("rms", RetryPolicy{
		MaxAttempts:     3,
		BaseDelay:       2 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2,
		Jitter:          true,
		StopOn: map[apperrors.ErrorCode]struct{}{
			apperrors.ErrCodeConstraintViolation: {},
		},
	}, rmsBreaker, log)

	sync = NewExecutor("sync", RetryPolicy{
		MaxAttempts:     2,
		BaseDelay:       5 * time.Second,
		MaxDelay:        120 * time.Second,
		ExponentialBase: 2,
		Jitter:          true,
	}, nil, log)

	return storefront, rms, sync
}
