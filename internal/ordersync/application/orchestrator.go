package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/qhato/ecommerce/pkg/logging"
	"github.com/qhato/ecommerce/pkg/resync"
)

// cycleLockKey is the Redis key PollAndSync leases for the duration of
// one cycle, serializing concurrent orchestrator processes.
const cycleLockKey = "ordersync:cycle-lock"

// OrchestratorConfig is the static configuration a PollingOrchestrator
// is initialized with.
type OrchestratorConfig struct {
	CycleLockTTL time.Duration // how long the Redis lease is held
}

// CumulativeStatistics is the lifetime tally PollingOrchestrator.Statistics
// returns, distinct from the per-cycle Statistics embedded in a Report.
type CumulativeStatistics struct {
	TotalPolled   int
	AlreadyExists int
	NewlySynced   int
	Updated       int
	SyncErrors    int
	LastPollTime  *time.Time
	LastReport    *Report
}

// PollingOrchestrator owns the order sync pipeline's lifecycle and its
// cumulative, cross-cycle statistics. It is constructed once per
// process (spec §4.10's "explicit initialize()/close() lifecycle,
// registered in a dependency container") and serializes its own cycles
// against any other orchestrator process sharing the same Redis
// instance, via a SET NX PX lease.
type PollingOrchestrator struct {
	poller *OrderPoller
	redis  *redis.Client
	cfg    OrchestratorConfig
	log    logging.Logger

	mu    sync.Mutex
	stats CumulativeStatistics

	initialized bool
}

// NewPollingOrchestrator builds an orchestrator. redisClient may be nil,
// in which case cycle serialization is skipped (single-process mode) —
// callers running more than one orchestrator process must supply one.
func NewPollingOrchestrator(poller *OrderPoller, redisClient *redis.Client, cfg OrchestratorConfig, log logging.Logger) *PollingOrchestrator {
	if log == nil {
		log = logging.NewNoopLogger()
	}
	if cfg.CycleLockTTL <= 0 {
		cfg.CycleLockTTL = 5 * time.Minute
	}
	return &PollingOrchestrator{poller: poller, redis: redisClient, cfg: cfg, log: log}
}

// Initialize marks the orchestrator initialized and logs it.
// Idempotent. PollAndSync does not check this flag.
func (o *PollingOrchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return nil
	}
	o.initialized = true
	o.log.Info("order sync orchestrator initialized")
	return nil
}

// Close marks the orchestrator closed. Idempotent. It holds no lease
// of its own: each cycle releases its lease when PollAndSync returns.
func (o *PollingOrchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return nil
	}
	o.initialized = false
	o.log.Info("order sync orchestrator closed")
	return nil
}

// PollAndSync acquires the cross-process cycle lease, runs one poll
// cycle, folds its Report into the cumulative statistics, and releases
// the lease. If another process holds the lease, it returns
// immediately with a "skipped" Report rather than blocking — a missed
// cycle is caught by the next scheduled invocation (spec §5's
// serialization requirement, generalized across processes).
func (o *PollingOrchestrator) PollAndSync(ctx context.Context, opts PollOptions) (Report, error) {
	cycleID := uuid.New().String()
	log := o.log.With(logging.String("cycle_id", cycleID))

	token, acquired, err := o.acquireLease(ctx, cycleID)
	if err != nil {
		return Report{}, err
	}
	if !acquired {
		log.Info("skipping poll cycle: another process holds the lease")
		return Report{
			Status:    "skipped",
			Timestamp: time.Now(),
			Message:   "another orchestrator process is already running a cycle",
		}, nil
	}
	defer o.releaseLease(ctx, token)

	agg := resync.NewErrorAggregator()
	report := o.poller.PollAndSync(ctx, opts, agg)

	o.recordCycle(report)
	return report, nil
}

// acquireLease takes the cross-process cycle lock with SET NX PX. When
// no Redis client is configured, it always succeeds — single-process
// deployments don't need cross-process serialization.
func (o *PollingOrchestrator) acquireLease(ctx context.Context, token string) (string, bool, error) {
	if o.redis == nil {
		return token, true, nil
	}
	ok, err := o.redis.SetNX(ctx, cycleLockKey, token, o.cfg.CycleLockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquiring order sync cycle lease: %w", err)
	}
	return token, ok, nil
}

// releaseLease drops the lease only if it still holds the token this
// cycle acquired, so a cycle that outlived its TTL never deletes a
// newer process's lease.
func (o *PollingOrchestrator) releaseLease(ctx context.Context, token string) {
	if o.redis == nil {
		return
	}
	const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end`
	if err := o.redis.Eval(ctx, releaseScript, []string{cycleLockKey}, token).Err(); err != nil {
		o.log.Warn("failed to release order sync cycle lease", logging.Error(err))
	}
}

func (o *PollingOrchestrator) recordCycle(report Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	o.stats.TotalPolled += report.Statistics.TotalPolled
	o.stats.AlreadyExists += report.Statistics.AlreadyExists
	o.stats.NewlySynced += report.Statistics.NewlySynced
	o.stats.Updated += report.Statistics.Updated
	o.stats.SyncErrors += report.Statistics.SyncErrors
	o.stats.LastPollTime = &now
	reportCopy := report
	o.stats.LastReport = &reportCopy
}

// Statistics returns a snapshot of the cumulative, cross-cycle tally.
func (o *PollingOrchestrator) Statistics() CumulativeStatistics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// ResetStatistics zeroes the cumulative tally, per spec §4.10.
func (o *PollingOrchestrator) ResetStatistics() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = CumulativeStatistics{}
}
