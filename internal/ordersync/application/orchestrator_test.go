package application

import (
	"context"
	"testing"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
	"github.com/qhato/ecommerce/pkg/resync"
	"github.com/qhato/ecommerce/pkg/testutil"
)

// TestPollingOrchestrator_AccumulatesStatisticsAcrossCycles runs two
// cycles and asserts the cumulative tally is the sum of both, then
// checks ResetStatistics zeroes it. No Redis client is configured, so
// the lease is always granted (single-process mode).
func TestPollingOrchestrator_AccumulatesStatisticsAcrossCycles(t *testing.T) {
	// Arrange
	gateway := &fakeGateway{pages: [][]domain.StorefrontOrder{{testOrder("10", "10.00")}}}
	store := newFakePollerStore()
	poller := newTestPoller(gateway, store)
	orchestrator := NewPollingOrchestrator(poller, nil, OrchestratorConfig{}, nil)
	testutil.AssertNoError(t, orchestrator.Initialize(context.Background()), "initialize should succeed")

	opts := PollOptions{LookbackMinutes: 60, BatchSize: 50, MaxPages: 5}

	// Act: first cycle syncs order 10.
	_, err := orchestrator.PollAndSync(context.Background(), opts)
	testutil.AssertNoError(t, err, "first cycle should succeed")

	// second cycle syncs a different order.
	gateway.pages = [][]domain.StorefrontOrder{{testOrder("11", "20.00")}}
	gateway.fetchCalls = 0
	_, err = orchestrator.PollAndSync(context.Background(), opts)
	testutil.AssertNoError(t, err, "second cycle should succeed")

	// Assert
	stats := orchestrator.Statistics()
	testutil.AssertEqual(t, stats.NewlySynced, 2, "cumulative tally sums both cycles")
	testutil.AssertNotNil(t, stats.LastPollTime, "last poll time recorded")
	testutil.AssertNotNil(t, stats.LastReport, "last report recorded")

	orchestrator.ResetStatistics()
	reset := orchestrator.Statistics()
	testutil.AssertEqual(t, reset.NewlySynced, 0, "reset zeroes the tally")
	testutil.AssertTrue(t, reset.LastPollTime == nil, "reset clears last poll time")

	testutil.AssertNoError(t, orchestrator.Close(context.Background()), "close should succeed")
}

func TestPollingOrchestrator_RaiseIfCriticalSurfacesAggregatorState(t *testing.T) {
	// Arrange: checks resync.ErrorAggregator's critical-raising contract
	// on a fresh aggregator of the kind PollAndSync creates per cycle;
	// no orchestrator or poll cycle is involved.
	agg := resync.NewErrorAggregator()

	// Act / Assert
	testutil.AssertFalse(t, agg.HasCritical(), "fresh aggregator has no critical errors")
	testutil.AssertNoError(t, agg.RaiseIfCritical(), "no critical error to raise")
}
