package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
	"github.com/qhato/ecommerce/pkg/resync"
	"github.com/qhato/ecommerce/pkg/testutil"
)

// fakeGateway serves RecentOrdersPage results off a preset, already-paged
// slice, so tests can assert exactly how many fetches PollAndSync issues.
type fakeGateway struct {
	pages      [][]domain.StorefrontOrder
	fetchCalls int
}

func (g *fakeGateway) FetchRecentOrders(ctx context.Context, filter domain.RecentOrdersFilter, pageSize int, cursor string) (domain.RecentOrdersPage, error) {
	idx := g.fetchCalls
	g.fetchCalls++
	if idx >= len(g.pages) {
		return domain.RecentOrdersPage{}, nil
	}
	hasNext := idx+1 < len(g.pages)
	endCursor := ""
	if hasNext {
		endCursor = "cursor-" + string(rune('a'+idx))
	}
	return domain.RecentOrdersPage{Orders: g.pages[idx], HasNext: hasNext, EndCursor: endCursor}, nil
}

func (g *fakeGateway) FetchOrderByID(ctx context.Context, externalID string) (*domain.StorefrontOrder, error) {
	panic("unused")
}

// fakePollerStore is a full, in-memory RmsStore for poller-level tests:
// unlike fakeRmsStore in order_writer_test.go, ResolveItemIDBySku and
// BatchCheckOrderExistence are functional here since the poller
// exercises them directly.
type fakePollerStore struct {
	*fakeRmsStore
	skuToItem map[string]int64
	existing  map[domain.OrderReference]int64 // ref -> order id, pre-seeded "already synced" orders
}

func newFakePollerStore() *fakePollerStore {
	return &fakePollerStore{
		fakeRmsStore: newFakeRmsStore(),
		skuToItem:    make(map[string]int64),
		existing:     make(map[domain.OrderReference]int64),
	}
}

func (s *fakePollerStore) BatchCheckOrderExistence(ctx context.Context, refs []domain.OrderReference) (map[domain.OrderReference]bool, error) {
	out := make(map[domain.OrderReference]bool, len(refs))
	for _, r := range refs {
		_, ok := s.existing[r]
		out[r] = ok
	}
	return out, nil
}

func (s *fakePollerStore) ResolveItemIDBySku(ctx context.Context, sku string) (*int64, error) {
	id, ok := s.skuToItem[sku]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func newTestPoller(gateway *fakeGateway, store *fakePollerStore) *OrderPoller {
	resolver := domain.NewCustomerResolver(store, domain.CustomerResolverConfig{AllowGuestOrders: true})
	writer := NewOrderWriter(store, shippingItemID, nil)
	cfg := domain.ConverterConfig{StoreID: 1, OrderType: 1, ShippingItemID: shippingItemID}
	noRetry := resync.RetryPolicy{MaxAttempts: 1}
	storefrontExec := resync.NewExecutor("storefront", noRetry, nil, nil)
	rmsExec := resync.NewExecutor("rms", noRetry, nil, nil)
	syncExec := resync.NewExecutor("sync", noRetry, nil, nil)
	return NewOrderPoller(gateway, store, resolver, writer, cfg, storefrontExec, rmsExec, syncExec, nil)
}

func testOrder(legacyID string, total string) domain.StorefrontOrder {
	d, _ := decimal.NewFromString(total)
	return domain.StorefrontOrder{
		LegacyID:        legacyID,
		FinancialStatus: domain.FinancialStatusPaid,
		CreatedAt:       time.Now(),
		Totals:          domain.Totals{Total: d},
	}
}

func TestOrderPoller_PollAndSync_CreatesNewOrder(t *testing.T) {
	// Arrange
	gateway := &fakeGateway{pages: [][]domain.StorefrontOrder{{testOrder("1", "10.00")}}}
	store := newFakePollerStore()
	poller := newTestPoller(gateway, store)
	agg := resync.NewErrorAggregator()

	// Act
	report := poller.PollAndSync(context.Background(), PollOptions{LookbackMinutes: 60, BatchSize: 50, MaxPages: 5}, agg)

	// Assert
	testutil.AssertEqual(t, report.Status, "success", "status")
	testutil.AssertEqual(t, report.Statistics.NewlySynced, 1, "newly synced")
	testutil.AssertEqual(t, report.Statistics.SyncErrors, 0, "no sync errors")
	testutil.AssertEqual(t, gateway.fetchCalls, 1, "single page fetched")
}

func TestOrderPoller_PollAndSync_DryRunPerformsNoWrites(t *testing.T) {
	// Arrange
	gateway := &fakeGateway{pages: [][]domain.StorefrontOrder{{testOrder("2", "10.00")}}}
	store := newFakePollerStore()
	poller := newTestPoller(gateway, store)
	agg := resync.NewErrorAggregator()

	// Act
	report := poller.PollAndSync(context.Background(), PollOptions{LookbackMinutes: 60, BatchSize: 50, MaxPages: 5, DryRun: true}, agg)

	// Assert
	testutil.AssertEqual(t, report.Status, "dry_run", "status")
	testutil.AssertEqual(t, report.Statistics.TotalPolled, 1, "total polled still counted")
	testutil.AssertLen(t, store.orders, 0, "dry run must not write any order")
}

func TestOrderPoller_PollAndSync_PaginatesAcrossMaxPages(t *testing.T) {
	// Arrange
	gateway := &fakeGateway{pages: [][]domain.StorefrontOrder{
		{testOrder("3", "10.00")},
		{testOrder("4", "20.00")},
		{testOrder("5", "30.00")},
	}}
	store := newFakePollerStore()
	poller := newTestPoller(gateway, store)
	agg := resync.NewErrorAggregator()

	// Act: maxPages caps fetches at 2, so the third page is never read.
	report := poller.PollAndSync(context.Background(), PollOptions{LookbackMinutes: 60, BatchSize: 50, MaxPages: 2}, agg)

	// Assert
	testutil.AssertEqual(t, gateway.fetchCalls, 2, "fetch capped at maxPages")
	testutil.AssertEqual(t, report.Statistics.TotalPolled, 2, "only the fetched pages count")
}

func TestOrderPoller_PollAndSync_ExistingOrderCountsAsUpdated(t *testing.T) {
	// Arrange
	gateway := &fakeGateway{pages: [][]domain.StorefrontOrder{{testOrder("6", "10.00")}}}
	store := newFakePollerStore()
	store.existing["SHOPIFY-6"] = 1
	store.orders[1] = domain.OrderHeader{ReferenceNumber: "SHOPIFY-6"}
	poller := newTestPoller(gateway, store)
	agg := resync.NewErrorAggregator()

	// Act
	report := poller.PollAndSync(context.Background(), PollOptions{LookbackMinutes: 60, BatchSize: 50, MaxPages: 5}, agg)

	// Assert
	testutil.AssertEqual(t, report.Statistics.Updated, 1, "existing order is counted as updated")
	testutil.AssertEqual(t, report.Statistics.NewlySynced, 0, "not counted as new")
	testutil.AssertEqual(t, report.Statistics.AlreadyExists, 1, "existence check reports it as already synced")
}

func TestOrderPoller_PollAndSync_AggregatesConversionFailure(t *testing.T) {
	// Arrange: a negative total fails converter validation.
	bad := testOrder("7", "-5.00")
	gateway := &fakeGateway{pages: [][]domain.StorefrontOrder{{bad}}}
	store := newFakePollerStore()
	poller := newTestPoller(gateway, store)
	agg := resync.NewErrorAggregator()

	// Act
	report := poller.PollAndSync(context.Background(), PollOptions{LookbackMinutes: 60, BatchSize: 50, MaxPages: 5}, agg)

	// Assert
	testutil.AssertEqual(t, report.Statistics.SyncErrors, 1, "invalid order counted as a sync error")
	summary := agg.Summary()
	testutil.AssertTrue(t, summary.WarningCount >= 1, "validation failure recorded in the aggregator")
}
