package application

import (
	"context"
	"time"

	apperrors "github.com/qhato/ecommerce/pkg/errors"
	"github.com/qhato/ecommerce/pkg/logging"
	"github.com/qhato/ecommerce/pkg/resync"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
)

// PollOptions is the input to OrderPoller.PollAndSync, per spec §4.9
// and the "opts" shape named in spec §6.
type PollOptions struct {
	LookbackMinutes     int
	BatchSize           int // <= 250
	MaxPages            int
	DryRun              bool
	IncludeTestOrders   bool
	FinancialStatuses   []domain.FinancialStatus
	FulfillmentStatuses []string
}

// Clock is the seam PollAndSync uses for "now", so tests can pin it.
type Clock func() time.Time

// OrderPoller is the cycle driver: fetch -> existence check -> resolve
// -> convert -> write, for every order in the fetched window.
type OrderPoller struct {
	gateway    domain.StorefrontGateway
	store      domain.RmsStore
	resolver   *domain.CustomerResolver
	writer     *OrderWriter
	converterCfg domain.ConverterConfig

	storefrontExec *resync.Executor
	rmsExec        *resync.Executor
	syncExec       *resync.Executor

	log   logging.Logger
	clock Clock
}

// NewOrderPoller wires the poller's collaborators.
func NewOrderPoller(
	gateway domain.StorefrontGateway,
	store domain.RmsStore,
	resolver *domain.CustomerResolver,
	writer *OrderWriter,
	converterCfg domain.ConverterConfig,
	storefrontExec, rmsExec, syncExec *resync.Executor,
	log logging.Logger,
) *OrderPoller {
	if log == nil {
		log = logging.NewNoopLogger()
	}
	if storefrontExec == nil {
		storefrontExec = resync.NewExecutor("storefront", resync.RetryPolicy{MaxAttempts: 1}, nil, log)
	}
	if rmsExec == nil {
		rmsExec = resync.NewExecutor("rms", resync.RetryPolicy{MaxAttempts: 1}, nil, log)
	}
	if syncExec == nil {
		syncExec = resync.NewExecutor("sync", resync.RetryPolicy{MaxAttempts: 1}, nil, log)
	}
	return &OrderPoller{
		gateway: gateway, store: store, resolver: resolver, writer: writer,
		converterCfg: converterCfg,
		storefrontExec: storefrontExec, rmsExec: rmsExec, syncExec: syncExec,
		log: log, clock: time.Now,
	}
}

// PollAndSync implements spec §4.9. It returns only a Report, never an
// error: per-order failures are aggregated and reflected in the
// Report's statistics, and a failure that ends the cycle early is
// reported with status "error".
func (p *OrderPoller) PollAndSync(ctx context.Context, opts PollOptions, agg *resync.ErrorAggregator) Report {
	start := p.clock()

	filter := domain.RecentOrdersFilter{
		UpdatedAtCutoff:     start.Add(-time.Duration(opts.LookbackMinutes) * time.Minute),
		FinancialStatuses:   opts.FinancialStatuses,
		FulfillmentStatuses: opts.FulfillmentStatuses,
		IncludeTestOrders:   opts.IncludeTestOrders,
	}

	orders, breakerOpened, err := p.fetchAllPages(ctx, filter, opts)
	if err != nil && !breakerOpened {
		return p.errorReport(start, err)
	}

	refs := make([]domain.OrderReference, 0, len(orders))
	legacyIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		ref, refErr := domain.ReferenceFor(o)
		if refErr != nil {
			agg.AddWarning("", apperrors.SyncValidationError(refErr.Error()))
			continue
		}
		refs = append(refs, ref)
		legacyIDs = append(legacyIDs, string(ref))
	}

	existence, err := p.checkExistence(ctx, refs)
	if err != nil {
		return p.errorReport(start, err)
	}
	alreadyExists := 0
	for _, exists := range existence {
		if exists {
			alreadyExists++
		}
	}

	if opts.DryRun {
		return Report{
			Status:          "dry_run",
			Timestamp:       start,
			DurationSeconds: roundTo2(p.clock().Sub(start).Seconds()),
			Message:         "dry run: no orders were written",
			Statistics: Statistics{
				TotalPolled:   len(orders),
				AlreadyExists: alreadyExists,
			},
			NewOrderIDs: legacyIDs,
		}
	}

	var newlySynced, updated, syncErrors int
	for _, order := range orders {
		if err := p.syncOne(ctx, order, agg); err != nil {
			syncErrors++
			continue
		}
		ref, _ := domain.ReferenceFor(order)
		if existence[ref] {
			updated++
		} else {
			newlySynced++
		}
		agg.IncrementProcessed()
	}

	status := "success"
	message := "poll cycle completed"
	if breakerOpened {
		status = "error"
		message = "storefront circuit breaker opened mid-cycle; remaining orders were skipped"
	}

	return Report{
		Status:          status,
		Timestamp:       start,
		DurationSeconds: roundTo2(p.clock().Sub(start).Seconds()),
		Message:         message,
		Statistics: Statistics{
			TotalPolled:   len(orders),
			AlreadyExists: alreadyExists,
			NewlySynced:   newlySynced,
			Updated:       updated,
			SyncErrors:    syncErrors,
			SuccessRate:   successRate(newlySynced, updated, syncErrors),
		},
	}
}

// fetchAllPages implements spec §4.9 steps 1-4: cursor-paginated fetch
// bounded by maxPages. breakerOpened is true if the storefront breaker
// tripped mid-pagination (spec §7: remaining orders are marked
// skipped and the cycle ends with status "error").
func (p *OrderPoller) fetchAllPages(ctx context.Context, filter domain.RecentOrdersFilter, opts PollOptions) ([]domain.StorefrontOrder, bool, error) {
	var orders []domain.StorefrontOrder
	if opts.BatchSize <= 0 {
		return orders, false, nil
	}

	cursor := ""
	for pages := 0; pages < opts.MaxPages; pages++ {
		result, err := p.storefrontExec.Execute(ctx, func(ctx context.Context) (any, error) {
			return p.gateway.FetchRecentOrders(ctx, filter, opts.BatchSize, cursor)
		})
		if err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrCodeCircuitOpen {
				return orders, true, err
			}
			return orders, false, err
		}

		page := result.(domain.RecentOrdersPage)
		orders = append(orders, page.Orders...)
		if !page.HasNext || len(page.Orders) == 0 {
			break
		}
		cursor = page.EndCursor
	}
	return orders, false, nil
}

func (p *OrderPoller) checkExistence(ctx context.Context, refs []domain.OrderReference) (map[domain.OrderReference]bool, error) {
	if len(refs) == 0 {
		return map[domain.OrderReference]bool{}, nil
	}
	result, err := p.rmsExec.Execute(ctx, func(ctx context.Context) (any, error) {
		return p.store.BatchCheckOrderExistence(ctx, refs)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[domain.OrderReference]bool), nil
}

// syncOne resolves the customer, converts the order, and writes it,
// aggregating any failure instead of aborting the cycle.
func (p *OrderPoller) syncOne(ctx context.Context, order domain.StorefrontOrder, agg *resync.ErrorAggregator) error {
	ref, err := domain.ReferenceFor(order)
	if err != nil {
		agg.AddError("", apperrors.SyncValidationError(err.Error()))
		return err
	}

	customerID, err := p.resolver.Resolve(ctx, order.Customer, order.BillingAddress)
	if err != nil {
		agg.AddError(ref.String(), toAppError(err))
		return err
	}

	resolveSku := func(sku string) (int64, bool) {
		itemID, lookupErr := p.store.ResolveItemIDBySku(ctx, sku)
		if lookupErr != nil || itemID == nil {
			return 0, false
		}
		return *itemID, true
	}

	converted, err := domain.Convert(order, customerID, resolveSku, p.converterCfg)
	if err != nil {
		agg.AddError(ref.String(), toAppError(err))
		return err
	}
	for _, w := range converted.Warnings {
		agg.AddWarning(ref.String(), w)
	}

	existing, err := p.store.FindOrderByReference(ctx, ref)
	if err != nil {
		agg.AddError(ref.String(), toAppError(err))
		return err
	}

	var existingID *int64
	if existing != nil {
		existingID = &existing.ID
	}

	_, err = p.syncExec.Execute(ctx, func(ctx context.Context) (any, error) {
		return p.writer.Upsert(ctx, existingID, converted.Header, converted.Entries)
	})
	if err != nil {
		agg.AddError(ref.String(), toAppError(err))
		return err
	}

	return nil
}

func (p *OrderPoller) errorReport(start time.Time, err error) Report {
	return Report{
		Status:          "error",
		Timestamp:       start,
		DurationSeconds: roundTo2(p.clock().Sub(start).Seconds()),
		Message:         "poll cycle failed",
		Error:           err.Error(),
	}
}

func toAppError(err error) *apperrors.AppError {
	return resync.Classify(err)
}
