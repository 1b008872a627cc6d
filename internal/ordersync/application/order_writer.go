// Package application orchestrates the order sync pipeline: the
// atomic writer, the per-cycle poller, and the orchestrator that owns
// their lifecycle and cumulative statistics.
package application

import (
	"context"

	"github.com/qhato/ecommerce/pkg/logging"
	"github.com/shopspring/decimal"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
)

// WriteAction distinguishes the two outcomes OrderWriter.Upsert can
// produce.
type WriteAction string

const (
	WriteActionCreated WriteAction = "created"
	WriteActionUpdated WriteAction = "updated"
)

// WriteResult is what OrderWriter.Upsert returns.
type WriteResult struct {
	Action  WriteAction
	OrderID int64
	Updated int
	Created int
	Deleted int
}

// OrderWriter performs the atomic create-or-update spec §4.8 defines,
// always inside a single RmsStore session.
type OrderWriter struct {
	store          domain.RmsStore
	shippingItemID int64
	log            logging.Logger
}

// NewOrderWriter builds a writer bound to a store.
func NewOrderWriter(store domain.RmsStore, shippingItemID int64, log logging.Logger) *OrderWriter {
	if log == nil {
		log = logging.NewNoopLogger()
	}
	return &OrderWriter{store: store, shippingItemID: shippingItemID, log: log}
}

// Upsert implements spec §4.8. existingOrderID is nil for a create.
func (w *OrderWriter) Upsert(ctx context.Context, existingOrderID *int64, header domain.OrderHeader, entries []domain.OrderEntry) (WriteResult, error) {
	session, err := w.store.BeginSession(ctx)
	if err != nil {
		return WriteResult{}, err
	}

	result, err := w.upsertInSession(ctx, session, existingOrderID, header, entries)
	if err != nil {
		_ = session.Rollback(ctx)
		return WriteResult{}, err
	}
	if commitErr := session.Commit(ctx); commitErr != nil {
		return WriteResult{}, commitErr
	}
	return result, nil
}

func (w *OrderWriter) upsertInSession(ctx context.Context, session domain.Session, existingOrderID *int64, header domain.OrderHeader, entries []domain.OrderEntry) (WriteResult, error) {
	if existingOrderID == nil {
		id, err := w.store.CreateOrder(ctx, header, session)
		if err != nil {
			return WriteResult{}, err
		}
		for i := range entries {
			entries[i].OrderID = id
			if _, err := w.store.CreateOrderEntry(ctx, entries[i], session); err != nil {
				return WriteResult{}, err
			}
		}
		return WriteResult{Action: WriteActionCreated, OrderID: id, Created: len(entries)}, nil
	}

	id := *existingOrderID
	if err := w.store.UpdateOrder(ctx, id, header, session); err != nil {
		return WriteResult{}, err
	}

	existing, err := w.store.ListOrderEntries(ctx, id, session)
	if err != nil {
		return WriteResult{}, err
	}
	existingByItem := make(map[int64]domain.OrderEntry, len(existing))
	for _, e := range existing {
		existingByItem[e.ItemID] = e
	}

	convertedItemIDs := make(map[int64]struct{}, len(entries))
	var updated, created int
	for _, entry := range entries {
		convertedItemIDs[entry.ItemID] = struct{}{}
		entry.OrderID = id
		if existingEntry, ok := existingByItem[entry.ItemID]; ok {
			entry.ID = existingEntry.ID
			if err := w.store.UpdateOrderEntry(ctx, existingEntry.ID, entry, session); err != nil {
				return WriteResult{}, err
			}
			updated++
		} else {
			if _, err := w.store.CreateOrderEntry(ctx, entry, session); err != nil {
				return WriteResult{}, err
			}
			created++
		}
	}

	// Defensive check (spec §4.8 step 3d): the converter should have
	// added the shipping entry whenever there is a shipping charge.
	if header.ShippingChargeOnOrder.IsPositive() {
		if _, ok := convertedItemIDs[w.shippingItemID]; !ok {
			w.log.Warn("order has a shipping charge but no shipping entry in the converted set",
				logging.String("reference", header.ReferenceNumber.String()),
				logging.Int64("order_id", id),
			)
		}
	}

	var deleted int
	for _, existingEntry := range existing {
		if _, stillPresent := convertedItemIDs[existingEntry.ItemID]; stillPresent {
			continue
		}
		if existingEntry.ItemID == w.shippingItemID {
			// Shipping-removed-after-first-sync rule: update to zero,
			// never delete.
			zeroed := existingEntry
			zeroed.Price = decimal.Zero
			zeroed.FullPrice = decimal.Zero
			zeroed.QuantityOnOrder = decimal.Zero
			zeroed.QuantityRTD = decimal.Zero
			if err := w.store.UpdateOrderEntry(ctx, existingEntry.ID, zeroed, session); err != nil {
				return WriteResult{}, err
			}
			continue
		}
		if err := w.store.DeleteOrderEntry(ctx, existingEntry.ID, session); err != nil {
			return WriteResult{}, err
		}
		deleted++
	}

	return WriteResult{Action: WriteActionUpdated, OrderID: id, Updated: updated, Created: created, Deleted: deleted}, nil
}
