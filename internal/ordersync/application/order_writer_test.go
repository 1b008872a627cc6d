package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
	"github.com/qhato/ecommerce/pkg/testutil"
)

// fakeSession is a no-op Session: fakeRmsStore applies writes
// immediately, so commit/rollback only need to record which happened.
type fakeSession struct {
	committed   bool
	rolledBack  bool
}

func (s *fakeSession) Commit(ctx context.Context) error   { s.committed = true; return nil }
func (s *fakeSession) Rollback(ctx context.Context) error { s.rolledBack = true; return nil }

// fakeRmsStore is an in-memory RmsStore covering exactly what
// OrderWriter touches: orders and their entries. Customer lookup/create
// are unused here and panic if called.
type fakeRmsStore struct {
	nextOrderID int64
	nextEntryID int64
	orders      map[int64]domain.OrderHeader
	entries     map[int64][]domain.OrderEntry // orderID -> entries

	failCreateEntryForItem int64 // if nonzero, CreateOrderEntry fails for this item id
}

func newFakeRmsStore() *fakeRmsStore {
	return &fakeRmsStore{
		nextOrderID: 1,
		nextEntryID: 1,
		orders:      make(map[int64]domain.OrderHeader),
		entries:     make(map[int64][]domain.OrderEntry),
	}
}

func (s *fakeRmsStore) BeginSession(ctx context.Context) (domain.Session, error) {
	return &fakeSession{}, nil
}

func (s *fakeRmsStore) FindOrderByReference(ctx context.Context, ref domain.OrderReference) (*domain.OrderRow, error) {
	for id, h := range s.orders {
		if h.ReferenceNumber == ref {
			return &domain.OrderRow{ID: id, ReferenceNumber: ref}, nil
		}
	}
	return nil, nil
}

func (s *fakeRmsStore) BatchCheckOrderExistence(ctx context.Context, refs []domain.OrderReference) (map[domain.OrderReference]bool, error) {
	panic("unused")
}

func (s *fakeRmsStore) CreateOrder(ctx context.Context, header domain.OrderHeader, session domain.Session) (int64, error) {
	id := s.nextOrderID
	s.nextOrderID++
	s.orders[id] = header
	return id, nil
}

func (s *fakeRmsStore) UpdateOrder(ctx context.Context, id int64, header domain.OrderHeader, session domain.Session) error {
	s.orders[id] = header
	return nil
}

func (s *fakeRmsStore) ListOrderEntries(ctx context.Context, orderID int64, session domain.Session) ([]domain.OrderEntry, error) {
	return append([]domain.OrderEntry(nil), s.entries[orderID]...), nil
}

func (s *fakeRmsStore) CreateOrderEntry(ctx context.Context, entry domain.OrderEntry, session domain.Session) (int64, error) {
	if s.failCreateEntryForItem != 0 && entry.ItemID == s.failCreateEntryForItem {
		return 0, errBoom
	}
	entry.ID = s.nextEntryID
	s.nextEntryID++
	s.entries[entry.OrderID] = append(s.entries[entry.OrderID], entry)
	return entry.ID, nil
}

func (s *fakeRmsStore) UpdateOrderEntry(ctx context.Context, id int64, entry domain.OrderEntry, session domain.Session) error {
	list := s.entries[entry.OrderID]
	for i, e := range list {
		if e.ID == id {
			entry.ID = id
			list[i] = entry
			return nil
		}
	}
	return errBoom
}

func (s *fakeRmsStore) DeleteOrderEntry(ctx context.Context, id int64, session domain.Session) error {
	for orderID, list := range s.entries {
		for i, e := range list {
			if e.ID == id {
				s.entries[orderID] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return errBoom
}

func (s *fakeRmsStore) FindCustomerByEmail(ctx context.Context, email string) (*domain.CustomerRecord, error) {
	panic("unused")
}
func (s *fakeRmsStore) CreateCustomer(ctx context.Context, fields domain.CustomerRecord) (int64, error) {
	panic("unused")
}
func (s *fakeRmsStore) ResolveItemIDBySku(ctx context.Context, sku string) (*int64, error) {
	panic("unused")
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}

const shippingItemID = int64(9999)

func TestOrderWriter_Upsert_CreatesNewOrderWithEntries(t *testing.T) {
	// Arrange
	store := newFakeRmsStore()
	writer := NewOrderWriter(store, shippingItemID, nil)
	header := domain.OrderHeader{ReferenceNumber: "SHOPIFY-1", Total: decimal.NewFromInt(100)}
	entries := []domain.OrderEntry{{ItemID: 1, Price: decimal.NewFromInt(100), QuantityOnOrder: decimal.NewFromInt(1)}}

	// Act
	result, err := writer.Upsert(context.Background(), nil, header, entries)

	// Assert
	testutil.AssertNoError(t, err, "create should succeed")
	testutil.AssertEqual(t, result.Action, WriteActionCreated, "action")
	testutil.AssertEqual(t, result.Created, 1, "created count")
	testutil.AssertLen(t, store.entries[result.OrderID], 1, "stored entries")
}

// TestOrderWriter_Upsert_EditReconciliation implements scenario S3 from
// spec §8: an edit changes a line's quantity and removes another line
// entirely — the survivor is updated in place, the removed one deleted.
func TestOrderWriter_Upsert_EditReconciliation(t *testing.T) {
	// Arrange
	store := newFakeRmsStore()
	writer := NewOrderWriter(store, shippingItemID, nil)
	header := domain.OrderHeader{ReferenceNumber: "SHOPIFY-2", Total: decimal.NewFromInt(200)}
	original := []domain.OrderEntry{
		{ItemID: 1, Price: decimal.NewFromInt(50), QuantityOnOrder: decimal.NewFromInt(1)},
		{ItemID: 2, Price: decimal.NewFromInt(150), QuantityOnOrder: decimal.NewFromInt(1)},
	}
	created, err := writer.Upsert(context.Background(), nil, header, original)
	testutil.AssertNoError(t, err, "initial create should succeed")

	edited := []domain.OrderEntry{
		{ItemID: 1, Price: decimal.NewFromInt(50), QuantityOnOrder: decimal.NewFromInt(3)},
	}

	// Act
	result, err := writer.Upsert(context.Background(), &created.OrderID, header, edited)

	// Assert
	testutil.AssertNoError(t, err, "edit should succeed")
	testutil.AssertEqual(t, result.Action, WriteActionUpdated, "action")
	testutil.AssertEqual(t, result.Updated, 1, "updated count")
	testutil.AssertEqual(t, result.Deleted, 1, "deleted count")
	remaining := store.entries[created.OrderID]
	testutil.AssertLen(t, remaining, 1, "only the surviving item remains")
	testutil.AssertTrue(t, remaining[0].QuantityOnOrder.Equal(decimal.NewFromInt(3)), "quantity updated")
}

// TestOrderWriter_Upsert_ShippingRemovedIsZeroedNotDeleted implements
// scenario S4 from spec §8.
func TestOrderWriter_Upsert_ShippingRemovedIsZeroedNotDeleted(t *testing.T) {
	// Arrange
	store := newFakeRmsStore()
	writer := NewOrderWriter(store, shippingItemID, nil)
	header := domain.OrderHeader{ReferenceNumber: "SHOPIFY-3", ShippingChargeOnOrder: decimal.NewFromInt(5)}
	withShipping := []domain.OrderEntry{
		{ItemID: 1, Price: decimal.NewFromInt(10), QuantityOnOrder: decimal.NewFromInt(1)},
		{ItemID: shippingItemID, Price: decimal.NewFromInt(5), QuantityOnOrder: decimal.NewFromInt(1), Description: "Shipping"},
	}
	created, err := writer.Upsert(context.Background(), nil, header, withShipping)
	testutil.AssertNoError(t, err, "initial create should succeed")

	headerNoShipping := header
	headerNoShipping.ShippingChargeOnOrder = decimal.Zero
	withoutShipping := []domain.OrderEntry{
		{ItemID: 1, Price: decimal.NewFromInt(10), QuantityOnOrder: decimal.NewFromInt(1)},
	}

	// Act
	result, err := writer.Upsert(context.Background(), &created.OrderID, headerNoShipping, withoutShipping)

	// Assert
	testutil.AssertNoError(t, err, "edit should succeed")
	testutil.AssertEqual(t, result.Deleted, 0, "shipping entry must not be counted as deleted")
	remaining := store.entries[created.OrderID]
	testutil.AssertLen(t, remaining, 2, "shipping entry stays, zeroed, not removed")
	for _, e := range remaining {
		if e.ItemID == shippingItemID {
			testutil.AssertTrue(t, e.Price.IsZero(), "shipping price zeroed")
			testutil.AssertTrue(t, e.QuantityOnOrder.IsZero(), "shipping quantity zeroed")
		}
	}
}

func TestOrderWriter_Upsert_PropagatesEntryFailure(t *testing.T) {
	// Arrange
	store := newFakeRmsStore()
	store.failCreateEntryForItem = 2
	writer := NewOrderWriter(store, shippingItemID, nil)
	header := domain.OrderHeader{ReferenceNumber: "SHOPIFY-4"}
	entries := []domain.OrderEntry{
		{ItemID: 1, Price: decimal.NewFromInt(10), QuantityOnOrder: decimal.NewFromInt(1)},
		{ItemID: 2, Price: decimal.NewFromInt(20), QuantityOnOrder: decimal.NewFromInt(1)},
	}

	// Act
	_, err := writer.Upsert(context.Background(), nil, header, entries)

	// Assert
	testutil.AssertError(t, err, "partial failure should surface an error")
}
