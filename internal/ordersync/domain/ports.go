package domain

import "context"

// StorefrontGateway is the opaque contract the core consumes for
// reading storefront orders. Implementations encode RecentOrdersFilter
// into their native query syntax (GraphQL/REST) and are responsible
// for honoring the colon-offset cutoff serialization.
type StorefrontGateway interface {
	FetchRecentOrders(ctx context.Context, filter RecentOrdersFilter, pageSize int, cursor string) (RecentOrdersPage, error)
	FetchOrderByID(ctx context.Context, externalID string) (*StorefrontOrder, error)
}

// Session is an explicit, session-scoped RMS transaction handle.
// Implementations guarantee commit or rollback on every exit path.
type Session interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RmsStore is the session-scoped transactional contract the core
// consumes. batchCheckOrderExistence and findCustomerByEmail run
// outside any transaction; everything else that mutates state takes
// an explicit Session.
type RmsStore interface {
	BeginSession(ctx context.Context) (Session, error)

	FindOrderByReference(ctx context.Context, ref OrderReference) (*OrderRow, error)
	BatchCheckOrderExistence(ctx context.Context, refs []OrderReference) (map[OrderReference]bool, error)

	CreateOrder(ctx context.Context, header OrderHeader, session Session) (int64, error)
	UpdateOrder(ctx context.Context, id int64, header OrderHeader, session Session) error

	ListOrderEntries(ctx context.Context, orderID int64, session Session) ([]OrderEntry, error)
	CreateOrderEntry(ctx context.Context, entry OrderEntry, session Session) (int64, error)
	UpdateOrderEntry(ctx context.Context, id int64, entry OrderEntry, session Session) error
	DeleteOrderEntry(ctx context.Context, id int64, session Session) error

	FindCustomerByEmail(ctx context.Context, email string) (*CustomerRecord, error)
	CreateCustomer(ctx context.Context, fields CustomerRecord) (int64, error)

	ResolveItemIDBySku(ctx context.Context, sku string) (*int64, error)
}

// SkuResolver is the narrow dependency OrderConverter needs — a
// function, not the full RmsStore contract, so the converter itself
// does no I/O. Convert calls it once per line item; any lookup it
// performs (OrderPoller's resolver queries RmsStore.ResolveItemIDBySku)
// belongs to the caller-supplied function.
type SkuResolver func(sku string) (itemID int64, ok bool)
