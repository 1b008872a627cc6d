package domain

import "time"

// OrderHeader is the RMS order row the converter produces and the
// writer creates or updates.
type OrderHeader struct {
	StoreID               int
	Time                  time.Time
	Type                  int // 1 = sale
	CustomerID            *int64
	Total                 Money
	Tax                   Money
	Deposit               Money
	ShippingChargeOnOrder Money
	ReferenceNumber       OrderReference
	ChannelType           int // 2 = storefront, constant
	Closed                int // 0 = open

	// Cache fields, for search/debug only — never used for linkage.
	CustomerEmail    string
	ShopifyOrderID   string
	ShopifyOrderName string
}

// OrderEntry is one RMS order line, including the synthesized
// shipping entry.
type OrderEntry struct {
	ID              int64 // zero until persisted
	OrderID         int64
	ItemID          int64
	Price           Money // unit, post-discount
	FullPrice       Money // unit, pre-discount
	Cost            *Money
	QuantityOnOrder decimal2
	QuantityRTD     decimal2
	Taxable         int // 0/1
	Description     string

	// Ops codes carried through reconciliation with domain defaults;
	// preserved verbatim when an entry is updated to zero (shipping
	// removed) rather than deleted.
	SalesRepID            int
	DiscountReasonCodeID  int
	ReturnReasonCodeID    int
	IsAddMoney            bool
	VoucherID             int
	Comment               string
	PriceSource           int
}

// decimal2 is an alias kept distinct from Money for documentation
// purposes: quantities are still shopspring/decimal values but are
// never summed as currency.
type decimal2 = Money

// OrderHistory is an append-only RMS audit row. Not required on every
// path; where written it must share the OrderWriter transaction.
type OrderHistory struct {
	OrderID           int64
	Date              time.Time
	DeltaDeposit      Money
	TransactionNumber string
	Comment           string

	StoreID   int
	BatchID   int
	CashierID int
}

// CustomerRecord is the RMS customer row. Email is unique per live
// customer; lookup-before-insert is the only creation path.
type CustomerRecord struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   *Address
}

// OrderRow is the minimal existing-order shape RmsStore.FindOrderByReference
// returns, enough to drive OrderWriter's create-vs-update decision.
type OrderRow struct {
	ID              int64
	ReferenceNumber OrderReference
}
