// Package domain holds the pure types and rules the order sync
// pipeline operates on: the storefront order DTO, the RMS row shapes
// it is converted into, and the conversion/resolution rules
// themselves. Nothing in this package performs I/O.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialStatus mirrors the storefront's order financial state.
type FinancialStatus string

const (
	FinancialStatusPending           FinancialStatus = "PENDING"
	FinancialStatusAuthorized        FinancialStatus = "AUTHORIZED"
	FinancialStatusPartiallyPaid     FinancialStatus = "PARTIALLY_PAID"
	FinancialStatusPaid              FinancialStatus = "PAID"
	FinancialStatusPartiallyRefunded FinancialStatus = "PARTIALLY_REFUNDED"
	FinancialStatusRefunded          FinancialStatus = "REFUNDED"
	FinancialStatusVoided            FinancialStatus = "VOIDED"
)

// TransactionKind mirrors the storefront's payment transaction kind.
type TransactionKind string

const (
	TransactionKindAuthorization TransactionKind = "AUTHORIZATION"
	TransactionKindSale          TransactionKind = "SALE"
	TransactionKindCapture       TransactionKind = "CAPTURE"
	TransactionKindRefund        TransactionKind = "REFUND"
	TransactionKindVoid          TransactionKind = "VOID"
)

// TransactionStatus mirrors the storefront's transaction outcome.
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusFailure TransactionStatus = "FAILURE"
)

// Money is a two-decimal fixed-point amount. All StorefrontOrder and
// RMS monetary fields use this type; no field in this package is a
// float.
type Money = decimal.Decimal

// Transaction is one payment event on a storefront order.
type Transaction struct {
	Kind   TransactionKind
	Status TransactionStatus
	Test   bool
	Amount Money
}

// Customer is the optional customer payload attached to a storefront order.
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Address is a minimal billing/shipping address shape; only the
// fields CustomerResolver forwards to RMS customer creation are kept.
type Address struct {
	Address1 string
	Address2 string
	City     string
	Province string
	Country  string
	Zip      string
}

// LineItem is one ordered line on a storefront order.
type LineItem struct {
	ExternalID           string
	Title                string
	SKU                  string
	Quantity             int
	Taxable              bool
	UnitPriceOriginal    Money
	UnitPriceDiscounted  Money
	VariantID            string
	ProductID            string
}

// ShippingLine is the optional shipping charge on a storefront order.
type ShippingLine struct {
	Title           string
	Code            string
	DiscountedPrice Money
}

// Totals bundles the order-level monetary fields.
type Totals struct {
	Total     Money
	Subtotal  Money
	Tax       Money
	Shipping  Money
	Discounts Money
}

// StorefrontOrder is the opaque input DTO the gateway returns. The
// converter consumes exactly these named fields.
type StorefrontOrder struct {
	ExternalID        string // GID, e.g. gid://shopify/Order/123456789
	LegacyID          string // numeric string, e.g. "123456789"
	Name              string // e.g. "#1001"
	CreatedAt         time.Time
	UpdatedAt         time.Time
	FinancialStatus   FinancialStatus
	FulfillmentStatus string
	CancelledAt       *time.Time
	Test              bool
	Totals            Totals
	Customer          *Customer
	BillingAddress    *Address
	ShippingAddress   *Address
	LineItems         []LineItem
	ShippingLine      *ShippingLine
	Transactions      []Transaction
}

// RecentOrdersFilter is the structured predicate StorefrontGateway
// encodes into its native query syntax.
type RecentOrdersFilter struct {
	UpdatedAtCutoff    time.Time
	FinancialStatuses  []FinancialStatus // empty means "no filter"
	FulfillmentStatuses []string
	IncludeTestOrders  bool
}

// CutoffRFC3339 serializes the filter's cutoff in UTC with an explicit
// colon-separated offset (e.g. 2025-01-23T15:30:00+00:00). The layout
// is spelled out because Go's time.RFC3339 writes a UTC time with a
// "Z" suffix instead of "+00:00".
func (f RecentOrdersFilter) CutoffRFC3339() string {
	return f.UpdatedAtCutoff.UTC().Format("2006-01-02T15:04:05-07:00")
}

// RecentOrdersPage is one page of StorefrontGateway.FetchRecentOrders.
type RecentOrdersPage struct {
	Orders    []StorefrontOrder
	EndCursor string
	HasNext   bool
}
