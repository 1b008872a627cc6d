package domain

import (
	apperrors "github.com/qhato/ecommerce/pkg/errors"
	"github.com/shopspring/decimal"
)

// ConverterConfig carries the deployment constants the converter
// needs: the RMS store id, order type, and the configured shipping
// item id.
type ConverterConfig struct {
	StoreID        int
	OrderType      int // domain constant, e.g. 1 = sale
	ShippingItemID int64
}

// ConversionResult bundles the converter's output plus any
// SkuUnresolved warnings raised while converting line items (spec
// §4.6 rule 10: unresolved SKUs are skipped with a warning, not a
// hard failure).
type ConversionResult struct {
	Header   OrderHeader
	Entries  []OrderEntry
	Warnings []*apperrors.AppError
}

// Convert is the pure OrderConverter entry point: storefront order +
// resolved customer id + SKU resolver -> (OrderHeader, OrderEntry[]).
// It performs no I/O of its own; SKU lookups go through resolveSku.
func Convert(o StorefrontOrder, customerID *int64, resolveSku SkuResolver, cfg ConverterConfig) (ConversionResult, error) {
	ref, err := ReferenceFor(o)
	if err != nil {
		return ConversionResult{}, apperrors.SyncValidationError(err.Error())
	}

	shippingCharge := decimal.Zero
	if o.ShippingLine != nil {
		shippingCharge = o.ShippingLine.DiscountedPrice
	}

	deposit := computeDeposit(o.FinancialStatus, o.Transactions, o.Totals.Total)

	header := OrderHeader{
		StoreID:               cfg.StoreID,
		Time:                  o.CreatedAt.UTC(),
		Type:                  cfg.OrderType,
		CustomerID:            customerID,
		Total:                 o.Totals.Total,
		Tax:                   o.Totals.Tax,
		Deposit:               deposit,
		ShippingChargeOnOrder: shippingCharge,
		ReferenceNumber:       ref,
		ChannelType:           2,
		Closed:                0,
		ShopifyOrderID:        o.LegacyID,
		ShopifyOrderName:      o.Name,
	}
	if o.Customer != nil {
		header.CustomerEmail = o.Customer.Email
	}

	var entries []OrderEntry
	var warnings []*apperrors.AppError

	for _, li := range o.LineItems {
		itemID, ok := resolveSku(li.SKU)
		if !ok {
			warnings = append(warnings, apperrors.SkuUnresolved(li.SKU))
			continue
		}
		entries = append(entries, OrderEntry{
			ItemID:          itemID,
			Price:           li.UnitPriceDiscounted,
			FullPrice:       li.UnitPriceOriginal,
			QuantityOnOrder: decimal.NewFromInt(int64(li.Quantity)),
			QuantityRTD:     decimal.Zero,
			Taxable:         boolToInt(li.Taxable),
			Description:     li.Title,
		})
	}

	// Shipping entry synthesis (spec §4.6 rule 11): only when shipping
	// charge is strictly positive. Never synthesized with zero on a
	// new order (resolved Open Question #1 in spec §9).
	if shippingCharge.GreaterThan(decimal.Zero) {
		entries = append(entries, OrderEntry{
			ItemID:          cfg.ShippingItemID,
			Price:           shippingCharge,
			FullPrice:       shippingCharge,
			QuantityOnOrder: decimal.NewFromInt(1),
			QuantityRTD:     decimal.Zero,
			Taxable:         1,
			Description:     "Shipping",
		})
	}

	if err := validateHeader(header); err != nil {
		return ConversionResult{}, err
	}

	return ConversionResult{Header: header, Entries: entries, Warnings: warnings}, nil
}

// computeDeposit implements spec §4.6 rule 8 exhaustively. Test
// transactions are always excluded. The result is clamped to >= 0.
func computeDeposit(status FinancialStatus, transactions []Transaction, total Money) Money {
	switch status {
	case FinancialStatusPaid:
		return clampNonNegative(total)
	case FinancialStatusPartiallyPaid, FinancialStatusPartiallyRefunded:
		sum := decimal.Zero
		for _, tx := range transactions {
			if tx.Test || tx.Status != TransactionStatusSuccess {
				continue
			}
			switch tx.Kind {
			case TransactionKindSale, TransactionKindCapture:
				sum = sum.Add(tx.Amount)
			case TransactionKindRefund:
				sum = sum.Sub(tx.Amount)
			}
		}
		return clampNonNegative(sum)
	case FinancialStatusPending, FinancialStatusAuthorized, FinancialStatusVoided:
		return decimal.Zero
	case FinancialStatusRefunded:
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

func clampNonNegative(d Money) Money {
	if d.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// validateHeader enforces spec §4.6's non-retryable validation rules.
func validateHeader(h OrderHeader) error {
	if !h.ReferenceNumber.Valid() {
		return apperrors.SyncValidationError("referenceNumber must start with \"SHOPIFY-\"")
	}
	if h.ChannelType != 2 {
		return apperrors.SyncValidationError("channelType must be 2")
	}
	if h.Closed != 0 {
		return apperrors.SyncValidationError("closed must be 0 on create")
	}
	if h.Total.LessThan(decimal.Zero) {
		return apperrors.SyncValidationError("total must be >= 0")
	}
	if h.Tax.LessThan(decimal.Zero) {
		return apperrors.SyncValidationError("tax must be >= 0")
	}
	if h.Deposit.LessThan(decimal.Zero) {
		return apperrors.SyncValidationError("deposit must be >= 0")
	}
	return nil
}
