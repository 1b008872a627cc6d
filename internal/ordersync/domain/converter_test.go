package domain

import (
	"testing"
	"time"

	"github.com/qhato/ecommerce/pkg/testutil"
	"github.com/shopspring/decimal"
)

func testConfig() ConverterConfig {
	return ConverterConfig{StoreID: 40, OrderType: 1, ShippingItemID: 9999}
}

func money(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func resolverMap(m map[string]int64) SkuResolver {
	return func(sku string) (int64, bool) {
		id, ok := m[sku]
		return id, ok
	}
}

// TestConvert_S1_PaidOrderWithShipping implements scenario S1 from spec §8.
func TestConvert_S1_PaidOrderWithShipping(t *testing.T) {
	// Arrange
	order := StorefrontOrder{
		LegacyID:        "123456789",
		FinancialStatus: FinancialStatusPaid,
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Totals:          Totals{Total: money("150.00"), Tax: money("15.00")},
		ShippingLine:    &ShippingLine{DiscountedPrice: money("5.00")},
		LineItems: []LineItem{
			{SKU: "SNEAK-BLUE-42", Quantity: 2, Taxable: true, UnitPriceOriginal: money("75.00"), UnitPriceDiscounted: money("70.00"), Title: "Sneaker"},
		},
	}
	resolve := resolverMap(map[string]int64{"SNEAK-BLUE-42": 555})

	// Act
	result, err := Convert(order, nil, resolve, testConfig())

	// Assert
	testutil.AssertNoError(t, err, "conversion should succeed")
	testutil.AssertEqual(t, result.Header.ReferenceNumber, OrderReference("SHOPIFY-123456789"), "reference")
	testutil.AssertEqual(t, result.Header.ChannelType, 2, "channelType")
	testutil.AssertEqual(t, result.Header.Closed, 0, "closed")
	testutil.AssertTrue(t, result.Header.Total.Equal(money("150.00")), "total")
	testutil.AssertTrue(t, result.Header.Tax.Equal(money("15.00")), "tax")
	testutil.AssertTrue(t, result.Header.Deposit.Equal(money("150.00")), "deposit == total when PAID")
	testutil.AssertTrue(t, result.Header.ShippingChargeOnOrder.Equal(money("5.00")), "shipping")

	testutil.AssertLen(t, result.Entries, 2, "one line + shipping entry")
	lineEntry := result.Entries[0]
	testutil.AssertEqual(t, lineEntry.ItemID, int64(555), "resolved item id")
	testutil.AssertTrue(t, lineEntry.Price.Equal(money("70.00")), "price")
	testutil.AssertTrue(t, lineEntry.FullPrice.Equal(money("75.00")), "full price")
	testutil.AssertTrue(t, lineEntry.QuantityOnOrder.Equal(decimal.NewFromInt(2)), "quantity")
	testutil.AssertEqual(t, lineEntry.Taxable, 1, "taxable")

	shippingEntry := result.Entries[1]
	testutil.AssertEqual(t, shippingEntry.ItemID, int64(9999), "shipping item id")
	testutil.AssertTrue(t, shippingEntry.Price.Equal(money("5.00")), "shipping price")
	testutil.AssertTrue(t, shippingEntry.QuantityOnOrder.Equal(decimal.NewFromInt(1)), "shipping quantity")
	testutil.AssertEqual(t, shippingEntry.Description, "Shipping", "shipping description")
}

// TestConvert_S2_PartiallyPaidExcludesTestTransaction implements scenario S2.
func TestConvert_S2_PartiallyPaidExcludesTestTransaction(t *testing.T) {
	// Arrange
	order := StorefrontOrder{
		LegacyID:        "2",
		FinancialStatus: FinancialStatusPartiallyPaid,
		CreatedAt:       time.Now(),
		Totals:          Totals{Total: money("200.00")},
		Transactions: []Transaction{
			{Kind: TransactionKindSale, Status: TransactionStatusSuccess, Amount: money("100.00")},
			{Kind: TransactionKindCapture, Status: TransactionStatusSuccess, Amount: money("50.00")},
			{Kind: TransactionKindSale, Status: TransactionStatusSuccess, Test: true, Amount: money("9999.00")},
		},
	}

	// Act
	result, err := Convert(order, nil, resolverMap(nil), testConfig())

	// Assert
	testutil.AssertNoError(t, err, "conversion should succeed")
	testutil.AssertTrue(t, result.Header.Deposit.Equal(money("150.00")), "deposit excludes test transaction")
}

// TestConvert_S5_Refund implements scenario S5.
func TestConvert_S5_Refund(t *testing.T) {
	// Arrange
	order := StorefrontOrder{
		LegacyID:        "5",
		FinancialStatus: FinancialStatusPartiallyRefunded,
		CreatedAt:       time.Now(),
		Totals:          Totals{Total: money("100.00")},
		Transactions: []Transaction{
			{Kind: TransactionKindSale, Status: TransactionStatusSuccess, Amount: money("100.00")},
			{Kind: TransactionKindRefund, Status: TransactionStatusSuccess, Amount: money("30.00")},
		},
	}

	// Act
	result, err := Convert(order, nil, resolverMap(nil), testConfig())

	// Assert
	testutil.AssertNoError(t, err, "conversion should succeed")
	testutil.AssertTrue(t, result.Header.Deposit.Equal(money("70.00")), "deposit after refund")
}

func TestConvert_DepositTable(t *testing.T) {
	tests := []struct {
		name   string
		status FinancialStatus
		txs    []Transaction
		total  Money
		want   Money
	}{
		{"paid", FinancialStatusPaid, nil, money("80.00"), money("80.00")},
		{"pending", FinancialStatusPending, []Transaction{{Kind: TransactionKindAuthorization, Status: TransactionStatusSuccess, Amount: money("80.00")}}, money("80.00"), money("0")},
		{"authorized excludes authorization amount", FinancialStatusAuthorized, []Transaction{{Kind: TransactionKindAuthorization, Status: TransactionStatusSuccess, Amount: money("80.00")}}, money("80.00"), money("0")},
		{"voided", FinancialStatusVoided, nil, money("80.00"), money("0")},
		{"refunded", FinancialStatusRefunded, nil, money("80.00"), money("0")},
		{"clamped at zero", FinancialStatusPartiallyRefunded, []Transaction{{Kind: TransactionKindRefund, Status: TransactionStatusSuccess, Amount: money("999.00")}}, money("80.00"), money("0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeDeposit(tt.status, tt.txs, tt.total)
			testutil.AssertTrue(t, got.Equal(tt.want), "deposit("+tt.name+")")
		})
	}
}

func TestConvert_ShippingEntryOnlySynthesizedWhenPositive(t *testing.T) {
	// Arrange: new order, no shipping line at all (spec §9 open question 1 resolution).
	order := StorefrontOrder{
		LegacyID:        "6",
		FinancialStatus: FinancialStatusPaid,
		CreatedAt:       time.Now(),
		Totals:          Totals{Total: money("10.00")},
	}

	// Act
	result, err := Convert(order, nil, resolverMap(nil), testConfig())

	// Assert
	testutil.AssertNoError(t, err, "conversion should succeed")
	testutil.AssertLen(t, result.Entries, 0, "no shipping entry should be synthesized for zero shipping on create")
}

func TestConvert_UnresolvedSkuIsSkippedWithWarning(t *testing.T) {
	// Arrange
	order := StorefrontOrder{
		LegacyID:        "7",
		FinancialStatus: FinancialStatusPaid,
		CreatedAt:       time.Now(),
		Totals:          Totals{Total: money("10.00")},
		LineItems: []LineItem{
			{SKU: "UNKNOWN-SKU", Quantity: 1, UnitPriceOriginal: money("10.00"), UnitPriceDiscounted: money("10.00")},
		},
	}

	// Act
	result, err := Convert(order, nil, resolverMap(nil), testConfig())

	// Assert
	testutil.AssertNoError(t, err, "conversion should not hard-fail on unresolved sku")
	testutil.AssertLen(t, result.Entries, 0, "unresolved line should be skipped")
	testutil.AssertLen(t, result.Warnings, 1, "should record one warning")
}

func TestConvert_ReferenceNumberFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		o    StorefrontOrder
		want OrderReference
	}{
		{"legacy id wins", StorefrontOrder{LegacyID: "1", ExternalID: "gid://shopify/Order/2", Name: "#3"}, "SHOPIFY-1"},
		{"falls back to gid", StorefrontOrder{ExternalID: "gid://shopify/Order/2", Name: "#3"}, "SHOPIFY-2"},
		{"falls back to name", StorefrontOrder{Name: "#3"}, "SHOPIFY-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReferenceFor(tt.o)
			testutil.AssertNoError(t, err, "should resolve a reference")
			testutil.AssertEqual(t, got, tt.want, "reference")
		})
	}
}

func TestConvert_RejectsNegativeTotal(t *testing.T) {
	// Arrange
	order := StorefrontOrder{
		LegacyID:        "8",
		FinancialStatus: FinancialStatusPending,
		CreatedAt:       time.Now(),
		Totals:          Totals{Total: money("-1.00")},
	}

	// Act
	_, err := Convert(order, nil, resolverMap(nil), testConfig())

	// Assert
	testutil.AssertError(t, err, "negative total should fail validation")
}
