package storefrontclient

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
)

// moneySet mirrors the storefront's MoneyBag shape: a single
// shop-currency amount, since RMS only ever stores one currency.
type moneySet struct {
	ShopMoney struct {
		Amount decimal.Decimal `json:"amount"`
	} `json:"shopMoney"`
}

type customerNode struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type addressNode struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
}

type shippingLineNode struct {
	Title                  string   `json:"title"`
	Code                   string   `json:"code"`
	DiscountedPriceSet     moneySet `json:"discountedPriceSet"`
}

type transactionNode struct {
	Kind      string   `json:"kind"`
	Status    string   `json:"status"`
	Test      bool     `json:"test"`
	AmountSet moneySet `json:"amountSet"`
}

type variantNode struct {
	ID      string `json:"id"`
	Product struct {
		ID string `json:"id"`
	} `json:"product"`
}

type lineItemNode struct {
	ID                      string      `json:"id"`
	Title                   string      `json:"title"`
	SKU                     string      `json:"sku"`
	Quantity                int         `json:"quantity"`
	Taxable                 bool        `json:"taxable"`
	OriginalUnitPriceSet    moneySet    `json:"originalUnitPriceSet"`
	DiscountedUnitPriceSet  moneySet    `json:"discountedUnitPriceSet"`
	Variant                 *variantNode `json:"variant"`
}

type lineItemEdge struct {
	Node lineItemNode `json:"node"`
}

type lineItemConnection struct {
	Edges []lineItemEdge `json:"edges"`
}

type orderNode struct {
	ID                       string             `json:"id"`
	LegacyResourceID         string             `json:"legacyResourceId"`
	Name                     string             `json:"name"`
	CreatedAt                time.Time          `json:"createdAt"`
	UpdatedAt                time.Time          `json:"updatedAt"`
	DisplayFinancialStatus   string             `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string             `json:"displayFulfillmentStatus"`
	CancelledAt              *time.Time         `json:"cancelledAt"`
	Test                     bool               `json:"test"`
	TotalPriceSet            moneySet           `json:"totalPriceSet"`
	SubtotalPriceSet         moneySet           `json:"subtotalPriceSet"`
	TotalTaxSet              moneySet           `json:"totalTaxSet"`
	TotalShippingPriceSet    moneySet           `json:"totalShippingPriceSet"`
	TotalDiscountsSet        moneySet           `json:"totalDiscountsSet"`
	Customer                 *customerNode      `json:"customer"`
	BillingAddress           *addressNode       `json:"billingAddress"`
	ShippingAddress          *addressNode       `json:"shippingAddress"`
	ShippingLine             *shippingLineNode  `json:"shippingLine"`
	Transactions             []transactionNode  `json:"transactions"`
	LineItems                lineItemConnection `json:"lineItems"`
}

func (n orderNode) toDomain() domain.StorefrontOrder {
	order := domain.StorefrontOrder{
		ExternalID:        n.ID,
		LegacyID:          n.LegacyResourceID,
		Name:              n.Name,
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
		FinancialStatus:   domain.FinancialStatus(n.DisplayFinancialStatus),
		FulfillmentStatus: n.DisplayFulfillmentStatus,
		CancelledAt:       n.CancelledAt,
		Test:              n.Test,
		Totals: domain.Totals{
			Total:     n.TotalPriceSet.ShopMoney.Amount,
			Subtotal:  n.SubtotalPriceSet.ShopMoney.Amount,
			Tax:       n.TotalTaxSet.ShopMoney.Amount,
			Shipping:  n.TotalShippingPriceSet.ShopMoney.Amount,
			Discounts: n.TotalDiscountsSet.ShopMoney.Amount,
		},
	}

	if n.Customer != nil {
		order.Customer = &domain.Customer{
			ID:        n.Customer.ID,
			Email:     n.Customer.Email,
			FirstName: n.Customer.FirstName,
			LastName:  n.Customer.LastName,
			Phone:     n.Customer.Phone,
		}
	}
	if n.BillingAddress != nil {
		order.BillingAddress = n.BillingAddress.toDomain()
	}
	if n.ShippingAddress != nil {
		order.ShippingAddress = n.ShippingAddress.toDomain()
	}
	if n.ShippingLine != nil {
		order.ShippingLine = &domain.ShippingLine{
			Title:           n.ShippingLine.Title,
			Code:            n.ShippingLine.Code,
			DiscountedPrice: n.ShippingLine.DiscountedPriceSet.ShopMoney.Amount,
		}
	}
	for _, tx := range n.Transactions {
		order.Transactions = append(order.Transactions, domain.Transaction{
			Kind:   domain.TransactionKind(tx.Kind),
			Status: domain.TransactionStatus(tx.Status),
			Test:   tx.Test,
			Amount: tx.AmountSet.ShopMoney.Amount,
		})
	}
	for _, edge := range n.LineItems.Edges {
		li := edge.Node
		item := domain.LineItem{
			ExternalID:          li.ID,
			Title:               li.Title,
			SKU:                 li.SKU,
			Quantity:            li.Quantity,
			Taxable:             li.Taxable,
			UnitPriceOriginal:   li.OriginalUnitPriceSet.ShopMoney.Amount,
			UnitPriceDiscounted: li.DiscountedUnitPriceSet.ShopMoney.Amount,
		}
		if li.Variant != nil {
			item.VariantID = li.Variant.ID
			item.ProductID = li.Variant.Product.ID
		}
		order.LineItems = append(order.LineItems, item)
	}

	return order
}

func (a addressNode) toDomain() *domain.Address {
	return &domain.Address{
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Province: a.Province,
		Country:  a.Country,
		Zip:      a.Zip,
	}
}

type orderEdge struct {
	Node orderNode `json:"node"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type recentOrdersGraphQLPage struct {
	Orders struct {
		PageInfo pageInfo    `json:"pageInfo"`
		Edges    []orderEdge `json:"edges"`
	} `json:"orders"`
}
