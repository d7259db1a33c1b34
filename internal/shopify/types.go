package shopify

import (
	"strings"

	"order_sync/internal/orders"
)

type NoteAttribute struct {
	Name  string      `json:"name"`
	Value orders.Text `json:"value"`
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

type Money struct {
	Amount       orders.Text `json:"amount"`
	CurrencyCode string      `json:"currency_code"`
}

type MoneySet struct {
	ShopMoney Money `json:"shop_money"`
}

type DiscountAllocation struct {
	Amount    *orders.Text `json:"amount"`
	AmountSet *MoneySet    `json:"amount_set"`
}

// AmountText returns the allocation amount, preferring the flat field over amount_set.
func (d DiscountAllocation) AmountText() (string, bool) {
	if d.Amount != nil && *d.Amount != "" {
		return string(*d.Amount), true
	}
	if d.AmountSet != nil && d.AmountSet.ShopMoney.Amount != "" {
		return string(d.AmountSet.ShopMoney.Amount), true
	}
	return "", false
}

type LineItem struct {
	ID                  int64                `json:"id"`
	Title               string               `json:"title"`
	Quantity            orders.Text          `json:"quantity"`
	Price               orders.Text          `json:"price"`
	TotalDiscount       *orders.Text         `json:"total_discount"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

// Order is the subset of a Shopify Admin REST order the pipeline reads.
type Order struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	CreatedAt       string          `json:"created_at"`
	FinancialStatus string          `json:"financial_status"`
	Note            string          `json:"note"`
	NoteAttributes  []NoteAttribute `json:"note_attributes"`
	Customer        *Customer       `json:"customer"`
	ShippingAddress *Address        `json:"shipping_address"`
	BillingAddress  *Address        `json:"billing_address"`
	LineItems       []LineItem      `json:"line_items"`
}

func (o Order) OrderID() int64 {
	return o.ID
}

// NoteAttribute looks up a checkout note attribute by name, ignoring case and
// surrounding whitespace.
func (o Order) NoteAttribute(name string) string {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, attr := range o.NoteAttributes {
		if strings.ToLower(strings.TrimSpace(attr.Name)) == want {
			return string(attr.Value)
		}
	}
	return ""
}

// PostalAddress is the shipping address, or the billing address when no shipping
// address was captured.
func (o Order) PostalAddress() Address {
	if o.ShippingAddress != nil {
		return *o.ShippingAddress
	}
	if o.BillingAddress != nil {
		return *o.BillingAddress
	}
	return Address{}
}
