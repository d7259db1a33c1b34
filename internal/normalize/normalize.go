// Package normalize maps platform order payloads onto the fixed sheet row shape. Every
// function here is pure: the same order always produces the same rows.
package normalize

import (
	"strconv"
	"strings"

	"order_sync/internal/orders"
	"order_sync/internal/shopify"
	"order_sync/internal/woo"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	PlatformWoo     = "WooCommerce"
	PlatformShopify = "Shopify"
)

// Order turns one fetched order into one row per line item. Unknown kinds, or a payload
// that does not match its kind, yield no rows.
func Order(f orders.Fetched) []orders.Row {
	switch f.Kind {
	case orders.KindWoo:
		if o, ok := asWoo(f.Order); ok {
			return Woo(o, f.Source)
		}
	case orders.KindShopify:
		if o, ok := asShopify(f.Order); ok {
			return Shopify(o, f.Source)
		}
	default:
		log.Warn().
			Str("source", f.Source).
			Str("kind", string(f.Kind)).
			Msg("Unknown platform kind, skipping order")
		return nil
	}

	log.Warn().
		Str("source", f.Source).
		Str("kind", string(f.Kind)).
		Msg("Order payload does not match its platform kind, skipping")
	return nil
}

// All normalizes a batch, keeping fetch order.
func All(fetched []orders.Fetched) []orders.Row {
	var rows []orders.Row
	for _, f := range fetched {
		rows = append(rows, Order(f)...)
	}
	return rows
}

func asWoo(r orders.Raw) (woo.Order, bool) {
	switch o := r.(type) {
	case woo.Order:
		return o, true
	case *woo.Order:
		if o != nil {
			return *o, true
		}
	}
	return woo.Order{}, false
}

func asShopify(r orders.Raw) (shopify.Order, bool) {
	switch o := r.(type) {
	case shopify.Order:
		return o, true
	case *shopify.Order:
		if o != nil {
			return *o, true
		}
	}
	return shopify.Order{}, false
}

// Woo maps a WooCommerce order. Customer details come from the billing block.
func Woo(o woo.Order, source string) []orders.Row {
	b := o.Billing
	address := joinNonEmpty(b.Address1, b.Address2, b.City, b.State, b.Country)

	rows := make([]orders.Row, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		quantity := strconv.FormatInt(ParseQuantity(string(item.Quantity)), 10)
		rows = append(rows, orders.Row{
			Date:        datePart(o.DateCreated),
			OrderNumber: strconv.FormatInt(o.ID, 10),
			FirstName:   b.FirstName,
			LastName:    b.LastName,
			Location:    b.City,
			Product:     item.Name,
			Quantity:    quantity,
			Price:       wooPrice(string(item.Total)),
			Phone:       b.Phone,
			Status:      o.Status,
			Address:     address,
			SourceStore: source,
			Platform:    PlatformWoo,
		})
	}
	return rows
}

// wooPrice keeps a well formed total as sent ("25.00") and cleans anything else.
func wooPrice(total string) string {
	total = strings.TrimSpace(total)
	if total == "" {
		return "0"
	}
	if _, err := decimal.NewFromString(total); err == nil {
		return total
	}
	return ParseAmount(total).String()
}

// Shopify maps a Shopify order. Checkout note attributes win over the structured
// customer and address fields. Status is left blank for manual follow-up.
func Shopify(o shopify.Order, source string) []orders.Row {
	postal := o.PostalAddress()

	firstName, lastName := splitFullName(o.NoteAttribute("Full name"))
	if firstName == "" && lastName == "" {
		switch {
		case o.Customer != nil && (o.Customer.FirstName != "" || o.Customer.LastName != ""):
			firstName, lastName = o.Customer.FirstName, o.Customer.LastName
		default:
			firstName, lastName = postal.FirstName, postal.LastName
		}
	}

	city := firstNonEmpty(o.NoteAttribute("City"), postal.City)
	province := firstNonEmpty(o.NoteAttribute("State"), postal.Province)
	address := firstNonEmpty(
		o.NoteAttribute("Address"),
		joinNonEmpty(postal.Address1, postal.Address2, city, province, postal.Country),
	)

	phone := firstNonEmpty(o.NoteAttribute("Phone"), postal.Phone)
	if phone == "" && o.Customer != nil {
		phone = o.Customer.Phone
	}

	comments := o.NoteAttribute("Note")

	rows := make([]orders.Row, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		quantity := ParseQuantity(string(item.Quantity))
		rows = append(rows, orders.Row{
			Date:        datePart(o.CreatedAt),
			OrderNumber: o.Name,
			FirstName:   firstName,
			LastName:    lastName,
			Location:    city,
			Product:     item.Title,
			Quantity:    strconv.FormatInt(quantity, 10),
			Price:       FormatAmount(LineTotal(item, quantity)),
			Phone:       phone,
			Comments:    comments,
			SecondaryID: strconv.FormatInt(o.ID, 10),
			Address:     address,
			SourceStore: source,
			Platform:    PlatformShopify,
		})
	}
	return rows
}

// LineTotal is unit price times quantity minus the discount assigned to the line.
func LineTotal(item shopify.LineItem, quantity int64) decimal.Decimal {
	unit := ParseAmount(string(item.Price))
	gross := unit.Mul(decimal.NewFromInt(quantity))
	return gross.Sub(LineDiscount(item))
}

// LineDiscount uses total_discount when it is present and non-zero, otherwise the sum of
// the absolute discount allocation amounts. The result is never negative.
func LineDiscount(item shopify.LineItem) decimal.Decimal {
	discount := decimal.Zero
	if item.TotalDiscount != nil {
		discount = ParseAmount(string(*item.TotalDiscount))
	}
	if discount.IsZero() {
		for _, alloc := range item.DiscountAllocations {
			amount, ok := alloc.AmountText()
			if !ok {
				continue
			}
			discount = discount.Add(ParseAmount(amount).Abs())
		}
	}
	return discount.Abs()
}

func splitFullName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

func datePart(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
