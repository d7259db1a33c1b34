package woo

import "order_sync/internal/orders"

type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type LineItem struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Quantity orders.Text `json:"quantity"`
	Total    orders.Text `json:"total"`
}

// Order is the subset of a WooCommerce v3 order the pipeline reads.
type Order struct {
	ID          int64      `json:"id"`
	Number      string     `json:"number"`
	Status      string     `json:"status"`
	DateCreated string     `json:"date_created"`
	Billing     Billing    `json:"billing"`
	LineItems   []LineItem `json:"line_items"`
}

func (o Order) OrderID() int64 {
	return o.ID
}
