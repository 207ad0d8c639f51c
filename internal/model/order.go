package model

import "time"

// Order groups line items for one owner, optionally linked to a client.
type Order struct {
	ID       int64      `json:"id"        db:"id"`
	UserID   int64      `json:"user_id"   db:"user_id"`
	Title    string     `json:"title"     db:"title"`
	Address  *string    `json:"address"   db:"address"`
	Date     time.Time  `json:"date"      db:"date"`
	ClientID *int64     `json:"client_id" db:"client_id"`
	Products []LineItem `json:"products"`
}

// LineItem is one product inside an order. The pair (OrderID, ProductID) is
// unique.
//
// PriceAtOrder is copied from the product when the line item is written and
// is never recomputed, so historical totals survive catalog price changes.
type LineItem struct {
	OrderID      int64   `json:"-"              db:"order_id"`
	ProductID    int64   `json:"product_id"     db:"product_id"`
	Quantity     int     `json:"quantity"       db:"quantity"`
	PriceAtOrder float64 `json:"price_at_order" db:"price_at_order"`
}

// Total sums quantity × price_at_order over all line items.
func (o *Order) Total() float64 {
	var total float64
	for _, li := range o.Products {
		total += float64(li.Quantity) * li.PriceAtOrder
	}
	return total
}
