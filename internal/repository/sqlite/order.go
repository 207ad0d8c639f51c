package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/model"
)

const orderColumns = `id, user_id, client_id, title, address, date`

// CreateOrder inserts the order row and all of its line items. It runs as one
// unit: when joined to a caller's transaction it shares that transaction,
// otherwise it opens its own.
func (q *queries) CreateOrder(ctx context.Context, o *model.Order) error {
	return q.atomic(ctx, func(q *queries) error {
		res, err := q.db.ExecContext(ctx,
			`INSERT INTO orders (user_id, client_id, title, address, date) VALUES (?, ?, ?, ?, ?)`,
			o.UserID,
			nullInt64(o.ClientID),
			o.Title,
			nullString(o.Address),
			formatTime(o.Date),
		)
		if err != nil {
			return storageErr("inserting order", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return storageErr("reading order id", err)
		}
		o.ID = id

		return q.insertLineItems(ctx, o.ID, o.Products)
	})
}

func (q *queries) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return q.loadOrder(ctx, row, id)
}

// FindOrder answers "does order id belong to ownerID" and loads its items.
func (q *queries) FindOrder(ctx context.Context, id, ownerID int64) (*model.Order, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ? AND user_id = ?`, id, ownerID)
	return q.loadOrder(ctx, row, id)
}

func (q *queries) loadOrder(ctx context.Context, row *sql.Row, id int64) (*model.Order, error) {
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("order", id)
	}
	if err != nil {
		return nil, storageErr("getting order", err)
	}

	items, err := q.lineItems(ctx, `WHERE order_id = ?`, id)
	if err != nil {
		return nil, err
	}
	o.Products = items[id]
	if o.Products == nil {
		o.Products = []model.LineItem{}
	}
	return o, nil
}

// ListOrders returns the owner's orders by date, each with its line items.
// Items for all orders are fetched in one query and grouped in memory.
func (q *queries) ListOrders(ctx context.Context, ownerID int64) ([]model.Order, error) {
	orders, err := q.listOrderRows(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	items, err := q.lineItems(ctx,
		`WHERE order_id IN (SELECT id FROM orders WHERE user_id = ?)`, ownerID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Products = items[orders[i].ID]
		if orders[i].Products == nil {
			orders[i].Products = []model.LineItem{}
		}
	}
	return orders, nil
}

func (q *queries) listOrderRows(ctx context.Context, ownerID int64) ([]model.Order, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY date, id`, ownerID)
	if err != nil {
		return nil, storageErr("listing orders", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, storageErr("scanning order", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating orders", err)
	}
	return orders, nil
}

func (q *queries) UpdateOrder(ctx context.Context, o *model.Order) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE orders SET client_id = ?, title = ?, address = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		nullInt64(o.ClientID),
		o.Title,
		nullString(o.Address),
		formatTime(o.Date),
		o.ID,
		o.UserID,
	)
	if err != nil {
		return storageErr("updating order", err)
	}
	return rowsAffectedOrNotFound(res, "order", o.ID)
}

// ReplaceLineItems swaps the whole line-item set. Nothing is merged with the
// previous set.
func (q *queries) ReplaceLineItems(ctx context.Context, orderID int64, items []model.LineItem) error {
	return q.atomic(ctx, func(q *queries) error {
		if _, err := q.db.ExecContext(ctx,
			`DELETE FROM order_products WHERE order_id = ?`, orderID,
		); err != nil {
			return storageErr("deleting line items", err)
		}
		return q.insertLineItems(ctx, orderID, items)
	})
}

// DeleteOrder is the order cascade: line items first, then the order row.
func (q *queries) DeleteOrder(ctx context.Context, id, ownerID int64) error {
	return q.atomic(ctx, func(q *queries) error {
		if _, err := q.db.ExecContext(ctx,
			`DELETE FROM order_products
			 WHERE order_id IN (SELECT id FROM orders WHERE id = ? AND user_id = ?)`,
			id, ownerID,
		); err != nil {
			return storageErr("deleting order line items", err)
		}

		res, err := q.db.ExecContext(ctx,
			`DELETE FROM orders WHERE id = ? AND user_id = ?`, id, ownerID)
		if err != nil {
			return storageErr("deleting order", err)
		}
		return rowsAffectedOrNotFound(res, "order", id)
	})
}

func (q *queries) insertLineItems(ctx context.Context, orderID int64, items []model.LineItem) error {
	for i := range items {
		items[i].OrderID = orderID
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO order_products (order_id, product_id, quantity, price_at_order)
			 VALUES (?, ?, ?, ?)`,
			orderID,
			items[i].ProductID,
			items[i].Quantity,
			items[i].PriceAtOrder,
		); err != nil {
			return storageErr("inserting line item", err)
		}
	}
	return nil
}

// lineItems runs one query over order_products and groups the rows by order.
// where must filter on order_id; rowid keeps insertion order.
func (q *queries) lineItems(ctx context.Context, where string, args ...any) (map[int64][]model.LineItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, price_at_order FROM order_products `+where+` ORDER BY rowid`,
		args...)
	if err != nil {
		return nil, storageErr("listing line items", err)
	}
	defer rows.Close()

	byOrder := make(map[int64][]model.LineItem)
	for rows.Next() {
		var li model.LineItem
		if err := rows.Scan(&li.OrderID, &li.ProductID, &li.Quantity, &li.PriceAtOrder); err != nil {
			return nil, storageErr("scanning line item", err)
		}
		byOrder[li.OrderID] = append(byOrder[li.OrderID], li)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating line items", err)
	}
	return byOrder, nil
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o        model.Order
		clientID sql.NullInt64
		address  sql.NullString
		date     string
	)
	if err := row.Scan(&o.ID, &o.UserID, &clientID, &o.Title, &address, &date); err != nil {
		return nil, err
	}
	t, err := parseTime(date)
	if err != nil {
		return nil, err
	}
	o.Date = t
	o.ClientID = int64Ptr(clientID)
	o.Address = stringPtr(address)
	return &o, nil
}
