package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/model"
)

const clientColumns = `id, user_id, first_name, last_name, phone`

func (q *queries) CreateClient(ctx context.Context, client *model.Client) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO clients (user_id, first_name, last_name, phone) VALUES (?, ?, ?, ?)`,
		client.UserID,
		client.FirstName,
		nullString(client.LastName),
		nullString(client.Phone),
	)
	if err != nil {
		return storageErr("inserting client", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storageErr("reading client id", err)
	}
	client.ID = id
	return nil
}

func (q *queries) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return clientFromRow(row, id)
}

// FindClient answers "does client id belong to ownerID".
func (q *queries) FindClient(ctx context.Context, id, ownerID int64) (*model.Client, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ? AND user_id = ?`, id, ownerID)
	return clientFromRow(row, id)
}

func clientFromRow(row *sql.Row, id int64) (*model.Client, error) {
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("client", id)
	}
	if err != nil {
		return nil, storageErr("getting client", err)
	}
	return c, nil
}

func (q *queries) ListClients(ctx context.Context, ownerID int64) ([]model.Client, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE user_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, storageErr("listing clients", err)
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, storageErr("scanning client", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating clients", err)
	}
	return clients, nil
}

func (q *queries) UpdateClient(ctx context.Context, client *model.Client) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE clients SET first_name = ?, last_name = ?, phone = ?
		 WHERE id = ? AND user_id = ?`,
		client.FirstName,
		nullString(client.LastName),
		nullString(client.Phone),
		client.ID,
		client.UserID,
	)
	if err != nil {
		return storageErr("updating client", err)
	}
	return rowsAffectedOrNotFound(res, "client", client.ID)
}

// DeleteClient is the set-null cascade: orders survive, their link is cleared.
func (q *queries) DeleteClient(ctx context.Context, id, ownerID int64) error {
	return q.atomic(ctx, func(q *queries) error {
		if _, err := q.db.ExecContext(ctx,
			`UPDATE orders SET client_id = NULL WHERE client_id = ?`, id,
		); err != nil {
			return storageErr("clearing client on orders", err)
		}

		res, err := q.db.ExecContext(ctx,
			`DELETE FROM clients WHERE id = ? AND user_id = ?`, id, ownerID)
		if err != nil {
			return storageErr("deleting client", err)
		}
		return rowsAffectedOrNotFound(res, "client", id)
	})
}

func scanClient(row rowScanner) (*model.Client, error) {
	var (
		c               model.Client
		lastName, phone sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &lastName, &phone); err != nil {
		return nil, err
	}
	c.LastName = stringPtr(lastName)
	c.Phone = stringPtr(phone)
	return &c, nil
}
