package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/model"
)

const userColumns = `id, first_name, last_name, phone, email, password_hash, created_at`

// CreateUser inserts a user and fills in ID and CreatedAt.
func (q *queries) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, phone, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Email,
		user.PasswordHash,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		return storageErr("inserting user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storageErr("reading user id", err)
	}
	user.ID = id
	return nil
}

func (q *queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, storageErr("getting user", err)
	}
	return user, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, storageErr("getting user by email", err)
	}
	return user, nil
}

func (q *queries) EmailTaken(ctx context.Context, email string) (bool, error) {
	return q.exists(ctx, "checking email", `SELECT 1 FROM users WHERE email = ?`, email)
}

func (q *queries) PhoneTaken(ctx context.Context, phone string) (bool, error) {
	return q.exists(ctx, "checking phone", `SELECT 1 FROM users WHERE phone = ?`, phone)
}

// DeleteUser is the account-removal cascade. Line items go first because
// they reference both orders and products; clients go after orders because
// orders reference clients.
func (q *queries) DeleteUser(ctx context.Context, id int64) error {
	return q.atomic(ctx, func(q *queries) error {
		steps := []struct {
			op    string
			query string
		}{
			{"deleting line items of user's orders",
				`DELETE FROM order_products WHERE order_id IN (SELECT id FROM orders WHERE user_id = ?)`},
			{"deleting line items of user's products",
				`DELETE FROM order_products WHERE product_id IN (SELECT id FROM products WHERE user_id = ?)`},
			{"deleting user's orders",
				`DELETE FROM orders WHERE user_id = ?`},
			{"deleting user's products",
				`DELETE FROM products WHERE user_id = ?`},
			{"deleting user's clients",
				`DELETE FROM clients WHERE user_id = ?`},
		}
		for _, s := range steps {
			if _, err := q.db.ExecContext(ctx, s.query, id); err != nil {
				return storageErr(s.op, err)
			}
		}

		res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return storageErr("deleting user", err)
		}
		return rowsAffectedOrNotFound(res, "user", id)
	})
}

func (q *queries) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr(op, err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user      model.User
		createdAt string
	)
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Email,
		&user.PasswordHash,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &user, nil
}
