package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/model"
)

const productColumns = `id, user_id, title, description, price, photo`

func (q *queries) CreateProduct(ctx context.Context, p *model.Product) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO products (user_id, title, description, price, photo) VALUES (?, ?, ?, ?, ?)`,
		p.UserID,
		p.Title,
		nullString(p.Description),
		p.Price,
		nullString(p.Photo),
	)
	if err != nil {
		return storageErr("inserting product", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storageErr("reading product id", err)
	}
	p.ID = id
	return nil
}

func (q *queries) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return productFromRow(row, id)
}

// FindProduct answers "does product id belong to ownerID".
func (q *queries) FindProduct(ctx context.Context, id, ownerID int64) (*model.Product, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? AND user_id = ?`, id, ownerID)
	return productFromRow(row, id)
}

func productFromRow(row *sql.Row, id int64) (*model.Product, error) {
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("product", id)
	}
	if err != nil {
		return nil, storageErr("getting product", err)
	}
	return p, nil
}

func (q *queries) ListProducts(ctx context.Context, ownerID int64) ([]model.Product, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE user_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, storageErr("listing products", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storageErr("scanning product", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating products", err)
	}
	return products, nil
}

// ProductTitleTaken checks the per-owner title uniqueness. excludeID lets an
// update keep its own title; pass 0 on create.
func (q *queries) ProductTitleTaken(ctx context.Context, ownerID int64, title string, excludeID int64) (bool, error) {
	return q.exists(ctx, "checking product title",
		`SELECT 1 FROM products WHERE user_id = ? AND title = ? AND id != ?`,
		ownerID, title, excludeID)
}

// ListProductPhotos returns the photo names of all the owner's products, so
// files can be removed after the rows are gone.
func (q *queries) ListProductPhotos(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT photo FROM products WHERE user_id = ? AND photo IS NOT NULL`, ownerID)
	if err != nil {
		return nil, storageErr("listing product photos", err)
	}
	defer rows.Close()

	var photos []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("scanning product photo", err)
		}
		photos = append(photos, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating product photos", err)
	}
	return photos, nil
}

// ProductPhotoOwned reports whether photo belongs to one of the owner's
// products.
func (q *queries) ProductPhotoOwned(ctx context.Context, ownerID int64, photo string) (bool, error) {
	return q.exists(ctx, "checking photo owner",
		`SELECT 1 FROM products WHERE user_id = ? AND photo = ?`, ownerID, photo)
}

func (q *queries) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE products SET title = ?, description = ?, price = ?, photo = ?
		 WHERE id = ? AND user_id = ?`,
		p.Title,
		nullString(p.Description),
		p.Price,
		nullString(p.Photo),
		p.ID,
		p.UserID,
	)
	if err != nil {
		return storageErr("updating product", err)
	}
	return rowsAffectedOrNotFound(res, "product", p.ID)
}

// DeleteProduct removes the product from every order it appears in. Those
// orders keep their other line items.
func (q *queries) DeleteProduct(ctx context.Context, id, ownerID int64) error {
	return q.atomic(ctx, func(q *queries) error {
		if _, err := q.db.ExecContext(ctx,
			`DELETE FROM order_products WHERE product_id = ?
			   AND product_id IN (SELECT id FROM products WHERE user_id = ?)`,
			id, ownerID,
		); err != nil {
			return storageErr("deleting product line items", err)
		}

		res, err := q.db.ExecContext(ctx,
			`DELETE FROM products WHERE id = ? AND user_id = ?`, id, ownerID)
		if err != nil {
			return storageErr("deleting product", err)
		}
		return rowsAffectedOrNotFound(res, "product", id)
	})
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		p                  model.Product
		description, photo sql.NullString
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &description, &p.Price, &photo); err != nil {
		return nil, err
	}
	p.Description = stringPtr(description)
	p.Photo = stringPtr(photo)
	return &p, nil
}
