// Package repository declares the persistence contracts the service layer
// depends on. The sqlite package provides the only implementation.
//
// Lookups come in two flavours:
//   - GetX(id) ignores ownership. Services use it to tell "missing" (404)
//     from "owned by someone else" (403).
//   - FindX(id, ownerID) is scoped by owner and returns apperror.ErrNotFound
//     for both cases. This is the ownership predicate.
package repository

import (
	"context"

	"github.com/sakif/inventory-service/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	PhoneTaken(ctx context.Context, phone string) (bool, error)
	// DeleteUser removes the user together with every order, line item,
	// product and client the user owns.
	DeleteUser(ctx context.Context, id int64) error
}

type ClientRepository interface {
	CreateClient(ctx context.Context, client *model.Client) error
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	FindClient(ctx context.Context, id, ownerID int64) (*model.Client, error)
	ListClients(ctx context.Context, ownerID int64) ([]model.Client, error)
	UpdateClient(ctx context.Context, client *model.Client) error
	// DeleteClient clears client_id on the owner's orders that reference the
	// client, then removes it.
	DeleteClient(ctx context.Context, id, ownerID int64) error
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	FindProduct(ctx context.Context, id, ownerID int64) (*model.Product, error)
	ListProducts(ctx context.Context, ownerID int64) ([]model.Product, error)
	ProductTitleTaken(ctx context.Context, ownerID int64, title string, excludeID int64) (bool, error)
	ListProductPhotos(ctx context.Context, ownerID int64) ([]string, error)
	ProductPhotoOwned(ctx context.Context, ownerID int64, photo string) (bool, error)
	UpdateProduct(ctx context.Context, product *model.Product) error
	// DeleteProduct removes the product's line items from every order, then
	// the product itself.
	DeleteProduct(ctx context.Context, id, ownerID int64) error
}

type OrderRepository interface {
	// CreateOrder inserts the order row and its line items.
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	FindOrder(ctx context.Context, id, ownerID int64) (*model.Order, error)
	ListOrders(ctx context.Context, ownerID int64) ([]model.Order, error)
	// UpdateOrder writes title, address, date and client_id. Line items are
	// left alone.
	UpdateOrder(ctx context.Context, order *model.Order) error
	// ReplaceLineItems deletes every line item of the order and inserts items.
	ReplaceLineItems(ctx context.Context, orderID int64, items []model.LineItem) error
	// DeleteOrder removes the order's line items, then the order.
	DeleteOrder(ctx context.Context, id, ownerID int64) error
}

// Queries is everything a unit of work can touch.
type Queries interface {
	UserRepository
	ClientRepository
	ProductRepository
	OrderRepository
}

// Store is the persistence context handed to services.
//
// WithinTx runs fn inside one transaction: it commits when fn returns nil and
// rolls back otherwise. fn must only use the Queries it receives, never the
// Store itself, or it will run outside the transaction.
type Store interface {
	Queries
	WithinTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
