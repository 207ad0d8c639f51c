package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/metrics"
	"github.com/sakif/inventory-service/internal/model"
	"github.com/sakif/inventory-service/internal/optional"
	"github.com/sakif/inventory-service/internal/repository"
)

// LineItemInput is one entry of an order's products list. A price_at_order
// sent by the caller must be positive but is otherwise ignored; the line item
// takes the product's current price.
type LineItemInput struct {
	ProductID    int64    `json:"product_id"`
	Quantity     *int     `json:"quantity"`
	PriceAtOrder *float64 `json:"price_at_order"`
}

type CreateOrderInput struct {
	Title    string          `json:"title"     validate:"required,min=2,max=100"`
	Address  *string         `json:"address"   validate:"omitempty,max=200"`
	Date     string          `json:"date"      validate:"required"`
	ClientID *int64          `json:"client_id" validate:"omitempty,gt=0"`
	Products []LineItemInput `json:"products"`
}

// UpdateOrderInput is a partial update. A field that is absent is left alone.
// address and client_id accept null to clear them. products, when present,
// replaces the whole line-item set; null or [] leaves the order empty.
type UpdateOrderInput struct {
	Title    optional.Field[string]          `json:"title"`
	Address  optional.Field[string]          `json:"address"`
	Date     optional.Field[string]          `json:"date"`
	ClientID optional.Field[int64]           `json:"client_id"`
	Products optional.Field[[]LineItemInput] `json:"products"`
}

func (in UpdateOrderInput) empty() bool {
	return !in.Title.Set() && !in.Address.Set() && !in.Date.Set() &&
		!in.ClientID.Set() && !in.Products.Set()
}

// dateLayouts are tried in order. A bare date means midnight UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// OrderService is the order workflow.
//
// CONSISTENCY:
// Every create and update runs in one transaction. The client reference and
// every product reference are resolved inside it, scoped to the caller, and
// the line items are priced from the products as read in that same
// transaction. Any failure rolls back the lot, so there is never an order row
// without the line items it was written with.
type OrderService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewOrderService(store repository.Store, logger *slog.Logger) *OrderService {
	return &OrderService{store: store, logger: logger}
}

// Create validates the payload, resolves its references and persists the
// order with its line items.
func (s *OrderService) Create(ctx context.Context, userID int64, in CreateOrderInput) (*model.Order, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Address = trimOrNil(in.Address)

	if err := checkStruct(in); err != nil {
		return nil, err
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if err := checkLineItems("products", in.Products); err != nil {
		return nil, err
	}

	o := &model.Order{
		UserID:   userID,
		Title:    in.Title,
		Address:  in.Address,
		Date:     date,
		ClientID: in.ClientID,
	}

	var created *model.Order
	err = s.store.WithinTx(ctx, func(q repository.Queries) error {
		if err := resolveClient(ctx, q, userID, o.ClientID); err != nil {
			return err
		}
		items, err := buildLineItems(ctx, q, userID, in.Products)
		if err != nil {
			return err
		}
		o.Products = items

		if err := q.CreateOrder(ctx, o); err != nil {
			return err
		}
		created, err = q.FindOrder(ctx, o.ID, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/order: creating order: %w", err)
	}

	metrics.RecordEvent("order", "create")
	metrics.ObserveLineItems(len(created.Products))
	s.logger.Info("order created",
		slog.Int64("orderID", created.ID),
		slog.Int64("userID", userID),
		slog.Int("lineItems", len(created.Products)),
	)
	return created, nil
}

func (s *OrderService) List(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.store.ListOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/order: listing orders: %w", err)
	}
	return orders, nil
}

// Get returns one of the caller's orders. Someone else's order reads as
// missing.
func (s *OrderService) Get(ctx context.Context, userID, id int64) (*model.Order, error) {
	o, err := s.store.FindOrder(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("service/order: %w", err)
	}
	return o, nil
}

// Update applies the present fields of in. When products is present the
// existing line items are dropped and rebuilt at current product prices;
// otherwise they are not touched.
func (s *OrderService) Update(ctx context.Context, userID, id int64, in UpdateOrderInput) (*model.Order, error) {
	if in.empty() {
		return nil, apperror.ValidationFailed("request", "No data provided for update")
	}

	errs := fieldErrors{}
	var title string
	if in.Title.Set() {
		v, _ := in.Title.Value()
		title = strings.TrimSpace(v)
		if title == "" {
			errs.add("title", "is required")
		}
		errs.check("title", title, "min=2,max=100")
	}
	address := trimOrNil(in.Address.Ptr())
	if address != nil {
		errs.check("address", *address, "max=200")
	}
	var date time.Time
	if in.Date.Set() {
		v, ok := in.Date.Value()
		if !ok {
			errs.add("date", "is required")
		} else if d, err := parseDate(v); err != nil {
			errs.add("date", "must be an ISO-8601 date")
		} else {
			date = d
		}
	}
	if v, ok := in.ClientID.Value(); ok {
		errs.check("client_id", v, "gt=0")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	products, _ := in.Products.Value()
	if err := checkLineItems("products", products); err != nil {
		return nil, err
	}

	var updated *model.Order
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		o, err := q.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return apperror.Forbidden("you do not have access to this order")
		}

		if in.Title.Set() {
			o.Title = title
		}
		if in.Address.Set() {
			o.Address = address
		}
		if in.Date.Set() {
			o.Date = date
		}
		if in.ClientID.Set() {
			o.ClientID = in.ClientID.Ptr()
			if err := resolveClient(ctx, q, userID, o.ClientID); err != nil {
				return err
			}
		}

		if err := q.UpdateOrder(ctx, o); err != nil {
			return err
		}

		if in.Products.Set() {
			items, err := buildLineItems(ctx, q, userID, products)
			if err != nil {
				return err
			}
			if err := q.ReplaceLineItems(ctx, o.ID, items); err != nil {
				return err
			}
		}

		updated, err = q.FindOrder(ctx, o.ID, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/order: updating order %d: %w", id, err)
	}

	metrics.RecordEvent("order", "update")
	if in.Products.Set() {
		metrics.ObserveLineItems(len(updated.Products))
	}
	s.logger.Info("order updated",
		slog.Int64("orderID", id),
		slog.Bool("lineItemsReplaced", in.Products.Set()),
	)
	return updated, nil
}

// Delete removes one of the caller's orders and its line items.
func (s *OrderService) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		return q.DeleteOrder(ctx, id, userID)
	})
	if err != nil {
		return fmt.Errorf("service/order: deleting order %d: %w", id, err)
	}

	metrics.RecordEvent("order", "delete")
	s.logger.Info("order deleted", slog.Int64("orderID", id))
	return nil
}

// checkLineItems runs the checks that need no database: each entry is well
// formed and no product appears twice. Duplicates are rejected rather than
// merged.
func checkLineItems(field string, items []LineItemInput) error {
	errs := fieldErrors{}
	seen := make(map[int64]int, len(items))
	for i, item := range items {
		prefix := field + "[" + strconv.Itoa(i) + "]"
		errs.check(prefix+".product_id", item.ProductID, "required,gt=0")
		if item.Quantity != nil {
			errs.check(prefix+".quantity", *item.Quantity, "min=1")
		}
		if item.PriceAtOrder != nil {
			errs.check(prefix+".price_at_order", *item.PriceAtOrder, "gt=0")
		}
		if first, dup := seen[item.ProductID]; dup && item.ProductID > 0 {
			errs.add(prefix+".product_id",
				fmt.Sprintf("duplicates %s[%d]; list each product once", field, first))
		} else {
			seen[item.ProductID] = i
		}
	}
	return errs.err()
}

// resolveClient checks that clientID, when set, names one of the caller's
// clients.
func resolveClient(ctx context.Context, q repository.ClientRepository, userID int64, clientID *int64) error {
	if clientID == nil {
		return nil
	}
	_, err := q.FindClient(ctx, *clientID, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Reference("client not found")
	}
	return err
}

// buildLineItems resolves every product against the caller's catalog and
// snapshots its current price. The first unknown product fails the whole
// list.
func buildLineItems(ctx context.Context, q repository.ProductRepository, userID int64, in []LineItemInput) ([]model.LineItem, error) {
	items := make([]model.LineItem, 0, len(in))
	for _, entry := range in {
		p, err := q.FindProduct(ctx, entry.ProductID, userID)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Reference(fmt.Sprintf("product %d not found", entry.ProductID))
		}
		if err != nil {
			return nil, err
		}

		qty := 1
		if entry.Quantity != nil {
			qty = *entry.Quantity
		}
		items = append(items, model.LineItem{
			ProductID:    p.ID,
			Quantity:     qty,
			PriceAtOrder: p.Price,
		})
	}
	return items, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperror.ValidationFailed("date", "must be an ISO-8601 date")
}
