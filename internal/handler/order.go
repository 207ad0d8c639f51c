package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/inventory-service/internal/service"
)

// OrderHandler exposes the order workflow over HTTP.
//
// ROUTES (all behind auth.RequireAuth):
//
//	POST   /order/      → 201 created order, 400 on validation/reference errors
//	GET    /order/      → the caller's orders, oldest date first
//	GET    /order/{id}  → 404 when absent or someone else's
//	PUT    /order/{id}  → 403 when someone else's, 404 when absent
//	DELETE /order/{id}  → {"message":"Order deleted"}, 404 when absent
//
// Serialized shape:
//
//	{"id", "title", "address", "date", "client_id", "user_id",
//	 "products": [{"product_id", "quantity", "price_at_order"}]}
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

func (h *OrderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.CreateOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	o, err := h.orders.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	orders, err := h.orders.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	o, err := h.orders.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleUpdate applies a partial update. Fields left out of the body are not
// touched; "products", when present, replaces every line item.
func (h *OrderHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.UpdateOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	o, err := h.orders.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.orders.Delete(r.Context(), userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Order deleted"})
}

func (h *OrderHandler) target(r *http.Request) (userID, id int64, err error) {
	if userID, err = currentUser(r); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(r, "order"); err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}
