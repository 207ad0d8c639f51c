package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/inventory-service/internal/service"
)

// ClientHandler serves the caller's contacts. Every route is behind
// auth.RequireAuth.
type ClientHandler struct {
	clients *service.ClientService
	logger  *slog.Logger
}

func NewClientHandler(clients *service.ClientService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

// HandleCreate: POST /client/
func (h *ClientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.CreateClientInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.clients.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleList: GET /client/
func (h *ClientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	clients, err := h.clients.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// HandleGet: GET /client/{id}
func (h *ClientHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.clients.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleUpdate: PUT /client/{id}
//
// Partial update; send "last_name": null or "phone": null to clear them.
func (h *ClientHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.UpdateClientInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.clients.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDelete: DELETE /client/{id}
//
// Orders that referenced the client remain, with client_id cleared.
func (h *ClientHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.clients.Delete(r.Context(), userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Client deleted"})
}

func (h *ClientHandler) target(r *http.Request) (userID, id int64, err error) {
	if userID, err = currentUser(r); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(r, "client"); err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}
