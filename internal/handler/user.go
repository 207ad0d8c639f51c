package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/inventory-service/internal/model"
	"github.com/sakif/inventory-service/internal/service"
)

// UserHandler serves account endpoints.
//
//	POST   /user/register  → create an account
//	POST   /user/login     → exchange email + password for a Bearer token
//	GET    /user/me        → the caller's profile             (auth)
//	DELETE /user/delete    → remove the caller and their data (auth)
type UserHandler struct {
	accounts *service.AuthService
	logger   *slog.Logger
}

func NewUserHandler(accounts *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// RegisterResponse is the public view of a freshly created account.
type RegisterResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /user/register
// REQUEST BODY: {"first_name", "last_name", "phone", "email", "password"}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse(user))
}

// HandleLogin checks credentials and returns {"access_token", "user"}.
//
// HTTP: POST /user/login
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleMe returns the caller's profile.
//
// HTTP: GET /user/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Me(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes the caller's account along with every client,
// product and order they own.
//
// HTTP: DELETE /user/delete
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted"})
}

func registerResponse(u *model.User) RegisterResponse {
	return RegisterResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
