package handler

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/optional"
	"github.com/sakif/inventory-service/internal/service"
)

// formOverhead is the allowance for non-file multipart parts on top of the
// photo size limit.
const formOverhead = 1 << 20

// ProductHandler serves the caller's catalog.
//
// Creation is multipart/form-data so a photo can travel with the fields:
//
//	title        required, 2-100 chars, unique per owner
//	description  optional, up to 500 chars
//	price        required, at least 0.01
//	photo        optional file; png, jpeg or gif
//
// Updates accept the same form, or a JSON body when no photo changes.
type ProductHandler struct {
	products  *service.ProductService
	maxUpload int64
	logger    *slog.Logger
}

// NewProductHandler builds the handler. maxUpload is the largest photo the
// photo store accepts; request bodies are capped a little above it.
func NewProductHandler(products *service.ProductService, maxUpload int64, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: products, maxUpload: maxUpload, logger: logger}
}

// HandleCreate: POST /product/ (multipart/form-data)
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	in, photo, err := h.readForm(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if photo != nil {
		defer photo.Close()
	}

	p, err := h.products.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleList: GET /product/
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	products, err := h.products.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// HandleGet: GET /product/{id}
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.products.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate: PUT /product/{id} (multipart/form-data or JSON)
func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.ProductInput
	if isMultipart(r) {
		var photo multipart.File
		in, photo, err = h.readForm(w, r)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if photo != nil {
			defer photo.Close()
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.products.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete: DELETE /product/{id}
//
// The product's line items disappear from every order that had them.
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.products.Delete(r.Context(), userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted"})
}

// HandlePhoto: GET /product/photo/{filename}
//
// Serves a stored photo, provided one of the caller's products uses it.
func (h *ProductHandler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	path, err := h.products.PhotoPath(r.Context(), userID, chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}

// readForm parses a multipart body into a ProductInput. A form key that is
// present counts as set, even when empty. The returned file, if any, is the
// photo and must be closed by the caller.
func (h *ProductHandler) readForm(w http.ResponseWriter, r *http.Request) (service.ProductInput, multipart.File, error) {
	var in service.ProductInput

	if !isMultipart(r) {
		return in, nil, apperror.ValidationFailed("request", "expected multipart/form-data")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return in, nil, apperror.ValidationFailed("photo", "Request body too large")
		}
		return in, nil, apperror.ValidationFailed("request", "invalid multipart form")
	}

	form := r.MultipartForm.Value
	if v, ok := form["title"]; ok && len(v) > 0 {
		in.Title = optional.Of(v[0])
	}
	if v, ok := form["description"]; ok && len(v) > 0 {
		in.Description = optional.Of(v[0])
	}
	if v, ok := form["price"]; ok && len(v) > 0 {
		price, err := strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
		if err != nil {
			return in, nil, apperror.ValidationFailed("price", "must be a number")
		}
		in.Price = optional.Of(price)
	}

	file, _, err := r.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil, nil
	case err != nil:
		return in, nil, apperror.ValidationFailed("photo", "could not read uploaded file")
	}
	in.Photo = file
	return in, file, nil
}

func (h *ProductHandler) target(r *http.Request) (userID, id int64, err error) {
	if userID, err = currentUser(r); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(r, "product"); err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
