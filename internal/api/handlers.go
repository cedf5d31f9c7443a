package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/timberline/internal/apperr"
	"github.com/starford/timberline/internal/catalog"
	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/productservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *productservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *productservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListProducts handles GET /api/products.
//
//	@Summary		Query the catalog
//	@Tags			products
//	@Produce		json
//	@Param			search			query		string	false	"Case-insensitive substring of name, species, category or description"
//	@Param			category		query		string	false	"Exact category"
//	@Param			species			query		string	false	"Exact species"
//	@Param			minPrice		query		number	false	"Inclusive lower price bound"
//	@Param			maxPrice		query		number	false	"Inclusive upper price bound"
//	@Param			grainPattern	query		string	false	"Comma separated tags, any overlap matches"
//	@Param			inStock			query		bool	false	"true restricts to in-stock products"
//	@Param			featured		query		bool	false	"true restricts to featured products"
//	@Param			sort			query		string	false	"Sort key"	Enums(name, price, -price, species)
//	@Success		200				{object}	ProductListResponse
//	@Security		BearerAuth
//	@Router			/products [get]
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.Query(r.Context(), catalog.FilterFromQuery(q), catalog.ParseSortKey(q.Get("sort")))
	if err != nil {
		slog.Error("query products failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetProduct handles GET /api/products/{id}.
//
//	@Summary		Get a single product
//	@Tags			products
//	@Produce		json
//	@Param			id	path		string	true	"Product id"
//	@Success		200	{object}	ProductRequest
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/products/{id} [get]
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get product failed", id, err)
		return
	}
	writeProduct(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/products.
//
//	@Summary		Create a custom product
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProductRequest	true	"Product to create; id is generated when empty"
//	@Success		201		{object}	ProductRequest
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/products [post]
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	created, err := h.svc.Create(r.Context(), p)
	if err != nil {
		h.writeError(w, "create product failed", p.ID, err)
		return
	}
	writeProduct(w, http.StatusCreated, created)
}

// UpdateProduct handles PUT /api/products/{id}.
//
//	@Summary		Replace a product with optimistic concurrency
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Product id"
//	@Param			If-Match	header		string			false	"ETag of the current record"
//	@Param			body		body		ProductRequest	true	"Replacement record"
//	@Success		200			{object}	ProductRequest
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/products/{id} [put]
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	if p.ID != "" && p.ID != id {
		writeJSON(w, http.StatusBadRequest, errorBody("id in body does not match path"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	updated, err := h.svc.Update(r.Context(), id, p, ifMatch)
	if err != nil {
		h.writeError(w, "update product failed", id, err)
		return
	}
	writeProduct(w, http.StatusOK, updated)
}

// DeleteProduct handles DELETE /api/products/{id}.
//
//	@Summary		Delete a custom product
//	@Tags			products
//	@Param			id	path	string	true	"Product id"
//	@Success		204	"Product deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/products/{id} [delete]
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, "delete product failed", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (models.Product, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return p, false
	}
	return p, true
}

func writeProduct(w http.ResponseWriter, status int, p *models.Product) {
	w.Header().Set("ETag", `"`+productservice.ETag(*p)+`"`)
	writeJSON(w, status, p)
}

func (h *Handler) writeError(w http.ResponseWriter, msg, id string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("product already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("etag mismatch"))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(msg, slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
