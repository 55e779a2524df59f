package catalog

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/krishbavarva/freshcart/internal/catalog/foodapi"
	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Handler provides HTTP handlers for the catalog module
type Handler struct {
	repo *Repository
	food *foodapi.Client
}

// NewHandler creates a new catalog handler. The food client may be nil when
// the external food database is disabled.
func NewHandler(repo *Repository, food *foodapi.Client) *Handler {
	return &Handler{repo: repo, food: food}
}

// Routes registers the catalog routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListProducts)
	r.Get("/{productID}", h.GetProduct)

	// Catalog management
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.RoleManager))

		r.Post("/", h.CreateProduct)
		r.Post("/import", h.ImportProduct)
		r.Get("/food-search", h.SearchFoodDatabase)
		r.Put("/{productID}", h.UpdateProduct)
		r.Delete("/{productID}", h.DeleteProduct)
	})

	return r
}

// ListProducts lists products. Customers only see active products; managers
// can pass include_inactive=true.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ListProductsFilter{
		Category:   q.Get("category"),
		Search:     q.Get("search"),
		ActiveOnly: true,
	}

	if q.Get("include_inactive") == "true" {
		current := auth.GetUser(r.Context())
		if current != nil && current.HasAnyRole(auth.RoleManager) {
			filter.ActiveOnly = false
		}
	}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	products, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  products,
		"total": total,
	})
}

// GetProduct gets a product by ID
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid product ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// CreateProduct creates a product (manager)
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if details := validateProduct(req.Name, req.PriceCents, req.Stock); len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	p := &Product{
		ID:          types.NewID(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Barcode:     req.Barcode,
		ImageURL:    req.ImageURL,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Active:      true,
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// ImportProduct imports a product from the food database by barcode (manager)
func (h *Handler) ImportProduct(w http.ResponseWriter, r *http.Request) {
	if h.food == nil {
		writeError(w, errors.Unavailable("food database integration is disabled"))
		return
	}

	var req ImportProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if strings.TrimSpace(req.Barcode) == "" {
		details["barcode"] = "barcode is required"
	}
	if req.PriceCents <= 0 {
		details["price_cents"] = "price must be positive"
	}
	if req.Stock < 0 {
		details["stock"] = "stock cannot be negative"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	fp, err := h.food.GetByBarcode(r.Context(), req.Barcode)
	if err != nil {
		if stderrors.Is(err, foodapi.ErrNotFound) {
			writeError(w, errors.NotFound("food database entry", req.Barcode))
			return
		}
		writeError(w, errors.Unavailable("food database is unreachable"))
		return
	}

	p := &Product{
		ID:          types.NewID(),
		Name:        fp.Name,
		Description: fp.Description,
		Category:    fp.Category,
		Barcode:     fp.Barcode,
		ImageURL:    fp.ImageURL,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Active:      true,
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// SearchFoodDatabase proxies a free-text search against the food database (manager)
func (h *Handler) SearchFoodDatabase(w http.ResponseWriter, r *http.Request) {
	if h.food == nil {
		writeError(w, errors.Unavailable("food database integration is disabled"))
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, errors.BadRequest("query parameter q is required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.food.Search(r.Context(), term, limit)
	if err != nil {
		writeError(w, errors.Unavailable("food database is unreachable"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": results})
}

// UpdateProduct updates a product (manager)
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid product ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	if req.PriceCents != nil {
		p.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if details := validateProduct(p.Name, p.PriceCents, p.Stock); len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	if err := h.repo.Update(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct deletes a product (manager)
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid product ID"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validateProduct(name string, priceCents int64, stock int) map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "name is required"
	}
	if priceCents <= 0 {
		details["price_cents"] = "price must be positive"
	}
	if stock < 0 {
		details["stock"] = "stock cannot be negative"
	}
	return details
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
