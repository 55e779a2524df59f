package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Handler provides HTTP handlers for the cart module
type Handler struct {
	repo *Repository
}

// NewHandler creates a new cart handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the cart routes. All routes act on the authenticated
// customer's own cart.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRoles(auth.RoleCustomer))

	r.Get("/", h.GetCart)
	r.Put("/items", h.SetItem)
	r.Delete("/items/{productID}", h.RemoveItem)
	r.Delete("/", h.ClearCart)

	return r
}

// GetCart returns the customer's cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	items, err := h.repo.GetItems(r.Context(), current.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	if items == nil {
		items = []Item{}
	}

	writeJSON(w, http.StatusOK, Cart{
		UserID:        current.ID,
		Items:         items,
		SubtotalCents: Subtotal(items),
	})
}

// SetItem adds a product or changes its quantity
func (h *Handler) SetItem(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	var req SetItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.ProductID.IsZero() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"product_id": "product_id is required",
		}))
		return
	}
	if req.Quantity <= 0 {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"quantity": "quantity must be positive; use the remove endpoint to drop a line",
		}))
		return
	}

	if err := h.repo.SetItem(r.Context(), current.ID, req.ProductID, req.Quantity); err != nil {
		writeError(w, err)
		return
	}

	h.GetCart(w, r)
}

// RemoveItem removes a product from the cart
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	productID, err := types.ParseID(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid product ID"))
		return
	}

	if err := h.repo.RemoveItem(r.Context(), current.ID, productID); err != nil {
		writeError(w, err)
		return
	}

	h.GetCart(w, r)
}

// ClearCart removes every line from the cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	if err := h.repo.Clear(r.Context(), current.ID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
