package order

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/krishbavarva/freshcart/internal/delivery"
	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Handler provides HTTP handlers for the order module
type Handler struct {
	service *Service
	store   Store
}

// NewHandler creates a new order handler
func NewHandler(service *Service, store Store) *Handler {
	return &Handler{service: service, store: store}
}

// Routes registers the order routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.RoleCustomer))

		r.Post("/quote", h.QuoteCheckout)
		r.Post("/", h.CreateOrder)
		r.Post("/{orderID}/confirm", h.ConfirmOrder)
	})

	r.Get("/", h.ListOrders)
	r.Get("/{orderID}", h.GetOrder)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.RoleRider, auth.RoleManager))

		r.Put("/{orderID}/status", h.UpdateStatus)
	})

	return r
}

func decodeCheckout(r *http.Request) (*CheckoutRequest, *errors.AppError) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.BadRequest("invalid request body")
	}
	if !req.Address.IsComplete() {
		return nil, errors.Validation("validation failed", map[string]string{
			"address": "street, city and country are required",
		})
	}
	return &req, nil
}

// QuoteCheckout prices the cart plus delivery for an address
func (h *Handler) QuoteCheckout(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	req, appErr := decodeCheckout(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	quote, err := h.service.QuoteCheckout(r.Context(), current.ID, req.Address)
	if err != nil {
		writeError(w, delivery.ToAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// CreateOrder places an order from the current cart
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	req, appErr := decodeCheckout(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	o, err := h.service.Create(r.Context(), current.ID, req.Address)
	if err != nil {
		writeError(w, delivery.ToAppError(err))
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

// ConfirmOrder completes payment for a pending order
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	orderID, err := types.ParseID(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid order ID"))
		return
	}

	o, err := h.service.Confirm(r.Context(), current.ID, orderID)
	if err != nil {
		writeError(w, delivery.ToAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// ListOrders lists orders scoped by role: customers see their own, riders
// see their assignments plus unassigned paid orders, managers see all.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())
	q := r.URL.Query()

	filter := ListOrdersFilter{}

	if statusParam := q.Get("status"); statusParam != "" {
		if !ValidStatus(statusParam) {
			writeError(w, errors.BadRequest("unknown status"))
			return
		}
		status := Status(statusParam)
		filter.Status = &status
	}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	switch current.Role {
	case auth.RoleCustomer:
		filter.UserID = &current.ID
	case auth.RoleRider:
		if q.Get("available") == "true" {
			// Unassigned paid orders a rider could take.
			paid := StatusPaid
			filter.Status = &paid
		} else {
			filter.RiderID = &current.ID
		}
	}

	orders, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  orders,
		"total": total,
	})
}

// GetOrder gets an order; customers only see their own, riders their
// assignments.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	orderID, err := types.ParseID(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid order ID"))
		return
	}

	o, err := h.store.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	switch current.Role {
	case auth.RoleCustomer:
		if o.UserID != current.ID {
			writeError(w, errors.NotFound("order", orderID.String()))
			return
		}
	case auth.RoleRider:
		assigned := o.RiderID != nil && *o.RiderID == current.ID
		if !assigned && o.Status != StatusPaid {
			writeError(w, errors.NotFound("order", orderID.String()))
			return
		}
	}

	writeJSON(w, http.StatusOK, o)
}

// UpdateStatus moves an order to a new status (rider or manager)
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())

	orderID, err := types.ParseID(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid order ID"))
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	o, err := h.service.UpdateStatus(r.Context(), current, orderID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
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
