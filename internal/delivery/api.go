package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Handler provides HTTP handlers for delivery quoting
type Handler struct {
	service *Service
}

// NewHandler creates a new delivery handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the delivery routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/quote", h.QuoteDelivery)
	return r
}

// QuoteRequest is the request to price a delivery address
type QuoteRequest struct {
	Address types.Address `json:"address"`
}

// QuoteDelivery prices delivery to an address
func (h *Handler) QuoteDelivery(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body"))
		return
	}

	if !req.Address.IsComplete() {
		writeError(w, apperrors.Validation("validation failed", map[string]string{
			"address": "street, city and country are required",
		}))
		return
	}

	quote, err := h.service.Quote(r.Context(), req.Address.Text())
	if err != nil {
		writeError(w, ToAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// ToAppError converts the delivery failure taxonomy into API errors. Used
// here and by the order module, so refusals read the same everywhere.
func ToAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var notFound *AddressNotFoundError
	if errors.As(err, &notFound) {
		return apperrors.Unprocessable("ADDRESS_NOT_FOUND",
			fmt.Sprintf("could not locate address %q, please check it", notFound.Address),
			map[string]string{"address": notFound.Address})
	}

	var outOfRange *OutOfRangeError
	if errors.As(err, &outOfRange) {
		return apperrors.Unprocessable("OUT_OF_RANGE",
			fmt.Sprintf("delivery distance %.1f km exceeds the %.0f km limit",
				outOfRange.DistanceKm, MaxDeliveryKm),
			map[string]string{"distance_km": fmt.Sprintf("%.1f", outOfRange.DistanceKm)})
	}

	if errors.Is(err, ErrAllProvidersUnavailable) {
		return apperrors.Unavailable("delivery quoting is temporarily unavailable")
	}

	// ErrComputationDefect and anything unexpected stay generic.
	return apperrors.Internal(err)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*apperrors.AppError); ok {
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
