package user

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Handler provides HTTP handlers for the user module
type Handler struct {
	repo    *Repository
	authCfg config.AuthConfig
}

// NewHandler creates a new user handler
func NewHandler(repo *Repository, authCfg config.AuthConfig) *Handler {
	return &Handler{repo: repo, authCfg: authCfg}
}

// PublicRoutes registers the unauthenticated routes
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	return r
}

// Routes registers the authenticated user routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.Me)
	r.Put("/me", h.UpdateMe)

	// Account administration
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.RoleAdmin))

		r.Get("/", h.ListUsers)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Put("/role", h.ChangeRole)
			r.Delete("/", h.DeleteUser)
		})
	})

	return r
}

// Register creates a customer account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	details := map[string]string{}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		details["email"] = "a valid email is required"
	}
	if len(req.Password) < 8 {
		details["password"] = "password must be at least 8 characters"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	u := &User{
		ID:           types.NewID(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         auth.RoleCustomer,
		Phone:        req.Phone,
		Address:      req.Address,
	}

	if err := h.repo.Create(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// Login authenticates an account and issues a token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	u, err := h.repo.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Same response for unknown email and wrong password.
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}

	token, err := auth.Issue(h.authCfg, u.ID, u.Email, u.Role)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: *u})
}

// Me returns the authenticated user's account
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())
	if current == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	u, err := h.repo.Get(r.Context(), current.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// UpdateMe updates the authenticated user's profile
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())
	if current == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	u, err := h.repo.Get(r.Context(), current.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.Address != nil {
		u.Address = *req.Address
	}

	if err := h.repo.Update(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// ListUsers lists accounts (admin)
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := ListUsersFilter{
		Search: r.URL.Query().Get("search"),
	}

	if roleParam := r.URL.Query().Get("role"); roleParam != "" {
		if !auth.ValidRole(roleParam) {
			writeError(w, errors.BadRequest("unknown role"))
			return
		}
		role := auth.Role(roleParam)
		filter.Role = &role
	}

	users, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  users,
		"total": total,
	})
}

// GetUser gets an account by ID (admin)
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	u, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// ChangeRole changes an account's role (admin)
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if !auth.ValidRole(string(req.Role)) {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"role": "role must be one of customer, rider, manager, admin",
		}))
		return
	}

	u, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	u.Role = req.Role
	if err := h.repo.Update(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// DeleteUser deletes an account (admin)
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
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
