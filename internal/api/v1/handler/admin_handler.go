package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminHandler handles the administrative user management endpoints.
type AdminHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewAdminHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{userService: userService, validate: v, logger: logger}
}

// RegisterRoutes mounts admin routes under /admin/users/{id}
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/users/", authMw(http.HandlerFunc(h.handleUser)))
}

func (h *AdminHandler) handleUser(w http.ResponseWriter, r *http.Request) {
	// Every admin route requires the admin role, checked against the stored
	// profile rather than any claim in the token.
	actorID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || actorID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	actor, err := h.userService.Get(r.Context(), actorID)
	if err != nil || actor.Role != model.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	switch {
	case (r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.HasSuffix(path, "/role"):
		h.updateRole(w, r, strings.TrimSuffix(path, "/role"))
	case r.Method == http.MethodDelete:
		h.deleteUser(w, r, actorID, path)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) updateRole(w http.ResponseWriter, r *http.Request, targetID string) {
	var req dto.RoleUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdateRole(r.Context(), targetID, req.Role); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidRole):
			http.Error(w, "Invalid role", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to update role: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request, actorID, targetID string) {
	if targetID == actorID {
		http.Error(w, "Admins cannot delete their own account", http.StatusBadRequest)
		return
	}
	if err := h.userService.Delete(r.Context(), targetID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.logger.Info().Str("admin_id", actorID).Str("user_id", targetID).Msg("User deleted by admin")
	w.WriteHeader(http.StatusNoContent)
}
