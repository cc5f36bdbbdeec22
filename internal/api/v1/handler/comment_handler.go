package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// CommentHandler handles the flat comment routes for edits and deletions.
type CommentHandler struct {
	commentService service.CommentService
	userService    service.UserService
	validate       *validator.Validate
}

func NewCommentHandler(commentService service.CommentService, userService service.UserService, v *validator.Validate) *CommentHandler {
	return &CommentHandler{commentService: commentService, userService: userService, validate: v}
}

// RegisterRoutes mounts comment routes under /comments/{id}
func (h *CommentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/comments/", authMw(http.HandlerFunc(h.handleComment)))
}

func (h *CommentHandler) handleComment(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.updateComment(w, r)
	case http.MethodDelete:
		h.deleteComment(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CommentHandler) updateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	commentID := strings.TrimPrefix(r.URL.Path, "/comments/")

	var req dto.CommentCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.commentService.Update(r.Context(), userID, h.isAdmin(r), commentID, req.Body)
	if err != nil {
		writeLessonError(w, err, "Failed to update comment")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commentToDTO(comment))
}

func (h *CommentHandler) deleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	commentID := strings.TrimPrefix(r.URL.Path, "/comments/")

	if err := h.commentService.Delete(r.Context(), userID, h.isAdmin(r), commentID); err != nil {
		writeLessonError(w, err, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommentHandler) isAdmin(r *http.Request) bool {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		return false
	}
	u, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		return false
	}
	return u.Role == model.RoleAdmin
}
