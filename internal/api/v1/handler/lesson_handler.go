package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// LessonHandler handles lesson endpoints, including the nested like, favorite,
// comment and report routes.
type LessonHandler struct {
	lessonService  service.LessonService
	commentService service.CommentService
	reportService  service.ReportService
	userService    service.UserService
	validate       *validator.Validate
}

// NewLessonHandler creates a new LessonHandler
func NewLessonHandler(
	lessonService service.LessonService,
	commentService service.CommentService,
	reportService service.ReportService,
	userService service.UserService,
	validate *validator.Validate,
) *LessonHandler {
	return &LessonHandler{
		lessonService:  lessonService,
		commentService: commentService,
		reportService:  reportService,
		userService:    userService,
		validate:       validate,
	}
}

// RegisterRoutes mounts lesson routes under /lessons and /lessons/{id}
func (h *LessonHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/lessons", authMw(http.HandlerFunc(h.handleLessons)))
	mux.Handle("/lessons/", authMw(http.HandlerFunc(h.handleLesson)))
}

func (h *LessonHandler) handleLessons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listLessons(w, r)
	case http.MethodPost:
		h.createLesson(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LessonHandler) handleLesson(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if !strings.HasPrefix(path, "/lessons/") {
		http.NotFound(w, r)
		return
	}
	switch {
	case strings.HasSuffix(path, "/like"):
		h.handleLike(w, r)
	case strings.HasSuffix(path, "/favorite"):
		h.toggleFavorite(w, r)
	case strings.HasSuffix(path, "/comments"):
		h.handleComments(w, r)
	case strings.HasSuffix(path, "/reports"):
		h.createReport(w, r)
	case strings.HasSuffix(path, "/thumbnail-upload"):
		h.initiateThumbnailUpload(w, r)
	default:
		switch r.Method {
		case http.MethodGet:
			h.getLesson(w, r)
		case http.MethodPut:
			h.updateLesson(w, r)
		case http.MethodDelete:
			h.deleteLesson(w, r)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

// listLessons godoc
// @Summary List lessons
// @Description Lists lessons ordered by last update, optionally filtered by title search.
// @Tags lessons
// @Produce json
// @Param search query string false "Title search"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} dto.LessonResponseDTO
// @Router /lessons [get]
func (h *LessonHandler) listLessons(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	search := r.URL.Query().Get("search")

	lessons, err := h.lessonService.List(r.Context(), search, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list lessons: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.LessonResponseDTO, 0, len(lessons))
	for _, l := range lessons {
		resp = append(resp, lessonToDTO(&l))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *LessonHandler) createLesson(w http.ResponseWriter, r *http.Request) {
	// 1. Extract UserID from context
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	// 2. Decode and validate request body
	var req dto.LessonCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 3. Create the lesson
	lesson, err := h.lessonService.Create(r.Context(), &model.Lesson{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		http.Error(w, "Failed to create lesson: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(lessonToDTO(lesson))
}

// getLesson godoc
// @Summary Get a lesson
// @Tags lessons
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} dto.LessonResponseDTO
// @Failure 404 {string} string "Lesson not found"
// @Router /lessons/{lessonId} [get]
func (h *LessonHandler) getLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := strings.TrimPrefix(r.URL.Path, "/lessons/")
	lesson, err := h.lessonService.Get(r.Context(), lessonID)
	if err != nil {
		if errors.Is(err, service.ErrLessonNotFound) {
			http.Error(w, "Lesson not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve lesson: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lessonToDTO(lesson))
}

func (h *LessonHandler) updateLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	lessonID := strings.TrimPrefix(r.URL.Path, "/lessons/")

	var req dto.LessonUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	lesson, err := h.lessonService.Update(r.Context(), userID, h.isAdmin(r), &model.Lesson{
		ID:          lessonID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		writeLessonError(w, err, "Failed to update lesson")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lessonToDTO(lesson))
}

func (h *LessonHandler) deleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	lessonID := strings.TrimPrefix(r.URL.Path, "/lessons/")

	if err := h.lessonService.Delete(r.Context(), userID, h.isAdmin(r), lessonID); err != nil {
		writeLessonError(w, err, "Failed to delete lesson")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LessonHandler) handleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	lessonID := nestedLessonID(r.URL.Path, "/like")

	var err error
	switch r.Method {
	case http.MethodPost:
		err = h.lessonService.Like(r.Context(), lessonID, userID)
	case http.MethodDelete:
		err = h.lessonService.Unlike(r.Context(), lessonID, userID)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		writeLessonError(w, err, "Failed to update like")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LessonHandler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	lessonID := nestedLessonID(r.URL.Path, "/favorite")

	favorited, err := h.lessonService.ToggleFavorite(r.Context(), lessonID, userID)
	if err != nil {
		writeLessonError(w, err, "Failed to toggle favorite")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.FavoriteResponseDTO{LessonID: lessonID, Favorited: favorited})
}

func (h *LessonHandler) handleComments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listComments(w, r)
	case http.MethodPost:
		h.createComment(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LessonHandler) listComments(w http.ResponseWriter, r *http.Request) {
	lessonID := nestedLessonID(r.URL.Path, "/comments")
	limit, offset := paginationParams(r)

	comments, err := h.commentService.List(r.Context(), lessonID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list comments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.CommentResponseDTO, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, commentToDTO(&c))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *LessonHandler) createComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	lessonID := nestedLessonID(r.URL.Path, "/comments")

	var req dto.CommentCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.commentService.Create(r.Context(), &model.Comment{
		LessonID: lessonID,
		UserID:   userID,
		Body:     req.Body,
	})
	if err != nil {
		writeLessonError(w, err, "Failed to create comment")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(commentToDTO(comment))
}

func (h *LessonHandler) createReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	lessonID := nestedLessonID(r.URL.Path, "/reports")

	var req dto.ReportCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reportService.Create(r.Context(), &model.Report{
		LessonID: lessonID,
		UserID:   userID,
		Reason:   req.Reason,
	})
	if err != nil {
		writeLessonError(w, err, "Failed to create report")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto.ReportResponseDTO{
		ReportID:  report.ID,
		LessonID:  report.LessonID,
		UserID:    report.UserID,
		Reason:    report.Reason,
		CreatedAt: report.CreatedAt,
	})
}

func (h *LessonHandler) initiateThumbnailUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	lessonID := nestedLessonID(r.URL.Path, "/thumbnail-upload")

	uploadURL, storagePath, err := h.lessonService.InitiateThumbnailUpload(r.Context(), userID, h.isAdmin(r), lessonID)
	if err != nil {
		writeLessonError(w, err, "Failed to initiate thumbnail upload")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.UploadResponseDTO{UploadURL: uploadURL, StoragePath: storagePath})
}

// isAdmin reports whether the authenticated caller has the admin role.
func (h *LessonHandler) isAdmin(r *http.Request) bool {
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

// nestedLessonID extracts the lesson id from /lessons/{id}{suffix} paths.
func nestedLessonID(path, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, "/lessons/"), suffix)
}

func paginationParams(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeLessonError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrLessonNotFound):
		http.Error(w, "Lesson not found", http.StatusNotFound)
	case errors.Is(err, service.ErrCommentNotFound):
		http.Error(w, "Comment not found", http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		http.Error(w, fallback+": "+err.Error(), http.StatusInternalServerError)
	}
}

func lessonToDTO(l *model.Lesson) dto.LessonResponseDTO {
	return dto.LessonResponseDTO{
		LessonID:      l.ID,
		UserID:        l.UserID,
		Title:         l.Title,
		Description:   l.Description,
		Content:       l.Content,
		ThumbnailPath: l.ThumbnailPath,
		LikeCount:     l.LikeCount,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func commentToDTO(c *model.Comment) dto.CommentResponseDTO {
	return dto.CommentResponseDTO{
		CommentID: c.ID,
		LessonID:  c.LessonID,
		UserID:    c.UserID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
