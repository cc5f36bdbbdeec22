package dto

import "time"

// LessonCreateDTO is used for incoming create requests
type LessonCreateDTO struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Content     string `json:"content" validate:"required"`
}

// LessonUpdateDTO is used for incoming update requests
type LessonUpdateDTO struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Content     string `json:"content" validate:"required"`
}

// LessonResponseDTO is returned in API responses
type LessonResponseDTO struct {
	LessonID      string    `json:"lesson_id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Content       string    `json:"content"`
	ThumbnailPath string    `json:"thumbnail_path"`
	LikeCount     int       `json:"like_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FavoriteResponseDTO reports the favorite state after a toggle.
type FavoriteResponseDTO struct {
	LessonID  string `json:"lesson_id"`
	Favorited bool   `json:"favorited"`
}

// CommentCreateDTO is used for incoming comment create and update requests
type CommentCreateDTO struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// CommentResponseDTO is returned in API responses
type CommentResponseDTO struct {
	CommentID string    `json:"comment_id"`
	LessonID  string    `json:"lesson_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportCreateDTO is used for incoming report requests
type ReportCreateDTO struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ReportResponseDTO is returned in API responses
type ReportResponseDTO struct {
	ReportID  string    `json:"report_id"`
	LessonID  string    `json:"lesson_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
