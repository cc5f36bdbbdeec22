package dto

import "time"

// UserSyncDTO is used for incoming profile sync requests
type UserSyncDTO struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,max=500"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	AvatarURL    string     `json:"avatar_url"`
	Role         string     `json:"role"`
	IsPremium    bool       `json:"is_premium"`
	PremiumSince *time.Time `json:"premium_since,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UploadResponseDTO carries a presigned PUT URL and the object path it targets.
type UploadResponseDTO struct {
	UploadURL   string `json:"upload_url"`
	StoragePath string `json:"storage_path"`
}

// RoleUpdateDTO is the admin request to change a user's role.
type RoleUpdateDTO struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}
