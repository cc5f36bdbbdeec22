package model

import "time"

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a user in the system. The UserID comes from the auth
// provider and is immutable after the first login upsert.
type User struct {
	UserID       string     `db:"user_id" json:"user_id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	AvatarURL    string     `db:"avatar_url" json:"avatar_url"`
	Role         string     `db:"role" json:"role"`
	IsPremium    bool       `db:"is_premium" json:"is_premium"`
	PremiumSince *time.Time `db:"premium_since" json:"premium_since,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
