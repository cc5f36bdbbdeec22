package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	// UpsertUser creates the profile on first login or refreshes the mutable
	// profile fields on subsequent logins. The user_id never changes.
	UpsertUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// MarkPremium flips is_premium to true and stamps premium_since on the
	// first transition only. Reports false when the user does not exist.
	MarkPremium(ctx context.Context, userID string) (bool, error)
	UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error
	UpdateRole(ctx context.Context, userID, role string) (bool, error)
	DeleteUser(ctx context.Context, userID string) (bool, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) UpsertUser(ctx context.Context, u *model.User) error {
	const q = `
        INSERT INTO user_profiles (user_id, email, name, avatar_url)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE
        SET email = EXCLUDED.email,
            name = EXCLUDED.name,
            avatar_url = EXCLUDED.avatar_url,
            updated_at = NOW()
        RETURNING user_id, email, name, avatar_url, role, is_premium, premium_since, created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, u.UserID, u.Email, u.Name, u.AvatarURL).Scan(
		&u.UserID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.Role,
		&u.IsPremium,
		&u.PremiumSince,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
        SELECT user_id, email, name, avatar_url, role, is_premium, premium_since, created_at, updated_at
        FROM user_profiles
        WHERE user_id = $1
    `
	var u model.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.UserID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.Role,
		&u.IsPremium,
		&u.PremiumSince,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user by id %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) MarkPremium(ctx context.Context, userID string) (bool, error) {
	// Setting the flag twice is harmless; COALESCE keeps the original
	// premium_since on redundant applications.
	const q = `
        UPDATE user_profiles
        SET is_premium = TRUE,
            premium_since = COALESCE(premium_since, NOW()),
            updated_at = NOW()
        WHERE user_id = $1
    `
	ct, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return false, fmt.Errorf("marking user %s premium: %w", userID, err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *userRepo) UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error {
	const q = `UPDATE user_profiles SET avatar_url = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, avatarURL); err != nil {
		return fmt.Errorf("updating avatar for user %s: %w", userID, err)
	}
	return nil
}

func (r *userRepo) UpdateRole(ctx context.Context, userID, role string) (bool, error) {
	const q = `UPDATE user_profiles SET role = $2, updated_at = NOW() WHERE user_id = $1`
	ct, err := r.pool.Exec(ctx, q, userID, role)
	if err != nil {
		return false, fmt.Errorf("updating role for user %s: %w", userID, err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *userRepo) DeleteUser(ctx context.Context, userID string) (bool, error) {
	const q = `DELETE FROM user_profiles WHERE user_id = $1`
	ct, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return false, fmt.Errorf("deleting user %s: %w", userID, err)
	}
	return ct.RowsAffected() > 0, nil
}
