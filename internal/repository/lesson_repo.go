package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LessonRepository defines the interface for interacting with lesson data
type LessonRepository interface {
	CreateLesson(ctx context.Context, l *model.Lesson) error
	GetLessonByID(ctx context.Context, lessonID string) (*model.Lesson, error)
	// ListLessons returns lessons ordered by last update, optionally filtered
	// by a case-insensitive title match.
	ListLessons(ctx context.Context, search string, limit, offset int) ([]model.Lesson, error)
	UpdateLesson(ctx context.Context, l *model.Lesson) error
	DeleteLesson(ctx context.Context, lessonID string) error

	// AddLike and AddFavorite report false when the row already existed.
	AddLike(ctx context.Context, lessonID, userID string) (bool, error)
	RemoveLike(ctx context.Context, lessonID, userID string) error
	AddFavorite(ctx context.Context, lessonID, userID string) (bool, error)
	RemoveFavorite(ctx context.Context, lessonID, userID string) error
	ListFavoritesByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Lesson, error)
}

type lessonRepo struct {
	pool *pgxpool.Pool
}

// NewLessonRepo creates a new LessonRepository
func NewLessonRepo(pool *pgxpool.Pool) LessonRepository {
	return &lessonRepo{pool: pool}
}

const lessonColumns = `
    l.id, l.user_id, l.title, l.description, l.content, l.thumbnail_path,
    (SELECT COUNT(*) FROM lesson_likes ll WHERE ll.lesson_id = l.id) AS like_count,
    l.created_at, l.updated_at`

func scanLesson(row pgx.Row, l *model.Lesson) error {
	return row.Scan(
		&l.ID,
		&l.UserID,
		&l.Title,
		&l.Description,
		&l.Content,
		&l.ThumbnailPath,
		&l.LikeCount,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
}

func (r *lessonRepo) CreateLesson(ctx context.Context, l *model.Lesson) error {
	const q = `
        INSERT INTO lessons (user_id, title, description, content, thumbnail_path)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, l.UserID, l.Title, l.Description, l.Content, l.ThumbnailPath).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating lesson: %w", err)
	}
	return nil
}

func (r *lessonRepo) GetLessonByID(ctx context.Context, lessonID string) (*model.Lesson, error) {
	q := `SELECT` + lessonColumns + ` FROM lessons l WHERE l.id = $1`
	var l model.Lesson
	if err := scanLesson(r.pool.QueryRow(ctx, q, lessonID), &l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting lesson by id %s: %w", lessonID, err)
	}
	return &l, nil
}

func (r *lessonRepo) ListLessons(ctx context.Context, search string, limit, offset int) ([]model.Lesson, error) {
	q := `SELECT` + lessonColumns + `
        FROM lessons l
        WHERE ($1 = '' OR l.title ILIKE '%' || $1 || '%')
        ORDER BY l.updated_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, q, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying lessons: %w", err)
	}
	defer rows.Close()
	return collectLessons(rows)
}

func (r *lessonRepo) UpdateLesson(ctx context.Context, l *model.Lesson) error {
	const q = `
        UPDATE lessons
        SET title = $2, description = $3, content = $4, thumbnail_path = $5, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	err := r.pool.QueryRow(ctx, q, l.ID, l.Title, l.Description, l.Content, l.ThumbnailPath).
		Scan(&l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating lesson %s: %w", l.ID, err)
	}
	return nil
}

func (r *lessonRepo) DeleteLesson(ctx context.Context, lessonID string) error {
	const q = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, lessonID); err != nil {
		return fmt.Errorf("deleting lesson %s: %w", lessonID, err)
	}
	return nil
}

func (r *lessonRepo) AddLike(ctx context.Context, lessonID, userID string) (bool, error) {
	const q = `
        INSERT INTO lesson_likes (lesson_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (lesson_id, user_id) DO NOTHING
    `
	ct, err := r.pool.Exec(ctx, q, lessonID, userID)
	if err != nil {
		return false, fmt.Errorf("liking lesson %s: %w", lessonID, err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *lessonRepo) RemoveLike(ctx context.Context, lessonID, userID string) error {
	const q = `DELETE FROM lesson_likes WHERE lesson_id = $1 AND user_id = $2`
	if _, err := r.pool.Exec(ctx, q, lessonID, userID); err != nil {
		return fmt.Errorf("unliking lesson %s: %w", lessonID, err)
	}
	return nil
}

func (r *lessonRepo) AddFavorite(ctx context.Context, lessonID, userID string) (bool, error) {
	const q = `
        INSERT INTO lesson_favorites (lesson_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (lesson_id, user_id) DO NOTHING
    `
	ct, err := r.pool.Exec(ctx, q, lessonID, userID)
	if err != nil {
		return false, fmt.Errorf("favoriting lesson %s: %w", lessonID, err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *lessonRepo) RemoveFavorite(ctx context.Context, lessonID, userID string) error {
	const q = `DELETE FROM lesson_favorites WHERE lesson_id = $1 AND user_id = $2`
	if _, err := r.pool.Exec(ctx, q, lessonID, userID); err != nil {
		return fmt.Errorf("unfavoriting lesson %s: %w", lessonID, err)
	}
	return nil
}

func (r *lessonRepo) ListFavoritesByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Lesson, error) {
	q := `SELECT` + lessonColumns + `
        FROM lessons l
        JOIN lesson_favorites lf ON lf.lesson_id = l.id
        WHERE lf.user_id = $1
        ORDER BY lf.created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying favorites for user %s: %w", userID, err)
	}
	defer rows.Close()
	return collectLessons(rows)
}

func collectLessons(rows pgx.Rows) ([]model.Lesson, error) {
	var lessons []model.Lesson
	for rows.Next() {
		var l model.Lesson
		if err := scanLesson(rows, &l); err != nil {
			return nil, fmt.Errorf("scanning lesson row: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lesson rows: %w", err)
	}
	// If no lessons found, return an empty slice, not nil
	if len(lessons) == 0 {
		return []model.Lesson{}, nil
	}
	return lessons, nil
}
