package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentRepository interface {
	ListCommentsByLessonID(ctx context.Context, lessonID string, limit, offset int) ([]model.Comment, error)
	CreateComment(ctx context.Context, c *model.Comment) error
	GetCommentByID(ctx context.Context, commentID string) (*model.Comment, error)
	UpdateComment(ctx context.Context, c *model.Comment) error
	DeleteComment(ctx context.Context, commentID string) error
}

type commentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) CommentRepository {
	return &commentRepo{pool: pool}
}

func (r *commentRepo) ListCommentsByLessonID(ctx context.Context, lessonID string, limit, offset int) ([]model.Comment, error) {
	const q = `
        SELECT id, lesson_id, user_id, body, created_at, updated_at
        FROM lesson_comments
        WHERE lesson_id = $1
        ORDER BY created_at ASC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, q, lessonID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying comments for lesson %s: %w", lessonID, err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.LessonID, &c.UserID, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}
	if len(comments) == 0 {
		return []model.Comment{}, nil
	}
	return comments, nil
}

func (r *commentRepo) CreateComment(ctx context.Context, c *model.Comment) error {
	const q = `
        INSERT INTO lesson_comments (lesson_id, user_id, body)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, c.LessonID, c.UserID, c.Body).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating comment: %w", err)
	}
	return nil
}

func (r *commentRepo) GetCommentByID(ctx context.Context, commentID string) (*model.Comment, error) {
	const q = `
        SELECT id, lesson_id, user_id, body, created_at, updated_at
        FROM lesson_comments
        WHERE id = $1
    `
	var c model.Comment
	err := r.pool.QueryRow(ctx, q, commentID).Scan(&c.ID, &c.LessonID, &c.UserID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting comment by id %s: %w", commentID, err)
	}
	return &c, nil
}

func (r *commentRepo) UpdateComment(ctx context.Context, c *model.Comment) error {
	const q = `
        UPDATE lesson_comments
        SET body = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	if err := r.pool.QueryRow(ctx, q, c.ID, c.Body).Scan(&c.UpdatedAt); err != nil {
		return fmt.Errorf("updating comment %s: %w", c.ID, err)
	}
	return nil
}

func (r *commentRepo) DeleteComment(ctx context.Context, commentID string) error {
	const q = `DELETE FROM lesson_comments WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, commentID); err != nil {
		return fmt.Errorf("deleting comment %s: %w", commentID, err)
	}
	return nil
}
