package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportRepository interface {
	CreateReport(ctx context.Context, rep *model.Report) error
}

type reportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) ReportRepository {
	return &reportRepo{pool: pool}
}

func (r *reportRepo) CreateReport(ctx context.Context, rep *model.Report) error {
	const q = `
        INSERT INTO lesson_reports (lesson_id, user_id, reason)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, q, rep.LessonID, rep.UserID, rep.Reason).Scan(&rep.ID, &rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	return nil
}
