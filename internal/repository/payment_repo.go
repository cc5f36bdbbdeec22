package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository interface {
	// InsertPaymentIfAbsent writes the payment record unless one already
	// exists for the same checkout session. The unique constraint on
	// stripe_session_id makes this atomic at the store level, which is what
	// keeps racing webhook deliveries and confirmation polls from producing
	// duplicate rows. Reports whether a row was actually inserted.
	InsertPaymentIfAbsent(ctx context.Context, p *model.Payment) (bool, error)
	GetPaymentBySessionID(ctx context.Context, sessionID string) (*model.Payment, error)
	ListPaymentsByUserID(ctx context.Context, userID string) ([]model.Payment, error)
}

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) InsertPaymentIfAbsent(ctx context.Context, p *model.Payment) (bool, error) {
	const q = `
        INSERT INTO payments (user_id, email, stripe_session_id, stripe_payment_intent_id, amount_cents, currency, status)
        VALUES ($1, $2, $3, $4, $5, $6, 'paid')
        ON CONFLICT (stripe_session_id) DO NOTHING
    `
	ct, err := r.pool.Exec(ctx, q,
		p.UserID,
		p.Email,
		p.StripeSessionID,
		p.StripePaymentIntentID,
		p.AmountCents,
		p.Currency,
	)
	if err != nil {
		return false, fmt.Errorf("inserting payment for session %s: %w", p.StripeSessionID, err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *paymentRepo) GetPaymentBySessionID(ctx context.Context, sessionID string) (*model.Payment, error) {
	const q = `
        SELECT id, user_id, email, stripe_session_id, stripe_payment_intent_id, amount_cents, currency, status, created_at
        FROM payments
        WHERE stripe_session_id = $1
    `
	var p model.Payment
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(
		&p.ID,
		&p.UserID,
		&p.Email,
		&p.StripeSessionID,
		&p.StripePaymentIntentID,
		&p.AmountCents,
		&p.Currency,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting payment for session %s: %w", sessionID, err)
	}
	return &p, nil
}

func (r *paymentRepo) ListPaymentsByUserID(ctx context.Context, userID string) ([]model.Payment, error) {
	const q = `
        SELECT id, user_id, email, stripe_session_id, stripe_payment_intent_id, amount_cents, currency, status, created_at
        FROM payments
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Email,
			&p.StripeSessionID,
			&p.StripePaymentIntentID,
			&p.AmountCents,
			&p.Currency,
			&p.Status,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment rows: %w", err)
	}
	if len(payments) == 0 {
		return []model.Payment{}, nil
	}
	return payments, nil
}
