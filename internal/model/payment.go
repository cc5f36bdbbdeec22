package model

import "time"

// Payment records a completed one-time premium purchase. StripeSessionID is
// unique: redundant webhook deliveries and confirmation polls for the same
// checkout session must never produce a second row.
type Payment struct {
	ID                    int64     `db:"id" json:"id"`
	UserID                string    `db:"user_id" json:"user_id"`
	Email                 string    `db:"email" json:"email"`
	StripeSessionID       string    `db:"stripe_session_id" json:"stripe_session_id"`
	StripePaymentIntentID string    `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id"`
	AmountCents           int64     `db:"amount_cents" json:"amount_cents"`
	Currency              string    `db:"currency" json:"currency"`
	Status                string    `db:"status" json:"status"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}
