package dto

import "time"

// CreateCheckoutSessionRequest is the optional checkout request body. The uid,
// when present, must match the authenticated subject.
type CreateCheckoutSessionRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email" validate:"omitempty,email"`
}

// ConfirmCheckoutRequest is sent by the success page after Stripe redirects
// back with the session id.
type ConfirmCheckoutRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// ConfirmCheckoutResponse reports the entitlement state after confirmation.
type ConfirmCheckoutResponse struct {
	OK             bool `json:"ok"`
	IsPremium      bool `json:"is_premium"`
	AlreadyApplied bool `json:"already_applied"`
}

// PaymentResponseDTO is returned in API responses
type PaymentResponseDTO struct {
	SessionID   string    `json:"session_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
