package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidCheckoutFacts rejects apply calls without the idempotency key.
	ErrInvalidCheckoutFacts = errors.New("checkout facts missing user or session id")
)

// CheckoutFacts is the normalized view of a provider checkout session: the
// fields the ledger records, independent of which entry point observed them.
type CheckoutFacts struct {
	SessionID       string
	PaymentIntentID string
	Email           string
	AmountCents     int64
	Currency        string
}

// EntitlementService owns the premium flag and the payment records.
type EntitlementService interface {
	// ApplyPaidCheckout marks the user premium and records the payment. It is
	// safe to invoke any number of times with the same facts: the session id
	// is the idempotency key, and redundant invocations report alreadyApplied
	// without writing a second payment record. Both the webhook path and the
	// client confirmation path funnel into this method, in whichever order
	// they arrive.
	ApplyPaidCheckout(ctx context.Context, userID string, facts CheckoutFacts) (alreadyApplied bool, err error)
	GetPayments(ctx context.Context, userID string) ([]model.Payment, error)
}

type entitlementService struct {
	userRepo    repository.UserRepository
	paymentRepo repository.PaymentRepository
	logger      zerolog.Logger
}

// NewEntitlementService creates a new EntitlementService with a scoped logger.
func NewEntitlementService(userRepo repository.UserRepository, paymentRepo repository.PaymentRepository, logger zerolog.Logger) EntitlementService {
	return &entitlementService{
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		logger:      logger.With().Str("service", "EntitlementService").Logger(),
	}
}

func (s *entitlementService) ApplyPaidCheckout(ctx context.Context, userID string, facts CheckoutFacts) (bool, error) {
	if userID == "" || facts.SessionID == "" {
		return false, ErrInvalidCheckoutFacts
	}

	// The user update goes first: it is naturally idempotent, and if the
	// payment insert below fails the whole operation can be retried without
	// harm. A premium flag without a payment record is recoverable; a
	// duplicate payment record is not.
	marked, err := s.userRepo.MarkPremium(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("mark premium: %w", err)
	}
	if !marked {
		s.logger.Error().Str("user_id", userID).Str("session_id", facts.SessionID).Msg("Paid checkout references unknown user")
		return false, ErrUserNotFound
	}

	inserted, err := s.paymentRepo.InsertPaymentIfAbsent(ctx, &model.Payment{
		UserID:                userID,
		Email:                 facts.Email,
		StripeSessionID:       facts.SessionID,
		StripePaymentIntentID: facts.PaymentIntentID,
		AmountCents:           facts.AmountCents,
		Currency:              facts.Currency,
	})
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}
	if !inserted {
		s.logger.Info().Str("user_id", userID).Str("session_id", facts.SessionID).Msg("Checkout already applied, skipping duplicate")
		return true, nil
	}

	s.logger.Info().Str("user_id", userID).Str("session_id", facts.SessionID).Msg("User upgraded to premium")
	return false, nil
}

func (s *entitlementService) GetPayments(ctx context.Context, userID string) ([]model.Payment, error) {
	payments, err := s.paymentRepo.ListPaymentsByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list payments")
		return nil, err
	}
	return payments, nil
}
