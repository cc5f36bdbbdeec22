package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"app/internal/config"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrAlreadyPremium means checkout was requested for a user who already
	// holds the entitlement. One-time purchases must not be sold twice.
	ErrAlreadyPremium = errors.New("user is already premium")
	// ErrCheckoutNotPaid means the client confirmed a session the provider
	// does not consider paid yet.
	ErrCheckoutNotPaid = errors.New("checkout session is not paid")
)

// StripeService manages Stripe integration: it creates checkout sessions for
// the premium upgrade and reconciles completed checkouts into the entitlement
// state, whether the completion arrives via webhook or via the client's
// explicit confirmation call.
type StripeService struct {
	cfg            *config.Config
	userRepo       repository.UserRepository
	entitlementSvc EntitlementService
	logger         zerolog.Logger

	// retrieveSession fetches a checkout session from the Stripe API. It is a
	// field so tests can substitute canned sessions without network access.
	retrieveSession func(sessionID string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeService initializes Stripe key and returns service with a scoped logger
func NewStripeService(cfg *config.Config, userRepo repository.UserRepository, entitlementSvc EntitlementService, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{
		cfg:             cfg,
		userRepo:        userRepo,
		entitlementSvc:  entitlementSvc,
		logger:          logger.With().Str("service", "StripeService").Logger(),
		retrieveSession: checkoutsession.Get,
	}
}

// CreateCheckoutSession creates a one-time payment Stripe Checkout session for
// the premium upgrade and returns its hosted URL. An empty email falls back to
// the stored profile email.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, email string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for checkout session")
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		s.logger.Error().Str("user_id", userID).Msg("User not found for checkout session")
		return "", ErrUserNotFound
	}
	if user.IsPremium {
		return "", ErrAlreadyPremium
	}
	if email == "" {
		email = user.Email
	}

	sessParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.cfg.PremiumCurrency),
				UnitAmount: stripe.Int64(s.cfg.PremiumPriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(s.cfg.PremiumProduct),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		CustomerEmail: stripe.String(email),
		// The session id placeholder lets the success page confirm the
		// checkout itself when the webhook is delayed.
		SuccessURL: stripe.String(s.cfg.ClientURL + "/premium/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cfg.ClientURL + "/premium/cancel"),
		Metadata:   map[string]string{"uid": userID, "email": email},
	}
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// HandleWebhook processes Stripe webhook events
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		if !sessionPaid(&cs) {
			// Completed-but-unpaid sessions (async payment methods) get a
			// separate event once payment lands; nothing to apply yet.
			s.logger.Info().Str("session_id", cs.ID).Str("payment_status", string(cs.PaymentStatus)).Msg("Checkout completed but not paid, skipping")
			break
		}

		userID := cs.Metadata["uid"]
		if userID == "" {
			// Acknowledge anyway: retrying cannot add the missing metadata,
			// and a retry storm helps nobody.
			s.logger.Error().Str("session_id", cs.ID).Msg("Missing uid in checkout session metadata")
			break
		}

		_, err := s.entitlementSvc.ApplyPaidCheckout(ctx, userID, factsFromSession(&cs))
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Error().Str("user_id", userID).Str("session_id", cs.ID).Msg("Checkout references user with no profile")
			break
		}
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Failed to apply paid checkout from webhook")
			http.Error(w, "failed to apply checkout", http.StatusInternalServerError)
			return
		}
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

// ConfirmCheckout verifies a checkout session against the Stripe API and, if
// it is paid, applies the entitlement for the user named in its metadata. The
// client calls this from the success page, so it usually races the webhook;
// whichever side wins, the loser becomes a no-op. Returns whether the
// checkout had already been applied before this call.
func (s *StripeService) ConfirmCheckout(ctx context.Context, sessionID string) (bool, error) {
	cs, err := s.retrieveSession(sessionID, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to retrieve checkout session")
		return false, fmt.Errorf("retrieve checkout session: %w", err)
	}
	if !sessionPaid(cs) {
		s.logger.Warn().Str("session_id", sessionID).Str("payment_status", string(cs.PaymentStatus)).Msg("Confirmation attempted for unpaid checkout session")
		return false, ErrCheckoutNotPaid
	}

	userID := cs.Metadata["uid"]
	if userID == "" {
		s.logger.Error().Str("session_id", sessionID).Msg("Missing uid in checkout session metadata")
		return false, ErrInvalidCheckoutFacts
	}

	alreadyApplied, err := s.entitlementSvc.ApplyPaidCheckout(ctx, userID, factsFromSession(cs))
	if err != nil {
		return false, err
	}
	return alreadyApplied, nil
}

func sessionPaid(cs *stripe.CheckoutSession) bool {
	return cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}

// factsFromSession normalizes the session fields both entry points care about.
func factsFromSession(cs *stripe.CheckoutSession) CheckoutFacts {
	facts := CheckoutFacts{
		SessionID:   cs.ID,
		AmountCents: cs.AmountTotal,
		Currency:    string(cs.Currency),
	}
	if cs.PaymentIntent != nil {
		facts.PaymentIntentID = cs.PaymentIntent.ID
	}
	// Metadata email is authoritative; the customer fields are fallbacks for
	// sessions created before metadata carried it.
	facts.Email = cs.Metadata["email"]
	if facts.Email == "" && cs.CustomerDetails != nil {
		facts.Email = cs.CustomerDetails.Email
	}
	if facts.Email == "" {
		facts.Email = cs.CustomerEmail
	}
	return facts
}
