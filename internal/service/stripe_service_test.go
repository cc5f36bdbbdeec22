package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type stripeFixture struct {
	svc         *StripeService
	userRepo    *fakeUserRepo
	paymentRepo *fakePaymentRepo
}

func newStripeFixture(users ...*model.User) *stripeFixture {
	cfg := &config.Config{
		StripeWebhookSecret: testWebhookSecret,
		PremiumPriceCents:   990,
		PremiumCurrency:     "usd",
		PremiumProduct:      "Premium",
		ClientURL:           "http://localhost:3000",
	}
	userRepo := newFakeUserRepo(users...)
	paymentRepo := newFakePaymentRepo()
	entSvc := NewEntitlementService(userRepo, paymentRepo, zerolog.Nop())
	return &stripeFixture{
		svc:         NewStripeService(cfg, userRepo, entSvc, zerolog.Nop()),
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
	}
}

func completedEventPayload(sessionJSON string) string {
	return fmt.Sprintf(`{
        "id": "evt_1",
        "object": "event",
        "api_version": %q,
        "type": "checkout.session.completed",
        "data": {"object": %s}
    }`, stripe.APIVersion, sessionJSON)
}

func signedWebhookRequest(payload string) *http.Request {
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, []byte(payload), testWebhookSecret)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig)))
	return req
}

const paidSessionJSON = `{
    "id": "sess_123",
    "object": "checkout.session",
    "payment_status": "paid",
    "amount_total": 990,
    "currency": "usd",
    "payment_intent": "pi_123",
    "metadata": {"uid": "u1", "email": "u1@example.com"}
}`

func TestHandleWebhookRejectsInvalidSignature(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})

	payload := completedEventPayload(paidSessionJSON)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=12345,v1=deadbeef")
	rec := httptest.NewRecorder()

	fx.svc.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fx.paymentRepo.count(), "unverified events must not touch the ledger")
	u, _ := fx.userRepo.GetUserByID(context.Background(), "u1")
	assert.False(t, u.IsPremium)
}

func TestHandleWebhookAppliesPaidCheckout(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})

	rec := httptest.NewRecorder()
	fx.svc.HandleWebhook(rec, signedWebhookRequest(completedEventPayload(paidSessionJSON)))

	assert.Equal(t, http.StatusOK, rec.Code)
	u, _ := fx.userRepo.GetUserByID(context.Background(), "u1")
	assert.True(t, u.IsPremium)

	p, err := fx.paymentRepo.GetPaymentBySessionID(context.Background(), "sess_123")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "pi_123", p.StripePaymentIntentID)
	assert.Equal(t, int64(990), p.AmountCents)
	assert.Equal(t, "usd", p.Currency)
}

func TestHandleWebhookRedelivery(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	payload := completedEventPayload(paidSessionJSON)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		fx.svc.HandleWebhook(rec, signedWebhookRequest(payload))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, fx.paymentRepo.count())
}

func TestHandleWebhookAcksMissingUID(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	sessionJSON := `{
        "id": "sess_nouid",
        "object": "checkout.session",
        "payment_status": "paid",
        "amount_total": 990,
        "currency": "usd",
        "metadata": {}
    }`

	rec := httptest.NewRecorder()
	fx.svc.HandleWebhook(rec, signedWebhookRequest(completedEventPayload(sessionJSON)))

	// Acked so the provider does not keep retrying an unfixable delivery.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, fx.paymentRepo.count())
}

func TestHandleWebhookSkipsUnpaidSession(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	sessionJSON := `{
        "id": "sess_123",
        "object": "checkout.session",
        "payment_status": "unpaid",
        "amount_total": 990,
        "currency": "usd",
        "metadata": {"uid": "u1"}
    }`

	rec := httptest.NewRecorder()
	fx.svc.HandleWebhook(rec, signedWebhookRequest(completedEventPayload(sessionJSON)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, fx.paymentRepo.count())
	u, _ := fx.userRepo.GetUserByID(context.Background(), "u1")
	assert.False(t, u.IsPremium)
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	payload := fmt.Sprintf(`{
        "id": "evt_2",
        "object": "event",
        "api_version": %q,
        "type": "payment_intent.created",
        "data": {"object": {"id": "pi_999", "object": "payment_intent"}}
    }`, stripe.APIVersion)

	rec := httptest.NewRecorder()
	fx.svc.HandleWebhook(rec, signedWebhookRequest(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, fx.paymentRepo.count())
}

func stubSession(paymentStatus stripe.CheckoutSessionPaymentStatus, metadata map[string]string) func(string, *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return func(sessionID string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{
			ID:            sessionID,
			PaymentStatus: paymentStatus,
			AmountTotal:   990,
			Currency:      stripe.CurrencyUSD,
			PaymentIntent: &stripe.PaymentIntent{ID: "pi_123"},
			Metadata:      metadata,
		}, nil
	}
}

func TestConfirmCheckoutAppliesEntitlement(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	fx.svc.retrieveSession = stubSession(stripe.CheckoutSessionPaymentStatusPaid, map[string]string{"uid": "u1", "email": "u1@example.com"})

	alreadyApplied, err := fx.svc.ConfirmCheckout(context.Background(), "sess_123")
	require.NoError(t, err)
	assert.False(t, alreadyApplied)

	u, _ := fx.userRepo.GetUserByID(context.Background(), "u1")
	assert.True(t, u.IsPremium)
	assert.Equal(t, 1, fx.paymentRepo.count())
}

func TestConfirmCheckoutRejectsUnpaid(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	fx.svc.retrieveSession = stubSession(stripe.CheckoutSessionPaymentStatusUnpaid, map[string]string{"uid": "u1"})

	_, err := fx.svc.ConfirmCheckout(context.Background(), "sess_123")
	assert.ErrorIs(t, err, ErrCheckoutNotPaid)
	assert.Equal(t, 0, fx.paymentRepo.count())
}

func TestConfirmCheckoutRejectsMissingUID(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	fx.svc.retrieveSession = stubSession(stripe.CheckoutSessionPaymentStatusPaid, map[string]string{})

	_, err := fx.svc.ConfirmCheckout(context.Background(), "sess_123")
	assert.ErrorIs(t, err, ErrInvalidCheckoutFacts)
}

// The webhook and the client confirmation race in production. Whichever lands
// second must observe the first application and change nothing.
func TestWebhookThenConfirmConverges(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	fx.svc.retrieveSession = stubSession(stripe.CheckoutSessionPaymentStatusPaid, map[string]string{"uid": "u1", "email": "u1@example.com"})

	rec := httptest.NewRecorder()
	fx.svc.HandleWebhook(rec, signedWebhookRequest(completedEventPayload(paidSessionJSON)))
	require.Equal(t, http.StatusOK, rec.Code)

	alreadyApplied, err := fx.svc.ConfirmCheckout(context.Background(), "sess_123")
	require.NoError(t, err)
	assert.True(t, alreadyApplied)
	assert.Equal(t, 1, fx.paymentRepo.count())
}

func TestConfirmThenWebhookConverges(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com"})
	fx.svc.retrieveSession = stubSession(stripe.CheckoutSessionPaymentStatusPaid, map[string]string{"uid": "u1", "email": "u1@example.com"})

	alreadyApplied, err := fx.svc.ConfirmCheckout(context.Background(), "sess_123")
	require.NoError(t, err)
	assert.False(t, alreadyApplied)

	rec := httptest.NewRecorder()
	fx.svc.HandleWebhook(rec, signedWebhookRequest(completedEventPayload(paidSessionJSON)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fx.paymentRepo.count())
}

func TestCreateCheckoutSessionAlreadyPremium(t *testing.T) {
	fx := newStripeFixture(&model.User{UserID: "u1", Email: "u1@example.com", IsPremium: true})

	_, err := fx.svc.CreateCheckoutSession(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrAlreadyPremium)
}

func TestCreateCheckoutSessionUnknownUser(t *testing.T) {
	fx := newStripeFixture()

	_, err := fx.svc.CreateCheckoutSession(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
