package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo is an in-memory stand-in for the Postgres user repository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

func (r *fakeUserRepo) UpsertUser(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = u
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) MarkPremium(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	u.IsPremium = true
	if u.PremiumSince == nil {
		now := time.Now()
		u.PremiumSince = &now
	}
	return true, nil
}

func (r *fakeUserRepo) UpdateAvatarURL(_ context.Context, userID, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.AvatarURL = avatarURL
	}
	return nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, userID, role string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if ok {
		u.Role = role
	}
	return ok, nil
}

func (r *fakeUserRepo) DeleteUser(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[userID]
	delete(r.users, userID)
	return ok, nil
}

// fakePaymentRepo keys records by session id, mirroring the unique constraint.
type fakePaymentRepo struct {
	mu        sync.Mutex
	bySession map[string]model.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{bySession: make(map[string]model.Payment)}
}

func (r *fakePaymentRepo) InsertPaymentIfAbsent(_ context.Context, p *model.Payment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bySession[p.StripeSessionID]; exists {
		return false, nil
	}
	p.ID = int64(len(r.bySession) + 1)
	p.Status = "paid"
	p.CreatedAt = time.Now()
	r.bySession[p.StripeSessionID] = *p
	return true, nil
}

func (r *fakePaymentRepo) GetPaymentBySessionID(_ context.Context, sessionID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.bySession[sessionID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakePaymentRepo) ListPaymentsByUserID(_ context.Context, userID string) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payments := []model.Payment{}
	for _, p := range r.bySession {
		if p.UserID == userID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (r *fakePaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySession)
}

func testFacts(sessionID string) CheckoutFacts {
	return CheckoutFacts{
		SessionID:       sessionID,
		PaymentIntentID: "pi_" + sessionID,
		Email:           "u1@example.com",
		AmountCents:     990,
		Currency:        "usd",
	}
}

func TestApplyPaidCheckoutFirstApplication(t *testing.T) {
	userRepo := newFakeUserRepo(&model.User{UserID: "u1", Email: "u1@example.com"})
	paymentRepo := newFakePaymentRepo()
	svc := NewEntitlementService(userRepo, paymentRepo, zerolog.Nop())

	alreadyApplied, err := svc.ApplyPaidCheckout(context.Background(), "u1", testFacts("sess_123"))
	require.NoError(t, err)
	assert.False(t, alreadyApplied)

	u, err := userRepo.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.IsPremium)
	require.NotNil(t, u.PremiumSince)

	p, err := paymentRepo.GetPaymentBySessionID(context.Background(), "sess_123")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, int64(990), p.AmountCents)
}

func TestApplyPaidCheckoutIsIdempotent(t *testing.T) {
	userRepo := newFakeUserRepo(&model.User{UserID: "u1", Email: "u1@example.com"})
	paymentRepo := newFakePaymentRepo()
	svc := NewEntitlementService(userRepo, paymentRepo, zerolog.Nop())

	_, err := svc.ApplyPaidCheckout(context.Background(), "u1", testFacts("sess_123"))
	require.NoError(t, err)

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	firstSince := *u.PremiumSince

	// Same session delivered again, any number of times.
	for i := 0; i < 3; i++ {
		alreadyApplied, err := svc.ApplyPaidCheckout(context.Background(), "u1", testFacts("sess_123"))
		require.NoError(t, err)
		assert.True(t, alreadyApplied)
	}

	assert.Equal(t, 1, paymentRepo.count())
	u, _ = userRepo.GetUserByID(context.Background(), "u1")
	assert.True(t, u.IsPremium)
	assert.Equal(t, firstSince, *u.PremiumSince, "premium_since must not move on redundant applications")
}

func TestApplyPaidCheckoutIndependentUsers(t *testing.T) {
	userRepo := newFakeUserRepo(
		&model.User{UserID: "u1", Email: "u1@example.com"},
		&model.User{UserID: "u2", Email: "u2@example.com"},
	)
	paymentRepo := newFakePaymentRepo()
	svc := NewEntitlementService(userRepo, paymentRepo, zerolog.Nop())

	_, err := svc.ApplyPaidCheckout(context.Background(), "u1", testFacts("sess_123"))
	require.NoError(t, err)
	_, err = svc.ApplyPaidCheckout(context.Background(), "u1", testFacts("sess_123"))
	require.NoError(t, err)
	_, err = svc.ApplyPaidCheckout(context.Background(), "u2", testFacts("sess_456"))
	require.NoError(t, err)

	assert.Equal(t, 2, paymentRepo.count())

	u1Payments, err := svc.GetPayments(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, u1Payments, 1)
	u2Payments, err := svc.GetPayments(context.Background(), "u2")
	require.NoError(t, err)
	assert.Len(t, u2Payments, 1)
}

func TestApplyPaidCheckoutUnknownUser(t *testing.T) {
	svc := NewEntitlementService(newFakeUserRepo(), newFakePaymentRepo(), zerolog.Nop())

	_, err := svc.ApplyPaidCheckout(context.Background(), "ghost", testFacts("sess_123"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestApplyPaidCheckoutRejectsMissingKey(t *testing.T) {
	svc := NewEntitlementService(newFakeUserRepo(), newFakePaymentRepo(), zerolog.Nop())

	_, err := svc.ApplyPaidCheckout(context.Background(), "", testFacts("sess_123"))
	assert.ErrorIs(t, err, ErrInvalidCheckoutFacts)

	_, err = svc.ApplyPaidCheckout(context.Background(), "u1", CheckoutFacts{})
	assert.ErrorIs(t, err, ErrInvalidCheckoutFacts)
}
