package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// PaymentHandler handles the premium upgrade endpoints.
type PaymentHandler struct {
	stripeSvc *service.StripeService
	entSvc    service.EntitlementService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(stripeSvc *service.StripeService, entSvc service.EntitlementService, v *validator.Validate, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{stripeSvc: stripeSvc, entSvc: entSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the payment endpoints. The webhook route carries no
// auth middleware: Stripe authenticates with the signature header instead.
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/webhook", http.HandlerFunc(h.stripeSvc.HandleWebhook))
	mux.Handle("/create-checkout-session", authMw(http.HandlerFunc(h.CreateCheckoutSession)))
	mux.Handle("/payments/confirm", authMw(http.HandlerFunc(h.ConfirmCheckout)))
	mux.Handle("/payments", authMw(http.HandlerFunc(h.ListPayments)))
}

// CreateCheckoutSession godoc
// @Summary Initiate a Stripe Checkout session for the premium upgrade
// @Description Creates a one-time payment Checkout session and returns its URL.
// @Tags payments
// @Produce json
// @Success 200 {object} map[string]string "URL of the Stripe Checkout session"
// @Failure 401 {string} string "unauthorized"
// @Failure 400 {string} string "user is already premium"
// @Failure 500 {string} string "failed to create checkout session"
// @Router /create-checkout-session [post]
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Body is optional; the authenticated subject always wins over any uid the
	// client supplies.
	var req dto.CreateCheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		if req.UID != "" && req.UID != userID {
			http.Error(w, "uid does not match authenticated user", http.StatusBadRequest)
			return
		}
	}

	url, err := h.stripeSvc.CreateCheckoutSession(r.Context(), userID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyPremium):
			http.Error(w, "user is already premium", http.StatusBadRequest)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		default:
			h.logger.Error().Err(err).Msg("failed to create checkout session")
			http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"url": url}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// ConfirmCheckout godoc
// @Summary Confirm a completed checkout from the client
// @Description Verifies the session against Stripe and applies the premium
// entitlement. Safe to call repeatedly and safe to race with the webhook.
// @Tags payments
// @Accept json
// @Produce json
// @Param confirmation body dto.ConfirmCheckoutRequest true "Checkout confirmation"
// @Success 200 {object} dto.ConfirmCheckoutResponse
// @Failure 400 {string} string "checkout session is not paid"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to confirm checkout"
// @Router /payments/confirm [post]
func (h *PaymentHandler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.ConfirmCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	alreadyApplied, err := h.stripeSvc.ConfirmCheckout(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckoutNotPaid):
			http.Error(w, "checkout session is not paid", http.StatusBadRequest)
		case errors.Is(err, service.ErrInvalidCheckoutFacts):
			http.Error(w, "checkout session is missing required metadata", http.StatusBadRequest)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		default:
			h.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to confirm checkout")
			http.Error(w, "failed to confirm checkout", http.StatusInternalServerError)
		}
		return
	}

	resp := dto.ConfirmCheckoutResponse{OK: true, IsPremium: true, AlreadyApplied: alreadyApplied}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// ListPayments godoc
// @Summary List the authenticated user's payments
// @Tags payments
// @Produce json
// @Success 200 {array} dto.PaymentResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	payments, err := h.entSvc.GetPayments(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list payments", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.PaymentResponseDTO, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, dto.PaymentResponseDTO{
			SessionID:   p.StripeSessionID,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
