package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/weinhalle/shop/internal/platform/httpx"
	"github.com/weinhalle/shop/internal/services"
)

const maxCheckoutBodySize = 8 * 1024

// CheckoutHandlers exposes the checkout gate and PSP session endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs handlers over the checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/evaluate", h.evaluate)
	r.Post("/session", h.createSession)
}

type eligibilityResponse struct {
	EvaluationID      string `json:"evaluationId"`
	Eligible          bool   `json:"eligible"`
	ResolvedUnitCount int    `json:"resolvedUnitCount"`
	MissingUnits      int    `json:"missingUnits"`
	State             string `json:"state"`
	CartRevision      uint64 `json:"cartRevision"`
	EvaluatedAt       string `json:"evaluatedAt"`
}

func (h *CheckoutHandlers) evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	eligibility, err := h.checkout.Evaluate(ctx)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, eligibilityResponse{
		EvaluationID:      eligibility.EvaluationID,
		Eligible:          eligibility.Eligible,
		ResolvedUnitCount: eligibility.ResolvedUnitCount,
		MissingUnits:      eligibility.MissingUnits,
		State:             string(eligibility.State),
		CartRevision:      eligibility.CartRevision,
		EvaluatedAt:       eligibility.EvaluatedAt.UTC().Format(time.RFC3339),
	})
}

type createSessionRequest struct {
	Force bool `json:"force"`
}

type sessionResponse struct {
	SessionID    string `json:"sessionId"`
	PSP          string `json:"psp"`
	ClientSecret string `json:"clientSecret,omitempty"`
	RedirectURL  string `json:"redirectUrl,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createSessionRequest
	body, err := readLimitedBody(r, maxCheckoutBodySize)
	switch {
	case err == nil:
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
			return
		}
	case errors.Is(err, errEmptyBody):
		// an empty body means no overrides
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.checkout.CreateSession(ctx, services.CreateSessionCommand{Force: req.Force})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	resp := sessionResponse{
		SessionID:    session.SessionID,
		PSP:          session.PSP,
		ClientSecret: session.ClientSecret,
		RedirectURL:  session.RedirectURL,
	}
	if !session.ExpiresAt.IsZero() {
		resp.ExpiresAt = session.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"session": resp})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart has no items", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_not_eligible", "cart does not form full cases; re-evaluate or force", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout is temporarily unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}
