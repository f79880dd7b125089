package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/weinhalle/shop/internal/domain"
	"github.com/weinhalle/shop/internal/services"
)

// GatewayConfig configures the checkout gateway shared across providers.
type GatewayConfig struct {
	Manager    *Manager
	SuccessURL string
	CancelURL  string
	Locale     string
}

// Gateway turns checkout session requests into PSP calls through the Manager.
// It is the piece the checkout service talks to.
type Gateway struct {
	manager    *Manager
	successURL string
	cancelURL  string
	locale     string
}

// NewGateway constructs a Gateway over the given Manager.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Manager == nil {
		return nil, errors.New("payments: manager is required")
	}
	if strings.TrimSpace(cfg.SuccessURL) == "" || strings.TrimSpace(cfg.CancelURL) == "" {
		return nil, errors.New("payments: success and cancel URLs are required")
	}
	return &Gateway{
		manager:    cfg.Manager,
		successURL: strings.TrimSpace(cfg.SuccessURL),
		cancelURL:  strings.TrimSpace(cfg.CancelURL),
		locale:     strings.TrimSpace(cfg.Locale),
	}, nil
}

// CreateSession opens a hosted payment session for the given cart contents.
// The cart revision doubles as the idempotency key so a retried request for
// the same cart state does not open a second session.
func (g *Gateway) CreateSession(ctx context.Context, req services.PaymentSessionRequest) (domain.CheckoutSession, error) {
	items := make([]CheckoutLineItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		items = append(items, CheckoutLineItem{
			Name:     line.Title,
			SKU:      line.ProductID,
			Quantity: int64(line.Quantity),
			Amount:   line.UnitAmount,
		})
	}

	session, err := g.manager.CreateCheckoutSession(ctx,
		PaymentContext{Currency: req.Currency},
		CheckoutSessionRequest{
			Currency:       req.Currency,
			SuccessURL:     g.successURL,
			CancelURL:      g.cancelURL,
			Locale:         g.locale,
			IdempotencyKey: fmt.Sprintf("cart-%d", req.CartRevision),
			Metadata: map[string]string{
				"cart_revision": fmt.Sprintf("%d", req.CartRevision),
			},
			Items: items,
		})
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = req.ExpiresAt
	}

	return domain.CheckoutSession{
		SessionID:    session.ID,
		PSP:          session.Provider,
		ClientSecret: session.ClientSecret,
		RedirectURL:  session.RedirectURL,
		ExpiresAt:    expiresAt,
	}, nil
}
