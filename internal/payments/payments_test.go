package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/weinhalle/shop/internal/services"
)

type fakeProvider struct {
	session  CheckoutSession
	err      error
	requests []CheckoutSessionRequest
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	f.requests = append(f.requests, req)
	return f.session, f.err
}

func TestManagerUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	stripeProvider := &fakeProvider{session: CheckoutSession{ID: "sess_stripe"}}
	paypal := &fakeProvider{session: CheckoutSession{ID: "sess_paypal"}}

	mgr, err := NewManager(map[string]Provider{
		"stripe": stripeProvider,
		"paypal": paypal,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	session, err := mgr.CreateCheckoutSession(ctx, PaymentContext{PreferredProvider: "paypal"}, CheckoutSessionRequest{Currency: "USD"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Provider != "paypal" || session.ID != "sess_paypal" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	ctx := context.Background()
	stripeProvider := &fakeProvider{session: CheckoutSession{ID: "sess_stripe"}}
	paypal := &fakeProvider{session: CheckoutSession{ID: "sess_paypal"}}

	mgr, err := NewManager(map[string]Provider{
		"stripe": stripeProvider,
		"paypal": paypal,
	}, WithCurrencyRoutes(map[string]string{"chf": "paypal"}))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	session, err := mgr.CreateCheckoutSession(ctx, PaymentContext{Currency: "CHF"}, CheckoutSessionRequest{Currency: "CHF"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Provider != "paypal" {
		t.Fatalf("expected currency route to paypal, got %q", session.Provider)
	}
}

func TestManagerDefaultsToStripe(t *testing.T) {
	ctx := context.Background()
	stripeProvider := &fakeProvider{session: CheckoutSession{ID: "sess_stripe"}}
	paypal := &fakeProvider{}

	mgr, err := NewManager(map[string]Provider{
		"stripe": stripeProvider,
		"paypal": paypal,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	session, err := mgr.CreateCheckoutSession(ctx, PaymentContext{}, CheckoutSessionRequest{Currency: "EUR"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Provider != "stripe" {
		t.Fatalf("expected default provider 'stripe', got %q", session.Provider)
	}
}

func TestManagerRejectsUnknownProvider(t *testing.T) {
	mgr, err := NewManager(map[string]Provider{
		"alpha": &fakeProvider{},
		"beta":  &fakeProvider{},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = mgr.CreateCheckoutSession(context.Background(), PaymentContext{PreferredProvider: "gamma"}, CheckoutSessionRequest{})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

type fakeStripeSessions struct {
	params  []*stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeStripeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = append(f.params, params)
	return f.session, f.err
}

func TestStripeProviderCreatesCheckoutSession(t *testing.T) {
	expires := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	sessions := &fakeStripeSessions{
		session: &stripe.CheckoutSession{
			ID:           "cs_test_1",
			ClientSecret: "secret_1",
			URL:          "https://checkout.stripe.test/cs_test_1",
			ExpiresAt:    expires.Unix(),
		},
	}
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: sessions})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		Currency:   "EUR",
		SuccessURL: "https://shop.test/danke",
		CancelURL:  "https://shop.test/warenkorb",
		Locale:     "de-DE",
		Items: []CheckoutLineItem{
			{Name: "Riesling", SKU: "riesling-1", Quantity: 6, Amount: 1290},
		},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != "cs_test_1" || session.RedirectURL != "https://checkout.stripe.test/cs_test_1" {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.ExpiresAt.Equal(expires) {
		t.Fatalf("expected PSP expiry %v, got %v", expires, session.ExpiresAt)
	}

	params := sessions.params[0]
	if got := stripe.StringValue(params.Mode); got != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode %q", got)
	}
	if len(params.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(params.LineItems))
	}
	line := params.LineItems[0]
	if stripe.Int64Value(line.Quantity) != 6 {
		t.Fatalf("unexpected quantity %d", stripe.Int64Value(line.Quantity))
	}
	if got := stripe.StringValue(line.PriceData.Currency); got != "eur" {
		t.Fatalf("currency must be lowercased for Stripe, got %q", got)
	}
	if got := line.PriceData.ProductData.Metadata["sku"]; got != "riesling-1" {
		t.Fatalf("unexpected sku metadata %q", got)
	}
}

func TestStripeProviderRejectsEmptyItems(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: &fakeStripeSessions{}})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	if _, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{Currency: "EUR"}); err == nil {
		t.Fatal("expected error for empty line items")
	}
}

func TestGatewayCreateSession(t *testing.T) {
	provider := &fakeProvider{session: CheckoutSession{
		ID:           "cs_test_2",
		ClientSecret: "secret_2",
		RedirectURL:  "https://checkout.stripe.test/cs_test_2",
	}}
	mgr, err := NewManager(map[string]Provider{"stripe": provider})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	gateway, err := NewGateway(GatewayConfig{
		Manager:    mgr,
		SuccessURL: "https://shop.test/danke",
		CancelURL:  "https://shop.test/warenkorb",
		Locale:     "de-DE",
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	fallbackExpiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session, err := gateway.CreateSession(context.Background(), services.PaymentSessionRequest{
		Currency:     "EUR",
		CartRevision: 7,
		ExpiresAt:    fallbackExpiry,
		Lines: []services.PaymentSessionLine{
			{ProductID: "riesling-1", Title: "Riesling", UnitAmount: 1290, Quantity: 6},
			{ProductID: "shipping", Title: "Versand", UnitAmount: 499, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.SessionID != "cs_test_2" || session.PSP != "stripe" {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.ExpiresAt.Equal(fallbackExpiry) {
		t.Fatalf("expected fallback expiry when the PSP reports none, got %v", session.ExpiresAt)
	}

	req := provider.requests[0]
	if req.IdempotencyKey != "cart-7" {
		t.Fatalf("unexpected idempotency key %q", req.IdempotencyKey)
	}
	if len(req.Items) != 2 || req.Items[1].SKU != "shipping" {
		t.Fatalf("unexpected items %+v", req.Items)
	}
	if req.SuccessURL != "https://shop.test/danke" || req.Locale != "de-DE" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestGatewayRequiresURLs(t *testing.T) {
	mgr, err := NewManager(map[string]Provider{"stripe": &fakeProvider{}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := NewGateway(GatewayConfig{Manager: mgr}); err == nil {
		t.Fatal("expected constructor error")
	}
}
