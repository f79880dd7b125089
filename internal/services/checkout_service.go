package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/weinhalle/shop/internal/domain"
)

var (
	errCheckoutCartRequired     = errors.New("checkout service: cart is required")
	errCheckoutCatalogRequired  = errors.New("checkout service: catalog is required")
	errCheckoutPaymentsRequired = errors.New("checkout service: payment session creator is required")
	errCheckoutClockRequired    = errors.New("checkout service: clock is required")
)

// ErrCheckoutEmptyCart indicates a session was requested for an empty cart.
var ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")

// ErrCheckoutNotEligible indicates the cart does not hold full cases and the
// caller did not force through the warning.
var ErrCheckoutNotEligible = errors.New("checkout service: cart is not a full case")

// ErrCheckoutUnavailable indicates the payment backend cannot be reached.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

const defaultCaseSize = 6

type cartAccessor interface {
	GetCart(ctx context.Context) (CartView, error)
	Snapshot(ctx context.Context) (CartState, error)
}

type entryResolver interface {
	GetEntry(ctx context.Context, productID string) (CatalogEntry, error)
}

// PaymentSessionLine is one display line forwarded to the PSP.
type PaymentSessionLine struct {
	ProductID  string
	Title      string
	UnitAmount int64
	Quantity   int
}

// PaymentSessionRequest carries everything the PSP needs to open a session.
type PaymentSessionRequest struct {
	Currency     string
	CartRevision uint64
	ExpiresAt    time.Time
	Lines        []PaymentSessionLine
}

// PaymentSessionCreator opens a hosted payment session with the PSP.
type PaymentSessionCreator interface {
	CreateSession(ctx context.Context, req PaymentSessionRequest) (CheckoutSession, error)
}

// CheckoutServiceDeps wires cart access, catalog expansion, and payments.
type CheckoutServiceDeps struct {
	Cart        cartAccessor
	Catalog     entryResolver
	Payments    PaymentSessionCreator
	CaseSize    int
	Currency    string
	SessionTTL  time.Duration
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type checkoutService struct {
	cart       cartAccessor
	catalog    entryResolver
	payments   PaymentSessionCreator
	caseSize   int
	currency   string
	sessionTTL time.Duration
	now        func() time.Time
	logger     func(context.Context, string, map[string]any)
	newID      func() string
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Cart == nil {
		return nil, errCheckoutCartRequired
	}
	if deps.Catalog == nil {
		return nil, errCheckoutCatalogRequired
	}
	if deps.Payments == nil {
		return nil, errCheckoutPaymentsRequired
	}
	if deps.Clock == nil {
		return nil, errCheckoutClockRequired
	}

	caseSize := deps.CaseSize
	if caseSize <= 0 {
		caseSize = defaultCaseSize
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "EUR"
	}

	sessionTTL := deps.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &checkoutService{
		cart:       deps.Cart,
		catalog:    deps.Catalog,
		payments:   deps.Payments,
		caseSize:   caseSize,
		currency:   currency,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return deps.Clock().UTC() },
		logger:     logger,
		newID:      idGen,
	}, nil
}

// Evaluate expands the cart into consumable units and decides whether the
// order forms full cases. Bundle lookups run concurrently; a failed lookup
// counts the line as plain bottles so a catalog outage never blocks checkout.
func (s *checkoutService) Evaluate(ctx context.Context) (CheckoutEligibility, error) {
	state, err := s.cart.Snapshot(ctx)
	if err != nil {
		return CheckoutEligibility{}, err
	}
	return s.evaluateItems(ctx, state.Items, state.Revision), nil
}

// evaluateItems runs the gate over one fixed snapshot so that eligibility and
// any lines derived from the same snapshot can never diverge.
func (s *checkoutService) evaluateItems(ctx context.Context, items []CartLineItem, revision uint64) CheckoutEligibility {
	eligibility := CheckoutEligibility{
		EvaluationID: s.newID(),
		State:        domain.CheckoutEvaluating,
		CartRevision: revision,
	}

	units := s.resolveUnitCount(ctx, items)
	eligibility.ResolvedUnitCount = units
	eligibility.EvaluatedAt = s.now()

	// Zero units divide evenly, so an empty cart passes the gate; session
	// creation still rejects it.
	remainder := units % s.caseSize
	switch {
	case remainder == 0:
		eligibility.Eligible = true
		eligibility.MissingUnits = 0
		eligibility.State = domain.CheckoutDirectProceed
	default:
		eligibility.Eligible = false
		eligibility.MissingUnits = s.caseSize - remainder
		eligibility.State = domain.CheckoutWarnUser
	}

	s.logger(ctx, "checkout.evaluated", map[string]any{
		"evaluation_id": eligibility.EvaluationID,
		"units":         units,
		"eligible":      eligibility.Eligible,
		"missing":       eligibility.MissingUnits,
		"revision":      eligibility.CartRevision,
	})
	return eligibility
}

// resolveUnitCount sums quantity times per-entry unit count over all lines.
func (s *checkoutService) resolveUnitCount(ctx context.Context, items []CartLineItem) int {
	if len(items) == 0 {
		return 0
	}

	quantities := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if _, seen := quantities[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	unitCounts := make(map[string]int, len(order))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	wg.Add(len(order))
	for _, productID := range order {
		productID := productID
		go func() {
			defer wg.Done()

			perUnit := 1
			entry, err := s.catalog.GetEntry(ctx, productID)
			if err != nil {
				// Fail open: an unresolvable line counts as plain bottles.
				s.logger(ctx, "checkout.unit_lookup_failed", map[string]any{
					"product_id": productID,
					"error":      err.Error(),
				})
			} else {
				perUnit = entry.UnitCount()
			}

			mu.Lock()
			unitCounts[productID] = perUnit
			mu.Unlock()
		}()
	}
	wg.Wait()

	units := 0
	for _, productID := range order {
		units += quantities[productID] * unitCounts[productID]
	}
	return units
}

// CreateSession runs the gate and opens a PSP session when the cart is
// eligible or the caller forces through the warning. The gate runs against
// the same view the billed lines come from, so a mutation racing this call
// can never bill contents the gate did not see.
func (s *checkoutService) CreateSession(ctx context.Context, cmd CreateSessionCommand) (CheckoutSession, error) {
	view, err := s.cart.GetCart(ctx)
	if err != nil {
		return CheckoutSession{}, err
	}
	if len(view.Items) == 0 {
		return CheckoutSession{}, ErrCheckoutEmptyCart
	}

	eligibility := s.evaluateItems(ctx, view.Items, view.Revision)
	if !eligibility.Eligible && !cmd.Force {
		return CheckoutSession{}, ErrCheckoutNotEligible
	}

	lines := make([]PaymentSessionLine, 0, len(view.Grouped)+1)
	for _, item := range view.Grouped {
		lines = append(lines, PaymentSessionLine{
			ProductID:  item.ProductID,
			Title:      item.Title,
			UnitAmount: item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	if view.Totals.Shipping > 0 {
		lines = append(lines, PaymentSessionLine{
			ProductID:  "shipping",
			Title:      "Versand",
			UnitAmount: view.Totals.Shipping,
			Quantity:   1,
		})
	}

	session, err := s.payments.CreateSession(ctx, PaymentSessionRequest{
		Currency:     s.currency,
		CartRevision: view.Revision,
		ExpiresAt:    s.now().Add(s.sessionTTL),
		Lines:        lines,
	})
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{"error": err.Error()})
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"session_id": session.SessionID,
		"psp":        session.PSP,
		"forced":     cmd.Force && !eligibility.Eligible,
		"revision":   view.Revision,
	})
	return session, nil
}
