package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/weinhalle/shop/internal/domain"
	"github.com/weinhalle/shop/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartCatalogRequired    = errors.New("cart service: catalog is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartProductNotFound indicates the referenced product does not exist in the catalog.
var ErrCartProductNotFound = errors.New("cart service: product not found")

const maxLineQuantity = 999

type productResolver interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// PricingParams carries the totals-derivation knobs. Prices are gross, so tax
// is extracted from the total rather than added on top.
type PricingParams struct {
	Currency              string
	Locale                string
	TaxRate               float64
	FreeShippingThreshold int64
	FlatShippingFee       int64
}

// CartServiceDeps wires persistence, catalog lookups, and pricing for cart operations.
type CartServiceDeps struct {
	Repository repositories.CartStateRepository
	Catalog    productResolver
	Pricing    PricingParams
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type cartService struct {
	repo    repositories.CartStateRepository
	catalog productResolver
	pricing PricingParams
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)

	mu    sync.Mutex
	state domain.CartState
}

// NewCartService constructs a CartService, rehydrating persisted state. A
// missing or undecodable snapshot starts the shop with an empty cart.
func NewCartService(ctx context.Context, deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	pricing := deps.Pricing
	pricing.Currency = strings.ToUpper(strings.TrimSpace(pricing.Currency))
	if pricing.Currency == "" {
		pricing.Currency = "EUR"
	}
	if strings.TrimSpace(pricing.Locale) == "" {
		pricing.Locale = "de-DE"
	}

	service := &cartService{
		repo:    deps.Repository,
		catalog: deps.Catalog,
		pricing: pricing,
		now:     func() time.Time { return deps.Clock().UTC() },
		logger:  logger,
	}

	state, ok, err := deps.Repository.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		service.state = state
		logger(ctx, "cart.rehydrated", map[string]any{
			"items":    len(state.Items),
			"wishlist": len(state.Wishlist),
			"revision": state.Revision,
		})
	} else {
		logger(ctx, "cart.started_empty", nil)
	}

	return service, nil
}

// GetCart returns the current cart snapshot without mutating it.
func (s *cartService) GetCart(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(), nil
}

// Snapshot returns a deep copy of the aggregate for asynchronous consumers.
func (s *cartService) Snapshot(ctx context.Context) (CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

// AddItem adds quantity for a (product, size) pairing, snapshotting catalog
// display fields on first add.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (CartView, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, ErrCartInvalidInput
	}
	quantity := cmd.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 || quantity > maxLineQuantity {
		return CartView{}, ErrCartInvalidInput
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return CartView{}, s.translateCatalogError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state.Items = domain.UpsertQuantity(s.state.Items, product, cmd.SelectedSize, quantity, now)
	s.commitLocked(ctx, now, "cart.item_added", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
	return s.viewLocked(), nil
}

// DecrementItem reduces the earliest-added line for the product by one.
// Decrementing an absent product is a no-op.
func (s *cartService) DecrementItem(ctx context.Context, productID string) (CartView, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return CartView{}, ErrCartInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.state.Items)
	total := domain.TotalQuantity(s.state.Items)
	s.state.Items = domain.DecrementFirstMatch(s.state.Items, trimmed)
	if len(s.state.Items) == before && domain.TotalQuantity(s.state.Items) == total {
		return s.viewLocked(), nil
	}

	s.commitLocked(ctx, s.now(), "cart.item_decremented", map[string]any{"product_id": trimmed})
	return s.viewLocked(), nil
}

// RemoveItem drops every size line for the product.
func (s *cartService) RemoveItem(ctx context.Context, productID string) (CartView, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return CartView{}, ErrCartInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.state.Items)
	s.state.Items = domain.RemoveAll(s.state.Items, trimmed)
	if len(s.state.Items) == before {
		return s.viewLocked(), nil
	}

	s.commitLocked(ctx, s.now(), "cart.item_removed", map[string]any{"product_id": trimmed})
	return s.viewLocked(), nil
}

// ClearCart empties the cart lines. The wishlist is untouched.
func (s *cartService) ClearCart(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Items) == 0 {
		return s.viewLocked(), nil
	}

	s.state.Items = nil
	s.commitLocked(ctx, s.now(), "cart.cleared", nil)
	return s.viewLocked(), nil
}

// AddToWishlist saves the product for later. Adding an already-saved product
// is a no-op.
func (s *cartService) AddToWishlist(ctx context.Context, productID string) (CartView, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return CartView{}, ErrCartInvalidInput
	}

	product, err := s.catalog.GetProduct(ctx, trimmed)
	if err != nil {
		return CartView{}, s.translateCatalogError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.IsInWishlist(s.state.Wishlist, trimmed) {
		return s.viewLocked(), nil
	}

	now := s.now()
	s.state.Wishlist = append(s.state.Wishlist, domain.WishlistItemFromProduct(product, now))
	s.commitLocked(ctx, now, "wishlist.item_added", map[string]any{"product_id": trimmed})
	return s.viewLocked(), nil
}

// RemoveFromWishlist drops the product from the wishlist when present.
func (s *cartService) RemoveFromWishlist(ctx context.Context, productID string) (CartView, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return CartView{}, ErrCartInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.state.Wishlist[:0:0]
	removed := false
	for _, item := range s.state.Wishlist {
		if item.ProductID == trimmed {
			removed = true
			continue
		}
		filtered = append(filtered, item)
	}
	if !removed {
		return s.viewLocked(), nil
	}

	s.state.Wishlist = filtered
	s.commitLocked(ctx, s.now(), "wishlist.item_removed", map[string]any{"product_id": trimmed})
	return s.viewLocked(), nil
}

// ClearWishlist drops every wishlist entry; the cart is unaffected.
func (s *cartService) ClearWishlist(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Wishlist) == 0 {
		return s.viewLocked(), nil
	}

	s.state.Wishlist = nil
	s.commitLocked(ctx, s.now(), "wishlist.cleared", nil)
	return s.viewLocked(), nil
}

// MoveWishlistItemToCart removes the product from the wishlist and adds a
// single sizeless line to the cart.
func (s *cartService) MoveWishlistItemToCart(ctx context.Context, productID string) (CartView, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return CartView{}, ErrCartInvalidInput
	}

	product, err := s.catalog.GetProduct(ctx, trimmed)
	if err != nil {
		return CartView{}, s.translateCatalogError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.state.Wishlist[:0:0]
	found := false
	for _, item := range s.state.Wishlist {
		if item.ProductID == trimmed {
			found = true
			continue
		}
		filtered = append(filtered, item)
	}
	if !found {
		return s.viewLocked(), ErrCartProductNotFound
	}

	now := s.now()
	s.state.Wishlist = filtered
	s.state.Items = domain.UpsertQuantity(s.state.Items, product, "", 1, now)
	s.commitLocked(ctx, now, "wishlist.item_moved_to_cart", map[string]any{"product_id": trimmed})
	return s.viewLocked(), nil
}

// commitLocked bumps the revision and flushes the snapshot. Persistence is
// best effort: a failed save is logged and the in-memory state stays
// authoritative.
func (s *cartService) commitLocked(ctx context.Context, now time.Time, event string, fields map[string]any) {
	s.state.Revision++
	s.state.UpdatedAt = now

	if fields == nil {
		fields = map[string]any{}
	}
	fields["revision"] = s.state.Revision
	s.logger(ctx, event, fields)

	if err := s.repo.Save(ctx, s.state.Clone()); err != nil {
		s.logger(ctx, "cart.save_failed", map[string]any{
			"revision": s.state.Revision,
			"error":    err.Error(),
		})
	}
}

func (s *cartService) viewLocked() CartView {
	items := domain.CloneItems(s.state.Items)
	totals := s.totals(items)
	return CartView{
		Items:     items,
		Grouped:   domain.GroupByProduct(items),
		Wishlist:  domain.CloneWishlist(s.state.Wishlist),
		Totals:    totals,
		Formatted: s.formatTotals(totals),
		Revision:  s.state.Revision,
	}
}

func (s *cartService) totals(items []CartLineItem) CartTotals {
	subtotal := domain.Subtotal(items)
	shipping := int64(0)
	if len(items) > 0 {
		shipping = domain.ComputeShipping(subtotal, s.pricing.FreeShippingThreshold, s.pricing.FlatShippingFee)
	}
	total := subtotal + shipping
	return CartTotals{
		Subtotal:  subtotal,
		Tax:       domain.ExtractTaxFromGross(total, s.pricing.TaxRate),
		Shipping:  shipping,
		Total:     total,
		ItemCount: domain.TotalQuantity(items),
	}
}

func (s *cartService) formatTotals(totals CartTotals) FormattedTotals {
	format := func(amount int64) string {
		return domain.FormatMinorUnits(amount, s.pricing.Locale, s.pricing.Currency)
	}
	return FormattedTotals{
		Subtotal: format(totals.Subtotal),
		Tax:      format(totals.Tax),
		Shipping: format(totals.Shipping),
		Total:    format(totals.Total),
	}
}

func (s *cartService) translateCatalogError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrCatalogProductNotFound) {
		return ErrCartProductNotFound
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCartProductNotFound
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}
