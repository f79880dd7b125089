package services

import (
	"context"

	domain "github.com/weinhalle/shop/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product             = domain.Product
	CartLineItem        = domain.CartLineItem
	WishlistItem        = domain.WishlistItem
	CartState           = domain.CartState
	CartTotals          = domain.CartTotals
	CatalogEntry        = domain.CatalogEntry
	CheckoutState       = domain.CheckoutState
	CheckoutEligibility = domain.CheckoutEligibility
	CheckoutSession     = domain.CheckoutSession
	SystemHealthReport  = domain.SystemHealthReport
)

// CartView is the full cart snapshot returned from every cart operation.
// Grouped collapses size variants per product for the header badge and
// order-summary style displays.
type CartView struct {
	Items     []CartLineItem
	Grouped   []CartLineItem
	Wishlist  []WishlistItem
	Totals    CartTotals
	Formatted FormattedTotals
	Revision  uint64
}

// FormattedTotals carries locale-formatted money strings alongside raw values.
type FormattedTotals struct {
	Subtotal string
	Tax      string
	Shipping string
	Total    string
}

// CartService owns the storefront cart and wishlist aggregate. All mutations
// return the resulting view; reads never mutate.
type CartService interface {
	GetCart(ctx context.Context) (CartView, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (CartView, error)
	DecrementItem(ctx context.Context, productID string) (CartView, error)
	RemoveItem(ctx context.Context, productID string) (CartView, error)
	ClearCart(ctx context.Context) (CartView, error)
	AddToWishlist(ctx context.Context, productID string) (CartView, error)
	RemoveFromWishlist(ctx context.Context, productID string) (CartView, error)
	ClearWishlist(ctx context.Context) (CartView, error)
	MoveWishlistItemToCart(ctx context.Context, productID string) (CartView, error)
	Snapshot(ctx context.Context) (CartState, error)
}

// AddItemCommand adds quantity for a (product, size) pairing.
type AddItemCommand struct {
	ProductID    string
	SelectedSize string
	Quantity     int
}

// CatalogService exposes the read-only product surface with display text
// sanitised before it reaches clients.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetEntry(ctx context.Context, productID string) (CatalogEntry, error)
}

// CheckoutService runs the case-size eligibility gate and creates payment
// sessions once a checkout is allowed to proceed.
type CheckoutService interface {
	Evaluate(ctx context.Context) (CheckoutEligibility, error)
	CreateSession(ctx context.Context, cmd CreateSessionCommand) (CheckoutSession, error)
}

// CreateSessionCommand requests a PSP session. Force skips the warn-user gate
// outcome when the shopper chooses to proceed with a partial case.
type CreateSessionCommand struct {
	Force bool
}

// SystemService aggregates operational health for probe endpoints.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}
