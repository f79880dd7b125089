package domain

import (
	"time"
)

// Product is the catalog collaborator's read-only product shape. Prices are
// gross amounts in the currency's minor unit (cents); German law requires
// displayed prices to include VAT, so there is no separate net field.
type Product struct {
	ID              string
	Title           string
	Slug            string
	ImageRef        string
	Price           int64
	OldPrice        *int64
	DiscountPercent *int
	Rating          float64
	StatusTag       string
	VariantTag      string
	Stock           int
	Sizes           []string
}

// CartLineItem is one (product, size) pairing with a quantity. Display fields
// are snapshotted from the catalog at add time; totals always use the
// snapshotted UnitPrice stored on the line, never a re-fetch.
type CartLineItem struct {
	ProductID       string
	Title           string
	Slug            string
	ImageRef        string
	UnitPrice       int64
	OldPrice        *int64
	DiscountPercent *int
	Rating          float64
	StatusTag       string
	VariantTag      string
	Stock           int
	Sizes           []string
	Quantity        int
	SelectedSize    string
	AddedAt         time.Time
}

// WishlistItem mirrors CartLineItem without quantity or size; at most one
// entry exists per product.
type WishlistItem struct {
	ProductID       string
	Title           string
	Slug            string
	ImageRef        string
	UnitPrice       int64
	OldPrice        *int64
	DiscountPercent *int
	Rating          float64
	StatusTag       string
	VariantTag      string
	Stock           int
	AddedAt         time.Time
}

// CartState aggregates the device-local cart and wishlist. Revision increments
// on every mutation so asynchronous consumers can detect a stale snapshot.
type CartState struct {
	Items     []CartLineItem
	Wishlist  []WishlistItem
	Revision  uint64
	UpdatedAt time.Time
}

// LineKey identifies a cart line. Size "" means "no size selected"; an absent
// size and an empty size are the same key.
type LineKey struct {
	ProductID string
	Size      string
}

// CartTotals summarizes the derived monetary values for a cart snapshot.
type CartTotals struct {
	Subtotal  int64
	Tax       int64
	Shipping  int64
	Total     int64
	ItemCount int
}

// CatalogEntryKind distinguishes plain products from bundles.
type CatalogEntryKind string

const (
	// CatalogEntryProduct is a plain product contributing one unit per quantity.
	CatalogEntryProduct CatalogEntryKind = "product"
	// CatalogEntryBundle is a composite entry expanding into component units.
	CatalogEntryBundle CatalogEntryKind = "bundle"
)

// BundleComponent declares how many consumable units one bundle contributes
// for a single component product.
type BundleComponent struct {
	ComponentID    string
	UnitsPerBundle int
}

// CatalogEntry is the catalog collaborator's resolution of a product ID.
type CatalogEntry struct {
	ID         string
	Kind       CatalogEntryKind
	Product    Product
	Components []BundleComponent
	UpdatedAt  time.Time
}

// UnitCount returns the consumable units one purchase of this entry yields.
func (e CatalogEntry) UnitCount() int {
	if e.Kind != CatalogEntryBundle {
		return 1
	}
	units := 0
	for _, c := range e.Components {
		if c.UnitsPerBundle > 0 {
			units += c.UnitsPerBundle
		}
	}
	if units == 0 {
		units = 1
	}
	return units
}

// CheckoutState enumerates the gate's states.
type CheckoutState string

const (
	// CheckoutIdle is the resting state before a checkout attempt.
	CheckoutIdle CheckoutState = "idle"
	// CheckoutEvaluating is the single suspend point while unit expansion runs.
	CheckoutEvaluating CheckoutState = "evaluating"
	// CheckoutDirectProceed permits checkout without a warning.
	CheckoutDirectProceed CheckoutState = "direct_proceed"
	// CheckoutWarnUser asks the user to top up to a full case or force through.
	CheckoutWarnUser CheckoutState = "warn_user"
)

// CheckoutEligibility is the ephemeral outcome of one gate evaluation. It is
// advisory relative to CartRevision: if the cart changed during evaluation the
// caller should re-run the gate.
type CheckoutEligibility struct {
	EvaluationID      string
	Eligible          bool
	ResolvedUnitCount int
	MissingUnits      int
	State             CheckoutState
	CartRevision      uint64
	EvaluatedAt       time.Time
}

// CheckoutSession carries PSP session metadata returned to the client.
type CheckoutSession struct {
	SessionID    string
	PSP          string
	ClientSecret string
	RedirectURL  string
	ExpiresAt    time.Time
}
