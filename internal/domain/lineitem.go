package domain

import (
	"strings"
	"time"
)

// KeyOf returns the identity of a cart line. Lines collide iff product and
// selected size are both equal.
func KeyOf(item CartLineItem) LineKey {
	return LineKey{
		ProductID: strings.TrimSpace(item.ProductID),
		Size:      strings.TrimSpace(item.SelectedSize),
	}
}

// LineItemFromProduct converts a catalog product into a cart line with
// quantity 1, snapshotting the display fields at add time.
func LineItemFromProduct(p Product, selectedSize string, now time.Time) CartLineItem {
	return CartLineItem{
		ProductID:       strings.TrimSpace(p.ID),
		Title:           p.Title,
		Slug:            p.Slug,
		ImageRef:        p.ImageRef,
		UnitPrice:       p.Price,
		OldPrice:        cloneInt64Pointer(p.OldPrice),
		DiscountPercent: cloneIntPointer(p.DiscountPercent),
		Rating:          p.Rating,
		StatusTag:       p.StatusTag,
		VariantTag:      p.VariantTag,
		Stock:           p.Stock,
		Sizes:           cloneStrings(p.Sizes),
		Quantity:        1,
		SelectedSize:    strings.TrimSpace(selectedSize),
		AddedAt:         now,
	}
}

// WishlistItemFromProduct converts a catalog product into an idempotent
// wishlist entry.
func WishlistItemFromProduct(p Product, now time.Time) WishlistItem {
	return WishlistItem{
		ProductID:       strings.TrimSpace(p.ID),
		Title:           p.Title,
		Slug:            p.Slug,
		ImageRef:        p.ImageRef,
		UnitPrice:       p.Price,
		OldPrice:        cloneInt64Pointer(p.OldPrice),
		DiscountPercent: cloneIntPointer(p.DiscountPercent),
		Rating:          p.Rating,
		StatusTag:       p.StatusTag,
		VariantTag:      p.VariantTag,
		Stock:           p.Stock,
		AddedAt:         now,
	}
}

// UpsertQuantity is the single building block for add, increment, decrement,
// and remove-one. When a line with the same (product, size) key exists its
// quantity moves by delta; a line that would drop to zero or below is removed
// from the result. When no line matches and delta is positive a new line is
// appended. Stock limits are deliberately not enforced here; callers are
// expected to check quantity against the advisory stock count first.
func UpsertQuantity(items []CartLineItem, p Product, selectedSize string, delta int, now time.Time) []CartLineItem {
	key := LineKey{ProductID: strings.TrimSpace(p.ID), Size: strings.TrimSpace(selectedSize)}

	out := make([]CartLineItem, 0, len(items)+1)
	matched := false
	for _, item := range items {
		if KeyOf(item) != key {
			out = append(out, item)
			continue
		}
		matched = true
		next := item.Quantity + delta
		if next <= 0 {
			continue
		}
		item.Quantity = next
		out = append(out, item)
	}

	if !matched && delta > 0 {
		line := LineItemFromProduct(p, selectedSize, now)
		line.Quantity = delta
		out = append(out, line)
	}
	return out
}

// DecrementFirstMatch decrements the earliest-added line for the product by
// one, regardless of size, dropping the line when its quantity reaches zero.
// The earliest-added tie-break is the documented contract when several size
// lines exist for the same product.
func DecrementFirstMatch(items []CartLineItem, productID string) []CartLineItem {
	target := strings.TrimSpace(productID)
	if target == "" {
		return items
	}

	idx := -1
	for i, item := range items {
		if KeyOf(item).ProductID != target {
			continue
		}
		if idx < 0 || item.AddedAt.Before(items[idx].AddedAt) {
			idx = i
		}
	}
	if idx < 0 {
		return items
	}

	out := make([]CartLineItem, 0, len(items))
	for i, item := range items {
		if i == idx {
			item.Quantity--
			if item.Quantity <= 0 {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// RemoveAll drops every line for the product, regardless of size.
func RemoveAll(items []CartLineItem, productID string) []CartLineItem {
	target := strings.TrimSpace(productID)
	out := make([]CartLineItem, 0, len(items))
	for _, item := range items {
		if KeyOf(item).ProductID == target {
			continue
		}
		out = append(out, item)
	}
	return out
}

// GroupByProduct collapses size-variant lines of the same product into one
// summed-quantity entry, preserving first-seen order. Display aggregation
// only; stored lines stay size-keyed.
func GroupByProduct(items []CartLineItem) []CartLineItem {
	seen := make(map[string]int, len(items))
	out := make([]CartLineItem, 0, len(items))
	for _, item := range items {
		id := KeyOf(item).ProductID
		if idx, ok := seen[id]; ok {
			out[idx].Quantity += item.Quantity
			continue
		}
		grouped := item
		grouped.SelectedSize = ""
		seen[id] = len(out)
		out = append(out, grouped)
	}
	return out
}

// Subtotal sums unit price times quantity across all lines.
func Subtotal(items []CartLineItem) int64 {
	var total int64
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// TotalQuantity sums line quantities.
func TotalQuantity(items []CartLineItem) int {
	count := 0
	for _, item := range items {
		if item.Quantity > 0 {
			count += item.Quantity
		}
	}
	return count
}

// QuantityOf returns the quantity for one product summed across its size
// lines, zero when absent.
func QuantityOf(items []CartLineItem, productID string) int {
	target := strings.TrimSpace(productID)
	count := 0
	for _, item := range items {
		if KeyOf(item).ProductID == target {
			count += item.Quantity
		}
	}
	return count
}

// IsInCart reports whether any line, in any size, holds the product.
func IsInCart(items []CartLineItem, productID string) bool {
	return QuantityOf(items, productID) > 0
}

// IsInWishlist reports whether the product is saved for later.
func IsInWishlist(items []WishlistItem, productID string) bool {
	target := strings.TrimSpace(productID)
	for _, item := range items {
		if item.ProductID == target {
			return true
		}
	}
	return false
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneInt64Pointer(value *int64) *int64 {
	if value == nil {
		return nil
	}
	dup := *value
	return &dup
}

func cloneIntPointer(value *int) *int {
	if value == nil {
		return nil
	}
	dup := *value
	return &dup
}

// CloneItems returns a deep copy of the given cart lines.
func CloneItems(items []CartLineItem) []CartLineItem {
	if items == nil {
		return nil
	}
	out := make([]CartLineItem, len(items))
	for i, item := range items {
		item.OldPrice = cloneInt64Pointer(item.OldPrice)
		item.DiscountPercent = cloneIntPointer(item.DiscountPercent)
		item.Sizes = cloneStrings(item.Sizes)
		out[i] = item
	}
	return out
}

// CloneWishlist returns a deep copy of the given wishlist entries.
func CloneWishlist(items []WishlistItem) []WishlistItem {
	if items == nil {
		return nil
	}
	out := make([]WishlistItem, len(items))
	for i, item := range items {
		item.OldPrice = cloneInt64Pointer(item.OldPrice)
		item.DiscountPercent = cloneIntPointer(item.DiscountPercent)
		out[i] = item
	}
	return out
}

// Clone returns a deep copy of the cart state.
func (s CartState) Clone() CartState {
	s.Items = CloneItems(s.Items)
	s.Wishlist = CloneWishlist(s.Wishlist)
	return s
}
