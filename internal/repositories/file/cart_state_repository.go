package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domain "github.com/weinhalle/shop/internal/domain"
	"github.com/weinhalle/shop/internal/repositories"
)

const cartStateSchemaVersion = 1

// CartStateRepository stores the cart aggregate as a JSON document on disk.
// Writes go through a temp file plus rename so a crash mid-write never leaves
// a torn payload behind.
type CartStateRepository struct {
	path string

	mu sync.Mutex
}

var _ repositories.CartStateRepository = (*CartStateRepository)(nil)

// NewCartStateRepository constructs a repository persisting to the given path.
func NewCartStateRepository(path string) (*CartStateRepository, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("cart state repository: path is required")
	}
	return &CartStateRepository{path: trimmed}, nil
}

type cartStateDocument struct {
	Version   int               `json:"version"`
	Items     []cartLineItemDoc `json:"items"`
	Wishlist  []wishlistItemDoc `json:"wishlist"`
	Revision  uint64            `json:"revision"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type cartLineItemDoc struct {
	ProductID       string    `json:"productId"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	ImageRef        string    `json:"imageRef,omitempty"`
	UnitPrice       int64     `json:"unitPrice"`
	OldPrice        *int64    `json:"oldPrice,omitempty"`
	DiscountPercent *int      `json:"discountPercent,omitempty"`
	Rating          float64   `json:"rating,omitempty"`
	StatusTag       string    `json:"statusTag,omitempty"`
	VariantTag      string    `json:"variantTag,omitempty"`
	Stock           int       `json:"stock"`
	Sizes           []string  `json:"sizes,omitempty"`
	Quantity        int       `json:"quantity"`
	SelectedSize    string    `json:"selectedSize,omitempty"`
	AddedAt         time.Time `json:"addedAt"`
}

type wishlistItemDoc struct {
	ProductID       string    `json:"productId"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	ImageRef        string    `json:"imageRef,omitempty"`
	UnitPrice       int64     `json:"unitPrice"`
	OldPrice        *int64    `json:"oldPrice,omitempty"`
	DiscountPercent *int      `json:"discountPercent,omitempty"`
	Rating          float64   `json:"rating,omitempty"`
	StatusTag       string    `json:"statusTag,omitempty"`
	VariantTag      string    `json:"variantTag,omitempty"`
	Stock           int       `json:"stock"`
	AddedAt         time.Time `json:"addedAt"`
}

// Load reads the persisted cart state. A missing file, an unreadable payload,
// or an unknown schema version all yield ok=false with a nil error.
func (r *CartStateRepository) Load(ctx context.Context) (domain.CartState, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartState{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CartState{}, false, nil
	}
	if err != nil {
		return domain.CartState{}, false, unavailableError("cart-state.load", err)
	}

	var doc cartStateDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.CartState{}, false, nil
	}
	if doc.Version != cartStateSchemaVersion {
		return domain.CartState{}, false, nil
	}

	state := domain.CartState{
		Items:     make([]domain.CartLineItem, 0, len(doc.Items)),
		Wishlist:  make([]domain.WishlistItem, 0, len(doc.Wishlist)),
		Revision:  doc.Revision,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity < 1 {
			return domain.CartState{}, false, nil
		}
		state.Items = append(state.Items, domain.CartLineItem{
			ProductID:       item.ProductID,
			Title:           item.Title,
			Slug:            item.Slug,
			ImageRef:        item.ImageRef,
			UnitPrice:       item.UnitPrice,
			OldPrice:        item.OldPrice,
			DiscountPercent: item.DiscountPercent,
			Rating:          item.Rating,
			StatusTag:       item.StatusTag,
			VariantTag:      item.VariantTag,
			Stock:           item.Stock,
			Sizes:           item.Sizes,
			Quantity:        item.Quantity,
			SelectedSize:    item.SelectedSize,
			AddedAt:         item.AddedAt,
		})
	}
	for _, item := range doc.Wishlist {
		if strings.TrimSpace(item.ProductID) == "" {
			return domain.CartState{}, false, nil
		}
		state.Wishlist = append(state.Wishlist, domain.WishlistItem{
			ProductID:       item.ProductID,
			Title:           item.Title,
			Slug:            item.Slug,
			ImageRef:        item.ImageRef,
			UnitPrice:       item.UnitPrice,
			OldPrice:        item.OldPrice,
			DiscountPercent: item.DiscountPercent,
			Rating:          item.Rating,
			StatusTag:       item.StatusTag,
			VariantTag:      item.VariantTag,
			Stock:           item.Stock,
			AddedAt:         item.AddedAt,
		})
	}

	return state, true, nil
}

// Save persists the cart state atomically.
func (r *CartStateRepository) Save(ctx context.Context, state domain.CartState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := cartStateDocument{
		Version:   cartStateSchemaVersion,
		Items:     make([]cartLineItemDoc, 0, len(state.Items)),
		Wishlist:  make([]wishlistItemDoc, 0, len(state.Wishlist)),
		Revision:  state.Revision,
		UpdatedAt: state.UpdatedAt,
	}
	for _, item := range state.Items {
		doc.Items = append(doc.Items, cartLineItemDoc{
			ProductID:       item.ProductID,
			Title:           item.Title,
			Slug:            item.Slug,
			ImageRef:        item.ImageRef,
			UnitPrice:       item.UnitPrice,
			OldPrice:        item.OldPrice,
			DiscountPercent: item.DiscountPercent,
			Rating:          item.Rating,
			StatusTag:       item.StatusTag,
			VariantTag:      item.VariantTag,
			Stock:           item.Stock,
			Sizes:           item.Sizes,
			Quantity:        item.Quantity,
			SelectedSize:    item.SelectedSize,
			AddedAt:         item.AddedAt,
		})
	}
	for _, item := range state.Wishlist {
		doc.Wishlist = append(doc.Wishlist, wishlistItemDoc{
			ProductID:       item.ProductID,
			Title:           item.Title,
			Slug:            item.Slug,
			ImageRef:        item.ImageRef,
			UnitPrice:       item.UnitPrice,
			OldPrice:        item.OldPrice,
			DiscountPercent: item.DiscountPercent,
			Rating:          item.Rating,
			StatusTag:       item.StatusTag,
			VariantTag:      item.VariantTag,
			Stock:           item.Stock,
			AddedAt:         item.AddedAt,
		})
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("cart state repository: encode state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailableError("cart-state.save", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return unavailableError("cart-state.save", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return unavailableError("cart-state.save", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return unavailableError("cart-state.save", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return unavailableError("cart-state.save", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return unavailableError("cart-state.save", err)
	}
	return nil
}
