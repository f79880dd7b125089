package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/weinhalle/shop/internal/domain"
	"github.com/weinhalle/shop/internal/platform/httpx"
	"github.com/weinhalle/shop/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the cart and wishlist endpoints. The catalog service
// backs the advisory stock check on add; the cart store itself stays thin and
// trusts its caller.
type CartHandlers struct {
	carts   services.CartService
	catalog services.CatalogService
}

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(carts services.CartService, catalog services.CatalogService) *CartHandlers {
	return &CartHandlers{carts: carts, catalog: catalog}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Post("/items/{productId}/decrement", h.decrementItem)
	r.Delete("/items/{productId}", h.removeItem)
	r.Post("/wishlist", h.addToWishlist)
	r.Delete("/wishlist", h.clearWishlist)
	r.Delete("/wishlist/{productId}", h.removeFromWishlist)
	r.Post("/wishlist/{productId}/move-to-cart", h.moveWishlistItemToCart)
}

type cartLinePayload struct {
	ProductID       string   `json:"productId"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug,omitempty"`
	ImageRef        string   `json:"imageRef,omitempty"`
	UnitPrice       int64    `json:"unitPrice"`
	OldPrice        *int64   `json:"oldPrice,omitempty"`
	DiscountPercent *int     `json:"discountPercent,omitempty"`
	StatusTag       string   `json:"statusTag,omitempty"`
	VariantTag      string   `json:"variantTag,omitempty"`
	Sizes           []string `json:"sizes,omitempty"`
	Quantity        int      `json:"quantity"`
	SelectedSize    string   `json:"selectedSize,omitempty"`
	AddedAt         string   `json:"addedAt,omitempty"`
}

type wishlistPayload struct {
	ProductID  string `json:"productId"`
	Title      string `json:"title"`
	Slug       string `json:"slug,omitempty"`
	ImageRef   string `json:"imageRef,omitempty"`
	UnitPrice  int64  `json:"unitPrice"`
	StatusTag  string `json:"statusTag,omitempty"`
	VariantTag string `json:"variantTag,omitempty"`
	AddedAt    string `json:"addedAt,omitempty"`
}

type totalsPayload struct {
	Subtotal  int64 `json:"subtotal"`
	Tax       int64 `json:"tax"`
	Shipping  int64 `json:"shipping"`
	Total     int64 `json:"total"`
	ItemCount int   `json:"itemCount"`
	Formatted struct {
		Subtotal string `json:"subtotal"`
		Tax      string `json:"tax"`
		Shipping string `json:"shipping"`
		Total    string `json:"total"`
	} `json:"formatted"`
}

type cartResponse struct {
	Items    []cartLinePayload `json:"items"`
	Grouped  []cartLinePayload `json:"grouped"`
	Wishlist []wishlistPayload `json:"wishlist"`
	Totals   totalsPayload     `json:"totals"`
	Revision uint64            `json:"revision"`
}

func formatAddedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildCartLinePayload(item services.CartLineItem) cartLinePayload {
	return cartLinePayload{
		ProductID:       item.ProductID,
		Title:           item.Title,
		Slug:            item.Slug,
		ImageRef:        item.ImageRef,
		UnitPrice:       item.UnitPrice,
		OldPrice:        item.OldPrice,
		DiscountPercent: item.DiscountPercent,
		StatusTag:       item.StatusTag,
		VariantTag:      item.VariantTag,
		Sizes:           item.Sizes,
		Quantity:        item.Quantity,
		SelectedSize:    item.SelectedSize,
		AddedAt:         formatAddedAt(item.AddedAt),
	}
}

func buildCartResponse(view services.CartView) cartResponse {
	resp := cartResponse{
		Items:    make([]cartLinePayload, 0, len(view.Items)),
		Grouped:  make([]cartLinePayload, 0, len(view.Grouped)),
		Wishlist: make([]wishlistPayload, 0, len(view.Wishlist)),
		Revision: view.Revision,
	}
	for _, item := range view.Items {
		resp.Items = append(resp.Items, buildCartLinePayload(item))
	}
	for _, item := range view.Grouped {
		resp.Grouped = append(resp.Grouped, buildCartLinePayload(item))
	}
	for _, item := range view.Wishlist {
		resp.Wishlist = append(resp.Wishlist, wishlistPayload{
			ProductID:  item.ProductID,
			Title:      item.Title,
			Slug:       item.Slug,
			ImageRef:   item.ImageRef,
			UnitPrice:  item.UnitPrice,
			StatusTag:  item.StatusTag,
			VariantTag: item.VariantTag,
			AddedAt:    formatAddedAt(item.AddedAt),
		})
	}
	resp.Totals = totalsPayload{
		Subtotal:  view.Totals.Subtotal,
		Tax:       view.Totals.Tax,
		Shipping:  view.Totals.Shipping,
		Total:     view.Totals.Total,
		ItemCount: view.Totals.ItemCount,
	}
	resp.Totals.Formatted.Subtotal = view.Formatted.Subtotal
	resp.Totals.Formatted.Tax = view.Formatted.Tax
	resp.Totals.Formatted.Shipping = view.Formatted.Shipping
	resp.Totals.Formatted.Total = view.Formatted.Total
	return resp
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	view, err := h.carts.GetCart(ctx)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartView(w, view)
}

// writeCartView emits the cart snapshot with a no-store directive and a weak
// ETag derived from the revision. Cart state is personal and mutates on every
// write, so shared caches must never hold it; the ETag still lets clients
// cheaply detect an unchanged cart.
func writeCartView(w http.ResponseWriter, view services.CartView) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", fmt.Sprintf(`W/"cart-%d"`, view.Revision))
	writeJSONResponse(w, http.StatusOK, buildCartResponse(view))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req addItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	if !h.stockAllows(ctx, w, req) {
		return
	}

	view, err := h.carts.AddItem(ctx, services.AddItemCommand{
		ProductID:    req.ProductID,
		SelectedSize: req.Size,
		Quantity:     req.Quantity,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartView(w, view)
}

// stockAllows performs the advisory stock check before an add. Stock counts
// come from the catalog and may be stale; the cart store records whatever it
// is told, so this is the single place the check happens. A catalog miss or
// failure skips the check and lets the cart service decide.
func (h *CartHandlers) stockAllows(ctx context.Context, w http.ResponseWriter, req addItemRequest) bool {
	if h.catalog == nil {
		return true
	}
	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return true
	}

	requested := req.Quantity
	if requested < 1 {
		requested = 1
	}
	current := 0
	if view, err := h.carts.GetCart(ctx); err == nil {
		current = domain.QuantityOf(view.Items, product.ID)
	}
	if current+requested > product.Stock {
		httpx.WriteError(ctx, w, httpx.NewError("stock_exceeded", "requested quantity exceeds available stock", http.StatusConflict).
			WithDetails(map[string]any{"stock": product.Stock, "inCart": current}))
		return false
	}
	return true
}

func (h *CartHandlers) decrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateByProduct(w, r, func(ctx context.Context, productID string) (services.CartView, error) {
		return h.carts.DecrementItem(ctx, productID)
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	h.mutateByProduct(w, r, func(ctx context.Context, productID string) (services.CartView, error) {
		return h.carts.RemoveItem(ctx, productID)
	})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	view, err := h.carts.ClearCart(ctx)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartView(w, view)
}

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

func (h *CartHandlers) addToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req wishlistRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	view, err := h.carts.AddToWishlist(ctx, req.ProductID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartView(w, view)
}

func (h *CartHandlers) clearWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	view, err := h.carts.ClearWishlist(ctx)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartView(w, view)
}

func (h *CartHandlers) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.mutateByProduct(w, r, func(ctx context.Context, productID string) (services.CartView, error) {
		return h.carts.RemoveFromWishlist(ctx, productID)
	})
}

func (h *CartHandlers) moveWishlistItemToCart(w http.ResponseWriter, r *http.Request) {
	h.mutateByProduct(w, r, func(ctx context.Context, productID string) (services.CartView, error) {
		return h.carts.MoveWishlistItemToCart(ctx, productID)
	})
}

func (h *CartHandlers) mutateByProduct(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (services.CartView, error)) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	view, err := apply(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartView(w, view)
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}
