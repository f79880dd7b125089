package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/weinhalle/shop/internal/platform/httpx"
	"github.com/weinhalle/shop/internal/services"
)

// CatalogHandlers exposes the storefront's read-only catalog endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs handlers over the catalog service.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productId}", h.getProduct)
}

type productPayload struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug,omitempty"`
	ImageRef        string   `json:"imageRef,omitempty"`
	Price           int64    `json:"price"`
	OldPrice        *int64   `json:"oldPrice,omitempty"`
	DiscountPercent *int     `json:"discountPercent,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	StatusTag       string   `json:"statusTag,omitempty"`
	VariantTag      string   `json:"variantTag,omitempty"`
	Stock           int      `json:"stock"`
	Sizes           []string `json:"sizes,omitempty"`
}

type productListResponse struct {
	Products []productPayload `json:"products"`
}

func buildProductPayload(p services.Product) productPayload {
	return productPayload{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		ImageRef:        p.ImageRef,
		Price:           p.Price,
		OldPrice:        p.OldPrice,
		DiscountPercent: p.DiscountPercent,
		Rating:          p.Rating,
		StatusTag:       p.StatusTag,
		VariantTag:      p.VariantTag,
		Stock:           p.Stock,
		Sizes:           p.Sizes,
	}
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := productListResponse{Products: make([]productPayload, 0, len(products))}
	for _, p := range products {
		payload.Products = append(payload.Products, buildProductPayload(p))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}
