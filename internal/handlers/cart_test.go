package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/weinhalle/shop/internal/domain"
	"github.com/weinhalle/shop/internal/services"
)

type stubCartService struct {
	view    services.CartView
	err     error
	lastOp  string
	lastCmd services.AddItemCommand
	lastID  string
}

func (s *stubCartService) GetCart(context.Context) (services.CartView, error) {
	s.lastOp = "get"
	return s.view, s.err
}

func (s *stubCartService) AddItem(_ context.Context, cmd services.AddItemCommand) (services.CartView, error) {
	s.lastOp = "add"
	s.lastCmd = cmd
	return s.view, s.err
}

func (s *stubCartService) DecrementItem(_ context.Context, productID string) (services.CartView, error) {
	s.lastOp = "decrement"
	s.lastID = productID
	return s.view, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, productID string) (services.CartView, error) {
	s.lastOp = "remove"
	s.lastID = productID
	return s.view, s.err
}

func (s *stubCartService) ClearCart(context.Context) (services.CartView, error) {
	s.lastOp = "clear"
	return s.view, s.err
}

func (s *stubCartService) AddToWishlist(_ context.Context, productID string) (services.CartView, error) {
	s.lastOp = "wishlist_add"
	s.lastID = productID
	return s.view, s.err
}

func (s *stubCartService) RemoveFromWishlist(_ context.Context, productID string) (services.CartView, error) {
	s.lastOp = "wishlist_remove"
	s.lastID = productID
	return s.view, s.err
}

func (s *stubCartService) ClearWishlist(context.Context) (services.CartView, error) {
	s.lastOp = "wishlist_clear"
	return s.view, s.err
}

func (s *stubCartService) MoveWishlistItemToCart(_ context.Context, productID string) (services.CartView, error) {
	s.lastOp = "wishlist_move"
	s.lastID = productID
	return s.view, s.err
}

func (s *stubCartService) Snapshot(context.Context) (services.CartState, error) {
	return services.CartState{}, nil
}

func newCartRouter(svc services.CartService) chi.Router {
	r := chi.NewRouter()
	NewCartHandlers(svc, nil).Routes(r)
	return r
}

func newCartRouterWithCatalog(svc services.CartService, catalog services.CatalogService) chi.Router {
	r := chi.NewRouter()
	NewCartHandlers(svc, catalog).Routes(r)
	return r
}

func sampleCartView() services.CartView {
	items := []domain.CartLineItem{{
		ProductID:    "riesling-1",
		Title:        "Riesling trocken",
		UnitPrice:    1290,
		Quantity:     2,
		SelectedSize: "0.75l",
	}}
	view := services.CartView{
		Items:    items,
		Grouped:  domain.GroupByProduct(items),
		Totals:   services.CartTotals{Subtotal: 2580, Tax: 491, Shipping: 499, Total: 3079, ItemCount: 2},
		Revision: 4,
	}
	view.Formatted.Total = "30,79 €"
	return view
}

func TestCartGet(t *testing.T) {
	svc := &stubCartService{view: sampleCartView()}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body cartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Revision != 4 {
		t.Fatalf("expected revision 4, got %d", body.Revision)
	}
	if len(body.Items) != 1 || body.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", body.Items)
	}
	if body.Totals.Total != 3079 || body.Totals.Formatted.Total != "30,79 €" {
		t.Fatalf("unexpected totals %+v", body.Totals)
	}
}

func TestCartResponsesCarryCacheHeaders(t *testing.T) {
	svc := &stubCartService{view: sampleCartView()}
	router := newCartRouter(svc)

	requests := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodGet, "/", ""},
		{http.MethodPost, "/items", `{"productId":"riesling-1"}`},
		{http.MethodDelete, "/", ""},
	}
	for _, tc := range requests {
		var reader io.Reader
		if tc.body != "" {
			reader = strings.NewReader(tc.body)
		}
		req := httptest.NewRequest(tc.method, tc.target, reader)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d: %s", tc.method, tc.target, rr.Code, rr.Body.String())
		}
		if got := rr.Header().Get("Cache-Control"); got != "no-store" {
			t.Fatalf("%s %s: expected no-store, got %q", tc.method, tc.target, got)
		}
		if got := rr.Header().Get("ETag"); got != `W/"cart-4"` {
			t.Fatalf("%s %s: expected weak revision ETag, got %q", tc.method, tc.target, got)
		}
	}
}

func TestCartAddItem(t *testing.T) {
	svc := &stubCartService{view: sampleCartView()}
	router := newCartRouter(svc)

	payload := `{"productId":"riesling-1","size":"0.75l","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.lastOp != "add" {
		t.Fatalf("expected add call, got %q", svc.lastOp)
	}
	if svc.lastCmd.ProductID != "riesling-1" || svc.lastCmd.SelectedSize != "0.75l" || svc.lastCmd.Quantity != 2 {
		t.Fatalf("unexpected command %+v", svc.lastCmd)
	}
}

func TestCartAddItemRejectsBadJSON(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCartAddItemUnknownProduct(t *testing.T) {
	svc := &stubCartService{err: services.ErrCartProductNotFound}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"productId":"nope"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCartDecrementRoutesProductID(t *testing.T) {
	svc := &stubCartService{view: sampleCartView()}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/items/riesling-1/decrement", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if svc.lastOp != "decrement" || svc.lastID != "riesling-1" {
		t.Fatalf("unexpected call %q %q", svc.lastOp, svc.lastID)
	}
}

func TestCartRemoveItem(t *testing.T) {
	svc := &stubCartService{view: sampleCartView()}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/items/riesling-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if svc.lastOp != "remove" || svc.lastID != "riesling-1" {
		t.Fatalf("unexpected call %q %q", svc.lastOp, svc.lastID)
	}
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if svc.lastOp != "clear" {
		t.Fatalf("expected clear call, got %q", svc.lastOp)
	}
}

func TestCartWishlistEndpoints(t *testing.T) {
	svc := &stubCartService{}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/wishlist", strings.NewReader(`{"productId":"merlot-2"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || svc.lastOp != "wishlist_add" || svc.lastID != "merlot-2" {
		t.Fatalf("unexpected wishlist add result %d %q %q", rr.Code, svc.lastOp, svc.lastID)
	}

	req = httptest.NewRequest(http.MethodDelete, "/wishlist/merlot-2", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || svc.lastOp != "wishlist_remove" {
		t.Fatalf("unexpected wishlist remove result %d %q", rr.Code, svc.lastOp)
	}

	req = httptest.NewRequest(http.MethodPost, "/wishlist/merlot-2/move-to-cart", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || svc.lastOp != "wishlist_move" {
		t.Fatalf("unexpected wishlist move result %d %q", rr.Code, svc.lastOp)
	}

	req = httptest.NewRequest(http.MethodDelete, "/wishlist", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || svc.lastOp != "wishlist_clear" {
		t.Fatalf("unexpected wishlist clear result %d %q", rr.Code, svc.lastOp)
	}
}

func TestCartAddItemAdvisoryStockCheck(t *testing.T) {
	view := sampleCartView()
	svc := &stubCartService{view: view}
	catalog := &stubCatalogService{product: services.Product{ID: "riesling-1", Title: "Riesling trocken", Price: 1290, Stock: 3}}
	router := newCartRouterWithCatalog(svc, catalog)

	// Two bottles in the cart plus two requested exceeds a stock of three.
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"productId":"riesling-1","quantity":2}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.lastOp == "add" {
		t.Fatal("add must not reach the cart service when stock is exceeded")
	}

	// One more bottle still fits.
	req = httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"productId":"riesling-1","quantity":1}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.lastOp != "add" {
		t.Fatalf("expected add call, got %q", svc.lastOp)
	}
}

func TestCartServiceUnavailableMapping(t *testing.T) {
	svc := &stubCartService{err: services.ErrCartUnavailable}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
