package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/weinhalle/shop/internal/domain"
)

type stubRepoError struct {
	notFound    bool
	unavailable bool
}

func (e stubRepoError) Error() string       { return "repo error" }
func (e stubRepoError) IsNotFound() bool    { return e.notFound }
func (e stubRepoError) IsConflict() bool    { return false }
func (e stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubCatalogRepository struct {
	getFunc  func(ctx context.Context, id string) (domain.CatalogEntry, error)
	listFunc func(ctx context.Context) ([]domain.CatalogEntry, error)
}

func (s *stubCatalogRepository) GetEntry(ctx context.Context, id string) (domain.CatalogEntry, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, id)
	}
	return domain.CatalogEntry{}, stubRepoError{notFound: true}
}

func (s *stubCatalogRepository) ListEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx)
	}
	return nil, nil
}

func newTestCatalogService(t *testing.T, repo *stubCatalogRepository) CatalogService {
	t.Helper()
	service, err := NewCatalogService(CatalogServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	return service
}

func TestCatalogGetProductStripsMarkup(t *testing.T) {
	repo := &stubCatalogRepository{
		getFunc: func(_ context.Context, id string) (domain.CatalogEntry, error) {
			return domain.CatalogEntry{
				ID:   id,
				Kind: domain.CatalogEntryProduct,
				Product: domain.Product{
					ID:         id,
					Title:      "Riesling <script>alert(1)</script>",
					StatusTag:  "<b>Neu</b>",
					VariantTag: "trocken",
					Sizes:      []string{"0.75l", "<img src=x>"},
				},
			}, nil
		},
	}
	service := newTestCatalogService(t, repo)

	product, err := service.GetProduct(context.Background(), "riesling-1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if product.Title != "Riesling" {
		t.Fatalf("markup must be stripped from titles, got %q", product.Title)
	}
	if product.StatusTag != "Neu" {
		t.Fatalf("markup must be stripped from tags, got %q", product.StatusTag)
	}
	if len(product.Sizes) != 1 || product.Sizes[0] != "0.75l" {
		t.Fatalf("markup-only sizes must be dropped, got %v", product.Sizes)
	}
}

func TestCatalogGetProductBlankID(t *testing.T) {
	service := newTestCatalogService(t, &stubCatalogRepository{})

	if _, err := service.GetProduct(context.Background(), "   "); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
	}
}

func TestCatalogGetProductNotFound(t *testing.T) {
	service := newTestCatalogService(t, &stubCatalogRepository{})

	if _, err := service.GetProduct(context.Background(), "missing"); !errors.Is(err, ErrCatalogProductNotFound) {
		t.Fatalf("expected ErrCatalogProductNotFound, got %v", err)
	}
}

func TestCatalogGetProductUnavailable(t *testing.T) {
	repo := &stubCatalogRepository{
		getFunc: func(context.Context, string) (domain.CatalogEntry, error) {
			return domain.CatalogEntry{}, stubRepoError{unavailable: true}
		},
	}
	service := newTestCatalogService(t, repo)

	if _, err := service.GetProduct(context.Background(), "riesling-1"); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestCatalogListProducts(t *testing.T) {
	repo := &stubCatalogRepository{
		listFunc: func(context.Context) ([]domain.CatalogEntry, error) {
			return []domain.CatalogEntry{
				{ID: "a", Product: domain.Product{ID: "a", Title: "<i>Spätburgunder</i>"}},
				{ID: "b", Product: domain.Product{ID: "b", Title: "Merlot"}},
			}, nil
		},
	}
	service := newTestCatalogService(t, repo)

	products, err := service.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Title != "Spätburgunder" {
		t.Fatalf("markup must be stripped in listings, got %q", products[0].Title)
	}
}

func TestCatalogContextErrorsPassThrough(t *testing.T) {
	repo := &stubCatalogRepository{
		getFunc: func(ctx context.Context, _ string) (domain.CatalogEntry, error) {
			return domain.CatalogEntry{}, context.Canceled
		},
	}
	service := newTestCatalogService(t, repo)

	if _, err := service.GetProduct(context.Background(), "riesling-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
