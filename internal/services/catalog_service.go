package services

import (
	"context"
	"errors"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/weinhalle/shop/internal/repositories"
)

var errCatalogRepositoryRequired = errors.New("catalog service: repository is required")

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogProductNotFound indicates the product does not exist.
var ErrCatalogProductNotFound = errors.New("catalog service: product not found")

// ErrCatalogUnavailable indicates the catalog backend cannot be reached.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// CatalogServiceDeps wires the catalog backend for read operations.
type CatalogServiceDeps struct {
	Repository repositories.CatalogRepository
	Logger     func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo   repositories.CatalogRepository
	policy *bluemonday.Policy
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService. Display text from the CMS is
// stripped of markup before it leaves the service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errCatalogRepositoryRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		repo:   deps.Repository,
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}, nil
}

// GetProduct resolves a single product or bundle by ID.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	entry, err := s.GetEntry(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	return entry.Product, nil
}

// GetEntry resolves the full catalog entry including bundle composition.
func (s *catalogService) GetEntry(ctx context.Context, productID string) (CatalogEntry, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return CatalogEntry{}, ErrCatalogInvalidInput
	}

	entry, err := s.repo.GetEntry(ctx, trimmed)
	if err != nil {
		return CatalogEntry{}, s.translateRepoError(ctx, err)
	}
	entry.Product = s.sanitizeProduct(entry.Product)
	return entry, nil
}

// ListProducts returns the catalog's storefront listing.
func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, s.translateRepoError(ctx, err)
	}

	products := make([]Product, 0, len(entries))
	for _, entry := range entries {
		products = append(products, s.sanitizeProduct(entry.Product))
	}
	return products, nil
}

func (s *catalogService) sanitizeProduct(p Product) Product {
	p.Title = s.sanitizeText(p.Title)
	p.StatusTag = s.sanitizeText(p.StatusTag)
	p.VariantTag = s.sanitizeText(p.VariantTag)
	if len(p.Sizes) > 0 {
		sizes := make([]string, 0, len(p.Sizes))
		for _, size := range p.Sizes {
			cleaned := s.sanitizeText(size)
			if cleaned != "" {
				sizes = append(sizes, cleaned)
			}
		}
		p.Sizes = sizes
	}
	return p
}

func (s *catalogService) sanitizeText(value string) string {
	return strings.TrimSpace(s.policy.Sanitize(value))
}

func (s *catalogService) translateRepoError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCatalogProductNotFound
		}
	}
	s.logger(ctx, "catalog.lookup_failed", map[string]any{"error": err.Error()})
	return ErrCatalogUnavailable
}
