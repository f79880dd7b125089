package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/weinhalle/shop/internal/domain"
	"github.com/weinhalle/shop/internal/repositories"
)

// CatalogRepository serves product and bundle definitions from a YAML seed
// file. Intended for local development and small deployments; production
// setups point the catalog at the CMS instead.
type CatalogRepository struct {
	path string

	mu      sync.RWMutex
	entries map[string]domain.CatalogEntry
	order   []string
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

type catalogSeed struct {
	Products []productSeed `yaml:"products"`
	Bundles  []bundleSeed  `yaml:"bundles"`
}

type productSeed struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Slug            string   `yaml:"slug"`
	Image           string   `yaml:"image"`
	Price           int64    `yaml:"price"`
	OldPrice        *int64   `yaml:"oldPrice"`
	DiscountPercent *int     `yaml:"discountPercent"`
	Rating          float64  `yaml:"rating"`
	StatusTag       string   `yaml:"statusTag"`
	VariantTag      string   `yaml:"variantTag"`
	Stock           int      `yaml:"stock"`
	Sizes           []string `yaml:"sizes"`
}

type bundleSeed struct {
	ID         string                `yaml:"id"`
	Title      string                `yaml:"title"`
	Slug       string                `yaml:"slug"`
	Image      string                `yaml:"image"`
	Price      int64                 `yaml:"price"`
	Rating     float64               `yaml:"rating"`
	StatusTag  string                `yaml:"statusTag"`
	Stock      int                   `yaml:"stock"`
	Components []bundleComponentSeed `yaml:"components"`
}

type bundleComponentSeed struct {
	ID    string `yaml:"id"`
	Units int    `yaml:"units"`
}

// NewCatalogRepository loads the seed file once and serves entries from memory.
func NewCatalogRepository(path string) (*CatalogRepository, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("catalog repository: path is required")
	}

	repo := &CatalogRepository{path: trimmed}
	if err := repo.Reload(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Reload re-reads the seed file, replacing the in-memory catalog.
func (r *CatalogRepository) Reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("catalog repository: read %s: %w", r.path, err)
	}

	var seed catalogSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("catalog repository: parse %s: %w", r.path, err)
	}

	entries := make(map[string]domain.CatalogEntry, len(seed.Products)+len(seed.Bundles))
	order := make([]string, 0, len(seed.Products)+len(seed.Bundles))
	now := time.Now().UTC()

	for _, p := range seed.Products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("catalog repository: product without id in %s", r.path)
		}
		if _, exists := entries[id]; exists {
			return fmt.Errorf("catalog repository: duplicate entry id %q", id)
		}
		entries[id] = domain.CatalogEntry{
			ID:   id,
			Kind: domain.CatalogEntryProduct,
			Product: domain.Product{
				ID:              id,
				Title:           p.Title,
				Slug:            p.Slug,
				ImageRef:        p.Image,
				Price:           p.Price,
				OldPrice:        p.OldPrice,
				DiscountPercent: p.DiscountPercent,
				Rating:          p.Rating,
				StatusTag:       p.StatusTag,
				VariantTag:      p.VariantTag,
				Stock:           p.Stock,
				Sizes:           p.Sizes,
			},
			UpdatedAt: now,
		}
		order = append(order, id)
	}

	for _, b := range seed.Bundles {
		id := strings.TrimSpace(b.ID)
		if id == "" {
			return fmt.Errorf("catalog repository: bundle without id in %s", r.path)
		}
		if _, exists := entries[id]; exists {
			return fmt.Errorf("catalog repository: duplicate entry id %q", id)
		}
		components := make([]domain.BundleComponent, 0, len(b.Components))
		for _, c := range b.Components {
			componentID := strings.TrimSpace(c.ID)
			if componentID == "" {
				return fmt.Errorf("catalog repository: bundle %q has component without id", id)
			}
			components = append(components, domain.BundleComponent{
				ComponentID:    componentID,
				UnitsPerBundle: c.Units,
			})
		}
		entries[id] = domain.CatalogEntry{
			ID:   id,
			Kind: domain.CatalogEntryBundle,
			Product: domain.Product{
				ID:        id,
				Title:     b.Title,
				Slug:      b.Slug,
				ImageRef:  b.Image,
				Price:     b.Price,
				Rating:    b.Rating,
				StatusTag: b.StatusTag,
				Stock:     b.Stock,
			},
			Components: components,
			UpdatedAt:  now,
		}
		order = append(order, id)
	}

	r.mu.Lock()
	r.entries = entries
	r.order = order
	r.mu.Unlock()
	return nil
}

// GetEntry resolves a catalog entry by ID.
func (r *CatalogRepository) GetEntry(ctx context.Context, id string) (domain.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.CatalogEntry{}, err
	}

	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return domain.CatalogEntry{}, notFoundError("catalog.get", errors.New("entry id is required"))
	}

	r.mu.RLock()
	entry, ok := r.entries[trimmed]
	r.mu.RUnlock()
	if !ok {
		return domain.CatalogEntry{}, notFoundError("catalog.get", fmt.Errorf("entry %q not found", trimmed))
	}
	return entry, nil
}

// ListEntries returns all catalog entries in seed-file order.
func (r *CatalogRepository) ListEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.CatalogEntry, 0, len(r.order))
	for _, id := range r.order {
		if entry, ok := r.entries[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}
