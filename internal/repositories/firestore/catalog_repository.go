package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	fs "cloud.google.com/go/firestore"

	domain "github.com/weinhalle/shop/internal/domain"
	platformfs "github.com/weinhalle/shop/internal/platform/firestore"
	"github.com/weinhalle/shop/internal/repositories"
)

// CatalogRepository reads product and bundle documents from the CMS-managed
// Firestore collection.
type CatalogRepository struct {
	reader *platformfs.CollectionReader[catalogEntryDoc]
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

type catalogEntryDoc struct {
	Kind            string               `firestore:"kind"`
	Title           string               `firestore:"title"`
	Slug            string               `firestore:"slug"`
	Image           string               `firestore:"image"`
	Price           int64                `firestore:"price"`
	OldPrice        *int64               `firestore:"oldPrice"`
	DiscountPercent *int                 `firestore:"discountPercent"`
	Rating          float64              `firestore:"rating"`
	StatusTag       string               `firestore:"statusTag"`
	VariantTag      string               `firestore:"variantTag"`
	Stock           int                  `firestore:"stock"`
	Sizes           []string             `firestore:"sizes"`
	Components      []bundleComponentDoc `firestore:"components"`
}

type bundleComponentDoc struct {
	ID    string `firestore:"id"`
	Units int    `firestore:"units"`
}

// NewCatalogRepository constructs a repository bound to the given collection.
func NewCatalogRepository(provider *platformfs.Provider, collection string) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository: firestore provider is required")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("catalog repository: collection is required")
	}
	return &CatalogRepository{
		reader: platformfs.NewCollectionReader[catalogEntryDoc](provider, collection, nil),
	}, nil
}

// GetEntry resolves a catalog entry by document ID.
func (r *CatalogRepository) GetEntry(ctx context.Context, id string) (domain.CatalogEntry, error) {
	doc, err := r.reader.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	return toDomainEntry(doc.ID, doc.Data, doc.UpdateTime), nil
}

// ListEntries returns every catalog entry ordered by document ID.
func (r *CatalogRepository) ListEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	docs, err := r.reader.Query(ctx, func(query fs.Query) fs.Query {
		return query.OrderBy(fs.DocumentID, fs.Asc)
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CatalogEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, toDomainEntry(doc.ID, doc.Data, doc.UpdateTime))
	}
	return entries, nil
}

func toDomainEntry(id string, doc catalogEntryDoc, updatedAt time.Time) domain.CatalogEntry {
	kind := domain.CatalogEntryProduct
	if strings.EqualFold(strings.TrimSpace(doc.Kind), string(domain.CatalogEntryBundle)) {
		kind = domain.CatalogEntryBundle
	}

	var components []domain.BundleComponent
	if kind == domain.CatalogEntryBundle {
		components = make([]domain.BundleComponent, 0, len(doc.Components))
		for _, c := range doc.Components {
			componentID := strings.TrimSpace(c.ID)
			if componentID == "" {
				continue
			}
			components = append(components, domain.BundleComponent{
				ComponentID:    componentID,
				UnitsPerBundle: c.Units,
			})
		}
	}

	return domain.CatalogEntry{
		ID:   id,
		Kind: kind,
		Product: domain.Product{
			ID:              id,
			Title:           doc.Title,
			Slug:            doc.Slug,
			ImageRef:        doc.Image,
			Price:           doc.Price,
			OldPrice:        doc.OldPrice,
			DiscountPercent: doc.DiscountPercent,
			Rating:          doc.Rating,
			StatusTag:       doc.StatusTag,
			VariantTag:      doc.VariantTag,
			Stock:           doc.Stock,
			Sizes:           doc.Sizes,
		},
		Components: components,
		UpdatedAt:  updatedAt,
	}
}
