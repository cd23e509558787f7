// Package services contains the catalog client's application services. They
// bind backend operations to query cache keys and mutation effects.
package services

import (
	"context"
	"slices"

	"github.com/dmitrijs2005/prodcat/internal/client/api"
	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/client/query"
	"github.com/dmitrijs2005/prodcat/internal/logging"
)

const (
	productsScope   = "products"
	productScope    = "product"
	categoriesScope = "categories"
)

// ProductsKey is the prefix shared by every list query.
func ProductsKey() query.Key { return query.Key{productsScope} }

func ListKey(filter models.ProductFilter) query.Key { return query.Key{productsScope, filter} }

func ProductKey(id int64) query.Key { return query.Key{productScope, id} }

func CategoriesKey() query.Key { return query.Key{categoriesScope} }

// ProductService defines catalog operations for the presentation layer.
//
// Contract:
//   - List, Get, Categories: served from the cache while fresh.
//   - Create: invalidates every list and seeds the new product's entry.
//   - Update: replaces the product's entry with the server response and
//     invalidates every list.
//   - Delete: removes the product's entry and invalidates every list.
//   - UpdateOptimistically: shows the patched product at once, rolls back on
//     failure and invalidates the product and every list afterwards.
//
// Failed mutations leave the cache untouched.
type ProductService interface {
	List(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	UpdateOptimistically(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	Subscribe(key query.Key) (<-chan query.Event, func())
	// Reset drops every cached entry, e.g. after a tenant or user switch.
	Reset()
}

type productService struct {
	catalog api.Catalog
	cache   *query.Cache
	log     logging.Logger
}

func NewProductService(catalog api.Catalog, cache *query.Cache, log logging.Logger) ProductService {
	if log == nil {
		log = logging.Discard()
	}
	return &productService{catalog: catalog, cache: cache, log: log}
}

func (s *productService) List(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error) {
	page, err := query.Read(ctx, s.cache, ListKey(filter), func(ctx context.Context) (models.Page[models.Product], error) {
		p, err := s.catalog.ListProducts(ctx, filter)
		if err != nil {
			return models.Page[models.Product]{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	// page shares its backing array with the cache entry.
	page.Content = slices.Clone(page.Content)
	return &page, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, err := query.Read(ctx, s.cache, ProductKey(id), func(ctx context.Context) (models.Product, error) {
		p, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			return models.Product{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	cats, err := query.Read(ctx, s.cache, CategoriesKey(), s.catalog.ListCategories)
	return slices.Clone(cats), err
}

func (s *productService) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	p, err := query.Mutate(ctx, s.cache,
		func(ctx context.Context) (*models.Product, error) {
			return s.catalog.CreateProduct(ctx, in)
		},
		query.InvalidatePrefix[*models.Product](ProductsKey()),
		query.SetAt(func(p *models.Product) query.Key { return ProductKey(p.ID) }, deref),
	)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "product created", "id", p.ID)
	return p, nil
}

func (s *productService) Update(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	p, err := query.Mutate(ctx, s.cache,
		func(ctx context.Context) (*models.Product, error) {
			return s.catalog.UpdateProduct(ctx, id, patch)
		},
		query.SetAt(func(*models.Product) query.Key { return ProductKey(id) }, deref),
		query.InvalidatePrefix[*models.Product](ProductsKey()),
	)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "product updated", "id", id)
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, s.cache,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.catalog.DeleteProduct(ctx, id)
		},
		query.Remove[struct{}](ProductKey(id)),
		query.InvalidatePrefix[struct{}](ProductsKey()),
	)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "product deleted", "id", id)
	return nil
}

// UpdateOptimistically rejects an invalid patch before anything is shown.
func (s *productService) UpdateOptimistically(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	if err := patch.Validate(); err != nil {
		return nil, &api.APIError{Kind: api.KindValidation, Message: err.Error(), Err: err}
	}

	p, err := query.Optimistic(ctx, s.cache, ProductKey(id), patch.Apply,
		func(ctx context.Context) (*models.Product, error) {
			return s.catalog.UpdateProduct(ctx, id, patch)
		},
		ProductsKey(),
	)
	if err != nil {
		s.log.Warn(ctx, "optimistic update rolled back", "id", id, "error", err)
		return nil, err
	}
	return p, nil
}

func (s *productService) Subscribe(key query.Key) (<-chan query.Event, func()) {
	return s.cache.Subscribe(key)
}

func (s *productService) Reset() {
	s.cache.Clear()
}

func deref(p *models.Product) models.Product {
	return *p
}
