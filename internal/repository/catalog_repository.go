package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"catalog-wizard/internal/domain"
	"catalog-wizard/internal/kv"
)

// Catalog keys
const (
	KeyProducts   = "products"
	KeyCategories = "categories"
)

// CatalogRepository defines the interface for the locally persisted
// product and category lists
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	Save(ctx context.Context, products []domain.Product, categories []domain.Category) error
	SaveCategories(ctx context.Context, categories []domain.Category) error
	// AppendProduct adds product to the list and deletes clearKeys in the
	// same atomic write
	AppendProduct(ctx context.Context, product domain.Product, clearKeys []string) ([]domain.Product, error)
}

type catalogRepository struct {
	store kv.Store
}

// NewCatalogRepository creates a new instance of CatalogRepository
func NewCatalogRepository(store kv.Store) CatalogRepository {
	return &catalogRepository{store: store}
}

// ListProducts retrieves the product list, empty when never written
func (r *catalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := r.read(ctx, KeyProducts, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// ListCategories retrieves the category list, empty when never written
func (r *catalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	if err := r.read(ctx, KeyCategories, &categories); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	for i := range categories {
		if categories[i].Products == nil {
			categories[i].Products = []domain.Product{}
		}
	}
	return categories, nil
}

// Save replaces both lists in one write
func (r *catalogRepository) Save(ctx context.Context, products []domain.Product, categories []domain.Category) error {
	batch := kv.NewBatch()
	if err := setJSON(batch, KeyProducts, products); err != nil {
		return err
	}
	if err := setJSON(batch, KeyCategories, categories); err != nil {
		return err
	}

	if err := r.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

// SaveCategories replaces the category list
func (r *catalogRepository) SaveCategories(ctx context.Context, categories []domain.Category) error {
	batch := kv.NewBatch()
	if err := setJSON(batch, KeyCategories, categories); err != nil {
		return err
	}

	if err := r.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("failed to save categories: %w", err)
	}
	return nil
}

// AppendProduct appends product and removes clearKeys atomically
func (r *catalogRepository) AppendProduct(ctx context.Context, product domain.Product, clearKeys []string) ([]domain.Product, error) {
	products, err := r.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	products = append(products, product)

	batch := kv.NewBatch()
	if err := setJSON(batch, KeyProducts, products); err != nil {
		return nil, err
	}
	batch.Delete(clearKeys...)

	if err := r.store.Apply(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to append product: %w", err)
	}
	return products, nil
}

func (r *catalogRepository) read(ctx context.Context, key string, dest interface{}) error {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return err
	}
	return json.Unmarshal(raw, dest)
}

func setJSON(batch *kv.Batch, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	batch.Set(key, raw)
	return nil
}
