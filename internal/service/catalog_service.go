package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"catalog-wizard/internal/catalog"
	"catalog-wizard/internal/domain"
	"catalog-wizard/internal/kv"
	"catalog-wizard/internal/repository"

	"go.uber.org/zap"
)

// SnapshotFetcher reads the published catalog
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*catalog.Snapshot, error)
}

// CatalogService serves the catalog view: local data merged with the
// published snapshot.
type CatalogService interface {
	Load(ctx context.Context) (*catalog.Snapshot, error)
	AddCategory(ctx context.Context, name string) (*domain.Category, error)
	ProductsByCategory(ctx context.Context) ([]domain.Category, error)
}

type catalogService struct {
	repo   repository.CatalogRepository
	remote SnapshotFetcher
	now    func() time.Time
	logger *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService. A nil remote
// disables the snapshot merge.
func NewCatalogService(repo repository.CatalogRepository, remote SnapshotFetcher, logger *zap.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		remote: remote,
		now:    time.Now,
		logger: logger,
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// CategoryID builds a category id from its name and creation time
func CategoryID(name string, at time.Time) string {
	slug := whitespace.ReplaceAllString(strings.ToLower(name), "-")
	return slug + "-" + strconv.FormatInt(at.UnixMilli(), 10)
}

func (s *catalogService) local(ctx context.Context) (*catalog.Snapshot, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &catalog.Snapshot{Products: products, Categories: categories}, nil
}

// Load returns the local catalog, merged with the remote snapshot and written
// back when the fetch succeeds with data.
func (s *catalogService) Load(ctx context.Context) (*catalog.Snapshot, error) {
	local, err := s.local(ctx)
	if err != nil {
		if !errors.Is(err, kv.ErrUnavailable) {
			return nil, err
		}
		s.logger.Warn("Catalog storage unavailable, starting from an empty catalog", zap.Error(err))
		local = &catalog.Snapshot{Products: []domain.Product{}, Categories: []domain.Category{}}
	}

	if s.remote == nil {
		return local, nil
	}

	remote, err := s.remote.Fetch(ctx)
	if err != nil {
		s.logger.Warn("Remote catalog fetch failed, using local data", zap.Error(err))
		return local, nil
	}
	if remote.Empty() {
		return local, nil
	}

	merged := &catalog.Snapshot{
		Products:   catalog.MergeProducts(remote.Products, local.Products),
		Categories: catalog.MergeCategories(remote.Categories, local.Categories),
	}
	if err := s.repo.Save(ctx, merged.Products, merged.Categories); err != nil {
		s.logger.Warn("Could not persist merged catalog", zap.Error(err))
	}

	s.logger.Debug("Catalog merged",
		zap.Int("products", len(merged.Products)),
		zap.Int("categories", len(merged.Categories)),
	)
	return merged, nil
}

func (s *catalogService) AddCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inputError("name", ErrCategoryNameRequired)
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return nil, ErrCategoryExists
		}
	}

	category := domain.Category{
		ID:       CategoryID(name, s.now()),
		Name:     name,
		Products: []domain.Product{},
	}
	if err := s.repo.SaveCategories(ctx, append(categories, category)); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}

	s.logger.Info("Category added", zap.String("id", category.ID), zap.String("name", category.Name))
	return &category, nil
}

// ProductsByCategory returns every category with the products filed under
// its exact name.
func (s *catalogService) ProductsByCategory(ctx context.Context) ([]domain.Category, error) {
	snapshot, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]domain.Product)
	for _, p := range snapshot.Products {
		byName[p.Category] = append(byName[p.Category], p)
	}

	grouped := make([]domain.Category, len(snapshot.Categories))
	for i, c := range snapshot.Categories {
		c.Products = byName[c.Name]
		if c.Products == nil {
			c.Products = []domain.Product{}
		}
		grouped[i] = c
	}
	return grouped, nil
}
