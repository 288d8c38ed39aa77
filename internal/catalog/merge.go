package catalog

import (
	"strings"

	"catalog-wizard/internal/domain"
)

// Snapshot is the published catalog served at /products.json
type Snapshot struct {
	Products   []domain.Product  `json:"products"`
	Categories []domain.Category `json:"categories"`
}

// Empty reports whether the snapshot carries nothing worth merging
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Products) == 0 && len(s.Categories) == 0)
}

func fold(s string) string {
	return strings.ToLower(s)
}

type productIdentity struct {
	name, category, brand string
}

func identityOf(p domain.Product) productIdentity {
	return productIdentity{fold(p.Name), fold(p.Category), fold(p.Brand)}
}

// MergeProducts returns the remote products in order followed by every local
// product whose name, category and brand do not all match a remote product,
// ignoring case.
func MergeProducts(remote, local []domain.Product) []domain.Product {
	merged := make([]domain.Product, 0, len(remote)+len(local))
	merged = append(merged, remote...)

	seen := make(map[productIdentity]struct{}, len(remote))
	for _, p := range remote {
		seen[identityOf(p)] = struct{}{}
	}

	for _, p := range local {
		if _, dup := seen[identityOf(p)]; dup {
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

// MergeCategories returns the remote categories followed by every local
// category that shares neither id nor case-insensitive name with a remote one.
func MergeCategories(remote, local []domain.Category) []domain.Category {
	merged := make([]domain.Category, 0, len(remote)+len(local))

	ids := make(map[string]struct{}, len(remote))
	names := make(map[string]struct{}, len(remote))
	for _, c := range remote {
		ids[c.ID] = struct{}{}
		names[fold(c.Name)] = struct{}{}
		merged = append(merged, withProducts(c))
	}

	for _, c := range local {
		if _, dup := ids[c.ID]; dup {
			continue
		}
		if _, dup := names[fold(c.Name)]; dup {
			continue
		}
		merged = append(merged, withProducts(c))
	}
	return merged
}

func withProducts(c domain.Category) domain.Category {
	if c.Products == nil {
		c.Products = []domain.Product{}
	}
	return c
}
