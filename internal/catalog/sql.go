package catalog

import (
	"context"
	"fmt"
)

// ProductSource is the storage side of the SQL catalog. key is already
// normalized and non-empty.
type ProductSource interface {
	FindProductsByKey(ctx context.Context, key string) ([]Product, error)
}

// SQL is a catalog backed by the products tables of the database.
type SQL struct {
	source ProductSource
}

// NewSQL returns a catalog reading from source.
func NewSQL(source ProductSource) *SQL {
	return &SQL{source: source}
}

// FindProducts implements Catalog.
func (s *SQL) FindProducts(ctx context.Context, name string) ([]Product, error) {
	name = Normalize(name)
	if name == "" {
		return nil, nil
	}
	products, err := s.source.FindProductsByKey(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find products for %q: %w", name, err)
	}
	return products, nil
}
