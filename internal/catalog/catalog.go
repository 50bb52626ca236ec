// Package catalog maps supplement names to purchasable products.
package catalog

import (
	"context"
	"strings"
)

// Product is a purchasable item offered for a supplement.
type Product struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Price       float64 `json:"price" db:"price"`
	Currency    string  `json:"currency" db:"currency"`
	Image       string  `json:"image" db:"image"`
	Description string  `json:"description" db:"description"`
	Category    string  `json:"category" db:"category"`
	Stock       int     `json:"stock" db:"stock"`
	URL         string  `json:"url" db:"url"`
}

// Catalog looks up the products offered for a supplement name.
// A name with no match yields an empty slice and a nil error.
type Catalog interface {
	FindProducts(ctx context.Context, name string) ([]Product, error)
}

// Normalize prepares a name or key for matching.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether a normalized name and key contain one another.
func Matches(name, key string) bool {
	if name == "" || key == "" {
		return false
	}
	return strings.Contains(name, key) || strings.Contains(key, name)
}
