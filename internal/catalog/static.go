package catalog

import (
	"context"
	"slices"
)

// Entry is one row of a static catalog. Keys holds the canonical key
// followed by its aliases, all normalized.
type Entry struct {
	Keys     []string
	Products []Product
}

// Static is an in-memory catalog. Entries are tried in order and the first
// one with a matching key wins.
type Static struct {
	entries []Entry
}

// NewStatic returns a catalog over entries. Keys are normalized.
func NewStatic(entries []Entry) *Static {
	s := &Static{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		keys := make([]string, 0, len(e.Keys))
		for _, k := range e.Keys {
			if k = Normalize(k); k != "" {
				keys = append(keys, k)
			}
		}
		s.entries = append(s.entries, Entry{Keys: keys, Products: e.Products})
	}
	return s
}

// Default returns the built-in catalog.
func Default() *Static {
	return NewStatic(DefaultEntries())
}

// FindProducts implements Catalog.
func (s *Static) FindProducts(_ context.Context, name string) ([]Product, error) {
	name = Normalize(name)
	if name == "" {
		return nil, nil
	}
	for _, e := range s.entries {
		if slices.ContainsFunc(e.Keys, func(k string) bool { return Matches(name, k) }) {
			return slices.Clone(e.Products), nil
		}
	}
	return nil, nil
}

// DefaultEntries is the built-in product table. The products table seeded by
// the first migration carries the same rows.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Keys: []string{"magnezyum", "magnesium"},
			Products: []Product{{
				ID:          1,
				Name:        "Premium Magnezyum 400mg",
				Price:       89.90,
				Currency:    "TRY",
				Image:       "/uploads/magnesium.jpg",
				Description: "Yüksek absorpsiyonlu magnezyum bisglisinat",
				Category:    "Vitaminler",
				Stock:       45,
				URL:         "/urun/premium-magnezyum-400mg",
			}},
		},
		{
			Keys: []string{"d vitamini", "vitamin d"},
			Products: []Product{{
				ID:          2,
				Name:        "Vitamin D3 5000 IU",
				Price:       69.90,
				Currency:    "TRY",
				Image:       "/uploads/vitamin-d3.jpg",
				Description: "Yüksek potansli D3 vitamini",
				Category:    "Vitaminler",
				Stock:       32,
				URL:         "/urun/vitamin-d3-5000-iu",
			}},
		},
		{
			Keys: []string{"omega-3", "omega 3"},
			Products: []Product{{
				ID:          3,
				Name:        "Omega-3 Fish Oil Premium",
				Price:       129.90,
				Currency:    "TRY",
				Image:       "/uploads/omega3.jpg",
				Description: "Saf balık yağı omega-3 1000mg",
				Category:    "Omega Yağları",
				Stock:       28,
				URL:         "/urun/omega-3-fish-oil-premium",
			}},
		},
	}
}
