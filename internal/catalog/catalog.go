package catalog

import (
	"sort"
	"strings"

	"go.uber.org/fx"
)

// Package is a purchasable bundle of generations. The catalog is static
// configuration, not persisted state.
type Package struct {
	ID          string `json:"id"`
	Generations int    `json:"generations"`
	// PriceMinor is the price in minor currency units (kopecks).
	PriceMinor int64  `json:"price_minor"`
	Currency   string `json:"currency"`
}

type Catalog struct {
	packages map[string]Package
}

func New(packages ...Package) *Catalog {
	byID := make(map[string]Package, len(packages))
	for _, pack := range packages {
		byID[pack.ID] = pack
	}
	return &Catalog{packages: byID}
}

// Default returns the built-in package catalog.
func Default() *Catalog {
	return New(
		Package{ID: "pack10", Generations: 10, PriceMinor: 8000, Currency: "RUB"},
		Package{ID: "pack100", Generations: 100, PriceMinor: 50000, Currency: "RUB"},
	)
}

// Get looks up a package by id.
func (c *Catalog) Get(id string) (Package, bool) {
	pack, ok := c.packages[strings.TrimSpace(id)]
	return pack, ok
}

// List returns all packages ordered by id.
func (c *Catalog) List() []Package {
	out := make([]Package, 0, len(c.packages))
	for _, pack := range c.packages {
		out = append(out, pack)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var Module = fx.Module("catalog",
	fx.Provide(Default),
)
