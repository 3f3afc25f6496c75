// Package pricing loads the catalog of purchasable credit packages.
package pricing

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carmelita/carmelita-be/internal/models"
)

// ErrUnknownPackage is returned by Find for ids not in the catalog.
var ErrUnknownPackage = errors.New("unknown credit package")

type file struct {
	Packages []models.CreditPricing `yaml:"packages"`
}

// Catalog is an immutable set of credit packages keyed by id.
type Catalog struct {
	byID  map[string]models.CreditPricing
	order []string
}

// Load reads a YAML catalog. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read pricing catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var doc file
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse pricing catalog: %w", err)
	}
	return New(doc.Packages)
}

// New validates packages and builds a catalog.
func New(packages []models.CreditPricing) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]models.CreditPricing, len(packages))}
	for _, p := range packages {
		p.ID = strings.TrimSpace(p.ID)
		switch {
		case p.ID == "":
			return nil, errors.New("pricing package without id")
		case p.CreditsAmount <= 0:
			return nil, fmt.Errorf("pricing package %q: credits must be positive", p.ID)
		case p.PriceUSD <= 0:
			return nil, fmt.Errorf("pricing package %q: price must be positive", p.ID)
		case strings.TrimSpace(p.StripePriceID) == "":
			return nil, fmt.Errorf("pricing package %q: stripe_price_id is required", p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("pricing package %q defined twice", p.ID)
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Find returns the package with the given id.
func (c *Catalog) Find(id string) (models.CreditPricing, error) {
	p, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return models.CreditPricing{}, ErrUnknownPackage
	}
	return p, nil
}

// List returns all packages ordered by price.
func (c *Catalog) List() []models.CreditPricing {
	out := make([]models.CreditPricing, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriceUSD < out[j].PriceUSD })
	return out
}
