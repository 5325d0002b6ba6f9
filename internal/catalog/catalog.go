package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/drstein77/cartwidget/internal/cart"
	"github.com/drstein77/cartwidget/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog string

// ErrInvalidProduct is returned for a product card the cart could not accept.
var ErrInvalidProduct = errors.New("invalid product")

type file struct {
	Products []models.Product `yaml:"products"`
}

// Catalog is the ordered list of product cards shown on the page.
type Catalog struct {
	products []models.Product
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Load(strings.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load reads a catalog document and validates every product.
func Load(r io.Reader) (*Catalog, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Products))
	for i, p := range doc.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product %d has no name", ErrInvalidProduct, i)
		}
		// Names are cart ids, so a repeated name would merge two products.
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidProduct, name)
		}
		seen[name] = struct{}{}

		if _, err := cart.ParsePrice(p.Price); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProduct, name, err)
		}
		doc.Products[i].Name = name
	}

	return &Catalog{products: doc.Products}, nil
}

// Products returns the product cards in catalog order.
func (c *Catalog) Products() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}
