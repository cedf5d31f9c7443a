package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/timberline/internal/models"
)

//go:embed canonical.yaml
var canonicalYAML []byte

// ParseCanonical decodes a YAML document of the form {products: [...]}.
func ParseCanonical(data []byte) ([]models.Product, error) {
	var doc struct {
		Products []models.Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse canonical: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Products))
	out := make([]models.Product, 0, len(doc.Products))
	for i, p := range doc.Products {
		p = p.Normalize()
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: canonical product %d has no id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate canonical id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// Canonical returns the built-in product list. It panics if the embedded
// dataset is malformed, which can only happen at build time.
func Canonical() []models.Product {
	out, err := ParseCanonical(canonicalYAML)
	if err != nil {
		panic(err)
	}
	return out
}
