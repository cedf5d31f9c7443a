// Package models defines the domain types for Timberline.
package models

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// Product categories accepted on write. The catalog engine itself treats
// category as an opaque string.
const (
	CategoryLumber       = "lumber"
	CategorySlab         = "slab"
	CategoryPlywood      = "plywood"
	CategoryTurningBlank = "turning_blank"
	CategoryProjectKit   = "project_kit"
	CategoryVeneer       = "veneer"
	CategoryHardware     = "hardware"
)

// Categories lists every known category in display order.
var Categories = []string{
	CategoryLumber,
	CategorySlab,
	CategoryPlywood,
	CategoryTurningBlank,
	CategoryProjectKit,
	CategoryVeneer,
	CategoryHardware,
}

// GrainPatterns lists the grain-pattern tags accepted on write.
var GrainPatterns = []string{
	"straight", "figured", "curly", "quilted", "burl",
	"spalted", "birdseye", "ribbon", "cathedral", "interlocked",
}

// knownFields are the JSON keys owned by Product; anything else lands in Extra.
var knownFields = []string{
	"id", "name", "category", "species", "price",
	"grainPattern", "inStock", "featured", "description",
}

// Product is a single catalog record.
//
// Price is nil when the record carries no price; such a record fails every
// price constraint. Extra holds JSON fields this service does not own so they
// survive a decode/encode round trip untouched.
type Product struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Category     string   `json:"category" yaml:"category"`
	Species      string   `json:"species" yaml:"species"`
	Price        *float64 `json:"price" yaml:"price"`
	GrainPattern []string `json:"grainPattern,omitempty" yaml:"grainPattern,omitempty"`
	InStock      bool     `json:"inStock" yaml:"inStock"`
	Featured     bool     `json:"featured" yaml:"featured"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`

	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// productFields is Product without its JSON methods.
type productFields Product

// PriceOf returns a pointer to v, for building records with a price.
func PriceOf(v float64) *float64 {
	return &v
}

// HasPrice reports whether the record carries a price.
func (p Product) HasPrice() bool {
	return p.Price != nil
}

// Normalize lowercases species and grain-pattern tags and trims whitespace.
func (p Product) Normalize() Product {
	p.ID = strings.TrimSpace(p.ID)
	p.Species = strings.ToLower(strings.TrimSpace(p.Species))
	if len(p.GrainPattern) > 0 {
		tags := make([]string, 0, len(p.GrainPattern))
		for _, g := range p.GrainPattern {
			g = strings.ToLower(strings.TrimSpace(g))
			if g != "" {
				tags = append(tags, g)
			}
		}
		p.GrainPattern = tags
	}
	return p
}

// Clone returns a deep copy so callers can hold snapshots safely.
func (p Product) Clone() Product {
	if p.Price != nil {
		v := *p.Price
		p.Price = &v
	}
	p.GrainPattern = slices.Clone(p.GrainPattern)
	p.Extra = maps.Clone(p.Extra)
	return p
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (p *Product) UnmarshalJSON(data []byte) error {
	var f productFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		f.Extra = raw
	} else {
		f.Extra = nil
	}
	*p = Product(f)
	return nil
}

// MarshalJSON encodes the known fields merged with Extra. Known fields win
// over an Extra key of the same name.
func (p Product) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(productFields(p))
	if err != nil || len(p.Extra) == 0 {
		return base, err
	}
	merged := make(map[string]json.RawMessage, len(p.Extra)+len(knownFields))
	for k, v := range p.Extra {
		merged[k] = v
	}
	var own map[string]json.RawMessage
	if err := json.Unmarshal(base, &own); err != nil {
		return nil, err
	}
	for k, v := range own {
		merged[k] = v
	}
	return json.Marshal(merged)
}
