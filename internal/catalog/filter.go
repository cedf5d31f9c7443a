package catalog

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/timberline/internal/models"
)

// BooleanFiltersRequireTrue controls the inStock and featured dimensions.
// When true, only a requested value of true constrains; false means "no
// constraint", which is what the storefront and admin screens rely on. A
// caller therefore cannot ask for out-of-stock or non-featured products.
const BooleanFiltersRequireTrue = true

// PriceRange is an inclusive price window. Either bound may be nil.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (r *PriceRange) empty() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// Filter is a conjunctive set of constraints. A nil or empty field places no
// constraint on its dimension; the zero Filter matches every product.
type Filter struct {
	Search       string      `json:"search,omitempty"`
	Category     string      `json:"category,omitempty"`
	Species      string      `json:"species,omitempty"`
	PriceRange   *PriceRange `json:"priceRange,omitempty"`
	GrainPattern []string    `json:"grainPattern,omitempty"`
	InStock      *bool       `json:"inStock,omitempty"`
	Featured     *bool       `json:"featured,omitempty"`
}

// IsEmpty reports whether f constrains nothing.
func (f Filter) IsEmpty() bool {
	return f.Search == "" &&
		f.Category == "" &&
		f.Species == "" &&
		f.PriceRange.empty() &&
		len(f.GrainPattern) == 0 &&
		!boolConstrains(f.InStock) &&
		!boolConstrains(f.Featured)
}

// ApplyFilter returns the products matching every dimension of f, in input
// order. The input slice is never modified.
func ApplyFilter(products []models.Product, f Filter) []models.Product {
	out := make([]models.Product, 0, len(products))
	if f.IsEmpty() {
		return append(out, products...)
	}
	m := newMatcher(f)
	for _, p := range products {
		if m.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// matcher holds a Filter with its string fields prepared for comparison.
type matcher struct {
	f      Filter
	search string
	grain  map[string]struct{}
}

func newMatcher(f Filter) matcher {
	m := matcher{f: f, search: strings.ToLower(f.Search)}
	if len(f.GrainPattern) > 0 {
		m.grain = make(map[string]struct{}, len(f.GrainPattern))
		for _, g := range f.GrainPattern {
			m.grain[strings.ToLower(g)] = struct{}{}
		}
	}
	return m
}

func (m matcher) match(p models.Product) bool {
	if m.search != "" && !matchesSearch(p, m.search) {
		return false
	}
	if m.f.Category != "" && p.Category != m.f.Category {
		return false
	}
	if m.f.Species != "" && p.Species != strings.ToLower(m.f.Species) {
		return false
	}
	if !m.f.PriceRange.empty() && !inRange(p, m.f.PriceRange) {
		return false
	}
	if m.grain != nil && !m.overlapsGrain(p) {
		return false
	}
	if boolConstrains(m.f.InStock) && p.InStock != *m.f.InStock {
		return false
	}
	if boolConstrains(m.f.Featured) && p.Featured != *m.f.Featured {
		return false
	}
	return true
}

func matchesSearch(p models.Product, term string) bool {
	for _, field := range []string{p.Name, p.Species, p.Category, p.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func inRange(p models.Product, r *PriceRange) bool {
	if p.Price == nil {
		return false
	}
	if r.Min != nil && *p.Price < *r.Min {
		return false
	}
	if r.Max != nil && *p.Price > *r.Max {
		return false
	}
	return true
}

func (m matcher) overlapsGrain(p models.Product) bool {
	for _, g := range p.GrainPattern {
		if _, ok := m.grain[strings.ToLower(g)]; ok {
			return true
		}
	}
	return false
}

func boolConstrains(v *bool) bool {
	if v == nil {
		return false
	}
	if BooleanFiltersRequireTrue {
		return *v
	}
	return true
}

// ParseFilter builds a Filter from a decoded JSON object keyed by dimension
// name. Values of the wrong type are ignored for their dimension only.
func ParseFilter(criteria map[string]any) Filter {
	var f Filter
	if criteria == nil {
		return f
	}
	if s, ok := criteria["search"].(string); ok {
		f.Search = strings.TrimSpace(s)
	}
	if s, ok := criteria["category"].(string); ok {
		f.Category = strings.TrimSpace(s)
	}
	if s, ok := criteria["species"].(string); ok {
		f.Species = strings.ToLower(strings.TrimSpace(s))
	}
	if pr, ok := criteria["priceRange"].(map[string]any); ok {
		r := &PriceRange{Min: parseBound(pr["min"]), Max: parseBound(pr["max"])}
		if !r.empty() {
			f.PriceRange = r
		}
	}
	f.GrainPattern = parseTags(criteria["grainPattern"])
	f.InStock = parseBool(criteria["inStock"])
	f.Featured = parseBool(criteria["featured"])
	return f
}

// FilterFromQuery builds a Filter from URL query parameters: search,
// category, species, minPrice, maxPrice, grainPattern (repeatable or comma
// separated), inStock and featured.
func FilterFromQuery(q url.Values) Filter {
	f := Filter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
		Species:  strings.ToLower(strings.TrimSpace(q.Get("species"))),
	}
	r := &PriceRange{Min: parseBound(q.Get("minPrice")), Max: parseBound(q.Get("maxPrice"))}
	if !r.empty() {
		f.PriceRange = r
	}
	var tags []string
	for _, v := range q["grainPattern"] {
		tags = append(tags, strings.Split(v, ",")...)
	}
	f.GrainPattern = parseTags(tags)
	if q.Has("inStock") {
		f.InStock = parseBool(q.Get("inStock"))
	}
	if q.Has("featured") {
		f.Featured = parseBool(q.Get("featured"))
	}
	return f
}

// parseBound accepts a finite, non-negative number or numeric string.
func parseBound(v any) *float64 {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return nil
	}
	return &n
}

func parseTags(v any) []string {
	var raw []string
	switch x := v.(type) {
	case string:
		raw = strings.Split(x, ",")
	case []string:
		raw = x
	case []any:
		for _, e := range x {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	default:
		return nil
	}
	var out []string
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func parseBool(v any) *bool {
	switch x := v.(type) {
	case bool:
		return &x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		return &b
	default:
		return nil
	}
}
