package catalog

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/timberline/internal/models"
)

// SortKey selects the product ordering.
type SortKey string

// Supported sort keys.
const (
	SortByName      SortKey = "name"
	SortByPrice     SortKey = "price"
	SortByPriceDesc SortKey = "-price"
	SortBySpecies   SortKey = "species"
)

// ParseSortKey maps s onto a supported key; anything else sorts by name.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case SortByName, SortByPrice, SortByPriceDesc, SortBySpecies:
		return k
	default:
		return SortByName
	}
}

// Sort returns a new slice ordered by key. The order is stable and total:
// ties on the key compare by id.
func Sort(products []models.Product, key SortKey) []models.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []models.Product{}
	}
	// collate.Collator keeps internal buffers, so one per call.
	col := collate.New(language.English, collate.IgnoreCase)

	var primary func(a, b models.Product) int
	switch ParseSortKey(string(key)) {
	case SortByPrice:
		primary = func(a, b models.Product) int { return comparePrice(a, b, false) }
	case SortByPriceDesc:
		primary = func(a, b models.Product) int { return comparePrice(a, b, true) }
	case SortBySpecies:
		primary = func(a, b models.Product) int { return col.CompareString(a.Species, b.Species) }
	default:
		primary = func(a, b models.Product) int { return col.CompareString(a.Name, b.Name) }
	}

	slices.SortStableFunc(out, func(a, b models.Product) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// comparePrice orders unpriced records after every priced one in either
// direction.
func comparePrice(a, b models.Product, desc bool) int {
	switch {
	case a.Price == nil && b.Price == nil:
		return 0
	case a.Price == nil:
		return 1
	case b.Price == nil:
		return -1
	case desc:
		return cmp.Compare(*b.Price, *a.Price)
	default:
		return cmp.Compare(*a.Price, *b.Price)
	}
}
