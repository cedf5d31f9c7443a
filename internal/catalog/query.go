package catalog

import "github.com/starford/timberline/internal/models"

// Catalog is the query façade over a RecordStore.
type Catalog struct {
	store *RecordStore
}

// New returns a Catalog that falls back to store when no live collection is
// supplied.
func New(store *RecordStore) *Catalog {
	return &Catalog{store: store}
}

// Store returns the underlying record store.
func (c *Catalog) Store() *RecordStore {
	return c.store
}

// Query filters and sorts a product collection. A nil live slice selects
// the record store's merged collection; a non-nil one, even empty, is used
// as-is. The two sources are never combined.
func (c *Catalog) Query(live []models.Product, f Filter, key SortKey) []models.Product {
	products := live
	if products == nil {
		products = c.store.Load()
	}
	return Sort(ApplyFilter(products, f), key)
}
