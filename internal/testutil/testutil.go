// Package testutil provides shared test helpers for building storages and a
// wired catalog.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/timberline/internal/catalog"
	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFS creates a temporary data directory with a storage.FS.
func TestFS(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// SampleCanonical is a two-record canonical dataset.
func SampleCanonical() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Oak Board", Category: models.CategoryLumber, Species: "oak", Price: models.PriceOf(40), InStock: true},
		{ID: "2", Name: "Walnut Slab", Category: models.CategorySlab, Species: "walnut", Price: models.PriceOf(120), Featured: true},
	}
}

// TestCatalog wires SampleCanonical to st.
func TestCatalog(t *testing.T, st storage.Provider) *catalog.Catalog {
	t.Helper()
	return catalog.New(catalog.NewRecordStore(SampleCanonical(), st, Logger()))
}
