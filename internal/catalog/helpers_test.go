package catalog

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func product(id, name, category, species string, price float64) models.Product {
	return models.Product{
		ID:       id,
		Name:     name,
		Category: category,
		Species:  species,
		Price:    models.PriceOf(price),
	}
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// memStorage is an in-memory storage.Provider.
type memStorage struct {
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: map[string][]byte{}}
}

func (m *memStorage) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memStorage) Set(key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStorage) Clear(key string) error {
	delete(m.data, key)
	return nil
}

// gateStorage blocks the first Set after signalling entered, until release
// is closed. Later calls pass straight through.
type gateStorage struct {
	mu      sync.Mutex
	mem     *memStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGateStorage() *gateStorage {
	return &gateStorage{
		mem:     newMemStorage(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateStorage) Get(key string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mem.Get(key)
}

func (g *gateStorage) Set(key string, value []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mem.Set(key, value)
}

func (g *gateStorage) Clear(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mem.Clear(key)
}

// brokenStorage fails every call with a non-sentinel error.
type brokenStorage struct{}

var errDisk = errors.New("disk on fire")

func (brokenStorage) Get(string) ([]byte, error) { return nil, errDisk }
func (brokenStorage) Set(string, []byte) error   { return errDisk }
func (brokenStorage) Clear(string) error         { return errDisk }

func testStore(t *testing.T, st storage.Provider) *RecordStore {
	t.Helper()
	canonical := []models.Product{
		product("1", "Oak Board", "lumber", "oak", 40),
		product("2", "Walnut Slab", "slab", "walnut", 120),
	}
	return NewRecordStore(canonical, st, quietLogger())
}
