package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/timberline/internal/catalog"
	"github.com/starford/timberline/internal/productservice"
	"github.com/starford/timberline/internal/storage"
	"github.com/starford/timberline/internal/upstream"
)

var errConfigRequired = errors.New("config is required")

// components is the wired catalog stack shared by every entry point.
type components struct {
	storage storage.Provider
	fs      *storage.FS // non-nil only for the file driver
	catalog *catalog.Catalog
	service *productservice.Service
	closers []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

// openStorage selects the storage implementation for the configured driver.
func openStorage(cfg StorageConfig) (storage.Provider, *storage.FS, func() error, error) {
	switch cfg.Driver {
	case StorageDriverNone:
		return storage.NewNull(), nil, nil, nil
	case StorageDriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return db, nil, db.Close, nil
	default:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return fs, fs, nil, nil
	}
}

func newSource(cfg BackendConfig) upstream.Source {
	if !cfg.Enabled() {
		return upstream.Disabled{}
	}
	return upstream.NewHTTP(cfg.URL, cfg.Token, cfg.Timeout)
}

func build(cfg *Config, logger *slog.Logger, onChange productservice.EventCallback) (*components, error) {
	st, fs, closer, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	c := &components{storage: st, fs: fs}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	store := catalog.NewRecordStore(catalog.Canonical(), st, logger)
	c.catalog = catalog.New(store)
	c.service = productservice.NewService(c.catalog, newSource(cfg.Backend), logger, onChange)
	return c, nil
}

// logger builds the JSON logger, writing to def unless WithLogOutput was set.
func (a *application) logger(def io.Writer) *slog.Logger {
	w := a.logOut
	if w == nil {
		w = def
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}
