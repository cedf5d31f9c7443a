// Package productservice coordinates the live upstream source, the catalog
// engine and change notifications for the API and MCP layers.
package productservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/timberline/internal/apperr"
	"github.com/starford/timberline/internal/catalog"
	"github.com/starford/timberline/internal/checksum"
	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/upstream"
)

// Data sources reported in a Result.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a successful mutation with the record as
// written, or as it was before removal.
type EventCallback func(kind string, p models.Product)

// Result is the outcome of a catalog query.
type Result struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
	Source   string           `json:"source"`
}

// Service coordinates upstream, catalog and event operations.
type Service struct {
	catalog  *catalog.Catalog
	source   upstream.Source
	logger   *slog.Logger
	onChange EventCallback
}

// NewService creates a new product service. A nil source disables the live
// path; a nil onChange drops notifications.
func NewService(cat *catalog.Catalog, src upstream.Source, logger *slog.Logger, onChange EventCallback) *Service {
	if src == nil {
		src = upstream.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: cat, source: src, logger: logger, onChange: onChange}
}

// Query filters and sorts the live collection, or the record store's
// collection when the backend cannot be reached.
func (s *Service) Query(ctx context.Context, f catalog.Filter, key catalog.SortKey) (Result, error) {
	live, src := s.live(ctx)
	products := s.catalog.Query(live, f, key)
	return Result{Products: products, Total: len(products), Source: src}, nil
}

// Get returns the product with the given id from the effective collection.
func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	return find(s.effective(ctx), id)
}

// Create validates p, assigns an id when it has none, and stores it as a
// custom record.
func (s *Service) Create(_ context.Context, p models.Product) (*models.Product, error) {
	p = p.Normalize()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	store := s.catalog.Store()
	store.Load()
	if _, err := store.Insert(p); err != nil {
		if errors.Is(err, catalog.ErrDuplicateID) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, err
	}
	s.notify(EventCreated, p)
	return &p, nil
}

// Update replaces the record with the given id. The id must be in the
// collection Get serves, and a non-empty ifMatch must equal the ETag Get
// returned for it. The edit is kept in the local custom records. Updating a
// canonical id is accepted but the canonical record keeps being served.
func (s *Service) Update(ctx context.Context, id string, p models.Product, ifMatch string) (*models.Product, error) {
	current, err := find(s.effective(ctx), id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != ETag(*current) {
		return nil, apperr.ErrConflict
	}
	p = p.Normalize()
	p.ID = id
	if err := Validate(p); err != nil {
		return nil, err
	}
	if s.catalog.Store().IsCanonical(id) {
		s.logger.Warn("update targets a canonical product; edit will not be served",
			slog.String("id", id))
	}
	s.catalog.Store().Upsert(p)
	s.notify(EventUpdated, p)
	return &p, nil
}

// Delete removes a custom record. Canonical and unknown ids report
// apperr.ErrNotFound.
func (s *Service) Delete(_ context.Context, id string) error {
	store := s.catalog.Store()
	removed, err := find(store.Custom(), id)
	if err != nil || store.IsCanonical(id) {
		return apperr.ErrNotFound
	}
	store.Remove(id)
	s.notify(EventDeleted, *removed)
	return nil
}

// ETag returns the SHA-256 of the product's JSON encoding.
func ETag(p models.Product) string {
	sum, err := checksum.JSON(p)
	if err != nil {
		return ""
	}
	return sum
}

// Validate checks a record before it is written.
func Validate(p models.Product) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required, validation.Length(1, 128)),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Category, validation.Required, validation.In(toAny(models.Categories)...)),
		validation.Field(&p.Species, validation.Required),
		validation.Field(&p.Price, validation.NotNil, validation.Min(0.0)),
		validation.Field(&p.GrainPattern, validation.Each(validation.In(toAny(models.GrainPatterns)...))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return nil
}

func (s *Service) live(ctx context.Context) ([]models.Product, string) {
	products, err := s.source.Products(ctx)
	if err != nil {
		if !errors.Is(err, upstream.ErrDisabled) {
			s.logger.Warn("upstream unavailable, serving fallback catalog",
				slog.String("error", err.Error()))
		}
		return nil, SourceFallback
	}
	return products, SourceLive
}

// effective is the collection reads are served from: live when the backend
// answers, otherwise the record store's merged view.
func (s *Service) effective(ctx context.Context) []models.Product {
	if live, _ := s.live(ctx); live != nil {
		return live
	}
	return s.catalog.Store().Load()
}

func (s *Service) notify(kind string, p models.Product) {
	if s.onChange != nil {
		s.onChange(kind, p)
	}
}

func find(products []models.Product, id string) (*models.Product, error) {
	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func toAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
