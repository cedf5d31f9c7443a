package productservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/starford/timberline/internal/apperr"
	"github.com/starford/timberline/internal/catalog"
	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/testutil"
)

type fakeSource struct {
	products []models.Product
	err      error
}

func (f fakeSource) Products(context.Context) ([]models.Product, error) {
	return f.products, f.err
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind string, p models.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+p.ID)
}

func testService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	cat := testutil.TestCatalog(t, testutil.TestFS(t))
	return NewService(cat, nil, testutil.Logger(), rec.record), rec
}

func ashBoard() models.Product {
	return models.Product{
		Name:     "Ash Board",
		Category: models.CategoryLumber,
		Species:  "Ash",
		Price:    models.PriceOf(30),
	}
}

func TestQuery_FallbackWithoutBackend(t *testing.T) {
	svc, _ := testService(t)
	res, err := svc.Query(context.Background(), catalog.Filter{}, catalog.SortByName)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Source != SourceFallback || res.Total != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestQuery_LiveSourceWins(t *testing.T) {
	cat := testutil.TestCatalog(t, testutil.TestFS(t))
	src := fakeSource{products: []models.Product{{ID: "r1", Name: "Remote", Price: models.PriceOf(5)}}}
	svc := NewService(cat, src, testutil.Logger(), nil)

	res, _ := svc.Query(context.Background(), catalog.Filter{}, catalog.SortByName)
	if res.Source != SourceLive || res.Total != 1 || res.Products[0].ID != "r1" {
		t.Errorf("result = %+v", res)
	}
}

func TestQuery_FailingSourceFallsBack(t *testing.T) {
	cat := testutil.TestCatalog(t, testutil.TestFS(t))
	svc := NewService(cat, fakeSource{err: errors.New("connection refused")}, testutil.Logger(), nil)

	res, _ := svc.Query(context.Background(), catalog.Filter{}, catalog.SortByName)
	if res.Source != SourceFallback || res.Total != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestCreate_AssignsIDAndNotifies(t *testing.T) {
	svc, rec := testService(t)
	p, err := svc.Create(context.Background(), ashBoard())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated id")
	}
	if p.Species != "ash" {
		t.Errorf("species = %q, want normalized", p.Species)
	}
	got, err := svc.Get(context.Background(), p.ID)
	if err != nil || got.Name != "Ash Board" {
		t.Errorf("Get = %+v, %v", got, err)
	}
	if len(rec.events) != 1 || rec.events[0] != "created:"+p.ID {
		t.Errorf("events = %v", rec.events)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	svc, _ := testService(t)
	p := ashBoard()
	p.ID = "1"
	if _, err := svc.Create(context.Background(), p); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreate_Invalid(t *testing.T) {
	svc, _ := testService(t)
	cases := map[string]func(*models.Product){
		"no name":        func(p *models.Product) { p.Name = "" },
		"bad category":   func(p *models.Product) { p.Category = "furniture" },
		"no price":       func(p *models.Product) { p.Price = nil },
		"negative price": func(p *models.Product) { p.Price = models.PriceOf(-1) },
		"bad grain":      func(p *models.Product) { p.GrainPattern = []string{"plaid"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := ashBoard()
			mutate(&p)
			if _, err := svc.Create(context.Background(), p); !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestCreate_ZeroPriceAllowed(t *testing.T) {
	svc, _ := testService(t)
	p := ashBoard()
	p.Price = models.PriceOf(0)
	if _, err := svc.Create(context.Background(), p); err != nil {
		t.Errorf("free product rejected: %v", err)
	}
}

func TestUpdate_IfMatch(t *testing.T) {
	svc, rec := testService(t)
	created, _ := svc.Create(context.Background(), ashBoard())
	etag := ETag(*created)

	edit := ashBoard()
	edit.Name = "Ash Board, planed"
	updated, err := svc.Update(context.Background(), created.ID, edit, etag)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != created.ID || updated.Name != "Ash Board, planed" {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := svc.Update(context.Background(), created.ID, edit, etag); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale etag err = %v, want ErrConflict", err)
	}
	if len(rec.events) != 2 || rec.events[1] != "updated:"+created.ID {
		t.Errorf("events = %v", rec.events)
	}
}

func TestUpdate_LiveRecordAcceptsETagFromGet(t *testing.T) {
	cat := testutil.TestCatalog(t, testutil.TestFS(t))
	remote := models.Product{
		ID:       "r1",
		Name:     "Remote Cherry",
		Category: models.CategoryLumber,
		Species:  "cherry",
		Price:    models.PriceOf(55),
	}
	svc := NewService(cat, fakeSource{products: []models.Product{remote}}, testutil.Logger(), nil)
	ctx := context.Background()

	got, err := svc.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	edit := remote
	edit.Price = models.PriceOf(60)
	if _, err := svc.Update(ctx, "r1", edit, ETag(*got)); err != nil {
		t.Fatalf("Update with etag from Get: %v", err)
	}
	if _, err := svc.Update(ctx, "r1", edit, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale etag err = %v, want ErrConflict", err)
	}
}

func TestCreate_ConcurrentSameIDOneSucceeds(t *testing.T) {
	svc, _ := testService(t)
	p := ashBoard()
	p.ID = "c-ash"

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), p)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, dup := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrAlreadyExists):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 3 {
		t.Errorf("ok = %d, duplicates = %d, want 1 and 3", ok, dup)
	}
}

func TestUpdate_Missing(t *testing.T) {
	svc, _ := testService(t)
	if _, err := svc.Update(context.Background(), "nope", ashBoard(), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_CanonicalStillServed(t *testing.T) {
	svc, _ := testService(t)
	edit := ashBoard()
	if _, err := svc.Update(context.Background(), "1", edit, ""); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := svc.Get(context.Background(), "1")
	if got.Name != "Oak Board" {
		t.Errorf("name = %q, canonical should win", got.Name)
	}
}

func TestDelete(t *testing.T) {
	svc, rec := testService(t)
	created, _ := svc.Create(context.Background(), ashBoard())
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	if rec.events[len(rec.events)-1] != "deleted:"+created.ID {
		t.Errorf("events = %v", rec.events)
	}
}

func TestDelete_CanonicalIsNotFound(t *testing.T) {
	svc, _ := testService(t)
	if err := svc.Delete(context.Background(), "1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), "1"); err != nil {
		t.Errorf("canonical record gone: %v", err)
	}
}
