// Package sse streams catalog change notifications to storefront and admin
// clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/starford/timberline/internal/models"
)

// Event types.
const (
	TypeProductCreated  = "product.created"
	TypeProductUpdated  = "product.updated"
	TypeProductDeleted  = "product.deleted"
	TypeCatalogChanged  = "catalog.changed"
	TypeCatalogReloaded = "catalog.reloaded"
)

const (
	clientBuffer = 64
	keepAlive    = 25 * time.Second
	retryMillis  = 3000
)

// Event is one SSE message. Data is encoded as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ProductSummary is the payload of product.* events: enough for a listing
// row to refresh without refetching the record.
type ProductSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Category string   `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	InStock  bool     `json:"inStock"`
}

// ChangeSummary is the payload of catalog.changed. It covers every product
// event since the previous catalog.changed.
type ChangeSummary struct {
	Changes int      `json:"changes"`
	IDs     []string `json:"ids"`
}

// ReloadSummary is the payload of catalog.reloaded.
type ReloadSummary struct {
	Reloads int `json:"reloads"`
}

// hub is the broker state. Only the run goroutine touches it.
type hub struct {
	clients  map[chan []byte]struct{}
	seq      uint64
	throttle time.Duration

	lastFlush time.Time
	changes   int
	ids       []string
	reloads   int
	timer     *time.Timer
	fire      <-chan time.Time
}

// Broker fans events out to connected clients. Mutations of its state are
// queued as ops and applied in order by a single goroutine.
//
// catalog.changed and catalog.reloaded are coalesced: the first after a quiet
// period goes out at once, later ones within the throttle interval are
// folded into a single trailing event.
type Broker struct {
	ops     chan func(*hub)
	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. A non-positive throttle means two seconds.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		ops:     make(chan func(*hub), 256),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	h := &hub{clients: make(map[chan []byte]struct{}), throttle: throttle}
	go b.run(h)
	return b
}

func (b *Broker) run(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case op := <-b.ops:
			op(h)
		case <-h.fire:
			h.fire = nil
			h.flush(time.Now())
		case <-b.stop:
			// Apply what was queued before Close so subscribers get closed.
		drain:
			for {
				select {
				case op := <-b.ops:
					op(h)
				default:
					break drain
				}
			}
			if h.timer != nil {
				h.timer.Stop()
			}
			for ch := range h.clients {
				close(ch)
			}
			return
		}
	}
}

func (h *hub) broadcast(e Event) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	h.seq++
	msg := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, e.Type, payload))
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Slow client; the next catalog.changed tells it to refetch.
		}
	}
}

// schedule emits pending summaries now if the throttle window is open,
// otherwise arms a single trailing flush.
func (h *hub) schedule(now time.Time) {
	if h.fire != nil {
		return
	}
	wait := h.throttle - now.Sub(h.lastFlush)
	if wait <= 0 {
		h.flush(now)
		return
	}
	h.timer = time.NewTimer(wait)
	h.fire = h.timer.C
}

func (h *hub) flush(now time.Time) {
	if h.reloads == 0 && h.changes == 0 {
		return
	}
	h.lastFlush = now
	if h.reloads > 0 {
		h.broadcast(Event{Type: TypeCatalogReloaded, Data: ReloadSummary{Reloads: h.reloads}})
		h.reloads = 0
	}
	if h.changes > 0 {
		h.broadcast(Event{Type: TypeCatalogChanged, Data: ChangeSummary{Changes: h.changes, IDs: h.ids}})
		h.changes = 0
		h.ids = nil
	}
}

// do queues op for the run goroutine. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the broker and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close; it is closed immediately when the broker is closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	added := make(chan struct{})
	if b.do(func(h *hub) {
		h.clients[ch] = struct{}{}
		close(added)
	}) {
		select {
		case <-added:
			return ch
		case <-b.stopped:
		}
		select {
		case <-added:
			// Registered, then closed by shutdown.
			return ch
		default:
		}
	}
	close(ch)
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients as is.
func (b *Broker) Publish(e Event) {
	b.do(func(h *hub) { h.broadcast(e) })
}

// PublishProductEvent announces a created, updated or deleted product and
// folds it into the next catalog.changed. Other kinds are dropped.
func (b *Broker) PublishProductEvent(kind string, p models.Product) {
	var typ string
	switch kind {
	case "created":
		typ = TypeProductCreated
	case "updated":
		typ = TypeProductUpdated
	case "deleted":
		typ = TypeProductDeleted
	default:
		return
	}
	summary := ProductSummary{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		InStock:  p.InStock,
	}
	b.do(func(h *hub) {
		h.broadcast(Event{Type: typ, Data: summary})
		h.changes++
		if !slices.Contains(h.ids, summary.ID) {
			h.ids = append(h.ids, summary.ID)
		}
		h.schedule(time.Now())
	})
}

// PublishReload announces that the persisted custom records changed outside
// this process. Bursts collapse into one catalog.reloaded per throttle interval.
func (b *Broker) PublishReload() {
	b.do(func(h *hub) {
		h.reloads++
		h.schedule(time.Now())
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
