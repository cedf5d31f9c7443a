package storage

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReportsChangedKeyOnce(t *testing.T) {
	s := tempFS(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var keys []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, s, logger, func(key string) {
			mu.Lock()
			keys = append(keys, key)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	if err := s.Set("custom-products", []byte("[]")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(keys) > 0
	}, "expected a change callback")

	mu.Lock()
	for _, k := range keys {
		if k != "custom-products" {
			t.Errorf("unexpected key %q", k)
		}
	}
	mu.Unlock()

	cancel()
	<-done
}
