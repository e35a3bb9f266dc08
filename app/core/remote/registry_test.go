package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveFetchesCardOnceAndCaches(t *testing.T) {
	var cardFetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != cardPath {
			http.NotFound(w, r)
			return
		}
		cardFetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"IdeaWorker","version":"0.0.1"}`))
	}))
	defer srv.Close()

	reg := NewRegistry(map[string]string{"idea": srv.URL}, time.Second)

	ep, err := reg.Resolve(context.Background(), "idea")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ep.CardName != "IdeaWorker" {
		t.Fatalf("unexpected card name: %s", ep.CardName)
	}

	if _, err := reg.Resolve(context.Background(), "idea"); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if got := cardFetches.Load(); got != 1 {
		t.Fatalf("expected 1 card fetch, got %d", got)
	}
}

func TestResolveConcurrentFirstUseHandshakesOnce(t *testing.T) {
	var cardFetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cardFetches.Add(1)
		time.Sleep(10 * time.Millisecond)
		_, _ = w.Write([]byte(`{"name":"CriticWorker"}`))
	}))
	defer srv.Close()

	reg := NewRegistry(map[string]string{"critic": srv.URL}, time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Resolve(context.Background(), "critic")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent resolve failed: %v", err)
		}
	}
	if got := cardFetches.Load(); got != 1 {
		t.Fatalf("expected a single handshake, got %d", got)
	}
}

func TestResolveDoesNotCacheFailedHandshake(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"name":"PrioritizerWorker"}`))
	}))
	defer srv.Close()

	reg := NewRegistry(map[string]string{"prioritizer": srv.URL}, time.Second)

	_, err := reg.Resolve(context.Background(), "prioritizer")
	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
	if unreachable.Role != "prioritizer" {
		t.Fatalf("unexpected role in error: %s", unreachable.Role)
	}

	ep, err := reg.Resolve(context.Background(), "prioritizer")
	if err != nil {
		t.Fatalf("resolve after recovery failed: %v", err)
	}
	if ep.CardName != "PrioritizerWorker" {
		t.Fatalf("unexpected card name: %s", ep.CardName)
	}
}

func TestResolveUnknownRole(t *testing.T) {
	reg := NewRegistry(map[string]string{}, time.Second)
	if _, err := reg.Resolve(context.Background(), "mystery"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
