// internal/images/unsplash_test.go
package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const resultBody = `{"results":[{"urls":{"regular":"https://images.example/rooftop.jpg"}}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*SearchClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewSearchClient("test-key")
	if err != nil {
		t.Fatalf("NewSearchClient: %v", err)
	}
	client.SetBaseURL(srv.URL)
	client.retryDelay = time.Millisecond
	return client, srv
}

func TestSearchImageRetriesOn403ThenSucceeds(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(resultBody))
	})

	url, err := client.SearchImage(context.Background(), "location", "rooftop at night")
	if err != nil {
		t.Fatalf("SearchImage: %v", err)
	}
	if url != "https://images.example/rooftop.jpg" {
		t.Errorf("url = %q", url)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("upstream attempts = %d, want 3", got)
	}
}

func TestSearchImageGivesUpAfterThree403s(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := client.SearchImage(context.Background(), "prop", "vintage typewriter"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("upstream attempts = %d, want 3", got)
	}
}

func TestSearchImageDoesNotRetryOtherStatuses(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.SearchImage(context.Background(), "scene", "desert highway"); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("upstream attempts = %d, want 1 (no retry on 500)", got)
	}
}

func TestSearchImageCachesByTypeAndQuery(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(resultBody))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.SearchImage(ctx, "location", "rooftop"); err != nil {
			t.Fatalf("SearchImage: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (cache hit)", got)
	}

	// Same query under a different type is a distinct cache entry.
	if _, err := client.SearchImage(ctx, "scene", "rooftop"); err != nil {
		t.Fatalf("SearchImage: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestSearchImageMissingKeyFailsDescriptively(t *testing.T) {
	client, err := NewSearchClient("")
	if err != nil {
		t.Fatalf("NewSearchClient: %v", err)
	}
	_, err = client.SearchImage(context.Background(), "scene", "anything")
	if err == nil {
		t.Fatal("expected configuration error")
	}
}
