package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func volumesHandler(calls *int32, payload any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/volumes" {
			http.NotFound(w, r)
			return
		}
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func TestLookupParsesVolume(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalItems": 1,
			"items": []map[string]any{{
				"volumeInfo": map[string]any{
					"title":       "Clean Architecture",
					"authors":     []string{"Robert C. Martin"},
					"description": "A craftsman's guide.",
					"categories":  []string{"Computers"},
				},
			}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	meta, found, err := client.Lookup(context.Background(), "9780134494166")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if gotQuery != "isbn:9780134494166" {
		t.Fatalf("query = %q, want isbn:9780134494166", gotQuery)
	}
	if meta.Title != "Clean Architecture" || len(meta.Authors) != 1 || meta.Authors[0] != "Robert C. Martin" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestLookupNoMatch(t *testing.T) {
	srv := httptest.NewServer(volumesHandler(nil, map[string]any{"totalItems": 0}))
	defer srv.Close()

	_, found, err := NewClient(srv.URL).Lookup(context.Background(), "0000000000")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Fatal("expected no match")
	}
}

func TestLookupUpstreamErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, _, err := NewClient(srv.URL).Lookup(context.Background(), "1234567890"); err == nil {
		t.Fatal("expected an error for a 500 upstream")
	}
}

func TestLookupRequiresISBN(t *testing.T) {
	if _, _, err := NewClient("http://unused").Lookup(context.Background(), "  "); err == nil {
		t.Fatal("blank isbn should be rejected")
	}
}

func TestLookupCollapsesConcurrentCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		// Hold the flight open long enough for the other callers to join it.
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalItems": 1,
			"items": []map[string]any{{
				"volumeInfo": map[string]any{"title": "Shared"},
			}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	start := make(chan struct{})
	var wg sync.WaitGroup
	const concurrency = 5
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			<-start
			meta, found, err := client.Lookup(context.Background(), "9999999999")
			if err != nil || !found || meta.Title != "Shared" {
				t.Errorf("Lookup = (%+v, %v, %v)", meta, found, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got >= concurrency {
		t.Fatalf("upstream called %d times, expected the calls to collapse", got)
	}
}
