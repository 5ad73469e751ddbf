package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"swapshelf/internal/app"
	"swapshelf/internal/session"
	"swapshelf/pkg/auth"
	"swapshelf/pkg/domain"
	"swapshelf/pkg/store"
)

// fakeImageStore keeps uploaded objects in a map.
type fakeImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: make(map[string][]byte)}
}

func (f *fakeImageStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeImageStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://img.test/" + key, nil
}

func (f *fakeImageStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func newUploadTestServer(t *testing.T) (*httptest.Server, *fakeImageStore, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	images := newFakeImageStore()
	appCore, err := app.New(app.Config{Store: st, Images: images})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	sessions, err := session.NewManager("test-secret", time.Hour, session.NewMemoryRevoker())
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}
	hash, err := auth.HashPassword(testAdminPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	srv := New(Config{
		App:               appCore,
		Sessions:          sessions,
		AdminUsername:     testAdminUser,
		AdminPasswordHash: hash,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, images, st
}

func multipartSubmit(t *testing.T, url string, imageCount int) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"type":           "BOOK",
		"title":          "Organic Chemistry",
		"author_subject": "Paula Bruice",
		"description":    "Seventh edition with worked examples.",
		"condition":      "Fair",
		"location":       "Shymkent",
		"owner_email":    "seller@example.com",
		"tags":           "chemistry, organic",
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for i := 0; i < imageCount; i++ {
		part, err := w.CreateFormFile("images", fmt.Sprintf("photo-%d.jpg", i))
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("jpeg bytes")); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	resp, err := http.Post(url+"/api/listings", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST multipart: %v", err)
	}
	return resp
}

func TestMultipartSubmitStoresImages(t *testing.T) {
	ts, images, st := newUploadTestServer(t)

	resp := multipartSubmit(t, ts.URL, 2)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("multipart submit status = %d, want 201", resp.StatusCode)
	}
	body := decodeBody[struct {
		Listing domain.Listing `json:"listing"`
	}](t, resp)

	// The response carries presigned URLs, the store carries keys.
	if len(body.Listing.Images) != 2 {
		t.Fatalf("images in response = %d, want 2", len(body.Listing.Images))
	}
	for _, url := range body.Listing.Images {
		if !strings.HasPrefix(url, "https://img.test/listings/") {
			t.Fatalf("image URL %q should be presigned", url)
		}
	}
	stored, ok, _ := st.FindByID(body.Listing.ID)
	if !ok {
		t.Fatal("listing not persisted")
	}
	for _, key := range stored.Images {
		images.mu.Lock()
		_, uploaded := images.objects[key]
		images.mu.Unlock()
		if !uploaded {
			t.Fatalf("object %q missing from image store", key)
		}
	}
	if stored.Tags[0] != "chemistry" || stored.Tags[1] != "organic" {
		t.Fatalf("tags = %v, want parsed from the comma list", stored.Tags)
	}
}

func TestMultipartSubmitTooManyImages(t *testing.T) {
	ts, images, _ := newUploadTestServer(t)

	resp := multipartSubmit(t, ts.URL, 6)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("too many images status = %d, want 422", resp.StatusCode)
	}
	images.mu.Lock()
	leftover := len(images.objects)
	images.mu.Unlock()
	if leftover != 0 {
		t.Fatalf("rejected submission left %d objects behind", leftover)
	}
}
