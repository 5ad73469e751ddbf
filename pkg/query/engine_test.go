package query

import (
	"fmt"
	"testing"
	"time"

	"swapshelf/pkg/domain"
	"swapshelf/pkg/store"
)

func seedListing(t *testing.T, st *store.MemoryStore, id string, mutate func(*domain.Listing)) domain.Listing {
	t.Helper()
	l := domain.Listing{
		ID:            id,
		Type:          domain.TypeBook,
		Title:         "Listing " + id,
		AuthorSubject: "Author " + id,
		Description:   "Description for " + id,
		Condition:     domain.ConditionGood,
		Location:      "Almaty",
		OwnerEmail:    "owner@example.com",
		Status:        domain.StatusPublished,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&l)
	}
	if err := st.Insert(l); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return l
}

func TestQueryPublicSeesOnlyPublished(t *testing.T) {
	st := store.NewMemoryStore()
	seedListing(t, st, "a", nil)
	seedListing(t, st, "b", func(l *domain.Listing) { l.Status = domain.StatusPendingReview })
	seedListing(t, st, "c", func(l *domain.Listing) { l.Status = domain.StatusWithdrawn })

	engine := NewEngine(st, 0)
	res, err := engine.Query(AudiencePublic, Filters{}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.TotalCount != 1 || len(res.Items) != 1 || res.Items[0].ID != "a" {
		t.Fatalf("public query = %+v, want only listing a", res)
	}

	// The public audience cannot filter itself into hidden statuses either.
	res, err = engine.Query(AudiencePublic, Filters{Status: domain.StatusPendingReview}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, l := range res.Items {
		if l.Status != domain.StatusPublished {
			t.Fatalf("public result leaked status %s", l.Status)
		}
	}
}

func TestQueryAdminSeesAllAndFiltersByStatus(t *testing.T) {
	st := store.NewMemoryStore()
	seedListing(t, st, "a", nil)
	seedListing(t, st, "b", func(l *domain.Listing) { l.Status = domain.StatusPendingReview })

	engine := NewEngine(st, 0)
	res, err := engine.Query(AudienceAdmin, Filters{}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.TotalCount != 2 {
		t.Fatalf("admin should see both listings, got %d", res.TotalCount)
	}

	res, err = engine.Query(AudienceAdmin, Filters{Status: domain.StatusPendingReview}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.TotalCount != 1 || res.Items[0].ID != "b" {
		t.Fatalf("admin status filter = %+v, want only listing b", res)
	}
}

func TestQueryFiltersCombineWithAND(t *testing.T) {
	st := store.NewMemoryStore()
	seedListing(t, st, "a", func(l *domain.Listing) {
		l.Type = domain.TypeNotes
		l.Location = "Astana"
		l.Tags = []string{"physics"}
	})
	seedListing(t, st, "b", func(l *domain.Listing) {
		l.Type = domain.TypeNotes
		l.Location = "Almaty"
		l.Tags = []string{"physics"}
	})
	seedListing(t, st, "c", func(l *domain.Listing) {
		l.Type = domain.TypeBook
		l.Location = "Astana"
	})

	engine := NewEngine(st, 0)
	res, err := engine.Query(AudiencePublic, Filters{
		Type:     domain.TypeNotes,
		Location: "astana",
		Search:   "physics",
	}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.TotalCount != 1 || res.Items[0].ID != "a" {
		t.Fatalf("combined filters = %+v, want only listing a", res)
	}
}

func TestQuerySearchCoversTagsAndFields(t *testing.T) {
	st := store.NewMemoryStore()
	seedListing(t, st, "a", func(l *domain.Listing) { l.Title = "Organic Chemistry" })
	seedListing(t, st, "b", func(l *domain.Listing) { l.AuthorSubject = "Chemistry Dept" })
	seedListing(t, st, "c", func(l *domain.Listing) { l.Tags = []string{"chemistry"} })
	seedListing(t, st, "d", nil)

	engine := NewEngine(st, 0)
	res, err := engine.Query(AudiencePublic, Filters{Search: "CHEMISTRY"}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.TotalCount != 3 {
		t.Fatalf("search should match title, author and tags, got %d", res.TotalCount)
	}
}

func TestQueryPagination(t *testing.T) {
	st := store.NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("l%02d", i)
		created := base.Add(time.Duration(i) * time.Hour)
		seedListing(t, st, id, func(l *domain.Listing) { l.CreatedAt = created })
	}

	engine := NewEngine(st, 0)
	page1, err := engine.Query(AudiencePublic, Filters{}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page1.Items) != DefaultPageSize || page1.TotalCount != 12 || page1.TotalPages != 2 {
		t.Fatalf("page 1 = len %d total %d pages %d, want 9/12/2", len(page1.Items), page1.TotalCount, page1.TotalPages)
	}
	// Newest first.
	if page1.Items[0].ID != "l11" {
		t.Fatalf("page 1 should start with the newest listing, got %s", page1.Items[0].ID)
	}

	page2, err := engine.Query(AudiencePublic, Filters{}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page2.Items) != 3 {
		t.Fatalf("page 2 len = %d, want 3", len(page2.Items))
	}

	past, err := engine.Query(AudiencePublic, Filters{}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(past.Items) != 0 || past.TotalCount != 12 {
		t.Fatalf("past-end page = len %d total %d, want 0/12", len(past.Items), past.TotalCount)
	}
}

func TestQueryOrderTieBreaksOnID(t *testing.T) {
	st := store.NewMemoryStore()
	seedListing(t, st, "aaa", nil)
	seedListing(t, st, "zzz", nil)
	seedListing(t, st, "mmm", nil)

	engine := NewEngine(st, 0)
	res, err := engine.Query(AudiencePublic, Filters{}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	wantOrder := []string{"zzz", "mmm", "aaa"}
	for i, want := range wantOrder {
		if res.Items[i].ID != want {
			t.Fatalf("order[%d] = %s, want %s", i, res.Items[i].ID, want)
		}
	}
}

func TestFeatured(t *testing.T) {
	st := store.NewMemoryStore()
	seedListing(t, st, "a", func(l *domain.Listing) { l.Featured = true })
	seedListing(t, st, "b", nil)
	seedListing(t, st, "c", func(l *domain.Listing) {
		l.Featured = true
		l.Status = domain.StatusPendingReview
	})

	engine := NewEngine(st, 0)
	items, err := engine.Featured()
	if err != nil {
		t.Fatalf("Featured: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("featured = %+v, want only published listing a", items)
	}
}

func TestStats(t *testing.T) {
	st := store.NewMemoryStore()
	seedListing(t, st, "a", nil)
	seedListing(t, st, "b", func(l *domain.Listing) {
		l.Type = domain.TypeNotes
		l.Location = "Astana"
	})
	seedListing(t, st, "c", func(l *domain.Listing) { l.Location = "ALMATY " })
	seedListing(t, st, "d", func(l *domain.Listing) { l.Status = domain.StatusPendingReview })

	engine := NewEngine(st, 0)
	public, err := engine.PublicStats()
	if err != nil {
		t.Fatalf("PublicStats: %v", err)
	}
	if public.TotalResources != 3 || public.BooksAvailable != 2 || public.NotesAvailable != 1 {
		t.Fatalf("public stats = %+v", public)
	}
	// Case and padding do not split a city in two.
	if public.CitiesCount != 2 {
		t.Fatalf("cities = %d, want 2", public.CitiesCount)
	}
	if public.PendingReview != 0 || public.TotalAllStatus != 0 {
		t.Fatalf("public stats should not expose moderation figures: %+v", public)
	}

	admin, err := engine.AdminStats()
	if err != nil {
		t.Fatalf("AdminStats: %v", err)
	}
	if admin.PendingReview != 1 || admin.TotalAllStatus != 4 {
		t.Fatalf("admin stats = %+v", admin)
	}
}
