// Package query builds filtered, sorted, paginated views of the listing
// store for two audiences: the public site, which only ever sees published
// listings, and the admin panel, which sees everything.
package query

import (
	"strings"

	"swapshelf/pkg/domain"
	"swapshelf/pkg/store"
)

// Audience is the visibility scope of a query.
type Audience string

const (
	AudiencePublic Audience = "PUBLIC"
	AudienceAdmin  Audience = "ADMIN"
)

// DefaultPageSize matches the reference UI's 9-card browse grid.
const DefaultPageSize = 9

// Filters are caller-supplied, optional, and combined with logical AND.
// Status is honored for admin queries only; the public audience filter is
// applied before it and cannot be overridden.
type Filters struct {
	Search    string
	Type      domain.ListingType
	Condition domain.Condition
	Location  string
	Status    domain.ListingStatus
}

// Result is one page of a query plus the total match count.
type Result struct {
	Items      []domain.Listing `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// Stats summarizes the public catalog.
type Stats struct {
	TotalResources int `json:"totalResources"`
	BooksAvailable int `json:"booksAvailable"`
	NotesAvailable int `json:"notesAvailable"`
	CitiesCount    int `json:"citiesCount"`
	PendingReview  int `json:"pendingReview,omitempty"`
	TotalAllStatus int `json:"totalAllStatus,omitempty"`
}

// Engine serves read views over the store.
type Engine struct {
	store    store.Store
	pageSize int
}

// NewEngine builds a query engine. pageSize <= 0 falls back to the default.
func NewEngine(s store.Store, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{store: s, pageSize: pageSize}
}

// Query returns one page of listings visible to the audience. Pages are
// 1-indexed; a page past the end of the result set returns an empty item
// list with the correct total, never an error.
func (e *Engine) Query(audience Audience, filters Filters, page int) (Result, error) {
	matched, err := e.store.FindAll(func(l domain.Listing) bool {
		return visible(audience, l) && matches(audience, filters, l)
	})
	if err != nil {
		return Result{}, err
	}
	return paginate(matched, page, e.pageSize), nil
}

// Featured returns published listings flagged by the admin for the homepage.
func (e *Engine) Featured() ([]domain.Listing, error) {
	return e.store.FindAll(func(l domain.Listing) bool {
		return l.Status == domain.StatusPublished && l.Featured
	})
}

// PublicStats counts published listings by type and distinct location.
func (e *Engine) PublicStats() (Stats, error) {
	published, err := e.store.FindAll(func(l domain.Listing) bool {
		return l.Status == domain.StatusPublished
	})
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{TotalResources: len(published)}
	cities := make(map[string]struct{})
	for _, l := range published {
		switch l.Type {
		case domain.TypeBook:
			stats.BooksAvailable++
		case domain.TypeNotes:
			stats.NotesAvailable++
		}
		if loc := strings.ToLower(strings.TrimSpace(l.Location)); loc != "" {
			cities[loc] = struct{}{}
		}
	}
	stats.CitiesCount = len(cities)
	return stats, nil
}

// AdminStats extends the public counts with moderation-queue figures.
func (e *Engine) AdminStats() (Stats, error) {
	stats, err := e.PublicStats()
	if err != nil {
		return Stats{}, err
	}
	all, err := e.store.FindAll(nil)
	if err != nil {
		return Stats{}, err
	}
	stats.TotalAllStatus = len(all)
	for _, l := range all {
		if l.Status == domain.StatusPendingReview {
			stats.PendingReview++
		}
	}
	return stats, nil
}

func visible(audience Audience, l domain.Listing) bool {
	if audience == AudienceAdmin {
		return true
	}
	return l.Status == domain.StatusPublished
}

func matches(audience Audience, f Filters, l domain.Listing) bool {
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.Condition != "" && l.Condition != f.Condition {
		return false
	}
	if f.Location != "" && !strings.EqualFold(strings.TrimSpace(f.Location), l.Location) {
		return false
	}
	if f.Status != "" && audience == AudienceAdmin && l.Status != f.Status {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !searchHit(l, term) {
			return false
		}
	}
	return true
}

func searchHit(l domain.Listing, lowerTerm string) bool {
	if strings.Contains(strings.ToLower(l.Title), lowerTerm) ||
		strings.Contains(strings.ToLower(l.AuthorSubject), lowerTerm) ||
		strings.Contains(strings.ToLower(l.Description), lowerTerm) {
		return true
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), lowerTerm) {
			return true
		}
	}
	return false
}

func paginate(items []domain.Listing, page, pageSize int) Result {
	if page < 1 {
		page = 1
	}
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return Result{
		Items:      items[start:end],
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
