package store

import (
	"sort"
	"sync"
	"time"

	"swapshelf/pkg/domain"
)

// MemoryStore keeps listings in-process. It backs tests and single-instance
// demo deployments; the CAS semantics match GormStore exactly.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[string]domain.Listing)}
}

// Insert stores a new listing.
func (m *MemoryStore) Insert(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
	return nil
}

// FindByID retrieves a listing by ID.
func (m *MemoryStore) FindByID(id string) (domain.Listing, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	return l, ok, nil
}

// FindAll returns matching listings ordered by created_at descending,
// tie-broken by id so repeated calls paginate deterministically.
func (m *MemoryStore) FindAll(match func(domain.Listing) bool) ([]domain.Listing, error) {
	m.mu.RLock()
	res := make([]domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if match == nil || match(l) {
			res = append(res, l)
		}
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

// UpdateStatus performs a compare-and-set status transition under the lock.
func (m *MemoryStore) UpdateStatus(id string, expected, next domain.ListingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.Status != expected {
		return domain.ErrConflict
	}
	l.Status = next
	l.UpdatedAt = time.Now().UTC()
	m.listings[id] = l
	return nil
}

// SetFeatured flips the featured flag.
func (m *MemoryStore) SetFeatured(id string, featured bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Featured = featured
	l.UpdatedAt = time.Now().UTC()
	m.listings[id] = l
	return nil
}

// IncrementViews bumps the view counter.
func (m *MemoryStore) IncrementViews(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Views++
	m.listings[id] = l
	return nil
}

// Delete removes a listing.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.listings, id)
	return nil
}

// DeleteIfStatus removes a listing only while it still carries expected.
func (m *MemoryStore) DeleteIfStatus(id string, expected domain.ListingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.Status != expected {
		return domain.ErrConflict
	}
	delete(m.listings, id)
	return nil
}
