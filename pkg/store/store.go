package store

import "swapshelf/pkg/domain"

// Store defines persistence operations for listings.
//
// UpdateStatus and DeleteIfStatus are the atomicity hooks for concurrent
// moderation: both must fail with domain.ErrConflict when the row no longer
// carries expected, so two racing transitions on the same id cannot both
// succeed.
type Store interface {
	Insert(l domain.Listing) error
	FindByID(id string) (domain.Listing, bool, error)
	FindAll(match func(domain.Listing) bool) ([]domain.Listing, error)
	UpdateStatus(id string, expected, next domain.ListingStatus) error
	SetFeatured(id string, featured bool) error
	IncrementViews(id string) error
	Delete(id string) error
	DeleteIfStatus(id string, expected domain.ListingStatus) error
}
