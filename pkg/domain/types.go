package domain

import (
	"strings"
	"time"
)

// ListingType distinguishes the two kinds of shareable resources.
type ListingType string

const (
	TypeBook  ListingType = "BOOK"
	TypeNotes ListingType = "NOTES"
)

// Condition describes the physical state of a listed item.
type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	StatusDraft         ListingStatus = "DRAFT"
	StatusPendingReview ListingStatus = "PENDING_REVIEW"
	StatusPublished     ListingStatus = "PUBLISHED"
	StatusOnHold        ListingStatus = "ON_HOLD"
	StatusCompleted     ListingStatus = "COMPLETED"
	StatusWithdrawn     ListingStatus = "WITHDRAWN"
	StatusExpired       ListingStatus = "EXPIRED"
)

// legacyStatusPending is the two-state vocabulary some older submission flows
// still send. It is accepted on input and normalized to PENDING_REVIEW.
const legacyStatusPending = "PENDING"

// ParseListingType normalizes a raw type value.
func ParseListingType(raw string) (ListingType, bool) {
	switch ListingType(strings.ToUpper(strings.TrimSpace(raw))) {
	case TypeBook:
		return TypeBook, true
	case TypeNotes:
		return TypeNotes, true
	default:
		return "", false
	}
}

// ParseCondition normalizes a raw condition value.
func ParseCondition(raw string) (Condition, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "excellent":
		return ConditionExcellent, true
	case "good":
		return ConditionGood, true
	case "fair":
		return ConditionFair, true
	case "poor":
		return ConditionPoor, true
	default:
		return "", false
	}
}

// ParseListingStatus normalizes a raw status value. The legacy PENDING alias
// maps to PENDING_REVIEW.
func ParseListingStatus(raw string) (ListingStatus, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == legacyStatusPending {
		return StatusPendingReview, true
	}
	switch ListingStatus(normalized) {
	case StatusDraft, StatusPendingReview, StatusPublished, StatusOnHold,
		StatusCompleted, StatusWithdrawn, StatusExpired:
		return ListingStatus(normalized), true
	default:
		return "", false
	}
}

// Listing is the single entity of the exchange: one book or set of notes
// offered by its owner, carrying a moderation status.
type Listing struct {
	ID            string        `json:"id"`
	Type          ListingType   `json:"type"`
	Title         string        `json:"title"`
	AuthorSubject string        `json:"author_subject"`
	Description   string        `json:"description"`
	Condition     Condition     `json:"condition"`
	Location      string        `json:"location"`
	OwnerEmail    string        `json:"owner_email"`
	Tags          []string      `json:"tags"`
	Images        []string      `json:"images"`
	Status        ListingStatus `json:"status"`
	Featured      bool          `json:"featured"`
	Views         int64         `json:"views"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Draft carries a proposed submission before screening assigns a status.
type Draft struct {
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	AuthorSubject string   `json:"author_subject"`
	Description   string   `json:"description"`
	Condition     string   `json:"condition"`
	Location      string   `json:"location"`
	OwnerEmail    string   `json:"owner_email"`
	Tags          []string `json:"tags"`
	Images        []string `json:"images"`
}

// VerdictStatus is the screener's binary decision.
type VerdictStatus string

const (
	VerdictApproved VerdictStatus = "APPROVED"
	VerdictFlagged  VerdictStatus = "FLAGGED"
)

// Verdict is the screener output: a decision plus a human-readable reason
// when the submission was flagged.
type Verdict struct {
	Status VerdictStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Actor identifies the caller of a moderation operation. IsAdmin is supplied
// by the auth boundary; Email is set for public callers that identify
// themselves (owner withdrawals).
type Actor struct {
	IsAdmin bool
	Email   string
}

// ContactRequest is the event emitted when a visitor asks to contact a
// listing's owner. Delivery belongs to the notification collaborator.
type ContactRequest struct {
	OwnerEmail     string    `json:"owner_email"`
	ResourceTitle  string    `json:"resource_title"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookMetadata is advisory prefill data returned by an external ISBN lookup.
type BookMetadata struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}
