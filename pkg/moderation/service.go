package moderation

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"swapshelf/pkg/domain"
	"swapshelf/pkg/store"
)

const (
	maxTitleLen         = 200
	maxAuthorSubjectLen = 100
	maxDescriptionLen   = 1000
	maxLocationLen      = 100
	maxTagLen           = 50
	maxImages           = 5
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service is the moderation facade: the single entry point submissions and
// admin actions pass through. It composes the screener, the lifecycle table
// and the listing store, so every mutation is validated before it reaches
// storage.
type Service struct {
	store    store.Store
	screener Classifier
}

// NewService wires the facade. A nil screener falls back to the default
// keyword denylist.
func NewService(s store.Store, screener Classifier) *Service {
	if screener == nil {
		screener = NewKeywordScreener()
	}
	return &Service{store: s, screener: screener}
}

// Submit validates a draft, screens the title and persists the new listing
// with its initial status. The verdict is returned alongside so callers can
// tell the submitter whether the listing went live or entered review.
func (s *Service) Submit(draft domain.Draft) (domain.Listing, domain.Verdict, error) {
	listing, err := buildListing(draft)
	if err != nil {
		return domain.Listing{}, domain.Verdict{}, err
	}

	verdict := s.screener.Screen(listing.Title)
	listing.Status = InitialStatus(verdict)

	if err := s.store.Insert(listing); err != nil {
		return domain.Listing{}, domain.Verdict{}, err
	}
	slog.Info("listing submitted",
		"listing_id", listing.ID,
		"status", listing.Status,
		"verdict", verdict.Status,
	)
	return listing, verdict, nil
}

// Act applies a lifecycle event to a listing. All events require the admin,
// except withdraw which the listing's owner may trigger too. The returned
// listing is zero-valued when the event removed the record.
func (s *Service) Act(id string, event Event, actor domain.Actor) (domain.Listing, error) {
	current, ok, err := s.store.FindByID(id)
	if err != nil {
		return domain.Listing{}, err
	}
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	if !allowed(current, event, actor) {
		return domain.Listing{}, domain.ErrForbidden
	}

	outcome, err := Resolve(current.Status, event)
	if err != nil {
		return domain.Listing{}, err
	}

	if outcome.Deleted {
		// reject is only legal from the status we just read, so the removal
		// is conditional; a plain delete would let it race a concurrent
		// approve and erase a published listing.
		var deleteErr error
		if event == EventDelete {
			deleteErr = s.store.Delete(id)
		} else {
			deleteErr = s.store.DeleteIfStatus(id, current.Status)
		}
		if deleteErr != nil {
			// The record existed a moment ago; a concurrent transition beat us.
			if errors.Is(deleteErr, domain.ErrNotFound) {
				return domain.Listing{}, domain.ErrConflict
			}
			return domain.Listing{}, deleteErr
		}
		slog.Info("listing removed", "listing_id", id, "event", event)
		return domain.Listing{}, nil
	}

	if err := s.store.UpdateStatus(id, current.Status, outcome.Next); err != nil {
		return domain.Listing{}, err
	}
	slog.Info("listing transitioned",
		"listing_id", id,
		"event", event,
		"from", current.Status,
		"to", outcome.Next,
	)
	current.Status = outcome.Next
	return current, nil
}

// ToggleFeatured flips the featured flag, which is orthogonal to status.
// Admin only.
func (s *Service) ToggleFeatured(id string, actor domain.Actor) (domain.Listing, error) {
	if !actor.IsAdmin {
		return domain.Listing{}, domain.ErrForbidden
	}
	current, ok, err := s.store.FindByID(id)
	if err != nil {
		return domain.Listing{}, err
	}
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err := s.store.SetFeatured(id, !current.Featured); err != nil {
		return domain.Listing{}, err
	}
	current.Featured = !current.Featured
	return current, nil
}

func allowed(l domain.Listing, event Event, actor domain.Actor) bool {
	if actor.IsAdmin {
		return true
	}
	// Owners may pull their own published listing back.
	if event == EventWithdraw && actor.Email != "" &&
		strings.EqualFold(actor.Email, l.OwnerEmail) {
		return true
	}
	return false
}

// buildListing checks every required field and bound at once so the caller
// sees the full list of violations, then assembles the record.
func buildListing(draft domain.Draft) (domain.Listing, error) {
	var fields []domain.FieldError
	add := func(field, msg string) {
		fields = append(fields, domain.FieldError{Field: field, Msg: msg})
	}

	listingType, typeOK := domain.ParseListingType(draft.Type)
	if strings.TrimSpace(draft.Type) == "" {
		add("type", "required")
	} else if !typeOK {
		add("type", "must be BOOK or NOTES")
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		add("title", "required")
	} else if len(title) > maxTitleLen {
		add("title", fmt.Sprintf("max length %d", maxTitleLen))
	}

	authorSubject := strings.TrimSpace(draft.AuthorSubject)
	if authorSubject == "" {
		add("author_subject", "required")
	} else if len(authorSubject) > maxAuthorSubjectLen {
		add("author_subject", fmt.Sprintf("max length %d", maxAuthorSubjectLen))
	}

	description := strings.TrimSpace(draft.Description)
	if description == "" {
		add("description", "required")
	} else if len(description) > maxDescriptionLen {
		add("description", fmt.Sprintf("max length %d", maxDescriptionLen))
	}

	condition, condOK := domain.ParseCondition(draft.Condition)
	if strings.TrimSpace(draft.Condition) == "" {
		add("condition", "required")
	} else if !condOK {
		add("condition", "must be Excellent, Good, Fair or Poor")
	}

	location := strings.TrimSpace(draft.Location)
	if location == "" {
		add("location", "required")
	} else if len(location) > maxLocationLen {
		add("location", fmt.Sprintf("max length %d", maxLocationLen))
	}

	ownerEmail := strings.TrimSpace(draft.OwnerEmail)
	if ownerEmail == "" {
		add("owner_email", "required")
	} else if !emailPattern.MatchString(ownerEmail) {
		add("owner_email", "must be a valid email address")
	}

	tags := make([]string, 0, len(draft.Tags))
	for i, tag := range draft.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLen {
			add(fmt.Sprintf("tags[%d]", i), fmt.Sprintf("max length %d", maxTagLen))
			continue
		}
		tags = append(tags, tag)
	}

	if len(draft.Images) > maxImages {
		add("images", fmt.Sprintf("max %d images", maxImages))
	}

	if len(fields) > 0 {
		return domain.Listing{}, &domain.ValidationError{Fields: fields}
	}

	now := time.Now().UTC()
	return domain.Listing{
		ID:            uuid.NewString(),
		Type:          listingType,
		Title:         title,
		AuthorSubject: authorSubject,
		Description:   description,
		Condition:     condition,
		Location:      location,
		OwnerEmail:    ownerEmail,
		Tags:          tags,
		Images:        append([]string(nil), draft.Images...),
		Featured:      false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
