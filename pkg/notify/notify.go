// Package notify emits contact-request events toward the notification
// collaborator. Delivery and failure handling happen on the other side of
// the broker; this package only guarantees the event leaves the process.
package notify

import (
	"context"
	"log/slog"

	"swapshelf/pkg/domain"
)

// Publisher emits contact-request events.
type Publisher interface {
	PublishContactRequest(ctx context.Context, req domain.ContactRequest) error
	Close() error
}

// LogPublisher writes events to the structured log. It stands in when no
// broker is configured (local development, tests).
type LogPublisher struct{}

// PublishContactRequest logs the event.
func (LogPublisher) PublishContactRequest(_ context.Context, req domain.ContactRequest) error {
	slog.Info("contact_request",
		"owner_email", req.OwnerEmail,
		"resource_title", req.ResourceTitle,
		"requester_name", req.RequesterName,
		"requester_email", req.RequesterEmail,
	)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
