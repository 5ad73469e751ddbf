package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"swapshelf/pkg/domain"
	"swapshelf/pkg/metadata"
	"swapshelf/pkg/moderation"
	"swapshelf/pkg/notify"
	"swapshelf/pkg/query"
	"swapshelf/pkg/storage"
	"swapshelf/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	Store          store.Store
	Screener       moderation.Classifier
	PageSize       int
	AMQPURL        string
	Notifier       notify.Publisher
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	Images         storage.ImageStore
	GoogleBooksURL string
}

// App wires the moderation facade, query engine and external collaborators
// behind a single construction point.
type App struct {
	Store      store.Store
	Moderation *moderation.Service
	Query      *query.Engine
	Images     storage.ImageStore
	Notifier   notify.Publisher
	Metadata   *metadata.Client

	presignExpiry time.Duration
}

// New constructs the application. An empty DatabaseURL falls back to the
// in-memory store; an empty AMQPURL falls back to logging contact requests;
// image storage stays disabled without a MinIO endpoint.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL != "" {
			gormStore, err := store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
			dataStore = gormStore
		} else {
			dataStore = store.NewMemoryStore()
		}
	}

	notifier := cfg.Notifier
	if notifier == nil {
		if cfg.AMQPURL != "" {
			amqpPublisher, err := notify.NewAMQPPublisher(cfg.AMQPURL)
			if err != nil {
				return nil, fmt.Errorf("init notify publisher: %w", err)
			}
			notifier = amqpPublisher
		} else {
			notifier = notify.LogPublisher{}
		}
	}

	images := cfg.Images
	if images == nil && cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init image store: %w", err)
		}
		images = minioStore
	}

	return &App{
		Store:         dataStore,
		Moderation:    moderation.NewService(dataStore, cfg.Screener),
		Query:         query.NewEngine(dataStore, cfg.PageSize),
		Images:        images,
		Notifier:      notifier,
		Metadata:      metadata.NewClient(cfg.GoogleBooksURL),
		presignExpiry: 15 * time.Minute,
	}, nil
}

// ContactOwner emits a contact-request event for a published listing.
func (a *App) ContactOwner(ctx context.Context, listingID, requesterName, requesterEmail, message string) error {
	listing, ok, err := a.Store.FindByID(listingID)
	if err != nil {
		return err
	}
	if !ok || listing.Status != domain.StatusPublished {
		return domain.ErrNotFound
	}
	return a.Notifier.PublishContactRequest(ctx, domain.ContactRequest{
		OwnerEmail:     listing.OwnerEmail,
		ResourceTitle:  listing.Title,
		RequesterName:  strings.TrimSpace(requesterName),
		RequesterEmail: strings.TrimSpace(requesterEmail),
		Message:        strings.TrimSpace(message),
		CreatedAt:      time.Now().UTC(),
	})
}

// ImageURLs resolves presigned URLs for a listing's image keys. Without an
// image store configured the keys are returned as-is.
func (a *App) ImageURLs(ctx context.Context, listing domain.Listing) []string {
	if a.Images == nil || len(listing.Images) == 0 {
		return listing.Images
	}
	urls := make([]string, 0, len(listing.Images))
	for _, key := range listing.Images {
		url, err := a.Images.PresignGet(ctx, key, a.presignExpiry)
		if err != nil {
			urls = append(urls, key)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// CleanupImages removes a deleted listing's objects best-effort.
func (a *App) CleanupImages(ctx context.Context, keys []string) {
	if a.Images == nil {
		return
	}
	for _, key := range keys {
		_ = a.Images.Delete(ctx, key)
	}
}

// Close releases collaborator connections.
func (a *App) Close() error {
	if a.Notifier != nil {
		return a.Notifier.Close()
	}
	return nil
}
