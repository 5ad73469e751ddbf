package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"swapshelf/pkg/domain"
)

// ListingModel is the GORM model used for persistence.
type ListingModel struct {
	ID            string `gorm:"primaryKey"`
	Type          string `gorm:"not null;index"`
	Title         string `gorm:"size:200;not null"`
	AuthorSubject string `gorm:"size:100;not null"`
	Description   string `gorm:"size:1000;not null"`
	Condition     string `gorm:"not null"`
	Location      string `gorm:"size:100"`
	OwnerEmail    string `gorm:"not null;index"`
	Tags          datatypes.JSON
	Images        datatypes.JSON
	Status        string    `gorm:"not null;index:idx_listings_status_created,priority:1"`
	Featured      bool      `gorm:"not null;default:false"`
	Views         int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null;index:idx_listings_status_created,priority:2,sort:desc"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (ListingModel) TableName() string { return "listings" }

func listingToModel(l domain.Listing) ListingModel {
	tags, _ := json.Marshal(l.Tags)
	images, _ := json.Marshal(l.Images)
	return ListingModel{
		ID:            l.ID,
		Type:          string(l.Type),
		Title:         l.Title,
		AuthorSubject: l.AuthorSubject,
		Description:   l.Description,
		Condition:     string(l.Condition),
		Location:      l.Location,
		OwnerEmail:    l.OwnerEmail,
		Tags:          tags,
		Images:        images,
		Status:        string(l.Status),
		Featured:      l.Featured,
		Views:         l.Views,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func listingFromModel(m ListingModel) domain.Listing {
	var tags, images []string
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &tags)
	}
	if len(m.Images) > 0 {
		_ = json.Unmarshal(m.Images, &images)
	}
	return domain.Listing{
		ID:            m.ID,
		Type:          domain.ListingType(m.Type),
		Title:         m.Title,
		AuthorSubject: m.AuthorSubject,
		Description:   m.Description,
		Condition:     domain.Condition(m.Condition),
		Location:      m.Location,
		OwnerEmail:    m.OwnerEmail,
		Tags:          tags,
		Images:        images,
		Status:        domain.ListingStatus(m.Status),
		Featured:      m.Featured,
		Views:         m.Views,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
