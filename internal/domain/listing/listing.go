package listing

import (
	"fmt"
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/google/uuid"
)

// Status is the marketplace state of a listing.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusSold     Status = "sold"
	StatusExpired  Status = "expired"
	StatusArchived Status = "archived"
)

// PlatformListing is a product published on one marketplace.
type PlatformListing struct {
	ID                uuid.UUID         `json:"id"`
	ProductID         uuid.UUID         `json:"product_id"`
	Platform          platform.Platform `json:"platform"`
	PlatformListingID string            `json:"platform_listing_id"`
	Status            Status            `json:"status"`
	PublishedAt       *time.Time        `json:"published_at,omitempty"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
	ViewCount         int               `json:"view_count"`
	URL               string            `json:"url"`
	SyncedAt          time.Time         `json:"synced_at"`
}

// Stats is the marketplace-reported state of a listing.
type Stats struct {
	Views  int  `json:"views"`
	Active bool `json:"active"`
}

// NewPublished creates an active listing published at now and expiring after ttl.
func NewPublished(productID uuid.UUID, p platform.Platform, platformListingID, url string, now time.Time, ttl time.Duration) *PlatformListing {
	published := now
	expires := now.Add(ttl)
	return &PlatformListing{
		ID:                uuid.New(),
		ProductID:         productID,
		Platform:          p,
		PlatformListingID: platformListingID,
		Status:            StatusActive,
		PublishedAt:       &published,
		ExpiresAt:         &expires,
		URL:               url,
		SyncedAt:          now,
	}
}

// ApplyStats updates view count and status from marketplace stats.
// An inactive listing is considered sold.
func (l *PlatformListing) ApplyStats(stats Stats, now time.Time) {
	l.ViewCount = stats.Views
	if stats.Active {
		l.Status = StatusActive
	} else {
		l.Status = StatusSold
	}
	l.SyncedAt = now
}

func (l *PlatformListing) String() string {
	return fmt.Sprintf("%s/%s", l.Platform, l.PlatformListingID)
}
