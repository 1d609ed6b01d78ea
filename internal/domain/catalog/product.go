package catalog

import (
	"sort"
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition is the physical condition of an item.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "likeNew"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Image is one product photo. Order is its position in the gallery.
type Image struct {
	ID        uuid.UUID `json:"id"`
	RemoteURL string    `json:"remote_url,omitempty"`
	Order     int       `json:"order"`
}

// Product is a catalog item that can be listed on marketplaces.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Condition   Condition       `json:"condition"`
	Images      []Image         `json:"images"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewProduct(title, description string, price decimal.Decimal, quantity int, category string, condition Condition) (*Product, error) {
	p := &Product{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		Category:    category,
		Condition:   condition,
		Images:      []Image{},
		Tags:        []string{},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

// Validate checks the invariants every stored product must satisfy.
func (p *Product) Validate() error {
	if p.Title == "" {
		return errors.NewValidationError("title", "cannot be empty")
	}
	if !p.Price.IsPositive() {
		return errors.NewValidationError("price", "must be greater than 0")
	}
	if p.Quantity < 0 {
		return errors.NewValidationError("quantity", "cannot be negative")
	}
	if !p.Condition.Valid() {
		return errors.NewValidationError("condition", "unknown condition "+string(p.Condition))
	}
	return nil
}

// AddImage appends an image at the end of the gallery.
func (p *Product) AddImage(remoteURL string) {
	p.Images = append(p.Images, Image{ID: uuid.New(), RemoteURL: remoteURL, Order: len(p.Images)})
	p.UpdatedAt = time.Now()
}

// ImageURLs returns the remote URLs of the product's images in gallery order.
// Images that have not been uploaded are skipped.
func (p *Product) ImageURLs() []string {
	images := make([]Image, len(p.Images))
	copy(images, p.Images)
	sort.SliceStable(images, func(i, j int) bool { return images[i].Order < images[j].Order })

	urls := make([]string, 0, len(images))
	for _, img := range images {
		if img.RemoteURL != "" {
			urls = append(urls, img.RemoteURL)
		}
	}
	return urls
}
