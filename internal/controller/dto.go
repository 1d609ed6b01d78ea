package controller

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cassiomorais/marketsync/internal/domain/account"
	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	"github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

// --- Request DTOs ---

// ProductRequest is the body of product create and update calls.
// Price accepts a JSON number or a decimal string.
type ProductRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	Condition   string          `json:"condition" validate:"required,oneof=new likeNew good fair poor"`
	ImageURLs   []string        `json:"image_urls" validate:"dive,url"`
	Tags        []string        `json:"tags"`
}

func (r ProductRequest) apply(p *catalog.Product) {
	p.Title = r.Title
	p.Description = r.Description
	p.Price = r.Price
	p.Quantity = r.Quantity
	p.Category = r.Category
	p.Condition = catalog.Condition(r.Condition)
	p.Tags = append([]string{}, r.Tags...)
	p.Images = []catalog.Image{}
	for _, u := range r.ImageURLs {
		p.AddImage(u)
	}
}

type PublishRequest struct {
	Platforms []string `json:"platforms" validate:"required,min=1,dive,oneof=ebay facebook mercari"`
}

func (r PublishRequest) platforms() []platform.Platform {
	out := make([]platform.Platform, len(r.Platforms))
	for i, p := range r.Platforms {
		out[i] = platform.Platform(p)
	}
	return out
}

type UpdateOrderStatusRequest struct {
	Platform string `json:"platform" validate:"required,oneof=ebay facebook mercari"`
	Status   string `json:"status" validate:"required,oneof=pending paid processing shipped delivered cancelled returned"`
}

// --- Response DTOs ---

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ProductResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	ImageURLs   []string  `json:"image_urls"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromProduct(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Quantity:    p.Quantity,
		Category:    p.Category,
		Condition:   string(p.Condition),
		ImageURLs:   p.ImageURLs(),
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type ListingResponse struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"product_id"`
	Platform          string     `json:"platform"`
	PlatformListingID string     `json:"platform_listing_id"`
	Status            string     `json:"status"`
	URL               string     `json:"url"`
	ViewCount         int        `json:"view_count"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	SyncedAt          time.Time  `json:"synced_at"`
}

func FromListing(l *listing.PlatformListing) ListingResponse {
	return ListingResponse{
		ID:                l.ID.String(),
		ProductID:         l.ProductID.String(),
		Platform:          l.Platform.String(),
		PlatformListingID: l.PlatformListingID,
		Status:            string(l.Status),
		URL:               l.URL,
		ViewCount:         l.ViewCount,
		PublishedAt:       l.PublishedAt,
		ExpiresAt:         l.ExpiresAt,
		SyncedAt:          l.SyncedAt,
	}
}

type OutcomeResponse struct {
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type JobResponse struct {
	ID         string                     `json:"id"`
	ProductID  string                     `json:"product_id"`
	Platforms  []string                   `json:"platforms"`
	Status     string                     `json:"status"`
	Reason     string                     `json:"reason,omitempty"`
	RetryCount int                        `json:"retry_count"`
	Outcomes   map[string]OutcomeResponse `json:"outcomes"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

func FromJob(j *listing.PublishJob) JobResponse {
	resp := JobResponse{
		ID:         j.ID.String(),
		ProductID:  j.ProductID.String(),
		Platforms:  make([]string, len(j.Platforms)),
		Status:     listing.StatusName(j.Status),
		RetryCount: j.RetryCount,
		Outcomes:   make(map[string]OutcomeResponse, len(j.Outcomes)),
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
	for i, p := range j.Platforms {
		resp.Platforms[i] = p.String()
	}
	switch s := j.Status.(type) {
	case listing.InFlight, listing.Succeeded:
	case listing.Failed:
		resp.Reason = s.Reason
	}
	for p, o := range j.Outcomes {
		resp.Outcomes[p.String()] = OutcomeResponse{Succeeded: o.Succeeded, Error: o.Error, At: o.At}
	}
	return resp
}

// PublishResponse carries the job even when publishing failed on some platform.
type PublishResponse struct {
	Job   JobResponse `json:"job"`
	Error string      `json:"error,omitempty"`
}

type FeesResponse struct {
	Platform          string  `json:"platform"`
	PaymentProcessing string  `json:"payment_processing"`
	Shipping          *string `json:"shipping,omitempty"`
	Total             string  `json:"total"`
}

type OrderResponse struct {
	ID              string       `json:"id"`
	PlatformOrderID string       `json:"platform_order_id"`
	Platform        string       `json:"platform"`
	BuyerName       string       `json:"buyer_name"`
	Quantity        int          `json:"quantity"`
	ItemPrice       string       `json:"item_price"`
	TotalAmount     string       `json:"total_amount"`
	Fees            FeesResponse `json:"fees"`
	Net             string       `json:"net"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	PaidAt          *time.Time   `json:"paid_at,omitempty"`
	ShippedAt       *time.Time   `json:"shipped_at,omitempty"`
}

func FromOrder(o *order.Order) OrderResponse {
	fees := FeesResponse{
		Platform:          o.Fees.PlatformFee.StringFixed(2),
		PaymentProcessing: o.Fees.PaymentProcessingFee.StringFixed(2),
		Total:             o.Fees.Total().StringFixed(2),
	}
	if o.Fees.ShippingFee != nil {
		s := o.Fees.ShippingFee.StringFixed(2)
		fees.Shipping = &s
	}
	return OrderResponse{
		ID:              o.ID.String(),
		PlatformOrderID: o.PlatformOrderID,
		Platform:        o.Platform.String(),
		BuyerName:       o.BuyerName,
		Quantity:        o.Quantity,
		ItemPrice:       o.ItemPrice.StringFixed(2),
		TotalAmount:     o.TotalAmount.StringFixed(2),
		Fees:            fees,
		Net:             o.Net().StringFixed(2),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
	}
}

// AccountResponse never exposes tokens.
type AccountResponse struct {
	Platform        string     `json:"platform"`
	DisplayName     string     `json:"display_name"`
	AccountName     string     `json:"account_name"`
	Scopes          []string   `json:"scopes"`
	IsActive        bool       `json:"is_active"`
	HasRefreshToken bool       `json:"has_refresh_token"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	ConnectedAt     time.Time  `json:"connected_at"`
}

func FromAccount(a *account.PlatformAccount) AccountResponse {
	return AccountResponse{
		Platform:        a.Platform.String(),
		DisplayName:     a.Platform.DisplayName(),
		AccountName:     a.AccountName,
		Scopes:          a.Scopes,
		IsActive:        a.IsActive,
		HasRefreshToken: a.HasRefreshToken(),
		TokenExpiresAt:  a.TokenExpiresAt,
		ConnectedAt:     a.ConnectedAt,
	}
}

func mapSlice[T, R any](in []*T, fn func(*T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
