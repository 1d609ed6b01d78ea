package marketplace

import (
	"encoding/json"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	"github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/order"
)

// createListingRequest is the camelCase listing payload used by eBay and Mercari.
type createListingRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	ImageURLs   []string    `json:"imageUrls"`
	Category    string      `json:"category"`
}

func newCreateListingRequest(p *catalog.Product) createListingRequest {
	return createListingRequest{
		Title:       p.Title,
		Description: p.Description,
		Price:       amount(p.Price),
		Quantity:    p.Quantity,
		ImageURLs:   p.ImageURLs(),
		Category:    p.Category,
	}
}

type createListingResponse struct {
	ItemID string `json:"itemId"`
}

type statsResponse struct {
	Stats listing.Stats `json:"stats"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// amount renders a price as a JSON number with two decimals.
func amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func escape(id string) string {
	return url.PathEscape(id)
}

// parseStatus maps a platform status onto the domain. An unknown status maps
// to "", which leaves the stored status alone.
func parseStatus(raw string, known map[string]order.Status) order.Status {
	return known[raw]
}
