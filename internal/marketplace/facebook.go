package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	"github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/gateway"
)

const facebookGraph = "/graph/v18.0"

var facebookStatuses = map[string]order.Status{
	"CREATED":    order.StatusPending,
	"PAID":       order.StatusPaid,
	"PROCESSING": order.StatusProcessing,
	"IN_TRANSIT": order.StatusShipped,
	"COMPLETED":  order.StatusDelivered,
	"CANCELLED":  order.StatusCancelled,
	"REFUNDED":   order.StatusReturned,
}

// Facebook uses the graph API: DELETE removes a listing, POST sets order status.
type Facebook struct {
	gw        Sender
	urlPrefix string
}

func NewFacebook(gw Sender, listingURLPrefix string) *Facebook {
	return &Facebook{gw: gw, urlPrefix: listingURLPrefix}
}

func (a *Facebook) Platform() platform.Platform { return platform.Facebook }

func (a *Facebook) ListingURL(listingID string) string { return listingURL(a.urlPrefix, listingID) }

type facebookListingRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	ImageURLs   []string    `json:"image_urls"`
	Category    string      `json:"category"`
	Condition   string      `json:"condition"`
}

func (a *Facebook) CreateListing(ctx context.Context, p *catalog.Product) (string, error) {
	ep, err := gateway.JSONEndpoint(platform.Facebook, http.MethodPost, facebookGraph+"/listings", facebookListingRequest{
		Title:       p.Title,
		Description: p.Description,
		Price:       amount(p.Price),
		Quantity:    p.Quantity,
		ImageURLs:   p.ImageURLs(),
		Category:    p.Category,
		Condition:   string(p.Condition),
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return "", fmt.Errorf("facebook create listing: %w", err)
	}
	return resp.ID, nil
}

func (a *Facebook) EndOrRemoveListing(ctx context.Context, listingID string) error {
	ep := gateway.NewEndpoint(platform.Facebook, http.MethodDelete, facebookGraph+"/listings/"+escape(listingID))
	if err := a.gw.Send(ctx, ep, nil); err != nil {
		return fmt.Errorf("facebook delete listing %s: %w", listingID, err)
	}
	return nil
}

func (a *Facebook) GetListingStats(ctx context.Context, listingID string) (listing.Stats, error) {
	ep := gateway.NewEndpoint(platform.Facebook, http.MethodGet, facebookGraph+"/listings/"+escape(listingID)+"/insights")

	var resp struct {
		Insights listing.Stats `json:"insights"`
	}
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return listing.Stats{}, fmt.Errorf("facebook listing insights %s: %w", listingID, err)
	}
	return resp.Insights, nil
}

type facebookOrder struct {
	ID          string          `json:"id"`
	BuyerName   string          `json:"buyer_name"`
	Quantity    int             `json:"quantity"`
	ItemPrice   decimal.Decimal `json:"item_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	State       string          `json:"state"`
	Fees        struct {
		MarketplaceFee decimal.Decimal  `json:"marketplace_fee"`
		PaymentFee     decimal.Decimal  `json:"payment_fee"`
		ShippingFee    *decimal.Decimal `json:"shipping_fee"`
	} `json:"fees"`
	CreatedTime time.Time `json:"created_time"`
}

func (o facebookOrder) toOrder() *order.Order {
	qty := o.Quantity
	if qty <= 0 {
		qty = 1
	}
	return &order.Order{
		ID:              uuid.New(),
		PlatformOrderID: o.ID,
		Platform:        platform.Facebook,
		BuyerName:       o.BuyerName,
		Quantity:        qty,
		ItemPrice:       o.ItemPrice,
		TotalAmount:     o.TotalAmount,
		Fees: order.Fees{
			PlatformFee:          o.Fees.MarketplaceFee,
			PaymentProcessingFee: o.Fees.PaymentFee,
			ShippingFee:          o.Fees.ShippingFee,
		},
		Status:    parseStatus(o.State, facebookStatuses),
		CreatedAt: o.CreatedTime,
	}
}

func (a *Facebook) FetchOrders(ctx context.Context) ([]*order.Order, error) {
	ep := gateway.NewEndpoint(platform.Facebook, http.MethodGet, facebookGraph+"/orders")

	var resp struct {
		Data []facebookOrder `json:"data"`
	}
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return nil, fmt.Errorf("facebook fetch orders: %w", err)
	}

	orders := make([]*order.Order, 0, len(resp.Data))
	for _, o := range resp.Data {
		orders = append(orders, o.toOrder())
	}
	return orders, nil
}

func (a *Facebook) UpdateOrderStatus(ctx context.Context, platformOrderID string, status order.Status) error {
	ep, err := gateway.JSONEndpoint(platform.Facebook, http.MethodPost, facebookGraph+"/orders/"+escape(platformOrderID)+"/status", statusRequest{Status: facebookState(status)})
	if err != nil {
		return err
	}
	if err := a.gw.Send(ctx, ep, nil); err != nil {
		return fmt.Errorf("facebook update order %s: %w", platformOrderID, err)
	}
	return nil
}

func facebookState(s order.Status) string {
	for state, status := range facebookStatuses {
		if status == s {
			return state
		}
	}
	return strings.ToUpper(string(s))
}
