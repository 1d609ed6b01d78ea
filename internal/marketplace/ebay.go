package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	"github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/gateway"
)

// Sender is the gateway operation adapters rely on.
type Sender interface {
	Send(ctx context.Context, ep gateway.Endpoint, out any) error
}

const ebayAPI = "/api/v1.0"

// EBay ends listings with PUT and updates order status with PUT.
type EBay struct {
	gw        Sender
	urlPrefix string
}

func NewEBay(gw Sender, listingURLPrefix string) *EBay {
	return &EBay{gw: gw, urlPrefix: listingURLPrefix}
}

func (a *EBay) Platform() platform.Platform { return platform.EBay }

func (a *EBay) ListingURL(listingID string) string { return listingURL(a.urlPrefix, listingID) }

func (a *EBay) CreateListing(ctx context.Context, p *catalog.Product) (string, error) {
	ep, err := gateway.JSONEndpoint(platform.EBay, http.MethodPost, ebayAPI+"/listing/create", newCreateListingRequest(p))
	if err != nil {
		return "", err
	}

	var resp createListingResponse
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return "", fmt.Errorf("ebay create listing: %w", err)
	}
	return resp.ItemID, nil
}

func (a *EBay) EndOrRemoveListing(ctx context.Context, listingID string) error {
	ep := gateway.NewEndpoint(platform.EBay, http.MethodPut, ebayAPI+"/listing/"+escape(listingID)+"/end")
	if err := a.gw.Send(ctx, ep, nil); err != nil {
		return fmt.Errorf("ebay end listing %s: %w", listingID, err)
	}
	return nil
}

func (a *EBay) GetListingStats(ctx context.Context, listingID string) (listing.Stats, error) {
	ep := gateway.NewEndpoint(platform.EBay, http.MethodGet, ebayAPI+"/listing/"+escape(listingID)+"/stats")

	var resp statsResponse
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return listing.Stats{}, fmt.Errorf("ebay listing stats %s: %w", listingID, err)
	}
	return resp.Stats, nil
}

type ebayOrdersResponse struct {
	Orders []ebayOrder `json:"orders"`
}

type ebayOrder struct {
	OrderID     string          `json:"orderId"`
	BuyerName   string          `json:"buyerName"`
	ItemPrice   decimal.Decimal `json:"itemPrice"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Fees        struct {
		PlatformFee   decimal.Decimal  `json:"platformFee"`
		ProcessingFee decimal.Decimal  `json:"processingFee"`
		ShippingFee   *decimal.Decimal `json:"shippingFee"`
	} `json:"fees"`
	CreatedAt time.Time `json:"createdAt"`
}

// eBay reports neither quantity nor status; every order is one unit and the
// status is left empty for the aggregator to resolve.
func (o ebayOrder) toOrder() *order.Order {
	return &order.Order{
		ID:              uuid.New(),
		PlatformOrderID: o.OrderID,
		Platform:        platform.EBay,
		BuyerName:       o.BuyerName,
		Quantity:        1,
		ItemPrice:       o.ItemPrice,
		TotalAmount:     o.TotalAmount,
		Fees: order.Fees{
			PlatformFee:          o.Fees.PlatformFee,
			PaymentProcessingFee: o.Fees.ProcessingFee,
			ShippingFee:          o.Fees.ShippingFee,
		},
		CreatedAt: o.CreatedAt,
	}
}

func (a *EBay) FetchOrders(ctx context.Context) ([]*order.Order, error) {
	ep := gateway.NewEndpoint(platform.EBay, http.MethodGet, ebayAPI+"/orders")

	var resp ebayOrdersResponse
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return nil, fmt.Errorf("ebay fetch orders: %w", err)
	}

	orders := make([]*order.Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		orders = append(orders, o.toOrder())
	}
	return orders, nil
}

func (a *EBay) UpdateOrderStatus(ctx context.Context, platformOrderID string, status order.Status) error {
	ep, err := gateway.JSONEndpoint(platform.EBay, http.MethodPut, ebayAPI+"/order/"+escape(platformOrderID)+"/status", statusRequest{Status: string(status)})
	if err != nil {
		return err
	}
	if err := a.gw.Send(ctx, ep, nil); err != nil {
		return fmt.Errorf("ebay update order %s: %w", platformOrderID, err)
	}
	return nil
}
