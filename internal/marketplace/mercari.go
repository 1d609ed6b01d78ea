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

const mercariAPI = "/api/v1"

var mercariStatuses = map[string]order.Status{
	"wait_payment":  order.StatusPending,
	"wait_shipping": order.StatusPaid,
	"processing":    order.StatusProcessing,
	"shipped":       order.StatusShipped,
	"done":          order.StatusDelivered,
	"cancelled":     order.StatusCancelled,
	"returned":      order.StatusReturned,
}

// Mercari removes listings with DELETE and updates order status with PUT.
type Mercari struct {
	gw        Sender
	urlPrefix string
}

func NewMercari(gw Sender, listingURLPrefix string) *Mercari {
	return &Mercari{gw: gw, urlPrefix: listingURLPrefix}
}

func (a *Mercari) Platform() platform.Platform { return platform.Mercari }

func (a *Mercari) ListingURL(listingID string) string { return listingURL(a.urlPrefix, listingID) }

func (a *Mercari) CreateListing(ctx context.Context, p *catalog.Product) (string, error) {
	ep, err := gateway.JSONEndpoint(platform.Mercari, http.MethodPost, mercariAPI+"/listings", newCreateListingRequest(p))
	if err != nil {
		return "", err
	}

	var resp createListingResponse
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return "", fmt.Errorf("mercari create listing: %w", err)
	}
	return resp.ItemID, nil
}

func (a *Mercari) EndOrRemoveListing(ctx context.Context, listingID string) error {
	ep := gateway.NewEndpoint(platform.Mercari, http.MethodDelete, mercariAPI+"/listings/"+escape(listingID))
	if err := a.gw.Send(ctx, ep, nil); err != nil {
		return fmt.Errorf("mercari delete listing %s: %w", listingID, err)
	}
	return nil
}

func (a *Mercari) GetListingStats(ctx context.Context, listingID string) (listing.Stats, error) {
	ep := gateway.NewEndpoint(platform.Mercari, http.MethodGet, mercariAPI+"/listings/"+escape(listingID)+"/stats")

	var resp statsResponse
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return listing.Stats{}, fmt.Errorf("mercari listing stats %s: %w", listingID, err)
	}
	return resp.Stats, nil
}

type mercariOrder struct {
	OrderID string `json:"order_id"`
	Buyer   struct {
		Nickname string `json:"nickname"`
	} `json:"buyer"`
	Item struct {
		Price    decimal.Decimal `json:"price"`
		Quantity int             `json:"quantity"`
	} `json:"item"`
	Total  decimal.Decimal `json:"total"`
	Status string          `json:"status"`
	Fees   struct {
		SalesFee    decimal.Decimal  `json:"sales_fee"`
		PaymentFee  decimal.Decimal  `json:"payment_fee"`
		ShippingFee *decimal.Decimal `json:"shipping_fee"`
	} `json:"fees"`
	// Created is a unix timestamp in seconds.
	Created int64 `json:"created"`
}

func (o mercariOrder) toOrder() *order.Order {
	qty := o.Item.Quantity
	if qty <= 0 {
		qty = 1
	}
	return &order.Order{
		ID:              uuid.New(),
		PlatformOrderID: o.OrderID,
		Platform:        platform.Mercari,
		BuyerName:       o.Buyer.Nickname,
		Quantity:        qty,
		ItemPrice:       o.Item.Price,
		TotalAmount:     o.Total,
		Fees: order.Fees{
			PlatformFee:          o.Fees.SalesFee,
			PaymentProcessingFee: o.Fees.PaymentFee,
			ShippingFee:          o.Fees.ShippingFee,
		},
		Status:    parseStatus(o.Status, mercariStatuses),
		CreatedAt: time.Unix(o.Created, 0).UTC(),
	}
}

func (a *Mercari) FetchOrders(ctx context.Context) ([]*order.Order, error) {
	ep := gateway.NewEndpoint(platform.Mercari, http.MethodGet, mercariAPI+"/orders")

	var resp struct {
		Orders []mercariOrder `json:"orders"`
	}
	if err := a.gw.Send(ctx, ep, &resp); err != nil {
		return nil, fmt.Errorf("mercari fetch orders: %w", err)
	}

	orders := make([]*order.Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		orders = append(orders, o.toOrder())
	}
	return orders, nil
}

func (a *Mercari) UpdateOrderStatus(ctx context.Context, platformOrderID string, status order.Status) error {
	ep, err := gateway.JSONEndpoint(platform.Mercari, http.MethodPut, mercariAPI+"/orders/"+escape(platformOrderID)+"/status", statusRequest{Status: mercariStatus(status)})
	if err != nil {
		return err
	}
	if err := a.gw.Send(ctx, ep, nil); err != nil {
		return fmt.Errorf("mercari update order %s: %w", platformOrderID, err)
	}
	return nil
}

func mercariStatus(s order.Status) string {
	for raw, status := range mercariStatuses {
		if status == s {
			return raw
		}
	}
	return string(s)
}
