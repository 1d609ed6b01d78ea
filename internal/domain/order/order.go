package order

import (
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", errors.NewValidationError("status", "unknown order status "+s)
	}
	return st, nil
}

// Fees is the breakdown of what the marketplace kept from an order.
type Fees struct {
	PlatformFee          decimal.Decimal  `json:"platform_fee"`
	PaymentProcessingFee decimal.Decimal  `json:"payment_processing_fee"`
	ShippingFee          *decimal.Decimal `json:"shipping_fee,omitempty"`
}

// Total sums the fee components that are present.
func (f Fees) Total() decimal.Decimal {
	total := f.PlatformFee.Add(f.PaymentProcessingFee)
	if f.ShippingFee != nil {
		total = total.Add(*f.ShippingFee)
	}
	return total
}

// Order is a sale reported by a marketplace.
type Order struct {
	ID                  uuid.UUID         `json:"id"`
	PlatformOrderID     string            `json:"platform_order_id"`
	Platform            platform.Platform `json:"platform"`
	ProductID           *uuid.UUID        `json:"product_id,omitempty"`
	BuyerName           string            `json:"buyer_name"`
	Quantity            int               `json:"quantity"`
	ItemPrice           decimal.Decimal   `json:"item_price"`
	TotalAmount         decimal.Decimal   `json:"total_amount"`
	Fees                Fees              `json:"fees"`
	Status              Status            `json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           *time.Time        `json:"updated_at,omitempty"`
	PaidAt              *time.Time        `json:"paid_at,omitempty"`
	ShippedAt           *time.Time        `json:"shipped_at,omitempty"`
	EstimatedDeliveryAt *time.Time        `json:"estimated_delivery_at,omitempty"`
}

// SetStatus changes the order status and stamps the matching timestamps.
func (o *Order) SetStatus(s Status, now time.Time) {
	o.Status = s
	o.UpdatedAt = &now
	switch s {
	case StatusPaid:
		if o.PaidAt == nil {
			o.PaidAt = &now
		}
	case StatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	}
}

// ReferenceTime is when the order counts for earnings: paid-at, else created-at.
func (o *Order) ReferenceTime() time.Time {
	if o.PaidAt != nil {
		return *o.PaidAt
	}
	return o.CreatedAt
}

// Net is the item price minus all fees.
func (o *Order) Net() decimal.Decimal {
	return o.ItemPrice.Sub(o.Fees.Total())
}
