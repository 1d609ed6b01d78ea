package testutil

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cassiomorais/marketsync/internal/domain/account"
	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewTestProduct returns a valid product with fake catalog data.
func NewTestProduct() *catalog.Product {
	now := time.Now()
	p := &catalog.Product{
		ID:          uuid.New(),
		Title:       gofakeit.ProductName(),
		Description: gofakeit.ProductDescription(),
		Price:       decimal.NewFromFloat(gofakeit.Price(5, 500)).Round(2),
		Quantity:    gofakeit.IntRange(1, 20),
		Category:    gofakeit.ProductCategory(),
		Condition:   catalog.ConditionGood,
		Images:      []catalog.Image{},
		Tags:        []string{gofakeit.Adjective()},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.AddImage(gofakeit.URL())
	return p
}

// NewTestAccount returns an active account whose token expires at expiresAt.
// A zero expiresAt leaves the account without an expiry.
func NewTestAccount(p platform.Platform, accessToken string, refreshToken string, expiresAt time.Time) *account.PlatformAccount {
	a := &account.PlatformAccount{
		ID:          uuid.New(),
		Platform:    p,
		AccountName: gofakeit.Username(),
		AccessToken: accessToken,
		Scopes:      []string{"sell", "orders"},
		IsActive:    true,
		ConnectedAt: time.Now(),
	}
	if refreshToken != "" {
		a.RefreshToken = &refreshToken
	}
	if !expiresAt.IsZero() {
		a.TokenExpiresAt = &expiresAt
	}
	return a
}

// NewTestOrder returns a pending order created at createdAt.
func NewTestOrder(p platform.Platform, createdAt time.Time) *order.Order {
	price := decimal.NewFromFloat(gofakeit.Price(10, 200)).Round(2)
	return &order.Order{
		ID:              uuid.New(),
		PlatformOrderID: gofakeit.UUID(),
		Platform:        p,
		BuyerName:       gofakeit.Name(),
		Quantity:        1,
		ItemPrice:       price,
		TotalAmount:     price,
		Fees: order.Fees{
			PlatformFee:          price.Mul(decimal.RequireFromString("0.10")).Round(2),
			PaymentProcessingFee: decimal.RequireFromString("0.30"),
		},
		Status:    order.StatusPending,
		CreatedAt: createdAt,
	}
}
