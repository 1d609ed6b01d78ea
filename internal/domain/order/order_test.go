package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFeesTotal(t *testing.T) {
	shipping := d("4.50")
	tests := []struct {
		name string
		fees Fees
		want string
	}{
		{"without shipping", Fees{PlatformFee: d("2.60"), PaymentProcessingFee: d("0.30")}, "2.90"},
		{"with shipping", Fees{PlatformFee: d("2.60"), PaymentProcessingFee: d("0.30"), ShippingFee: &shipping}, "7.40"},
		{"zero", Fees{}, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fees.Total().StringFixed(2))
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("lost")
	assert.Error(t, err)
}

func TestSetStatus_StampsTimestamps(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	o := &Order{Status: StatusPending, CreatedAt: now.Add(-time.Hour)}

	o.SetStatus(StatusPaid, now)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, now, *o.PaidAt)
	assert.Equal(t, now, o.ReferenceTime())

	later := now.Add(time.Hour)
	o.SetStatus(StatusShipped, later)
	assert.Equal(t, later, *o.ShippedAt)
	assert.Equal(t, now, *o.PaidAt)
	assert.Equal(t, later, *o.UpdatedAt)
}

func TestReferenceTime_FallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	o := &Order{CreatedAt: created}
	assert.Equal(t, created, o.ReferenceTime())
}

func TestNet(t *testing.T) {
	o := &Order{ItemPrice: d("25.00"), Fees: Fees{PlatformFee: d("3.25"), PaymentProcessingFee: d("1.03")}}
	assert.Equal(t, "20.72", o.Net().StringFixed(2))
}
