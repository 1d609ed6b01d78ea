package orders

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

// PlatformEarnings is one marketplace's share of an earnings period.
type PlatformEarnings struct {
	Platform   platform.Platform `json:"platform"`
	GrossSales decimal.Decimal   `json:"gross_sales"`
	Fees       decimal.Decimal   `json:"fees"`
	Net        decimal.Decimal   `json:"net"`
	OrderCount int               `json:"order_count"`
}

// DailyEarnings aggregates the orders of one UTC day.
type DailyEarnings struct {
	Date       time.Time       `json:"date"`
	GrossSales decimal.Decimal `json:"gross_sales"`
	Fees       decimal.Decimal `json:"fees"`
	Net        decimal.Decimal `json:"net"`
	OrderCount int             `json:"order_count"`
}

// Earnings summarizes the orders whose reference time falls in [From, To].
type Earnings struct {
	From              time.Time                              `json:"from"`
	To                time.Time                              `json:"to"`
	GrossSales        decimal.Decimal                        `json:"gross_sales"`
	TotalFees         decimal.Decimal                        `json:"total_fees"`
	NetEarnings       decimal.Decimal                        `json:"net_earnings"`
	OrderCount        int                                    `json:"order_count"`
	AverageOrderValue decimal.Decimal                        `json:"average_order_value"`
	ByPlatform        map[platform.Platform]PlatformEarnings `json:"by_platform"`
	Daily             []DailyEarnings                        `json:"daily"`
}

// Earnings computes gross sales (item prices), fees and net for the period.
// An order counts at its paid time, or its creation time when unpaid.
func (a *Aggregator) Earnings(ctx context.Context, from, to time.Time) (*Earnings, error) {
	orders, err := a.orders.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(orders, from, to), nil
}

func summarize(orders []*order.Order, from, to time.Time) *Earnings {
	e := &Earnings{
		From:       from,
		To:         to,
		ByPlatform: make(map[platform.Platform]PlatformEarnings, len(platform.All())),
		Daily:      []DailyEarnings{},
	}
	for _, p := range platform.All() {
		e.ByPlatform[p] = PlatformEarnings{Platform: p}
	}

	days := make(map[time.Time]*DailyEarnings)
	for _, o := range orders {
		at := o.ReferenceTime()
		if at.Before(from) || at.After(to) {
			continue
		}
		fees := o.Fees.Total()

		e.GrossSales = e.GrossSales.Add(o.ItemPrice)
		e.TotalFees = e.TotalFees.Add(fees)
		e.OrderCount++

		pe := e.ByPlatform[o.Platform]
		pe.Platform = o.Platform
		pe.GrossSales = pe.GrossSales.Add(o.ItemPrice)
		pe.Fees = pe.Fees.Add(fees)
		pe.Net = pe.GrossSales.Sub(pe.Fees)
		pe.OrderCount++
		e.ByPlatform[o.Platform] = pe

		day := at.UTC().Truncate(24 * time.Hour)
		d, ok := days[day]
		if !ok {
			d = &DailyEarnings{Date: day}
			days[day] = d
		}
		d.GrossSales = d.GrossSales.Add(o.ItemPrice)
		d.Fees = d.Fees.Add(fees)
		d.Net = d.GrossSales.Sub(d.Fees)
		d.OrderCount++
	}

	e.NetEarnings = e.GrossSales.Sub(e.TotalFees)
	if e.OrderCount > 0 {
		e.AverageOrderValue = e.GrossSales.Div(decimal.NewFromInt(int64(e.OrderCount))).Round(2)
	}

	for _, d := range days {
		e.Daily = append(e.Daily, *d)
	}
	slices.SortFunc(e.Daily, func(x, y DailyEarnings) int { return y.Date.Compare(x.Date) })
	return e
}
