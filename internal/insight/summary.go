// Package insight produces marketing recommendations for a sales snapshot,
// from an external language model when one is configured and from fixed rules
// otherwise.
package insight

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"vellum/backend/internal/domain"
)

// Summary is the slice of a snapshot a generator gets to see.
type Summary struct {
	Revenue           float64                     `json:"revenue"`
	Orders            int                         `json:"orders"`
	CancelledOrders   int                         `json:"cancelled_orders"`
	CancellationRate  float64                     `json:"cancellation_rate"`
	Clients           int                         `json:"clients"`
	AverageOrderValue float64                     `json:"average_order_value"`
	TopProducts       []domain.ProductMetric      `json:"top_products"`
	TopClients        []domain.ClientMetric       `json:"top_clients"`
	Channels          []domain.ChannelMetric      `json:"channels"`
	CancelledClients  []domain.CancelledClient    `json:"cancelled_clients"`
	CancelledProducts []domain.CancelledProduct   `json:"cancelled_products"`
	Coupons           []domain.CouponMetric       `json:"coupons"`
	Combinations      []domain.ProductCombination `json:"combinations"`
	Regions           []domain.RegionMetric       `json:"regions"`

	// counts over the full lists, before truncation
	TopProductCount int `json:"top_product_count"`
	TopClientCount  int `json:"top_client_count"`
}

func Summarize(snapshot domain.SalesSnapshot) Summary {
	return Summary{
		Revenue:           snapshot.Totals.Revenue,
		Orders:            snapshot.Totals.Orders,
		CancelledOrders:   snapshot.Totals.CancelledOrders,
		CancellationRate:  snapshot.Totals.CancellationRate,
		Clients:           snapshot.Totals.Clients,
		AverageOrderValue: snapshot.Totals.AverageOrderValue,
		TopProducts:       head(snapshot.TopProducts, 5),
		TopClients:        head(snapshot.TopClients, 5),
		Channels:          snapshot.Channels,
		CancelledClients:  head(snapshot.CancelledClients, 3),
		CancelledProducts: head(snapshot.CancelledProducts, 3),
		Coupons:           head(snapshot.Coupons, 3),
		Combinations:      head(snapshot.Combinations, 3),
		Regions:           head(snapshot.Regions, 3),
		TopProductCount:   len(snapshot.TopProducts),
		TopClientCount:    len(snapshot.TopClients),
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	return append([]T{}, items...)
}

// Hash identifies the headline figures of a summary. Two snapshots with the
// same totals and list sizes share cached insights.
func (s Summary) Hash() string {
	payload, _ := json.Marshal(struct {
		Revenue         float64 `json:"revenue"`
		Orders          int     `json:"orders"`
		CancelledOrders int     `json:"cancelled_orders"`
		Clients         int     `json:"clients"`
		TopProducts     int     `json:"top_products"`
		Channels        int     `json:"channels"`
	}{s.Revenue, s.Orders, s.CancelledOrders, s.Clients, s.TopProductCount, len(s.Channels)})
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}
