package analytics

import (
	"math"
	"unicode/utf16"

	"vellum/backend/internal/domain"
)

const growthDirectionThreshold = 5

// PreviousPeriod supplies the comparison figures for a channel's growth rates.
type PreviousPeriod interface {
	Previous(channel string, orders int, revenue float64) (int, float64)
	Source() string
}

// SyntheticPrevious derives stable comparison figures from the channel name.
// The same name and current figures always produce the same previous period.
type SyntheticPrevious struct{}

func (SyntheticPrevious) Previous(channel string, orders int, revenue float64) (int, float64) {
	h := int64(channelHash(channel))
	if h < 0 {
		h = -h
	}
	m := float64(h % 100)
	orderFactor := 0.7 + m/250
	revenueFactor := 0.75 + m/200
	return int(math.Floor(float64(orders) * orderFactor)), revenue * revenueFactor
}

func (SyntheticPrevious) Source() string {
	return domain.GrowthSynthetic
}

// channelHash is the 32-bit h = h*31 + c string hash over UTF-16 code units,
// wrapping on overflow.
func channelHash(name string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(name)) {
		h = h*31 + int32(unit)
	}
	return h
}

type ChannelTotals struct {
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// ObservedPrevious uses real figures from an earlier window. Channels absent
// from the map had no billed orders in that window.
type ObservedPrevious map[string]ChannelTotals

func (o ObservedPrevious) Previous(channel string, _ int, _ float64) (int, float64) {
	totals := o[channel]
	return totals.Orders, totals.Revenue
}

func (ObservedPrevious) Source() string {
	return domain.GrowthPreviousPeriod
}

func channelGrowth(performance []domain.ChannelMetric, previous PreviousPeriod) []domain.ChannelGrowthMetric {
	out := make([]domain.ChannelGrowthMetric, 0, len(performance))
	for _, channel := range performance {
		previousOrders, previousRevenue := previous.Previous(channel.Channel, channel.Orders, channel.Revenue)
		orderRate := percent(float64(channel.Orders-previousOrders), float64(previousOrders))
		out = append(out, domain.ChannelGrowthMetric{
			Channel:           channel.Channel,
			CurrentOrders:     channel.Orders,
			PreviousOrders:    previousOrders,
			CurrentRevenue:    channel.Revenue,
			PreviousRevenue:   previousRevenue,
			OrderGrowthRate:   orderRate,
			RevenueGrowthRate: percent(channel.Revenue-previousRevenue, previousRevenue),
			Direction:         growthDirection(orderRate),
		})
	}
	return out
}

func growthDirection(rate float64) string {
	switch {
	case rate > growthDirectionThreshold:
		return domain.DirectionUp
	case rate < -growthDirectionThreshold:
		return domain.DirectionDown
	default:
		return domain.DirectionStable
	}
}
