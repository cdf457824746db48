package analytics

import (
	"slices"
	"strings"

	"vellum/backend/internal/domain"
)

// DefaultChannel is reported for orders that carry no marketplace marker.
const DefaultChannel = "Site Próprio"

// channelMarkers is checked in order; the first marker found wins.
var channelMarkers = []struct {
	marker  string
	channel string
}{
	{"MLR", "Mercado Livre"},
	{"MLC", "Mercado Livre"},
	{"MDM", "Madeira Madeira"},
	{"MGZ", "Magazine Luiza"},
	{"LRM", "Leroy Merlin"},
}

// ClassifyChannel maps an order identifier to the marketplace it came from.
func ClassifyChannel(orderID string) string {
	upper := strings.ToUpper(orderID)
	for _, candidate := range channelMarkers {
		if strings.Contains(upper, candidate.marker) {
			return candidate.channel
		}
	}
	return DefaultChannel
}

// AvailableChannels lists the distinct channels present in records, sorted by name.
func AvailableChannels(records []domain.SalesLineItem) []string {
	seen := make(map[string]struct{})
	channels := make([]string, 0)
	for _, record := range records {
		if record.OrderID == "" {
			continue
		}
		channel := ClassifyChannel(record.OrderID)
		if _, exists := seen[channel]; exists {
			continue
		}
		seen[channel] = struct{}{}
		channels = append(channels, channel)
	}
	slices.Sort(channels)
	return channels
}
