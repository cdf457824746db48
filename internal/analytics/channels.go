package analytics

import (
	"cmp"

	"vellum/backend/internal/domain"
)

type channelEntry struct {
	name     string
	orders   int
	revenue  float64
	products *ledger[string, int]
}

// buildChannelLedger folds billed orders by classified channel and tracks the
// quantity sold per product inside each channel.
func buildChannelLedger(records []domain.SalesLineItem, book orderBook) *ledger[string, channelEntry] {
	channels := newLedger[string, channelEntry]()
	seed := func(name string) func() channelEntry {
		return func() channelEntry {
			return channelEntry{name: name, products: newLedger[string, int]()}
		}
	}

	for _, current := range book.billed.values() {
		entry := channels.entry(current.channel, seed(current.channel))
		entry.orders++
		entry.revenue += current.total
	}

	for _, record := range records {
		if record.Status != domain.StatusBilled || record.ProductName == "" {
			continue
		}
		channel := ClassifyChannel(record.OrderID)
		entry := channels.entry(channel, seed(channel))
		quantity := entry.products.entry(record.ProductName, func() int { return 0 })
		*quantity += record.Quantity
	}

	return channels
}

func channelPerformance(channels *ledger[string, channelEntry]) []domain.ChannelMetric {
	totalRevenue := 0.0
	for _, entry := range channels.values() {
		totalRevenue += entry.revenue
	}

	out := make([]domain.ChannelMetric, 0, channels.len())
	for _, entry := range channels.values() {
		product, quantity := topByQuantity(entry.products)
		out = append(out, domain.ChannelMetric{
			Channel:            entry.name,
			Orders:             entry.orders,
			Revenue:            entry.revenue,
			AverageOrderValue:  ratio(entry.revenue, float64(entry.orders)),
			TopProduct:         product,
			TopProductQuantity: quantity,
			MarketShare:        percent(entry.revenue, totalRevenue),
		})
	}
	return topN(out, 0, func(a, b domain.ChannelMetric) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
}

// topByQuantity returns the product with the highest quantity; the first one
// seen wins a tie.
func topByQuantity(products *ledger[string, int]) (string, int) {
	best, bestQuantity := "", 0
	for _, name := range products.keys {
		quantity := *products.index[name]
		if best == "" || quantity > bestQuantity {
			best, bestQuantity = name, quantity
		}
	}
	return best, bestQuantity
}
