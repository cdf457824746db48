package analytics

import (
	"cmp"
	"time"

	"vellum/backend/internal/domain"
)

const (
	topClientsLimit       = 15
	recurrentClientsLimit = 15
	newClientsLimit       = 20
	inactiveClientsLimit  = 20
	cancelledClientsLimit = 15

	newClientWindowDays = 5
	inactiveAfterDays   = 90
	recurrentMinOrders  = 2
	inactiveMinOrders   = 3
)

type clientEntry struct {
	client domain.Client
	orders int
	spent  float64
	first  time.Time
	last   time.Time
	dates  []time.Time
}

func (c *clientEntry) metric() domain.ClientMetric {
	return domain.ClientMetric{
		Document:          c.client.Document,
		Name:              c.client.Name,
		Email:             c.client.Email,
		Phone:             c.client.Phone,
		City:              c.client.City,
		Orders:            c.orders,
		TotalSpent:        c.spent,
		AverageOrderValue: ratio(c.spent, float64(c.orders)),
		FirstPurchase:     c.first,
		LastPurchase:      c.last,
	}
}

// buildClientLedger folds billed orders by client document. Orders without a
// document cannot be attributed and are skipped.
func buildClientLedger(book orderBook) *ledger[string, clientEntry] {
	clients := newLedger[string, clientEntry]()
	for _, current := range book.billed.values() {
		if current.key.client == "" {
			continue
		}
		entry := clients.entry(current.key.client, func() clientEntry {
			return clientEntry{client: current.client, first: current.date, last: current.date}
		})
		entry.orders++
		entry.spent += current.total
		entry.first = earliest(entry.first, current.date)
		entry.last = latest(entry.last, current.date)
		entry.dates = append(entry.dates, current.date)
	}
	return clients
}

func topClients(clients *ledger[string, clientEntry]) []domain.ClientMetric {
	out := make([]domain.ClientMetric, 0, clients.len())
	for _, entry := range clients.values() {
		out = append(out, entry.metric())
	}
	return topN(out, topClientsLimit, func(a, b domain.ClientMetric) int {
		return cmp.Compare(b.TotalSpent, a.TotalSpent)
	})
}

func recurrentClients(clients *ledger[string, clientEntry]) []domain.RecurrentClient {
	out := make([]domain.RecurrentClient, 0)
	for _, entry := range clients.values() {
		if entry.orders < recurrentMinOrders {
			continue
		}
		out = append(out, domain.RecurrentClient{
			ClientMetric:        entry.metric(),
			AverageIntervalDays: averageIntervalDays(entry.dates),
		})
	}
	return topN(out, recurrentClientsLimit, func(a, b domain.RecurrentClient) int {
		return cmp.Compare(b.Orders, a.Orders)
	})
}

func newClients(clients *ledger[string, clientEntry], now time.Time) []domain.NewClient {
	cutoff := now.Add(-newClientWindowDays * day)
	out := make([]domain.NewClient, 0)
	for _, entry := range clients.values() {
		if entry.first.Before(cutoff) {
			continue
		}
		out = append(out, domain.NewClient{
			ClientMetric:           entry.metric(),
			DaysSinceFirstPurchase: ceilDays(now.Sub(entry.first)),
		})
	}
	return topN(out, newClientsLimit, func(a, b domain.NewClient) int {
		return cmp.Compare(a.DaysSinceFirstPurchase, b.DaysSinceFirstPurchase)
	})
}

// inactiveClients lists frequent buyers who have gone quiet. The potential loss
// is one average order per purchase cycle missed since the last order.
func inactiveClients(clients *ledger[string, clientEntry], now time.Time) []domain.InactiveClient {
	cutoff := now.Add(-inactiveAfterDays * day)
	out := make([]domain.InactiveClient, 0)
	for _, entry := range clients.values() {
		if entry.orders < inactiveMinOrders || !entry.last.Before(cutoff) {
			continue
		}
		metric := entry.metric()
		interval := averageIntervalDays(entry.dates)
		days := ceilDays(now.Sub(entry.last))
		loss := 0.0
		if interval > 0 {
			loss = metric.AverageOrderValue * float64(days/interval)
		}
		out = append(out, domain.InactiveClient{
			ClientMetric:          metric,
			AverageIntervalDays:   interval,
			DaysSinceLastPurchase: days,
			PotentialLoss:         loss,
		})
	}
	return topN(out, inactiveClientsLimit, func(a, b domain.InactiveClient) int {
		return cmp.Compare(b.DaysSinceLastPurchase, a.DaysSinceLastPurchase)
	})
}

type cancelledClientEntry struct {
	client    domain.Client
	cancelled int
	orderIDs  set
	lost      float64
	last      time.Time
}

// cancelledClients cross-references cancelled orders with every distinct order
// id the client has, billed or cancelled.
func cancelledClients(book orderBook) []domain.CancelledClient {
	cancelled := newLedger[string, cancelledClientEntry]()
	for _, current := range book.cancelled.values() {
		if current.key.client == "" {
			continue
		}
		entry := cancelled.entry(current.key.client, func() cancelledClientEntry {
			return cancelledClientEntry{client: current.client, orderIDs: make(set)}
		})
		entry.cancelled++
		entry.orderIDs.add(current.key.id)
		entry.lost += current.total
		entry.last = latest(entry.last, current.date)
	}

	for _, current := range book.billed.values() {
		if entry, ok := cancelled.get(current.key.client); ok {
			entry.orderIDs.add(current.key.id)
		}
	}

	out := make([]domain.CancelledClient, 0, cancelled.len())
	for _, entry := range cancelled.values() {
		total := len(entry.orderIDs)
		out = append(out, domain.CancelledClient{
			Document:         entry.client.Document,
			Name:             entry.client.Name,
			Email:            entry.client.Email,
			Phone:            entry.client.Phone,
			CancelledOrders:  entry.cancelled,
			TotalOrders:      total,
			CancellationRate: percent(float64(entry.cancelled), float64(total)),
			LostRevenue:      entry.lost,
			LastCancellation: entry.last,
		})
	}
	return topN(out, cancelledClientsLimit, func(a, b domain.CancelledClient) int {
		return cmp.Compare(b.CancellationRate, a.CancellationRate)
	})
}
