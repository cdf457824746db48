package analytics

import (
	"cmp"
	"time"

	"vellum/backend/internal/domain"
)

const (
	bestFunnelClientsLimit      = 50
	recurrentFunnelClientsLimit = 30
	abandonedCartsLimit         = 30
	pendingSalespersonLimit     = 20
	cancelledFunnelClientsLimit = 20
	approvedClientsLimit        = 20

	salespersonSLADays      = 3
	salespersonUrgentDays   = 7
	productionAttentionDays = 7
	productionDelayedDays   = 14
	activeIntervalFactor    = 1.5
)

type funnelClientEntry struct {
	name      string
	email     string
	records   int
	converted int
	revenue   float64
	first     time.Time
	last      time.Time
	dates     []time.Time
}

func (c *funnelClientEntry) metric() domain.FunnelClientMetric {
	return domain.FunnelClientMetric{
		Client:        c.name,
		Email:         c.email,
		Records:       c.records,
		Converted:     c.converted,
		Revenue:       c.revenue,
		AverageTicket: ratio(c.revenue, float64(c.records)),
		FirstActivity: c.first,
		LastActivity:  c.last,
	}
}

// ComputeFunnel filters funnel records and derives the funnel views.
func (e *Engine) ComputeFunnel(records []domain.FunnelRecord, filter domain.FunnelFilter) domain.FunnelSnapshot {
	now := e.now()
	filtered := FilterFunnel(records, filter)
	if len(filtered) == 0 {
		return emptyFunnelSnapshot(now, filter)
	}

	clients := buildFunnelClientLedger(filtered)
	return domain.FunnelSnapshot{
		GeneratedAt:        now,
		Filter:             filter,
		Totals:             funnelTotals(filtered, clients),
		Breakdown:          funnelBreakdown(filtered),
		BestClients:        bestFunnelClients(clients),
		RecurrentClients:   recurrentFunnelClients(clients, now),
		AbandonedCarts:     abandonedCarts(filtered, now),
		PendingSalesperson: pendingSalesperson(filtered, now),
		CancelledClients:   cancelledFunnelClients(filtered, clients),
		ApprovedClients:    approvedClients(filtered, now),
		Last30Days:         funnelRecentMetrics(filtered, now),
	}
}

func emptyFunnelSnapshot(now time.Time, filter domain.FunnelFilter) domain.FunnelSnapshot {
	return domain.FunnelSnapshot{
		GeneratedAt:        now,
		Filter:             filter,
		Breakdown:          []domain.FunnelStageMetric{},
		BestClients:        []domain.FunnelClientMetric{},
		RecurrentClients:   []domain.FunnelRecurrentClient{},
		AbandonedCarts:     []domain.AbandonedCart{},
		PendingSalesperson: []domain.PendingSalesperson{},
		CancelledClients:   []domain.FunnelCancelledClient{},
		ApprovedClients:    []domain.ApprovedClient{},
	}
}

// AvailableStatuses lists the funnel states present in records, in pipeline order.
func AvailableStatuses(records []domain.FunnelRecord) []domain.FunnelStatus {
	present := make(map[domain.FunnelStatus]struct{})
	for _, record := range records {
		present[record.Status] = struct{}{}
	}
	out := make([]domain.FunnelStatus, 0, len(present))
	for _, status := range domain.FunnelStatuses {
		if _, ok := present[status]; ok {
			out = append(out, status)
		}
	}
	return out
}

func buildFunnelClientLedger(records []domain.FunnelRecord) *ledger[string, funnelClientEntry] {
	clients := newLedger[string, funnelClientEntry]()
	for _, record := range records {
		activity := record.LastActivity()
		entry := clients.entry(record.Email, func() funnelClientEntry {
			return funnelClientEntry{name: record.Client, email: record.Email, first: record.CreatedAt, last: activity}
		})
		entry.records++
		if record.Status.Converted() {
			entry.converted++
			entry.revenue += record.Value
		}
		entry.first = earliest(entry.first, record.CreatedAt)
		entry.last = latest(entry.last, activity)
		entry.dates = append(entry.dates, activity)
	}
	return clients
}

func funnelTotals(records []domain.FunnelRecord, clients *ledger[string, funnelClientEntry]) domain.FunnelTotals {
	totals := domain.FunnelTotals{Records: len(records), Clients: clients.len()}
	for _, record := range records {
		totals.TotalValue += record.Value
		switch {
		case record.Status.Converted():
			totals.ConvertedOrders++
			totals.Revenue += record.Value
		case record.Status == domain.FunnelCancelled:
			totals.CancelledOrders++
		}
	}
	totals.ConversionRate = percent(float64(totals.ConvertedOrders), float64(totals.Records))
	totals.CancellationRate = percent(float64(totals.CancelledOrders), float64(totals.Records))
	totals.AverageTicket = ratio(totals.Revenue, float64(totals.ConvertedOrders))
	return totals
}

func funnelBreakdown(records []domain.FunnelRecord) []domain.FunnelStageMetric {
	stages := make(map[domain.FunnelStatus]*domain.FunnelStageMetric, len(domain.FunnelStatuses))
	out := make([]domain.FunnelStageMetric, len(domain.FunnelStatuses))
	for i, status := range domain.FunnelStatuses {
		out[i].Status = status
		stages[status] = &out[i]
	}
	for _, record := range records {
		if stage, ok := stages[record.Status]; ok {
			stage.Count++
			stage.Value += record.Value
		}
	}
	for i := range out {
		out[i].Percentage = percent(float64(out[i].Count), float64(len(records)))
	}
	return out
}

func bestFunnelClients(clients *ledger[string, funnelClientEntry]) []domain.FunnelClientMetric {
	out := make([]domain.FunnelClientMetric, 0, clients.len())
	for _, entry := range clients.values() {
		out = append(out, entry.metric())
	}
	return topN(out, bestFunnelClientsLimit, func(a, b domain.FunnelClientMetric) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
}

// recurrentFunnelClients flags a client active while the time since their last
// activity stays within one and a half of their usual interval.
func recurrentFunnelClients(clients *ledger[string, funnelClientEntry], now time.Time) []domain.FunnelRecurrentClient {
	out := make([]domain.FunnelRecurrentClient, 0)
	for _, entry := range clients.values() {
		if entry.records < recurrentMinOrders {
			continue
		}
		interval := averageIntervalDays(entry.dates)
		days := ceilDays(now.Sub(entry.last))
		out = append(out, domain.FunnelRecurrentClient{
			FunnelClientMetric:  entry.metric(),
			AverageIntervalDays: interval,
			DaysSinceLast:       days,
			Active:              float64(days) <= float64(interval)*activeIntervalFactor,
		})
	}
	return topN(out, recurrentFunnelClientsLimit, func(a, b domain.FunnelRecurrentClient) int {
		return cmp.Compare(b.Records, a.Records)
	})
}

func abandonedCarts(records []domain.FunnelRecord, now time.Time) []domain.AbandonedCart {
	out := make([]domain.AbandonedCart, 0)
	for _, record := range records {
		if record.Status != domain.FunnelPendingApproval {
			continue
		}
		out = append(out, domain.AbandonedCart{
			Client:          record.Client,
			Email:           record.Email,
			Value:           record.Value,
			LastModified:    record.LastActivity(),
			DaysSinceUpdate: ceilDays(now.Sub(record.LastActivity())),
		})
	}
	return topN(out, abandonedCartsLimit, func(a, b domain.AbandonedCart) int {
		return cmp.Compare(b.Value, a.Value)
	})
}

func pendingSalesperson(records []domain.FunnelRecord, now time.Time) []domain.PendingSalesperson {
	out := make([]domain.PendingSalesperson, 0)
	for _, record := range records {
		if record.Status != domain.FunnelPendingSalesperson {
			continue
		}
		days := ceilDays(now.Sub(record.LastActivity()))
		out = append(out, domain.PendingSalesperson{
			Client:      record.Client,
			Email:       record.Email,
			Value:       record.Value,
			Since:       record.LastActivity(),
			DaysWaiting: days,
			Urgency:     salespersonUrgency(days),
			SLABreached: days > salespersonSLADays,
		})
	}
	return topN(out, pendingSalespersonLimit, func(a, b domain.PendingSalesperson) int {
		return cmp.Compare(b.DaysWaiting, a.DaysWaiting)
	})
}

func salespersonUrgency(days int) string {
	switch {
	case days > salespersonUrgentDays:
		return domain.StrengthHigh
	case days > salespersonSLADays:
		return domain.StrengthMedium
	default:
		return domain.StrengthLow
	}
}

type funnelCancelledEntry struct {
	name      string
	email     string
	cancelled int
	lost      float64
	last      time.Time
}

func cancelledFunnelClients(records []domain.FunnelRecord, clients *ledger[string, funnelClientEntry]) []domain.FunnelCancelledClient {
	cancelled := newLedger[string, funnelCancelledEntry]()
	for _, record := range records {
		if record.Status != domain.FunnelCancelled {
			continue
		}
		entry := cancelled.entry(record.Email, func() funnelCancelledEntry {
			return funnelCancelledEntry{name: record.Client, email: record.Email}
		})
		entry.cancelled++
		entry.lost += record.Value
		entry.last = latest(entry.last, record.LastActivity())
	}

	out := make([]domain.FunnelCancelledClient, 0, cancelled.len())
	for _, entry := range cancelled.values() {
		total := entry.cancelled
		if client, ok := clients.get(entry.email); ok {
			total = client.records
		}
		out = append(out, domain.FunnelCancelledClient{
			Client:           entry.name,
			Email:            entry.email,
			CancelledOrders:  entry.cancelled,
			TotalOrders:      total,
			CancellationRate: percent(float64(entry.cancelled), float64(total)),
			LostValue:        entry.lost,
			LastCancellation: entry.last,
		})
	}
	return topN(out, cancelledFunnelClientsLimit, func(a, b domain.FunnelCancelledClient) int {
		return cmp.Compare(b.LostValue, a.LostValue)
	})
}

func approvedClients(records []domain.FunnelRecord, now time.Time) []domain.ApprovedClient {
	out := make([]domain.ApprovedClient, 0)
	for _, record := range records {
		if record.Status != domain.FunnelApproved {
			continue
		}
		days := ceilDays(now.Sub(record.LastActivity()))
		out = append(out, domain.ApprovedClient{
			Client:           record.Client,
			Email:            record.Email,
			Value:            record.Value,
			ApprovedAt:       record.LastActivity(),
			DaysInProduction: days,
			ProductionStatus: productionStatus(days),
		})
	}
	return topN(out, approvedClientsLimit, func(a, b domain.ApprovedClient) int {
		return cmp.Compare(b.DaysInProduction, a.DaysInProduction)
	})
}

func productionStatus(days int) string {
	switch {
	case days <= productionAttentionDays:
		return domain.ProductionNormal
	case days <= productionDelayedDays:
		return domain.ProductionAttention
	default:
		return domain.ProductionDelayed
	}
}

func funnelRecentMetrics(records []domain.FunnelRecord, now time.Time) domain.FunnelRecentMetrics {
	cutoff := now.Add(-recentWindowDays * day)
	metrics := domain.FunnelRecentMetrics{}
	emails := make(set)
	total := 0
	for _, record := range records {
		if record.CreatedAt.Before(cutoff) {
			continue
		}
		total++
		emails.add(record.Email)
		switch {
		case record.Status.Converted():
			metrics.ConvertedOrders++
			metrics.Revenue += record.Value
		case record.Status == domain.FunnelPendingApproval:
			metrics.AbandonedCarts++
		}
	}
	metrics.NewClients = len(emails)
	metrics.ConversionRate = percent(float64(metrics.ConvertedOrders), float64(total))
	return metrics
}
