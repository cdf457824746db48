package analytics

import (
	"time"

	"vellum/backend/internal/domain"
)

// Engine recomputes snapshots from a raw record list. It holds no record state
// and is safe for concurrent use.
type Engine struct {
	now      func() time.Time
	previous PreviousPeriod
}

type Option func(*Engine)

// WithClock fixes the reference time used for the cohort windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithPreviousPeriod(previous PreviousPeriod) Option {
	return func(e *Engine) {
		if previous != nil {
			e.previous = previous
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		now:      time.Now,
		previous: SyntheticPrevious{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// ComparedTo returns a copy of the engine measuring channel growth against previous.
func (e *Engine) ComparedTo(previous PreviousPeriod) *Engine {
	clone := *e
	WithPreviousPeriod(previous)(&clone)
	return &clone
}

// Compute filters records and derives every sales view from the result.
func (e *Engine) Compute(records []domain.SalesLineItem, filter domain.SalesFilter) domain.SalesSnapshot {
	now := e.now()
	filtered := FilterSales(records, filter)

	book := buildOrderBook(filtered)
	products := buildProductLedger(filtered, now)
	clients := buildClientLedger(book)
	channels := channelPerformance(buildChannelLedger(filtered, book))

	return domain.SalesSnapshot{
		GeneratedAt:       now,
		Filter:            filter,
		Totals:            computeTotals(filtered, book),
		TopProducts:       topProducts(products),
		TopClients:        topClients(clients),
		RecurrentClients:  recurrentClients(clients),
		NewClients:        newClients(clients, now),
		InactiveClients:   inactiveClients(clients, now),
		CancelledClients:  cancelledClients(book),
		Channels:          channels,
		ChannelGrowth:     channelGrowth(channels, e.previous),
		GrowthSource:      e.previous.Source(),
		ProductQuality:    productQuality(products),
		StoppedProducts:   stoppedProducts(products, now),
		CancelledProducts: cancelledProducts(filtered, products),
		RecurrentProducts: recurrentProducts(products),
		GrowthPotential:   growthPotential(products),
		Coupons:           coupons(filtered),
		Regions:           regions(filtered, book),
		Couriers:          couriers(book),
		Combinations:      combinations(mineCombinations(book)),
	}
}

// ChannelTotals returns the billed orders and revenue per channel for the
// records passing filter. It feeds ObservedPrevious for an earlier window.
func (e *Engine) ChannelTotals(records []domain.SalesLineItem, filter domain.SalesFilter) ObservedPrevious {
	filtered := FilterSales(records, filter)
	book := buildOrderBook(filtered)

	out := make(ObservedPrevious)
	for _, current := range book.billed.values() {
		totals := out[current.channel]
		totals.Orders++
		totals.Revenue += current.total
		out[current.channel] = totals
	}
	return out
}

// PreviousWindow is the filter covering the span of equal length immediately
// before a bounded filter's start. ok is false for open-ended filters.
func PreviousWindow(filter domain.SalesFilter) (domain.SalesFilter, bool) {
	if !filter.Bounded() {
		return domain.SalesFilter{}, false
	}
	start := startOfDay(filter.Start)
	end := startOfDay(filter.End)
	if end.Before(start) {
		return domain.SalesFilter{}, false
	}
	span := end.Sub(start) + day
	return domain.SalesFilter{
		Start:    start.Add(-span),
		End:      start.Add(-day),
		Channels: filter.Channels,
	}, true
}
