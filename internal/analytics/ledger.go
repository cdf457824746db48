package analytics

import (
	"math"
	"slices"
	"time"
)

const day = 24 * time.Hour

// ledger is a keyed accumulator that remembers first-insertion order, so every
// view built from it is reproducible without relying on map iteration.
type ledger[K comparable, V any] struct {
	index map[K]*V
	keys  []K
}

func newLedger[K comparable, V any]() *ledger[K, V] {
	return &ledger[K, V]{index: make(map[K]*V)}
}

// entry returns the accumulator for key, seeding it on first use.
func (l *ledger[K, V]) entry(key K, seed func() V) *V {
	if current, ok := l.index[key]; ok {
		return current
	}
	value := seed()
	l.index[key] = &value
	l.keys = append(l.keys, key)
	return &value
}

func (l *ledger[K, V]) get(key K) (*V, bool) {
	value, ok := l.index[key]
	return value, ok
}

func (l *ledger[K, V]) len() int {
	return len(l.keys)
}

func (l *ledger[K, V]) values() []*V {
	out := make([]*V, 0, len(l.keys))
	for _, key := range l.keys {
		out = append(out, l.index[key])
	}
	return out
}

// topN stable-sorts items by cmp and keeps at most limit of them. Ties keep
// their insertion order. The result is never nil.
func topN[T any](items []T, limit int, cmp func(a, b T) int) []T {
	if items == nil {
		items = []T{}
	}
	slices.SortStableFunc(items, cmp)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

type set map[string]struct{}

func (s set) add(value string) {
	if value == "" {
		return
	}
	s[value] = struct{}{}
}

func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func percent(numerator, denominator float64) float64 {
	return ratio(numerator, denominator) * 100
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// ceilDays rounds an elapsed duration up to whole days.
func ceilDays(elapsed time.Duration) int {
	return int(math.Ceil(elapsed.Hours() / 24))
}

// averageIntervalDays is the ceiling of the mean whole-day gap between
// consecutive dates, or 0 when fewer than two dates exist.
func averageIntervalDays(dates []time.Time) int {
	if len(dates) < 2 {
		return 0
	}
	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	total := 0
	for i := 1; i < len(sorted); i++ {
		total += ceilDays(sorted[i].Sub(sorted[i-1]))
	}
	return int(math.Ceil(float64(total) / float64(len(sorted)-1)))
}

func earliest(current, candidate time.Time) time.Time {
	if current.IsZero() || candidate.Before(current) {
		return candidate
	}
	return current
}

func latest(current, candidate time.Time) time.Time {
	if candidate.After(current) {
		return candidate
	}
	return current
}
