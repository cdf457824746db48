package analytics

import (
	"slices"
	"time"

	"vellum/backend/internal/domain"
)

// FilterSales keeps the records whose date falls inside the inclusive day range
// and whose channel is selected. Records without a date never pass.
func FilterSales(records []domain.SalesLineItem, filter domain.SalesFilter) []domain.SalesLineItem {
	out := make([]domain.SalesLineItem, 0, len(records))
	for _, record := range records {
		if !withinDays(record.Date, filter.Start, filter.End) {
			continue
		}
		if len(filter.Channels) > 0 && !slices.Contains(filter.Channels, ClassifyChannel(record.OrderID)) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// FilterFunnel applies the date range to each record's last activity, then the
// status set and the value bounds. Zero value bounds are open.
func FilterFunnel(records []domain.FunnelRecord, filter domain.FunnelFilter) []domain.FunnelRecord {
	out := make([]domain.FunnelRecord, 0, len(records))
	for _, record := range records {
		if !withinDays(record.LastActivity(), filter.Start, filter.End) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, record.Status) {
			continue
		}
		if filter.MinValue > 0 && record.Value < filter.MinValue {
			continue
		}
		if filter.MaxValue > 0 && record.Value > filter.MaxValue {
			continue
		}
		out = append(out, record)
	}
	return out
}

// withinDays treats start as 00:00:00 and end as 23:59:59 of their days.
func withinDays(value, start, end time.Time) bool {
	if value.IsZero() {
		return false
	}
	if !start.IsZero() && value.Before(startOfDay(start)) {
		return false
	}
	if !end.IsZero() && value.After(startOfDay(end).Add(day-time.Second)) {
		return false
	}
	return true
}

func startOfDay(value time.Time) time.Time {
	year, month, dayOfMonth := value.Date()
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, value.Location())
}
