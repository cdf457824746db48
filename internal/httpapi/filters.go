package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vellum/backend/internal/domain"
)

const dateLayout = "2006-01-02"

func parseSalesFilter(query url.Values) (domain.SalesFilter, error) {
	start, end, err := parseDateRange(query)
	if err != nil {
		return domain.SalesFilter{}, err
	}
	return domain.SalesFilter{
		Start:    start,
		End:      end,
		Channels: splitList(query.Get("channels")),
	}, nil
}

func parseFunnelFilter(query url.Values) (domain.FunnelFilter, error) {
	start, end, err := parseDateRange(query)
	if err != nil {
		return domain.FunnelFilter{}, err
	}
	filter := domain.FunnelFilter{Start: start, End: end}

	for _, raw := range splitList(query.Get("status")) {
		status, ok := domain.ParseFunnelStatus(raw)
		if !ok {
			return domain.FunnelFilter{}, fmt.Errorf("unknown funnel status %q", raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if filter.MinValue, err = parseAmount(query, "min_value"); err != nil {
		return domain.FunnelFilter{}, err
	}
	if filter.MaxValue, err = parseAmount(query, "max_value"); err != nil {
		return domain.FunnelFilter{}, err
	}
	if filter.MaxValue > 0 && filter.MinValue > filter.MaxValue {
		return domain.FunnelFilter{}, fmt.Errorf("min_value must not exceed max_value")
	}
	return filter, nil
}

func parseDateRange(query url.Values) (time.Time, time.Time, error) {
	start, err := parseDay(query, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDay(query, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end must not be before start")
	}
	return start, end, nil
}

func parseDay(query url.Values, key string) (time.Time, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", key)
	}
	return day, nil
}

func parseAmount(query url.Values, key string) (float64, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number", key)
	}
	return value, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}
