package export

import (
	"errors"
	"slices"

	"vellum/backend/internal/domain"
)

var ErrUnknownView = errors.New("unknown export view")

var salesViews = map[string]func(domain.SalesSnapshot) any{
	"top-products":       func(s domain.SalesSnapshot) any { return s.TopProducts },
	"top-clients":        func(s domain.SalesSnapshot) any { return s.TopClients },
	"recurrent-clients":  func(s domain.SalesSnapshot) any { return s.RecurrentClients },
	"new-clients":        func(s domain.SalesSnapshot) any { return s.NewClients },
	"inactive-clients":   func(s domain.SalesSnapshot) any { return s.InactiveClients },
	"cancelled-clients":  func(s domain.SalesSnapshot) any { return s.CancelledClients },
	"channels":           func(s domain.SalesSnapshot) any { return s.Channels },
	"channel-growth":     func(s domain.SalesSnapshot) any { return s.ChannelGrowth },
	"product-quality":    func(s domain.SalesSnapshot) any { return s.ProductQuality },
	"stopped-products":   func(s domain.SalesSnapshot) any { return s.StoppedProducts },
	"cancelled-products": func(s domain.SalesSnapshot) any { return s.CancelledProducts },
	"recurrent-products": func(s domain.SalesSnapshot) any { return s.RecurrentProducts },
	"growth-potential":   func(s domain.SalesSnapshot) any { return s.GrowthPotential },
	"coupons":            func(s domain.SalesSnapshot) any { return s.Coupons },
	"regions":            func(s domain.SalesSnapshot) any { return s.Regions },
	"couriers":           func(s domain.SalesSnapshot) any { return s.Couriers },
	"combinations":       func(s domain.SalesSnapshot) any { return s.Combinations },
}

var funnelViews = map[string]func(domain.FunnelSnapshot) any{
	"breakdown":           func(s domain.FunnelSnapshot) any { return s.Breakdown },
	"best-clients":        func(s domain.FunnelSnapshot) any { return s.BestClients },
	"recurrent-clients":   func(s domain.FunnelSnapshot) any { return s.RecurrentClients },
	"abandoned-carts":     func(s domain.FunnelSnapshot) any { return s.AbandonedCarts },
	"pending-salesperson": func(s domain.FunnelSnapshot) any { return s.PendingSalesperson },
	"cancelled-clients":   func(s domain.FunnelSnapshot) any { return s.CancelledClients },
	"approved-clients":    func(s domain.FunnelSnapshot) any { return s.ApprovedClients },
}

// SalesView returns the named list of a sales snapshot.
func SalesView(snapshot domain.SalesSnapshot, name string) (any, error) {
	view, ok := salesViews[name]
	if !ok {
		return nil, ErrUnknownView
	}
	return view(snapshot), nil
}

// FunnelView returns the named list of a funnel snapshot.
func FunnelView(snapshot domain.FunnelSnapshot, name string) (any, error) {
	view, ok := funnelViews[name]
	if !ok {
		return nil, ErrUnknownView
	}
	return view(snapshot), nil
}

func SalesViewNames() []string {
	return sortedKeys(salesViews)
}

func FunnelViewNames() []string {
	return sortedKeys(funnelViews)
}

func sortedKeys[V any](views map[string]V) []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
