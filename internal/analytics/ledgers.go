package analytics

import (
	"cmp"
	"strings"

	"vellum/backend/internal/domain"
)

const (
	couponsLimit  = 10
	regionsLimit  = 15
	couriersLimit = 10
)

type couponOrderKey struct {
	coupon string
	order  orderKey
}

type couponOrder struct {
	coupon string
	client string
	total  float64
}

type couponEntry struct {
	code    string
	uses    int
	revenue float64
	clients set
}

// coupons groups billed lines by (coupon, order) first, so a coupon counts one
// use per order no matter how many lines carried it.
func coupons(records []domain.SalesLineItem) []domain.CouponMetric {
	orders := newLedger[couponOrderKey, couponOrder]()
	for _, record := range records {
		code := strings.TrimSpace(record.Coupon)
		if record.Status != domain.StatusBilled || code == "" {
			continue
		}
		key := couponOrderKey{coupon: code, order: orderKey{client: record.Client.Document, id: record.OrderID}}
		current := orders.entry(key, func() couponOrder {
			return couponOrder{coupon: code, client: record.Client.Document}
		})
		current.total += record.LineTotal
	}

	byCoupon := newLedger[string, couponEntry]()
	for _, current := range orders.values() {
		entry := byCoupon.entry(current.coupon, func() couponEntry {
			return couponEntry{code: current.coupon, clients: make(set)}
		})
		entry.uses++
		entry.revenue += current.total
		entry.clients.add(current.client)
	}

	out := make([]domain.CouponMetric, 0, byCoupon.len())
	for _, entry := range byCoupon.values() {
		out = append(out, domain.CouponMetric{
			Code:              entry.code,
			Uses:              entry.uses,
			Revenue:           entry.revenue,
			AverageOrderValue: ratio(entry.revenue, float64(entry.uses)),
			Clients:           len(entry.clients),
		})
	}
	return topN(out, couponsLimit, func(a, b domain.CouponMetric) int {
		return cmp.Compare(b.Uses, a.Uses)
	})
}

type regionEntry struct {
	city      string
	orders    int
	revenue   float64
	clients   set
	cancelled int
	products  *ledger[string, int]
}

// regions folds billed and cancelled orders by the client's city. Cities that
// only saw cancellations still appear with zero revenue.
func regions(records []domain.SalesLineItem, book orderBook) []domain.RegionMetric {
	byCity := newLedger[string, regionEntry]()
	seed := func(city string) func() regionEntry {
		return func() regionEntry {
			return regionEntry{city: city, clients: make(set), products: newLedger[string, int]()}
		}
	}

	for _, current := range book.billed.values() {
		city := strings.TrimSpace(current.client.City)
		if city == "" {
			continue
		}
		entry := byCity.entry(city, seed(city))
		entry.orders++
		entry.revenue += current.total
		entry.clients.add(current.key.client)
	}
	for _, current := range book.cancelled.values() {
		city := strings.TrimSpace(current.client.City)
		if city == "" {
			continue
		}
		byCity.entry(city, seed(city)).cancelled++
	}
	for _, record := range records {
		city := strings.TrimSpace(record.Client.City)
		if record.Status != domain.StatusBilled || city == "" || record.ProductName == "" {
			continue
		}
		quantity := byCity.entry(city, seed(city)).products.entry(record.ProductName, func() int { return 0 })
		*quantity += record.Quantity
	}

	out := make([]domain.RegionMetric, 0, byCity.len())
	for _, entry := range byCity.values() {
		product, _ := topByQuantity(entry.products)
		out = append(out, domain.RegionMetric{
			City:              entry.city,
			Orders:            entry.orders,
			Revenue:           entry.revenue,
			AverageOrderValue: ratio(entry.revenue, float64(entry.orders)),
			Clients:           len(entry.clients),
			CancelledOrders:   entry.cancelled,
			CancellationRate:  percent(float64(entry.cancelled), float64(entry.orders+entry.cancelled)),
			TopProduct:        product,
		})
	}
	return topN(out, regionsLimit, func(a, b domain.RegionMetric) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
}

type courierEntry struct {
	name    string
	orders  int
	revenue float64
	clients set
	cities  set
}

func couriers(book orderBook) []domain.CourierMetric {
	byCourier := newLedger[string, courierEntry]()
	for _, current := range book.billed.values() {
		if current.courier == "" {
			continue
		}
		entry := byCourier.entry(current.courier, func() courierEntry {
			return courierEntry{name: current.courier, clients: make(set), cities: make(set)}
		})
		entry.orders++
		entry.revenue += current.total
		entry.clients.add(current.key.client)
		entry.cities.add(strings.TrimSpace(current.client.City))
	}

	out := make([]domain.CourierMetric, 0, byCourier.len())
	for _, entry := range byCourier.values() {
		out = append(out, domain.CourierMetric{
			Courier:           entry.name,
			Orders:            entry.orders,
			Revenue:           entry.revenue,
			AverageOrderValue: ratio(entry.revenue, float64(entry.orders)),
			Clients:           len(entry.clients),
			CitiesServed:      len(entry.cities),
		})
	}
	return topN(out, couriersLimit, func(a, b domain.CourierMetric) int {
		return cmp.Compare(b.Orders, a.Orders)
	})
}
