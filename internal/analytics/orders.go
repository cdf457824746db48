package analytics

import (
	"strings"
	"time"

	"vellum/backend/internal/domain"
)

type orderKey struct {
	client string
	id     string
}

// order is the order-grain view of the line items sharing a (client, order id).
type order struct {
	key      orderKey
	date     time.Time
	client   domain.Client
	channel  string
	courier  string
	total    float64
	products []string
	seen     set
}

// orderBook groups the filtered line items by order once, so every order-grain
// ledger reads the same grouping.
type orderBook struct {
	billed    *ledger[orderKey, order]
	cancelled *ledger[orderKey, order]
}

func buildOrderBook(records []domain.SalesLineItem) orderBook {
	book := orderBook{
		billed:    newLedger[orderKey, order](),
		cancelled: newLedger[orderKey, order](),
	}

	for _, record := range records {
		var target *ledger[orderKey, order]
		switch record.Status {
		case domain.StatusBilled:
			target = book.billed
		case domain.StatusCancelled:
			target = book.cancelled
		default:
			continue
		}

		key := orderKey{client: record.Client.Document, id: record.OrderID}
		current := target.entry(key, func() order {
			return order{
				key:     key,
				date:    record.Date,
				client:  record.Client,
				channel: ClassifyChannel(record.OrderID),
				seen:    make(set),
			}
		})

		current.total += record.LineTotal
		current.date = earliest(current.date, record.Date)
		if current.courier == "" {
			current.courier = strings.TrimSpace(record.Courier)
		}
		if record.ProductName != "" {
			if _, exists := current.seen[record.ProductName]; !exists {
				current.seen.add(record.ProductName)
				current.products = append(current.products, record.ProductName)
			}
		}
	}

	return book
}

func computeTotals(records []domain.SalesLineItem, book orderBook) domain.Totals {
	totals := domain.Totals{}
	clients := make(set)
	for _, record := range records {
		switch record.Status {
		case domain.StatusBilled:
			totals.Revenue += record.LineTotal
			totals.BilledLineItems++
			clients.add(record.Client.Document)
		case domain.StatusCancelled:
			totals.CancelledLineItems++
		}
	}

	totals.Orders = book.billed.len()
	totals.CancelledOrders = book.cancelled.len()
	totals.Clients = len(clients)
	totals.AverageOrderValue = ratio(totals.Revenue, float64(totals.Orders))
	totals.CancellationRate = percent(float64(totals.CancelledOrders), float64(totals.Orders+totals.CancelledOrders))
	totals.LineCancellationRate = percent(float64(totals.CancelledLineItems), float64(len(records)))
	return totals
}
