package domain

import (
	"strings"
	"time"
)

// OrderStatus is the closed classification of a sales line item's free-text status.
type OrderStatus string

const (
	StatusBilled    OrderStatus = "billed"
	StatusCancelled OrderStatus = "cancelled"
	StatusOther     OrderStatus = "other"
)

type Client struct {
	Document string `json:"document"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
}

// SalesLineItem is one product line within an order. Status is normalized once
// at ingestion; RawStatus keeps the source text for display only.
type SalesLineItem struct {
	OrderID       string      `json:"order_id"`
	Date          time.Time   `json:"date"`
	Client        Client      `json:"client"`
	ProductName   string      `json:"product_name"`
	UnitPrice     float64     `json:"unit_price"`
	LineTotal     float64     `json:"line_total"`
	Quantity      int         `json:"quantity"`
	RawStatus     string      `json:"raw_status"`
	Status        OrderStatus `json:"status"`
	Coupon        string      `json:"coupon,omitempty"`
	Courier       string      `json:"courier,omitempty"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	Discounts     string      `json:"discounts,omitempty"`
}

// SalesFilter selects the records a snapshot is computed over. Zero bounds are
// open; an empty channel list selects every channel.
type SalesFilter struct {
	Start    time.Time `json:"start,omitempty"`
	End      time.Time `json:"end,omitempty"`
	Channels []string  `json:"channels,omitempty"`
}

func (f SalesFilter) Bounded() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}

// FunnelStatus is the closed set of states a funnel record can occupy.
type FunnelStatus string

const (
	FunnelPendingApproval    FunnelStatus = "pending-approval"
	FunnelPendingSalesperson FunnelStatus = "pending-salesperson"
	FunnelApproved           FunnelStatus = "approved"
	FunnelFinalized          FunnelStatus = "finalized"
	FunnelDelivered          FunnelStatus = "delivered"
	FunnelCancelled          FunnelStatus = "cancelled"
)

// FunnelStatuses lists every funnel state in pipeline order.
var FunnelStatuses = []FunnelStatus{
	FunnelPendingApproval,
	FunnelPendingSalesperson,
	FunnelApproved,
	FunnelFinalized,
	FunnelDelivered,
	FunnelCancelled,
}

// Converted reports whether the status counts as a paid order.
func (s FunnelStatus) Converted() bool {
	return s == FunnelApproved || s == FunnelFinalized || s == FunnelDelivered
}

func ParseFunnelStatus(raw string) (FunnelStatus, bool) {
	candidate := FunnelStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range FunnelStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

type FunnelRecord struct {
	Client     string       `json:"client"`
	Email      string       `json:"email"`
	RawStatus  string       `json:"raw_status"`
	Status     FunnelStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ModifiedAt time.Time    `json:"modified_at,omitempty"`
	Value      float64      `json:"value"`
}

// LastActivity is the modification date, falling back to the creation date.
func (r FunnelRecord) LastActivity() time.Time {
	if !r.ModifiedAt.IsZero() {
		return r.ModifiedAt
	}
	return r.CreatedAt
}

type FunnelFilter struct {
	Start    time.Time      `json:"start,omitempty"`
	End      time.Time      `json:"end,omitempty"`
	Statuses []FunnelStatus `json:"statuses,omitempty"`
	MinValue float64        `json:"min_value,omitempty"`
	MaxValue float64        `json:"max_value,omitempty"`
}

type IngestReport struct {
	BatchID  string `json:"batch_id"`
	Files    int    `json:"files"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Total    int    `json:"total"`
}
