package domain

import "time"

const (
	ProductionNormal    = "Normal"
	ProductionAttention = "Attention"
	ProductionDelayed   = "Delayed"
)

type FunnelTotals struct {
	Records          int     `json:"records"`
	Clients          int     `json:"clients"`
	TotalValue       float64 `json:"total_value"`
	Revenue          float64 `json:"revenue"`
	ConvertedOrders  int     `json:"converted_orders"`
	CancelledOrders  int     `json:"cancelled_orders"`
	ConversionRate   float64 `json:"conversion_rate"`
	CancellationRate float64 `json:"cancellation_rate"`
	AverageTicket    float64 `json:"average_ticket"`
}

type FunnelStageMetric struct {
	Status     FunnelStatus `json:"status"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
	Value      float64      `json:"value"`
}

type FunnelClientMetric struct {
	Client        string    `json:"client"`
	Email         string    `json:"email"`
	Records       int       `json:"records"`
	Converted     int       `json:"converted"`
	Revenue       float64   `json:"revenue"`
	AverageTicket float64   `json:"average_ticket"`
	FirstActivity time.Time `json:"first_activity"`
	LastActivity  time.Time `json:"last_activity"`
}

type FunnelRecurrentClient struct {
	FunnelClientMetric
	AverageIntervalDays int  `json:"average_interval_days"`
	DaysSinceLast       int  `json:"days_since_last"`
	Active              bool `json:"active"`
}

type AbandonedCart struct {
	Client          string    `json:"client"`
	Email           string    `json:"email"`
	Value           float64   `json:"value"`
	LastModified    time.Time `json:"last_modified"`
	DaysSinceUpdate int       `json:"days_since_update"`
}

type PendingSalesperson struct {
	Client      string    `json:"client"`
	Email       string    `json:"email"`
	Value       float64   `json:"value"`
	Since       time.Time `json:"since"`
	DaysWaiting int       `json:"days_waiting"`
	Urgency     string    `json:"urgency"`
	SLABreached bool      `json:"sla_breached"`
}

type FunnelCancelledClient struct {
	Client           string    `json:"client"`
	Email            string    `json:"email"`
	CancelledOrders  int       `json:"cancelled_orders"`
	TotalOrders      int       `json:"total_orders"`
	CancellationRate float64   `json:"cancellation_rate"`
	LostValue        float64   `json:"lost_value"`
	LastCancellation time.Time `json:"last_cancellation"`
}

type ApprovedClient struct {
	Client           string    `json:"client"`
	Email            string    `json:"email"`
	Value            float64   `json:"value"`
	ApprovedAt       time.Time `json:"approved_at"`
	DaysInProduction int       `json:"days_in_production"`
	ProductionStatus string    `json:"production_status"`
}

type FunnelRecentMetrics struct {
	NewClients      int     `json:"new_clients"`
	ConvertedOrders int     `json:"converted_orders"`
	Revenue         float64 `json:"revenue"`
	AbandonedCarts  int     `json:"abandoned_carts"`
	ConversionRate  float64 `json:"conversion_rate"`
}

type FunnelSnapshot struct {
	GeneratedAt        time.Time               `json:"generated_at"`
	Filter             FunnelFilter            `json:"filter"`
	Totals             FunnelTotals            `json:"totals"`
	Breakdown          []FunnelStageMetric     `json:"breakdown"`
	BestClients        []FunnelClientMetric    `json:"best_clients"`
	RecurrentClients   []FunnelRecurrentClient `json:"recurrent_clients"`
	AbandonedCarts     []AbandonedCart         `json:"abandoned_carts"`
	PendingSalesperson []PendingSalesperson    `json:"pending_salesperson"`
	CancelledClients   []FunnelCancelledClient `json:"cancelled_clients"`
	ApprovedClients    []ApprovedClient        `json:"approved_clients"`
	Last30Days         FunnelRecentMetrics     `json:"last_30_days"`
}
