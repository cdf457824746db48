package domain

import "time"

const (
	DirectionUp     = "up"
	DirectionDown   = "down"
	DirectionStable = "stable"

	StrengthHigh   = "High"
	StrengthMedium = "Medium"
	StrengthLow    = "Low"

	GrowthSynthetic      = "synthetic"
	GrowthPreviousPeriod = "previous-period"
)

// Totals holds the headline figures of a sales snapshot. Orders are counted at
// order grain; the line-grain counts are exposed alongside for reconciliation.
type Totals struct {
	Revenue              float64 `json:"revenue"`
	Orders               int     `json:"orders"`
	BilledLineItems      int     `json:"billed_line_items"`
	Clients              int     `json:"clients"`
	AverageOrderValue    float64 `json:"average_order_value"`
	CancelledOrders      int     `json:"cancelled_orders"`
	CancelledLineItems   int     `json:"cancelled_line_items"`
	CancellationRate     float64 `json:"cancellation_rate"`
	LineCancellationRate float64 `json:"line_cancellation_rate"`
}

type ProductMetric struct {
	Name         string  `json:"name"`
	Sales        int     `json:"sales"`
	Revenue      float64 `json:"revenue"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
}

type ClientMetric struct {
	Document          string    `json:"document"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	City              string    `json:"city"`
	Orders            int       `json:"orders"`
	TotalSpent        float64   `json:"total_spent"`
	AverageOrderValue float64   `json:"average_order_value"`
	FirstPurchase     time.Time `json:"first_purchase"`
	LastPurchase      time.Time `json:"last_purchase"`
}

type RecurrentClient struct {
	ClientMetric
	AverageIntervalDays int `json:"average_interval_days"`
}

type NewClient struct {
	ClientMetric
	DaysSinceFirstPurchase int `json:"days_since_first_purchase"`
}

type InactiveClient struct {
	ClientMetric
	AverageIntervalDays   int     `json:"average_interval_days"`
	DaysSinceLastPurchase int     `json:"days_since_last_purchase"`
	PotentialLoss         float64 `json:"potential_loss"`
}

type CancelledClient struct {
	Document         string    `json:"document"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	CancelledOrders  int       `json:"cancelled_orders"`
	TotalOrders      int       `json:"total_orders"`
	CancellationRate float64   `json:"cancellation_rate"`
	LostRevenue      float64   `json:"lost_revenue"`
	LastCancellation time.Time `json:"last_cancellation"`
}

type ChannelMetric struct {
	Channel            string  `json:"channel"`
	Orders             int     `json:"orders"`
	Revenue            float64 `json:"revenue"`
	AverageOrderValue  float64 `json:"average_order_value"`
	TopProduct         string  `json:"top_product"`
	TopProductQuantity int     `json:"top_product_quantity"`
	MarketShare        float64 `json:"market_share"`
}

type ChannelGrowthMetric struct {
	Channel           string  `json:"channel"`
	CurrentOrders     int     `json:"current_orders"`
	PreviousOrders    int     `json:"previous_orders"`
	CurrentRevenue    float64 `json:"current_revenue"`
	PreviousRevenue   float64 `json:"previous_revenue"`
	OrderGrowthRate   float64 `json:"order_growth_rate"`
	RevenueGrowthRate float64 `json:"revenue_growth_rate"`
	Direction         string  `json:"direction"`
}

type ProductQuality struct {
	Name          string  `json:"name"`
	Sales         int     `json:"sales"`
	Revenue       float64 `json:"revenue"`
	ReturnRate    float64 `json:"return_rate"`
	AverageRating float64 `json:"average_rating"`
	QualityScore  float64 `json:"quality_score"`
}

type StoppedProduct struct {
	Name              string    `json:"name"`
	LastSale          time.Time `json:"last_sale"`
	DaysSinceLastSale int       `json:"days_since_last_sale"`
	TotalSales        int       `json:"total_sales"`
	TotalRevenue      float64   `json:"total_revenue"`
	PotentialLoss     float64   `json:"potential_loss"`
}

type CancelledProduct struct {
	Name              string  `json:"name"`
	CancelledQuantity int     `json:"cancelled_quantity"`
	BilledQuantity    int     `json:"billed_quantity"`
	CancellationRate  float64 `json:"cancellation_rate"`
	LostRevenue       float64 `json:"lost_revenue"`
}

type RecurrentProduct struct {
	Name                  string    `json:"name"`
	Months                int       `json:"months"`
	TotalSales            int       `json:"total_sales"`
	TotalRevenue          float64   `json:"total_revenue"`
	AverageMonthlySales   float64   `json:"average_monthly_sales"`
	AverageMonthlyRevenue float64   `json:"average_monthly_revenue"`
	ConsistencyScore      float64   `json:"consistency_score"`
	Strength              string    `json:"strength"`
	FirstSale             time.Time `json:"first_sale"`
	LastSale              time.Time `json:"last_sale"`
}

type GrowthPotential struct {
	Name             string  `json:"name"`
	Sales            int     `json:"sales"`
	RecentSales      int     `json:"recent_sales"`
	Revenue          float64 `json:"revenue"`
	GrowthRate       float64 `json:"growth_rate"`
	PotentialRevenue float64 `json:"potential_revenue"`
}

type CouponMetric struct {
	Code              string  `json:"code"`
	Uses              int     `json:"uses"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
	Clients           int     `json:"clients"`
}

type RegionMetric struct {
	City              string  `json:"city"`
	Orders            int     `json:"orders"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
	Clients           int     `json:"clients"`
	CancelledOrders   int     `json:"cancelled_orders"`
	CancellationRate  float64 `json:"cancellation_rate"`
	TopProduct        string  `json:"top_product"`
}

type CourierMetric struct {
	Courier           string  `json:"courier"`
	Orders            int     `json:"orders"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
	Clients           int     `json:"clients"`
	CitiesServed      int     `json:"cities_served"`
}

type ProductCombination struct {
	ProductA          string  `json:"product_a"`
	ProductB          string  `json:"product_b"`
	Count             int     `json:"count"`
	TotalRevenue      float64 `json:"total_revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
	ConfidenceScore   float64 `json:"confidence_score"`
	Strength          string  `json:"strength"`
}

// SalesSnapshot is the immutable result of one recomputation over a filtered record set.
type SalesSnapshot struct {
	GeneratedAt       time.Time             `json:"generated_at"`
	Filter            SalesFilter           `json:"filter"`
	Totals            Totals                `json:"totals"`
	TopProducts       []ProductMetric       `json:"top_products"`
	TopClients        []ClientMetric        `json:"top_clients"`
	RecurrentClients  []RecurrentClient     `json:"recurrent_clients"`
	NewClients        []NewClient           `json:"new_clients"`
	InactiveClients   []InactiveClient      `json:"inactive_clients"`
	CancelledClients  []CancelledClient     `json:"cancelled_clients"`
	Channels          []ChannelMetric       `json:"channels"`
	ChannelGrowth     []ChannelGrowthMetric `json:"channel_growth"`
	GrowthSource      string                `json:"growth_source"`
	ProductQuality    []ProductQuality      `json:"product_quality"`
	StoppedProducts   []StoppedProduct      `json:"stopped_products"`
	CancelledProducts []CancelledProduct    `json:"cancelled_products"`
	RecurrentProducts []RecurrentProduct    `json:"recurrent_products"`
	GrowthPotential   []GrowthPotential     `json:"growth_potential"`
	Coupons           []CouponMetric        `json:"coupons"`
	Regions           []RegionMetric        `json:"regions"`
	Couriers          []CourierMetric       `json:"couriers"`
	Combinations      []ProductCombination  `json:"combinations"`
}
