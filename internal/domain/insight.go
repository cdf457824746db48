package domain

import "time"

const (
	InsightSourceCache     = "cache"
	InsightSourceGenerator = "generator"
	InsightSourceFallback  = "fallback"
)

type Insight struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	ActionType     string   `json:"action_type"`
	Implementation []string `json:"implementation"`
	ExpectedImpact string   `json:"expected_impact"`
	Metrics        []string `json:"metrics"`
}

type InsightResult struct {
	Insights    []Insight `json:"insights"`
	Source      string    `json:"source"`
	DataHash    string    `json:"data_hash"`
	GeneratedAt time.Time `json:"generated_at"`
}

type CacheInfo struct {
	Exists  bool      `json:"exists"`
	SavedAt time.Time `json:"saved_at,omitempty"`
	Age     string    `json:"age,omitempty"`
}
