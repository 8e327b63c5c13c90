// internal/domain/models.go
package domain

import "time"

// PlanReport is the outcome of one planning run as returned to callers.
type PlanReport struct {
	RunID       string       `json:"run_id"`
	Date        string       `json:"date"`
	Orders      []Order      `json:"orders"`
	Escalations []Escalation `json:"escalations"`
	Evaluated   int          `json:"evaluated"`
	TotalUnits  int          `json:"total_units"`
	ExportKey   string       `json:"export_key,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	Duration    string       `json:"duration"`
}

// Promotion is an item currently flagged as discounted.
type Promotion struct {
	SKU    string `json:"sku"`
	OnSale bool   `json:"on_sale"`
}

// DateLayout is the calendar date format accepted at the API and CLI edges.
const DateLayout = "2006-01-02"
