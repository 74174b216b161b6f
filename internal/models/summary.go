package models

import "time"

// OperationsSummary is a per-site, per-month rollup of submitted meter
// records, recomputed on demand from the records themselves.
type OperationsSummary struct {
	ID                   int64     `json:"id" db:"id"`
	SiteName             string    `json:"site_name" db:"site_name"`
	Month                string    `json:"month" db:"month"` // YYYY-MM
	DaysReported         int       `json:"days_reported" db:"days_reported"`
	TotalOperatingMins   int       `json:"total_operating_minutes" db:"total_operating_minutes"`
	AvgOperatingMins     float64   `json:"avg_operating_minutes" db:"avg_operating_minutes"`
	TotalNetExport       float64   `json:"total_net_export" db:"total_net_export"`
	DaysWithoutWeather   int       `json:"days_without_weather" db:"days_without_weather"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
