package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RecordStatus tracks whether a record is still being corrected or has
// been submitted to the store.
type RecordStatus string

const (
	StatusDraft     RecordStatus = "draft"
	StatusSubmitted RecordStatus = "submitted"
)

// WeatherSample is one sensor reading instant. Dates are kept in the
// weather dialect (DD-MMM-YY) and times as HH:MM; the (Date, Time) pair is
// unique within a site's dataset.
type WeatherSample struct {
	ID          int64        `json:"id" db:"id"`
	SiteName    string       `json:"site_name" db:"site_name"`
	Date        string       `json:"date" db:"sample_date"`
	Time        string       `json:"time" db:"sample_time"`
	POA         *float64     `json:"poa,omitempty" db:"poa"`
	GHI         *float64     `json:"ghi,omitempty" db:"ghi"`
	AlbedoUp    *float64     `json:"albedo_up,omitempty" db:"albedo_up"`
	AlbedoDown  *float64     `json:"albedo_down,omitempty" db:"albedo_down"`
	ModuleTemp  *float64     `json:"module_temp,omitempty" db:"module_temp"`
	AmbientTemp *float64     `json:"ambient_temp,omitempty" db:"ambient_temp"`
	WindSpeed   *float64     `json:"wind_speed,omitempty" db:"wind_speed"`
	Rainfall    *float64     `json:"rainfall,omitempty" db:"rainfall"`
	Humidity    *float64     `json:"humidity,omitempty" db:"humidity"`
	Status      RecordStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// MeterReadingPair is one matched Initial/Final column pair from a meter
// row, with its computed total.
type MeterReadingPair struct {
	Initial float64 `json:"initial"`
	Final   float64 `json:"final"`
	Total   float64 `json:"total"`
}

// MeterRecord is one day of electrical meter readings. Dates are kept in
// the meter dialect (DD-MM-YYYY); one record per date. The plant
// start/stop/operating-time fields are derived from correlated weather and
// recomputed on every validation pass, never taken from user input.
type MeterRecord struct {
	ID                 int64                       `json:"id" db:"id"`
	SiteName           string                      `json:"site_name" db:"site_name"`
	Date               string                      `json:"date" db:"record_date"`
	Time               string                      `json:"time" db:"record_time"`
	PlantStartTime     string                      `json:"plant_start_time" db:"plant_start_time"`
	PlantStopTime      string                      `json:"plant_stop_time" db:"plant_stop_time"`
	TotalOperatingTime string                      `json:"total_operating_time" db:"total_operating_time"`
	GSSExportTotal     *float64                    `json:"gss_export_total,omitempty" db:"gss_export_total"`
	GSSImportTotal     *float64                    `json:"gss_import_total,omitempty" db:"gss_import_total"`
	NetExportAtGSS     *float64                    `json:"net_export_at_gss,omitempty" db:"net_export_at_gss"`
	Readings           ReadingsMap                 `json:"readings" db:"readings"`
	Status             RecordStatus                `json:"status" db:"status"`
	CreatedAt          time.Time                   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at" db:"updated_at"`
}

// ReadingsMap stores the per-meter reading pairs as JSONB.
type ReadingsMap map[string]MeterReadingPair

// Value implements driver.Valuer for JSONB storage.
func (m ReadingsMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (m *ReadingsMap) Scan(src interface{}) error {
	if src == nil {
		*m = ReadingsMap{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("readings: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, m)
}

// ParseNumeric interprets a cell value as a float. Blank cells are
// reported as absent, not invalid.
func ParseNumeric(value string) (v float64, present bool, valid bool) {
	if value == "" {
		return 0, false, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, true, false
	}
	return f, true, true
}
