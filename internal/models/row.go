package models

import (
	"strings"
)

// Row is one spreadsheet row as delivered by the parser: a string-keyed
// mapping of cell values. Meter sheets carry dynamic reading columns, so a
// Row keeps unknown keys verbatim alongside the canonical ones.
type Row map[string]string

// Canonical field names shared by the validators and the enricher.
const (
	FieldDate        = "Date"
	FieldTime        = "Time"
	FieldPOA         = "POA"
	FieldGHI         = "GHI"
	FieldAlbedoUp    = "Albedo Up"
	FieldAlbedoDown  = "Albedo Down"
	FieldModuleTemp  = "Module Temperature"
	FieldAmbientTemp = "Ambient Temperature"
	FieldWindSpeed   = "Wind Speed"
	FieldRainfall    = "Rainfall"
	FieldHumidity    = "Humidity"
	FieldSiteName    = "Site Name"
	FieldStartTime   = "Start Time"
	FieldStopTime    = "Stop Time"
)

// Derived fields attached by the meter enricher. They overwrite any
// user-supplied value for the same key.
const (
	FieldPlantStartTime     = "Plant Start Time"
	FieldPlantStopTime      = "Plant Stop Time"
	FieldTotalOperatingTime = "Total Operating Time"
	FieldGSSExportTotal     = "GSS Export Total"
	FieldGSSImportTotal     = "GSS Import Total"
	FieldNetExportAtGSS     = "Net Export @ GSS"
)

// fieldSynonyms maps loosely-spelled header names (lowercased, separators
// collapsed) onto canonical field names. Export headers vary by site and
// by the tool that produced the sheet.
var fieldSynonyms = map[string]string{
	"date":         FieldDate,
	"reading date": FieldDate,
	"sample date":  FieldDate,

	"time":         FieldTime,
	"reading time": FieldTime,
	"sample time":  FieldTime,

	"poa":             FieldPOA,
	"poa irradiance":  FieldPOA,
	"plane of array":  FieldPOA,
	"ghi":             FieldGHI,
	"ghi irradiance":  FieldGHI,
	"albedo up":       FieldAlbedoUp,
	"albedoup":        FieldAlbedoUp,
	"albedo down":     FieldAlbedoDown,
	"albedodown":      FieldAlbedoDown,

	"module temperature":  FieldModuleTemp,
	"module temp":         FieldModuleTemp,
	"mod temp":            FieldModuleTemp,
	"ambient temperature": FieldAmbientTemp,
	"ambient temp":        FieldAmbientTemp,
	"amb temp":            FieldAmbientTemp,

	"wind speed":        FieldWindSpeed,
	"windspeed":         FieldWindSpeed,
	"rainfall":          FieldRainfall,
	"rain":              FieldRainfall,
	"humidity":          FieldHumidity,
	"relative humidity": FieldHumidity,

	"site name":  FieldSiteName,
	"site":       FieldSiteName,
	"plant name": FieldSiteName,

	"start time": FieldStartTime,
	"stop time":  FieldStopTime,
	"end time":   FieldStopTime,

	"plant start time":     FieldPlantStartTime,
	"plant stop time":      FieldPlantStopTime,
	"total operating time": FieldTotalOperatingTime,
}

// NormalizeKey collapses a header spelling for synonym lookup: lowercase,
// separators to single spaces.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "_", " ")
	k = strings.ReplaceAll(k, "-", " ")
	return strings.Join(strings.Fields(k), " ")
}

// CanonicalizeRow maps a row's loose header spellings onto canonical field
// names. It runs once at ingestion so validation and enrichment work
// against fixed names. Keys with no canonical equivalent (dynamic meter
// reading columns among them) are kept with whitespace trimmed; on a
// collision the first occurrence wins.
func CanonicalizeRow(row Row) Row {
	out := make(Row, len(row))
	for key, value := range row {
		canonical, ok := fieldSynonyms[NormalizeKey(key)]
		if !ok {
			canonical = strings.TrimSpace(key)
		}
		if _, exists := out[canonical]; exists {
			continue
		}
		out[canonical] = strings.TrimSpace(value)
	}
	return out
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the trimmed value for a canonical field name.
func (r Row) Get(field string) string {
	return strings.TrimSpace(r[field])
}

// Has reports whether the field is present with a non-blank value.
func (r Row) Has(field string) bool {
	return r.Get(field) != ""
}
