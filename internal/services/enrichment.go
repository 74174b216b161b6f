package services

import (
	"regexp"
	"strconv"
	"strings"

	"solar-telemetry-platform/internal/models"
)

// Meter sheets name their reading columns dynamically: each meter
// contributes an Initial/Start column and a Final/End column sharing an
// identifier token and a transaction type, e.g. "Export1 Initial" /
// "Export1 Final" or "GSS Import Start" / "GSS Import End". The pairing is
// declarative over the column names; no meter count is assumed.
var (
	readingKeyPattern   = regexp.MustCompile(`(?i)export|import`)
	initialSuffixRegexp = regexp.MustCompile(`(?i)[\s_-]*(initial|start)\s*$`)
	finalSuffixRegexp   = regexp.MustCompile(`(?i)[\s_-]*(final|end)\s*$`)
	exportTypeRegexp    = regexp.MustCompile(`(?i)export`)
	gssTokenRegexp      = regexp.MustCompile(`(?i)gss`)
)

// IsReadingColumn reports whether a column name denotes a meter reading.
func IsReadingColumn(key string) bool {
	return readingKeyPattern.MatchString(key)
}

// ExtractReadingPairs matches Initial/Final column pairs on a meter row
// and computes their totals. Unmatched initials and non-numeric cells are
// skipped; the validator reports those separately. The result is keyed by
// the pair's identifier (the column name minus its suffix).
func ExtractReadingPairs(row models.Row) map[string]models.MeterReadingPair {
	// Index the Final/End columns by normalized identifier first
	finals := make(map[string]string)
	for key := range row {
		if !IsReadingColumn(key) || !finalSuffixRegexp.MatchString(key) {
			continue
		}
		base := finalSuffixRegexp.ReplaceAllString(key, "")
		finals[models.NormalizeKey(base)] = key
	}

	pairs := make(map[string]models.MeterReadingPair)
	for key := range row {
		if !IsReadingColumn(key) || !initialSuffixRegexp.MatchString(key) {
			continue
		}
		base := strings.TrimSpace(initialSuffixRegexp.ReplaceAllString(key, ""))

		finalKey, ok := finals[models.NormalizeKey(base)]
		if !ok {
			continue
		}

		initial, present, valid := models.ParseNumeric(row.Get(key))
		if !present || !valid {
			continue
		}
		final, present, valid := models.ParseNumeric(row.Get(finalKey))
		if !present || !valid {
			continue
		}

		pairs[base] = models.MeterReadingPair{
			Initial: initial,
			Final:   final,
			Total:   final - initial,
		}
	}

	return pairs
}

// ReadingTotals are the site-level aggregates derived from a row's reading
// pairs.
type ReadingTotals struct {
	GSSExport float64
	GSSImport float64
	NetExport float64
}

// AggregateReadingTotals computes the grid-substation export/import totals
// and the net export. Pairs whose identifier carries a "gss" token count
// as substation readings; when a row has no GSS-tagged pair at all, every
// pair counts instead, preserving the behavior sites without explicit GSS
// columns rely on.
func AggregateReadingTotals(pairs map[string]models.MeterReadingPair) ReadingTotals {
	var gssExport, gssImport, allExport, allImport float64
	hasGSS := false

	for identifier, pair := range pairs {
		isExport := exportTypeRegexp.MatchString(identifier)
		if isExport {
			allExport += pair.Total
		} else {
			allImport += pair.Total
		}
		if gssTokenRegexp.MatchString(identifier) {
			hasGSS = true
			if isExport {
				gssExport += pair.Total
			} else {
				gssImport += pair.Total
			}
		}
	}

	if !hasGSS {
		gssExport = allExport
		gssImport = allImport
	}

	return ReadingTotals{
		GSSExport: gssExport,
		GSSImport: gssImport,
		NetExport: gssExport - gssImport,
	}
}

// EnrichMeterRow merges the derived operating window, per-pair totals and
// site-level aggregates onto a meter row, overwriting any pre-existing
// values for those keys.
func EnrichMeterRow(row models.Row, window OperatingWindow, pairs map[string]models.MeterReadingPair, totals ReadingTotals) {
	row[models.FieldPlantStartTime] = window.StartTime
	row[models.FieldPlantStopTime] = window.StopTime
	row[models.FieldTotalOperatingTime] = window.TotalOperatingTime

	for identifier, pair := range pairs {
		row[identifier+" Total"] = formatReading(pair.Total)
	}

	row[models.FieldGSSExportTotal] = formatReading(totals.GSSExport)
	row[models.FieldGSSImportTotal] = formatReading(totals.GSSImport)
	row[models.FieldNetExportAtGSS] = formatReading(totals.NetExport)
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
