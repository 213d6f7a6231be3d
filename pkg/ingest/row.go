// Package ingest loads call-detail rows into the graph, one independent
// transaction per row.
package ingest

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/validation"
)

// Column names of an upload.
const (
	ColTimestamp = "timestamp_str"
	ColDuration  = "duration_str"
	ColCaller    = "caller_num"
	ColCallee    = "callee_num"
	ColIMEI      = "imei"
	ColTowerName = "tower_name"
	ColTowerLong = "tower_long"
	ColTowerLat  = "tower_lat"
)

// Columns lists the expected header in upload order.
var Columns = []string{
	ColTimestamp, ColDuration, ColCaller, ColCallee,
	ColIMEI, ColTowerName, ColTowerLong, ColTowerLat,
}

// TimestampLayout is day/month/year hour:minute:second. The value carries no
// zone and is read as UTC.
const TimestampLayout = "02/01/2006 15:04:05"

// Row maps column name to raw string value.
type Row map[string]string

// Keys returns the row's column names, sorted.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasTimestamp reports whether the row carries a non-empty timestamp.
// Rows without one are skipped rather than failed.
func (r Row) HasTimestamp() bool {
	return strings.TrimSpace(r[ColTimestamp]) != ""
}

// ParseRow converts a raw row into a Record. n is the 1-based row number
// used in errors.
func ParseRow(n int, row Row) (schema.Record, error) {
	raw := strings.TrimSpace(row[ColTimestamp])
	ts, err := time.ParseInLocation(TimestampLayout, raw, time.UTC)
	if err != nil {
		return schema.Record{}, &schema.ValidationError{
			Row:    n,
			Field:  ColTimestamp,
			Reason: "expected DD/MM/YYYY HH:MM:SS, got " + strconv.Quote(raw),
		}
	}

	duration := row[ColDuration]
	rec := schema.Record{
		Timestamp:      ts,
		Type:           schema.CommTypeForDuration(duration),
		Duration:       duration,
		Caller:         row[ColCaller],
		Callee:         row[ColCallee],
		IMEI:           row[ColIMEI],
		TowerName:      row[ColTowerName],
		TowerLongitude: coordinate(row[ColTowerLong]),
		TowerLatitude:  coordinate(row[ColTowerLat]),
	}
	if err := validation.ValidateRecord(n, &rec); err != nil {
		return schema.Record{}, err
	}
	return rec, nil
}

// coordinate stores parseable values as float64 and anything else verbatim.
// An empty value is left unset.
func coordinate(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
