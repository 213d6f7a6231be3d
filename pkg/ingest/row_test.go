package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

func sampleRow() Row {
	return Row{
		ColTimestamp: "01/01/2024 10:00:00",
		ColDuration:  "SMS",
		ColCaller:    "555-0001",
		ColCallee:    "555-0002",
		ColIMEI:      "IMEI1",
		ColTowerName: "T1",
		ColTowerLong: "0",
		ColTowerLat:  "0",
	}
}

func TestParseRow(t *testing.T) {
	rec, err := ParseRow(1, sampleRow())
	if err != nil {
		t.Fatalf("ParseRow failed: %v", err)
	}

	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !rec.Timestamp.Equal(want) || rec.Timestamp.Location() != time.UTC {
		t.Errorf("Expected %v UTC, got %v", want, rec.Timestamp)
	}
	if rec.Type != schema.CommSMS || rec.Duration != "SMS" {
		t.Errorf("Expected SMS with raw duration, got %s/%s", rec.Type, rec.Duration)
	}
	if rec.TowerLongitude != 0.0 || rec.TowerLatitude != 0.0 {
		t.Errorf("Expected float coordinates, got %v/%v", rec.TowerLongitude, rec.TowerLatitude)
	}
}

func TestParseRow_DayFirst(t *testing.T) {
	row := sampleRow()
	row[ColTimestamp] = "13/02/2024 23:59:01"

	rec, err := ParseRow(1, row)
	if err != nil {
		t.Fatalf("ParseRow failed: %v", err)
	}
	if rec.Timestamp.Month() != time.February || rec.Timestamp.Day() != 13 {
		t.Errorf("Expected 13 February, got %v", rec.Timestamp)
	}
}

func TestParseRow_Type(t *testing.T) {
	tests := []struct {
		duration string
		want     schema.CommType
	}{
		{"SMS", schema.CommSMS},
		{"120", schema.CommCall},
		{"sms", schema.CommCall},
		{"", schema.CommCall},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			row := sampleRow()
			row[ColDuration] = tt.duration
			rec, err := ParseRow(1, row)
			if err != nil {
				t.Fatalf("ParseRow failed: %v", err)
			}
			if rec.Type != tt.want {
				t.Errorf("duration %q: expected %s, got %s", tt.duration, tt.want, rec.Type)
			}
			if rec.Duration != tt.duration {
				t.Errorf("Expected duration kept verbatim, got %q", rec.Duration)
			}
		})
	}
}

func TestParseRow_Coordinates(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"-6.2603", -6.2603},
		{" 53.35 ", 53.35},
		{"N/A", "N/A"},
		{"", nil},
	}

	for _, tt := range tests {
		row := sampleRow()
		row[ColTowerLong] = tt.raw
		rec, err := ParseRow(1, row)
		if err != nil {
			t.Fatalf("ParseRow(%q) failed: %v", tt.raw, err)
		}
		if rec.TowerLongitude != tt.want {
			t.Errorf("coordinate %q: expected %#v, got %#v", tt.raw, tt.want, rec.TowerLongitude)
		}
	}
}

func TestParseRow_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Row)
		field  string
	}{
		{"ISO timestamp", func(r Row) { r[ColTimestamp] = "2024-01-01T10:00:00Z" }, ColTimestamp},
		{"Impossible date", func(r Row) { r[ColTimestamp] = "31/02/2024 10:00:00" }, ColTimestamp},
		{"Missing caller", func(r Row) { delete(r, ColCaller) }, ColCaller},
		{"Missing tower", func(r Row) { r[ColTowerName] = "" }, ColTowerName},
		{"Missing IMEI", func(r Row) { r[ColIMEI] = "" }, ColIMEI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := sampleRow()
			tt.mutate(row)

			_, err := ParseRow(4, row)
			var ve *schema.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Row != 4 || ve.Field != tt.field {
				t.Errorf("Expected row 4 field %s, got row %d field %s", tt.field, ve.Row, ve.Field)
			}
		})
	}
}

func TestRow_HasTimestamp(t *testing.T) {
	if (Row{}).HasTimestamp() {
		t.Error("Empty row has no timestamp")
	}
	if (Row{ColTimestamp: "  "}).HasTimestamp() {
		t.Error("Blank timestamp counts as missing")
	}
	if !sampleRow().HasTimestamp() {
		t.Error("Expected sample row to have a timestamp")
	}
}

func TestRow_Keys(t *testing.T) {
	got := strings.Join(Row{"b": "1", "a": "2"}.Keys(), ",")
	if got != "a,b" {
		t.Errorf("Expected sorted keys, got %s", got)
	}
}
