package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"DEBUG", DebugLevel, false},
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{"Info", InfoLevel, false},
		{"WARNING", WarnLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJSONLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Debug("hidden")
	logger.With(Component("ingest")).Warn("row failed", Row(3), Error(errors.New("bad timestamp")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if entry.Level != "WARN" || entry.Message != "row failed" {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if entry.Fields["component"] != "ingest" {
		t.Errorf("Expected component field, got %v", entry.Fields)
	}
	if entry.Fields["row"] != float64(3) {
		t.Errorf("Expected row 3, got %v", entry.Fields["row"])
	}
	if entry.Fields["error"] != "bad timestamp" {
		t.Errorf("Expected error field, got %v", entry.Fields["error"])
	}
}

func TestJSONLogger_ChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, ErrorLevel)
	child := parent.With(Component("api"))

	parent.SetLevel(DebugLevel)
	child.Debug("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Error("Child should follow the parent's level")
	}
}

func TestJSONLogger_ConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.With(Int("worker", i)).Info("tick")
		}(i)
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !json.Valid([]byte(line)) {
			t.Fatalf("Interleaved output: %q", line)
		}
	}
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	child := rec.With(JobID("j1"))
	child.Info("job started")
	rec.Warn("other")

	started := rec.Messages("job started")
	if len(started) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(started))
	}
	if started[0].Fields["job_id"] != "j1" {
		t.Errorf("Expected job_id field, got %v", started[0].Fields)
	}
	if len(rec.Entries()) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(rec.Entries()))
	}
}

func TestTimedOperation(t *testing.T) {
	rec := NewRecorder()
	StartTimer(rec, "ingest finished", ListingSetID("ls")).End(Count(4))

	entries := rec.Messages("ingest finished")
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if _, ok := entries[0].Fields["latency"]; !ok {
		t.Error("Expected latency field")
	}
	if entries[0].Fields["count"] != 4 {
		t.Errorf("Expected count 4, got %v", entries[0].Fields["count"])
	}
}
