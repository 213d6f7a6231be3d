package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-commgraph/pkg/ingest"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"Existing set", []string{"-file", "a.csv", "-listing-set", "ls-1"}, ""},
		{"New set", []string{"-file", "a.csv", "-create-for", "alice", "-name", "Case 7"}, ""},
		{"No file", []string{"-listing-set", "ls-1"}, "-file is required"},
		{"No target", []string{"-file", "a.csv"}, "one of -listing-set or -create-for"},
		{"Both targets", []string{"-file", "a.csv", "-listing-set", "ls-1", "-create-for", "alice", "-name", "x"}, "mutually exclusive"},
		{"Missing name", []string{"-file", "a.csv", "-create-for", "alice"}, "-name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestModelTracksProgress(t *testing.T) {
	cancelled := false
	m := newModel("calls.csv", "ls-1", 3, func() { cancelled = true })

	updated, _ := m.Update(rowMsg{row: 1, outcome: ingest.OutcomeIngested, tally: ingest.Result{Ingested: 1}})
	updated, _ = updated.Update(rowMsg{row: 2, outcome: ingest.OutcomeFailed, tally: ingest.Result{Ingested: 1, Failed: 1}, err: errors.New("bad timestamp")})
	m = updated.(model)

	if m.percent() < 0.66 || m.percent() > 0.67 {
		t.Errorf("Expected 2/3 progress, got %f", m.percent())
	}
	if len(m.failures) != 1 || !strings.Contains(m.failures[0], "row 2") {
		t.Errorf("Expected the failed row to be listed, got %v", m.failures)
	}
	if !strings.Contains(m.View(), "1 failed") {
		t.Error("View does not show the failed count")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(model)
	if !cancelled || !m.stopping {
		t.Error("Expected ctrl+c to cancel the run")
	}

	result := ingest.Result{Ingested: 1, Failed: 1, Skipped: 1}
	updated, cmd := m.Update(doneMsg{result: result, err: context.Canceled})
	m = updated.(model)
	if !m.done || m.tally != result || !errors.Is(m.err, context.Canceled) {
		t.Errorf("Unexpected final state: %+v", m)
	}
	if cmd == nil {
		t.Error("Expected a quit command")
	}
}

func TestModelRecentFailuresBounded(t *testing.T) {
	m := newModel("calls.csv", "ls-1", 100, func() {})
	var tm tea.Model = m
	for i := 1; i <= maxRecentFailures+3; i++ {
		tm, _ = tm.Update(rowMsg{row: i, outcome: ingest.OutcomeFailed, tally: ingest.Result{Failed: i}, err: errors.New("bad")})
	}
	m = tm.(model)
	if len(m.failures) != maxRecentFailures {
		t.Fatalf("Expected %d failures kept, got %d", maxRecentFailures, len(m.failures))
	}
	if !strings.HasPrefix(m.failures[len(m.failures)-1], "row 8") {
		t.Errorf("Expected newest failure last, got %v", m.failures)
	}
}

func TestPlainProgress(t *testing.T) {
	rec := logging.NewRecorder()
	progress := plainProgress(rec, 2)

	progress(1, ingest.OutcomeFailed, ingest.Result{Failed: 1}, errors.New("bad phone"))
	progress(2, ingest.OutcomeIngested, ingest.Result{Failed: 1, Ingested: 1}, nil)

	if len(rec.Messages("row failed")) != 1 {
		t.Error("Expected the failed row to be logged")
	}
	if len(rec.Messages("progress")) != 1 {
		t.Error("Expected one progress line at the end of the file")
	}
}

func TestSummary(t *testing.T) {
	r := ingest.Result{Ingested: 2, Skipped: 1, Failed: 1}
	if s := summary(r, nil); !strings.Contains(s, "4 rows: 2 ingested, 1 skipped, 1 failed") {
		t.Errorf("Unexpected summary %q", s)
	}
	if s := summary(r, errors.New("store unreachable")); !strings.Contains(s, "store unreachable") {
		t.Errorf("Expected the error in the summary, got %q", s)
	}
}
