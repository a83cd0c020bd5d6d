package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/log"
)

func TestStatsCountsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Total Events: 3") {
		t.Errorf("expected total of 3 events, got: %s", output)
	}
	if !strings.Contains(output, "TRANSPORT:") {
		t.Errorf("expected transport layer count, got: %s", output)
	}
	if !strings.Contains(output, "WIRE:") {
		t.Errorf("expected wire layer count, got: %s", output)
	}
	if !strings.Contains(output, "Connections: 1") {
		t.Errorf("expected 1 connection, got: %s", output)
	}
}

func TestStatsTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base, ConnectionID: "c", Layer: log.LayerWire, Category: log.CategoryMessage},
		{Timestamp: base.Add(90 * time.Second), ConnectionID: "c", Layer: log.LayerWire, Category: log.CategoryMessage},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "2026-01-28T10:00:00Z") {
		t.Errorf("expected start time, got: %s", output)
	}
	if !strings.Contains(output, "Duration:   1m30s") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestStatsTracksPeerPerConnection(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-aaa-1234", Layer: log.LayerWire, Category: log.CategoryMessage},
		{Timestamp: ts.Add(time.Second), ConnectionID: "conn-aaa-1234", PeerID: "fe42ab", Layer: log.LayerWire, Category: log.CategoryMessage},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "[conn-aaa] 2 events") {
		t.Errorf("expected per-connection count with shortened ID, got: %s", output)
	}
	if !strings.Contains(output, "Peer: fe42ab") {
		t.Errorf("expected peer ID, got: %s", output)
	}
}

func TestStatsCountsErrors(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "c", Layer: log.LayerWire, Category: log.CategoryMessage},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "c",
			Layer:        log.LayerCommissioning,
			Category:     log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerCommissioning,
				Message: "passcode proof failed",
			},
		},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Errors: 1") {
		t.Errorf("expected error count, got: %s", output)
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Total Events: 0") {
		t.Errorf("expected zero events, got: %s", output)
	}
	if !strings.Contains(output, "Connections: 0") {
		t.Errorf("expected zero connections, got: %s", output)
	}
}

func TestStatsMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunStats("/nonexistent/path.clog", &buf); err == nil {
		t.Error("expected error for missing file")
	}
}
