package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/log"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      128,
			Data:      []byte{0xa1, 0x01, 0x02, 0x03},
			Truncated: false,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Check timestamp format
	if !strings.Contains(output, "2026-01-28T10:15:32.123456Z") {
		t.Errorf("expected microsecond timestamp, got: %s", output)
	}

	// Check connection ID (shortened)
	if !strings.Contains(output, "[conn:abc12345]") {
		t.Errorf("expected shortened connection ID, got: %s", output)
	}

	// Check direction
	if !strings.Contains(output, "OUT") {
		t.Errorf("expected OUT direction, got: %s", output)
	}

	// Check layer
	if !strings.Contains(output, "TRANSPORT") {
		t.Errorf("expected TRANSPORT layer, got: %s", output)
	}

	// Check frame info
	if !strings.Contains(output, "Frame") {
		t.Errorf("expected Frame label, got: %s", output)
	}
	if !strings.Contains(output, "128 bytes") {
		t.Errorf("expected frame size, got: %s", output)
	}
}

func TestFormatMessageEventRequest(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	op := wire.OpInvoke
	endpoint := uint8(1)
	cluster := wire.ClusterMediaPlayback
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:       log.MessageTypeRequest,
			MessageID:  42,
			Operation:  &op,
			EndpointID: &endpoint,
			ClusterID:  &cluster,
			Payload:    map[string]any{"command": "Seek", "position": 90000},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "REQUEST") {
		t.Errorf("expected REQUEST type, got: %s", output)
	}
	if !strings.Contains(output, "MessageID: 42") {
		t.Errorf("expected MessageID: 42, got: %s", output)
	}
	if !strings.Contains(output, "Operation: Invoke") {
		t.Errorf("expected Operation: Invoke, got: %s", output)
	}
	if !strings.Contains(output, "Endpoint: 1") {
		t.Errorf("expected Endpoint: 1, got: %s", output)
	}
	if !strings.Contains(output, "Cluster: MediaPlayback") {
		t.Errorf("expected Cluster: MediaPlayback, got: %s", output)
	}
}

func TestFormatMessageEventResponse(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 125789000, time.UTC)
	status := wire.StatusSuccess
	processingTime := 2333 * time.Microsecond
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:           log.MessageTypeResponse,
			MessageID:      42,
			Status:         &status,
			ProcessingTime: &processingTime,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "RESPONSE") {
		t.Errorf("expected RESPONSE type, got: %s", output)
	}
	if !strings.Contains(output, "Status: SUCCESS") {
		t.Errorf("expected Status: SUCCESS, got: %s", output)
	}
	if !strings.Contains(output, "Duration: 2.333ms") {
		t.Errorf("expected formatted duration, got: %s", output)
	}
}

func TestFormatMessageEventReport(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 16, 5, 0, time.UTC)
	subID := uint32(7)
	cluster := wire.ClusterMediaPlayback
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:           log.MessageTypeReport,
			SubscriptionID: &subID,
			ClusterID:      &cluster,
			Payload:        map[string]any{"0": 1},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "REPORT") {
		t.Errorf("expected REPORT type, got: %s", output)
	}
	if !strings.Contains(output, "SubscriptionID: 7") {
		t.Errorf("expected SubscriptionID: 7, got: %s", output)
	}
	if !strings.Contains(output, "Cluster: MediaPlayback") {
		t.Errorf("expected Cluster: MediaPlayback, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "abc12345",
		Direction:    log.DirectionIn,
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: "AwaitingCommissioning",
			NewState: "Commissioned",
			Reason:   "commissioning complete",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Entity: SESSION") {
		t.Errorf("expected Entity: SESSION, got: %s", output)
	}
	if !strings.Contains(output, "AwaitingCommissioning -> Commissioned") {
		t.Errorf("expected state transition, got: %s", output)
	}
	if !strings.Contains(output, "Reason: commissioning complete") {
		t.Errorf("expected reason, got: %s", output)
	}
}

func TestFormatControlMsgEvent(t *testing.T) {
	event := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "abc12345",
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{
			Type: log.ControlMsgPing,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Control messages show CTRL instead of the layer
	if !strings.Contains(output, "CTRL") {
		t.Errorf("expected CTRL marker, got: %s", output)
	}
	if !strings.Contains(output, "PING") {
		t.Errorf("expected PING type, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	code := 4
	event := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "abc12345",
		Direction:    log.DirectionIn,
		Layer:        log.LayerCommissioning,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerCommissioning,
			Message: "passcode proof failed",
			Code:    &code,
			Context: "PASE confirm",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "COMMISSIONING") {
		t.Errorf("expected COMMISSIONING layer, got: %s", output)
	}
	if !strings.Contains(output, "Message: passcode proof failed") {
		t.Errorf("expected error message, got: %s", output)
	}
	if !strings.Contains(output, "Code: 4") {
		t.Errorf("expected error code, got: %s", output)
	}
	if !strings.Contains(output, "Context: PASE confirm") {
		t.Errorf("expected error context, got: %s", output)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{2333 * time.Microsecond, "2.333ms"},
		{1500 * time.Millisecond, "1.500s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		input string
		want  log.Layer
	}{
		{"transport", log.LayerTransport},
		{"wire", log.LayerWire},
		{"discovery", log.LayerDiscovery},
		{"commissioning", log.LayerCommissioning},
		{"interaction", log.LayerInteraction},
		{"service", log.LayerService},
		{"SERVICE", log.LayerService},
	}

	for _, tt := range tests {
		got, err := parseLayer(tt.input)
		if err != nil {
			t.Errorf("parseLayer(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLayer(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := parseLayer("bogus"); err == nil {
		t.Error("expected error for invalid layer")
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := parseDirection("in"); err != nil || d != log.DirectionIn {
		t.Errorf("parseDirection(in) = %v, %v", d, err)
	}
	if d, err := parseDirection("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("parseDirection(OUT) = %v, %v", d, err)
	}
	if _, err := parseDirection("sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input string
		want  log.Category
	}{
		{"message", log.CategoryMessage},
		{"control", log.CategoryControl},
		{"state", log.CategoryState},
		{"error", log.CategoryError},
	}

	for _, tt := range tests {
		got, err := parseCategory(tt.input)
		if err != nil {
			t.Errorf("parseCategory(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCategory(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := parseCategory("metrics"); err == nil {
		t.Error("expected error for invalid category")
	}
}

func TestRunViewWithFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	layer := log.LayerWire
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "WIRE") {
		t.Errorf("expected WIRE events in output, got: %s", output)
	}
	if strings.Contains(output, "TRANSPORT") {
		t.Errorf("expected transport events filtered out, got: %s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView("/nonexistent/path.clog", ViewFilter{}, &bytes.Buffer{})
	if err == nil {
		t.Error("expected error for missing file")
	}
}
