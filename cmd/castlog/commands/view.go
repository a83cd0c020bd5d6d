// Package commands implements the castlog CLI commands.
package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/log"
)

// ViewFilter selects which events the view command prints.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

func (f ViewFilter) matches(event log.Event) bool {
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	return true
}

// RunView prints the events of a log file in human-readable form.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if filter.matches(event) {
			formatEvent(output, event)
		}
	}
}

// formatEvent writes one event: a header line, indented detail lines,
// and a separating blank line.
func formatEvent(w io.Writer, event log.Event) {
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		shortConnID(event.ConnectionID),
		event.Direction.String(),
		layerLabel(event),
		eventLabel(event))

	p := printer{w}
	switch {
	case event.Frame != nil:
		p.frame(event.Frame)
	case event.Message != nil:
		p.message(event.Message)
	case event.StateChange != nil:
		p.stateChange(event.StateChange)
	case event.Error != nil:
		p.errorEvent(event.Error)
	}

	fmt.Fprintln(w)
}

func shortConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// layerLabel marks control traffic as CTRL instead of its layer.
func layerLabel(event log.Event) string {
	if event.Category == log.CategoryControl {
		return "CTRL"
	}
	return event.Layer.String()
}

func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Type.String()
	case event.StateChange != nil:
		return "State"
	case event.ControlMsg != nil:
		return event.ControlMsg.Type.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// printer writes indented detail fields under an event header.
type printer struct {
	w io.Writer
}

func (p printer) field(name string, format string, args ...any) {
	fmt.Fprintf(p.w, "  %s: %s\n", name, fmt.Sprintf(format, args...))
}

func (p printer) frame(frame *log.FrameEvent) {
	p.field("Size", "%d bytes", frame.Size)
	if len(frame.Data) > 0 {
		data := hex.EncodeToString(frame.Data)
		if frame.Truncated {
			data += " (truncated)"
		}
		p.field("Data", "%s", data)
	}
}

func (p printer) message(msg *log.MessageEvent) {
	p.field("MessageID", "%d", msg.MessageID)

	switch msg.Type {
	case log.MessageTypeRequest:
		if msg.Operation != nil {
			p.field("Operation", "%s", msg.Operation.String())
		}
		if msg.EndpointID != nil {
			p.field("Endpoint", "%d", *msg.EndpointID)
		}
		if msg.ClusterID != nil {
			p.field("Cluster", "%s", msg.ClusterID.String())
		}
	case log.MessageTypeResponse:
		if msg.Status != nil {
			p.field("Status", "%s (%d)", msg.Status.String(), *msg.Status)
		}
		if msg.ProcessingTime != nil {
			p.field("Duration", "%s", formatDuration(*msg.ProcessingTime))
		}
	case log.MessageTypeReport:
		if msg.SubscriptionID != nil {
			p.field("SubscriptionID", "%d", *msg.SubscriptionID)
		}
		if msg.ClusterID != nil {
			p.field("Cluster", "%s", msg.ClusterID.String())
		}
	}

	if msg.Payload != nil {
		if payloadJSON, err := json.Marshal(msg.Payload); err == nil {
			p.field("Payload", "%s", payloadJSON)
		}
	}
}

func (p printer) stateChange(sc *log.StateChangeEvent) {
	p.field("Entity", "%s", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(p.w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(p.w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		p.field("Reason", "%s", sc.Reason)
	}
}

func (p printer) errorEvent(err *log.ErrorEventData) {
	p.field("Layer", "%s", err.Layer.String())
	p.field("Message", "%s", err.Message)
	if err.Code != nil {
		p.field("Code", "%d", *err.Code)
	}
	if err.Context != "" {
		p.field("Context", "%s", err.Context)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	case d < time.Second:
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}

// Flag parsing for the view and filter commands. Lookups are
// case-insensitive.

var layerNames = map[string]log.Layer{
	"transport":     log.LayerTransport,
	"wire":          log.LayerWire,
	"discovery":     log.LayerDiscovery,
	"commissioning": log.LayerCommissioning,
	"interaction":   log.LayerInteraction,
	"service":       log.LayerService,
}

var directionNames = map[string]log.Direction{
	"in":  log.DirectionIn,
	"out": log.DirectionOut,
}

var categoryNames = map[string]log.Category{
	"message": log.CategoryMessage,
	"control": log.CategoryControl,
	"state":   log.CategoryState,
	"error":   log.CategoryError,
}

func knownNames[V any](names map[string]V) string {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// ParseLayerFlag parses a layer name from a command-line flag.
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

func parseLayer(s string) (log.Layer, error) {
	if layer, ok := layerNames[strings.ToLower(s)]; ok {
		return layer, nil
	}
	return 0, fmt.Errorf("invalid layer: %s (known layers: %s)", s, knownNames(layerNames))
}

// ParseDirectionFlag parses a direction name from a command-line flag.
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

func parseDirection(s string) (log.Direction, error) {
	if dir, ok := directionNames[strings.ToLower(s)]; ok {
		return dir, nil
	}
	return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
}

// ParseCategoryFlag parses a category name from a command-line flag.
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseCategory(s string) (log.Category, error) {
	if cat, ok := categoryNames[strings.ToLower(s)]; ok {
		return cat, nil
	}
	return 0, fmt.Errorf("invalid category: %s (known categories: %s)", s, knownNames(categoryNames))
}
