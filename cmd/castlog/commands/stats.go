package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/log"
)

// Stats aggregates counts over a whole log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats aggregates counts for one connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	PeerID    string
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
	}
}

func (s *Stats) observe(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	if event.Error != nil {
		s.Errors++
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn := s.Connections[event.ConnectionID]
	if conn == nil {
		conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if conn.PeerID == "" {
		conn.PeerID = event.PeerID
	}
}

// RunStats reads the whole log file and prints aggregate statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.observe(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== tvcast Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n",
			stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	printCounts(w, "Events by Layer:", stats.EventsByLayer, []log.Layer{
		log.LayerTransport,
		log.LayerWire,
		log.LayerDiscovery,
		log.LayerCommissioning,
		log.LayerInteraction,
		log.LayerService,
	})
	printCounts(w, "Events by Category:", stats.EventsByCategory, []log.Category{
		log.CategoryMessage,
		log.CategoryControl,
		log.CategoryState,
		log.CategoryError,
	})
	printCounts(w, "Events by Direction:", stats.EventsByDirection, []log.Direction{
		log.DirectionIn,
		log.DirectionOut,
	})

	printConnections(w, stats.Connections)

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func printCounts[K interface {
	comparable
	fmt.Stringer
}](w io.Writer, title string, counts map[K]int, order []K) {
	fmt.Fprintln(w, title)
	for _, key := range order {
		if count := counts[key]; count > 0 {
			fmt.Fprintf(w, "  %-15s %d\n", key.String()+":", count)
		}
	}
	fmt.Fprintln(w)
}

func printConnections(w io.Writer, conns map[string]*ConnectionStats) {
	fmt.Fprintf(w, "Connections: %d\n", len(conns))
	if len(conns) == 0 {
		return
	}

	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return conns[ids[i]].FirstSeen.Before(conns[ids[j]].FirstSeen)
	})

	fmt.Fprintln(w)
	for _, id := range ids {
		cs := conns[id]
		duration := cs.LastSeen.Sub(cs.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortConnID(id), cs.Events, duration)
		if cs.PeerID != "" {
			fmt.Fprintf(w, "           Peer: %s\n", cs.PeerID)
		}
	}
}
