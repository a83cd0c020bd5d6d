package discovery

import "sync"

// Registry holds the commissioners found during the current discovery run.
//
// Records are append-only and addressed by position. Positions stay valid
// until the next Clear, so a caller can show a numbered list and commission
// against an index later even while browsing continues in the background.
type Registry struct {
	mu      sync.RWMutex
	records []*CommissionerRecord
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Clear removes all records. Called at the start of a new discovery run.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// Append adds a record and returns its position.
func (r *Registry) Append(rec *CommissionerRecord) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return len(r.records) - 1
}

// Get returns the record at the given position, or ErrRecordNotFound when
// the position is out of bounds.
func (r *Registry) Get(index int) (*CommissionerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.records) {
		return nil, ErrRecordNotFound
	}
	return r.records[index], nil
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Snapshot returns a copy of the current record list. The records themselves
// are shared; they are immutable once appended.
func (r *Registry) Snapshot() []*CommissionerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*CommissionerRecord, len(r.records))
	copy(out, r.records)
	return out
}
