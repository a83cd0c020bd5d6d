package subscription

import (
	"fmt"
	"sync"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Table holds the caster's established subscriptions, keyed by the
// subscription ID the commissionee assigned. Requested records live
// with their pending subscribe request until Establish moves them in.
type Table struct {
	mu      sync.Mutex
	records map[uint32]*Record
}

// NewTable creates an empty subscription table.
func NewTable() *Table {
	return &Table{
		records: make(map[uint32]*Record),
	}
}

// Establish moves a Requested record into the table under
// subscriptionID and fires its OnEstablished handler exactly once.
func (t *Table) Establish(rec *Record, subscriptionID uint32) error {
	t.mu.Lock()
	if rec.state != StateRequested {
		t.mu.Unlock()
		return fmt.Errorf("cannot establish record in state %s", rec.state)
	}
	if _, exists := t.records[subscriptionID]; exists {
		t.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrDuplicateID, subscriptionID)
	}
	rec.SubscriptionID = subscriptionID
	rec.state = StateEstablished
	t.records[subscriptionID] = rec
	onEstablished := rec.Handlers.OnEstablished
	t.mu.Unlock()

	if onEstablished != nil {
		onEstablished(subscriptionID)
	}
	return nil
}

// HandleReport routes a report to its record. The subscribed
// attribute's value is decoded and delivered through OnReport; a decode
// failure is delivered through OnFailure and leaves the subscription
// established. Reports whose attribute map does not include the
// subscribed attribute are dropped.
func (t *Table) HandleReport(rep *wire.Report) error {
	t.mu.Lock()
	rec, ok := t.records[rep.SubscriptionID]
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrSubscriptionNotFound, rep.SubscriptionID)
	}

	raw, ok := rep.Attributes[rec.AttributeID]
	if !ok {
		return nil
	}

	value := raw
	if rec.Decode != nil {
		decoded, err := rec.Decode(raw)
		if err != nil {
			if rec.Handlers.OnFailure != nil {
				rec.Handlers.OnFailure(fmt.Errorf("%w: attribute %d: %v", wire.ErrDecode, rec.AttributeID, err))
			}
			return nil
		}
		value = decoded
	}

	if rec.Handlers.OnReport != nil {
		rec.Handlers.OnReport(value)
	}
	return nil
}

// Terminate removes one subscription without firing handlers. Used on
// a successful unsubscribe, where the caller's outcome continuation
// already reports the result.
func (t *Table) Terminate(subscriptionID uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[subscriptionID]
	if !ok {
		return false
	}
	rec.state = StateTerminated
	delete(t.records, subscriptionID)
	return true
}

// FailAll terminates every established subscription and fires each
// record's OnFailure exactly once with err. The table is empty
// afterwards; records are never re-established automatically.
func (t *Table) FailAll(err error) {
	t.mu.Lock()
	failed := make([]*Record, 0, len(t.records))
	for _, rec := range t.records {
		rec.state = StateTerminated
		failed = append(failed, rec)
	}
	t.records = make(map[uint32]*Record)
	t.mu.Unlock()

	for _, rec := range failed {
		if rec.Handlers.OnFailure != nil {
			rec.Handlers.OnFailure(err)
		}
	}
}

// Get returns the record for subscriptionID.
func (t *Table) Get(subscriptionID uint32) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[subscriptionID]
	return rec, ok
}

// Len returns the number of established subscriptions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
