package interaction

import (
	"errors"
	"sync"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/dispatch"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// DefaultRequestTimeout is the outcome deadline applied when a request
// is tracked with no explicit timeout.
const DefaultRequestTimeout = 10 * time.Second

// Correlator errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// CompletionFunc receives the terminal outcome of a tracked request.
// Exactly one of resp/err is set: a matched response (any status), or
// a tracking error (timeout, session loss).
type CompletionFunc func(resp *wire.Response, err error)

// pendingRequest is one in-flight request awaiting its response.
type pendingRequest struct {
	id        uint32
	op        wire.Operation
	createdAt time.Time
	deadline  time.Time
	timer     *time.Timer
	complete  CompletionFunc
}

// Correlator assigns correlation IDs to outgoing requests and routes
// each incoming response to the completion of the request that carries
// the same ID. Every tracked request reaches exactly one terminal
// outcome: a matched response, a timeout, or a Fail/FailAll error.
//
// Timeout completions are posted to the engine context so they run
// where engine state may be touched; matched responses complete on the
// caller's goroutine, preserving arrival order.
type Correlator struct {
	mu      sync.Mutex
	engine  dispatch.Context
	nextID  uint32
	pending map[uint32]*pendingRequest
}

// NewCorrelator creates a correlator. Timeout completions are delivered
// on engine; a nil engine runs them on the timer goroutine.
func NewCorrelator(engine dispatch.Context) *Correlator {
	return &Correlator{
		engine:  engine,
		pending: make(map[uint32]*pendingRequest),
	}
}

// Track registers a request and returns its correlation ID. IDs are
// unique for the lifetime of the correlator and never zero (zero is the
// report marker on the wire). A non-positive timeout selects
// DefaultRequestTimeout.
func (c *Correlator) Track(op wire.Operation, timeout time.Duration, complete CompletionFunc) uint32 {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	if c.nextID == wire.ReportMessageID {
		c.nextID++
	}
	id := c.nextID

	now := time.Now()
	p := &pendingRequest{
		id:        id,
		op:        op,
		createdAt: now,
		deadline:  now.Add(timeout),
		complete:  complete,
	}
	p.timer = time.AfterFunc(timeout, func() {
		if c.engine != nil {
			c.engine.Post(func() { c.expire(id) })
		} else {
			c.expire(id)
		}
	})
	c.pending[id] = p

	return id
}

// HandleResponse routes a response to its pending request and completes
// it. Returns ErrUnexpectedReply when no request with that ID is
// pending (already completed, timed out, or never tracked).
func (c *Correlator) HandleResponse(resp *wire.Response) error {
	c.mu.Lock()
	p, ok := c.pending[resp.MessageID]
	if ok {
		delete(c.pending, resp.MessageID)
		p.timer.Stop()
	}
	c.mu.Unlock()

	if !ok {
		return ErrUnexpectedReply
	}

	p.complete(resp, nil)
	return nil
}

// Fail completes a single pending request with err. Returns false when
// the ID is not pending.
func (c *Correlator) Fail(id uint32, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
		p.timer.Stop()
	}
	c.mu.Unlock()

	if !ok {
		return false
	}

	p.complete(nil, err)
	return true
}

// Remove untracks a request without completing it. Used when the send
// that would have produced a response never went out.
func (c *Correlator) Remove(id uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(c.pending, id)
	return true
}

// FailAll completes every pending request with err and empties the
// table. New requests may be tracked afterwards; completions already
// delivered are not repeated.
func (c *Correlator) FailAll(err error) {
	c.mu.Lock()
	failed := c.pending
	c.pending = make(map[uint32]*pendingRequest)
	for _, p := range failed {
		p.timer.Stop()
	}
	c.mu.Unlock()

	for _, p := range failed {
		p.complete(nil, err)
	}
}

// Len returns the number of requests awaiting a response.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// expire completes a request that reached its deadline before a
// response arrived. A response that raced the timer and won leaves
// nothing to expire.
func (c *Correlator) expire(id uint32) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	p.complete(nil, ErrRequestTimeout)
}
