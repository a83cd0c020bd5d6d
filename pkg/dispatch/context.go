package dispatch

// Func adapts a function to the Context interface. Use it to deliver
// callbacks into an existing scheduler:
//
//	ctx := dispatch.Func(myLoop.Schedule)
type Func func(fn func())

// Post calls the adapted function.
func (f Func) Post(fn func()) {
	if fn == nil {
		return
	}
	f(fn)
}

// Chan delivers callbacks over a channel. The receiving side drains the
// channel and invokes each function on its own goroutine:
//
//	ch := make(dispatch.Chan, 16)
//	go func() {
//		for fn := range ch {
//			fn()
//		}
//	}()
//
// Post blocks when the channel is full, so the receiver must keep
// draining for the lifetime of the session.
type Chan chan func()

// Post sends fn on the channel.
func (c Chan) Post(fn func()) {
	if fn == nil {
		return
	}
	c <- fn
}

// Async runs every callback on its own goroutine. Callbacks delivered
// through Async have no ordering relative to each other.
type Async struct{}

// Post runs fn on a new goroutine.
func (Async) Post(fn func()) {
	if fn == nil {
		return
	}
	go fn()
}

// Compile-time interface satisfaction checks.
var (
	_ Context = Func(nil)
	_ Context = Chan(nil)
	_ Context = Async{}
)
