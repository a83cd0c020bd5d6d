// Package dispatch provides the serialized execution queue the caster
// engine runs on, and the delivery contexts callers use to receive
// callbacks on their own goroutines.
//
// All engine state is owned by a single Queue. Public engine operations
// post work onto that queue, so no engine state needs locking. Callers
// that want callbacks delivered on a specific goroutine (a UI loop, a
// test harness) pass a Context; Chan and Func adapt existing loops.
package dispatch
