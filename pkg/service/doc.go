// Package service implements the casting engine.
//
// A CasterService discovers commissioners on the local network, asks to
// be commissioned (user-directed request plus an open commissioning
// window), and runs cluster commands and attribute subscriptions over
// the single resulting session. The commissioned peer is recorded, so a
// later run can resume the session with Reconnect instead of going
// through commissioning again.
//
// All engine state lives on one internal dispatch queue. Public
// operations enqueue and return immediately; results arrive through
// per-call continuations on the caller's delivery context. Every
// operation acknowledges transmission through OnSent before any outcome
// continuation can fire, and each outcome continuation fires at most
// once.
package service
