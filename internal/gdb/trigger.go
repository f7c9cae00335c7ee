package gdb

import "sync"

// WatchTrigger is the payload of an IRIS_BREAKPOINT_HIT event: a watchpoint
// fired, naming the access kind, address and size.
type WatchTrigger struct {
	Kind string
	Addr uint64
	Size uint64
}

// triggerSlot passes the most recent unconsumed watch trigger from the event
// dispatcher to the resume loop. Both sides use a try-lock: a contended
// write drops the event (a stopped debugger will observe the next one), a
// contended read leaves the slot for the next stop. A new trigger overwrites
// the previous one; only readers clear the slot.
type triggerSlot struct {
	mu      sync.Mutex
	trigger *WatchTrigger
}

// TryPut stores t if the slot's lock is free and reports whether it did.
func (s *triggerSlot) TryPut(t WatchTrigger) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	s.trigger = &t
	return true
}

// TryTake removes and returns the stored trigger, if the lock is free and a
// trigger is present.
func (s *triggerSlot) TryTake() (WatchTrigger, bool) {
	if !s.mu.TryLock() {
		return WatchTrigger{}, false
	}
	defer s.mu.Unlock()
	if s.trigger == nil {
		return WatchTrigger{}, false
	}
	t := *s.trigger
	s.trigger = nil
	return t, true
}
