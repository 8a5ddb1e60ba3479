// Package seqguard lets only the latest asynchronous request for a logical
// slot apply its result. Older requests still complete, their results are dropped.
package seqguard

import "sync"

// Ticket identifies one request against a Slot.
type Ticket uint64

// Slot hands out tickets. The zero value is ready to use.
type Slot struct {
	mu  sync.Mutex
	seq uint64
}

// Begin starts a new request, making every earlier ticket stale.
func (s *Slot) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return Ticket(s.seq)
}

// Invalidate makes every outstanding ticket stale without starting a request.
func (s *Slot) Invalidate() {
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()
}

// Current reports the ticket that may still apply.
func (s *Slot) Current() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket(s.seq)
}

// Apply runs fn if t is still current and reports whether it ran. fn runs
// with the slot locked, so it must not call back into the slot.
func (s *Slot) Apply(t Ticket, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(t) != s.seq {
		return false
	}
	fn()
	return true
}
