package session

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/flows"
	"github.com/example/storefront/internal/geo"
	"github.com/example/storefront/internal/seqguard"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// State is everything kept for one visitor. Token is persisted sealed.
type State struct {
	Token     string          `json:"-"`
	User      *api.User       `json:"user,omitempty"`
	CartCount int             `json:"cartCount"`
	Login     flows.Login     `json:"login"`
	Signup    flows.Signup    `json:"signup"`
	Reset     *flows.Reset    `json:"reset,omitempty"`
	TwoFactor flows.TwoFactor `json:"twoFactor"`
	Checkout  checkout.Draft  `json:"checkout"`
	Flashes   []Flash         `json:"flashes,omitempty"`
}

// SignedIn reports whether a backend session is attached.
func (st *State) SignedIn() bool {
	return st.Token != "" && st.User != nil
}

// blank reports whether st carries nothing worth persisting.
func (st *State) blank() bool {
	cp := *st
	if len(cp.Flashes) == 0 {
		cp.Flashes = nil
	}
	return reflect.ValueOf(cp).IsZero()
}

// AddFlash queues a notice.
func (st *State) AddFlash(kind, msg string) {
	if msg == "" {
		return
	}
	st.Flashes = append(st.Flashes, Flash{Kind: kind, Message: msg})
}

// View is the read-only session data every page receives.
type View struct {
	User      *api.User
	CartCount int
	SignedIn  bool
	IsAdmin   bool
}

// Session is one live visitor session. State is guarded by mu; the slots
// order refreshes of the user and the cart count. Lock order is slot, then mu.
type Session struct {
	ID        uuid.UUID
	ExpiresAt time.Time

	mu        sync.Mutex
	state     State
	stored    bool
	destroyed bool

	userSlot seqguard.Slot
	cartSlot seqguard.Slot

	cascadeMu sync.Mutex
	cascade   *geo.Cascade

	submitMu sync.Mutex
}

func newSession(id uuid.UUID, st State, expires time.Time) *Session {
	return &Session{ID: id, state: st, ExpiresAt: expires}
}

// Snapshot returns a copy of the state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	if st.Reset != nil {
		r := *st.Reset
		st.Reset = &r
	}
	st.Flashes = append([]Flash(nil), st.Flashes...)
	return st
}

// Update runs fn with the state locked and lets it mutate the state.
func (s *Session) Update(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Stored reports whether s has been persisted and needs a cookie.
func (s *Session) Stored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored
}

// Token returns the backend session token, empty when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// User returns a copy of the signed-in user or nil.
func (s *Session) User() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// TakeFlashes returns and clears the queued notices.
func (s *Session) TakeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state.Flashes
	s.state.Flashes = nil
	return out
}

// Flash queues a notice for the next page.
func (s *Session) Flash(kind, msg string) {
	s.Update(func(st *State) { st.AddFlash(kind, msg) })
}

// Cascade returns the visitor's address cascade, creating it on first use.
// It lives in memory only; the checkout draft keeps the codes to restore it.
func (s *Session) Cascade(p geo.Provider) (c *geo.Cascade, created bool) {
	s.cascadeMu.Lock()
	defer s.cascadeMu.Unlock()
	if s.cascade == nil {
		s.cascade = geo.NewCascade(p)
		created = true
	}
	return s.cascade, created
}

// Submit runs fn as the session's only in-flight form submission. A second
// submission arriving meanwhile gets flows.ErrInFlight.
func (s *Session) Submit(fn func() error) error {
	if !s.submitMu.TryLock() {
		return flows.ErrInFlight
	}
	defer s.submitMu.Unlock()
	return fn()
}

// Destroyed reports whether the session was ended and must not be saved.
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// ResetCascade drops the address cascade.
func (s *Session) ResetCascade() {
	s.cascadeMu.Lock()
	s.cascade = nil
	s.cascadeMu.Unlock()
}
