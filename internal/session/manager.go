package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/flows"
)

// Backend is what the manager asks the storefront backend.
type Backend interface {
	CurrentUser(ctx context.Context, token string) (*api.User, error)
	CartCount(ctx context.Context, token string) (int, error)
	Logout(ctx context.Context, token string) error
}

// record is the persisted form of State, secrets sealed.
type record struct {
	State
	SealedToken    string `json:"token,omitempty"`
	SealedPassword string `json:"loginPassword,omitempty"`
	SealedSecret   string `json:"twoFactorSecret,omitempty"`
	SealedQRCode   string `json:"twoFactorQRCode,omitempty"`
}

// Manager is the single holder of session-scoped data. Live sessions are
// cached in memory and written through to the Store on Save.
type Manager struct {
	store   Store
	cipher  *TokenCipher
	backend Backend
	ttl     time.Duration
	log     zerolog.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*Session
}

// NewManager wires a Manager.
func NewManager(store Store, cipher *TokenCipher, backend Backend, ttl time.Duration, logger zerolog.Logger) *Manager {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Manager{
		store:   store,
		cipher:  cipher,
		backend: backend,
		ttl:     ttl,
		log:     logger,
		live:    map[uuid.UUID]*Session{},
	}
}

// TTL is the sliding session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Start creates a fresh anonymous session. It is neither tracked nor
// persisted until a Save finds state in it.
func (m *Manager) Start() *Session {
	return newSession(uuid.New(), State{}, time.Now().Add(m.ttl))
}

// Load returns the session with id, from memory or the store.
func (m *Manager) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	now := time.Now()

	m.mu.Lock()
	s, ok := m.live[id]
	if ok && !s.expiresAt().After(now) {
		delete(m.live, id)
		ok = false
	}
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := m.decode(rec)
	if err != nil {
		m.log.Warn().Err(err).Str("session", id.String()).Msg("discarding unreadable session")
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}

	s = newSession(rec.ID, st, rec.ExpiresAt)
	s.stored = true
	m.mu.Lock()
	// Another request may have loaded it meanwhile; keep the first.
	if existing, ok := m.live[id]; ok {
		s = existing
	} else {
		m.live[id] = s
	}
	m.mu.Unlock()
	return s, nil
}

// Save persists s and slides its expiry. Destroyed sessions are skipped, as
// are new sessions that never held any state.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if s.destroyed || (!s.stored && s.state.blank()) {
		s.mu.Unlock()
		return nil
	}
	s.stored = true
	s.ExpiresAt = time.Now().Add(m.ttl)
	expires := s.ExpiresAt
	st := s.state
	s.mu.Unlock()

	m.mu.Lock()
	if _, ok := m.live[s.ID]; !ok {
		m.live[s.ID] = s
	}
	m.mu.Unlock()

	data, err := m.encode(s.ID, st)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, Record{ID: s.ID, Data: data, ExpiresAt: expires})
}

// Destroy ends the backend session (best effort) and forgets s.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	s.userSlot.Invalidate()
	s.cartSlot.Invalidate()

	if token := s.Token(); token != "" {
		if err := m.backend.Logout(ctx, token); err != nil {
			m.log.Warn().Err(err).Str("session", s.ID.String()).Msg("backend logout failed")
		}
	}

	s.Update(func(st *State) { *st = State{} })
	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()
	s.ResetCascade()

	m.mu.Lock()
	delete(m.live, s.ID)
	m.mu.Unlock()
	return m.store.Delete(ctx, s.ID)
}

// SignIn attaches a backend token and user, dropping any in-flight refresh
// of the previous identity.
func (m *Manager) SignIn(s *Session, token string, user *api.User) {
	s.userSlot.Invalidate()
	s.cartSlot.Invalidate()
	s.Update(func(st *State) {
		st.Token = token
		st.User = user
		st.CartCount = 0
		st.Login = flows.Login{}
		st.TwoFactor = flows.TwoFactor{}
	})
}

// SignOut clears identity locally, keeping the session itself.
func (m *Manager) SignOut(s *Session) {
	s.userSlot.Invalidate()
	s.cartSlot.Invalidate()
	s.Update(func(st *State) {
		flashes := st.Flashes
		*st = State{Flashes: flashes}
	})
	s.ResetCascade()
}

// RefreshUser refetches the current user. A rejected token signs the
// session out; a transport failure leaves the state as it was.
func (m *Manager) RefreshUser(ctx context.Context, s *Session) error {
	token := s.Token()
	if token == "" {
		return nil
	}
	ticket := s.userSlot.Begin()

	user, err := m.backend.CurrentUser(ctx, token)
	var be *api.BusinessError
	switch {
	case errors.As(err, &be):
		if s.userSlot.Apply(ticket, func() {}) {
			m.log.Info().Str("session", s.ID.String()).Msg("backend session rejected, signing out")
			m.SignOut(s)
		}
		return err
	case err != nil:
		return fmt.Errorf("refresh user: %w", err)
	}

	s.userSlot.Apply(ticket, func() {
		s.mu.Lock()
		if s.state.Token == token {
			s.state.User = user
		}
		s.mu.Unlock()
	})
	return nil
}

// RefreshCart refetches the cart count. Only the latest refresh applies.
func (m *Manager) RefreshCart(ctx context.Context, s *Session) error {
	token := s.Token()
	if token == "" {
		m.SetCartCount(s, 0)
		return nil
	}
	ticket := s.cartSlot.Begin()

	count, err := m.backend.CartCount(ctx, token)
	if err != nil {
		return fmt.Errorf("refresh cart count: %w", err)
	}

	s.cartSlot.Apply(ticket, func() {
		s.mu.Lock()
		if s.state.Token == token {
			s.state.CartCount = count
		}
		s.mu.Unlock()
	})
	return nil
}

// SetCartCount overrides the cart count, discarding in-flight refreshes.
func (m *Manager) SetCartCount(s *Session, n int) {
	s.cartSlot.Invalidate()
	s.Update(func(st *State) { st.CartCount = n })
}

// Get returns the read-only data pages render.
func (m *Manager) Get(s *Session) View {
	st := s.Snapshot()
	return View{
		User:      st.User,
		CartCount: st.CartCount,
		SignedIn:  st.SignedIn(),
		IsAdmin:   st.User.IsAdmin(),
	}
}

// Sweep drops expired sessions from memory and the store.
func (m *Manager) Sweep(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	for id, s := range m.live {
		if !s.expiresAt().After(now) {
			delete(m.live, id)
		}
	}
	m.mu.Unlock()
	return m.store.DeleteExpired(ctx, now)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := m.Sweep(ctx, now)
			if err != nil {
				m.log.Error().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				m.log.Debug().Int64("removed", n).Msg("expired sessions purged")
			}
		}
	}
}

func (m *Manager) encode(id uuid.UUID, st State) ([]byte, error) {
	ad := id[:]
	token, err := m.cipher.Seal(st.Token, ad)
	if err != nil {
		return nil, err
	}
	password, err := m.cipher.Seal(st.Login.Password, ad)
	if err != nil {
		return nil, err
	}
	secret, err := m.cipher.Seal(st.TwoFactor.Secret, ad)
	if err != nil {
		return nil, err
	}
	qrCode, err := m.cipher.Seal(st.TwoFactor.QRCodeImage, ad)
	if err != nil {
		return nil, err
	}
	st.Login.Password = ""
	st.TwoFactor.Secret, st.TwoFactor.QRCodeImage = "", ""

	data, err := json.Marshal(record{
		State:          st,
		SealedToken:    token,
		SealedPassword: password,
		SealedSecret:   secret,
		SealedQRCode:   qrCode,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func (m *Manager) decode(rec *Record) (State, error) {
	var r record
	if err := json.Unmarshal(rec.Data, &r); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	ad := rec.ID[:]
	token, err := m.cipher.Open(r.SealedToken, ad)
	if err != nil {
		return State{}, err
	}
	password, err := m.cipher.Open(r.SealedPassword, ad)
	if err != nil {
		return State{}, err
	}
	secret, err := m.cipher.Open(r.SealedSecret, ad)
	if err != nil {
		return State{}, err
	}
	qrCode, err := m.cipher.Open(r.SealedQRCode, ad)
	if err != nil {
		return State{}, err
	}
	st := r.State
	st.Token = token
	st.Login.Password = password
	st.TwoFactor.Secret = secret
	st.TwoFactor.QRCodeImage = qrCode
	return st, nil
}

func (s *Session) expiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ExpiresAt
}
