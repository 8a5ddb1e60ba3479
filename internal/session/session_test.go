package session

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/flows"
)

func testCipher(t *testing.T) *TokenCipher {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := NewTokenCipher(key)
	require.NoError(t, err)
	return c
}

type fakeBackend struct {
	mu       sync.Mutex
	user     *api.User
	userErr  error
	count    int
	countErr error
	logouts  []string
	gate     chan struct{}
}

func (b *fakeBackend) CurrentUser(ctx context.Context, token string) (*api.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user, b.userErr
}

func (b *fakeBackend) CartCount(ctx context.Context, token string) (int, error) {
	b.mu.Lock()
	gate, count, err := b.gate, b.count, b.countErr
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return count, err
}

func (b *fakeBackend) Logout(ctx context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logouts = append(b.logouts, token)
	return nil
}

func newManager(t *testing.T, b Backend) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewManager(store, testCipher(t), b, time.Hour, zerolog.Nop()), store
}

func TestCipherRoundTripAndTamper(t *testing.T) {
	c := testCipher(t)
	ad := []byte("session-1")

	sealed, err := c.Seal("backend-token", ad)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "backend-token")

	plain, err := c.Open(sealed, ad)
	require.NoError(t, err)
	assert.Equal(t, "backend-token", plain)

	_, err = c.Open(sealed, []byte("session-2"))
	assert.ErrorIs(t, err, ErrTampered)

	raw := []byte(sealed)
	raw[len(raw)-2] ^= 0x01
	_, err = c.Open(string(raw), ad)
	assert.ErrorIs(t, err, ErrTampered)

	empty, err := c.Seal("", ad)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = NewTokenCipher([]byte("short"))
	assert.Error(t, err)
}

func TestSavedSessionReloadsWithSealedToken(t *testing.T) {
	b := &fakeBackend{}
	m, store := newManager(t, b)
	ctx := context.Background()

	s := m.Start()
	m.SignIn(s, "tok-123", &api.User{ID: "u1", Name: "An", Role: api.RoleAdmin})
	s.Update(func(st *State) {
		st.Login.Password = "hunter2"
		st.Checkout.Phone = "0901234567"
		st.TwoFactor.Secret = "JBSWY3DPEHPK3PXP"
		st.TwoFactor.QRCodeImage = "data:image/png;base64,qrpayload"
	})
	require.NoError(t, m.Save(ctx, s))

	rec, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(rec.Data), "tok-123")
	assert.NotContains(t, string(rec.Data), "hunter2")
	assert.NotContains(t, string(rec.Data), "JBSWY3DPEHPK3PXP")
	assert.NotContains(t, string(rec.Data), "qrpayload")

	// Force a reload from the store.
	m.mu.Lock()
	delete(m.live, s.ID)
	m.mu.Unlock()

	again, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	st := again.Snapshot()
	assert.Equal(t, "tok-123", st.Token)
	assert.Equal(t, "hunter2", st.Login.Password)
	assert.Equal(t, "0901234567", st.Checkout.Phone)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", st.TwoFactor.Secret)
	assert.Equal(t, "data:image/png;base64,qrpayload", st.TwoFactor.QRCodeImage)
	assert.True(t, m.Get(again).IsAdmin)
}

func TestLoadUnknownSession(t *testing.T) {
	m, _ := newManager(t, &fakeBackend{})
	_, err := m.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDestroyLogsOutAndForgets(t *testing.T) {
	b := &fakeBackend{}
	m, _ := newManager(t, b)
	ctx := context.Background()

	s := m.Start()
	m.SignIn(s, "tok", &api.User{ID: "u1"})
	require.NoError(t, m.Save(ctx, s))

	require.NoError(t, m.Destroy(ctx, s))
	assert.Equal(t, []string{"tok"}, b.logouts)
	assert.False(t, m.Get(s).SignedIn)
	assert.True(t, s.Destroyed())

	require.NoError(t, m.Save(ctx, s))
	_, err := m.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshUserRejectedTokenSignsOut(t *testing.T) {
	b := &fakeBackend{userErr: &api.BusinessError{Status: 401, Message: "Please login"}}
	m, _ := newManager(t, b)

	s := m.Start()
	m.SignIn(s, "tok", &api.User{ID: "u1"})
	s.Flash(FlashInfo, "kept")

	err := m.RefreshUser(context.Background(), s)
	require.Error(t, err)
	assert.False(t, m.Get(s).SignedIn)
	assert.Len(t, s.TakeFlashes(), 1)
}

func TestRefreshUserTransportFailureKeepsState(t *testing.T) {
	b := &fakeBackend{userErr: &api.TransportError{Op: "GET", Cause: errors.New("refused")}}
	m, _ := newManager(t, b)

	s := m.Start()
	m.SignIn(s, "tok", &api.User{ID: "u1", Name: "An"})

	err := m.RefreshUser(context.Background(), s)
	assert.ErrorIs(t, err, api.ErrUnreachable)
	assert.True(t, m.Get(s).SignedIn)
	assert.Equal(t, "An", m.Get(s).User.Name)
}

func TestRefreshCartStaleResultDiscarded(t *testing.T) {
	gate := make(chan struct{})
	b := &fakeBackend{count: 5, gate: gate}
	m, _ := newManager(t, b)

	s := m.Start()
	m.SignIn(s, "tok", &api.User{ID: "u1"})

	before := s.cartSlot.Current()
	done := make(chan error, 1)
	go func() { done <- m.RefreshCart(context.Background(), s) }()

	// A placed order zeroes the count while the refresh is in flight.
	require.Eventually(t, func() bool { return s.cartSlot.Current() > before }, time.Second, time.Millisecond)
	m.SetCartCount(s, 0)
	close(gate)

	require.NoError(t, <-done)
	assert.Equal(t, 0, m.Get(s).CartCount)

	b.mu.Lock()
	b.gate = nil
	b.mu.Unlock()
	require.NoError(t, m.RefreshCart(context.Background(), s))
	assert.Equal(t, 5, m.Get(s).CartCount)
}

func TestRefreshCartSignedOut(t *testing.T) {
	m, _ := newManager(t, &fakeBackend{count: 3})
	s := m.Start()
	require.NoError(t, m.RefreshCart(context.Background(), s))
	assert.Zero(t, m.Get(s).CartCount)
}

func TestSweepRemovesExpired(t *testing.T) {
	m, store := newManager(t, &fakeBackend{})
	ctx := context.Background()

	s := m.Start()
	s.Flash(FlashInfo, "welcome")
	require.NoError(t, m.Save(ctx, s))

	n, err := m.Sweep(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlankSessionNotPersisted(t *testing.T) {
	m, store := newManager(t, &fakeBackend{})
	ctx := context.Background()

	s := m.Start()
	require.NoError(t, m.Save(ctx, s))
	assert.False(t, s.Stored())
	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	s.Flash(FlashError, "Invalid credentials")
	require.NoError(t, m.Save(ctx, s))
	assert.True(t, s.Stored())

	// Once stored it keeps being saved after its flashes are consumed.
	s.TakeFlashes()
	require.NoError(t, m.Save(ctx, s))
	again, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, again)
	_, err = store.Get(ctx, s.ID)
	assert.NoError(t, err)
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	m, _ := newManager(t, &fakeBackend{})
	s := m.Start()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Submit(func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := s.Submit(func() error { return errors.New("must not run") })
	assert.ErrorIs(t, err, flows.ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, s.Submit(func() error { return nil }))
}
