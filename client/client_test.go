package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"barpoints/balance"
	"barpoints/config"
	"barpoints/models"
	"barpoints/realtime"
	"barpoints/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn feeds scripted push frames into the realtime channel.
type fakeConn struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.in:
		return 1, msg, nil
	case <-f.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (f *fakeConn) WriteJSON(v any) error { return nil }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// pushBalance delivers a points message for userID.
func (f *fakeConn) pushBalance(t *testing.T, userID, value int64) {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"event": "message",
		"topic": realtime.Topic(userID),
		"payload": map[string]any{
			"userId":        userID,
			"pointsBalance": value,
			"timestamp":     time.Now().UnixMilli(),
		},
	})
	require.NoError(t, err)
	f.in <- b
}

type fakeDialer struct {
	mu   sync.Mutex
	conn *fakeConn
	err  error
}

func (d *fakeDialer) DialContext(ctx context.Context, url string) (realtime.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

// backend is a scriptable loyalty server.
type backend struct {
	mu          sync.Mutex
	balance     int64
	failProfile bool
	srv         *httptest.Server
}

func newBackend(t *testing.T, initialBalance int64) *backend {
	b := &backend{balance: initialBalance}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		bal := b.balance
		b.mu.Unlock()
		json.NewEncoder(w).Encode(models.LoginResponse{
			User:  models.User{ID: 1, Username: "ana", PointsBalance: bal},
			Token: "jwt-token",
		})
	})
	mux.HandleFunc("GET /api/v1/users/1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		fail, bal := b.failProfile, b.balance
		b.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(models.User{ID: 1, Username: "ana", PointsBalance: bal})
	})
	mux.HandleFunc("POST /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Transaction{ID: 9, Amount: 50, Status: "COMPLETED", PointsEarned: 50})
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) setBalance(v int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance = v
}

func (b *backend) setFailProfile(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failProfile = fail
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		APIBaseURL:         baseURL,
		WSURL:              "ws://test/ws",
		APIVersion:         "v1",
		AuthScheme:         config.AuthSchemeBearer,
		PaymentAmount:      50,
		RedeemConfirmDelay: time.Millisecond,
		PollInterval:       10 * time.Millisecond,
		Environment:        "test",
	}
}

func newTestClient(t *testing.T, be *backend, dialer realtime.Dialer) (*Client, session.Store) {
	store := session.NewMemoryStore()
	c, err := New(testConfig(be.srv.URL), store, dialer)
	require.NoError(t, err)
	return c, store
}

func waitForSnapshot(t *testing.T, ch <-chan balance.Snapshot, match func(balance.Snapshot) bool) balance.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for balance snapshot")
		}
	}
}

func TestClient_LoginPersistsSession(t *testing.T) {
	be := newBackend(t, 100)
	c, store := newTestClient(t, be, &fakeDialer{conn: newFakeConn()})

	user, err := c.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.PointsBalance)

	persisted, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "jwt-token", persisted.Token)
	assert.Empty(t, persisted.CredentialSecret, "bearer revision keeps no secret")
	assert.Equal(t, int64(100), persisted.CachedBalance)
}

func TestClient_BasicSchemeKeepsCredentialSecret(t *testing.T) {
	be := newBackend(t, 100)
	cfg := testConfig(be.srv.URL)
	cfg.AuthScheme = config.AuthSchemeBasic
	store := session.NewMemoryStore()
	c, err := New(cfg, store, &fakeDialer{conn: newFakeConn()})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "pw", persisted.CredentialSecret)
}

func TestClient_StartSyncsAndFollowsPushes(t *testing.T) {
	be := newBackend(t, 100)
	conn := newFakeConn()
	c, _ := newTestClient(t, be, &fakeDialer{conn: conn})

	ctx := context.Background()
	_, err := c.Login(ctx, "ana", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	snap := c.Balance()
	assert.Equal(t, int64(100), snap.Value)
	assert.Equal(t, balance.SourceFetched, snap.Source)
	assert.Equal(t, realtime.StatusSubscribed, c.ChannelStatus())

	snaps := make(chan balance.Snapshot, 16)
	cancel := c.SubscribeBalance(func(s balance.Snapshot) { snaps <- s })
	defer cancel()

	conn.pushBalance(t, 1, 160)
	got := waitForSnapshot(t, snaps, func(s balance.Snapshot) bool {
		return s.Source == balance.SourcePushed
	})
	assert.Equal(t, int64(160), got.Value)
}

func TestClient_FetchFailureKeepsCachedBalanceAndSession(t *testing.T) {
	be := newBackend(t, 100)
	c, store := newTestClient(t, be, &fakeDialer{conn: newFakeConn()})

	ctx := context.Background()
	_, err := c.Login(ctx, "ana", "pw")
	require.NoError(t, err)

	be.setFailProfile(true)
	require.NoError(t, c.Start(ctx), "a transient fetch failure must not eject the session")
	defer c.Stop()

	assert.Equal(t, int64(100), c.Balance().Value, "cached value survives the failed fetch")
	assert.NotNil(t, c.Session())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.NotNil(t, persisted)
}

func TestClient_PaymentConfirmedByPushNotResponse(t *testing.T) {
	be := newBackend(t, 100)
	conn := newFakeConn()
	c, _ := newTestClient(t, be, &fakeDialer{conn: conn})

	ctx := context.Background()
	_, err := c.Login(ctx, "ana", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	tx, err := c.Pay(ctx, models.Bar{ID: 2, Name: "Irish Pub"})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", tx.Status)
	assert.Equal(t, int64(100), c.Balance().Value, "payment response alone moves nothing")

	snaps := make(chan balance.Snapshot, 16)
	cancel := c.SubscribeBalance(func(s balance.Snapshot) { snaps <- s })
	defer cancel()

	conn.pushBalance(t, 1, 50)
	got := waitForSnapshot(t, snaps, func(s balance.Snapshot) bool {
		return s.Source == balance.SourcePushed
	})
	assert.Equal(t, int64(50), got.Value, "the push is authoritative regardless of the payment response")
}

func TestClient_RedeemScenario(t *testing.T) {
	be := newBackend(t, 100)
	c, _ := newTestClient(t, be, &fakeDialer{conn: newFakeConn()})

	ctx := context.Background()
	_, err := c.Login(ctx, "ana", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	require.NoError(t, c.Redeem(ctx, models.Reward{ID: 4, Name: "Free Pint", PointsCost: 30}))

	snap := c.Balance()
	assert.Equal(t, int64(70), snap.Value)
	assert.Equal(t, balance.SourceOptimisticLocal, snap.Source)
}

func TestClient_LogoutTearsEverythingDown(t *testing.T) {
	be := newBackend(t, 100)
	conn := newFakeConn()
	c, store := newTestClient(t, be, &fakeDialer{conn: conn})

	ctx := context.Background()
	_, err := c.Login(ctx, "ana", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))

	var calls int
	c.SubscribeBalance(func(balance.Snapshot) { calls++ })
	callsBefore := calls

	require.NoError(t, c.Logout())

	assert.Nil(t, c.Session())
	assert.Equal(t, realtime.StatusDisconnected, c.ChannelStatus(), "no live connection survives logout")
	assert.Equal(t, int64(0), c.Balance().Value)

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)

	// Old subscribers are gone; nothing is delivered anymore.
	assert.Equal(t, callsBefore, calls)
}

func TestClient_DialFailureFallsBackToPolling(t *testing.T) {
	be := newBackend(t, 100)
	c, _ := newTestClient(t, be, &fakeDialer{err: errors.New("no websocket here")})

	ctx := context.Background()
	_, err := c.Login(ctx, "ana", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx), "channel failure degrades, it does not abort the session")
	defer c.Stop()

	assert.Equal(t, realtime.StatusDisconnected, c.ChannelStatus())

	be.setBalance(175)
	require.Eventually(t, func() bool {
		return c.Balance().Value == 175
	}, 2*time.Second, 10*time.Millisecond, "the poller keeps the balance fresh while the channel is down")
}
