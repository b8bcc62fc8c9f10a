// Package client owns one logical session: the Session value, the balance
// engine, the realtime channel and the command dispatcher, constructed once
// and torn down together on logout.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"barpoints/auth"
	"barpoints/balance"
	"barpoints/config"
	"barpoints/dispatch"
	"barpoints/gateway"
	"barpoints/models"
	"barpoints/realtime"
	"barpoints/session"

	log "github.com/sirupsen/logrus"
)

// Client wires the session-scoped components. All balance mutations route
// through the engine; the client only sequences them.
type Client struct {
	cfg        *config.Config
	store      session.Store
	gw         *gateway.Client
	engine     *balance.Engine
	channel    *realtime.Channel
	dispatcher *dispatch.Dispatcher

	mu          sync.Mutex
	sess        *models.Session
	pollCancel  context.CancelFunc
	cacheCancel func()
}

// New builds a client from config. Any previously persisted session is
// picked up so authenticated calls work across restarts.
func New(cfg *config.Config, store session.Store, dialer realtime.Dialer) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		store:  store,
		engine: balance.NewEngine(),
	}

	sess, err := store.Load()
	if err != nil {
		log.WithError(err).Warn("Could not load persisted session, starting logged out")
	}
	c.sess = sess

	gw, err := gateway.New(gateway.Config{
		BaseURL:    cfg.APIBaseURL,
		APIVersion: cfg.APIVersion,
		Transport:  auth.NewTransport(cfg.AuthScheme, c.Session),
	})
	if err != nil {
		return nil, fmt.Errorf("build gateway: %w", err)
	}
	c.gw = gw

	if dialer == nil {
		dialer = realtime.NewDialer()
	}
	c.channel = realtime.NewChannel(cfg.WSURL, dialer)
	c.channel.OnBalance = c.engine.ApplyPush
	c.channel.OnDisconnect = func(err error) {
		log.WithError(err).Warn("Realtime channel dropped, balance is stale until reconnect")
	}

	c.dispatcher = dispatch.New(gw, c.engine, c.Session, cfg.PaymentAmount, cfg.RedeemConfirmDelay)
	return c, nil
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil
	}
	cp := *c.sess
	return &cp
}

// LoggedIn reports whether an identity is resolvable.
func (c *Client) LoggedIn() bool { return c.Session() != nil }

// Login authenticates and persists the resulting session. Under the Basic
// scheme the password is kept as the credential secret; under Bearer only
// the token is kept.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	resp, err := c.gw.Login(ctx, models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		UserID:        resp.User.ID,
		Username:      resp.User.Username,
		Token:         resp.Token,
		CachedBalance: resp.User.PointsBalance,
	}
	if c.cfg.AuthScheme == config.AuthSchemeBasic {
		sess.CredentialSecret = password
	}

	if err := c.store.Save(sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"userId":   sess.UserID,
		"username": sess.Username,
	}).Info("Logged in")
	return &resp.User, nil
}

// Register creates an account. No session is created; the user logs in next.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	return c.gw.Register(ctx, req)
}

// Start runs the session-start sequence: seed the engine from the cached
// balance, fetch the authoritative profile, then bring up the realtime
// channel. A failed fetch degrades to the cached value and never ends the
// session. A failed channel dial degrades to a REST poller until the next
// Start.
func (c *Client) Start(ctx context.Context) error {
	sess := c.Session()
	if sess == nil {
		return dispatch.ErrNoSession
	}

	c.engine.Seed(sess.CachedBalance)

	c.mu.Lock()
	needCacheSub := c.cacheCancel == nil
	c.mu.Unlock()
	if needCacheSub {
		// Subscribe outside the client lock: the replay-of-one callback
		// persists the cached balance and takes the lock itself.
		cancel := c.engine.Subscribe(func(snap balance.Snapshot) {
			c.persistCachedBalance(snap.Value)
		})
		c.mu.Lock()
		c.cacheCancel = cancel
		c.mu.Unlock()
	}

	c.refreshProfile(ctx)

	if err := c.channel.Connect(ctx, sess.UserID); err != nil {
		log.WithError(err).Warn("Realtime channel unavailable, falling back to polling")
		c.startPoller()
	} else {
		c.stopPoller()
	}
	return nil
}

// refreshProfile runs one fetch cycle against the engine's epoch rules.
func (c *Client) refreshProfile(ctx context.Context) {
	sess := c.Session()
	if sess == nil {
		return
	}
	epoch := c.engine.BeginFetch()
	user, err := c.gw.GetProfile(ctx, sess.UserID)
	if err != nil {
		c.engine.FailFetch(err)
		return
	}
	c.engine.CompleteFetch(user.PointsBalance, epoch)
}

// startPoller refreshes the profile periodically while the realtime channel
// is down. Stopped by the next successful Start or by Logout.
func (c *Client) startPoller() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel

	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshProfile(ctx)
			}
		}
	}()
}

func (c *Client) stopPoller() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

// persistCachedBalance mirrors accepted balance values back into the session
// store so a restart seeds from the last known value.
func (c *Client) persistCachedBalance(value int64) {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return
	}
	c.sess.CachedBalance = value
	cp := *c.sess
	c.mu.Unlock()

	if err := c.store.Save(&cp); err != nil {
		log.WithError(err).Warn("Could not persist cached balance")
	}
}

// Bars lists venues with their rewards.
func (c *Client) Bars(ctx context.Context) ([]models.Bar, error) {
	return c.gw.ListBars(ctx)
}

// Pay dispatches a payment at the given bar.
func (c *Client) Pay(ctx context.Context, bar models.Bar) (*models.Transaction, error) {
	return c.dispatcher.Pay(ctx, bar)
}

// Redeem dispatches a reward redemption.
func (c *Client) Redeem(ctx context.Context, reward models.Reward) error {
	return c.dispatcher.Redeem(ctx, reward)
}

// Balance returns the engine's current snapshot.
func (c *Client) Balance() balance.Snapshot {
	return c.engine.Snapshot()
}

// SubscribeBalance registers fn with the engine; it is replayed the latest
// snapshot immediately. The returned cancel unsubscribes.
func (c *Client) SubscribeBalance(fn balance.SubscriberFunc) (cancel func()) {
	return c.engine.Subscribe(fn)
}

// ChannelStatus exposes the realtime connection status.
func (c *Client) ChannelStatus() realtime.Status {
	return c.channel.Status()
}

// Stop tears down the live connections when the consuming context goes away
// without ending the session: the poller stops, the channel disconnects and
// balance subscribers are dropped. The persisted session survives.
func (c *Client) Stop() {
	c.stopPoller()
	c.channel.Disconnect()

	c.mu.Lock()
	c.cacheCancel = nil
	c.mu.Unlock()

	c.engine.Reset()
}

// Logout is the single teardown signal: the poller stops, the channel
// disconnects, every balance subscriber is dropped, and the persisted
// session is cleared. Nothing survives past it.
func (c *Client) Logout() error {
	c.Stop()

	c.mu.Lock()
	c.sess = nil
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	log.Info("Logged out")
	return nil
}
