// Package balance is the authoritative in-process points balance.
//
// Three feeds mutate it: the REST profile fetch at session start, pushes from
// the realtime channel, and optimistic local updates from the user's own
// commands. The engine decides which value wins and broadcasts every accepted
// change to its subscribers.
package balance

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Source records which feed last set the balance.
type Source string

const (
	SourceFetched         Source = "fetched"
	SourcePushed          Source = "pushed"
	SourceOptimisticLocal Source = "optimistic_local"
)

// State is the engine's sync lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateFetching      State = "fetching"
	StateSynced        State = "synced"
	StateDegraded      State = "degraded"
)

// Snapshot is an immutable view of the balance. Seq is a monotonic update
// stamp; it orders values without relying on wall clocks.
type Snapshot struct {
	Value  int64
	Source Source
	Seq    uint64
}

// SubscriberFunc receives balance snapshots. Subscribing replays the latest
// snapshot immediately, then every accepted update follows synchronously in
// arrival order.
type SubscriberFunc func(Snapshot)

// Engine owns the balance. It is never torn down, only Reset on logout.
type Engine struct {
	mu          sync.Mutex
	state       State
	snap        Snapshot
	lastPushSeq uint64

	nextSubID int
	subs      map[int]SubscriberFunc
	subOrder  []int
}

// NewEngine creates an uninitialized engine with a zero balance.
func NewEngine() *Engine {
	return &Engine{
		state: StateUninitialized,
		subs:  make(map[int]SubscriberFunc),
	}
}

// State returns the current sync state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the current balance snapshot.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Seed installs the cached balance from the session store before the first
// fetch completes. The cache is a stale fetch, so it keeps that provenance.
func (e *Engine) Seed(cached int64) {
	e.mu.Lock()
	e.snap.Seq++
	e.snap.Value = cached
	e.snap.Source = SourceFetched
	snap, subs := e.snap, e.subscribers()
	e.mu.Unlock()

	log.WithField("value", cached).Debug("Seeded balance from cached session value")
	notify(subs, snap)
}

// BeginFetch marks the profile fetch in flight and returns the epoch to hand
// back to CompleteFetch. The epoch is the update stamp at fetch start; any
// push applied after it outranks the fetch result.
func (e *Engine) BeginFetch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateFetching
	return e.snap.Seq
}

// CompleteFetch applies a successful profile fetch. The fetched value is
// discarded when a push arrived after the fetch began, because pushes are
// defined as always more recent than REST data. Returns whether the value
// was applied.
func (e *Engine) CompleteFetch(value int64, epoch uint64) bool {
	e.mu.Lock()
	if e.lastPushSeq > epoch {
		e.state = StateSynced
		stale := e.snap
		e.mu.Unlock()
		log.WithFields(log.Fields{
			"fetched": value,
			"current": stale.Value,
		}).Info("Discarding fetch result, a push superseded it")
		return false
	}
	e.state = StateSynced
	e.snap.Seq++
	e.snap.Value = value
	e.snap.Source = SourceFetched
	snap, subs := e.snap, e.subscribers()
	e.mu.Unlock()

	log.WithField("value", value).Debug("Balance synced from profile fetch")
	notify(subs, snap)
	return true
}

// FailFetch records a failed profile fetch. The last known value is kept and
// the session stays valid; a transient fetch failure must not eject an
// otherwise-working session. No broadcast happens because no value changed.
func (e *Engine) FailFetch(err error) {
	e.mu.Lock()
	if e.state == StateFetching {
		e.state = StateDegraded
	}
	value := e.snap.Value
	e.mu.Unlock()

	log.WithError(err).WithField("cachedValue", value).
		Warn("Profile fetch failed, keeping cached balance")
}

// ApplyPush applies a balance push from the realtime channel. Pushes win
// unconditionally over whatever came before (last-push-wins).
func (e *Engine) ApplyPush(value int64) {
	e.mu.Lock()
	e.state = StateSynced
	e.snap.Seq++
	e.snap.Value = value
	e.snap.Source = SourcePushed
	e.lastPushSeq = e.snap.Seq
	snap, subs := e.snap, e.subscribers()
	e.mu.Unlock()

	log.WithField("value", value).Debug("Balance updated from realtime push")
	notify(subs, snap)
}

// ApplyLocal applies an optimistic local value. It is provisional and
// expected to be superseded by a subsequent push.
func (e *Engine) ApplyLocal(value int64) {
	e.mu.Lock()
	e.state = StateSynced
	e.snap.Seq++
	e.snap.Value = value
	e.snap.Source = SourceOptimisticLocal
	snap, subs := e.snap, e.subscribers()
	e.mu.Unlock()

	log.WithField("value", value).Debug("Balance updated optimistically")
	notify(subs, snap)
}

// Subscribe registers fn and immediately replays the latest snapshot to it.
// The returned cancel removes the subscription; calling it twice is safe.
func (e *Engine) Subscribe(fn SubscriberFunc) (cancel func()) {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = fn
	e.subOrder = append(e.subOrder, id)
	snap := e.snap
	e.mu.Unlock()

	fn(snap)

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// Reset returns the engine to its pre-session state and drops all
// subscribers. Called on logout.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateUninitialized
	e.snap = Snapshot{}
	e.lastPushSeq = 0
	e.subs = make(map[int]SubscriberFunc)
	e.subOrder = nil
	log.Debug("Balance engine reset")
}

// subscribers returns the current subscriber set in subscription order.
// Caller must hold e.mu.
func (e *Engine) subscribers() []SubscriberFunc {
	out := make([]SubscriberFunc, 0, len(e.subs))
	for _, id := range e.subOrder {
		if fn, ok := e.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// notify calls subscribers synchronously, outside the engine lock so a
// subscriber may read the engine re-entrantly.
func notify(subs []SubscriberFunc, snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
