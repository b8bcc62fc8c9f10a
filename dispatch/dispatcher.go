// Package dispatch orchestrates the two user actions that spend points:
// payments and reward redemptions. A single in-flight guard rejects a second
// concurrent command rather than queueing it.
package dispatch

import (
	"context"
	"sync"
	"time"

	"barpoints/balance"
	"barpoints/gateway"
	"barpoints/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Kind discriminates pending commands.
type Kind string

const (
	KindPayment    Kind = "payment"
	KindRedemption Kind = "redemption"
)

// PendingCommand is the transient record of a dispatch in flight. Exactly one
// exists at a time.
type PendingCommand struct {
	ID       uuid.UUID
	Kind     Kind
	Amount   int64 // payment amount or redemption cost
	TargetID int64 // bar or reward ID
	IssuedAt time.Time
}

// Gateway is the slice of the REST gateway the dispatcher needs.
type Gateway interface {
	CreateTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error)
}

// SessionFunc returns the current session, or nil when logged out.
type SessionFunc func() *models.Session

// Dispatcher issues payment and redemption commands. Balance is never written
// directly; every mutation goes through the engine.
type Dispatcher struct {
	gateway       Gateway
	engine        *balance.Engine
	session       SessionFunc
	paymentAmount int64
	redeemDelay   time.Duration

	mu         sync.Mutex
	processing bool
	pending    *PendingCommand
}

// New creates a dispatcher.
func New(gw Gateway, engine *balance.Engine, session SessionFunc, paymentAmount int64, redeemDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		gateway:       gw,
		engine:        engine,
		session:       session,
		paymentAmount: paymentAmount,
		redeemDelay:   redeemDelay,
	}
}

// Pay creates a fixed-amount payment transaction at the given bar.
//
// A successful response does not carry the authoritative balance; that
// arrives via the realtime channel, so the engine is deliberately not
// touched here.
func (d *Dispatcher) Pay(ctx context.Context, bar models.Bar) (*models.Transaction, error) {
	sess := d.session()
	if sess == nil {
		return nil, ErrNoSession
	}

	cmd, err := d.begin(KindPayment, d.paymentAmount, bar.ID)
	if err != nil {
		return nil, err
	}
	defer d.end()

	log.WithFields(log.Fields{
		"commandId": cmd.ID,
		"barId":     bar.ID,
		"amount":    d.paymentAmount,
	}).Info("Dispatching payment")

	tx, err := d.gateway.CreateTransaction(ctx, models.TransactionRequest{
		UserID: sess.UserID,
		BarID:  bar.ID,
		Amount: d.paymentAmount,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"commandId": cmd.ID,
			"barId":     bar.ID,
		}).WithError(err).Warn("Payment rejected")
		if msg, ok := gateway.ServerMessage(err); ok {
			return nil, &CommandError{Message: msg, Err: err}
		}
		return nil, &CommandError{Message: "Payment failed. Please try again.", Err: err}
	}

	log.WithFields(log.Fields{
		"commandId":     cmd.ID,
		"transactionId": tx.ID,
		"status":        tx.Status,
	}).Info("Payment accepted, awaiting balance push")
	return tx, nil
}

// Redeem spends points on a reward. The cost is checked against the current
// balance before anything leaves the process; a deficit is reported without a
// network call.
//
// There is no redemption endpoint on the backend yet, so confirmation is a
// fixed delay followed by an optimistic local decrement. The provisional
// value is tagged as such and any later push overwrites it.
func (d *Dispatcher) Redeem(ctx context.Context, reward models.Reward) error {
	sess := d.session()
	if sess == nil {
		return ErrNoSession
	}

	cmd, err := d.begin(KindRedemption, reward.PointsCost, reward.ID)
	if err != nil {
		return err
	}
	defer d.end()

	snap := d.engine.Snapshot()
	if snap.Value < reward.PointsCost {
		return &InsufficientPointsError{
			Cost:    reward.PointsCost,
			Balance: snap.Value,
			Deficit: reward.PointsCost - snap.Value,
		}
	}

	log.WithFields(log.Fields{
		"commandId": cmd.ID,
		"rewardId":  reward.ID,
		"cost":      reward.PointsCost,
	}).Info("Dispatching redemption")

	select {
	case <-time.After(d.redeemDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	d.engine.ApplyLocal(snap.Value - reward.PointsCost)

	log.WithFields(log.Fields{
		"commandId":  cmd.ID,
		"rewardId":   reward.ID,
		"newBalance": snap.Value - reward.PointsCost,
	}).Info("Redemption applied optimistically")
	return nil
}

// Pending returns the command currently in flight, or nil.
func (d *Dispatcher) Pending() *PendingCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return nil
	}
	cp := *d.pending
	return &cp
}

// begin claims the in-flight guard. A second concurrent command is rejected,
// never queued.
func (d *Dispatcher) begin(kind Kind, amount, targetID int64) (*PendingCommand, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.processing {
		return nil, ErrBusy
	}
	d.processing = true
	d.pending = &PendingCommand{
		ID:       uuid.New(),
		Kind:     kind,
		Amount:   amount,
		TargetID: targetID,
		IssuedAt: time.Now(),
	}
	return d.pending, nil
}

// end releases the guard. It runs on every dispatch path, success or failure.
func (d *Dispatcher) end() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processing = false
	d.pending = nil
}
