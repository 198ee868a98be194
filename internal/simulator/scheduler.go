package simulator

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/router"
	"github.com/cradle-exchange/cradle/internal/simulator/statestore"
)

// Scheduler drives action slots through the action router, resuming
// from a prior run's Pebble-persisted state on startup. It is the Go
// counterpart of the original system's simulator scheduler loop: a
// Pending -> InFlight -> Succeeded|Failed|Abandoned state machine
// (spec §6) wrapped around budget-gated, retried dispatch calls.
type Scheduler struct {
	cfg     Config
	router  *router.Router
	budget  *BudgetStore
	state   *statestore.Store
	log     *zap.Logger
}

func NewScheduler(cfg Config, r *router.Router, budget *BudgetStore, state *statestore.Store, log *zap.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, router: r, budget: budget, state: state, log: log}
}

// Resume loads any non-terminal slots persisted by a previous run and
// replays them before new work is scheduled, so a crashed simulator
// resumes rather than silently drops in-flight orders.
func (s *Scheduler) Resume(ctx context.Context) error {
	slots, err := s.state.LoadSlots()
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if !slot.Resumable() {
			continue
		}
		s.log.Info("resuming simulator slot", zap.String("id", slot.ID), zap.String("state", string(slot.State)))
		if err := s.runSlot(ctx, slot); err != nil {
			s.log.Warn("resumed slot failed", zap.String("id", slot.ID), zap.Error(err))
		}
	}
	return nil
}

// ScheduleOrder turns one synthetic order into an action slot, deducts
// its bid amount from the account's budget, persists the slot as
// Pending, and runs it through the retry-wrapped dispatch path.
func (s *Scheduler) ScheduleOrder(ctx context.Context, id string, o SyntheticOrder) error {
	if err := s.budget.Deduct(o.Wallet, o.BidAsset, o.BidAmount); err != nil {
		s.log.Debug("skipping slot, budget exhausted", zap.String("wallet", o.Wallet), zap.String("asset", o.BidAsset))
		return nil
	}

	payload, err := buildPlaceOrderPayload(o)
	if err != nil {
		s.budget.Refund(o.Wallet, o.BidAsset, o.BidAmount)
		return err
	}

	slot := statestore.Slot{
		ID:        id,
		Domain:    string(router.DomainOrderBook),
		Operation: "PlaceOrder",
		Payload:   payload,
		Account:   o.Wallet,
		Asset:     o.BidAsset,
		Amount:    o.BidAmount.String(),
		State:     statestore.Pending,
	}
	if err := s.state.SaveSlot(slot); err != nil {
		return err
	}
	return s.runSlot(ctx, slot)
}

func buildPlaceOrderPayload(o SyntheticOrder) ([]byte, error) {
	marketID, err := dec.ParseID(o.MarketID)
	if err != nil {
		return nil, err
	}
	bidAsset, err := dec.ParseID(o.BidAsset)
	if err != nil {
		return nil, err
	}
	askAsset, err := dec.ParseID(o.AskAsset)
	if err != nil {
		return nil, err
	}
	wallet, err := dec.ParseID(o.Wallet)
	if err != nil {
		return nil, err
	}

	args := map[string]any{
		"wallet":             wallet,
		"wallet_address":     o.WalletAddress,
		"market_id":          marketID,
		"bid_asset":          bidAsset,
		"ask_asset":          askAsset,
		"bid_amount":         o.BidAmount,
		"ask_amount":         o.AskAmount,
		"order_type":         o.OrderType,
		"mode":               o.Mode,
		"on_chain_bid_balance": o.BidAmount,
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	envelope := map[string]any{
		string(router.DomainOrderBook): map[string]any{
			"PlaceOrder": json.RawMessage(payload),
		},
	}
	return json.Marshal(envelope)
}

// runSlot marks the slot InFlight, runs the dispatch under the
// configured retry policy, and lands it on a terminal state. A failed
// slot after exhausting retries refunds its budget reservation and is
// marked Failed rather than retried indefinitely — the original
// system's scheduler does not auto-resubmit past max_retries either.
func (s *Scheduler) runSlot(ctx context.Context, slot statestore.Slot) error {
	slot.State = statestore.InFlight
	if err := s.state.SaveSlot(slot); err != nil {
		return err
	}

	err := WithRetry(ctx, s.cfg.Processor.RetryBaseDelay, s.cfg.Processor.MaxRetries, func() error {
		slot.Attempts++
		resp := s.router.Dispatch(ctx, slot.Payload)
		if !resp.Success {
			return fmt.Errorf("%s", resp.Error)
		}
		return nil
	})

	if err != nil {
		slot.State = statestore.Failed
		slot.LastError = err.Error()
		s.budget.Refund(slot.Account, slot.Asset, mustAmount(slot.Amount))
		s.log.Warn("simulator slot failed after retries", zap.String("id", slot.ID), zap.Error(err))
	} else {
		slot.State = statestore.Succeeded
	}

	if s.cfg.Processor.SaveAfterEachSlot {
		return s.state.SaveSlot(slot)
	}
	return nil
}

func mustAmount(literal string) dec.D {
	amount, err := dec.New(literal)
	if err != nil {
		return dec.Zero
	}
	return amount
}
