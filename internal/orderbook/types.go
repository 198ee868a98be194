// Package orderbook implements the order book store (spec component C5)
// and the pure fill walk that the matching engine (C6, package matching)
// runs: the heart of the system. The
// candidate ranking and fill computation are ported line-for-line from
// the original system's matching SQL and fill-walk algorithm, expressed
// as an in-transaction Go query plus a pure Go fill function instead of a
// second round-trip.
package orderbook

import (
	"time"

	"github.com/cradle-exchange/cradle/internal/dec"
)

type OrderType string

const (
	Limit  OrderType = "limit"
	Market OrderType = "market"
)

type Mode string

const (
	GTC Mode = "gtc"
	IOC Mode = "ioc"
	FOK Mode = "fok"
)

type Status string

const (
	Open            Status = "open"
	PartiallyFilled Status = "partially_filled"
	Filled          Status = "filled"
	Cancelled       Status = "cancelled"
	Expired         Status = "expired"
)

// Order is one row of the order book (spec §3).
type Order struct {
	ID              dec.ID
	Wallet          dec.ID
	WalletAddress   string // hex address, denormalized for ledger calls
	MarketID        dec.ID
	BidAsset        dec.ID
	AskAsset        dec.ID
	BidAmount       dec.D
	AskAmount       dec.D
	FilledBid       dec.D
	FilledAsk       dec.D
	Price           dec.D
	OrderType       OrderType
	Mode            Mode
	Status          Status
	CreatedAt       time.Time
	ExpiresAt       *time.Time
}

func (o Order) RemainingBid() dec.D { return o.BidAmount.Sub(o.FilledBid) }
func (o Order) RemainingAsk() dec.D { return o.AskAmount.Sub(o.FilledAsk) }

type SettlementStatus string

const (
	Matched SettlementStatus = "matched"
	Settled SettlementStatus = "settled"
	Failed  SettlementStatus = "failed"
)

// Trade is one row linking a maker/taker pair (spec §3). The unordered
// {maker, taker} pair is the idempotency key: at most one row may carry
// SettlementStatus == Matched for a given pair.
type Trade struct {
	ID                 dec.ID
	MakerOrderID       dec.ID
	TakerOrderID       dec.ID
	MakerFilledAmount  dec.D
	TakerFilledAmount  dec.D
	SettlementStatus   SettlementStatus
	CreatedAt          time.Time
}

// FillStatus is the terminal classification returned from PlaceOrder
// (spec §4.5's OrderFillResult.status).
type FillStatus string

const (
	StatusPartial   FillStatus = "partial"
	StatusFilled    FillStatus = "filled"
	StatusCancelled FillStatus = "cancelled"
)

// OrderFillResult is the public return shape of PlaceOrder.
type OrderFillResult struct {
	ID               dec.ID
	Status           FillStatus
	BidAmountFilled  dec.D
	AskAmountFilled  dec.D
	MatchedTrades    []dec.ID
}
