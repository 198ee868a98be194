// Package settlement implements the settlement driver (spec component
// C7): for each trade the matcher proposes, it inserts the Trade row and
// appends the four ledger entries that move the matched amounts inside
// the matching transaction (spec §4.6 steps 1,2); the matching engine
// updates both orders' fill progress and status in that same transaction
// (step 4). The on-chain submission
// (step 3) happens after commit, via SubmitChain, and is reconciled by a
// compensating Relock on failure rather than retried automatically.
package settlement

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/ledger"
	"github.com/cradle-exchange/cradle/internal/orderbook"
	"github.com/cradle-exchange/cradle/internal/walletcap"
)

type Driver struct {
	ledger  *ledger.Service
	orders  *orderbook.Store
	wallet  walletcap.Capability
	log     *zap.Logger
	feeAddr common.Address
}

func New(led *ledger.Service, orders *orderbook.Store, wallet walletcap.Capability, feeAddr common.Address, log *zap.Logger) *Driver {
	return &Driver{ledger: led, orders: orders, wallet: wallet, feeAddr: feeAddr, log: log}
}

// Applied is one trade that was committed inside the matching transaction
// and still needs its on-chain leg submitted. The FilledXDelta fields are
// the fill-progress increments this trade contributed to each order, so a
// failed chain submission can reverse exactly this trade's share of the
// fill counters without touching anything another trade already applied.
type Applied struct {
	TradeID             dec.ID
	MarketContract      common.Address
	MakerOrderID        dec.ID
	TakerOrderID        dec.ID
	MakerAddress        common.Address
	TakerAddress        common.Address
	Asset1              dec.ID
	Asset2              dec.ID
	MakerAmount         dec.D
	TakerAmount         dec.D
	MakerFilledBidDelta dec.D
	MakerFilledAskDelta dec.D
	TakerFilledBidDelta dec.D
	TakerFilledAskDelta dec.D
}

// ApplyFill inserts the Trade row as Matched and appends the four ledger
// entries in the given transaction, per spec §4.6 step 2: Unlock the
// taker's filled bid from its lock, Transfer it to the maker; Unlock the
// maker's filled bid from its lock, Transfer it to the taker.
func (d *Driver) ApplyFill(ctx context.Context, tx pgx.Tx, incoming, maker orderbook.Order, fill orderbook.ProposedFill, marketContract common.Address) (Applied, error) {
	tradeID, err := d.orders.InsertTrade(ctx, tx, orderbook.Trade{
		MakerOrderID:      maker.ID,
		TakerOrderID:      incoming.ID,
		MakerFilledAmount: fill.MakerFilledAmount,
		TakerFilledAmount: fill.TakerFilledAmount,
		SettlementStatus:  orderbook.Matched,
	})
	if err != nil {
		return Applied{}, err
	}

	takerAddr := common.HexToAddress(incoming.WalletAddress)
	makerAddr := common.HexToAddress(maker.WalletAddress)
	ref := "trade:" + tradeID.String()

	// Taker gave up fill.MakerFilledAmount of its bid_asset (I.bid_asset);
	// unlock it from the taker's lock and transfer to the maker.
	if err := d.ledger.Unlock(ctx, tx, takerAddr, incoming.BidAsset, fill.MakerFilledAmount, ref); err != nil {
		return Applied{}, err
	}
	if err := d.ledger.Transfer(ctx, tx, takerAddr, makerAddr, incoming.BidAsset, fill.MakerFilledAmount, ref); err != nil {
		return Applied{}, err
	}
	// Maker gave up fill.TakerFilledAmount of its bid_asset (M.bid_asset,
	// which is I.ask_asset); unlock from the maker's lock, transfer to taker.
	if err := d.ledger.Unlock(ctx, tx, makerAddr, maker.BidAsset, fill.TakerFilledAmount, ref); err != nil {
		return Applied{}, err
	}
	if err := d.ledger.Transfer(ctx, tx, makerAddr, takerAddr, maker.BidAsset, fill.TakerFilledAmount, ref); err != nil {
		return Applied{}, err
	}

	return Applied{
		TradeID:             tradeID,
		MarketContract:      marketContract,
		MakerOrderID:        maker.ID,
		TakerOrderID:        incoming.ID,
		MakerAddress:        makerAddr,
		TakerAddress:        takerAddr,
		Asset1:              incoming.BidAsset,
		Asset2:              maker.BidAsset,
		MakerAmount:         fill.MakerFilledAmount,
		TakerAmount:         fill.TakerFilledAmount,
		MakerFilledBidDelta: fill.TakerFilledAmount,
		MakerFilledAskDelta: fill.MakerFilledAmount,
		TakerFilledBidDelta: fill.MakerFilledAmount,
		TakerFilledAskDelta: fill.TakerFilledAmount,
	}, nil
}

// SubmitChain runs after the matching transaction commits (spec §4.6 step
// 3: "the persisted state is the durable truth, the chain mirrors it").
// On success the Trade moves to Settled; on failure it moves to Failed
// and a compensating Relock is appended to both sides in a fresh
// transaction — no automatic retry.
func (d *Driver) SubmitChain(ctx context.Context, beginTx func(context.Context) (pgx.Tx, error), a Applied) error {
	_, err := d.wallet.SubmitSettlement(ctx, walletcap.SettlementCall{
		MarketContract: a.MarketContract,
		From:           a.TakerAddress,
		To:             a.MakerAddress,
		Asset:          d.feeAddr, // fee collector context carried for audit; settlement asset resolution is chain-side
		Amount:         a.MakerAmount,
	})

	tx, txErr := beginTx(ctx)
	if txErr != nil {
		return cradleerr.Persistence("SettlementFollowupTxFailed", "begin settlement follow-up transaction", txErr)
	}
	defer tx.Rollback(ctx)

	if err != nil {
		d.log.Warn("on-chain settlement failed, compensating with relock",
			zap.String("trade_id", a.TradeID.String()), zap.Error(err))
		if ferr := d.orders.UpdateTradeStatus(ctx, tx, a.TradeID, orderbook.Failed); ferr != nil {
			return ferr
		}
		ref := "relock:" + a.TradeID.String()
		if lerr := d.ledger.Relock(ctx, tx, a.TakerAddress, a.Asset1, a.MakerAmount, ref); lerr != nil {
			return fmt.Errorf("compensating relock (taker): %w", lerr)
		}
		if lerr := d.ledger.Relock(ctx, tx, a.MakerAddress, a.Asset2, a.TakerAmount, ref); lerr != nil {
			return fmt.Errorf("compensating relock (maker): %w", lerr)
		}
		if rerr := d.orders.RevertFill(ctx, tx, a.TakerOrderID, a.TakerFilledBidDelta, a.TakerFilledAskDelta); rerr != nil {
			return fmt.Errorf("revert taker fill counters: %w", rerr)
		}
		if rerr := d.orders.RevertFill(ctx, tx, a.MakerOrderID, a.MakerFilledBidDelta, a.MakerFilledAskDelta); rerr != nil {
			return fmt.Errorf("revert maker fill counters: %w", rerr)
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			return cradleerr.Persistence("SettlementFollowupCommitFailed", "commit compensating relock", cerr)
		}
		return cradleerr.Settlement("ChainSubmitFailed", "on-chain settlement failed, compensated with relock", err)
	}

	if uerr := d.orders.UpdateTradeStatus(ctx, tx, a.TradeID, orderbook.Settled); uerr != nil {
		return uerr
	}
	if cerr := tx.Commit(ctx); cerr != nil {
		return cradleerr.Persistence("SettlementFollowupCommitFailed", "commit settled status", cerr)
	}
	return nil
}
