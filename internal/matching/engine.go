// Package matching implements the matching engine (spec component C6):
// order admission, candidate selection, the fill walk, and the mode
// semantics (GTC/IOC/FOK) that turn a sequence of proposed fills into a
// final OrderFillResult. It is the orchestration layer that ties together
// C3 (assets/KYC), C4 (market discipline), C5 (order book store), and C7
// (settlement) inside the single matching transaction spec §5 requires.
package matching

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/assets"
	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/ledger"
	"github.com/cradle-exchange/cradle/internal/market"
	"github.com/cradle-exchange/cradle/internal/orderbook"
	"github.com/cradle-exchange/cradle/internal/settlement"
)

// NewOrderRequest is the caller-supplied shape of an incoming order
// before admission (spec §4.5's place_order input).
type NewOrderRequest struct {
	Wallet        dec.ID
	WalletAddress common.Address
	MarketID      dec.ID
	BidAsset      dec.ID
	AskAsset      dec.ID
	BidAmount     dec.D
	AskAmount     dec.D
	OrderType     orderbook.OrderType
	Mode          orderbook.Mode
	ExpiresAt     *time.Time
	OnChainBidBal dec.D // the wallet's on-chain balance of BidAsset, from the external chain reader
}

// Engine ties the pieces together under one pgx pool; PlaceOrder runs
// entirely inside one serializable transaction, retrying on serialization
// conflicts up to a small bounded count per spec §7.
type Engine struct {
	pool       *pgxpool.Pool
	orders     *orderbook.Store
	ledger     *ledger.Service
	markets    *market.Registry
	assets     *assets.Registry
	settlement *settlement.Driver
	log        *zap.Logger

	maxSerializationRetries int
}

func New(pool *pgxpool.Pool, orders *orderbook.Store, led *ledger.Service, markets *market.Registry, ar *assets.Registry, settle *settlement.Driver, log *zap.Logger) *Engine {
	return &Engine{pool: pool, orders: orders, ledger: led, markets: markets, assets: ar, settlement: settle, log: log, maxSerializationRetries: 3}
}

// validatePriceConvention resolves the §9 open question: price must equal
// bid_amount/ask_amount under truncation, recomputed server-side rather
// than trusted from the caller.
func validatePriceConvention(bidAmount, askAmount dec.D) (dec.D, error) {
	return dec.DivTrunc(bidAmount, askAmount)
}

// PlaceOrder is the public operation from spec §4.5.
func (e *Engine) PlaceOrder(ctx context.Context, req NewOrderRequest) (orderbook.OrderFillResult, error) {
	if req.BidAsset == req.AskAsset {
		return orderbook.OrderFillResult{}, cradleerr.Validation(cradleerr.CodeBadAmount, "bid_asset and ask_asset must differ")
	}
	if req.BidAmount.LessThanOrEqual(dec.Zero) || req.AskAmount.LessThanOrEqual(dec.Zero) {
		return orderbook.OrderFillResult{}, cradleerr.Validation(cradleerr.CodeBadAmount, "bid_amount and ask_amount must be positive")
	}

	price, err := validatePriceConvention(req.BidAmount, req.AskAmount)
	if err != nil {
		return orderbook.OrderFillResult{}, err
	}

	m, err := e.markets.Get(ctx, req.MarketID)
	if err != nil {
		return orderbook.OrderFillResult{}, err
	}
	if !m.AssetPair(req.BidAsset, req.AskAsset) {
		return orderbook.OrderFillResult{}, cradleerr.Validation(cradleerr.CodeUnknownMarket, "asset pair does not belong to market")
	}
	if err := m.ValidatePrice(price); err != nil {
		return orderbook.OrderFillResult{}, err
	}
	if err := e.assets.CheckWalletEligible(ctx, req.Wallet, req.BidAsset); err != nil {
		return orderbook.OrderFillResult{}, err
	}
	if err := e.assets.CheckWalletEligible(ctx, req.Wallet, req.AskAsset); err != nil {
		return orderbook.OrderFillResult{}, err
	}

	order := orderbook.Order{
		ID:            dec.NewID(),
		Wallet:        req.Wallet,
		WalletAddress: req.WalletAddress.Hex(),
		MarketID:      req.MarketID,
		BidAsset:      req.BidAsset,
		AskAsset:      req.AskAsset,
		BidAmount:     req.BidAmount,
		AskAmount:     req.AskAmount,
		Price:         price,
		OrderType:     req.OrderType,
		Mode:          req.Mode,
		Status:        orderbook.Open,
		ExpiresAt:     req.ExpiresAt,
	}

	var result orderbook.OrderFillResult
	for attempt := 0; attempt <= e.maxSerializationRetries; attempt++ {
		result, err = e.placeOrderOnce(ctx, order, req.OnChainBidBal)
		if err == nil {
			return result, nil
		}
		if !isSerializationConflict(err) {
			return orderbook.OrderFillResult{}, err
		}
	}
	return orderbook.OrderFillResult{}, cradleerr.Persistence(cradleerr.CodeSerializationConflict, "exhausted serialization retries", err)
}

func (e *Engine) placeOrderOnce(ctx context.Context, order orderbook.Order, onChainBidBal dec.D) (orderbook.OrderFillResult, error) {
	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return orderbook.OrderFillResult{}, cradleerr.Persistence("BeginTxFailed", "begin matching transaction", err)
	}
	defer tx.Rollback(ctx)

	walletAddr := common.HexToAddress(order.WalletAddress)

	// Admission: lock bid_amount atomically with the order insert.
	if err := e.ledger.Lock(ctx, tx, walletAddr, order.BidAsset, order.BidAmount, onChainBidBal, "order:"+order.ID.String()); err != nil {
		return orderbook.OrderFillResult{}, err
	}
	if err := e.orders.InsertOrder(ctx, tx, order); err != nil {
		return orderbook.OrderFillResult{}, err
	}

	candidates, err := e.orders.Candidates(ctx, tx, order)
	if err != nil {
		return orderbook.OrderFillResult{}, err
	}

	remainingBid, remainingAsk, fills, err := orderbook.WalkFills(order, candidates)
	if err != nil {
		return orderbook.OrderFillResult{}, err
	}

	if order.Mode == orderbook.FOK && remainingBid.GreaterThan(dec.Zero) {
		// No trades are emitted; the full Lock is unlocked and the
		// order cancelled in this single transaction (spec §4.5).
		if err := e.ledger.Unlock(ctx, tx, walletAddr, order.BidAsset, order.BidAmount, "fok-cancel:"+order.ID.String()); err != nil {
			return orderbook.OrderFillResult{}, err
		}
		if err := e.orders.UpdateFill(ctx, tx, order.ID, dec.Zero, dec.Zero, orderbook.Cancelled); err != nil {
			return orderbook.OrderFillResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return orderbook.OrderFillResult{}, cradleerr.Persistence("CommitFailed", "commit fok cancel", err)
		}
		return orderbook.OrderFillResult{ID: order.ID, Status: orderbook.StatusCancelled, BidAmountFilled: dec.Zero, AskAmountFilled: dec.Zero}, nil
	}

	var tradeIDs []dec.ID
	var appliedTrades []settlement.Applied
	filledBid := order.BidAmount.Sub(remainingBid)
	filledAsk := order.AskAmount.Sub(remainingAsk)

	makersByID := make(map[dec.ID]orderbook.Order, len(candidates))
	for _, c := range candidates {
		makersByID[c.ID] = c
	}

	marketContract := common.Address{}
	for _, fill := range fills {
		maker, ok := makersByID[fill.MakerOrderID]
		if !ok {
			return orderbook.OrderFillResult{}, cradleerr.Internal("MakerNotFound", "fill references unknown maker candidate", nil)
		}
		makerFilledBid := maker.FilledBid.Add(fill.TakerFilledAmount)
		makerFilledAsk := maker.FilledAsk.Add(fill.MakerFilledAmount)
		makerStatus := orderbook.PartiallyFilled
		if makerFilledBid.GreaterThanOrEqual(maker.BidAmount) && makerFilledAsk.GreaterThanOrEqual(maker.AskAmount) {
			makerStatus = orderbook.Filled
		}
		if err := e.orders.UpdateFill(ctx, tx, maker.ID, makerFilledBid, makerFilledAsk, makerStatus); err != nil {
			return orderbook.OrderFillResult{}, err
		}

		applied, err := e.settlement.ApplyFill(ctx, tx, order, maker, fill, marketContract)
		if err != nil {
			return orderbook.OrderFillResult{}, err
		}
		tradeIDs = append(tradeIDs, applied.TradeID)
		appliedTrades = append(appliedTrades, applied)
	}

	finalStatus := orderbook.Open
	switch {
	case remainingBid.LessThanOrEqual(dec.Zero) || remainingAsk.LessThanOrEqual(dec.Zero):
		finalStatus = orderbook.Filled
	case order.Mode == orderbook.IOC:
		finalStatus = orderbook.Cancelled
	case len(fills) > 0:
		finalStatus = orderbook.PartiallyFilled
	}

	if finalStatus == orderbook.Cancelled && remainingBid.GreaterThan(dec.Zero) {
		// IOC residual: unlock the unfilled portion of the bid.
		if err := e.ledger.Unlock(ctx, tx, walletAddr, order.BidAsset, remainingBid, "ioc-residual:"+order.ID.String()); err != nil {
			return orderbook.OrderFillResult{}, err
		}
	}

	if err := e.orders.UpdateFill(ctx, tx, order.ID, filledBid, filledAsk, finalStatus); err != nil {
		return orderbook.OrderFillResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return orderbook.OrderFillResult{}, cradleerr.Persistence("CommitFailed", "commit matching transaction", err)
	}

	// Ledger and order-book state is already durable truth at this point
	// (spec §4.6 step 3); the chain leg is submitted per trade in its own
	// transaction and a failure here is reconciled by SubmitChain's own
	// compensating relock rather than by retrying or failing PlaceOrder.
	for _, applied := range appliedTrades {
		if err := e.settlement.SubmitChain(ctx, e.beginTx, applied); err != nil {
			e.log.Warn("on-chain settlement submission failed", zap.String("trade_id", applied.TradeID.String()), zap.Error(err))
		}
	}

	resultStatus := orderbook.StatusPartial
	switch finalStatus {
	case orderbook.Filled:
		resultStatus = orderbook.StatusFilled
	case orderbook.Cancelled:
		resultStatus = orderbook.StatusCancelled
	}

	return orderbook.OrderFillResult{
		ID:              order.ID,
		Status:          resultStatus,
		BidAmountFilled: filledBid,
		AskAmountFilled: filledAsk,
		MatchedTrades:   tradeIDs,
	}, nil
}

// beginTx is the transaction opener SubmitChain's compensating path uses;
// it runs after the matching transaction above has already committed, so
// it needs a fresh one rather than reusing that tx.
func (e *Engine) beginTx(ctx context.Context) (pgx.Tx, error) {
	return e.pool.BeginTx(ctx, pgx.TxOptions{})
}

func isSerializationConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}
