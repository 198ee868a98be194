package orderbook

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

// Store is the C5 persistence layer: open orders with fill progress and
// trades. Every mutating method takes the caller's transaction, since the
// matcher never suspends between reading candidates and writing results
// (spec §5).
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

const insertOrderQuery = `
insert into orders (id, wallet, wallet_address, market_id, bid_asset, ask_asset, bid_amount, ask_amount,
                     filled_bid_amount, filled_ask_amount, price, order_type, mode, status, created_at, expires_at)
values ($1,$2,$3,$4,$5,$6,$7,$8,0,0,$9,$10,$11,$12,now(),$13)
`

// InsertOrder persists a newly admitted order with status Open and zero
// fill progress, as spec §4.5's admission step requires.
func (s *Store) InsertOrder(ctx context.Context, tx pgx.Tx, o Order) error {
	_, err := tx.Exec(ctx, insertOrderQuery,
		o.ID, o.Wallet, o.WalletAddress, o.MarketID, o.BidAsset, o.AskAsset, o.BidAmount, o.AskAmount,
		o.Price, string(o.OrderType), string(o.Mode), string(Open), o.ExpiresAt)
	if err != nil {
		return cradleerr.Persistence("OrderInsertFailed", "insert order", err)
	}
	return nil
}

// candidatesQuery is the Go transliteration of the original system's
// MATCHING_ORDERS CTE: same market, opposite asset pair, different
// wallet, still open with remainder on both legs, not expired, no
// existing Matched trade linking the pair, and price-compatible when the
// incoming order is a Limit. Ordered by price ascending then created_at
// ascending (price-time priority, spec §4.5).
const candidatesQuery = `
select ob.id, ob.wallet, ob.wallet_address, ob.market_id, ob.bid_asset, ob.ask_asset,
       ob.bid_amount, ob.ask_amount, ob.filled_bid_amount, ob.filled_ask_amount,
       ob.price, ob.order_type, ob.mode, ob.status, ob.created_at, ob.expires_at
from orders ob
where ob.status = 'open'
  and ob.market_id = $1
  and ob.id != $2
  and ob.wallet != $3
  and ob.bid_asset = $4
  and ob.ask_asset = $5
  and (ob.bid_amount - ob.filled_bid_amount) > 0
  and (ob.ask_amount - ob.filled_ask_amount) > 0
  and (ob.expires_at is null or ob.expires_at > now())
  and ($6 = 'market' or ob.price <= $7)
  and not exists (
      select 1 from trades t
      where t.settlement_status = 'matched'
        and ((t.maker_order_id = ob.id and t.taker_order_id = $2)
          or (t.maker_order_id = $2 and t.taker_order_id = ob.id))
  )
order by ob.price asc, ob.created_at asc
for update of ob
`

// Candidates returns the maker orders eligible to fill incoming, locking
// each row (FOR UPDATE) for the duration of the matching transaction so
// no concurrent matcher on the same market can double-allocate a maker's
// remainder.
func (s *Store) Candidates(ctx context.Context, tx pgx.Tx, incoming Order) ([]Order, error) {
	rows, err := tx.Query(ctx, candidatesQuery,
		incoming.MarketID, incoming.ID, incoming.Wallet, incoming.AskAsset, incoming.BidAsset,
		string(incoming.OrderType), incoming.Price)
	if err != nil {
		return nil, cradleerr.Persistence("CandidatesQueryFailed", "query matching candidates", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var orderType, mode, status string
		if err := rows.Scan(&o.ID, &o.Wallet, &o.WalletAddress, &o.MarketID, &o.BidAsset, &o.AskAsset,
			&o.BidAmount, &o.AskAmount, &o.FilledBid, &o.FilledAsk, &o.Price, &orderType, &mode, &status,
			&o.CreatedAt, &o.ExpiresAt); err != nil {
			return nil, cradleerr.Persistence("ScanCandidateFailed", "scan candidate order", err)
		}
		o.OrderType, o.Mode, o.Status = OrderType(orderType), Mode(mode), Status(status)
		out = append(out, o)
	}
	return out, nil
}

// UpdateFill writes an order's new fill progress and status in the same
// transaction as the trades it produced (spec §4.6 step 4).
func (s *Store) UpdateFill(ctx context.Context, tx pgx.Tx, id dec.ID, filledBid, filledAsk dec.D, status Status) error {
	_, err := tx.Exec(ctx, `update orders set filled_bid_amount=$1, filled_ask_amount=$2, status=$3 where id=$4`,
		filledBid, filledAsk, string(status), id)
	if err != nil {
		return cradleerr.Persistence("OrderUpdateFailed", "update order fill progress", err)
	}
	return nil
}

// RevertFill reverses one trade's contribution to an order's fill
// progress, for the compensating path after a failed on-chain settlement
// submission (spec §4.6 step 3). It leaves the order's lifecycle status
// untouched — an IOC order that got cancelled stays off the book even
// though the matched amount it reported got reverted.
func (s *Store) RevertFill(ctx context.Context, tx pgx.Tx, id dec.ID, bidDelta, askDelta dec.D) error {
	_, err := tx.Exec(ctx, `update orders set filled_bid_amount = filled_bid_amount - $1, filled_ask_amount = filled_ask_amount - $2 where id=$3`,
		bidDelta, askDelta, id)
	if err != nil {
		return cradleerr.Persistence("OrderFillRevertFailed", "revert order fill progress", err)
	}
	return nil
}

const insertTradeQuery = `
insert into trades (id, maker_order_id, taker_order_id, maker_filled_amount, taker_filled_amount, settlement_status, created_at)
values ($1,$2,$3,$4,$5,$6, now())
`

// InsertTrade inserts a Matched trade row. A unique index on the
// unordered {maker,taker} pair with settlement_status='matched' backs the
// at-most-one-Matched-row invariant (spec §3, invariant 4 in §8); a
// constraint violation here surfaces as a Persistence error the matcher
// can retry against freshly-read candidates.
func (s *Store) InsertTrade(ctx context.Context, tx pgx.Tx, t Trade) (dec.ID, error) {
	if t.ID == dec.NilID {
		t.ID = dec.NewID()
	}
	_, err := tx.Exec(ctx, insertTradeQuery, t.ID, t.MakerOrderID, t.TakerOrderID, t.MakerFilledAmount, t.TakerFilledAmount, string(t.SettlementStatus))
	if err != nil {
		return dec.NilID, cradleerr.Persistence("TradeInsertFailed", "insert trade", err)
	}
	return t.ID, nil
}

func (s *Store) UpdateTradeStatus(ctx context.Context, tx pgx.Tx, id dec.ID, status SettlementStatus) error {
	_, err := tx.Exec(ctx, `update trades set settlement_status=$1 where id=$2`, string(status), id)
	if err != nil {
		return cradleerr.Persistence("TradeStatusUpdateFailed", "update trade status", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id dec.ID) (Order, error) {
	var o Order
	var orderType, mode, status string
	err := s.pool.QueryRow(ctx, `select id, wallet, wallet_address, market_id, bid_asset, ask_asset, bid_amount, ask_amount,
		filled_bid_amount, filled_ask_amount, price, order_type, mode, status, created_at, expires_at from orders where id=$1`, id).
		Scan(&o.ID, &o.Wallet, &o.WalletAddress, &o.MarketID, &o.BidAsset, &o.AskAsset, &o.BidAmount, &o.AskAmount,
			&o.FilledBid, &o.FilledAsk, &o.Price, &orderType, &mode, &status, &o.CreatedAt, &o.ExpiresAt)
	if err != nil {
		return Order{}, cradleerr.NotFound("OrderNotFound", "order "+id.String()+" not found")
	}
	o.OrderType, o.Mode, o.Status = OrderType(orderType), Mode(mode), Status(status)
	return o, nil
}

// ListOrders supports the GET /orders filters (wallet, market, status,
// order type, mode); empty strings/nil ids are treated as "no filter".
func (s *Store) ListOrders(ctx context.Context, wallet, marketID *dec.ID, status, orderType, mode string) ([]Order, error) {
	rows, err := s.pool.Query(ctx, `select id, wallet, wallet_address, market_id, bid_asset, ask_asset, bid_amount, ask_amount,
		filled_bid_amount, filled_ask_amount, price, order_type, mode, status, created_at, expires_at from orders
		where ($1::uuid is null or wallet = $1)
		  and ($2::uuid is null or market_id = $2)
		  and ($3 = '' or status = $3)
		  and ($4 = '' or order_type = $4)
		  and ($5 = '' or mode = $5)
		order by created_at desc`, wallet, marketID, status, orderType, mode)
	if err != nil {
		return nil, cradleerr.Persistence("ListOrdersFailed", "list orders", err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		var ot, md, st string
		if err := rows.Scan(&o.ID, &o.Wallet, &o.WalletAddress, &o.MarketID, &o.BidAsset, &o.AskAsset, &o.BidAmount, &o.AskAmount,
			&o.FilledBid, &o.FilledAsk, &o.Price, &ot, &md, &st, &o.CreatedAt, &o.ExpiresAt); err != nil {
			return nil, cradleerr.Persistence("ScanOrderFailed", "scan order row", err)
		}
		o.OrderType, o.Mode, o.Status = OrderType(ot), Mode(md), Status(st)
		out = append(out, o)
	}
	return out, nil
}

// ExpireSweep moves every open order with expires_at < now to Expired in
// one UPDATE...RETURNING and returns those orders, so the caller can
// unlock their remaining bid in the same transaction (spec §5's
// background expiry sweep). All orders due at that moment share that one
// transaction; there is no separate transaction per order. Because the
// statement both selects and transitions the rows, a concurrent sweep
// run can't pick up the same order twice.
func (s *Store) ExpireSweep(ctx context.Context, tx pgx.Tx) ([]Order, error) {
	rows, err := tx.Query(ctx, `update orders set status = 'expired'
		where status = 'open' and expires_at is not null and expires_at < now()
		returning id, wallet, wallet_address, market_id, bid_asset, ask_asset, bid_amount, ask_amount,
		filled_bid_amount, filled_ask_amount, price, order_type, mode, status, created_at, expires_at`)
	if err != nil {
		return nil, cradleerr.Persistence("ExpireSweepQueryFailed", "expire due orders", err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		var ot, md, st string
		if err := rows.Scan(&o.ID, &o.Wallet, &o.WalletAddress, &o.MarketID, &o.BidAsset, &o.AskAsset, &o.BidAmount, &o.AskAmount,
			&o.FilledBid, &o.FilledAsk, &o.Price, &ot, &md, &st, &o.CreatedAt, &o.ExpiresAt); err != nil {
			return nil, cradleerr.Persistence("ScanExpiredOrderFailed", "scan expired order", err)
		}
		o.OrderType, o.Mode, o.Status = OrderType(ot), Mode(md), Status(st)
		out = append(out, o)
	}
	return out, nil
}
