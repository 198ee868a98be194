package orderbook

import "github.com/cradle-exchange/cradle/internal/dec"

// ProposedFill is one candidate fill the pure walk below produces, before
// any persistence happens — the matching transaction turns each of these
// into a Trade row plus ledger entries.
type ProposedFill struct {
	MakerOrderID      dec.ID
	MakerFilledAmount dec.D // what the maker receives (== taker's bid paid)
	TakerFilledAmount dec.D // what the taker receives (== maker's bid paid)
}

// WalkFills is the Go transliteration of get_order_fill_trades: given the
// incoming order's remaining amounts and its rate r = bid/ask, walk
// candidates in the order the caller already sorted them (price-time
// priority) and greedily fill each until the incoming order's remainder
// is exhausted or candidates run out. Returns the incoming order's final
// remaining bid/ask and the list of fills to emit.
//
// Division-induced dust: a recomputed taker_fill_ask that truncates to
// zero discards that candidate's fill entirely (spec §9) rather than
// emitting a degenerate trade.
func WalkFills(incoming Order, candidates []Order) (remainingBid, remainingAsk dec.D, fills []ProposedFill, err error) {
	remainingBid = incoming.RemainingBid()
	remainingAsk = incoming.RemainingAsk()

	rate, err := dec.DivTrunc(incoming.BidAmount, incoming.AskAmount)
	if err != nil {
		return remainingBid, remainingAsk, nil, err
	}

	for _, maker := range candidates {
		if remainingAsk.LessThanOrEqual(dec.Zero) || remainingBid.LessThanOrEqual(dec.Zero) {
			break
		}

		makerRemainingAsk := maker.RemainingAsk()
		makerRemainingBid := maker.RemainingBid()

		// Step 1: how much of the taker's ask can this maker satisfy.
		takerFillAsk := dec.D(remainingAsk)
		if makerRemainingAsk.LessThan(takerFillAsk) {
			takerFillAsk = makerRemainingAsk
		}

		// Step 2: corresponding bid at the taker's own rate.
		takerFillBidRaw := takerFillAsk.Mul(rate)

		// Step 3: cap by what the maker can actually absorb.
		takerFillBid := takerFillBidRaw
		if makerRemainingBid.LessThan(takerFillBid) {
			takerFillBid = makerRemainingBid
		}

		// Step 4: recompute ask from the (possibly capped) bid.
		actualTakerFillAsk, err := dec.DivTrunc(takerFillBid, rate)
		if err != nil {
			return remainingBid, remainingAsk, nil, err
		}

		if dec.IsDust(takerFillBid) || dec.IsDust(actualTakerFillAsk) {
			continue
		}

		remainingAsk = remainingAsk.Sub(actualTakerFillAsk)
		remainingBid = remainingBid.Sub(takerFillBid)

		fills = append(fills, ProposedFill{
			MakerOrderID:      maker.ID,
			MakerFilledAmount: takerFillBid,
			TakerFilledAmount: actualTakerFillAsk,
		})
	}

	return remainingBid, remainingAsk, fills, nil
}
