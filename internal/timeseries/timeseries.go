// Package timeseries computes TimeSeriesPoint values from settled trades
// (spec §3), supplementing the distilled spec with the original system's
// market_time_series aggregation. Points are computed on each request and
// not stored; no periodic job runs here.
package timeseries

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

var intervalDuration = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

type Point struct {
	MarketID    dec.ID
	AssetID     dec.ID
	Interval    Interval
	BucketStart time.Time
	Open        dec.D
	High        dec.D
	Low         dec.D
	Close       dec.D
	Volume      dec.D
}

type Service struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Service { return &Service{pool: pool} }

// Aggregate buckets settled trades on marketID into points at the given
// interval since `since`, computing them on each call. The history
// endpoint and the MarketTimeSeries GetHistory operation call it per
// request. Trades are not filtered by assetID; it only labels the points.
func (s *Service) Aggregate(ctx context.Context, marketID, assetID dec.ID, interval Interval, since time.Time) ([]Point, error) {
	bucket, ok := intervalDuration[interval]
	if !ok {
		return nil, cradleerr.Validation("UnknownInterval", "unknown time-series interval "+string(interval))
	}

	rows, err := s.pool.Query(ctx, `
		select o.created_at, t.maker_filled_amount, t.taker_filled_amount
		from trades t
		join orders o on o.id = t.taker_order_id
		where o.market_id = $1 and t.settlement_status = 'settled' and o.created_at >= $2
		order by o.created_at asc`, marketID, since)
	if err != nil {
		return nil, cradleerr.Persistence("TradeHistoryQueryFailed", "query settled trades for aggregation", err)
	}
	defer rows.Close()

	buckets := make(map[time.Time]*Point)
	var order []time.Time
	for rows.Next() {
		var ts time.Time
		var makerFilled, takerFilled dec.D
		if err := rows.Scan(&ts, &makerFilled, &takerFilled); err != nil {
			return nil, cradleerr.Persistence("ScanTradeFailed", "scan trade row for aggregation", err)
		}
		price, err := dec.DivTrunc(makerFilled, takerFilled)
		if err != nil {
			continue
		}
		start := ts.Truncate(bucket)
		p, ok := buckets[start]
		if !ok {
			p = &Point{MarketID: marketID, AssetID: assetID, Interval: interval, BucketStart: start,
				Open: price, High: price, Low: price, Close: price, Volume: dec.Zero}
			buckets[start] = p
			order = append(order, start)
		}
		if price.GreaterThan(p.High) {
			p.High = price
		}
		if price.LessThan(p.Low) {
			p.Low = price
		}
		p.Close = price
		p.Volume = p.Volume.Add(takerFilled)
	}

	out := make([]Point, 0, len(order))
	for _, start := range order {
		out = append(out, *buckets[start])
	}
	return out, nil
}
