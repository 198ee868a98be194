// Package market implements the market registry and discipline guardrails
// (spec component C4): persisted Market rows, a read-through cache in the
// shape of the node's thread-safe in-memory registry, and the
// regulated/unregulated price-band validation every order admission calls
// before being written.
package market

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

type MarketType string

const (
	Spot    MarketType = "spot"
	Futures MarketType = "futures"
)

type Status string

const (
	Active Status = "active"
	Halted Status = "halted"
	Closed Status = "closed"
)

type Regulation string

const (
	Regulated   Regulation = "regulated"
	Unregulated Regulation = "unregulated"
)

type Market struct {
	ID         dec.ID
	AssetOne   dec.ID
	AssetTwo   dec.ID
	Type       MarketType
	Status     Status
	Regulation Regulation
	MinPrice   dec.D // only meaningful when Regulation == Regulated
	MaxPrice   dec.D
}

// Registry mirrors the node's MarketRegistry shape (RWMutex-guarded map)
// but backs it with Postgres and an LRU cache instead of holding markets
// only in memory — the core's only authoritative state is the database
// (spec §5), the cache is a read accelerator over effectively-static rows.
type Registry struct {
	pool  *pgxpool.Pool
	cache *lru.Cache[dec.ID, Market]
}

func New(pool *pgxpool.Pool) (*Registry, error) {
	cache, err := lru.New[dec.ID, Market](256)
	if err != nil {
		return nil, err
	}
	return &Registry{pool: pool, cache: cache}, nil
}

func (r *Registry) Get(ctx context.Context, id dec.ID) (Market, error) {
	if m, ok := r.cache.Get(id); ok {
		return m, nil
	}
	var m Market
	var minPrice, maxPrice *dec.D
	err := r.pool.QueryRow(ctx,
		`select id, asset_one, asset_two, market_type, status, regulation, min_price, max_price from markets where id=$1`, id).
		Scan(&m.ID, &m.AssetOne, &m.AssetTwo, &m.Type, &m.Status, &m.Regulation, &minPrice, &maxPrice)
	if err != nil {
		return Market{}, cradleerr.NotFound("MarketNotFound", "market "+id.String()+" not found")
	}
	if minPrice != nil {
		m.MinPrice = *minPrice
	}
	if maxPrice != nil {
		m.MaxPrice = *maxPrice
	}
	r.cache.Add(id, m)
	return m, nil
}

func (r *Registry) List(ctx context.Context, typeFilter, statusFilter, regulationFilter string) ([]Market, error) {
	rows, err := r.pool.Query(ctx,
		`select id, asset_one, asset_two, market_type, status, regulation, min_price, max_price from markets
		 where ($1 = '' or market_type = $1) and ($2 = '' or status = $2) and ($3 = '' or regulation = $3)`,
		typeFilter, statusFilter, regulationFilter)
	if err != nil {
		return nil, cradleerr.Persistence("ListMarketsFailed", "list markets", err)
	}
	defer rows.Close()

	var out []Market
	for rows.Next() {
		var m Market
		var minPrice, maxPrice *dec.D
		if err := rows.Scan(&m.ID, &m.AssetOne, &m.AssetTwo, &m.Type, &m.Status, &m.Regulation, &minPrice, &maxPrice); err != nil {
			return nil, cradleerr.Persistence("ScanMarketFailed", "scan market row", err)
		}
		if minPrice != nil {
			m.MinPrice = *minPrice
		}
		if maxPrice != nil {
			m.MaxPrice = *maxPrice
		}
		out = append(out, m)
	}
	return out, nil
}

// UpdateStatus enforces the same transition rule the node's registry
// does: Closed is terminal.
func (r *Registry) UpdateStatus(ctx context.Context, id dec.ID, status Status) error {
	m, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.Status == Closed {
		return cradleerr.Validation("TerminalMarketStatus", "cannot change status from Closed")
	}
	if _, err := r.pool.Exec(ctx, `update markets set status=$1 where id=$2`, string(status), id); err != nil {
		return cradleerr.Persistence("UpdateMarketStatusFailed", "update market status", err)
	}
	r.cache.Remove(id)
	return nil
}

// AssetPair reports whether (bid, ask) corresponds to the market's pair
// in either direction, admission precondition (2) from spec §4.5.
func (m Market) AssetPair(bidAsset, askAsset dec.ID) bool {
	return (m.AssetOne == bidAsset && m.AssetTwo == askAsset) || (m.AssetOne == askAsset && m.AssetTwo == bidAsset)
}

// ValidatePrice is the market-discipline guardrail (spec §4.4): Regulated
// markets enforce [MinPrice, MaxPrice], Unregulated accept any price.
// Closed/Halted markets reject unconditionally before the band is even
// consulted.
func (m Market) ValidatePrice(price dec.D) error {
	if m.Status != Active {
		return cradleerr.Validation(cradleerr.CodeMarketUnavailable, fmt.Sprintf("market %s is %s", m.ID, m.Status))
	}
	if m.Regulation == Unregulated {
		return nil
	}
	if price.LessThan(m.MinPrice) || price.GreaterThan(m.MaxPrice) {
		return cradleerr.Validation(cradleerr.CodePriceOutOfBand,
			fmt.Sprintf("price %s outside band [%s, %s]", price.String(), m.MinPrice.String(), m.MaxPrice.String()))
	}
	return nil
}
