// Package oracle implements the price oracle and lending-pool glue (spec
// component C8): an upsert keyed by (pool, asset) and a borrow-view into
// the ledger for the pool's outstanding Lend balance. The on-chain
// update_oracle call is delegated to the wallet capability, which is an
// external collaborator the way the original system's oracle publisher
// is out of scope.
package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/ledger"
	"github.com/cradle-exchange/cradle/internal/walletcap"
)

type PriceRow struct {
	LendingPoolID dec.ID
	AssetID       dec.ID
	Price         dec.D
}

type Service struct {
	pool   *pgxpool.Pool
	ledger *ledger.Service
	wallet walletcap.Capability
	log    *zap.Logger
}

func New(pool *pgxpool.Pool, led *ledger.Service, wallet walletcap.Capability, log *zap.Logger) *Service {
	return &Service{pool: pool, ledger: led, wallet: wallet, log: log}
}

// UpdatePrice upserts the (pool, asset) row (spec §3: "at most one row per
// pair") and submits update_oracle(asset, pool_contract, multiplier) via
// the wallet capability. Fails OverflowError when price cannot be
// represented as uint64 (spec §4.1, §4.7).
func (s *Service) UpdatePrice(ctx context.Context, poolContract, assetToken common.Address, row PriceRow) error {
	multiplier, err := dec.ToUint64(row.Price)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`insert into price_oracles (lending_pool_id, asset_id, price, recorded_at) values ($1,$2,$3, now())
		 on conflict (lending_pool_id, asset_id) do update set price = excluded.price, recorded_at = now()`,
		row.LendingPoolID, row.AssetID, row.Price)
	if err != nil {
		return cradleerr.Persistence("PriceOracleUpsertFailed", "upsert price oracle row", err)
	}

	if _, err := s.wallet.SubmitOracleUpdate(ctx, walletcap.OracleCall{
		PoolContract: poolContract,
		AssetToken:   assetToken,
		Multiplier:   multiplier,
	}); err != nil {
		s.log.Warn("oracle publish failed", zap.Error(err), zap.String("asset", row.AssetID.String()))
		return cradleerr.Settlement("OraclePublishFailed", "on-chain oracle update failed", err)
	}
	return nil
}

func (s *Service) GetPrice(ctx context.Context, poolID, assetID dec.ID) (dec.D, error) {
	var price dec.D
	err := s.pool.QueryRow(ctx, `select price from price_oracles where lending_pool_id=$1 and asset_id=$2`, poolID, assetID).Scan(&price)
	if err != nil {
		return dec.Zero, cradleerr.NotFound("PriceNotFound", "no oracle price for pool/asset pair")
	}
	return price, nil
}

// OutstandingLend is the lending pool's borrow-view into the ledger: the
// sum of Lend entries from a wallet for an asset, minus Repay — the
// lending-side complement to the order book's deductions formula.
func (s *Service) OutstandingLend(ctx context.Context, wallet common.Address, asset dec.ID) (dec.D, error) {
	var lent, repaid dec.D
	err := s.pool.QueryRow(ctx,
		`select coalesce(sum(amount),0) from ledger_entries where from_address=$1 and asset=$2 and transaction_type='lend'`,
		wallet.Hex(), asset).Scan(&lent)
	if err != nil {
		return dec.Zero, cradleerr.Persistence("LendSumFailed", "sum lend entries", err)
	}
	err = s.pool.QueryRow(ctx,
		`select coalesce(sum(amount),0) from ledger_entries where from_address=$1 and asset=$2 and transaction_type='repay'`,
		wallet.Hex(), asset).Scan(&repaid)
	if err != nil {
		return dec.Zero, cradleerr.Persistence("RepaySumFailed", "sum repay entries", err)
	}
	return lent.Sub(repaid), nil
}
