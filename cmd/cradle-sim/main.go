// cradle-sim drives synthetic load through the same action router the
// HTTP server exposes, grounded on the node's TxFeeder/TxGenerator
// harness (pkg/app/perp/txgen.go, txfeeder.go) but restructured around
// the action-slot scheduler from spec §6: every generated order is a
// persisted, retried, budget-gated Slot rather than a fire-and-forget
// mempool push.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/assets"
	"github.com/cradle-exchange/cradle/internal/config"
	"github.com/cradle-exchange/cradle/internal/ledger"
	"github.com/cradle-exchange/cradle/internal/listing"
	"github.com/cradle-exchange/cradle/internal/market"
	"github.com/cradle-exchange/cradle/internal/matching"
	"github.com/cradle-exchange/cradle/internal/oracle"
	"github.com/cradle-exchange/cradle/internal/orderbook"
	"github.com/cradle-exchange/cradle/internal/router"
	"github.com/cradle-exchange/cradle/internal/settlement"
	"github.com/cradle-exchange/cradle/internal/simulator"
	"github.com/cradle-exchange/cradle/internal/simulator/statestore"
	"github.com/cradle-exchange/cradle/internal/timeseries"
)

// seedFile is the roster fed to the generator: SIM_SEED_FILE points at a
// JSON document of {"accounts":[{"WalletID":...,"Address":...}],
// "markets":[{"MarketID":...,"BidAsset":...,"AskAsset":...,"MidPrice":...}]}.
// SimAccount and SyntheticMarket carry no JSON tags, so the keys are the Go
// field names (matched case-insensitively; snake_case keys are not matched).
type seedFile struct {
	Accounts []simulator.SimAccount     `json:"accounts"`
	Markets  []simulator.SyntheticMarket `json:"markets"`
}

func loadSeed(path string) (seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return seedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return seed, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, "")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	defer cfg.Close()

	seedPath := os.Getenv("SIM_SEED_FILE")
	if seedPath == "" {
		log.Fatal("SIM_SEED_FILE is required")
	}
	seed, err := loadSeed(seedPath)
	if err != nil {
		cfg.Log.Fatal("load seed", zap.Error(err))
	}

	ledgerSvc := ledger.New(cfg.Pool)
	assetRegistry, err := assets.New(cfg.Pool)
	if err != nil {
		cfg.Log.Fatal("init asset registry", zap.Error(err))
	}
	marketRegistry, err := market.New(cfg.Pool)
	if err != nil {
		cfg.Log.Fatal("init market registry", zap.Error(err))
	}
	orderStore := orderbook.New(cfg.Pool)
	settlementDriver := settlement.New(ledgerSvc, orderStore, cfg.Wallet, cfg.FeeCollector, cfg.Log)
	engine := matching.New(cfg.Pool, orderStore, ledgerSvc, marketRegistry, assetRegistry, settlementDriver, cfg.Log)
	oracleSvc := oracle.New(cfg.Pool, ledgerSvc, cfg.Wallet, cfg.Log)
	listingSvc := listing.New(cfg.Pool, assetRegistry)
	seriesSvc := timeseries.New(cfg.Pool)

	r := router.New()
	r.Register(router.DomainAccounts, router.NewAccountsProcessor(assetRegistry, ledgerSvc, cfg.Pool))
	r.Register(router.DomainAssetBook, router.NewAssetBookProcessor(assetRegistry))
	r.Register(router.DomainMarkets, router.NewMarketsProcessor(marketRegistry))
	r.Register(router.DomainOrderBook, router.NewOrderBookProcessor(engine, orderStore))
	r.Register(router.DomainMarketTimeSeries, router.NewMarketTimeSeriesProcessor(seriesSvc))
	r.Register(router.DomainLendingPool, router.NewLendingPoolProcessor(oracleSvc))
	r.Register(router.DomainListings, router.NewListingsProcessor(listingSvc))

	simCfg := simulator.Default()
	if dir := os.Getenv("SIM_STATE_DIR"); dir != "" {
		simCfg.StateDir = dir
	}

	state, err := statestore.Open(simCfg.StateDir)
	if err != nil {
		cfg.Log.Fatal("open simulator state", zap.Error(err))
	}
	defer state.Close()

	budget, err := simulator.NewBudgetStore(simCfg.Budget)
	if err != nil {
		cfg.Log.Fatal("init budget store", zap.Error(err))
	}

	scheduler := simulator.NewScheduler(simCfg, r, budget, state, cfg.Log)
	if err := scheduler.Resume(ctx); err != nil {
		cfg.Log.Warn("resume failed", zap.Error(err))
	}

	gen := simulator.NewGenerator(1, seed.Accounts, seed.Markets, simCfg.Scheduler)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var cycle int

	for {
		select {
		case <-ctx.Done():
			cfg.Log.Info("simulator shutting down")
			return
		case <-ticker.C:
			cycle++
			batch := gen.GenerateBatch(simCfg.Scheduler.TradesPerAccount * len(seed.Accounts))
			for i, order := range batch {
				id := fmt.Sprintf("cycle-%d-slot-%d", cycle, i)
				if err := scheduler.ScheduleOrder(ctx, id, order); err != nil {
					cfg.Log.Warn("schedule order failed", zap.String("id", id), zap.Error(err))
				}
			}
			cfg.Log.Info("simulator cycle complete", zap.Int("cycle", cycle), zap.Int("orders", len(batch)))
		}
	}
}
