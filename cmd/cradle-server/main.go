package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/api"
	"github.com/cradle-exchange/cradle/internal/assets"
	"github.com/cradle-exchange/cradle/internal/config"
	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/ledger"
	"github.com/cradle-exchange/cradle/internal/listing"
	"github.com/cradle-exchange/cradle/internal/market"
	"github.com/cradle-exchange/cradle/internal/matching"
	"github.com/cradle-exchange/cradle/internal/oracle"
	"github.com/cradle-exchange/cradle/internal/orderbook"
	"github.com/cradle-exchange/cradle/internal/ramp"
	"github.com/cradle-exchange/cradle/internal/router"
	"github.com/cradle-exchange/cradle/internal/settlement"
	"github.com/cradle-exchange/cradle/internal/timeseries"
)

// expirySweepInterval is how often runExpirySweep looks for orders whose
// expires_at has passed; spec §5 leaves the cadence unspecified.
const expirySweepInterval = 30 * time.Second

// noopRampProvider stands in for the real on-ramp HTTP vendor
// integration, which spec §1 excludes; it lets /ramp/request exercise
// the rest of the flow (token association, asset lookup) without a
// live external dependency.
type noopRampProvider struct{}

func (noopRampProvider) Initialize(ctx context.Context, req ramp.RequestToken) (ramp.OnRampResponse, error) {
	return ramp.OnRampResponse{Reference: req.OrderID, AuthorizationURL: "", AccessCode: ""}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, "")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	defer cfg.Close()

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

	callbackURL := os.Getenv("RAMP_CALLBACK_URL")
	rampSvc := ramp.New(assetRegistry, noopRampProvider{}, callbackURL)

	r := router.New()
	r.Register(router.DomainAccounts, router.NewAccountsProcessor(assetRegistry, ledgerSvc, cfg.Pool))
	r.Register(router.DomainAssetBook, router.NewAssetBookProcessor(assetRegistry))
	r.Register(router.DomainMarkets, router.NewMarketsProcessor(marketRegistry))
	r.Register(router.DomainOrderBook, router.NewOrderBookProcessor(engine, orderStore))
	r.Register(router.DomainMarketTimeSeries, router.NewMarketTimeSeriesProcessor(seriesSvc))
	r.Register(router.DomainLendingPool, router.NewLendingPoolProcessor(oracleSvc))
	r.Register(router.DomainListings, router.NewListingsProcessor(listingSvc))

	apiServer := api.NewServer(r, marketRegistry, orderStore, seriesSvc, rampSvc, cfg.Log)

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	origins := []string{"http://localhost:3000"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = []string{v}
	}

	go func() {
		if err := apiServer.Start(addr, api.Config{AllowedOrigins: origins}); err != nil {
			cfg.Log.Fatal("api server failed", zap.Error(err))
		}
	}()

	go runExpirySweepLoop(ctx, cfg.Pool, orderStore, ledgerSvc, cfg.Log)

	cfg.Log.Info("cradle server started", zap.String("addr", addr))
	<-ctx.Done()
	cfg.Log.Info("shutting down")
}

// runExpirySweepLoop periodically moves past-expiry open orders to
// Expired and unlocks their remaining bid, per spec §5's background
// expiry sweep and the §8 scenario-6 edge case.
func runExpirySweepLoop(ctx context.Context, pool *pgxpool.Pool, orders *orderbook.Store, led *ledger.Service, log *zap.Logger) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := runExpirySweepOnce(ctx, pool, orders, led, log); err != nil {
				log.Warn("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

func runExpirySweepOnce(ctx context.Context, pool *pgxpool.Pool, orders *orderbook.Store, led *ledger.Service, log *zap.Logger) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return cradleerr.Persistence("ExpirySweepTxFailed", "begin expiry sweep transaction", err)
	}
	defer tx.Rollback(ctx)

	expired, err := orders.ExpireSweep(ctx, tx)
	if err != nil {
		return err
	}

	for _, o := range expired {
		walletAddr := common.HexToAddress(o.WalletAddress)
		if err := led.Unlock(ctx, tx, walletAddr, o.BidAsset, o.RemainingBid(), "expire:"+o.ID.String()); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return cradleerr.Persistence("ExpirySweepCommitFailed", "commit expiry sweep", err)
	}
	if len(expired) > 0 {
		log.Info("expired orders swept", zap.Int("count", len(expired)))
	}
	return nil
}
