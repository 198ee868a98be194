// Package config loads the process-wide AppConfig value: no ambient
// singletons, per the design note in spec §9 — every service takes this
// value (or a field of it) through its constructor.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/logging"
	"github.com/cradle-exchange/cradle/internal/walletcap"
)

// AppConfig bundles the pooled DB connection, the wallet capability, the
// fee collector address and the logger — the full set of env-sourced
// globals the core needs, passed explicitly everywhere.
type AppConfig struct {
	Pool         *pgxpool.Pool
	Wallet       walletcap.Capability
	FeeCollector common.Address
	Log          *zap.Logger
}

// Load reads .env (if present) then the process environment. DATABASE_URL
// is required; wallet key material is delegated to walletcap.FromEnv;
// FEE_COLLECTOR is optional and defaults to the zero address.
func Load(ctx context.Context, envPath string) (*AppConfig, error) {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	log, err := logging.New()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	wallet, err := walletcap.FromEnv(log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init wallet capability: %w", err)
	}

	feeCollector := common.HexToAddress(os.Getenv("FEE_COLLECTOR"))

	return &AppConfig{
		Pool:         pool,
		Wallet:       wallet,
		FeeCollector: feeCollector,
		Log:          log,
	}, nil
}

func (c *AppConfig) Close() {
	c.Pool.Close()
	_ = c.Log.Sync()
}
