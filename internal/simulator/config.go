// Package simulator implements the action-slot scheduler (spec component
// C10): it drives synthetic load through the action router with
// per-account budgets, exponential backoff, and persisted recovery,
// grounded on the original system's simulator/config.rs defaults and the
// node's TxGenerator for the synthetic-order-generation style.
package simulator

import "time"

// SchedulerConfig controls synthetic order generation (spec §4.8).
type SchedulerConfig struct {
	MinAmount        string  // decimal literal, lower bound for a uniform random amount
	MaxAmount        string  // decimal literal, upper bound
	TradesPerAccount int     // slots per account per cycle
	BidPriceOffset   string  // additive offset over the market's current mid
	AskPriceOffset   string
	AlternateSides   bool
}

// ProcessorConfig controls the retry wrapper each slot runs through.
type ProcessorConfig struct {
	RetryBaseDelay   time.Duration
	MaxRetries       int
	SaveAfterEachSlot bool
}

// BudgetSpec is one (account, asset) budget ceiling.
type BudgetSpec struct {
	Account string
	Asset   string
	Amount  string // decimal literal
}

type BudgetConfig struct {
	Budgets []BudgetSpec
}

// Config bundles the scheduler's full configuration, mirroring the
// original system's SimulatorConfig{scheduler, processor, budget, state_dir}.
type Config struct {
	Scheduler SchedulerConfig
	Processor ProcessorConfig
	Budget    BudgetConfig
	StateDir  string
}

// Default matches the original system's defaults: min=10, max=1000,
// trades_per_account=5, retry_base_delay_ms=500, max_retries=3.
func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{
			MinAmount:        "10",
			MaxAmount:        "1000",
			TradesPerAccount: 5,
			BidPriceOffset:   "0",
			AskPriceOffset:   "0",
			AlternateSides:   true,
		},
		Processor: ProcessorConfig{
			RetryBaseDelay:    500 * time.Millisecond,
			MaxRetries:        3,
			SaveAfterEachSlot: true,
		},
		StateDir: "./simulator-state",
	}
}
