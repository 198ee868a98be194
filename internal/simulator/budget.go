package simulator

import (
	"sync"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

type budgetKey struct {
	Account string
	Asset   string
}

// BudgetStore tracks a remaining spend ceiling per (account, asset), held
// under a short exclusive lock for the duration of a single deduct/refund
// call (spec §5) — it is not a ledger substitute, only a governor on how
// much the simulator itself is willing to push per account before it
// gives up issuing new slots for that pair.
type BudgetStore struct {
	mu        sync.Mutex
	remaining map[budgetKey]dec.D
}

func NewBudgetStore(cfg BudgetConfig) (*BudgetStore, error) {
	b := &BudgetStore{remaining: make(map[budgetKey]dec.D)}
	for _, spec := range cfg.Budgets {
		amount, err := dec.New(spec.Amount)
		if err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "bad budget amount for "+spec.Account+"/"+spec.Asset)
		}
		b.remaining[budgetKey{spec.Account, spec.Asset}] = amount
	}
	return b, nil
}

// Deduct reserves amount against the account/asset budget. It fails if
// the budget has been exhausted or was never configured for that pair —
// the scheduler treats a failed deduct as "skip this slot", not a fatal
// error.
func (b *BudgetStore) Deduct(account, asset string, amount dec.D) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := budgetKey{account, asset}
	cur, ok := b.remaining[key]
	if !ok {
		return cradleerr.Validation("NoBudgetConfigured", "no budget configured for "+account+"/"+asset)
	}
	if cur.LessThan(amount) {
		return cradleerr.Validation("BudgetExhausted", "budget exhausted for "+account+"/"+asset)
	}
	b.remaining[key] = cur.Sub(amount)
	return nil
}

// Refund returns amount to the account/asset budget. The scheduler calls
// it when a slot's payload cannot be built and when a slot fails after
// exhausting its retries.
func (b *BudgetStore) Refund(account, asset string, amount dec.D) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := budgetKey{account, asset}
	b.remaining[key] = b.remaining[key].Add(amount)
}

func (b *BudgetStore) Remaining(account, asset string) dec.D {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining[budgetKey{account, asset}]
}
