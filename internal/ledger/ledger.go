// Package ledger implements the account-asset ledger (spec component C2):
// an append-only log of Lock/Unlock/Lend/Repay/Transfer entries, and the
// deductions query that is the single source of truth for how much of a
// wallet's balance is currently encumbered.
package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

// TxType enumerates the ledger's transaction types. Direction always
// lives in the type, never in the sign of Amount (Amount is always
// positive per spec §3).
type TxType string

const (
	TxLock     TxType = "lock"
	TxUnlock   TxType = "unlock"
	TxLend     TxType = "lend"
	TxRepay    TxType = "repay"
	TxTransfer TxType = "transfer"
)

// Entry is one append-only row of the ledger.
type Entry struct {
	ID          dec.ID
	FromAddress string
	ToAddress   string
	Asset       dec.ID
	Amount      dec.D
	Type        TxType
	Ref         string
}

// Service is the ledger's persistence-backed API. It is safe for
// concurrent use; every mutating method takes the caller's transaction so
// a Lock entry can be appended atomically alongside whatever else that
// transaction is doing (order insert, trade settlement), matching the
// suspension-point boundaries in spec §5.
type Service struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Service { return &Service{pool: pool} }

// deductionsQuery mirrors the original system's DEDUCTIONS_QUERY exactly:
// sum(Lock, from) + sum(Lend, from) - sum(Unlock, to), coalesced to zero
// when any leg has no rows.
const deductionsQuery = `
with locked_amount as (
  select coalesce(sum(amount), 0) as total from ledger_entries where from_address = $1 and asset = $2 and transaction_type = 'lock'
),
unlocked as (
  select coalesce(sum(amount), 0) as total from ledger_entries where to_address = $1 and asset = $2 and transaction_type = 'unlock'
),
lent as (
  select coalesce(sum(amount), 0) as total from ledger_entries where from_address = $1 and asset = $2 and transaction_type = 'lend'
)
select ((l.total + le.total) - u.total) as total from locked_amount as l
cross join unlocked as u
cross join lent as le;
`

// Deductions returns the wallet's current encumbrance on asset, using the
// ambient pool (use DeductionsTx inside a transaction that must see its
// own uncommitted appends).
func (s *Service) Deductions(ctx context.Context, wallet common.Address, asset dec.ID) (dec.D, error) {
	row := s.pool.QueryRow(ctx, deductionsQuery, wallet.Hex(), asset)
	return scanDeductions(row)
}

// DeductionsTx is Deductions scoped to an in-flight transaction, required
// whenever a balance check must observe entries appended earlier in the
// same transaction (the read-modify-append race spec §4.2 calls out).
func (s *Service) DeductionsTx(ctx context.Context, tx pgx.Tx, wallet common.Address, asset dec.ID) (dec.D, error) {
	row := tx.QueryRow(ctx, deductionsQuery, wallet.Hex(), asset)
	return scanDeductions(row)
}

func scanDeductions(row pgx.Row) (dec.D, error) {
	var total dec.D
	if err := row.Scan(&total); err != nil {
		return dec.Zero, cradleerr.Persistence("DeductionsQueryFailed", "scan deductions result", err)
	}
	if total.IsNegative() {
		// The formula should never produce a negative encumbrance if
		// Append enforces InsufficientBalance; a negative result means
		// data was written outside this package.
		return dec.Zero, cradleerr.Internal("NegativeDeductions", "deductions computed negative", nil)
	}
	return total, nil
}

// AvailableTx returns onChainBalance - Deductions, the figure every balance
// comparison in the system must use (spec §3).
func (s *Service) AvailableTx(ctx context.Context, tx pgx.Tx, wallet common.Address, asset dec.ID, onChainBalance dec.D) (dec.D, error) {
	deductions, err := s.DeductionsTx(ctx, tx, wallet, asset)
	if err != nil {
		return dec.Zero, err
	}
	return onChainBalance.Sub(deductions), nil
}

const insertEntryQuery = `
insert into ledger_entries (id, from_address, to_address, asset, amount, transaction_type, ref, created_at)
values ($1, $2, $3, $4, $5, $6, $7, now())
`

// Append inserts one ledger entry inside tx. It does not itself enforce
// InsufficientBalance; callers that need the guarantee from §4.2 must
// check AvailableTx before appending a Lock/Lend entry in the same
// transaction — this mirrors the settlement driver and order admission
// paths, which always validate then append without yielding in between.
func (s *Service) Append(ctx context.Context, tx pgx.Tx, e Entry) error {
	if e.Amount.IsZero() || e.Amount.IsNegative() {
		return cradleerr.Validation(cradleerr.CodeBadAmount, "ledger entry amount must be positive")
	}
	if e.ID == dec.NilID {
		e.ID = dec.NewID()
	}
	_, err := tx.Exec(ctx, insertEntryQuery, e.ID, e.FromAddress, e.ToAddress, e.Asset, e.Amount, string(e.Type), e.Ref)
	if err != nil {
		return cradleerr.Persistence("LedgerAppendFailed", "insert ledger entry", err)
	}
	return nil
}

// Lock appends a Lock entry after asserting the wallet has enough
// available balance, failing with LedgerError::InsufficientBalance
// otherwise — the single guarded entry point order admission uses.
func (s *Service) Lock(ctx context.Context, tx pgx.Tx, wallet common.Address, asset dec.ID, amount dec.D, onChainBalance dec.D, ref string) error {
	available, err := s.AvailableTx(ctx, tx, wallet, asset, onChainBalance)
	if err != nil {
		return err
	}
	if available.LessThan(amount) {
		return cradleerr.Ledger(cradleerr.CodeInsufficientBalance,
			fmt.Sprintf("wallet %s has %s available of asset %s, needs %s", wallet.Hex(), available.String(), asset, amount.String()))
	}
	return s.Append(ctx, tx, Entry{FromAddress: wallet.Hex(), ToAddress: wallet.Hex(), Asset: asset, Amount: amount, Type: TxLock, Ref: ref})
}

// Unlock appends an Unlock entry releasing amount of a previous Lock back
// to the wallet's available balance.
func (s *Service) Unlock(ctx context.Context, tx pgx.Tx, wallet common.Address, asset dec.ID, amount dec.D, ref string) error {
	return s.Append(ctx, tx, Entry{FromAddress: wallet.Hex(), ToAddress: wallet.Hex(), Asset: asset, Amount: amount, Type: TxUnlock, Ref: ref})
}

// Transfer appends a Transfer entry moving amount of asset from one
// wallet's ledger view to another's (used by settlement to move the
// matched amount from maker to taker and vice versa).
func (s *Service) Transfer(ctx context.Context, tx pgx.Tx, from, to common.Address, asset dec.ID, amount dec.D, ref string) error {
	return s.Append(ctx, tx, Entry{FromAddress: from.Hex(), ToAddress: to.Hex(), Asset: asset, Amount: amount, Type: TxTransfer, Ref: ref})
}

// Lend appends a Lend entry (borrow-view glue for the lending pool, C8).
func (s *Service) Lend(ctx context.Context, tx pgx.Tx, wallet common.Address, asset dec.ID, amount dec.D, ref string) error {
	return s.Append(ctx, tx, Entry{FromAddress: wallet.Hex(), ToAddress: wallet.Hex(), Asset: asset, Amount: amount, Type: TxLend, Ref: ref})
}

// Relock appends a Lock entry without the available-balance check Lock
// performs — used only to compensate a settlement chain failure after an
// Unlock has already been committed (spec §4.6 step 3), where the
// encumbrance is being restored, not newly created.
func (s *Service) Relock(ctx context.Context, tx pgx.Tx, wallet common.Address, asset dec.ID, amount dec.D, ref string) error {
	return s.Append(ctx, tx, Entry{FromAddress: wallet.Hex(), ToAddress: wallet.Hex(), Asset: asset, Amount: amount, Type: TxLock, Ref: ref})
}

// Repay appends a Repay entry, shaped like Unlock (to_address receives the
// credit). oracle.OutstandingLend subtracts Repay entries from a wallet's
// Lend total; deductionsQuery does not count them, so a Repay does not
// change Deductions.
func (s *Service) Repay(ctx context.Context, tx pgx.Tx, wallet common.Address, asset dec.ID, amount dec.D, ref string) error {
	return s.Append(ctx, tx, Entry{FromAddress: wallet.Hex(), ToAddress: wallet.Hex(), Asset: asset, Amount: amount, Type: TxRepay, Ref: ref})
}
