// Package assets implements the asset, wallet, account and KYC registry
// (spec component C3): creating an Account atomically materializes one
// Wallet, token associations are idempotent set membership, and KYC
// grants gate Institutional assets only.
package assets

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/ledger"
)

type AssetType string

const (
	AssetNative        AssetType = "native"
	AssetExistingToken AssetType = "existing_token"
)

type Asset struct {
	ID                dec.ID
	Symbol            string
	Decimals          int32
	Icon              string
	Type              AssetType
	TokenHandle       string // on-chain token contract, required for ExistingToken
	AssetManagerHandle string
	Institutional     bool // gates whether KYC is required to hold it
}

type WalletStatus string

const (
	WalletActive WalletStatus = "active"
	WalletFrozen WalletStatus = "frozen"
	WalletClosed WalletStatus = "closed"
)

type Wallet struct {
	ID              dec.ID
	CradleAccountID dec.ID
	Address         common.Address
	ContractID      string
	Status          WalletStatus
}

type AccountType string

const (
	AccountRetail        AccountType = "retail"
	AccountInstitutional AccountType = "institutional"
)

type AccountStatus string

const (
	AccountUnverified AccountStatus = "unverified"
	AccountVerified   AccountStatus = "verified"
	AccountSuspended  AccountStatus = "suspended"
)

type Account struct {
	ID                 dec.ID
	ExternalIdentifier string
	Type               AccountType
	Status             AccountStatus
}

// Registry is the persistence-backed API for C3, with a small read-through
// LRU cache over the mostly-static Asset table — reference data only, not
// the order book, which spec §5 explicitly forbids caching outside the
// matching transaction.
type Registry struct {
	pool       *pgxpool.Pool
	assetCache *lru.Cache[dec.ID, Asset]
}

func New(pool *pgxpool.Pool) (*Registry, error) {
	cache, err := lru.New[dec.ID, Asset](512)
	if err != nil {
		return nil, err
	}
	return &Registry{pool: pool, assetCache: cache}, nil
}

// CreateAccount atomically creates an Account and its one Wallet (spec §3:
// "Creating an Account materializes one Wallet atomically").
func (r *Registry) CreateAccount(ctx context.Context, acc Account, walletAddr common.Address, contractID string) (Account, Wallet, error) {
	if acc.ID == dec.NilID {
		acc.ID = dec.NewID()
	}
	if acc.Status == "" {
		acc.Status = AccountUnverified
	}
	wallet := Wallet{ID: dec.NewID(), CradleAccountID: acc.ID, Address: walletAddr, ContractID: contractID, Status: WalletActive}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Account{}, Wallet{}, cradleerr.Persistence("BeginTxFailed", "create account", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `insert into accounts (id, external_identifier, account_type, status) values ($1,$2,$3,$4)`,
		acc.ID, acc.ExternalIdentifier, string(acc.Type), string(acc.Status))
	if err != nil {
		return Account{}, Wallet{}, cradleerr.Persistence("AccountInsertFailed", "insert account", err)
	}
	_, err = tx.Exec(ctx, `insert into wallets (id, cradle_account_id, address, contract_id, status) values ($1,$2,$3,$4,$5)`,
		wallet.ID, wallet.CradleAccountID, wallet.Address.Hex(), wallet.ContractID, string(wallet.Status))
	if err != nil {
		return Account{}, Wallet{}, cradleerr.Persistence("WalletInsertFailed", "insert wallet", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Account{}, Wallet{}, cradleerr.Persistence("CommitFailed", "create account commit", err)
	}
	return acc, wallet, nil
}

// AssociateToken is idempotent: re-associating an already-associated
// (wallet, asset) pair is a no-op success, per spec §4.3.
func (r *Registry) AssociateToken(ctx context.Context, wallet dec.ID, asset dec.ID) error {
	_, err := r.pool.Exec(ctx,
		`insert into token_associations (wallet_id, asset_id) values ($1,$2) on conflict (wallet_id, asset_id) do nothing`,
		wallet, asset)
	if err != nil {
		return cradleerr.Persistence("AssociateTokenFailed", "associate token", err)
	}
	return nil
}

// GrantKYC is idempotent the same way AssociateToken is.
func (r *Registry) GrantKYC(ctx context.Context, wallet dec.ID, asset dec.ID) error {
	_, err := r.pool.Exec(ctx,
		`insert into kyc_grants (wallet_id, asset_id) values ($1,$2) on conflict (wallet_id, asset_id) do nothing`,
		wallet, asset)
	if err != nil {
		return cradleerr.Persistence("GrantKYCFailed", "grant kyc", err)
	}
	return nil
}

func (r *Registry) IsAssociated(ctx context.Context, wallet dec.ID, asset dec.ID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`select exists(select 1 from token_associations where wallet_id=$1 and asset_id=$2)`, wallet, asset).Scan(&exists)
	if err != nil {
		return false, cradleerr.Persistence("CheckAssociationFailed", "check token association", err)
	}
	return exists, nil
}

func (r *Registry) HasKYC(ctx context.Context, wallet dec.ID, asset dec.ID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`select exists(select 1 from kyc_grants where wallet_id=$1 and asset_id=$2)`, wallet, asset).Scan(&exists)
	if err != nil {
		return false, cradleerr.Persistence("CheckKYCFailed", "check kyc grant", err)
	}
	return exists, nil
}

// RequiresKYC reports whether asset gates access behind a KYC grant —
// only Institutional assets require it (spec §3).
func (r *Registry) RequiresKYC(ctx context.Context, assetID dec.ID) (bool, error) {
	asset, err := r.GetAsset(ctx, assetID)
	if err != nil {
		return false, err
	}
	return asset.Institutional, nil
}

// GetAsset reads through the LRU cache; asset rows are reference data
// that changes rarely, so a cache hit skips the round trip entirely.
func (r *Registry) GetAsset(ctx context.Context, id dec.ID) (Asset, error) {
	if a, ok := r.assetCache.Get(id); ok {
		return a, nil
	}
	var a Asset
	err := r.pool.QueryRow(ctx,
		`select id, symbol, decimals, icon, asset_type, coalesce(token_handle,''), coalesce(asset_manager_handle,''), institutional
		 from assets where id=$1`, id).
		Scan(&a.ID, &a.Symbol, &a.Decimals, &a.Icon, &a.Type, &a.TokenHandle, &a.AssetManagerHandle, &a.Institutional)
	if err != nil {
		return Asset{}, cradleerr.NotFound("AssetNotFound", "asset "+id.String()+" not found")
	}
	r.assetCache.Add(id, a)
	return a, nil
}

// ListAssetIDs returns every known asset id, the candidate set
// HandleAssociateAssets/HandleKYCAssets walk to discover what a wallet
// still needs.
func (r *Registry) ListAssetIDs(ctx context.Context) ([]dec.ID, error) {
	rows, err := r.pool.Query(ctx, `select id from assets`)
	if err != nil {
		return nil, cradleerr.Persistence("ListAssetsFailed", "list assets", err)
	}
	defer rows.Close()
	var out []dec.ID
	for rows.Next() {
		var id dec.ID
		if err := rows.Scan(&id); err != nil {
			return nil, cradleerr.Persistence("ScanAssetIDFailed", "scan asset id", err)
		}
		out = append(out, id)
	}
	return out, nil
}

// CheckWalletEligible enforces admission precondition (3) from spec §4.5:
// the wallet must have a token association for asset, and KYC if the
// asset requires it.
func (r *Registry) CheckWalletEligible(ctx context.Context, wallet dec.ID, asset dec.ID) error {
	associated, err := r.IsAssociated(ctx, wallet, asset)
	if err != nil {
		return err
	}
	if !associated {
		return cradleerr.Auth(cradleerr.CodeNotAssociated, "wallet is not associated with asset "+asset.String())
	}
	needsKYC, err := r.RequiresKYC(ctx, asset)
	if err != nil {
		return err
	}
	if needsKYC {
		granted, err := r.HasKYC(ctx, wallet, asset)
		if err != nil {
			return err
		}
		if !granted {
			return cradleerr.Auth(cradleerr.CodeKYCRequired, "wallet lacks KYC grant for asset "+asset.String())
		}
	}
	return nil
}

// AssociateResult reports per-asset success/failure from a batch walk,
// matching HandleAssociateAssets/HandleKYCAssets' "partial success is
// reported, not rolled back" contract (spec §4.3).
type AssociateResult struct {
	Asset dec.ID
	Err   error
}

// HandleAssociateAssets walks every known asset not yet associated with
// wallet and retries each independently — the bulk-retry operation a
// caller reaches for precisely because it doesn't already know which
// assets are missing (spec §4.3).
func (r *Registry) HandleAssociateAssets(ctx context.Context, wallet dec.ID) []AssociateResult {
	allAssets, err := r.ListAssetIDs(ctx)
	if err != nil {
		return []AssociateResult{{Err: err}}
	}
	results := make([]AssociateResult, 0, len(allAssets))
	for _, asset := range allAssets {
		associated, err := r.IsAssociated(ctx, wallet, asset)
		if err == nil && associated {
			continue
		}
		err = r.AssociateToken(ctx, wallet, asset)
		results = append(results, AssociateResult{Asset: asset, Err: err})
	}
	return results
}

// HandleKYCAssets is HandleAssociateAssets' counterpart for KYC grants: it
// walks every Institutional asset wallet lacks a grant for.
func (r *Registry) HandleKYCAssets(ctx context.Context, wallet dec.ID) []AssociateResult {
	allAssets, err := r.ListAssetIDs(ctx)
	if err != nil {
		return []AssociateResult{{Err: err}}
	}
	results := make([]AssociateResult, 0, len(allAssets))
	for _, asset := range allAssets {
		needsKYC, err := r.RequiresKYC(ctx, asset)
		if err != nil || !needsKYC {
			continue
		}
		granted, err := r.HasKYC(ctx, wallet, asset)
		if err == nil && granted {
			continue
		}
		err = r.GrantKYC(ctx, wallet, asset)
		results = append(results, AssociateResult{Asset: asset, Err: err})
	}
	return results
}

// WithdrawRequest is the input to WithdrawTokens, the assets-side half of
// a withdrawal: it validates available balance via the ledger. No fiat
// path exists, and no wallet-capability call is made for the on-chain leg.
type WithdrawRequest struct {
	Wallet         dec.ID
	WalletAddress  common.Address
	Asset          dec.ID
	Amount         dec.D
	OnChainBalance dec.D
}

// WithdrawTokens checks that amount is covered by available balance
// (on-chain balance minus deductions) and, if so, appends a Lock entry
// reserving it. It does not submit a chain call, and neither does its
// caller, the Accounts processor's WithdrawTokens operation, which only
// commits the transaction holding the Lock.
func (r *Registry) WithdrawTokens(ctx context.Context, tx pgx.Tx, led *ledger.Service, req WithdrawRequest) error {
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return cradleerr.Validation(cradleerr.CodeBadAmount, "withdraw amount must be positive")
	}
	return led.Lock(ctx, tx, req.WalletAddress, req.Asset, req.Amount, req.OnChainBalance, "withdraw:"+req.Wallet.String())
}
