package router

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cradle-exchange/cradle/internal/assets"
	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/ledger"
)

// AccountsProcessor handles the Accounts domain, grounded on
// AccountsProcessorInput from the original system: account/wallet
// creation, token association, KYC grants, and withdrawal initiation.
type AccountsProcessor struct {
	registry *assets.Registry
	ledger   *ledger.Service
	pool     *pgxpool.Pool
}

func NewAccountsProcessor(registry *assets.Registry, led *ledger.Service, pool *pgxpool.Pool) *AccountsProcessor {
	return &AccountsProcessor{registry: registry, ledger: led, pool: pool}
}

type CreateAccountArgs struct {
	ExternalIdentifier string `json:"external_identifier,omitempty"`
	AccountType        string `json:"account_type"`
	WalletAddress      string `json:"wallet_address"`
	ContractID         string `json:"contract_id,omitempty"`
}

type AssociateTokenArgs struct {
	WalletID dec.ID `json:"wallet_id"`
	Token    dec.ID `json:"token"`
}

type GrantKYCArgs = AssociateTokenArgs

type HandleAssetsArgs struct {
	WalletID dec.ID `json:"wallet_id"`
}

type WithdrawTokensArgs struct {
	WithdrawalType string `json:"withdrawal_type"`
	From           dec.ID `json:"from"`
	FromAddress    string `json:"from_address"`
	Token          dec.ID `json:"token"`
	Amount         dec.D  `json:"amount"`
	OnChainBalance dec.D  `json:"on_chain_balance"`
}

func (p *AccountsProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "CreateAccount":
		var args CreateAccountArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed CreateAccount payload")
		}
		acc, wallet, err := p.registry.CreateAccount(ctx, assets.Account{
			ExternalIdentifier: args.ExternalIdentifier,
			Type:               assets.AccountType(args.AccountType),
		}, common.HexToAddress(args.WalletAddress), args.ContractID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"account": acc, "wallet": wallet}, nil

	case "AssociateTokenToWallet":
		var args AssociateTokenArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed AssociateTokenToWallet payload")
		}
		return nil, p.registry.AssociateToken(ctx, args.WalletID, args.Token)

	case "GrantKYC":
		var args GrantKYCArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GrantKYC payload")
		}
		return nil, p.registry.GrantKYC(ctx, args.WalletID, args.Token)

	case "HandleAssociateAssets":
		var args HandleAssetsArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed HandleAssociateAssets payload")
		}
		return p.registry.HandleAssociateAssets(ctx, args.WalletID), nil

	case "HandleKYCAssets":
		var args HandleAssetsArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed HandleKYCAssets payload")
		}
		return p.registry.HandleKYCAssets(ctx, args.WalletID), nil

	case "WithdrawTokens":
		var args WithdrawTokensArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed WithdrawTokens payload")
		}
		tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return nil, cradleerr.Persistence("BeginTxFailed", "begin withdraw transaction", err)
		}
		defer tx.Rollback(ctx)
		if err := p.registry.WithdrawTokens(ctx, tx, p.ledger, assets.WithdrawRequest{
			Wallet:         args.From,
			WalletAddress:  common.HexToAddress(args.FromAddress),
			Asset:          args.Token,
			Amount:         args.Amount,
			OnChainBalance: args.OnChainBalance,
		}); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, cradleerr.Persistence("CommitFailed", "commit withdraw transaction", err)
		}
		return nil, nil

	default:
		return nil, cradleerr.Validation("UnknownOperation", "unknown Accounts operation "+operation)
	}
}
