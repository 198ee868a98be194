// Package walletcap is the wallet capability the settlement driver and
// price-oracle publisher treat as an external collaborator: the core
// only ever calls Capability, never touches key material or a chain
// client directly (spec §1, §4.6, §4.7). The signing primitives below
// are adapted from the node's secp256k1/EIP-55 helpers; submission is a
// thin devnet-style stub standing in for the real on-chain call that is
// explicitly out of scope for this repository.
package walletcap

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/cradle-exchange/cradle/internal/dec"
)

// SettlementCall is the swap/transfer call the settlement driver submits
// against a market contract after a trade's ledger entries commit.
type SettlementCall struct {
	MarketContract common.Address
	From           common.Address
	To             common.Address
	Asset          common.Address
	Amount         dec.D
}

// OracleCall is the update_oracle call the price-oracle publisher submits.
type OracleCall struct {
	PoolContract common.Address
	AssetToken   common.Address
	Multiplier   uint64
}

// Capability is the signing/submit surface the core depends on. The
// wallet is effectively single-writer: callers serialize submissions
// through the same Capability instance (spec §5), nonce bookkeeping is
// this package's problem, not the caller's.
type Capability interface {
	Address() common.Address
	SubmitSettlement(ctx context.Context, call SettlementCall) (txHash common.Hash, err error)
	SubmitOracleUpdate(ctx context.Context, call OracleCall) (txHash common.Hash, err error)
}

// devWallet signs locally with an in-process key and "submits" by minting
// a deterministic pseudo tx hash; it stands in for a real chain client the
// way the spec treats the wallet as an external collaborator whose
// implementation is out of scope.
type devWallet struct {
	signer *Signer
	log    *zap.Logger
	nonce  uint64
}

// FromEnv builds the wallet capability from WALLET_PRIVATE_KEY, generating
// an ephemeral key when unset (local/dev use only — never for a funded
// account).
func FromEnv(log *zap.Logger) (Capability, error) {
	hexKey := os.Getenv("WALLET_PRIVATE_KEY")
	var signer *Signer
	var err error
	if hexKey != "" {
		signer, err = FromPrivateKeyHex(hexKey)
	} else {
		signer, err = GenerateKey()
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet signer: %w", err)
	}
	return &devWallet{signer: signer, log: log}, nil
}

func (w *devWallet) Address() common.Address { return w.signer.Address() }

func (w *devWallet) SubmitSettlement(ctx context.Context, call SettlementCall) (common.Hash, error) {
	amount, err := dec.ToUint64(call.Amount)
	if err != nil {
		return common.Hash{}, err
	}
	payload := fmt.Sprintf("settle:%s:%s:%s:%s:%d", call.MarketContract, call.From, call.To, call.Asset, amount)
	hash, err := w.sign(payload)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign settlement payload: %w", err)
	}
	w.log.Info("submitted on-chain settlement",
		zap.String("market_contract", call.MarketContract.Hex()),
		zap.String("tx_hash", hash.Hex()),
	)
	return hash, nil
}

func (w *devWallet) SubmitOracleUpdate(ctx context.Context, call OracleCall) (common.Hash, error) {
	payload := fmt.Sprintf("oracle:%s:%s:%d", call.PoolContract, call.AssetToken, call.Multiplier)
	hash, err := w.sign(payload)
	if err != nil {
		return common.Hash{}, err
	}
	w.log.Info("submitted oracle update",
		zap.String("pool_contract", call.PoolContract.Hex()),
		zap.String("tx_hash", hash.Hex()),
	)
	return hash, nil
}

func (w *devWallet) sign(payload string) (common.Hash, error) {
	w.nonce++
	return w.signer.SignSettlementPayload(payload, w.nonce)
}
