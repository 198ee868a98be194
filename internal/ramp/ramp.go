// Package ramp implements the on-ramp plumbing supplemented from the
// original system's ramper/mod.rs: associate the token to the wallet,
// then hand off to an external on-ramp HTTP provider. The provider call
// itself is an external collaborator — spec §1 lists "the on-ramp/off-ramp
// HTTP provider integration" as explicitly out of scope — so Provider is
// an interface the caller supplies, not a concrete HTTP client wired here.
package ramp

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cradle-exchange/cradle/internal/assets"
	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

type OnRampRequest struct {
	Token      dec.ID
	Amount     dec.D
	WalletID   dec.ID
	ResultPage string
	Email      string
}

type OnRampResponse struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type CallbackData struct {
	EventType      string
	OrderID        string
	Token          string
	Amount         string
	Currency       string
	FailureReason  string
}

// Provider is the external on-ramp HTTP integration; a concrete
// implementation would call out to the ramp vendor's API.
type Provider interface {
	Initialize(ctx context.Context, req RequestToken) (OnRampResponse, error)
}

type RequestToken struct {
	Token         string
	Amount        dec.D
	Email         string
	Currency      string
	OrderID       string
	CallbackURL   string
	Channels      []string
	CryptoAccount string
}

type Service struct {
	assets      *assets.Registry
	provider    Provider
	callbackURL string
}

func New(ar *assets.Registry, provider Provider, callbackURL string) *Service {
	return &Service{assets: ar, provider: provider, callbackURL: callbackURL}
}

// OnRamp associates the token to the wallet (idempotent, per spec §4.3)
// then initializes the on-ramp transaction through the external provider.
func (s *Service) OnRamp(ctx context.Context, req OnRampRequest) (OnRampResponse, error) {
	if err := s.assets.AssociateToken(ctx, req.WalletID, req.Token); err != nil {
		return OnRampResponse{}, err
	}
	asset, err := s.assets.GetAsset(ctx, req.Token)
	if err != nil {
		return OnRampResponse{}, err
	}

	orderID := uuid.New().String()
	resp, err := s.provider.Initialize(ctx, RequestToken{
		Token:       asset.Symbol,
		Amount:      req.Amount,
		Email:       req.Email,
		Currency:    "KES",
		OrderID:     orderID,
		CallbackURL: s.callbackURL,
		Channels:    []string{"card"},
	})
	if err != nil {
		return OnRampResponse{}, cradleerr.Settlement("OnRampInitFailed", "on-ramp provider initialize failed", err)
	}
	return resp, nil
}

// Callback handles the provider's webhook; actual settlement of the
// ramped funds is driven by the ledger/assets domains once the provider
// confirms payment, which is out of this stub's scope.
func (s *Service) Callback(ctx context.Context, cb CallbackData) error {
	if cb.FailureReason != "" {
		return fmt.Errorf("on-ramp callback reported failure for order %s: %s", cb.OrderID, cb.FailureReason)
	}
	return nil
}
