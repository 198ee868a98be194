package router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/matching"
	"github.com/cradle-exchange/cradle/internal/orderbook"
)

// OrderBookProcessor handles the OrderBook domain's three operations,
// mirroring OrderBookProcessorInput::{PlaceOrder, GetOrder, GetOrders}
// from the original system.
type OrderBookProcessor struct {
	engine *matching.Engine
	store  *orderbook.Store
}

func NewOrderBookProcessor(engine *matching.Engine, store *orderbook.Store) *OrderBookProcessor {
	return &OrderBookProcessor{engine: engine, store: store}
}

type PlaceOrderArgs struct {
	Wallet        dec.ID    `json:"wallet"`
	WalletAddress string    `json:"wallet_address"`
	MarketID      dec.ID    `json:"market_id"`
	BidAsset      dec.ID    `json:"bid_asset"`
	AskAsset      dec.ID    `json:"ask_asset"`
	BidAmount     dec.D     `json:"bid_amount"`
	AskAmount     dec.D     `json:"ask_amount"`
	OrderType     string    `json:"order_type"`
	Mode          string    `json:"mode"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	OnChainBidBal dec.D     `json:"on_chain_bid_balance"`
}

type GetOrderArgs struct {
	ID dec.ID `json:"id"`
}

type GetOrdersArgs struct {
	Wallet    *dec.ID `json:"wallet,omitempty"`
	MarketID  *dec.ID `json:"market_id,omitempty"`
	Status    string  `json:"status,omitempty"`
	OrderType string  `json:"order_type,omitempty"`
	Mode      string  `json:"mode,omitempty"`
}

func (p *OrderBookProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "PlaceOrder":
		var args PlaceOrderArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed PlaceOrder payload")
		}
		return p.engine.PlaceOrder(ctx, matching.NewOrderRequest{
			Wallet:        args.Wallet,
			WalletAddress: common.HexToAddress(args.WalletAddress),
			MarketID:      args.MarketID,
			BidAsset:      args.BidAsset,
			AskAsset:      args.AskAsset,
			BidAmount:     args.BidAmount,
			AskAmount:     args.AskAmount,
			OrderType:     orderbook.OrderType(args.OrderType),
			Mode:          orderbook.Mode(args.Mode),
			ExpiresAt:     args.ExpiresAt,
			OnChainBidBal: args.OnChainBidBal,
		})
	case "GetOrder":
		var args GetOrderArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GetOrder payload")
		}
		return p.store.GetOrder(ctx, args.ID)
	case "GetOrders":
		var args GetOrdersArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GetOrders payload")
		}
		return p.store.ListOrders(ctx, args.Wallet, args.MarketID, args.Status, args.OrderType, args.Mode)
	default:
		return nil, cradleerr.Validation("UnknownOperation", "unknown OrderBook operation "+operation)
	}
}
