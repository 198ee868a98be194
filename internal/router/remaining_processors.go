package router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
	"github.com/cradle-exchange/cradle/internal/listing"
	"github.com/cradle-exchange/cradle/internal/market"
	"github.com/cradle-exchange/cradle/internal/oracle"
	"github.com/cradle-exchange/cradle/internal/assets"
	"github.com/cradle-exchange/cradle/internal/timeseries"
)

// AssetBookProcessor handles the AssetBook domain: asset lookups
// (GetAsset). It has no wallet operations.
type AssetBookProcessor struct {
	registry *assets.Registry
}

func NewAssetBookProcessor(registry *assets.Registry) *AssetBookProcessor {
	return &AssetBookProcessor{registry: registry}
}

type GetAssetArgs struct {
	ID dec.ID `json:"id"`
}

func (p *AssetBookProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "GetAsset":
		var args GetAssetArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GetAsset payload")
		}
		return p.registry.GetAsset(ctx, args.ID)
	default:
		return nil, cradleerr.Validation("UnknownOperation", "unknown AssetBook operation "+operation)
	}
}

// MarketsProcessor handles the Markets domain: lookups and status
// transitions on the market registry (C4).
type MarketsProcessor struct {
	markets *market.Registry
}

func NewMarketsProcessor(markets *market.Registry) *MarketsProcessor {
	return &MarketsProcessor{markets: markets}
}

type GetMarketArgs struct {
	ID dec.ID `json:"id"`
}

type ListMarketsArgs struct {
	MarketType string `json:"market_type,omitempty"`
	Status     string `json:"status,omitempty"`
	Regulation string `json:"regulation,omitempty"`
}

type UpdateMarketStatusArgs struct {
	ID     dec.ID `json:"id"`
	Status string `json:"status"`
}

func (p *MarketsProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "GetMarket":
		var args GetMarketArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GetMarket payload")
		}
		return p.markets.Get(ctx, args.ID)
	case "ListMarkets":
		var args ListMarketsArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed ListMarkets payload")
		}
		return p.markets.List(ctx, args.MarketType, args.Status, args.Regulation)
	case "UpdateMarketStatus":
		var args UpdateMarketStatusArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed UpdateMarketStatus payload")
		}
		return nil, p.markets.UpdateStatus(ctx, args.ID, market.Status(args.Status))
	default:
		return nil, cradleerr.Validation("UnknownOperation", "unknown Markets operation "+operation)
	}
}

// MarketTimeSeriesProcessor handles the MarketTimeSeries domain's history
// query, backing GET /time-series/history.
type MarketTimeSeriesProcessor struct {
	series *timeseries.Service
}

func NewMarketTimeSeriesProcessor(series *timeseries.Service) *MarketTimeSeriesProcessor {
	return &MarketTimeSeriesProcessor{series: series}
}

type GetHistoryArgs struct {
	MarketID    dec.ID `json:"market_id"`
	AssetID     dec.ID `json:"asset_id"`
	Interval    string `json:"interval"`
	DurationSec int64  `json:"duration_secs"`
}

func (p *MarketTimeSeriesProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "GetHistory":
		var args GetHistoryArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GetHistory payload")
		}
		since := time.Now().Add(-time.Duration(args.DurationSec) * time.Second)
		return p.series.Aggregate(ctx, args.MarketID, args.AssetID, timeseries.Interval(args.Interval), since)
	default:
		return nil, cradleerr.Validation("UnknownOperation", "unknown MarketTimeSeries operation "+operation)
	}
}

// LendingPoolProcessor handles the LendingPool domain: price publishing
// and the borrow-view into the ledger (C8).
type LendingPoolProcessor struct {
	oracle *oracle.Service
}

func NewLendingPoolProcessor(o *oracle.Service) *LendingPoolProcessor {
	return &LendingPoolProcessor{oracle: o}
}

type UpdatePriceArgs struct {
	PoolContract string `json:"pool_contract"`
	AssetToken   string `json:"asset_token"`
	LendingPool  dec.ID `json:"lending_pool_id"`
	Asset        dec.ID `json:"asset_id"`
	Price        dec.D  `json:"price"`
}

type GetPriceArgs struct {
	LendingPool dec.ID `json:"lending_pool_id"`
	Asset       dec.ID `json:"asset_id"`
}

type OutstandingLendArgs struct {
	WalletAddress string `json:"wallet_address"`
	Asset         dec.ID `json:"asset_id"`
}

func (p *LendingPoolProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "UpdatePrice":
		var args UpdatePriceArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed UpdatePrice payload")
		}
		return nil, p.oracle.UpdatePrice(ctx, common.HexToAddress(args.PoolContract), common.HexToAddress(args.AssetToken), oracle.PriceRow{
			LendingPoolID: args.LendingPool, AssetID: args.Asset, Price: args.Price,
		})
	case "GetPrice":
		var args GetPriceArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GetPrice payload")
		}
		return p.oracle.GetPrice(ctx, args.LendingPool, args.Asset)
	case "OutstandingLend":
		var args OutstandingLendArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed OutstandingLend payload")
		}
		return p.oracle.OutstandingLend(ctx, common.HexToAddress(args.WalletAddress), args.Asset)
	default:
		return nil, cradleerr.Validation("UnknownOperation", "unknown LendingPool operation "+operation)
	}
}

// ListingsProcessor handles the Listings domain supplemented from the
// original system's listing workflow.
type ListingsProcessor struct {
	listings *listing.Service
}

func NewListingsProcessor(l *listing.Service) *ListingsProcessor {
	return &ListingsProcessor{listings: l}
}

type CreateListingArgs struct {
	CompanyName string `json:"company_name"`
	AssetID     dec.ID `json:"asset_id"`
	WalletID    dec.ID `json:"wallet_id"`
}

type GetListingArgs struct {
	ID dec.ID `json:"id"`
}

func (p *ListingsProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "CreateListing":
		var args CreateListingArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed CreateListing payload")
		}
		return p.listings.CreateListing(ctx, listing.Listing{CompanyName: args.CompanyName, AssetID: args.AssetID, WalletID: args.WalletID})
	case "GetListing":
		var args GetListingArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, cradleerr.Validation(cradleerr.CodeBadAmount, "malformed GetListing payload")
		}
		return p.listings.GetListing(ctx, args.ID)
	default:
		return nil, cradleerr.Validation("UnknownOperation", "unknown Listings operation "+operation)
	}
}
