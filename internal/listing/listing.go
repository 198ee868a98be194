// Package listing implements the native listing workflow supplemented
// from the original system's listing/processor.rs (dropped by the
// distilled spec, reintroduced here as thin plumbing): creating a
// company/listing record gated by KYC on the asset being listed.
package listing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cradle-exchange/cradle/internal/assets"
	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

type Status string

const (
	Pending  Status = "pending"
	Approved Status = "approved"
	Rejected Status = "rejected"
)

type Listing struct {
	ID          dec.ID
	CompanyName string
	AssetID     dec.ID
	WalletID    dec.ID
	Status      Status
}

type Service struct {
	pool   *pgxpool.Pool
	assets *assets.Registry
}

func New(pool *pgxpool.Pool, ar *assets.Registry) *Service {
	return &Service{pool: pool, assets: ar}
}

// CreateListing requires the listing wallet to be associated with the
// asset being listed and, for an Institutional asset, to hold a KYC grant
// on it — the same CheckWalletEligible gate order admission uses (spec
// §4.3's KYC gate, reused here rather than re-specified).
func (s *Service) CreateListing(ctx context.Context, l Listing) (Listing, error) {
	if err := s.assets.CheckWalletEligible(ctx, l.WalletID, l.AssetID); err != nil {
		return Listing{}, err
	}
	if l.ID == dec.NilID {
		l.ID = dec.NewID()
	}
	if l.Status == "" {
		l.Status = Pending
	}
	_, err := s.pool.Exec(ctx,
		`insert into listings (id, company_name, asset_id, wallet_id, status) values ($1,$2,$3,$4,$5)`,
		l.ID, l.CompanyName, l.AssetID, l.WalletID, string(l.Status))
	if err != nil {
		return Listing{}, cradleerr.Persistence("ListingInsertFailed", "insert listing", err)
	}
	return l, nil
}

func (s *Service) GetListing(ctx context.Context, id dec.ID) (Listing, error) {
	var l Listing
	var status string
	err := s.pool.QueryRow(ctx, `select id, company_name, asset_id, wallet_id, status from listings where id=$1`, id).
		Scan(&l.ID, &l.CompanyName, &l.AssetID, &l.WalletID, &status)
	if err != nil {
		return Listing{}, cradleerr.NotFound("ListingNotFound", "listing "+id.String()+" not found")
	}
	l.Status = Status(status)
	return l, nil
}
