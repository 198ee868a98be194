// Package router implements the action router (spec component C9): a
// uniform envelope `{"<Domain>": {"<Operation>": payload}}` dispatched to
// per-domain processors, mirroring the original system's tagged
// ActionRouterInput/ActionRouterOutput enums as exhaustive Go switch
// dispatch instead of Rust sum-type matching (spec §9's "dynamic variant
// dispatch" note).
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
)

// Domain is one of the seven top-level routing keys from spec §6.
type Domain string

const (
	DomainAccounts         Domain = "Accounts"
	DomainAssetBook        Domain = "AssetBook"
	DomainMarkets          Domain = "Markets"
	DomainOrderBook        Domain = "OrderBook"
	DomainMarketTimeSeries Domain = "MarketTimeSeries"
	DomainLendingPool      Domain = "LendingPool"
	DomainListings         Domain = "Listings"
)

// Processor handles every operation within one domain. Operation is the
// inner key of the envelope; payload is its still-encoded JSON value.
type Processor interface {
	Process(ctx context.Context, operation string, payload json.RawMessage) (any, error)
}

// Router dispatches a decoded envelope to the processor registered for
// its domain.
type Router struct {
	processors map[Domain]Processor
}

func New() *Router {
	return &Router{processors: make(map[Domain]Processor)}
}

func (r *Router) Register(d Domain, p Processor) {
	r.processors[d] = p
}

// Envelope is the single JSON object `{ "<Domain>": { "<Operation>": payload } }`.
type Envelope map[Domain]map[string]json.RawMessage

// Response mirrors the envelope shape on the way out: `{success, data?, error?}`
// per spec §6's minimal HTTP surface.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Dispatch decodes one envelope and routes it to exactly one (domain,
// operation) pair — the envelope is defined as carrying a single
// operation per request, matching the original system's one-shot
// ActionRouterInput/Output round trip.
func (r *Router) Dispatch(ctx context.Context, body []byte) Response {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Response{Success: false, Error: "malformed action envelope: " + err.Error()}
	}
	if len(env) != 1 {
		return Response{Success: false, Error: "envelope must carry exactly one domain"}
	}

	for domain, ops := range env {
		if len(ops) != 1 {
			return Response{Success: false, Error: "domain must carry exactly one operation"}
		}
		proc, ok := r.processors[domain]
		if !ok {
			return Response{Success: false, Error: fmt.Sprintf("unknown domain %q", domain)}
		}
		for op, payload := range ops {
			result, err := proc.Process(ctx, op, payload)
			if err != nil {
				return Response{Success: false, Error: errMessage(err)}
			}
			return Response{Success: true, Data: map[string]any{string(domain): map[string]any{op: result}}}
		}
	}
	return Response{Success: false, Error: "empty envelope"}
}

func errMessage(err error) string {
	if ce, ok := err.(*cradleerr.Error); ok {
		return string(ce.Kind) + "/" + ce.Code + ": " + ce.Msg
	}
	return err.Error()
}
