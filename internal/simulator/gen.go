package simulator

import (
	"fmt"
	"math/rand"

	"github.com/cradle-exchange/cradle/internal/dec"
)

// SyntheticOrder is one generated order request, shaped like
// matching.NewOrderRequest but kept local to avoid the simulator package
// depending on the matching engine directly — the scheduler translates
// it into a router payload.
type SyntheticOrder struct {
	Wallet        string
	WalletAddress string
	MarketID      string
	BidAsset      string
	AskAsset      string
	BidAmount     dec.D
	AskAmount     dec.D
	OrderType     string
	Mode          string
}

// SimAccount pairs a wallet's entity ID (used for ledger/budget keys)
// with its on-chain address (used by the settlement driver).
type SimAccount struct {
	WalletID string
	Address  string
}

// Generator produces synthetic orders across a fixed account/market
// roster, grounded on the node's pkg/app/perp/txgen.go TxGenerator: a
// seeded rand.Rand plus a monotonic counter for deterministic replay
// under a fixed seed.
type Generator struct {
	accounts []SimAccount
	markets  []SyntheticMarket
	counter  int
	rng      *rand.Rand
	cfg      SchedulerConfig
}

// SyntheticMarket names the two assets and a representative mid price a
// generated order's bid/ask amounts are derived from.
type SyntheticMarket struct {
	MarketID string
	BidAsset string
	AskAsset string
	MidPrice dec.D
}

func NewGenerator(seed int64, accounts []SimAccount, markets []SyntheticMarket, cfg SchedulerConfig) *Generator {
	return &Generator{
		accounts: accounts,
		markets:  markets,
		rng:      rand.New(rand.NewSource(seed)),
		cfg:      cfg,
	}
}

// weighted order-mode distribution, matching the node's 70% GTC / 20%
// IOC / 10% FOK mix for its order-type pick.
func (g *Generator) pickMode() string {
	r := g.rng.Float64()
	switch {
	case r < 0.70:
		return "gtc"
	case r < 0.90:
		return "ioc"
	default:
		return "fok"
	}
}

func (g *Generator) randomAmount() (dec.D, error) {
	min, err := dec.New(g.cfg.MinAmount)
	if err != nil {
		return dec.Zero, err
	}
	max, err := dec.New(g.cfg.MaxAmount)
	if err != nil {
		return dec.Zero, err
	}
	span := max.Sub(min)
	frac := g.rng.Float64()
	offset, err := dec.New(fmt.Sprintf("%.8f", frac))
	if err != nil {
		return dec.Zero, err
	}
	return min.Add(span.Mul(offset)), nil
}

// GenerateOrder produces one synthetic order for a randomly chosen
// account and market, varying the ask amount ±5% around the market's
// mid price the same way the node's GenerateOrder varies its mark price.
func (g *Generator) GenerateOrder() (SyntheticOrder, error) {
	if len(g.accounts) == 0 || len(g.markets) == 0 {
		return SyntheticOrder{}, fmt.Errorf("simulator: generator has no accounts or markets configured")
	}
	g.counter++
	account := g.accounts[g.rng.Intn(len(g.accounts))]
	market := g.markets[g.rng.Intn(len(g.markets))]

	bidAmount, err := g.randomAmount()
	if err != nil {
		return SyntheticOrder{}, err
	}

	variance := 1 + (g.rng.Float64()*0.10 - 0.05) // +/-5%
	adjusted, err := dec.New(fmt.Sprintf("%.8f", variance))
	if err != nil {
		return SyntheticOrder{}, err
	}
	price := market.MidPrice.Mul(adjusted)
	askAmount, err := dec.DivTrunc(bidAmount, price)
	if err != nil {
		return SyntheticOrder{}, err
	}

	side := (g.counter - 1) % 2
	bidAsset, askAsset := market.BidAsset, market.AskAsset
	if g.cfg.AlternateSides && side == 1 {
		bidAsset, askAsset = askAsset, bidAsset
		bidAmount, askAmount = askAmount, bidAmount
	}

	return SyntheticOrder{
		Wallet:        account.WalletID,
		WalletAddress: account.Address,
		MarketID:      market.MarketID,
		BidAsset:      bidAsset,
		AskAsset:      askAsset,
		BidAmount:     bidAmount,
		AskAmount:     askAmount,
		OrderType:     "limit",
		Mode:          g.pickMode(),
	}, nil
}

// GenerateBatch produces count orders, skipping (not failing the batch
// on) any individual generation error — mirroring the node's
// GenerateBatch tolerance for occasional bad draws.
func (g *Generator) GenerateBatch(count int) []SyntheticOrder {
	out := make([]SyntheticOrder, 0, count)
	for i := 0; i < count; i++ {
		order, err := g.GenerateOrder()
		if err != nil {
			continue
		}
		out = append(out, order)
	}
	return out
}
