// Package advisor turns portfolio and verified market state into trade
// proposals. The proposals are untrusted input: everything an advisor
// returns goes through trade validation before it can touch the
// portfolio.
package advisor

import (
	"context"

	"github.com/microcaplab/tradegate/internal/portfolio"
	"github.com/microcaplab/tradegate/internal/trade"
	"github.com/microcaplab/tradegate/internal/verify"
)

// Recommendation is the full response envelope from a reasoning
// engine.
type Recommendation struct {
	Analysis        string                 `json:"analysis"`
	Trades          []trade.TradeCandidate `json:"trades"`
	Confidence      float64                `json:"confidence"`
	PriceDisclaimer string                 `json:"price_disclaimer"`
	ThesisSummary   string                 `json:"thesis_summary"`
}

// RecommendationSource proposes trades from a portfolio snapshot and
// the verified dataset of the current cycle.
type RecommendationSource interface {
	Propose(ctx context.Context, state *portfolio.State, dataset verify.VerifiedDataset) (*Recommendation, error)
}
