package trade

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/marketdata"
	"github.com/microcaplab/tradegate/internal/verify"
)

var hundred = decimal.NewFromInt(100)

// Validator cross-checks trade candidates against the verified dataset
// and a snapshot of the portfolio. It holds its own copy of the cash
// and share balances, so validating a batch never mutates the caller's
// portfolio: balances are consumed on a working copy as candidates are
// accepted, which makes acceptance depend on batch order. A SELL
// accepted earlier in the batch credits its proceeds to the working
// cash, so a later BUY may be affordable only because of it.
type Validator struct {
	tolerance decimal.Decimal
	cash      decimal.Decimal
	shares    map[string]int64
}

// NewValidator builds a validator from the relative price tolerance
// (e.g. 0.05 for 5%) and the portfolio snapshot the batch will be
// judged against.
func NewValidator(tolerance float64, cash decimal.Decimal, holdings map[string]int64) *Validator {
	shares := make(map[string]int64, len(holdings))
	for sym, n := range holdings {
		shares[sym] = n
	}
	return &Validator{
		tolerance: decimal.NewFromFloat(tolerance),
		cash:      cash,
		shares:    shares,
	}
}

// Validate judges every candidate in order and returns one verdict per
// candidate, in the same order. Checks run strictly in sequence for
// each candidate: verified data present, symbol verified, claimed
// price within tolerance, then sufficient shares (SELL) or sufficient
// cash (BUY); the first failure decides the reason code.
func (tv *Validator) Validate(dataset verify.VerifiedDataset, candidates []TradeCandidate) []TradeVerdict {
	cash := tv.cash
	shares := make(map[string]int64, len(tv.shares))
	for sym, n := range tv.shares {
		shares[sym] = n
	}

	verdicts := make([]TradeVerdict, 0, len(candidates))
	for _, cand := range candidates {
		verdicts = append(verdicts, tv.judge(dataset, cand, &cash, shares))
	}
	return verdicts
}

func (tv *Validator) judge(dataset verify.VerifiedDataset, cand TradeCandidate, cash *decimal.Decimal, shares map[string]int64) TradeVerdict {
	v := TradeVerdict{Candidate: cand}

	if dataset.Empty() {
		v.Status, v.Reason = Rejected, ReasonNoVerifiedData
		v.Detail = "no verified market data this cycle; refusing to trade on unverified prices"
		return v
	}

	symbol := marketdata.NormalizeSymbol(cand.Symbol)
	quote, ok := dataset.Quotes[symbol]
	if !ok {
		v.Status, v.Reason = Rejected, ReasonUnverifiedSymbol
		v.Detail = fmt.Sprintf("%s is not in the verified dataset (verified: %s)",
			symbol, strings.Join(dataset.Symbols(), ", "))
		return v
	}

	v.VerifiedPrice = quote.Price
	v.HasVerifiedPrice = true

	// Relative deviation against the verified price. Verified quotes
	// always carry a positive price, so the division is safe.
	deviation := cand.ClaimedPrice.Sub(quote.Price).Abs().Div(quote.Price)
	if deviation.GreaterThan(tv.tolerance) {
		v.Status, v.Reason = Rejected, ReasonPriceMismatch
		v.Detail = fmt.Sprintf("claimed price $%s deviates %s%% from verified price $%s",
			cand.ClaimedPrice.StringFixed(2), deviation.Mul(hundred).Round(1), quote.Price.StringFixed(2))
		return v
	}

	qty := decimal.NewFromInt(cand.Shares)
	switch cand.Action {
	case Sell:
		held := shares[symbol]
		if cand.Shares > held {
			v.Status, v.Reason = Rejected, ReasonInsufficientShares
			v.Detail = fmt.Sprintf("sell of %d shares exceeds holding of %d", cand.Shares, held)
			return v
		}
		shares[symbol] = held - cand.Shares
		*cash = cash.Add(quote.Price.Mul(qty))
	case Buy:
		cost := quote.Price.Mul(qty)
		if cost.GreaterThan(*cash) {
			v.Status, v.Reason = Rejected, ReasonInsufficientCash
			v.Detail = fmt.Sprintf("cost $%s at verified price exceeds available cash $%s",
				cost.StringFixed(2), cash.StringFixed(2))
			return v
		}
		*cash = cash.Sub(cost)
		shares[symbol] += cand.Shares
	}

	v.Status, v.Reason = Accepted, ReasonOK
	v.Detail = fmt.Sprintf("executes at verified price $%s", quote.Price.StringFixed(2))
	return v
}
