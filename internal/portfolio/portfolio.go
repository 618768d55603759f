package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/trade"
)

var one = decimal.NewFromInt(1)

// Holding is one position, keyed by symbol in State.Holdings. BuyPrice
// is the cost basis of the original lot and is kept unchanged when
// later buys add shares.
type Holding struct {
	Shares   int64           `json:"shares"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	StopLoss decimal.Decimal `json:"stop_loss"`
}

// State is the portfolio: cash plus holdings. A symbol whose share
// count reaches zero is removed from the map, never kept at zero.
type State struct {
	Cash     decimal.Decimal    `json:"cash_balance"`
	Holdings map[string]Holding `json:"holdings"`
}

// NewState returns an empty portfolio with the given cash balance.
func NewState(cash decimal.Decimal) *State {
	return &State{Cash: cash, Holdings: make(map[string]Holding)}
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	out := &State{Cash: s.Cash, Holdings: make(map[string]Holding, len(s.Holdings))}
	for sym, h := range s.Holdings {
		out.Holdings[sym] = h
	}
	return out
}

// ShareCounts returns the per-symbol share balances, the snapshot the
// trade validator consumes.
func (s *State) ShareCounts() map[string]int64 {
	counts := make(map[string]int64, len(s.Holdings))
	for sym, h := range s.Holdings {
		counts[sym] = h.Shares
	}
	return counts
}

// CostBasis returns shares × buy price for a symbol, zero when the
// symbol is not held.
func (s *State) CostBasis(symbol string) decimal.Decimal {
	h, ok := s.Holdings[symbol]
	if !ok {
		return decimal.Zero
	}
	return h.BuyPrice.Mul(decimal.NewFromInt(h.Shares))
}

// TotalEquity returns cash plus the cost-basis value of every holding.
func (s *State) TotalEquity() decimal.Decimal {
	total := s.Cash
	for sym := range s.Holdings {
		total = total.Add(s.CostBasis(sym))
	}
	return total
}

// Apply executes every accepted verdict, in verdict order, at the
// verified price. Rejected verdicts are skipped. The state is only
// updated when the whole batch applies cleanly: an accepted verdict
// that cannot be executed (no verified price, short shares, short
// cash) means the validator and this transition disagree, and Apply
// returns an error with the state untouched so the caller can abort
// without persisting.
//
// stopLossPercent is the fallback stop distance for new positions
// whose candidate carried no usable stop (e.g. 0.15 places the stop
// 15% under the verified entry price).
func (s *State) Apply(verdicts []trade.TradeVerdict, stopLossPercent float64) error {
	next := s.Clone()

	for i, v := range verdicts {
		if !v.IsAccepted() {
			continue
		}
		if err := next.execute(v, stopLossPercent); err != nil {
			return fmt.Errorf("verdict %d (%s %d %s): %w",
				i, v.Candidate.Action, v.Candidate.Shares, v.Candidate.Symbol, err)
		}
	}

	s.Cash = next.Cash
	s.Holdings = next.Holdings
	return nil
}

func (s *State) execute(v trade.TradeVerdict, stopLossPercent float64) error {
	cand := v.Candidate
	if !v.HasVerifiedPrice || v.VerifiedPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("accepted without a verified price")
	}
	if cand.Shares <= 0 {
		return fmt.Errorf("accepted with non-positive share count %d", cand.Shares)
	}

	amount := v.VerifiedPrice.Mul(decimal.NewFromInt(cand.Shares))

	switch cand.Action {
	case trade.Sell:
		h, ok := s.Holdings[cand.Symbol]
		if !ok || h.Shares < cand.Shares {
			return fmt.Errorf("accepted sell of %d shares but only %d held", cand.Shares, h.Shares)
		}
		h.Shares -= cand.Shares
		if h.Shares == 0 {
			delete(s.Holdings, cand.Symbol)
		} else {
			s.Holdings[cand.Symbol] = h
		}
		s.Cash = s.Cash.Add(amount)

	case trade.Buy:
		if amount.GreaterThan(s.Cash) {
			return fmt.Errorf("accepted buy costing %s but only %s cash held",
				amount.StringFixed(2), s.Cash.StringFixed(2))
		}
		s.Cash = s.Cash.Sub(amount)
		if h, ok := s.Holdings[cand.Symbol]; ok {
			h.Shares += cand.Shares
			s.Holdings[cand.Symbol] = h
		} else {
			s.Holdings[cand.Symbol] = Holding{
				Shares:   cand.Shares,
				BuyPrice: v.VerifiedPrice,
				StopLoss: stopFor(cand, v.VerifiedPrice, stopLossPercent),
			}
		}

	default:
		return fmt.Errorf("accepted with unsupported action %q", cand.Action)
	}
	return nil
}

// stopFor picks the stop for a new position: the candidate's proposed
// stop when it sits below the entry price, otherwise the configured
// percentage under the verified price.
func stopFor(cand trade.TradeCandidate, price decimal.Decimal, stopLossPercent float64) decimal.Decimal {
	if cand.StopLoss.IsPositive() && cand.StopLoss.LessThan(price) {
		return cand.StopLoss
	}
	return price.Mul(one.Sub(decimal.NewFromFloat(stopLossPercent)))
}
