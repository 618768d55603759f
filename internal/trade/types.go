package trade

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is the side of a proposed trade.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// ParseAction parses a proposer's action string case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return "", fmt.Errorf("unsupported action %q", s)
	}
}

// Status is the outcome of validating one candidate.
type Status string

const (
	Accepted Status = "ACCEPTED"
	Rejected Status = "REJECTED"
)

// Reason is the enumerated reason code attached to every verdict.
type Reason string

const (
	ReasonOK                 Reason = "OK"
	ReasonUnverifiedSymbol   Reason = "UNVERIFIED_SYMBOL"
	ReasonPriceMismatch      Reason = "PRICE_MISMATCH"
	ReasonInsufficientShares Reason = "INSUFFICIENT_SHARES"
	ReasonInsufficientCash   Reason = "INSUFFICIENT_CASH"
	ReasonNoVerifiedData     Reason = "NO_VERIFIED_DATA"
)

// TradeCandidate is a proposal from the reasoning engine, not yet
// trusted. Rationale is for audit output only and never feeds
// decision logic.
type TradeCandidate struct {
	Action       Action          `json:"action"`
	Symbol       string          `json:"symbol"`
	Shares       int64           `json:"shares"`
	ClaimedPrice decimal.Decimal `json:"claimed_price"`
	StopLoss     decimal.Decimal `json:"stop_loss"`
	Rationale    string          `json:"rationale"`
}

// TradeVerdict is the result of validating one candidate. Detail is
// human-readable; for a price mismatch it carries both the claimed and
// the verified price. VerifiedPrice is only meaningful when
// HasVerifiedPrice is set — execution always uses it, never the
// proposer's claimed price.
type TradeVerdict struct {
	Candidate        TradeCandidate  `json:"candidate"`
	Status           Status          `json:"status"`
	Reason           Reason          `json:"reason"`
	Detail           string          `json:"detail"`
	VerifiedPrice    decimal.Decimal `json:"verified_price"`
	HasVerifiedPrice bool            `json:"has_verified_price"`
}

// IsAccepted reports whether the verdict clears the candidate for
// execution.
func (v TradeVerdict) IsAccepted() bool { return v.Status == Accepted }
