package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/marketdata"
	"github.com/microcaplab/tradegate/internal/trade"
)

// llmResponse mirrors the JSON contract the prompt asks for. Trades
// use the wire field names the reasoning engine replies with, not the
// internal candidate shape.
type llmResponse struct {
	Analysis        string     `json:"analysis"`
	Trades          []llmTrade `json:"trades"`
	Confidence      float64    `json:"confidence"`
	PriceDisclaimer string     `json:"price_disclaimer"`
	ThesisSummary   string     `json:"thesis_summary"`
}

type llmTrade struct {
	Action   string          `json:"action"`
	Ticker   string          `json:"ticker"`
	Shares   float64         `json:"shares"`
	Price    decimal.Decimal `json:"price"`
	StopLoss decimal.Decimal `json:"stop_loss"`
	Reason   string          `json:"reason"`
}

// ExtractJSON pulls the braced JSON object out of raw model output,
// tolerating surrounding prose and code fences: everything from the
// first "{" to the last "}".
func ExtractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in model response")
	}
	return raw[start : end+1], nil
}

// ParseRecommendation extracts and decodes the model response. Trade
// entries are filtered, not fatal: hold entries, unknown actions and
// structurally invalid trades (non-positive shares or price) are
// dropped with a log line. Only a response with no decodable JSON at
// all is an error.
func ParseRecommendation(raw string, logger zerolog.Logger) (*Recommendation, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	rec := &Recommendation{
		Analysis:        resp.Analysis,
		Confidence:      resp.Confidence,
		PriceDisclaimer: resp.PriceDisclaimer,
		ThesisSummary:   resp.ThesisSummary,
	}

	for _, t := range resp.Trades {
		symbol := marketdata.NormalizeSymbol(t.Ticker)

		if strings.EqualFold(strings.TrimSpace(t.Action), "hold") {
			logger.Info().Str("symbol", symbol).Msg("dropping hold entry")
			continue
		}
		action, err := trade.ParseAction(t.Action)
		if err != nil {
			logger.Warn().Str("symbol", symbol).Str("action", t.Action).Msg("dropping trade with unknown action")
			continue
		}

		shares := int64(t.Shares)
		if shares <= 0 || !t.Price.IsPositive() {
			logger.Warn().
				Str("symbol", symbol).
				Int64("shares", shares).
				Str("price", t.Price.String()).
				Msg("dropping trade with non-positive shares or price")
			continue
		}

		rec.Trades = append(rec.Trades, trade.TradeCandidate{
			Action:       action,
			Symbol:       symbol,
			Shares:       shares,
			ClaimedPrice: t.Price,
			StopLoss:     t.StopLoss,
			Rationale:    t.Reason,
		})
	}

	return rec, nil
}
