package advisor

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/trade"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, false},
		{"code fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"prose around", `Here you go: {"a": 1}. Let me know!`, `{"a": 1}`, false},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, false},
		{"no json", "I cannot produce a recommendation today.", "", true},
		{"only open brace", "{", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseRecommendation(t *testing.T) {
	raw := "Sure, here is my assessment:\n```json\n" + `{
  "analysis": "micro caps look oversold",
  "trades": [
    {"action": "BUY", "ticker": "abcd", "shares": 10, "price": 4.20, "stop_loss": 3.57, "reason": "momentum"},
    {"action": "Sell", "ticker": "WXYZ", "shares": 5.0, "price": 2.00, "stop_loss": 0, "reason": "exit"},
    {"action": "hold", "ticker": "KEEP", "shares": 0, "price": 0, "stop_loss": 0, "reason": "wait"},
    {"action": "short", "ticker": "NOPE", "shares": 3, "price": 1.00, "stop_loss": 0, "reason": "unsupported"},
    {"action": "buy", "ticker": "ZERO", "shares": 0, "price": 1.00, "stop_loss": 0, "reason": "no shares"}
  ],
  "confidence": 0.85,
  "price_disclaimer": "all prices from verified data",
  "thesis_summary": "stay concentrated"
}` + "\n```"

	rec, err := ParseRecommendation(raw, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseRecommendation: %v", err)
	}

	if rec.Analysis != "micro caps look oversold" || rec.Confidence != 0.85 {
		t.Errorf("envelope fields wrong: %q / %v", rec.Analysis, rec.Confidence)
	}
	if rec.ThesisSummary != "stay concentrated" || rec.PriceDisclaimer == "" {
		t.Errorf("envelope fields wrong: %q / %q", rec.ThesisSummary, rec.PriceDisclaimer)
	}

	// hold, unknown action and zero-share entries are dropped.
	if len(rec.Trades) != 2 {
		t.Fatalf("expected 2 surviving trades, got %d: %+v", len(rec.Trades), rec.Trades)
	}

	buy := rec.Trades[0]
	if buy.Action != trade.Buy || buy.Symbol != "ABCD" || buy.Shares != 10 {
		t.Errorf("buy parsed wrong: %+v", buy)
	}
	if !buy.ClaimedPrice.Equal(decimal.RequireFromString("4.20")) {
		t.Errorf("claimed price = %s, want 4.20", buy.ClaimedPrice)
	}
	if !buy.StopLoss.Equal(decimal.RequireFromString("3.57")) {
		t.Errorf("stop loss = %s, want 3.57", buy.StopLoss)
	}

	sell := rec.Trades[1]
	if sell.Action != trade.Sell || sell.Symbol != "WXYZ" || sell.Shares != 5 {
		t.Errorf("sell parsed wrong: %+v", sell)
	}
}

func TestParseRecommendationNoJSON(t *testing.T) {
	_, err := ParseRecommendation("no structured output at all", zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for response without JSON")
	}
}

func TestParseRecommendationBrokenJSON(t *testing.T) {
	_, err := ParseRecommendation(`{"analysis": "unterminated`+"}", zerolog.Nop())
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRecommendationEmptyTrades(t *testing.T) {
	rec, err := ParseRecommendation(`{"analysis": "sit tight", "trades": [], "confidence": 0.9}`, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseRecommendation: %v", err)
	}
	if len(rec.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(rec.Trades))
	}
}
