package advisor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/config"
	"github.com/microcaplab/tradegate/internal/portfolio"
	"github.com/microcaplab/tradegate/internal/verify"
)

// BuildPrompt renders the deep-research prompt: portfolio snapshot,
// the verified market data section, the trading rules, and the JSON
// response contract. Symbols are listed in sorted order so the same
// inputs always yield the same prompt.
func BuildPrompt(state *portfolio.State, dataset verify.VerifiedDataset, cfg *config.Config) string {
	var b strings.Builder

	b.WriteString("You are a professional-grade portfolio strategist managing a real-money micro-cap stock portfolio (market caps under $300M). ")
	b.WriteString("You control position sizing, risk management and stop-loss placement, subject to the rules below.\n\n")

	writePortfolioSection(&b, state)
	writeMarketDataSection(&b, dataset)
	writeRules(&b, dataset, cfg)
	writeResponseContract(&b, cfg)

	return b.String()
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func writePortfolioSection(b *strings.Builder, state *portfolio.State) {
	b.WriteString("=== CURRENT PORTFOLIO ===\n")
	fmt.Fprintf(b, "Cash balance: %s\n", money(state.Cash))
	fmt.Fprintf(b, "Total equity at cost: %s\n", money(state.TotalEquity()))

	if len(state.Holdings) == 0 {
		b.WriteString("Holdings: none\n\n")
		return
	}

	symbols := make([]string, 0, len(state.Holdings))
	for sym := range state.Holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	b.WriteString("Holdings:\n")
	for _, sym := range symbols {
		h := state.Holdings[sym]
		fmt.Fprintf(b, "  %s: %d shares, bought at %s, stop loss %s\n",
			sym, h.Shares, money(h.BuyPrice), money(h.StopLoss))
	}
	b.WriteString("\n")
}

func writeMarketDataSection(b *strings.Builder, dataset verify.VerifiedDataset) {
	b.WriteString("=== VERIFIED REAL-TIME MARKET DATA ===\n")

	if dataset.Empty() {
		b.WriteString("*** NO MARKET DATA COULD BE VERIFIED THIS CYCLE ***\n")
		b.WriteString("Every quote request failed. You must recommend NO TRADES: without a verified price any order would execute blind. ")
		b.WriteString("Explain the situation in the analysis field and return an empty trades list.\n")
		if failed := dataset.FailedList(); len(failed) > 0 {
			b.WriteString("Failed symbols:\n")
			for _, line := range failed {
				fmt.Fprintf(b, "  %s\n", line)
			}
		}
		b.WriteString("\n")
		return
	}

	b.WriteString("The prices below were fetched moments ago and independently verified. They are the only prices that exist for this session.\n\n")
	for _, sym := range dataset.Symbols() {
		q := dataset.Quotes[sym]
		fmt.Fprintf(b, "  %s: %s (%s%% today), volume %d", sym, money(q.Price), q.ChangePercent.StringFixed(2), q.Volume)
		if q.TradingDay != "" {
			fmt.Fprintf(b, ", trading day %s", q.TradingDay)
		}
		b.WriteString("\n")
	}

	if failed := dataset.FailedList(); len(failed) > 0 {
		b.WriteString("\nCOULD NOT VERIFY (DO NOT TRADE THESE):\n")
		for _, line := range failed {
			fmt.Fprintf(b, "  %s\n", line)
		}
	}
	b.WriteString("\n")
}

func writeRules(b *strings.Builder, dataset verify.VerifiedDataset, cfg *config.Config) {
	b.WriteString("=== TRADING RULES ===\n")
	if !dataset.Empty() {
		fmt.Fprintf(b, "1. Trade ONLY these verified symbols: %s.\n", strings.Join(dataset.Symbols(), ", "))
	} else {
		b.WriteString("1. No symbols are tradable this cycle.\n")
	}
	b.WriteString("2. Use ONLY the verified prices above. Never estimate, recall or extrapolate a price.\n")
	b.WriteString("3. Whole shares only. No margin: every buy must fit within the cash balance.\n")
	fmt.Fprintf(b, "4. Keep any single position under %.0f%% of total equity.\n", cfg.MaxPositionSizePercent*100)
	b.WriteString("5. Every buy carries a stop loss below its entry price.\n\n")
}

func writeResponseContract(b *strings.Builder, cfg *config.Config) {
	b.WriteString("=== RESPONSE FORMAT ===\n")
	b.WriteString("Respond with one JSON object and nothing else:\n")
	b.WriteString(`{
  "analysis": "your assessment of the portfolio and the verified data",
  "trades": [
    {"action": "buy", "ticker": "ABCD", "shares": 10, "price": 4.20, "stop_loss": 3.57, "reason": "entry rationale"}
  ],
  "confidence": 0.85,
  "price_disclaimer": "confirm every price you used comes from the verified data",
  "thesis_summary": "one-paragraph portfolio thesis"
}
`)
	fmt.Fprintf(b, "\n\"action\" is \"buy\" or \"sell\"; \"hold\" entries are ignored. \"confidence\" is your conviction from 0.0 to 1.0; trades execute only at or above %.2f. An empty trades list is always acceptable.\n", cfg.MinConfidenceThreshold)
}
