// Package report renders run output for the terminal: the verified
// dataset, the recommendation, per-candidate verdicts and portfolio
// changes. Everything returns a string so callers decide where it
// goes.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/advisor"
	"github.com/microcaplab/tradegate/internal/marketdata"
	"github.com/microcaplab/tradegate/internal/portfolio"
	"github.com/microcaplab/tradegate/internal/storage/sqlite"
	"github.com/microcaplab/tradegate/internal/trade"
	"github.com/microcaplab/tradegate/internal/verify"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(80)

	acceptedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	rejectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func signedPercent(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2) + "%"
	}
	return "+" + d.StringFixed(2) + "%"
}

// RenderBanner renders the run header, flagging dry runs loudly.
func RenderBanner(mode string, model string) string {
	header := fmt.Sprintf("🏦 tradegate — %s", mode)
	if model != "" {
		header += " — " + model
	}
	if mode == sqlite.ModeDryRun {
		return titleStyle.Render(header) + "\n" + warnStyle.Render("DRY RUN: nothing will be persisted")
	}
	return titleStyle.Render(header)
}

// RenderDataset renders the verified-data summary: per-symbol verified
// prices and every failed symbol with its reason.
func RenderDataset(dataset verify.VerifiedDataset) string {
	var content strings.Builder

	fmt.Fprintf(&content, "📊 Market Data — %d verified, %d failed\n",
		len(dataset.Quotes), len(dataset.FailedSymbols))

	if dataset.Empty() {
		content.WriteString("\n" + rejectedStyle.Render("No symbol could be verified this cycle."))
	}
	for _, sym := range dataset.Symbols() {
		q := dataset.Quotes[sym]
		line := fmt.Sprintf("  %-6s %10s  (%s)  vol %d", sym, money(q.Price), signedPercent(q.ChangePercent), q.Volume)
		if q.TradingDay != "" {
			line += "  " + q.TradingDay
		}
		content.WriteString("\n" + line)
	}

	if failed := dataset.FailedList(); len(failed) > 0 {
		content.WriteString("\n" + mutedStyle.Render("Could not verify:"))
		for _, line := range failed {
			content.WriteString("\n" + mutedStyle.Render("  "+line))
		}
	}

	return panelStyle.Render(content.String())
}

// RenderRecommendation shows the analysis, the confidence against the
// execution gate, and the thesis.
func RenderRecommendation(rec *advisor.Recommendation, minConfidence float64) string {
	var content strings.Builder

	content.WriteString("🧠 Recommendation\n")
	if rec.Analysis != "" {
		fmt.Fprintf(&content, "\n%s\n", rec.Analysis)
	}

	confLine := fmt.Sprintf("Confidence: %.2f (minimum %.2f)", rec.Confidence, minConfidence)
	if rec.Confidence < minConfidence {
		content.WriteString("\n" + warnStyle.Render(confLine+" — below the gate, trades will NOT execute"))
	} else {
		content.WriteString("\n" + acceptedStyle.Render(confLine))
	}

	if rec.ThesisSummary != "" {
		content.WriteString("\n\nThesis: " + rec.ThesisSummary)
	}
	if rec.PriceDisclaimer != "" {
		content.WriteString("\n" + mutedStyle.Render(rec.PriceDisclaimer))
	}
	if len(rec.Trades) == 0 {
		content.WriteString("\n\nNo trades proposed.")
	}

	return panelStyle.Render(content.String())
}

// RenderVerdicts renders one line per verdict. A rejected candidate
// always shows its symbol, claimed price, verified price when one
// existed, and the reason code.
func RenderVerdicts(verdicts []trade.TradeVerdict) string {
	var content strings.Builder
	content.WriteString("⚖️  Trade Verdicts\n")

	if len(verdicts) == 0 {
		content.WriteString("\nNo candidates to validate.")
		return panelStyle.Render(content.String())
	}

	for _, v := range verdicts {
		cand := v.Candidate
		head := fmt.Sprintf("%s %d %s @ %s", cand.Action, cand.Shares, cand.Symbol, money(cand.ClaimedPrice))
		if v.IsAccepted() {
			fmt.Fprintf(&content, "\n%s %s — %s",
				acceptedStyle.Render("✅ ACCEPTED"), head, v.Detail)
			continue
		}
		line := fmt.Sprintf("\n%s %s — [%s] %s",
			rejectedStyle.Render("❌ REJECTED"), head, v.Reason, v.Detail)
		if v.HasVerifiedPrice && v.Reason != trade.ReasonPriceMismatch {
			line += fmt.Sprintf(" (verified %s)", money(v.VerifiedPrice))
		}
		content.WriteString(line)
	}

	return panelStyle.Render(content.String())
}

// RenderDelta shows cash and per-symbol share movements between two
// states.
func RenderDelta(before, after *portfolio.State) string {
	var content strings.Builder
	content.WriteString("💰 Portfolio Changes\n")

	changed := false
	if !before.Cash.Equal(after.Cash) {
		fmt.Fprintf(&content, "\n  Cash: %s → %s", money(before.Cash), money(after.Cash))
		changed = true
	}

	symbols := make(map[string]struct{}, len(before.Holdings)+len(after.Holdings))
	for sym := range before.Holdings {
		symbols[sym] = struct{}{}
	}
	for sym := range after.Holdings {
		symbols[sym] = struct{}{}
	}
	ordered := make([]string, 0, len(symbols))
	for sym := range symbols {
		ordered = append(ordered, sym)
	}
	sort.Strings(ordered)

	for _, sym := range ordered {
		oldShares := before.Holdings[sym].Shares
		newShares := after.Holdings[sym].Shares
		if oldShares == newShares {
			continue
		}
		fmt.Fprintf(&content, "\n  %s: %d → %d shares", sym, oldShares, newShares)
		changed = true
	}

	if !changed {
		content.WriteString("\n  No changes.")
	}
	return panelStyle.Render(content.String())
}

// RenderPortfolio renders the holdings table with per-position value
// and share of total equity, plus the cash and equity lines.
func RenderPortfolio(state *portfolio.State) string {
	var content strings.Builder
	content.WriteString("📁 Portfolio\n")

	total := state.TotalEquity()

	symbols := make([]string, 0, len(state.Holdings))
	for sym := range state.Holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	if len(symbols) > 0 {
		fmt.Fprintf(&content, "\n  %-6s %8s %12s %12s %12s %8s",
			"SYMBOL", "SHARES", "BUY PRICE", "STOP LOSS", "VALUE", "WEIGHT")
		for _, sym := range symbols {
			h := state.Holdings[sym]
			value := state.CostBasis(sym)
			weight := "0.0%"
			if total.IsPositive() {
				weight = value.Div(total).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
			}
			fmt.Fprintf(&content, "\n  %-6s %8d %12s %12s %12s %8s",
				sym, h.Shares, money(h.BuyPrice), money(h.StopLoss), money(value), weight)
		}
		content.WriteString("\n")
	} else {
		content.WriteString("\n  No holdings.\n")
	}

	fmt.Fprintf(&content, "\n  Cash:         %s", money(state.Cash))
	fmt.Fprintf(&content, "\n  Total equity: %s", money(total))

	return panelStyle.Render(content.String())
}

// RenderProfile renders company fundamentals.
func RenderProfile(p *marketdata.CompanyProfile) string {
	var content strings.Builder
	fmt.Fprintf(&content, "🏢 %s", p.Symbol)
	if p.Sector != "" {
		fmt.Fprintf(&content, "\n  Sector:     %s", p.Sector)
	}
	if p.Industry != "" {
		fmt.Fprintf(&content, "\n  Industry:   %s", p.Industry)
	}
	if p.MarketCap != "" {
		fmt.Fprintf(&content, "\n  Market cap: $%s", p.MarketCap)
	}
	if p.PERatio != "" {
		fmt.Fprintf(&content, "\n  P/E ratio:  %s", p.PERatio)
	}
	if p.Description != "" {
		content.WriteString("\n\n" + mutedStyle.Render(p.Description))
	}
	return panelStyle.Render(content.String())
}

// RenderBars renders daily history, newest day first.
func RenderBars(symbol string, bars []marketdata.DailyBar) string {
	var content strings.Builder
	fmt.Fprintf(&content, "📈 %s — %d trading days\n", symbol, len(bars))
	fmt.Fprintf(&content, "\n  %-12s %9s %9s %9s %9s %12s", "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
	for _, b := range bars {
		fmt.Fprintf(&content, "\n  %-12s %9s %9s %9s %9s %12d",
			b.Date.Format("2006-01-02"),
			b.Open.StringFixed(2), b.High.StringFixed(2),
			b.Low.StringFixed(2), b.Close.StringFixed(2), b.Volume)
	}
	return panelStyle.Render(content.String())
}

// RenderHistory lists journaled runs newest-first.
func RenderHistory(runs []sqlite.RunWithMeta) string {
	var content strings.Builder
	content.WriteString("🗂  Run History\n")

	if len(runs) == 0 {
		content.WriteString("\nNo runs recorded yet.")
		return panelStyle.Render(content.String())
	}

	for _, run := range runs {
		fmt.Fprintf(&content, "\n  %s  %s  %-7s conf %.2f  cash $%s → $%s  %d verified / %d failed",
			run.StartedAt, run.ID, run.Mode, run.Confidence,
			run.CashBefore, run.CashAfter,
			len(run.SymbolsVerified), len(run.SymbolsFailed))
	}
	return panelStyle.Render(content.String())
}

// RenderRunDetail renders one journaled run with its verdicts.
func RenderRunDetail(run *sqlite.RunWithMeta, verdicts []sqlite.VerdictRow) string {
	var content strings.Builder

	fmt.Fprintf(&content, "🗂  Run %s\n", run.ID)
	fmt.Fprintf(&content, "\n  Started:   %s", run.StartedAt)
	fmt.Fprintf(&content, "\n  Mode:      %s", run.Mode)
	if run.Model != "" {
		fmt.Fprintf(&content, "\n  Model:     %s", run.Model)
	}
	fmt.Fprintf(&content, "\n  Requested: %s", strings.Join(run.SymbolsRequested, ", "))
	fmt.Fprintf(&content, "\n  Verified:  %s", strings.Join(run.SymbolsVerified, ", "))
	if len(run.SymbolsFailed) > 0 {
		fmt.Fprintf(&content, "\n  Failed:    %s", strings.Join(run.SymbolsFailed, ", "))
	}
	fmt.Fprintf(&content, "\n  Cash:      $%s → $%s", run.CashBefore, run.CashAfter)
	fmt.Fprintf(&content, "\n  Confidence: %.2f", run.Confidence)

	if len(verdicts) > 0 {
		content.WriteString("\n")
		for _, v := range verdicts {
			mark := "❌"
			if v.Status == string(trade.Accepted) {
				mark = "✅"
			}
			line := fmt.Sprintf("\n  %s %s %d %s @ $%s", mark, v.Action, v.Shares, v.Symbol, v.ClaimedPrice)
			if v.Status != string(trade.Accepted) {
				line += fmt.Sprintf(" [%s]", v.Reason)
			}
			if v.Executed {
				line += " (executed)"
			}
			content.WriteString(line)
		}
	}
	return panelStyle.Render(content.String())
}
