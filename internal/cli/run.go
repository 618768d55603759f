package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/advisor"
	"github.com/microcaplab/tradegate/internal/config"
	"github.com/microcaplab/tradegate/internal/marketdata"
	"github.com/microcaplab/tradegate/internal/portfolio"
	"github.com/microcaplab/tradegate/internal/report"
	"github.com/microcaplab/tradegate/internal/storage/sqlite"
	"github.com/microcaplab/tradegate/internal/trade"
	"github.com/microcaplab/tradegate/internal/verify"
)

// runCycle executes one full advisory cycle: fetch and verify market
// data, ask the advisor for a recommendation, validate every proposed
// trade, then execute the accepted ones at their verified prices. A
// dry run takes no lock and persists nothing.
func runCycle(ctx context.Context, cfg *config.Config, args []string, dryRun, yes bool) error {
	logger := log.With().Str("component", "run").Logger()

	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}

	state, err := portfolio.Load(cfg.PortfolioFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no portfolio at %s; run 'tradegate portfolio init' first", cfg.PortfolioFile)
		}
		return err
	}

	mode := sqlite.ModeLive
	if dryRun {
		mode = sqlite.ModeDryRun
	} else {
		lock, err := portfolio.AcquireRunLock(cfg.PortfolioFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn().Err(err).Msg("releasing run lock failed")
			}
		}()
	}

	fmt.Println(report.RenderBanner(mode, cfg.Model))

	symbols := cfg.ResearchSymbols
	if len(args) > 0 {
		symbols = args
	}
	dataset, _, err := fetchDataset(ctx, cfg, symbols, logger)
	if err != nil {
		return err
	}
	fmt.Println(report.RenderDataset(dataset))

	source, err := advisor.NewLLMAdvisor(ctx, cfg)
	if err != nil {
		return err
	}
	rec, err := source.Propose(ctx, state, dataset)
	if err != nil {
		return err
	}
	fmt.Println(report.RenderRecommendation(rec, cfg.MinConfidenceThreshold))

	runID := uuid.New().String()
	before := state.Clone()
	summary := runSummary{
		id:         runID,
		mode:       mode,
		model:      source.ModelName(),
		requested:  symbols,
		dataset:    dataset,
		confidence: rec.Confidence,
		cashBefore: before.Cash,
		cashAfter:  before.Cash,
	}

	// Low confidence halts the cycle before validation: the analysis is
	// reported and journaled, the trades never reach the validator.
	if rec.Confidence < cfg.MinConfidenceThreshold {
		DisplayWarning(fmt.Sprintf("Confidence %.2f is below the %.2f minimum; no trades this cycle.",
			rec.Confidence, cfg.MinConfidenceThreshold))
		writeJournal(ctx, cfg, summary, logger)
		return nil
	}

	verdicts := trade.NewValidator(cfg.PriceTolerancePercent, state.Cash, state.ShareCounts()).
		Validate(dataset, rec.Trades)
	fmt.Println(report.RenderVerdicts(verdicts))
	summary.verdicts = verdicts

	accepted := 0
	for _, v := range verdicts {
		if v.IsAccepted() {
			accepted++
		}
	}

	after := state
	switch {
	case accepted == 0:
		DisplayInfo("No accepted trades this cycle.")
	case dryRun:
		preview := state.Clone()
		if err := preview.Apply(verdicts, cfg.DefaultStopLossPercent); err != nil {
			return fmt.Errorf("portfolio transition failed: %w", err)
		}
		after = preview
	default:
		if !yes {
			ok, err := ConfirmExecution(accepted)
			if err != nil {
				return err
			}
			if !ok {
				DisplayInfo("Execution declined; nothing persisted.")
				writeJournal(ctx, cfg, summary, logger)
				return nil
			}
		}
		if err := state.Apply(verdicts, cfg.DefaultStopLossPercent); err != nil {
			return fmt.Errorf("portfolio transition failed, nothing persisted: %w", err)
		}
		if err := portfolio.Save(cfg.PortfolioFile, state); err != nil {
			return fmt.Errorf("persist portfolio: %w", err)
		}
		summary.executed = true
		after = state
	}
	summary.cashAfter = after.Cash

	fmt.Println(report.RenderDelta(before, after))
	fmt.Println(report.RenderPortfolio(after))

	writeJournal(ctx, cfg, summary, logger)

	switch {
	case dryRun:
		DisplayInfo(fmt.Sprintf("Dry run %s complete; nothing was persisted.", runID))
	case summary.executed:
		DisplaySuccess(fmt.Sprintf("Run %s complete: %d trade(s) executed.", runID, accepted))
	default:
		DisplaySuccess(fmt.Sprintf("Run %s complete: no trades executed.", runID))
	}
	return nil
}

// fetchDataset prepares the symbol batch, fetches raw quotes, and
// verifies them. A missing provider is not an error: everything lands
// in FailedSymbols and the advisor sees an empty dataset. The returned
// provider is nil in that case.
func fetchDataset(ctx context.Context, cfg *config.Config, symbols []string, logger zerolog.Logger) (verify.VerifiedDataset, marketdata.Provider, error) {
	batch, dropped := marketdata.PrepareBatch(symbols, cfg.MaxSymbolsPerBatch)
	for sym, reason := range dropped {
		logger.Warn().Str("symbol", sym).Str("reason", reason).Msg("symbol dropped from batch")
	}

	provider, err := marketdata.NewProvider(cfg)
	if err != nil {
		if !errors.Is(err, marketdata.ErrNoProvider) {
			return verify.VerifiedDataset{}, nil, err
		}
		logger.Warn().Msg("no market data provider configured; nothing can be verified")
		dataset := verify.VerifiedDataset{
			Quotes:        map[string]marketdata.Quote{},
			FailedSymbols: map[string]string{},
			FetchedAt:     time.Now(),
		}
		for _, sym := range batch {
			dataset.FailedSymbols[sym] = "no market data provider configured"
		}
		mergeDropped(dataset, dropped)
		return dataset, nil, nil
	}

	logger.Info().Str("provider", provider.Name()).Int("symbols", len(batch)).Msg("fetching quotes")
	raw, err := provider.FetchQuotes(ctx, batch)
	if err != nil {
		return verify.VerifiedDataset{}, nil, fmt.Errorf("fetch quotes: %w", err)
	}

	dataset := verify.NewValidator(cfg.MaxQuoteAge).Validate(batch, raw)
	mergeDropped(dataset, dropped)
	return dataset, provider, nil
}

// mergeDropped folds batch-preparation rejects into the failed set so
// the report and journal account for every requested symbol. Verified
// symbols are never overwritten.
func mergeDropped(dataset verify.VerifiedDataset, dropped map[string]string) {
	for sym, reason := range dropped {
		if _, ok := dataset.Quotes[sym]; ok {
			continue
		}
		dataset.FailedSymbols[sym] = reason
	}
}

// runQuoteCommand fetches and verifies quotes without invoking the
// advisor, optionally adding history and fundamentals per symbol.
func runQuoteCommand(ctx context.Context, cfg *config.Config, args []string, historyDays int, profile bool) error {
	logger := log.With().Str("component", "quote").Logger()

	symbols := cfg.ResearchSymbols
	if len(args) > 0 {
		symbols = args
	}

	dataset, provider, err := fetchDataset(ctx, cfg, symbols, logger)
	if err != nil {
		return err
	}
	fmt.Println(report.RenderDataset(dataset))

	if !profile && historyDays <= 0 {
		return nil
	}
	if provider == nil {
		return marketdata.ErrNoProvider
	}

	profiles, hasProfiles := provider.(marketdata.ProfileProvider)
	history, hasHistory := provider.(marketdata.HistoryProvider)
	if profile && !hasProfiles {
		DisplayWarning(fmt.Sprintf("%s does not serve company fundamentals", provider.Name()))
	}
	if historyDays > 0 && !hasHistory {
		DisplayWarning(fmt.Sprintf("%s does not serve daily history", provider.Name()))
	}

	for _, sym := range dataset.Symbols() {
		if profile && hasProfiles {
			prof, err := profiles.CompanyOverview(ctx, sym)
			if err != nil {
				logger.Warn().Str("symbol", sym).Err(err).Msg("profile fetch failed")
			} else {
				fmt.Println(report.RenderProfile(prof))
			}
		}
		if historyDays > 0 && hasHistory {
			bars, err := history.DailyHistory(ctx, sym, historyDays)
			if err != nil {
				logger.Warn().Str("symbol", sym).Err(err).Msg("history fetch failed")
			} else {
				fmt.Println(report.RenderBars(sym, bars))
			}
		}
	}
	return nil
}

// runSummary carries everything the journal needs about one cycle.
type runSummary struct {
	id         string
	mode       string
	model      string
	requested  []string
	dataset    verify.VerifiedDataset
	confidence float64
	cashBefore decimal.Decimal
	cashAfter  decimal.Decimal
	verdicts   []trade.TradeVerdict
	executed   bool
}

// writeJournal records the run. Journal problems are logged, never
// fatal: a completed cycle must not fail because bookkeeping did.
func writeJournal(ctx context.Context, cfg *config.Config, sum runSummary, logger zerolog.Logger) {
	journal, err := sqlite.Open(cfg.JournalFile)
	if err != nil {
		logger.Warn().Err(err).Msg("journal unavailable; run not recorded")
		return
	}
	defer journal.Close()

	record := sqlite.RunRecord{
		ID:               sum.id,
		Mode:             sum.mode,
		Model:            sum.model,
		SymbolsRequested: normalizedRequest(sum.requested),
		SymbolsVerified:  sum.dataset.Symbols(),
		SymbolsFailed:    failedSymbols(sum.dataset),
		Confidence:       sum.confidence,
		CashBefore:       sum.cashBefore.String(),
		CashAfter:        sum.cashAfter.String(),
	}
	if err := journal.RecordRun(ctx, record, sum.verdicts, sum.executed); err != nil {
		logger.Warn().Err(err).Str("run_id", sum.id).Msg("journal write failed")
	}
}

func normalizedRequest(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := marketdata.NormalizeSymbol(s)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

func failedSymbols(dataset verify.VerifiedDataset) []string {
	out := make([]string, 0, len(dataset.FailedSymbols))
	for sym := range dataset.FailedSymbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
