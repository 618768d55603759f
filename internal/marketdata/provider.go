package marketdata

import (
	"context"
	"fmt"
)

// Provider fetches quotes for a batch of ticker symbols. The result
// carries one RawQuote per requested symbol; per-symbol failures ride
// inside the entry's Err so one bad symbol never hides the rest. The
// returned error is reserved for the batch failing as a whole.
type Provider interface {
	Name() string
	FetchQuotes(ctx context.Context, symbols []string) (map[string]RawQuote, error)
}

// HistoryProvider is implemented by providers that can serve daily
// OHLCV history, most recent day first.
type HistoryProvider interface {
	DailyHistory(ctx context.Context, symbol string, days int) ([]DailyBar, error)
}

// ProfileProvider is implemented by providers that can serve company
// fundamentals.
type ProfileProvider interface {
	CompanyOverview(ctx context.Context, symbol string) (*CompanyProfile, error)
}

// NewProvider selects the configured provider: Alpha Vantage when a
// key is present, otherwise the keyless Yahoo fallback. A provider of
// "none" returns ErrNoProvider, which the pipeline treats as an empty
// dataset rather than a failure.
func NewProvider(cfg *Config) (Provider, error) {
	switch cfg.MarketDataProvider {
	case "", "auto":
		if cfg.AlphaVantageAPIKey != "" {
			return NewAlphaVantageClient(cfg), nil
		}
		return NewYahooClient(cfg), nil
	case "alphavantage":
		if cfg.AlphaVantageAPIKey == "" {
			return nil, fmt.Errorf("alpha vantage provider selected but no API key configured")
		}
		return NewAlphaVantageClient(cfg), nil
	case "yahoo":
		return NewYahooClient(cfg), nil
	case "none":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown market data provider: %s", cfg.MarketDataProvider)
	}
}
