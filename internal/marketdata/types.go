package marketdata

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/config"
)

// Config is an alias for the main application config
type Config = config.Config

// ErrNoProvider is returned when no market data provider is configured.
var ErrNoProvider = errors.New("no market data provider configured")

// Quote is one verified price point for a symbol. Quotes are immutable:
// a fresher fetch produces a new value, existing ones are never mutated.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	FetchedAt     time.Time       `json:"fetched_at"`
	TradingDay    string          `json:"trading_day,omitempty"`
}

// RawQuote is a provider response for one symbol before validation.
// Numeric fields stay provider-typed (strings) until validation parses
// them; Err is set when the provider could not produce a payload. A
// missing or failed response is never coerced into a zero-valued quote.
type RawQuote struct {
	Symbol        string    `json:"symbol"`
	Price         string    `json:"price"`
	Change        string    `json:"change"`
	ChangePercent string    `json:"change_percent"`
	Volume        string    `json:"volume"`
	TradingDay    string    `json:"trading_day"`
	FetchedAt     time.Time `json:"fetched_at"`
	Err           error     `json:"-"`
}

// CompanyProfile holds company fundamentals for research display.
// Never used in decision logic.
type CompanyProfile struct {
	Symbol      string `json:"symbol"`
	MarketCap   string `json:"market_cap"`
	PERatio     string `json:"pe_ratio"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
}

// DailyBar is one day of OHLCV history.
type DailyBar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// ProviderError describes a per-symbol provider failure. Transient
// failures (timeouts, rate limits) are retried; permanent ones
// (unknown symbol, malformed payload) fail immediately.
type ProviderError struct {
	Provider  string
	Symbol    string
	Message   string
	Transient bool
}

func (e *ProviderError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Symbol, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsTransient reports whether err is a provider failure worth retrying.
// Transport-level errors without a ProviderError classification count
// as transient.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return err != nil
}
