package marketdata

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// YahooClient is the keyless fallback provider, used when no Alpha
// Vantage key is configured. Numbers are formatted back into the
// string-typed RawQuote so downstream validation has a single path
// regardless of provider.
type YahooClient struct {
	cache *CacheManager
	retry *RetryConfig
	log   zerolog.Logger
}

// NewYahooClient creates a Yahoo Finance fallback client
func NewYahooClient(cfg *Config) *YahooClient {
	cache := NewCacheManager(filepath.Join(cfg.CacheDir, "yahoo"), cfg.CacheTTL, cfg.CacheEnabled)

	return &YahooClient{
		cache: cache,
		retry: DefaultRetryConfig(),
		log:   log.With().Str("component", "yahoo").Logger(),
	}
}

// Name identifies the provider in logs and failure reasons
func (yf *YahooClient) Name() string { return "yahoo" }

// FetchQuotes fetches one quote per symbol. Symbols are processed
// independently; failures land in the entry's Err.
func (yf *YahooClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]RawQuote, error) {
	results := make(map[string]RawQuote, len(symbols))
	for _, s := range symbols {
		symbol := NormalizeSymbol(s)
		if err := ValidateSymbol(symbol); err != nil {
			results[symbol] = RawQuote{Symbol: symbol, Err: err}
			continue
		}

		var cached RawQuote
		if yf.cache.Get("quote", symbol, &cached) {
			yf.log.Debug().Str("symbol", symbol).Msg("quote served from cache")
			results[symbol] = cached
			continue
		}

		raw, err := yf.getQuote(symbol)
		if err != nil {
			yf.log.Warn().Str("symbol", symbol).Err(err).Msg("quote fetch failed")
			results[symbol] = RawQuote{Symbol: symbol, Err: err}
			continue
		}

		yf.cache.Set("quote", symbol, raw)
		results[symbol] = raw
	}

	return results, nil
}

func (yf *YahooClient) getQuote(symbol string) (RawQuote, error) {
	var result RawQuote
	err := WithRetry(yf.retry, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		if q == nil {
			return &ProviderError{
				Provider: yf.Name(),
				Symbol:   symbol,
				Message:  fmt.Sprintf("no quote data found for %s", symbol),
			}
		}

		tradingDay := ""
		if q.RegularMarketTime > 0 {
			tradingDay = time.Unix(int64(q.RegularMarketTime), 0).Format("2006-01-02")
		}
		result = RawQuote{
			Symbol:        symbol,
			Price:         strconv.FormatFloat(q.RegularMarketPrice, 'f', -1, 64),
			Change:        strconv.FormatFloat(q.RegularMarketChange, 'f', -1, 64),
			ChangePercent: strconv.FormatFloat(q.RegularMarketChangePercent, 'f', -1, 64),
			Volume:        strconv.FormatInt(int64(q.RegularMarketVolume), 10),
			TradingDay:    tradingDay,
			FetchedAt:     time.Now(),
		}
		return nil
	})
	if err != nil {
		return RawQuote{}, err
	}
	return result, nil
}

// DailyHistory fetches up to days of daily bars via the chart API,
// newest first.
func (yf *YahooClient) DailyHistory(ctx context.Context, symbol string, days int) ([]DailyBar, error) {
	symbol = NormalizeSymbol(symbol)
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)
	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	var cached []DailyBar
	if yf.cache.Get("daily", cacheKey, &cached) {
		return cached, nil
	}

	var bars []DailyBar
	err := WithRetry(yf.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)
		bars = bars[:0]
		for iter.Next() {
			bar := iter.Bar()
			bars = append(bars, DailyBar{
				Date:   time.Unix(int64(bar.Timestamp), 0),
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: int64(bar.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get history for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// chart bars arrive oldest first
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	yf.cache.Set("daily", cacheKey, bars)
	return bars, nil
}
