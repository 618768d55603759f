package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageClient is the primary quote provider. Every endpoint
// shares the same error taxonomy: an "Error Message" key is permanent
// (bad symbol), a "Note" key is the rate limiter talking (transient).
type AlphaVantageClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
	log    zerolog.Logger
}

// Option customizes an Alpha Vantage client.
type Option func(*AlphaVantageClient)

// WithBaseURL points the client at an alternate API endpoint.
func WithBaseURL(url string) Option {
	return func(av *AlphaVantageClient) { av.client.SetBaseURL(url) }
}

// WithRetryConfig replaces the default backoff schedule.
func WithRetryConfig(rc *RetryConfig) Option {
	return func(av *AlphaVantageClient) { av.retry = rc }
}

// NewAlphaVantageClient creates an Alpha Vantage client from config
func NewAlphaVantageClient(cfg *Config, opts ...Option) *AlphaVantageClient {
	cache := NewCacheManager(filepath.Join(cfg.CacheDir, "alphavantage"), cfg.CacheTTL, cfg.CacheEnabled)

	client := resty.New()
	client.SetBaseURL(alphaVantageBaseURL)
	client.SetTimeout(time.Duration(cfg.APITimeoutSeconds) * time.Second)

	av := &AlphaVantageClient{
		client: client,
		cache:  cache,
		retry:  DefaultRetryConfig(),
		apiKey: cfg.AlphaVantageAPIKey,
		log:    log.With().Str("component", "alphavantage").Logger(),
	}
	for _, opt := range opts {
		opt(av)
	}
	return av
}

// Name identifies the provider in logs and failure reasons
func (av *AlphaVantageClient) Name() string { return "alphavantage" }

type globalQuotePayload struct {
	Price            string `json:"05. price"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
}

type globalQuoteResponse struct {
	GlobalQuote  *globalQuotePayload `json:"Global Quote"`
	ErrorMessage string              `json:"Error Message"`
	Note         string              `json:"Note"`
}

// FetchQuotes fetches a GLOBAL_QUOTE per symbol. Symbols are processed
// independently; a failed symbol lands in its map entry's Err and the
// loop moves on.
func (av *AlphaVantageClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]RawQuote, error) {
	if av.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage API key not configured")
	}

	results := make(map[string]RawQuote, len(symbols))
	for _, s := range symbols {
		symbol := NormalizeSymbol(s)
		if err := ValidateSymbol(symbol); err != nil {
			results[symbol] = RawQuote{Symbol: symbol, Err: err}
			continue
		}

		var cached RawQuote
		if av.cache.Get("global_quote", symbol, &cached) {
			av.log.Debug().Str("symbol", symbol).Msg("quote served from cache")
			results[symbol] = cached
			continue
		}

		raw, err := av.getQuote(ctx, symbol)
		if err != nil {
			av.log.Warn().Str("symbol", symbol).Err(err).Msg("quote fetch failed")
			results[symbol] = RawQuote{Symbol: symbol, Err: err}
			continue
		}

		av.log.Debug().Str("symbol", symbol).Str("price", raw.Price).Msg("quote fetched")
		av.cache.Set("global_quote", symbol, raw)
		results[symbol] = raw
	}

	return results, nil
}

func (av *AlphaVantageClient) getQuote(ctx context.Context, symbol string) (RawQuote, error) {
	var result RawQuote
	err := WithRetry(av.retry, func() error {
		resp, err := av.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"function": "GLOBAL_QUOTE",
				"symbol":   symbol,
				"apikey":   av.apiKey,
			}).
			Get("")
		if err != nil {
			return fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return &ProviderError{
				Provider:  av.Name(),
				Symbol:    symbol,
				Message:   fmt.Sprintf("API error %d: %s", resp.StatusCode(), resp.String()),
				Transient: true,
			}
		}

		var payload globalQuoteResponse
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return &ProviderError{
				Provider: av.Name(),
				Symbol:   symbol,
				Message:  fmt.Sprintf("failed to parse quote response: %v", err),
			}
		}
		if err := av.apiError(symbol, payload.ErrorMessage, payload.Note); err != nil {
			return err
		}
		if payload.GlobalQuote == nil {
			return &ProviderError{
				Provider: av.Name(),
				Symbol:   symbol,
				Message:  fmt.Sprintf("no quote data found for %s", symbol),
			}
		}

		q := payload.GlobalQuote
		result = RawQuote{
			Symbol:        symbol,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Volume:        q.Volume,
			TradingDay:    q.LatestTradingDay,
			FetchedAt:     time.Now(),
		}
		return nil
	})
	if err != nil {
		return RawQuote{}, err
	}
	return result, nil
}

type overviewResponse struct {
	Symbol       string `json:"Symbol"`
	MarketCap    string `json:"MarketCapitalization"`
	PERatio      string `json:"PERatio"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	Description  string `json:"Description"`
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
}

// CompanyOverview fetches company fundamentals for research display.
// The response must echo the requested symbol or it counts as no data.
func (av *AlphaVantageClient) CompanyOverview(ctx context.Context, symbol string) (*CompanyProfile, error) {
	if av.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage API key not configured")
	}
	symbol = NormalizeSymbol(symbol)
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	var cached CompanyProfile
	if av.cache.Get("overview", symbol, &cached) {
		return &cached, nil
	}

	var result *CompanyProfile
	err := WithRetry(av.retry, func() error {
		resp, err := av.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"function": "OVERVIEW",
				"symbol":   symbol,
				"apikey":   av.apiKey,
			}).
			Get("")
		if err != nil {
			return fmt.Errorf("failed to fetch overview for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return &ProviderError{
				Provider:  av.Name(),
				Symbol:    symbol,
				Message:   fmt.Sprintf("API error %d: %s", resp.StatusCode(), resp.String()),
				Transient: true,
			}
		}

		var payload overviewResponse
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return &ProviderError{
				Provider: av.Name(),
				Symbol:   symbol,
				Message:  fmt.Sprintf("failed to parse overview response: %v", err),
			}
		}
		if err := av.apiError(symbol, payload.ErrorMessage, payload.Note); err != nil {
			return err
		}
		if payload.Symbol != symbol {
			return &ProviderError{
				Provider: av.Name(),
				Symbol:   symbol,
				Message:  fmt.Sprintf("no company data found for %s", symbol),
			}
		}

		desc := payload.Description
		if len(desc) > 200 {
			desc = desc[:200] + "..."
		}
		result = &CompanyProfile{
			Symbol:      symbol,
			MarketCap:   payload.MarketCap,
			PERatio:     payload.PERatio,
			Sector:      payload.Sector,
			Industry:    payload.Industry,
			Description: desc,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	av.cache.Set("overview", symbol, result)
	return result, nil
}

type dailyBarPayload struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type dailySeriesResponse struct {
	Series       map[string]dailyBarPayload `json:"Time Series (Daily)"`
	ErrorMessage string                     `json:"Error Message"`
	Note         string                     `json:"Note"`
}

// DailyHistory fetches up to days of daily OHLCV bars, newest first.
func (av *AlphaVantageClient) DailyHistory(ctx context.Context, symbol string, days int) ([]DailyBar, error) {
	if av.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage API key not configured")
	}
	symbol = NormalizeSymbol(symbol)
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	// compact covers the last 100 trading days
	outputsize := "compact"
	if days > 100 {
		outputsize = "full"
	}
	cacheKey := map[string]interface{}{"symbol": symbol, "outputsize": outputsize}

	var cached []DailyBar
	if av.cache.Get("daily", cacheKey, &cached) {
		return trimBars(cached, days), nil
	}

	var bars []DailyBar
	err := WithRetry(av.retry, func() error {
		resp, err := av.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"function":   "TIME_SERIES_DAILY",
				"symbol":     symbol,
				"outputsize": outputsize,
				"apikey":     av.apiKey,
			}).
			Get("")
		if err != nil {
			return fmt.Errorf("failed to fetch daily prices for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return &ProviderError{
				Provider:  av.Name(),
				Symbol:    symbol,
				Message:   fmt.Sprintf("API error %d: %s", resp.StatusCode(), resp.String()),
				Transient: true,
			}
		}

		var payload dailySeriesResponse
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return &ProviderError{
				Provider: av.Name(),
				Symbol:   symbol,
				Message:  fmt.Sprintf("failed to parse daily series response: %v", err),
			}
		}
		if err := av.apiError(symbol, payload.ErrorMessage, payload.Note); err != nil {
			return err
		}
		if len(payload.Series) == 0 {
			return &ProviderError{
				Provider: av.Name(),
				Symbol:   symbol,
				Message:  fmt.Sprintf("no daily price data found for %s", symbol),
			}
		}

		bars = bars[:0]
		for date, bar := range payload.Series {
			d, err := time.Parse("2006-01-02", date)
			if err != nil {
				continue
			}
			open, err1 := decimal.NewFromString(bar.Open)
			high, err2 := decimal.NewFromString(bar.High)
			low, err3 := decimal.NewFromString(bar.Low)
			closePx, err4 := decimal.NewFromString(bar.Close)
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
				continue
			}
			volume, _ := strconv.ParseInt(bar.Volume, 10, 64)
			bars = append(bars, DailyBar{
				Date:   d,
				Open:   open,
				High:   high,
				Low:    low,
				Close:  closePx,
				Volume: volume,
			})
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Date.After(bars[j].Date) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	av.cache.Set("daily", cacheKey, bars)
	return trimBars(bars, days), nil
}

func trimBars(bars []DailyBar, days int) []DailyBar {
	if days > 0 && len(bars) > days {
		return bars[:days]
	}
	return bars
}

func (av *AlphaVantageClient) apiError(symbol, errorMessage, note string) error {
	if errorMessage != "" {
		return &ProviderError{Provider: av.Name(), Symbol: symbol, Message: errorMessage}
	}
	if note != "" {
		return &ProviderError{Provider: av.Name(), Symbol: symbol, Message: "API limit reached: " + note, Transient: true}
	}
	return nil
}
