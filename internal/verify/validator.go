package verify

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/marketdata"
)

// VerifiedDataset is the outcome of validating one fetch cycle. Every
// requested symbol lands in exactly one of Quotes or FailedSymbols;
// the two never overlap.
type VerifiedDataset struct {
	Quotes        map[string]marketdata.Quote `json:"quotes"`
	FailedSymbols map[string]string           `json:"failed_symbols"`
	FetchedAt     time.Time                   `json:"fetched_at"`
}

// Empty reports whether no symbol verified this cycle.
func (d VerifiedDataset) Empty() bool { return len(d.Quotes) == 0 }

// Symbols returns the verified whitelist, sorted.
func (d VerifiedDataset) Symbols() []string {
	syms := make([]string, 0, len(d.Quotes))
	for s := range d.Quotes {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// FailedList renders failed symbols as "SYM: reason" lines, sorted.
func (d VerifiedDataset) FailedList() []string {
	out := make([]string, 0, len(d.FailedSymbols))
	for s, reason := range d.FailedSymbols {
		out = append(out, fmt.Sprintf("%s: %s", s, reason))
	}
	sort.Strings(out)
	return out
}

// Validator filters raw provider responses into verified quotes.
type Validator struct {
	maxQuoteAge time.Duration
	log         zerolog.Logger
}

// NewValidator creates a validator. A maxQuoteAge of zero means no
// staleness cutoff beyond the fetch cycle itself.
func NewValidator(maxQuoteAge time.Duration) *Validator {
	return &Validator{
		maxQuoteAge: maxQuoteAge,
		log:         log.With().Str("component", "verify").Logger(),
	}
}

// Validate judges each requested symbol independently; one symbol's
// failure never aborts validation of the others.
func (v *Validator) Validate(requested []string, raw map[string]marketdata.RawQuote) VerifiedDataset {
	ds := VerifiedDataset{
		Quotes:        make(map[string]marketdata.Quote),
		FailedSymbols: make(map[string]string),
		FetchedAt:     time.Now(),
	}

	for _, s := range requested {
		symbol := marketdata.NormalizeSymbol(s)
		if _, dup := ds.Quotes[symbol]; dup {
			continue
		}
		if _, dup := ds.FailedSymbols[symbol]; dup {
			continue
		}

		rq, ok := raw[symbol]
		if !ok {
			ds.FailedSymbols[symbol] = "no data available"
			continue
		}
		if rq.Err != nil {
			ds.FailedSymbols[symbol] = rq.Err.Error()
			continue
		}

		quote, reason := v.buildQuote(symbol, rq)
		if reason != "" {
			v.log.Debug().Str("symbol", symbol).Str("reason", reason).Msg("symbol failed validation")
			ds.FailedSymbols[symbol] = reason
			continue
		}
		ds.Quotes[symbol] = quote
	}

	v.log.Info().
		Int("verified", len(ds.Quotes)).
		Int("failed", len(ds.FailedSymbols)).
		Msg("market data validated")
	return ds
}

func (v *Validator) buildQuote(symbol string, rq marketdata.RawQuote) (marketdata.Quote, string) {
	priceStr := strings.TrimSpace(rq.Price)
	if priceStr == "" || priceStr == "N/A" {
		return marketdata.Quote{}, "price missing"
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return marketdata.Quote{}, fmt.Sprintf("non-numeric price %q", rq.Price)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return marketdata.Quote{}, fmt.Sprintf("invalid price %s", price)
	}

	// absent volume defaults to 0 and is not itself a failure
	volume := int64(0)
	if s := strings.TrimSpace(rq.Volume); s != "" && s != "N/A" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return marketdata.Quote{}, fmt.Sprintf("non-numeric volume %q", rq.Volume)
		}
		if n < 0 {
			return marketdata.Quote{}, fmt.Sprintf("negative volume %d", n)
		}
		volume = n
	}

	fetchedAt := rq.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	if v.maxQuoteAge > 0 && time.Since(fetchedAt) > v.maxQuoteAge {
		return marketdata.Quote{}, fmt.Sprintf("stale quote, fetched %s ago", time.Since(fetchedAt).Round(time.Second))
	}

	return marketdata.Quote{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: parseChangePercent(rq.ChangePercent),
		Volume:        volume,
		FetchedAt:     fetchedAt,
		TradingDay:    rq.TradingDay,
	}, ""
}

// parseChangePercent tolerates both "-1.2345%" and bare numbers. Junk
// degrades to zero rather than failing the symbol; price is the
// authoritative field.
func parseChangePercent(s string) decimal.Decimal {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" || s == "N/A" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
