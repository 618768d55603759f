package verify

import (
	"errors"
	"testing"
	"time"

	"github.com/microcaplab/tradegate/internal/marketdata"
)

func rawQuote(symbol, price, changePct, volume string) marketdata.RawQuote {
	return marketdata.RawQuote{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: changePct,
		Volume:        volume,
		TradingDay:    "2026-08-24",
		FetchedAt:     time.Now(),
	}
}

func TestValidatePartitionsEverySymbol(t *testing.T) {
	requested := []string{"MVIS", "SNDL", "BCDA", "GONE"}
	raw := map[string]marketdata.RawQuote{
		"MVIS": rawQuote("MVIS", "4.20", "1.2048%", "123456"),
		"SNDL": rawQuote("SNDL", "-2.00", "0%", "100"),
		"BCDA": {Symbol: "BCDA", Err: errors.New("API limit reached")},
	}

	ds := NewValidator(0).Validate(requested, raw)

	if len(ds.Quotes)+len(ds.FailedSymbols) != len(requested) {
		t.Fatalf("every requested symbol must land somewhere: quotes=%d failed=%d",
			len(ds.Quotes), len(ds.FailedSymbols))
	}
	for sym := range ds.Quotes {
		if _, both := ds.FailedSymbols[sym]; both {
			t.Fatalf("%s appears in both quotes and failed symbols", sym)
		}
	}

	if _, ok := ds.Quotes["MVIS"]; !ok {
		t.Error("MVIS should verify")
	}
	if _, ok := ds.FailedSymbols["SNDL"]; !ok {
		t.Error("non-positive price should fail")
	}
	if _, ok := ds.FailedSymbols["BCDA"]; !ok {
		t.Error("provider error should fail the symbol")
	}
	if reason := ds.FailedSymbols["GONE"]; reason != "no data available" {
		t.Errorf("symbol missing from response should fail with no-data reason, got %q", reason)
	}
}

func TestValidateQuoteFields(t *testing.T) {
	raw := map[string]marketdata.RawQuote{
		"MVIS": rawQuote("MVIS", "4.2000", "-1.2345%", "123456"),
	}

	ds := NewValidator(0).Validate([]string{"MVIS"}, raw)

	q, ok := ds.Quotes["MVIS"]
	if !ok {
		t.Fatalf("MVIS should verify, failed: %v", ds.FailedSymbols)
	}
	if q.Price.String() != "4.2" {
		t.Errorf("price = %s, want 4.2", q.Price)
	}
	if q.ChangePercent.String() != "-1.2345" {
		t.Errorf("change percent = %s, want -1.2345", q.ChangePercent)
	}
	if q.Volume != 123456 {
		t.Errorf("volume = %d, want 123456", q.Volume)
	}
	if q.TradingDay != "2026-08-24" {
		t.Errorf("trading day = %q", q.TradingDay)
	}
}

func TestValidateRejectionRules(t *testing.T) {
	tests := []struct {
		name string
		raw  marketdata.RawQuote
		ok   bool
	}{
		{"valid", rawQuote("T", "1.00", "0%", "10"), true},
		{"price missing", rawQuote("T", "", "0%", "10"), false},
		{"price N/A", rawQuote("T", "N/A", "0%", "10"), false},
		{"price non-numeric", rawQuote("T", "abc", "0%", "10"), false},
		{"price zero", rawQuote("T", "0", "0%", "10"), false},
		{"price negative", rawQuote("T", "-1.5", "0%", "10"), false},
		{"volume negative", rawQuote("T", "1.00", "0%", "-5"), false},
		{"volume non-numeric", rawQuote("T", "1.00", "0%", "lots"), false},
		{"volume absent defaults to zero", rawQuote("T", "1.00", "0%", ""), true},
		{"volume N/A defaults to zero", rawQuote("T", "1.00", "0%", "N/A"), true},
		{"change percent junk tolerated", rawQuote("T", "1.00", "junk", "10"), true},
		{"change percent bare number", rawQuote("T", "1.00", "2.5", "10"), true},
	}

	v := NewValidator(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := v.Validate([]string{"T"}, map[string]marketdata.RawQuote{"T": tt.raw})
			_, verified := ds.Quotes["T"]
			if verified != tt.ok {
				t.Errorf("verified = %v, want %v (failed: %v)", verified, tt.ok, ds.FailedSymbols)
			}
		})
	}
}

func TestValidateStaleness(t *testing.T) {
	old := rawQuote("OLD", "1.00", "0%", "10")
	old.FetchedAt = time.Now().Add(-time.Hour)
	fresh := rawQuote("NEW", "1.00", "0%", "10")

	raw := map[string]marketdata.RawQuote{"OLD": old, "NEW": fresh}

	// no cutoff configured: both accepted
	ds := NewValidator(0).Validate([]string{"OLD", "NEW"}, raw)
	if len(ds.Quotes) != 2 {
		t.Errorf("without a staleness policy both quotes should verify, failed: %v", ds.FailedSymbols)
	}

	// 30 minute cutoff: the hour-old quote fails
	ds = NewValidator(30 * time.Minute).Validate([]string{"OLD", "NEW"}, raw)
	if _, ok := ds.FailedSymbols["OLD"]; !ok {
		t.Error("stale quote should fail under a configured cutoff")
	}
	if _, ok := ds.Quotes["NEW"]; !ok {
		t.Error("fresh quote should still verify")
	}
}

func TestValidateDeduplicatesRequested(t *testing.T) {
	raw := map[string]marketdata.RawQuote{
		"MVIS": rawQuote("MVIS", "4.20", "0%", "10"),
	}

	ds := NewValidator(0).Validate([]string{"MVIS", "mvis", "MVIS"}, raw)

	if len(ds.Quotes) != 1 || len(ds.FailedSymbols) != 0 {
		t.Errorf("duplicates should collapse: quotes=%v failed=%v", ds.Quotes, ds.FailedSymbols)
	}
}

func TestSymbolsSortedWhitelist(t *testing.T) {
	raw := map[string]marketdata.RawQuote{
		"SNDL": rawQuote("SNDL", "2.00", "0%", "10"),
		"MVIS": rawQuote("MVIS", "4.20", "0%", "10"),
		"ATER": rawQuote("ATER", "1.10", "0%", "10"),
	}

	ds := NewValidator(0).Validate([]string{"SNDL", "MVIS", "ATER"}, raw)

	syms := ds.Symbols()
	want := []string{"ATER", "MVIS", "SNDL"}
	for i := range want {
		if syms[i] != want[i] {
			t.Fatalf("Symbols() = %v, want %v", syms, want)
		}
	}
	if ds.Empty() {
		t.Error("dataset with quotes should not be empty")
	}
	if !(VerifiedDataset{}).Empty() {
		t.Error("zero dataset should be empty")
	}
}
