package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const goodQuoteBody = `{
	"Global Quote": {
		"01. symbol": "MVIS",
		"05. price": "4.2000",
		"06. volume": "123456",
		"07. latest trading day": "2026-08-24",
		"09. change": "0.0500",
		"10. change percent": "1.2048%"
	}
}`

func testClientConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		CacheDir:           t.TempDir(),
		CacheEnabled:       false,
		CacheTTL:           time.Minute,
		AlphaVantageAPIKey: "test-key",
		APITimeoutSeconds:  5,
	}
}

func TestFetchQuotesMixedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "MVIS":
			fmt.Fprint(w, goodQuoteBody)
		default:
			fmt.Fprint(w, `{"Error Message": "Invalid API call. Please retry with a valid symbol."}`)
		}
	}))
	defer srv.Close()

	av := NewAlphaVantageClient(testClientConfig(t), WithBaseURL(srv.URL), WithRetryConfig(fastRetryConfig()))

	results, err := av.FetchQuotes(context.Background(), []string{"MVIS", "FAKE"})
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	good := results["MVIS"]
	if good.Err != nil {
		t.Fatalf("MVIS should verify: %v", good.Err)
	}
	if good.Price != "4.2000" || good.Volume != "123456" || good.ChangePercent != "1.2048%" {
		t.Errorf("unexpected quote payload: %+v", good)
	}
	if good.TradingDay != "2026-08-24" {
		t.Errorf("expected trading day from provider, got %q", good.TradingDay)
	}
	if good.FetchedAt.IsZero() {
		t.Error("FetchedAt should be stamped")
	}

	bad := results["FAKE"]
	if bad.Err == nil {
		t.Fatal("FAKE should carry a provider error")
	}
	if IsTransient(bad.Err) {
		t.Error("an invalid symbol is a permanent error")
	}
}

func TestFetchQuotesRetriesRateLimit(t *testing.T) {
	var mu sync.Mutex
	hits := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		first := hits == 1
		mu.Unlock()
		if first {
			fmt.Fprint(w, `{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
			return
		}
		fmt.Fprint(w, goodQuoteBody)
	}))
	defer srv.Close()

	av := NewAlphaVantageClient(testClientConfig(t), WithBaseURL(srv.URL), WithRetryConfig(fastRetryConfig()))

	results, err := av.FetchQuotes(context.Background(), []string{"MVIS"})
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if results["MVIS"].Err != nil {
		t.Fatalf("rate-limited quote should recover on retry: %v", results["MVIS"].Err)
	}
	if hits != 2 {
		t.Errorf("expected 2 requests (limit then success), got %d", hits)
	}
}

func TestFetchQuotesMissingGlobalQuoteIsPermanent(t *testing.T) {
	var mu sync.Mutex
	hits := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	av := NewAlphaVantageClient(testClientConfig(t), WithBaseURL(srv.URL), WithRetryConfig(fastRetryConfig()))

	results, err := av.FetchQuotes(context.Background(), []string{"MVIS"})
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	raw := results["MVIS"]
	if raw.Err == nil {
		t.Fatal("empty payload should fail the symbol")
	}
	if IsTransient(raw.Err) {
		t.Error("missing quote data is permanent, not retryable")
	}
	if hits != 1 {
		t.Errorf("permanent failure should not retry, got %d requests", hits)
	}
}

func TestFetchQuotesUsesCache(t *testing.T) {
	var mu sync.Mutex
	hits := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		fmt.Fprint(w, goodQuoteBody)
	}))
	defer srv.Close()

	cfg := testClientConfig(t)
	cfg.CacheEnabled = true
	av := NewAlphaVantageClient(cfg, WithBaseURL(srv.URL), WithRetryConfig(fastRetryConfig()))

	for i := 0; i < 2; i++ {
		results, err := av.FetchQuotes(context.Background(), []string{"MVIS"})
		if err != nil {
			t.Fatalf("FetchQuotes #%d: %v", i+1, err)
		}
		if results["MVIS"].Err != nil {
			t.Fatalf("FetchQuotes #%d failed symbol: %v", i+1, results["MVIS"].Err)
		}
	}

	if hits != 1 {
		t.Errorf("second fetch should come from cache, got %d requests", hits)
	}
}

func TestFetchQuotesRequiresAPIKey(t *testing.T) {
	cfg := testClientConfig(t)
	cfg.AlphaVantageAPIKey = ""
	av := NewAlphaVantageClient(cfg)

	if _, err := av.FetchQuotes(context.Background(), []string{"MVIS"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestCompanyOverview(t *testing.T) {
	longDesc := strings.Repeat("x", 300)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "OVERVIEW" {
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
		fmt.Fprintf(w, `{
			"Symbol": "BCDA",
			"MarketCapitalization": "21000000",
			"PERatio": "None",
			"Sector": "LIFE SCIENCES",
			"Industry": "SURGICAL & MEDICAL INSTRUMENTS",
			"Description": "%s"
		}`, longDesc)
	}))
	defer srv.Close()

	av := NewAlphaVantageClient(testClientConfig(t), WithBaseURL(srv.URL), WithRetryConfig(fastRetryConfig()))

	profile, err := av.CompanyOverview(context.Background(), "bcda")
	if err != nil {
		t.Fatalf("CompanyOverview: %v", err)
	}
	if profile.Symbol != "BCDA" || profile.Sector != "LIFE SCIENCES" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if len(profile.Description) != 203 || !strings.HasSuffix(profile.Description, "...") {
		t.Errorf("description should be truncated to 200 chars plus ellipsis, got %d chars", len(profile.Description))
	}
}

func TestCompanyOverviewSymbolMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Symbol": "OTHER"}`)
	}))
	defer srv.Close()

	av := NewAlphaVantageClient(testClientConfig(t), WithBaseURL(srv.URL), WithRetryConfig(fastRetryConfig()))

	if _, err := av.CompanyOverview(context.Background(), "BCDA"); err == nil {
		t.Fatal("mismatched symbol echo should count as no data")
	}
}

func TestDailyHistorySortedAndTrimmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"Time Series (Daily)": {
				"2026-08-20": {"1. open": "4.00", "2. high": "4.30", "3. low": "3.90", "4. close": "4.10", "5. volume": "90000"},
				"2026-08-22": {"1. open": "4.20", "2. high": "4.50", "3. low": "4.10", "4. close": "4.40", "5. volume": "110000"},
				"2026-08-21": {"1. open": "4.10", "2. high": "4.25", "3. low": "4.00", "4. close": "4.20", "5. volume": "100000"}
			}
		}`)
	}))
	defer srv.Close()

	av := NewAlphaVantageClient(testClientConfig(t), WithBaseURL(srv.URL), WithRetryConfig(fastRetryConfig()))

	bars, err := av.DailyHistory(context.Background(), "MVIS", 2)
	if err != nil {
		t.Fatalf("DailyHistory: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars after trim, got %d", len(bars))
	}
	if bars[0].Date.Format("2006-01-02") != "2026-08-22" {
		t.Errorf("bars should be newest first, got %s", bars[0].Date.Format("2006-01-02"))
	}
	if bars[0].Close.String() != "4.4" {
		t.Errorf("expected close 4.4, got %s", bars[0].Close)
	}
	if bars[1].Volume != 100000 {
		t.Errorf("expected volume 100000, got %d", bars[1].Volume)
	}
}

func TestYahooRejectsInvalidSymbolWithoutNetwork(t *testing.T) {
	yf := NewYahooClient(testClientConfig(t))

	results, err := yf.FetchQuotes(context.Background(), []string{"NOT.OK"})
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if results["NOT.OK"].Err == nil {
		t.Error("invalid symbol should fail before any network call")
	}

	if _, err := yf.DailyHistory(context.Background(), "NOT.OK", 5); err == nil {
		t.Error("invalid symbol should fail history before any network call")
	}
}
