package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the pipeline needs. It is built once at
// process start and passed in explicitly; the core packages never read
// ambient globals.
type Config struct {
	DataDir       string `json:"data_dir"`
	CacheDir      string `json:"cache_dir"`
	PortfolioFile string `json:"portfolio_file"`
	JournalFile   string `json:"journal_file"`
	ResponseLog   string `json:"response_log"`

	// LLMProvider selects the reasoning backend: "openai" or "deepseek".
	// An empty Model means the provider's default model.
	LLMProvider    string `json:"llm_provider"`
	Model          string `json:"model"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	OpenAIBaseURL  string `json:"openai_base_url"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`

	// MarketDataProvider: "auto" picks Alpha Vantage when a key is set
	// and falls back to Yahoo; "none" runs without market data, which
	// rejects every proposed trade.
	MarketDataProvider string `json:"market_data_provider"`
	AlphaVantageAPIKey string `json:"alpha_vantage_api_key"`

	// ResearchSymbols are fetched each run in addition to current holdings.
	ResearchSymbols []string `json:"research_symbols"`

	MinConfidenceThreshold float64 `json:"min_confidence_threshold"`
	DefaultStopLossPercent float64 `json:"default_stop_loss_percent"`
	MaxPositionSizePercent float64 `json:"max_position_size_percent"`
	PriceTolerancePercent  float64 `json:"price_tolerance_percent"`

	MaxSymbolsPerBatch int           `json:"max_symbols_per_batch"`
	APITimeoutSeconds  int           `json:"api_timeout_seconds"`
	MaxQuoteAge        time.Duration `json:"max_quote_age"`
	CacheEnabled       bool          `json:"cache_enabled"`
	CacheTTL           time.Duration `json:"cache_ttl"`

	Debug bool `json:"debug"`
}

// DefaultConfig builds the configuration from defaults, a .env file if
// present, and environment variable overrides, in that order.
func DefaultConfig() *Config {
	cfg := &Config{
		LLMProvider:        "openai",
		MarketDataProvider: "auto",

		ResearchSymbols: []string{"MVIS", "SNDL", "BCDA", "CARV", "XELA", "BBIG", "ATER", "GREE"},

		MinConfidenceThreshold: 0.8,
		DefaultStopLossPercent: 0.15,
		MaxPositionSizePercent: 0.25,
		PriceTolerancePercent:  0.05,

		MaxSymbolsPerBatch: 12,
		APITimeoutSeconds:  30,
		CacheEnabled:       true,
		CacheTTL:           5 * time.Minute,
	}
	cfg.SetDataDir("data")

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

// SetDataDir points the data directory at dir and recomputes the file
// paths derived from it.
func (c *Config) SetDataDir(dir string) {
	c.DataDir = dir
	c.CacheDir = filepath.Join(dir, "cache")
	c.PortfolioFile = filepath.Join(dir, "portfolio.json")
	c.JournalFile = filepath.Join(dir, "journal.db")
	c.ResponseLog = filepath.Join(dir, "llm_responses.jsonl")
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.SetDataDir(val)
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.CacheDir = val
	}
	if val := os.Getenv("PORTFOLIO_FILE"); val != "" {
		c.PortfolioFile = val
	}
	if val := os.Getenv("JOURNAL_FILE"); val != "" {
		c.JournalFile = val
	}
	if val := os.Getenv("RESPONSE_LOG"); val != "" {
		c.ResponseLog = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("OPENAI_BASE_URL"); val != "" {
		c.OpenAIBaseURL = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}

	if val := os.Getenv("MARKET_DATA_PROVIDER"); val != "" {
		c.MarketDataProvider = val
	}
	if val := os.Getenv("ALPHA_VANTAGE_API_KEY"); val != "" {
		c.AlphaVantageAPIKey = val
	}

	if val := os.Getenv("RESEARCH_SYMBOLS"); val != "" {
		symbols := []string{}
		for _, s := range strings.Split(val, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		c.ResearchSymbols = symbols
	}

	if val := os.Getenv("MIN_CONFIDENCE_THRESHOLD"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.MinConfidenceThreshold = v
		}
	}
	if val := os.Getenv("DEFAULT_STOP_LOSS_PERCENT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.DefaultStopLossPercent = v
		}
	}
	if val := os.Getenv("MAX_POSITION_SIZE_PERCENT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.MaxPositionSizePercent = v
		}
	}
	if val := os.Getenv("PRICE_TOLERANCE_PERCENT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.PriceTolerancePercent = v
		}
	}

	if val := os.Getenv("MAX_SYMBOLS_PER_BATCH"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxSymbolsPerBatch = v
		}
	}
	if val := os.Getenv("API_TIMEOUT_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.APITimeoutSeconds = v
		}
	}
	if val := os.Getenv("MAX_QUOTE_AGE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.MaxQuoteAge = d
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.CacheTTL = d
		}
	}

	if val := os.Getenv("TRADEGATE_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

// Validate checks every threshold and reports all problems at once
// rather than stopping at the first.
func (c *Config) Validate() []string {
	var errs []string

	if c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1 {
		errs = append(errs, "confidence threshold must be between 0 and 1")
	}
	if c.MaxPositionSizePercent < 0 || c.MaxPositionSizePercent > 1 {
		errs = append(errs, "max position size percent must be between 0 and 1")
	}
	if c.PriceTolerancePercent < 0 || c.PriceTolerancePercent > 1 {
		errs = append(errs, "price tolerance percent must be between 0 and 1")
	}
	if c.DefaultStopLossPercent <= 0 || c.DefaultStopLossPercent >= 1 {
		errs = append(errs, "default stop loss percent must be between 0 and 1 exclusive")
	}
	if c.MaxSymbolsPerBatch <= 0 {
		errs = append(errs, "max symbols per batch must be positive")
	}
	if c.APITimeoutSeconds <= 0 {
		errs = append(errs, "API timeout must be positive")
	}

	switch c.LLMProvider {
	case "openai", "deepseek":
	default:
		errs = append(errs, fmt.Sprintf("unknown LLM provider: %s", c.LLMProvider))
	}
	switch c.MarketDataProvider {
	case "", "auto", "alphavantage", "yahoo", "none":
	default:
		errs = append(errs, fmt.Sprintf("unknown market data provider: %s", c.MarketDataProvider))
	}

	return errs
}

// EnsureDirectories creates the data and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.CacheDir} {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
