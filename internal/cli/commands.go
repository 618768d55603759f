package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/microcaplab/tradegate/internal/config"
	"github.com/microcaplab/tradegate/internal/portfolio"
	"github.com/microcaplab/tradegate/internal/report"
	"github.com/microcaplab/tradegate/internal/storage/sqlite"
)

// Version is reported by the version command.
const Version = "0.1.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var dataDir string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "tradegate",
		Short: "tradegate - verified-data gate for LLM trading recommendations",
		Long: `tradegate runs an LLM-advised micro-cap trading cycle with a hard
verification layer between the model and the portfolio: market data is
fetched and verified first, every proposed trade is cross-checked against
the verified prices and the portfolio balances, and only validated trades
execute - always at the verified price, never at the price the model claims.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dataDir != "" {
				cfg.SetDataDir(dataDir)
			}
			if debug {
				cfg.Debug = true
			}
			initLogging(cfg.Debug)
			return cfg.EnsureDirectories()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", `Data directory (default "data")`)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newQuoteCmd(cfg))
	rootCmd.AddCommand(newPortfolioCmd(cfg))
	rootCmd.AddCommand(newHistoryCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newRunCmd creates the run command
func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [SYMBOL...]",
		Short: "Run one advisory cycle: fetch, verify, recommend, validate, execute",
		Long: `Run one full cycle against the research symbols (or the symbols given as
arguments): fetch and verify quotes, request a recommendation, validate every
proposed trade against the verified data and the portfolio, then execute the
accepted trades at their verified prices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			yes, _ := cmd.Flags().GetBool("yes")
			if model, _ := cmd.Flags().GetString("model"); model != "" {
				cfg.Model = model
			}
			return runCycle(cmd.Context(), cfg, args, dryRun, yes)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Validate and report without executing or persisting")
	cmd.Flags().BoolP("yes", "y", false, "Skip the execution confirmation prompt")
	cmd.Flags().String("model", "", "Model name override for this run")

	return cmd
}

// newQuoteCmd creates the quote command
func newQuoteCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote [SYMBOL...]",
		Short: "Fetch and verify quotes without running the advisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			historyDays, _ := cmd.Flags().GetInt("history")
			profile, _ := cmd.Flags().GetBool("profile")
			return runQuoteCommand(cmd.Context(), cfg, args, historyDays, profile)
		},
	}

	cmd.Flags().Int("history", 0, "Also show N days of daily OHLCV history per symbol")
	cmd.Flags().Bool("profile", false, "Also show company fundamentals per symbol")

	return cmd
}

// newPortfolioCmd creates the portfolio command group
func newPortfolioCmd(cfg *config.Config) *cobra.Command {
	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Inspect and manage the portfolio file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPortfolio(cfg)
		},
	}

	portfolioCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPortfolio(cfg)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cash, _ := cmd.Flags().GetString("cash")
			force, _ := cmd.Flags().GetBool("force")
			return initPortfolio(cfg, cash, force)
		},
	}
	initCmd.Flags().String("cash", portfolio.StarterCash.String(), "Starting cash balance")
	initCmd.Flags().Bool("force", false, "Replace an existing portfolio without asking")
	portfolioCmd.AddCommand(initCmd)

	return portfolioCmd
}

func showPortfolio(cfg *config.Config) error {
	state, err := portfolio.Load(cfg.PortfolioFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no portfolio at %s; run 'tradegate portfolio init' first", cfg.PortfolioFile)
		}
		return err
	}
	fmt.Println(report.RenderPortfolio(state))
	return nil
}

func initPortfolio(cfg *config.Config, cash string, force bool) error {
	balance, err := decimal.NewFromString(cash)
	if err != nil {
		return fmt.Errorf("invalid cash amount %q: %w", cash, err)
	}
	if balance.IsNegative() {
		return fmt.Errorf("cash amount must not be negative")
	}

	if _, err := os.Stat(cfg.PortfolioFile); err == nil && !force {
		ok, err := ConfirmOverwrite(cfg.PortfolioFile)
		if err != nil {
			return err
		}
		if !ok {
			DisplayInfo("Keeping the existing portfolio.")
			return nil
		}
	}

	state := portfolio.NewState(balance)
	if err := portfolio.Save(cfg.PortfolioFile, state); err != nil {
		return err
	}
	DisplaySuccess(fmt.Sprintf("Portfolio created at %s with $%s cash", cfg.PortfolioFile, balance.StringFixed(2)))
	return nil
}

// newHistoryCmd creates the history command
func newHistoryCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List journaled runs, or show one run in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return showRunDetail(cmd.Context(), cfg, args[0])
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return listRuns(cmd.Context(), cfg, limit)
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	return cmd
}

func listRuns(ctx context.Context, cfg *config.Config, limit int) error {
	journal, err := sqlite.Open(cfg.JournalFile)
	if err != nil {
		return err
	}
	defer journal.Close()

	runs, err := journal.ListRuns(ctx, 0, limit)
	if err != nil {
		return err
	}
	fmt.Println(report.RenderHistory(runs))
	return nil
}

func showRunDetail(ctx context.Context, cfg *config.Config, runID string) error {
	journal, err := sqlite.Open(cfg.JournalFile)
	if err != nil {
		return err
	}
	defer journal.Close()

	run, err := journal.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found in the journal", runID)
	}
	verdicts, err := journal.ListVerdicts(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Println(report.RenderRunDetail(run, verdicts))
	return nil
}

// newConfigCmd creates the config command group
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and data directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})

	return configCmd
}

// showConfig displays the current configuration
func showConfig(cfg *config.Config) {
	model := cfg.Model
	if model == "" {
		model = "(provider default)"
	}
	dataProvider := cfg.MarketDataProvider
	if dataProvider == "" {
		dataProvider = "auto"
	}
	quoteAge := "unlimited"
	if cfg.MaxQuoteAge > 0 {
		quoteAge = cfg.MaxQuoteAge.String()
	}

	fmt.Println("📋 Current tradegate configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Data Directory:        %s\n", cfg.DataDir)
	fmt.Printf("Cache Directory:       %s\n", cfg.CacheDir)
	fmt.Printf("Portfolio File:        %s\n", cfg.PortfolioFile)
	fmt.Printf("Journal File:          %s\n", cfg.JournalFile)
	fmt.Printf("Response Log:          %s\n", cfg.ResponseLog)
	fmt.Println()
	fmt.Printf("LLM Provider:          %s\n", cfg.LLMProvider)
	fmt.Printf("Model:                 %s\n", model)
	fmt.Printf("Market Data Provider:  %s\n", dataProvider)
	fmt.Printf("Research Symbols:      %s\n", strings.Join(cfg.ResearchSymbols, ", "))
	fmt.Println()
	fmt.Printf("Price Tolerance:       %.0f%%\n", cfg.PriceTolerancePercent*100)
	fmt.Printf("Min Confidence:        %.2f\n", cfg.MinConfidenceThreshold)
	fmt.Printf("Default Stop Loss:     %.0f%%\n", cfg.DefaultStopLossPercent*100)
	fmt.Printf("Max Position Size:     %.0f%%\n", cfg.MaxPositionSizePercent*100)
	fmt.Printf("Max Symbols Per Batch: %d\n", cfg.MaxSymbolsPerBatch)
	fmt.Printf("API Timeout:           %ds\n", cfg.APITimeoutSeconds)
	fmt.Printf("Max Quote Age:         %s\n", quoteAge)
	fmt.Printf("Cache Enabled:         %t\n", cfg.CacheEnabled)
	fmt.Printf("Cache TTL:             %s\n", cfg.CacheTTL)
	fmt.Printf("Debug Mode:            %t\n", cfg.Debug)
	fmt.Println()

	configured := func(key string) string {
		if key != "" {
			return "✅ Configured"
		}
		return "❌ Not configured"
	}
	fmt.Println("🔑 API Configuration:")
	fmt.Println("─────────────────────")
	fmt.Printf("OpenAI API:            %s\n", configured(cfg.OpenAIAPIKey))
	fmt.Printf("DeepSeek API:          %s\n", configured(cfg.DeepSeekAPIKey))
	fmt.Printf("Alpha Vantage API:     %s\n", configured(cfg.AlphaVantageAPIKey))
}

// validateConfig validates the configuration and data directories
func validateConfig(cfg *config.Config) error {
	fmt.Println("🔍 Validating tradegate configuration...")
	fmt.Println("═══════════════════════════════════════")

	fmt.Print("📁 Checking data directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Println("✅")

	fmt.Print("⚙️  Checking configuration values... ")
	if problems := cfg.Validate(); len(problems) > 0 {
		fmt.Println("❌")
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	fmt.Println("✅")

	fmt.Print("🔑 Checking API keys... ")
	var warnings []string
	switch cfg.LLMProvider {
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			warnings = append(warnings, "DeepSeek API key not configured; 'run' will fail")
		}
	default:
		if cfg.OpenAIAPIKey == "" {
			warnings = append(warnings, "OpenAI API key not configured; 'run' will fail")
		}
	}
	if cfg.AlphaVantageAPIKey == "" {
		warnings = append(warnings, "Alpha Vantage key not configured; quotes fall back to Yahoo")
	}
	if len(warnings) > 0 {
		fmt.Println("⚠️")
		for _, warning := range warnings {
			fmt.Printf("  ⚠️  %s\n", warning)
		}
	} else {
		fmt.Println("✅")
	}

	fmt.Println()
	DisplaySuccess("Configuration is valid.")
	return nil
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tradegate v%s\n", Version)
			fmt.Println("Verified-data gate for LLM trading recommendations")
		},
	}
}
