package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/microcaplab/tradegate/internal/marketdata"
)

// StarterCash is the balance a freshly initialized portfolio starts
// with.
var StarterCash = decimal.NewFromInt(10000)

// DefaultState returns the starter portfolio: StarterCash and no
// holdings.
func DefaultState() *State {
	return NewState(StarterCash)
}

// Load reads and validates the portfolio file. A missing file surfaces
// as an error wrapping fs.ErrNotExist so callers can suggest
// initialization. Validation collects every problem in the file into a
// single error rather than stopping at the first.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse portfolio %s: %w", path, err)
	}
	if state.Holdings == nil {
		state.Holdings = make(map[string]Holding)
	}

	if problems := validate(&state); len(problems) > 0 {
		return nil, fmt.Errorf("invalid portfolio %s:\n  - %s",
			path, strings.Join(problems, "\n  - "))
	}
	return &state, nil
}

func validate(s *State) []string {
	var problems []string
	if s.Cash.IsNegative() {
		problems = append(problems, fmt.Sprintf("cash balance %s is negative", s.Cash))
	}
	for sym, h := range s.Holdings {
		if err := marketdata.ValidateSymbol(sym); err != nil {
			problems = append(problems, fmt.Sprintf("holding %q: %v", sym, err))
		}
		if h.Shares <= 0 {
			problems = append(problems, fmt.Sprintf("holding %s: shares %d must be positive", sym, h.Shares))
		}
		if !h.BuyPrice.IsPositive() {
			problems = append(problems, fmt.Sprintf("holding %s: buy price %s must be positive", sym, h.BuyPrice))
		}
		if !h.StopLoss.IsPositive() {
			problems = append(problems, fmt.Sprintf("holding %s: stop loss %s must be positive", sym, h.StopLoss))
		} else if h.BuyPrice.IsPositive() && !h.StopLoss.LessThan(h.BuyPrice) {
			problems = append(problems, fmt.Sprintf("holding %s: stop loss %s must sit below buy price %s", sym, h.StopLoss, h.BuyPrice))
		}
	}
	return problems
}

// Save writes the portfolio atomically: encode to a temp file in the
// target directory, then rename over the destination. Encoding is
// deterministic (sorted holding keys, two-space indent), so saving an
// unchanged state reproduces the file byte for byte.
func Save(path string, s *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create portfolio dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "portfolio-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp portfolio: %w", err)
	}
	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("encode portfolio: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("flush portfolio: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("close temp portfolio: %w", err)
	}
	return os.Rename(tmpFile.Name(), path)
}
