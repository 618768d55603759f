package marketdata

import (
	"fmt"
	"strings"
)

// ValidateSymbol checks that a ticker is 1-5 alphanumeric characters.
func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if len(symbol) == 0 {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 5 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("symbol contains invalid character: %s", symbol)
		}
	}
	return nil
}

// NormalizeSymbol converts a ticker to standard uppercase format.
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// PrepareBatch normalizes, validates, and deduplicates a symbol list,
// capping it at max entries. Order of first appearance is kept so the
// cap drops from the tail. Invalid and overflow symbols come back in
// dropped with the reason they were excluded.
func PrepareBatch(symbols []string, max int) (batch []string, dropped map[string]string) {
	dropped = make(map[string]string)
	seen := make(map[string]bool)

	for _, s := range symbols {
		sym := NormalizeSymbol(s)
		if seen[sym] {
			continue
		}
		if err := ValidateSymbol(sym); err != nil {
			dropped[sym] = err.Error()
			continue
		}
		seen[sym] = true
		if max > 0 && len(batch) >= max {
			dropped[sym] = fmt.Sprintf("batch limit %d reached", max)
			continue
		}
		batch = append(batch, sym)
	}
	return batch, dropped
}
