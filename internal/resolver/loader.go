// Package resolver maps ticker symbols between vendor conventions using a
// TOML universe file loaded at startup.
package resolver

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/daybook/internal/models"
)

type universeFile struct {
	Tickers []models.TickerIdentity `toml:"tickers"`
}

// LoadUniverse reads and validates the ticker universe from a TOML file.
// Every entry needs at least one symbol, and no symbol spelling may appear
// twice; a bad universe fails startup rather than producing wrong lookups.
func LoadUniverse(path string) ([]models.TickerIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}

	var file universeFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}

	if len(file.Tickers) == 0 {
		return nil, fmt.Errorf("universe file %s contains no tickers", path)
	}

	seen := make(map[string]string, len(file.Tickers)*3)
	for i, t := range file.Tickers {
		if !t.HasSymbol() {
			return nil, fmt.Errorf("universe entry %d (%s) has no symbols", i, t.CompanyName)
		}
		for _, sym := range []string{t.DRSymbol, t.YahooSymbol, t.EikonSymbol} {
			if sym == "" {
				continue
			}
			key := strings.ToUpper(sym)
			if prev, ok := seen[key]; ok {
				return nil, fmt.Errorf("duplicate symbol %s in universe (already used by %s)", sym, prev)
			}
			seen[key] = t.Canonical()
		}
	}

	return file.Tickers, nil
}
