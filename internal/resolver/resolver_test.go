package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/daybook/internal/models"
)

func testUniverse() []models.TickerIdentity {
	return []models.TickerIdentity{
		{
			DRSymbol:    "DBS19",
			YahooSymbol: "D05.SI",
			EikonSymbol: "DBSM.SI",
			CompanyName: "DBS Group Holdings",
			Exchange:    "SGX",
		},
		{
			DRSymbol:    "NVDA19",
			YahooSymbol: "NVDA",
			EikonSymbol: "NVDA.O",
			CompanyName: "NVIDIA Corporation",
			Exchange:    "NASDAQ",
		},
		{
			YahooSymbol: "DBSDF",
			CompanyName: "DBS Group Holdings ADR",
			Exchange:    "OTC",
		},
	}
}

func TestResolveAnySpellingYieldsSameIdentity(t *testing.T) {
	r := New(testUniverse())

	for _, input := range []string{"DBS19", "D05.SI", "DBSM.SI"} {
		res := r.Resolve(input)
		require.True(t, res.Found(), "input %s should resolve", input)
		assert.Equal(t, "D05.SI", res.Identity.Canonical())
		assert.Equal(t, "DBS Group Holdings", res.Identity.CompanyName)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := New(testUniverse())

	res := r.Resolve("nvda19")
	require.True(t, res.Found())
	assert.Equal(t, "NVDA", res.Identity.Canonical())

	res = r.Resolve("d05.si")
	require.True(t, res.Found())
	assert.Equal(t, "D05.SI", res.Identity.Canonical())
}

func TestResolveUnknownSymbolIsNotFound(t *testing.T) {
	r := New(testUniverse())

	res := r.Resolve("ZZZZ")
	assert.False(t, res.Found())
	assert.Empty(t, res.Candidates)
	assert.Equal(t, "ZZZZ", res.Input)
}

func TestResolveCompanyNameSurfacesCandidatesWithoutGuessing(t *testing.T) {
	r := New(testUniverse())

	res := r.Resolve("DBS")
	assert.False(t, res.Found())
	require.Len(t, res.Candidates, 2)
	assert.True(t, res.Ambiguous())
}

func TestResolveEmptyInput(t *testing.T) {
	r := New(testUniverse())

	res := r.Resolve("  ")
	assert.False(t, res.Found())
	assert.Empty(t, res.Candidates)
}

func TestSymbolTranslation(t *testing.T) {
	r := New(testUniverse())

	yahoo, ok := r.ToYahoo("DBS19")
	require.True(t, ok)
	assert.Equal(t, "D05.SI", yahoo)

	dr, ok := r.ToDR("NVDA")
	require.True(t, ok)
	assert.Equal(t, "NVDA19", dr)

	// No DR spelling for the ADR entry
	_, ok = r.ToDR("DBSDF")
	assert.False(t, ok)

	_, ok = r.ToYahoo("ZZZZ")
	assert.False(t, ok)
}

func TestUniverseReturnsCopy(t *testing.T) {
	r := New(testUniverse())

	u := r.Universe()
	require.Len(t, u, 3)
	u[0].YahooSymbol = "MUTATED"

	res := r.Resolve("DBS19")
	require.True(t, res.Found())
	assert.Equal(t, "D05.SI", res.Identity.YahooSymbol)
}

func writeUniverseFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickers.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadUniverse(t *testing.T) {
	path := writeUniverseFile(t, `
[[tickers]]
dr_symbol = "DBS19"
yahoo_symbol = "D05.SI"
company_name = "DBS Group Holdings"
exchange = "SGX"

[[tickers]]
yahoo_symbol = "NVDA"
company_name = "NVIDIA Corporation"
exchange = "NASDAQ"
`)

	identities, err := LoadUniverse(path)
	require.NoError(t, err)
	assert.Len(t, identities, 2)
}

func TestLoadUniverseRejectsEmptyFile(t *testing.T) {
	path := writeUniverseFile(t, ``)

	_, err := LoadUniverse(path)
	assert.Error(t, err)
}

func TestLoadUniverseRejectsEntryWithoutSymbols(t *testing.T) {
	path := writeUniverseFile(t, `
[[tickers]]
company_name = "No Symbols Inc"
exchange = "NYSE"
`)

	_, err := LoadUniverse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no symbols")
}

func TestLoadUniverseRejectsDuplicateSymbols(t *testing.T) {
	path := writeUniverseFile(t, `
[[tickers]]
yahoo_symbol = "NVDA"
company_name = "NVIDIA Corporation"

[[tickers]]
dr_symbol = "nvda"
company_name = "Duplicate Corp"
`)

	_, err := LoadUniverse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate symbol")
}

func TestLoadUniverseMissingFile(t *testing.T) {
	_, err := LoadUniverse(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
