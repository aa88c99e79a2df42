package resolver

import (
	"strings"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/models"
)

// Resolver answers symbol lookups against an in-memory universe. Lookups are
// case-insensitive exact matches on any of the symbol spellings; company-name
// inputs surface candidates but never auto-select one.
type Resolver struct {
	identities []models.TickerIdentity
	bySymbol   map[string]int
}

// New builds a resolver over a loaded universe.
func New(identities []models.TickerIdentity) *Resolver {
	r := &Resolver{
		identities: identities,
		bySymbol:   make(map[string]int, len(identities)*3),
	}
	for i, t := range identities {
		for _, sym := range []string{t.DRSymbol, t.YahooSymbol, t.EikonSymbol} {
			if sym != "" {
				r.bySymbol[strings.ToUpper(sym)] = i
			}
		}
	}
	return r
}

// NewFromFile loads the universe file and builds a resolver over it.
func NewFromFile(path string) (*Resolver, error) {
	identities, err := LoadUniverse(path)
	if err != nil {
		return nil, err
	}

	log := common.GetLogger()
	log.Info().
		Str("path", path).
		Int("tickers", len(identities)).
		Msg("Ticker universe loaded")

	return New(identities), nil
}

// Resolve looks up an input by any symbol spelling. A miss returns a
// not-found Resolution; inputs that look like a company name additionally
// carry candidate identities whose name contains the input.
func (r *Resolver) Resolve(input string) models.Resolution {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return models.Resolution{Input: input}
	}

	if i, ok := r.bySymbol[strings.ToUpper(trimmed)]; ok {
		identity := r.identities[i]
		return models.Resolution{Identity: &identity, Input: input}
	}

	res := models.Resolution{Input: input}
	lower := strings.ToLower(trimmed)
	for _, t := range r.identities {
		if strings.Contains(strings.ToLower(t.CompanyName), lower) {
			res.Candidates = append(res.Candidates, t)
		}
	}
	return res
}

// ToYahoo translates any symbol spelling to the Yahoo convention.
func (r *Resolver) ToYahoo(input string) (string, bool) {
	res := r.Resolve(input)
	if !res.Found() || res.Identity.YahooSymbol == "" {
		return "", false
	}
	return res.Identity.YahooSymbol, true
}

// ToDR translates any symbol spelling to the DR convention.
func (r *Resolver) ToDR(input string) (string, bool) {
	res := r.Resolve(input)
	if !res.Found() || res.Identity.DRSymbol == "" {
		return "", false
	}
	return res.Identity.DRSymbol, true
}

// Universe returns a copy of every identity in the universe.
func (r *Resolver) Universe() []models.TickerIdentity {
	out := make([]models.TickerIdentity, len(r.identities))
	copy(out, r.identities)
	return out
}
