// Package models defines the core data types shared across the application.
package models

// TickerIdentity represents one tradable instrument and the symbol spellings
// it is known by across data vendors. At least one symbol field is populated;
// resolution from any populated field yields the same identity.
type TickerIdentity struct {
	DRSymbol    string `toml:"dr_symbol" json:"dr_symbol,omitempty"`
	YahooSymbol string `toml:"yahoo_symbol" json:"yahoo_symbol,omitempty"`
	EikonSymbol string `toml:"eikon_symbol" json:"eikon_symbol,omitempty"`
	CompanyName string `toml:"company_name" json:"company_name"`
	Exchange    string `toml:"exchange" json:"exchange"`
}

// Canonical returns the symbol spelling used as the report store key.
// Yahoo symbols are the canonical convention; identities without one fall
// back to whichever symbol is populated so the row key is never empty.
func (t TickerIdentity) Canonical() string {
	if t.YahooSymbol != "" {
		return t.YahooSymbol
	}
	if t.DRSymbol != "" {
		return t.DRSymbol
	}
	return t.EikonSymbol
}

// HasSymbol reports whether at least one symbol field is populated.
func (t TickerIdentity) HasSymbol() bool {
	return t.DRSymbol != "" || t.YahooSymbol != "" || t.EikonSymbol != ""
}

// Resolution is the outcome of a ticker lookup. Not-found is a normal,
// expected result, so it is carried as data rather than an error: Identity is
// nil, Input preserves the caller's spelling for diagnostics, and Candidates
// lists close matches when the input looked like a company name rather than a
// symbol. The resolver never silently picks a candidate.
type Resolution struct {
	Identity   *TickerIdentity
	Input      string
	Candidates []TickerIdentity
}

// Found reports whether the lookup matched exactly one identity.
func (r Resolution) Found() bool {
	return r.Identity != nil
}

// Ambiguous reports whether the lookup failed with close candidates attached.
func (r Resolution) Ambiguous() bool {
	return r.Identity == nil && len(r.Candidates) > 0
}
