package model

import (
	"fmt"
	"strings"
)

// RegimeKind identifies how an indexed holding accrues value.
type RegimeKind string

// Supported regime kinds. The string values are the persisted representation.
const (
	RegimeSelic      RegimeKind = "SELIC"
	RegimeCDI        RegimeKind = "CDI"
	RegimeCDISpread  RegimeKind = "CDI+"
	RegimeIPCA       RegimeKind = "IPCA"
	RegimeIPCASpread RegimeKind = "IPCA+"
	RegimeFixedRate  RegimeKind = "FIXED"
)

// RateIndex names a reference rate published by the rate source.
type RateIndex string

const (
	// IndexSelic is the annualized SELIC target rate in percent.
	IndexSelic RateIndex = "SELIC"
	// IndexCDI is the annualized (252 business days) CDI rate in percent.
	IndexCDI RateIndex = "CDI"
	// IndexCDIDaily is the daily CDI rate in percent per business day.
	IndexCDIDaily RateIndex = "CDI_DAILY"
	// IndexIPCA is the monthly IPCA inflation in percent.
	IndexIPCA RateIndex = "IPCA"
)

// Regime is the tagged variant describing an Index Regime. Exactly one of the
// concrete types below implements it; switches over Regime values are expected
// to handle every one of them.
type Regime interface {
	Kind() RegimeKind
	// Rate is the regime parameter: percentage of index, spread or fixed annual rate.
	Rate() float64
	isRegime()
}

// Selic accrues Percent% of the annual SELIC rate.
type Selic struct{ Percent float64 }

// CDI accrues Percent% of the annual CDI rate.
type CDI struct{ Percent float64 }

// CDISpread accrues the annual CDI rate plus Spread percentage points.
type CDISpread struct{ Spread float64 }

// IPCA accrues Percent% of the monthly IPCA inflation.
type IPCA struct{ Percent float64 }

// IPCASpread accrues the monthly IPCA inflation plus Spread/12 points per month.
type IPCASpread struct{ Spread float64 }

// FixedRate accrues AnnualRate% per year on a 365-day convention.
type FixedRate struct{ AnnualRate float64 }

// UnknownRegime holds a persisted regime whose kind is not recognized.
// Valuation leaves such holdings at their entry price.
type UnknownRegime struct {
	Name  string
	Value float64
}

func (Selic) Kind() RegimeKind      { return RegimeSelic }
func (CDI) Kind() RegimeKind        { return RegimeCDI }
func (CDISpread) Kind() RegimeKind  { return RegimeCDISpread }
func (IPCA) Kind() RegimeKind       { return RegimeIPCA }
func (IPCASpread) Kind() RegimeKind { return RegimeIPCASpread }
func (FixedRate) Kind() RegimeKind  { return RegimeFixedRate }
func (u UnknownRegime) Kind() RegimeKind {
	return RegimeKind(u.Name)
}

func (r Selic) Rate() float64         { return r.Percent }
func (r CDI) Rate() float64           { return r.Percent }
func (r CDISpread) Rate() float64     { return r.Spread }
func (r IPCA) Rate() float64          { return r.Percent }
func (r IPCASpread) Rate() float64    { return r.Spread }
func (r FixedRate) Rate() float64     { return r.AnnualRate }
func (r UnknownRegime) Rate() float64 { return r.Value }

func (Selic) isRegime()         {}
func (CDI) isRegime()           {}
func (CDISpread) isRegime()     {}
func (IPCA) isRegime()          {}
func (IPCASpread) isRegime()    {}
func (FixedRate) isRegime()     {}
func (UnknownRegime) isRegime() {}

// regimeAliases maps accepted spellings to their canonical kind.
var regimeAliases = map[string]RegimeKind{
	"SELIC":     RegimeSelic,
	"CDI":       RegimeCDI,
	"CDI+":      RegimeCDISpread,
	"CDI_PLUS":  RegimeCDISpread,
	"IPCA":      RegimeIPCA,
	"IPCA+":     RegimeIPCASpread,
	"IPCA_PLUS": RegimeIPCASpread,
	"FIXED":     RegimeFixedRate,
	"PREFIXADO": RegimeFixedRate,
	"PRE":       RegimeFixedRate,
}

// ParseRegimeKind resolves a user or database supplied kind, case-insensitively.
func ParseRegimeKind(s string) (RegimeKind, bool) {
	kind, ok := regimeAliases[strings.ToUpper(strings.TrimSpace(s))]
	return kind, ok
}

// NewRegime builds the variant for kind with the given parameter.
// Unrecognized kinds produce an UnknownRegime rather than an error so that
// stored records always load.
func NewRegime(kind string, rate float64) Regime {
	k, ok := ParseRegimeKind(kind)
	if !ok {
		return UnknownRegime{Name: kind, Value: rate}
	}
	switch k {
	case RegimeSelic:
		return Selic{Percent: rate}
	case RegimeCDI:
		return CDI{Percent: rate}
	case RegimeCDISpread:
		return CDISpread{Spread: rate}
	case RegimeIPCA:
		return IPCA{Percent: rate}
	case RegimeIPCASpread:
		return IPCASpread{Spread: rate}
	case RegimeFixedRate:
		return FixedRate{AnnualRate: rate}
	}
	return UnknownRegime{Name: kind, Value: rate}
}

// RegimeIndex returns the reference rate a regime depends on, if any.
func RegimeIndex(r Regime) (RateIndex, bool) {
	switch r.(type) {
	case Selic:
		return IndexSelic, true
	case CDI, CDISpread:
		return IndexCDI, true
	case IPCA, IPCASpread:
		return IndexIPCA, true
	}
	return "", false
}

// DescribeRegime renders a regime as e.g. "CDI 110%" or "IPCA+ 5.5".
func DescribeRegime(r Regime) string {
	if r == nil {
		return ""
	}
	switch r.(type) {
	case Selic, CDI, IPCA:
		return fmt.Sprintf("%s %g%%", r.Kind(), r.Rate())
	}
	return fmt.Sprintf("%s %g", r.Kind(), r.Rate())
}
