package pricing

import (
	"github.com/shopspring/decimal"
)

// QUOTE CALCULATION TYPES

// QuoteRequest is the raw field set a quote is priced from. Every section is
// optional; Normalize resolves absent fields to their documented defaults
// before Calculate runs the numbers.
type QuoteRequest struct {
	Metal         MetalSection         `json:"metal"`
	Variations    []DesignVariation    `json:"design_variations,omitempty"`
	Stones        StoneSection         `json:"stones"`
	CAD           CADSection           `json:"cad"`
	Manufacturing ManufacturingSection `json:"manufacturing"`
	Finishing     FinishingSection     `json:"finishing"`
	Findings      FindingsSection      `json:"findings"`
}

type MetalSection struct {
	MetalType   string          `json:"metal_type,omitempty"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
	// SpotPrice may arrive from the client but is never trusted: the rate
	// snapshot's price always wins (see resolveMetal).
	SpotPrice  *decimal.Decimal `json:"spot_price,omitempty"`
	WastagePct *decimal.Decimal `json:"wastage_pct,omitempty"`
	MarkupPct  decimal.Decimal  `json:"markup_pct"`
}

// DesignVariation is one alternate metal rendition inside a collection quote.
// A nil Enabled counts as enabled; only an explicit false excludes it.
type DesignVariation struct {
	Enabled     *bool            `json:"enabled,omitempty"`
	MetalType   string           `json:"metal_type,omitempty"`
	WeightGrams decimal.Decimal  `json:"weight_grams"`
	WastagePct  *decimal.Decimal `json:"wastage_pct,omitempty"`
	MarkupPct   decimal.Decimal  `json:"markup_pct"`
}

type StoneSection struct {
	Entries   []StoneEntry    `json:"entries,omitempty"`
	MarkupPct decimal.Decimal `json:"markup_pct"`
}

type StoneEntry struct {
	StoneType    string `json:"stone_type"`
	SettingStyle string `json:"setting_style"`
	SizeCategory string `json:"size_category"`
	Count        int    `json:"count"`
	// CostPerStone and SettingCost are caller overrides; when both are absent
	// the per-stone cost is looked up in the rate snapshot.
	CostPerStone *decimal.Decimal `json:"cost_per_stone,omitempty"`
	SettingCost  *decimal.Decimal `json:"setting_cost,omitempty"`
}

type CADSection struct {
	Hours            decimal.Decimal `json:"hours"`
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	Revisions        int             `json:"revisions"`
	RenderingCost    decimal.Decimal `json:"rendering_cost"`
	IncludeRendering bool            `json:"include_rendering"`
	TechnicalCost    decimal.Decimal `json:"technical_cost"`
	IncludeTechnical bool            `json:"include_technical"`
	MarkupPct        decimal.Decimal `json:"markup_pct"`
}

type ManufacturingSection struct {
	Technique  string          `json:"technique,omitempty"`
	Hours      decimal.Decimal `json:"hours"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	MarkupPct  decimal.Decimal `json:"markup_pct"`
}

type FinishingSection struct {
	FinishingCost  decimal.Decimal `json:"finishing_cost"`
	PlatingCost    decimal.Decimal `json:"plating_cost"`
	IncludePlating bool            `json:"include_plating"`
	MarkupPct      decimal.Decimal `json:"markup_pct"`
}

type FindingsSection struct {
	Items     []FindingItem   `json:"items,omitempty"`
	MarkupPct decimal.Decimal `json:"markup_pct"`
}

type FindingItem struct {
	Name string          `json:"name,omitempty"`
	Cost decimal.Decimal `json:"cost"`
}

// RateSnapshot holds the reference rates a calculation prices against.
// It is fetched once by the caller and passed in by value; the calculator
// never reaches out for rates itself.
type RateSnapshot struct {
	MetalPrices map[string]decimal.Decimal `json:"metal_prices"`
	StoneRates  []StoneRate                `json:"stone_rates"`
}

type StoneRate struct {
	StoneType    string          `json:"stone_type" db:"stone_type"`
	SettingStyle string          `json:"setting_style" db:"setting_style"`
	SizeCategory string          `json:"size_category" db:"size_category"`
	Cost         decimal.Decimal `json:"cost" db:"cost"`
}

// StoneSettingCost resolves the setting cost for a (type, style, size) triple.
func (s RateSnapshot) StoneSettingCost(stoneType, settingStyle, sizeCategory string) (decimal.Decimal, bool) {
	for _, r := range s.StoneRates {
		if r.StoneType == stoneType && r.SettingStyle == settingStyle && r.SizeCategory == sizeCategory {
			return r.Cost, true
		}
	}
	return decimal.Zero, false
}

// SectionTotal is a section's pre-markup cost and marked-up price.
type SectionTotal struct {
	Cost  decimal.Decimal `json:"cost"`
	Price decimal.Decimal `json:"price"`
}

type Totals struct {
	SubtotalCost decimal.Decimal `json:"subtotal_cost"`
	Overhead     decimal.Decimal `json:"overhead"`
	Profit       decimal.Decimal `json:"profit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Margin       decimal.Decimal `json:"margin"`
}

// CalculationResult is the full itemized breakdown for one quote.
type CalculationResult struct {
	Metal         SectionTotal `json:"metal"`
	Stones        SectionTotal `json:"stones"`
	CAD           SectionTotal `json:"cad"`
	Manufacturing SectionTotal `json:"manufacturing"`
	Finishing     SectionTotal `json:"finishing"`
	Findings      SectionTotal `json:"findings"`
	// SpotPrice is the snapshot rate the metal section was priced at, for the
	// quote record. Zero in collection mode and when no metal was quoted.
	SpotPrice decimal.Decimal `json:"spot_price"`
	Totals    Totals          `json:"totals"`
}
