package pricing

import (
	"github.com/shopspring/decimal"
)

// Default wastage applied when the caller leaves the field empty. Workshops
// lose roughly this share of metal to filing and casting sprues.
var defaultWastagePct = decimal.NewFromInt(10)

// Normalize resolves every optional field of a request to its documented
// default: wastage 10%, everything else 0. Negative numerics are clamped to
// zero so a malformed request degrades instead of producing a negative quote.
// The returned request is a copy; the input is not touched.
func Normalize(req QuoteRequest) QuoteRequest {
	req.Metal = normalizeMetal(req.Metal)

	variations := make([]DesignVariation, len(req.Variations))
	for i, v := range req.Variations {
		variations[i] = normalizeVariation(v)
	}
	req.Variations = variations

	entries := make([]StoneEntry, len(req.Stones.Entries))
	for i, e := range req.Stones.Entries {
		entries[i] = normalizeStoneEntry(e)
	}
	req.Stones.Entries = entries
	req.Stones.MarkupPct = clamp(req.Stones.MarkupPct)

	req.CAD.Hours = clamp(req.CAD.Hours)
	req.CAD.HourlyRate = clamp(req.CAD.HourlyRate)
	req.CAD.RenderingCost = clamp(req.CAD.RenderingCost)
	req.CAD.TechnicalCost = clamp(req.CAD.TechnicalCost)
	req.CAD.MarkupPct = clamp(req.CAD.MarkupPct)
	if req.CAD.Revisions < 0 {
		req.CAD.Revisions = 0
	}

	req.Manufacturing.Hours = clamp(req.Manufacturing.Hours)
	req.Manufacturing.HourlyRate = clamp(req.Manufacturing.HourlyRate)
	req.Manufacturing.MarkupPct = clamp(req.Manufacturing.MarkupPct)

	req.Finishing.FinishingCost = clamp(req.Finishing.FinishingCost)
	req.Finishing.PlatingCost = clamp(req.Finishing.PlatingCost)
	req.Finishing.MarkupPct = clamp(req.Finishing.MarkupPct)

	items := make([]FindingItem, len(req.Findings.Items))
	for i, item := range req.Findings.Items {
		item.Cost = clamp(item.Cost)
		items[i] = item
	}
	req.Findings.Items = items
	req.Findings.MarkupPct = clamp(req.Findings.MarkupPct)

	return req
}

func normalizeMetal(m MetalSection) MetalSection {
	m.WeightGrams = clamp(m.WeightGrams)
	m.MarkupPct = clamp(m.MarkupPct)
	m.WastagePct = normalizeWastage(m.WastagePct)
	return m
}

func normalizeVariation(v DesignVariation) DesignVariation {
	if v.Enabled == nil {
		enabled := true
		v.Enabled = &enabled
	}
	v.WeightGrams = clamp(v.WeightGrams)
	v.MarkupPct = clamp(v.MarkupPct)
	v.WastagePct = normalizeWastage(v.WastagePct)
	return v
}

func normalizeStoneEntry(e StoneEntry) StoneEntry {
	if e.Count < 0 {
		e.Count = 0
	}
	if e.CostPerStone != nil {
		c := clamp(*e.CostPerStone)
		e.CostPerStone = &c
	}
	if e.SettingCost != nil {
		c := clamp(*e.SettingCost)
		e.SettingCost = &c
	}
	return e
}

func normalizeWastage(w *decimal.Decimal) *decimal.Decimal {
	if w == nil {
		d := defaultWastagePct
		return &d
	}
	c := clamp(*w)
	return &c
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
