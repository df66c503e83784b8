package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// QUOTE CALCULATOR

// MetalRateError reports a metal type the rate snapshot cannot price. It is
// the calculator's only failure: an unverified spot price could misprice a
// quote by the full value of the metal, so it never degrades to zero.
type MetalRateError struct {
	MetalType string
}

func (e *MetalRateError) Error() string {
	return fmt.Sprintf("no spot price for metal type %q", e.MetalType)
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Calculate prices a quote request against a rate snapshot and returns the
// itemized breakdown. It is pure and deterministic: identical inputs yield
// identical results, and it never mutates its arguments. The only error is
// *MetalRateError; every other missing input contributes zero to its line.
func Calculate(req QuoteRequest, rates RateSnapshot) (*CalculationResult, error) {
	req = Normalize(req)

	result := &CalculationResult{}

	metal, spot, err := calcMetal(req, rates)
	if err != nil {
		return nil, err
	}
	result.Metal = metal
	result.SpotPrice = spot

	result.Stones = calcStones(req.Stones, rates)
	result.CAD = calcCAD(req.CAD)
	result.Manufacturing = calcManufacturing(req.Manufacturing)
	result.Finishing = calcFinishing(req.Finishing)
	result.Findings = calcFindings(req.Findings)

	result.Totals = aggregate(result)
	return result, nil
}

// calcMetal prices either the single-metal section or, when design variations
// are present, the collection. The two modes are mutually exclusive: a request
// carrying variations may still hold stale single-metal fields from an earlier
// edit, and those are ignored.
func calcMetal(req QuoteRequest, rates RateSnapshot) (SectionTotal, decimal.Decimal, error) {
	if len(req.Variations) > 0 {
		total, err := calcCollection(req.Variations, rates)
		return total, decimal.Zero, err
	}

	if req.Metal.MetalType == "" {
		return SectionTotal{Cost: decimal.Zero, Price: decimal.Zero}, decimal.Zero, nil
	}

	spot, ok := rates.MetalPrices[req.Metal.MetalType]
	if !ok {
		return SectionTotal{}, decimal.Zero, &MetalRateError{MetalType: req.Metal.MetalType}
	}

	cost := metalCost(req.Metal.WeightGrams, spot, *req.Metal.WastagePct)
	return SectionTotal{
		Cost:  cost,
		Price: applyMarkup(cost, req.Metal.MarkupPct),
	}, spot, nil
}

func calcCollection(variations []DesignVariation, rates RateSnapshot) (SectionTotal, error) {
	cost := decimal.Zero
	price := decimal.Zero

	for _, v := range variations {
		if !*v.Enabled {
			continue
		}
		if v.MetalType == "" {
			continue
		}
		spot, ok := rates.MetalPrices[v.MetalType]
		if !ok {
			return SectionTotal{}, &MetalRateError{MetalType: v.MetalType}
		}
		vCost := metalCost(v.WeightGrams, spot, *v.WastagePct)
		cost = cost.Add(vCost)
		price = price.Add(applyMarkup(vCost, v.MarkupPct))
	}

	return SectionTotal{Cost: cost, Price: price}, nil
}

// metalCost is weight(g) x spot price x (1 + wastage%).
func metalCost(weight, spot, wastagePct decimal.Decimal) decimal.Decimal {
	return weight.Mul(spot).Mul(pctFactor(wastagePct)).Round(2)
}

// calcStones sums count x per-stone cost over every entry. The per-stone cost
// comes from the entry's override when given, otherwise from the snapshot's
// (type, style, size) triple; a triple missing from the snapshot contributes
// zero rather than failing the quote.
func calcStones(s StoneSection, rates RateSnapshot) SectionTotal {
	cost := decimal.Zero
	for _, e := range s.Entries {
		perStone := stoneUnitCost(e, rates)
		cost = cost.Add(perStone.Mul(decimal.NewFromInt(int64(e.Count))))
	}
	cost = cost.Round(2)
	return SectionTotal{Cost: cost, Price: applyMarkup(cost, s.MarkupPct)}
}

func stoneUnitCost(e StoneEntry, rates RateSnapshot) decimal.Decimal {
	if e.CostPerStone != nil {
		return *e.CostPerStone
	}
	if e.SettingCost != nil {
		return *e.SettingCost
	}
	if c, ok := rates.StoneSettingCost(e.StoneType, e.SettingStyle, e.SizeCategory); ok {
		return c
	}
	return decimal.Zero
}

func calcCAD(c CADSection) SectionTotal {
	cost := c.Hours.Mul(c.HourlyRate)
	if c.IncludeRendering {
		cost = cost.Add(c.RenderingCost)
	}
	if c.IncludeTechnical {
		cost = cost.Add(c.TechnicalCost)
	}
	// Revisions is carried but does not enter the formula; pricing revisions
	// is pending a product decision.
	cost = cost.Round(2)
	return SectionTotal{Cost: cost, Price: applyMarkup(cost, c.MarkupPct)}
}

func calcManufacturing(m ManufacturingSection) SectionTotal {
	cost := m.Hours.Mul(m.HourlyRate).Round(2)
	return SectionTotal{Cost: cost, Price: applyMarkup(cost, m.MarkupPct)}
}

func calcFinishing(f FinishingSection) SectionTotal {
	cost := f.FinishingCost
	if f.IncludePlating {
		cost = cost.Add(f.PlatingCost)
	}
	cost = cost.Round(2)
	return SectionTotal{Cost: cost, Price: applyMarkup(cost, f.MarkupPct)}
}

func calcFindings(f FindingsSection) SectionTotal {
	cost := decimal.Zero
	for _, item := range f.Items {
		cost = cost.Add(item.Cost)
	}
	cost = cost.Round(2)
	return SectionTotal{Cost: cost, Price: applyMarkup(cost, f.MarkupPct)}
}

// aggregate folds the six sections into subtotal, profit, total and margin.
// Overhead stays zero: the quote schema reserves the column but no input
// feeds it yet.
func aggregate(r *CalculationResult) Totals {
	sections := []SectionTotal{r.Metal, r.Stones, r.CAD, r.Manufacturing, r.Finishing, r.Findings}

	subtotal := decimal.Zero
	total := decimal.Zero
	for _, s := range sections {
		subtotal = subtotal.Add(s.Cost)
		total = total.Add(s.Price)
	}

	profit := total.Sub(subtotal)
	margin := decimal.Zero
	if total.IsPositive() {
		margin = profit.Div(total).Mul(hundred).Round(2)
	}

	return Totals{
		SubtotalCost: subtotal,
		Overhead:     decimal.Zero,
		Profit:       profit,
		TotalPrice:   total,
		Margin:       margin,
	}
}

func applyMarkup(cost, markupPct decimal.Decimal) decimal.Decimal {
	return cost.Mul(pctFactor(markupPct)).Round(2)
}

func pctFactor(pct decimal.Decimal) decimal.Decimal {
	return one.Add(pct.Div(hundred))
}
