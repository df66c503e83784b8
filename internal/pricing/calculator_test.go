package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func boolPtr(b bool) *bool {
	return &b
}

func testRates() RateSnapshot {
	return RateSnapshot{
		MetalPrices: map[string]decimal.Decimal{
			"18ct_yellow_gold": dec("850"),
			"sterling_silver":  dec("12"),
		},
		StoneRates: []StoneRate{
			{StoneType: "diamond", SettingStyle: "prong", SizeCategory: "small", Cost: dec("15.50")},
			{StoneType: "sapphire", SettingStyle: "bezel", SizeCategory: "medium", Cost: dec("22")},
		},
	}
}

func TestCalculate_EndToEndExample(t *testing.T) {
	req := QuoteRequest{
		Metal: MetalSection{
			MetalType:   "sterling_silver",
			WeightGrams: dec("20"),
			WastagePct:  decPtr("10"),
			MarkupPct:   dec("5"),
		},
	}

	result, err := Calculate(req, testRates())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// 20g x 12 x 1.10 = 264.00, price 264.00 x 1.05 = 277.20
	if got, want := result.Metal.Cost, dec("264.00"); !got.Equal(want) {
		t.Errorf("metal cost = %s, want %s", got, want)
	}
	if got, want := result.Metal.Price, dec("277.20"); !got.Equal(want) {
		t.Errorf("metal price = %s, want %s", got, want)
	}
	if got, want := result.Totals.SubtotalCost, dec("264.00"); !got.Equal(want) {
		t.Errorf("subtotal = %s, want %s", got, want)
	}
	if got, want := result.Totals.TotalPrice, dec("277.20"); !got.Equal(want) {
		t.Errorf("total price = %s, want %s", got, want)
	}
	if got, want := result.Totals.Margin, dec("4.76"); !got.Equal(want) {
		t.Errorf("margin = %s, want %s", got, want)
	}
	if got, want := result.SpotPrice, dec("12"); !got.Equal(want) {
		t.Errorf("spot price used = %s, want %s", got, want)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	req := QuoteRequest{
		Metal: MetalSection{
			MetalType:   "18ct_yellow_gold",
			WeightGrams: dec("7.35"),
			MarkupPct:   dec("12.5"),
		},
		Stones: StoneSection{
			Entries:   []StoneEntry{{StoneType: "diamond", SettingStyle: "prong", SizeCategory: "small", Count: 12}},
			MarkupPct: dec("30"),
		},
		CAD: CADSection{Hours: dec("3.5"), HourlyRate: dec("45"), MarkupPct: dec("10")},
	}

	first, err := Calculate(req, testRates())
	if err != nil {
		t.Fatalf("first Calculate failed: %v", err)
	}
	second, err := Calculate(req, testRates())
	if err != nil {
		t.Fatalf("second Calculate failed: %v", err)
	}

	if first.Totals.TotalPrice.String() != second.Totals.TotalPrice.String() {
		t.Errorf("total price drifted between runs: %s vs %s",
			first.Totals.TotalPrice, second.Totals.TotalPrice)
	}
	if first.Totals.SubtotalCost.String() != second.Totals.SubtotalCost.String() {
		t.Errorf("subtotal drifted between runs: %s vs %s",
			first.Totals.SubtotalCost, second.Totals.SubtotalCost)
	}
}

func TestCalculate_CanonicalRateWins(t *testing.T) {
	// The client claims a forged spot price of 1; the snapshot says 850.
	req := QuoteRequest{
		Metal: MetalSection{
			MetalType:   "18ct_yellow_gold",
			WeightGrams: dec("10"),
			SpotPrice:   decPtr("1"),
			WastagePct:  decPtr("0"),
		},
	}

	result, err := Calculate(req, testRates())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if got, want := result.Metal.Cost, dec("8500"); !got.Equal(want) {
		t.Errorf("metal cost = %s, want %s (snapshot rate must win)", got, want)
	}
}

func TestCalculate_UnknownMetalFails(t *testing.T) {
	req := QuoteRequest{
		Metal: MetalSection{MetalType: "unobtainium", WeightGrams: dec("5")},
	}

	_, err := Calculate(req, testRates())
	if err == nil {
		t.Fatal("expected error for unknown metal type, got nil")
	}

	var rateErr *MetalRateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected *MetalRateError, got %T: %v", err, err)
	}
	if rateErr.MetalType != "unobtainium" {
		t.Errorf("error names metal %q, want %q", rateErr.MetalType, "unobtainium")
	}
}

func TestCalculate_EmptyRequest(t *testing.T) {
	result, err := Calculate(QuoteRequest{}, RateSnapshot{})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if !result.Totals.SubtotalCost.IsZero() {
		t.Errorf("subtotal = %s, want 0", result.Totals.SubtotalCost)
	}
	if !result.Totals.TotalPrice.IsZero() {
		t.Errorf("total price = %s, want 0", result.Totals.TotalPrice)
	}
	if !result.Totals.Margin.IsZero() {
		t.Errorf("margin = %s, want 0 (no division by zero)", result.Totals.Margin)
	}
}

func TestCalculate_CollectionMode(t *testing.T) {
	req := QuoteRequest{
		// Stale single-metal fields must be ignored once variations exist.
		Metal: MetalSection{MetalType: "unobtainium", WeightGrams: dec("99")},
		Variations: []DesignVariation{
			{MetalType: "18ct_yellow_gold", WeightGrams: dec("5"), WastagePct: decPtr("10")},
			{MetalType: "18ct_yellow_gold", WeightGrams: dec("3"), WastagePct: decPtr("0"), MarkupPct: dec("20")},
			{Enabled: boolPtr(false), MetalType: "18ct_yellow_gold", WeightGrams: dec("100")},
		},
	}

	result, err := Calculate(req, testRates())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// 5x850x1.10 + 3x850x1.00 = 4675 + 2550
	if got, want := result.Metal.Cost, dec("7225"); !got.Equal(want) {
		t.Errorf("collection cost = %s, want %s", got, want)
	}
	// 4675x1.00 + 2550x1.20 = 4675 + 3060
	if got, want := result.Metal.Price, dec("7735"); !got.Equal(want) {
		t.Errorf("collection price = %s, want %s", got, want)
	}
	if !result.SpotPrice.IsZero() {
		t.Errorf("collection quotes carry no single spot price, got %s", result.SpotPrice)
	}
}

func TestCalculate_CollectionUnknownMetalFails(t *testing.T) {
	req := QuoteRequest{
		Variations: []DesignVariation{
			{MetalType: "palladium", WeightGrams: dec("2")},
		},
	}

	_, err := Calculate(req, testRates())
	var rateErr *MetalRateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected *MetalRateError, got %v", err)
	}
	if rateErr.MetalType != "palladium" {
		t.Errorf("error names metal %q, want %q", rateErr.MetalType, "palladium")
	}
}

func TestCalculate_StoneFallback(t *testing.T) {
	tests := []struct {
		name  string
		entry StoneEntry
		want  decimal.Decimal
	}{
		{
			name:  "snapshot rate",
			entry: StoneEntry{StoneType: "diamond", SettingStyle: "prong", SizeCategory: "small", Count: 4},
			want:  dec("62.00"), // 4 x 15.50
		},
		{
			name:  "override beats snapshot",
			entry: StoneEntry{StoneType: "diamond", SettingStyle: "prong", SizeCategory: "small", Count: 4, CostPerStone: decPtr("20")},
			want:  dec("80"),
		},
		{
			name:  "setting cost override",
			entry: StoneEntry{StoneType: "ruby", SettingStyle: "channel", SizeCategory: "large", Count: 2, SettingCost: decPtr("30")},
			want:  dec("60"),
		},
		{
			name:  "missing triple degrades to zero",
			entry: StoneEntry{StoneType: "ruby", SettingStyle: "channel", SizeCategory: "large", Count: 2},
			want:  decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := QuoteRequest{Stones: StoneSection{Entries: []StoneEntry{tt.entry}}}
			result, err := Calculate(req, testRates())
			if err != nil {
				t.Fatalf("Calculate failed: %v", err)
			}
			if !result.Stones.Cost.Equal(tt.want) {
				t.Errorf("stone cost = %s, want %s", result.Stones.Cost, tt.want)
			}
		})
	}
}

func TestCalculate_MarkupInvariant(t *testing.T) {
	req := QuoteRequest{
		CAD: CADSection{
			Hours:            dec("2"),
			HourlyRate:       dec("60"),
			RenderingCost:    dec("35"),
			IncludeRendering: true,
			TechnicalCost:    dec("50"),
			IncludeTechnical: false,
			MarkupPct:        dec("15"),
		},
		Manufacturing: ManufacturingSection{Technique: "lost wax casting", Hours: dec("4"), HourlyRate: dec("55"), MarkupPct: dec("25")},
		Finishing:     FinishingSection{FinishingCost: dec("40"), PlatingCost: dec("18"), IncludePlating: true, MarkupPct: dec("10")},
		Findings: FindingsSection{
			Items:     []FindingItem{{Name: "clasp", Cost: dec("12.50")}, {Name: "jump rings", Cost: dec("3.25")}},
			MarkupPct: dec("50"),
		},
	}

	result, err := Calculate(req, testRates())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	sections := []struct {
		name   string
		got    SectionTotal
		cost   decimal.Decimal
		markup decimal.Decimal
	}{
		{"cad", result.CAD, dec("155.00"), dec("15")},          // 2x60 + 35
		{"manufacturing", result.Manufacturing, dec("220.00"), dec("25")},
		{"finishing", result.Finishing, dec("58.00"), dec("10")},
		{"findings", result.Findings, dec("15.75"), dec("50")},
	}

	for _, s := range sections {
		if !s.got.Cost.Equal(s.cost) {
			t.Errorf("%s cost = %s, want %s", s.name, s.got.Cost, s.cost)
		}
		wantPrice := s.cost.Mul(dec("1").Add(s.markup.Div(dec("100")))).Round(2)
		if !s.got.Price.Equal(wantPrice) {
			t.Errorf("%s price = %s, want %s", s.name, s.got.Price, wantPrice)
		}
		if s.got.Price.LessThan(s.got.Cost) {
			t.Errorf("%s price %s below cost %s", s.name, s.got.Price, s.got.Cost)
		}
	}

	wantSubtotal := dec("155.00").Add(dec("220.00")).Add(dec("58.00")).Add(dec("15.75"))
	if !result.Totals.SubtotalCost.Equal(wantSubtotal) {
		t.Errorf("subtotal = %s, want %s", result.Totals.SubtotalCost, wantSubtotal)
	}
	wantProfit := result.Totals.TotalPrice.Sub(result.Totals.SubtotalCost)
	if !result.Totals.Profit.Equal(wantProfit) {
		t.Errorf("profit = %s, want %s", result.Totals.Profit, wantProfit)
	}
	if !result.Totals.Overhead.IsZero() {
		t.Errorf("overhead = %s, want 0 (column reserved, never fed)", result.Totals.Overhead)
	}
}

// Revisions is intentionally inert pending product clarification: it must not
// move the CAD cost.
func TestCalculate_RevisionsDoNotPrice(t *testing.T) {
	base := QuoteRequest{CAD: CADSection{Hours: dec("2"), HourlyRate: dec("50")}}
	revised := QuoteRequest{CAD: CADSection{Hours: dec("2"), HourlyRate: dec("50"), Revisions: 7}}

	a, err := Calculate(base, testRates())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	b, err := Calculate(revised, testRates())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if !a.CAD.Cost.Equal(b.CAD.Cost) {
		t.Errorf("revisions changed CAD cost: %s vs %s", a.CAD.Cost, b.CAD.Cost)
	}
}

func TestCalculate_ExcludedTogglesContributeZero(t *testing.T) {
	req := QuoteRequest{
		CAD:       CADSection{RenderingCost: dec("100"), TechnicalCost: dec("80")},
		Finishing: FinishingSection{PlatingCost: dec("25")},
	}

	result, err := Calculate(req, testRates())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if !result.CAD.Cost.IsZero() {
		t.Errorf("cad cost = %s, want 0 when toggles are off", result.CAD.Cost)
	}
	if !result.Finishing.Cost.IsZero() {
		t.Errorf("finishing cost = %s, want 0 when plating is off", result.Finishing.Cost)
	}
}
