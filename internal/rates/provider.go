package rates

import (
	"context"

	"jewelquote/internal/pricing"
)

// Provider supplies the reference rates a quote is priced against. Callers
// fetch a snapshot fresh before every calculation; any caching sits in a
// decorator around the Provider, never inside the calculator.
type Provider interface {
	Rates(ctx context.Context) (pricing.RateSnapshot, error)
}

// Static is a fixed snapshot, used in tests and seed tooling.
type Static struct {
	Snapshot pricing.RateSnapshot
}

func (s Static) Rates(context.Context) (pricing.RateSnapshot, error) {
	return s.Snapshot, nil
}
