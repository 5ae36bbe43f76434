package faults

import "context"

type tierKey struct{}

// WithTier selects the authentication tier for calls made with ctx.
func WithTier(ctx context.Context, tier Tier) context.Context {
	return context.WithValue(ctx, tierKey{}, tier)
}

func TierFromContext(ctx context.Context) (Tier, bool) {
	tier, ok := ctx.Value(tierKey{}).(Tier)
	return tier, ok
}
