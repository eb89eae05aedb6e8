package sentiment

// RouterBuilderOption is a functional option for configuring a Router.
// Use the With* functions to create options that are applied directly to the router instance.
type RouterBuilderOption func(*router)

// WithRule maps each of the given sentiments to res, replacing any existing row.
// Empty sentiments are ignored.
//
// Parameters:
//   - res: the resolution to map to
//   - sentiments: the sentiments matched case-insensitively
//
// Returns:
//   - RouterBuilderOption: option function to apply
func WithRule(res Resolution, sentiments ...string) RouterBuilderOption {
	return func(r *router) {
		if res.Clip == "" {
			return
		}
		for _, s := range sentiments {
			if n := normalize(s); n != "" {
				r.rules[n] = res
			}
		}
	}
}

// WithFallback replaces the resolution of unrecognized sentiments.
//
// Parameters:
//   - res: the fallback resolution, ignored when res.Clip is empty
//
// Returns:
//   - RouterBuilderOption: option function to apply
func WithFallback(res Resolution) RouterBuilderOption {
	return func(r *router) {
		if res.Clip != "" {
			r.fallback = res
		}
	}
}

// WithoutDefaults drops the built-in table so only WithRule rows apply.
//
// Returns:
//   - RouterBuilderOption: option function to apply
func WithoutDefaults() RouterBuilderOption {
	return func(r *router) {
		clear(r.rules)
	}
}
