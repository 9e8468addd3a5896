// Package probe discovers which generation tiers are currently usable
// and returns them in static preference order. Administrative disables
// override reachability, and probe failures degrade to an empty list:
// "no tiers available" is a normal input for the orchestrator, not an
// error.
package probe

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/yzamari/clipforge/internal/tier"
)

// DefaultTimeout bounds each per-tier reachability check.
const DefaultTimeout = 10 * time.Second

// Prober produces the ordered list of usable tier generators.
type Prober struct {
	generators []tier.Generator
	disabled   map[tier.Tier]bool
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithDisabledTiers marks tiers as administratively disabled. Disabled
// overrides reachable.
func WithDisabledTiers(tiers []tier.Tier) Option {
	return func(p *Prober) {
		for _, t := range tiers {
			p.disabled[t] = true
		}
	}
}

// WithTimeout bounds each reachability check.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewProber creates a Prober over the given generators.
func NewProber(generators []tier.Generator, logger *slog.Logger, opts ...Option) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Prober{
		generators: generators,
		disabled:   make(map[tier.Tier]bool),
		timeout:    DefaultTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns the usable generators in preference order. A tier is
// usable when it is not administratively disabled and its backing
// provider answers the reachability check.
func (p *Prober) Probe(ctx context.Context) []tier.Generator {
	usable := make([]tier.Generator, 0, len(p.generators))

	for _, gen := range p.generators {
		t := gen.Tier()
		if p.disabled[t] {
			p.logger.Info("tier administratively disabled",
				slog.String("tier", string(t)),
			)
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := gen.Reachable(checkCtx)
		cancel()
		if err != nil {
			p.logger.Warn("tier unreachable",
				slog.String("tier", string(t)),
				slog.String("error", err.Error()),
			)
			continue
		}

		usable = append(usable, gen)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Tier().Rank() < usable[j].Tier().Rank()
	})

	p.logger.Info("tier probe complete",
		slog.Int("usable", len(usable)),
		slog.Int("known", len(p.generators)),
	)
	return usable
}
