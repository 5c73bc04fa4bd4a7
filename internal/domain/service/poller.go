package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"myhome-bridge/internal/ports"
)

// DefaultParallelUpdates bounds concurrent entity refreshes.
const DefaultParallelUpdates = 10

// EntitySource lists the entities to poll.
type EntitySource interface {
	Entities() []ports.Entity
}

// Poller periodically refreshes every entity and publishes its state.
type Poller struct {
	source   EntitySource
	host     ports.EntityHost
	interval time.Duration
	parallel int
	logger   zerolog.Logger
}

func NewPoller(source EntitySource, host ports.EntityHost, interval time.Duration, parallel int, logger zerolog.Logger) *Poller {
	if parallel <= 0 {
		parallel = DefaultParallelUpdates
	}
	return &Poller{
		source:   source,
		host:     host,
		interval: interval,
		parallel: parallel,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce refreshes all entities. A failing entity keeps its last state and
// does not affect the others.
func (p *Poller) PollOnce(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(p.parallel)
	for _, e := range p.source.Entities() {
		e := e
		g.Go(func() error {
			if err := e.Refresh(ctx); err != nil {
				p.logger.Warn().Err(err).Str("entity", e.UniqueID()).Msg("refresh failed")
				return nil
			}
			if err := p.host.PublishState(ctx, e); err != nil {
				p.logger.Warn().Err(err).Str("entity", e.UniqueID()).Msg("publishing state")
			}
			return nil
		})
	}
	_ = g.Wait()
}
