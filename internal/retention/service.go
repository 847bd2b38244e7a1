// Package retention prunes old design history in the background.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PruneInterval is the time between pruning cycles.
const PruneInterval = 6 * time.Hour

// Pruner deletes design records created before cutoff.
type Pruner interface {
	DeleteDesignsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically deletes designs older than MaxAge.
type Service struct {
	store    Pruner
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewService(store Pruner, maxAge time.Duration) *Service {
	return &Service{
		store:    store,
		maxAge:   maxAge,
		interval: PruneInterval,
		now:      time.Now,
	}
}

// Run prunes once immediately and then every interval. It blocks until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("maxAge", s.maxAge).Dur("interval", s.interval).Msg("starting design retention service")

	s.prune(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("design retention service stopped")
			return
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *Service) prune(ctx context.Context) {
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.store.DeleteDesignsOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune design history")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("pruned design history")
	}
}
