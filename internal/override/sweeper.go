package override

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically flips stale ACTIVE overrides to EXPIRED so the stored
// status converges with the lazily computed effective status. Readers do not
// depend on it: expiry is always re-checked against expires_at at read time.
type Sweeper struct {
	db            *Database
	sweepInterval time.Duration
}

func NewSweeper(db *Database) *Sweeper {
	return &Sweeper{
		db:            db,
		sweepInterval: time.Minute,
	}
}

// Start begins the expiry sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	logger := log.With().Str("component", "override_sweeper").Logger()
	logger.Info().Dur("interval", s.sweepInterval).Msg("starting override expiry sweeper")

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down override expiry sweeper")
			return
		case <-ticker.C:
			expired, err := s.db.ExpireStale(time.Now())
			if err != nil {
				logger.Error().Err(err).Msg("failed to expire stale overrides")
				continue
			}
			if expired > 0 {
				logger.Info().Int64("expired", expired).Msg("expired stale overrides")
			}
		}
	}
}
