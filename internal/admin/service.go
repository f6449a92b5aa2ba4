package admin

import (
	"context"
	"log/slog"
	"time"

	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/requestcontext"
)

const statsTimeout = 5 * time.Second

// Service serves dashboard figures from a Source.
type Service struct {
	source Source
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(source Source, opts ...Option) *Service {
	s := &Service{source: source}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats gathers the dashboard figures as of the request time.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	now := requestcontext.Now(ctx).UTC()
	stats, err := s.source.Stats(ctx, now)
	if err != nil {
		if _, coded := dErrors.As(err); coded {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "dashboard figures timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute dashboard figures")
	}
	stats.GeneratedAt = now
	if s.logger != nil {
		s.logger.DebugContext(ctx, "dashboard figures computed",
			"request_id", requestcontext.RequestID(ctx),
			"candidates", stats.Candidates,
			"active_licenses", stats.ActiveLicenses,
		)
	}
	return stats, nil
}
