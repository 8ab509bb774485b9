package fluency

import (
	"context"

	"github.com/jonathan/career-roadmap/internal/audio"
	"github.com/jonathan/career-roadmap/internal/logging"
	"github.com/jonathan/career-roadmap/internal/metrics"
	"github.com/jonathan/career-roadmap/internal/types"
)

// Service runs complete sessions for captures that already exist, such as
// browser uploads.
type Service struct {
	transcoder audio.Transcoder
	scorer     Scorer
	logger     *logging.Logger
	metrics    *metrics.Manager
}

// NewService combines a transcoder and a scorer
func NewService(transcoder audio.Transcoder, scorer Scorer, logger *logging.Logger, m *metrics.Manager) *Service {
	return &Service{
		transcoder: transcoder,
		scorer:     scorer,
		logger:     logging.OrNop(logger),
		metrics:    m,
	}
}

// Ready reports whether the transcoder has initialized
func (s *Service) Ready() bool {
	return s.transcoder != nil && s.transcoder.Ready()
}

// NewSession returns an idle session wired to the service's collaborators
func (s *Service) NewSession(opener Opener, language string, opts ...SessionOption) *Session {
	base := []SessionOption{WithSessionLogger(s.logger), WithSessionMetrics(s.metrics)}
	return NewSession(s.transcoder, s.scorer, opener, language, append(base, opts...)...)
}

// Score records everything opener yields, then converts and scores it
func (s *Service) Score(ctx context.Context, opener Opener, language string, opts ...SessionOption) (*types.FluencyResult, error) {
	session := s.NewSession(opener, language, opts...)
	defer func() { _ = session.Close() }()

	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	return session.Stop(ctx)
}
