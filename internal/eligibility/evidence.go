package eligibility

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	exammodels "licensing/internal/exam/models"
	id "licensing/pkg/domain"
)

const evidenceTimeout = 3 * time.Second

// gatherEvidence reads the latest theory result, practical result and payment
// concurrently. The first infrastructure error cancels the others; absent
// records are not errors.
func (s *Service) gatherEvidence(ctx context.Context, candidateID id.CandidateID) (*Evidence, error) {
	ctx, cancel := context.WithTimeout(ctx, evidenceTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	ev := &Evidence{}

	g.Go(func() error {
		start := time.Now()
		r, err := s.results.LatestResult(ctx, candidateID, exammodels.KindTheory)
		ev.Latencies.Theory = time.Since(start)
		s.metrics.ObserveEvidenceLatency("theory", ev.Latencies.Theory)
		if err != nil {
			return err
		}
		ev.Theory = r
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		r, err := s.results.LatestResult(ctx, candidateID, exammodels.KindPractical)
		ev.Latencies.Practical = time.Since(start)
		s.metrics.ObserveEvidenceLatency("practical", ev.Latencies.Practical)
		if err != nil {
			return err
		}
		ev.Practical = r
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		p, err := s.payments.Latest(ctx, candidateID)
		ev.Latencies.Payment = time.Since(start)
		s.metrics.ObserveEvidenceLatency("payment", ev.Latencies.Payment)
		if err != nil {
			return err
		}
		ev.Payment = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ev, nil
}
