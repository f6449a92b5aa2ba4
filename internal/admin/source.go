package admin

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	exammodels "licensing/internal/exam/models"
)

type CandidateCounter interface {
	Count(ctx context.Context) (int, error)
}

type ExamStats interface {
	CountPendingSchedules(ctx context.Context) (int, error)
	PassRate(ctx context.Context, kind exammodels.Kind) (float64, error)
}

type PaymentCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type LicenseCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// ServiceSource asks each domain service for its figure concurrently. It
// serves the in-memory deployment, where there is no shared database.
type ServiceSource struct {
	Candidates CandidateCounter
	Exams      ExamStats
	Payments   PaymentCounter
	Licenses   LicenseCounter
}

func (src ServiceSource) Stats(ctx context.Context, _ time.Time) (*Stats, error) {
	g, ctx := errgroup.WithContext(ctx)
	st := &Stats{}

	g.Go(func() error {
		n, err := src.Candidates.Count(ctx)
		st.Candidates = n
		return err
	})
	g.Go(func() error {
		n, err := src.Exams.CountPendingSchedules(ctx)
		st.PendingSchedules = n
		return err
	})
	g.Go(func() error {
		n, err := src.Payments.CountPending(ctx)
		st.PendingPayments = n
		return err
	})
	g.Go(func() error {
		n, err := src.Licenses.CountActive(ctx)
		st.ActiveLicenses = n
		return err
	})
	g.Go(func() error {
		r, err := src.Exams.PassRate(ctx, exammodels.KindTheory)
		st.TheoryPassRate = r
		return err
	})
	g.Go(func() error {
		r, err := src.Exams.PassRate(ctx, exammodels.KindPractical)
		st.PracticalPassRate = r
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}
