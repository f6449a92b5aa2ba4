// Package eligibility decides whether a candidate may be issued a license.
package eligibility

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"licensing/internal/eligibility/metrics"
	exammodels "licensing/internal/exam/models"
	paymentmodels "licensing/internal/payment/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/requestcontext"
)

// CandidateChecker confirms a candidate is registered.
type CandidateChecker interface {
	Exists(ctx context.Context, candidateID id.CandidateID) (bool, error)
}

// ResultSource returns the authoritative exam result, nil when absent.
type ResultSource interface {
	LatestResult(ctx context.Context, candidateID id.CandidateID, kind exammodels.Kind) (*exammodels.ExamResult, error)
}

// PaymentSource returns the latest payment, nil when absent.
type PaymentSource interface {
	Latest(ctx context.Context, candidateID id.CandidateID) (*paymentmodels.Payment, error)
}

// Service evaluates eligibility. It takes no locks and writes nothing.
type Service struct {
	candidates CandidateChecker
	results    ResultSource
	payments   PaymentSource
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(candidates CandidateChecker, results ResultSource, payments PaymentSource, opts ...Option) *Service {
	s := &Service{
		candidates: candidates,
		results:    results,
		payments:   payments,
		tracer:     otel.Tracer("licensing/eligibility"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate returns the candidate's verdict. Unknown candidates are NotFound.
func (s *Service) Evaluate(ctx context.Context, candidateID id.CandidateID) (*Verdict, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.Evaluate",
		trace.WithAttributes(attribute.String("candidate_id", candidateID.String())))
	defer span.End()
	start := time.Now()

	ok, err := s.candidates.Exists(ctx, candidateID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if !ok {
		return nil, s.fail(span, dErrors.New(dErrors.CodeNotFound, "candidate not found"))
	}

	ev, err := s.gatherEvidence(ctx, candidateID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeTimeout, "eligibility evidence timed out"))
		}
		if _, coded := dErrors.As(err); !coded {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather eligibility evidence")
		}
		return nil, s.fail(span, err)
	}

	v := BuildVerdict(candidateID, ev, requestcontext.Now(ctx).UTC())
	span.SetAttributes(
		attribute.Bool("eligible", v.Eligible),
		attribute.Bool("theory_passed", v.TheoryPassed),
		attribute.Bool("practical_passed", v.PracticalPassed),
		attribute.Bool("payment_verified", v.PaymentVerified),
	)
	s.metrics.IncrementVerdict(v.Eligible)
	s.metrics.ObserveEvaluateLatency(time.Since(start))

	if s.logger != nil {
		s.logger.InfoContext(ctx, "eligibility evaluated",
			"request_id", requestcontext.RequestID(ctx),
			"candidate_id", candidateID,
			"eligible", v.Eligible,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return v, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
