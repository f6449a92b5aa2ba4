package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"licensing/internal/artifact"
	candidatemodels "licensing/internal/candidate/models"
	"licensing/internal/eligibility"
	"licensing/internal/license/metrics"
	"licensing/internal/license/models"
	"licensing/internal/notification"
	paymentmodels "licensing/internal/payment/models"
	staffmodels "licensing/internal/staff/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
	"licensing/pkg/requestcontext"
)

type Store interface {
	CreateIfAbsent(ctx context.Context, l *models.License) error
	FindByID(ctx context.Context, licenseID id.LicenseID) (*models.License, error)
	FindActive(ctx context.Context, candidateID id.CandidateID) (*models.License, error)
	Latest(ctx context.Context, candidateID id.CandidateID) (*models.License, error)
	FindByNumber(ctx context.Context, number string) (*models.License, error)
	UpdateStatus(ctx context.Context, l *models.License, from models.Status) error
	CountActive(ctx context.Context, now time.Time) (int, error)
}

// CandidateDirectory loads license holders.
type CandidateDirectory interface {
	Get(ctx context.Context, candidateID id.CandidateID) (*candidatemodels.Candidate, error)
	Exists(ctx context.Context, candidateID id.CandidateID) (bool, error)
}

// StaffAuthorizer resolves the issuing admin.
type StaffAuthorizer interface {
	Authorize(ctx context.Context, staffID id.StaffID, role staffmodels.Role) (*staffmodels.Staff, error)
}

// Evaluator decides eligibility before issuance.
type Evaluator interface {
	Evaluate(ctx context.Context, candidateID id.CandidateID) (*eligibility.Verdict, error)
}

// PaymentLedger looks up and consumes funding payments. ConsumeIfVerified
// returns store sentinels unchanged.
type PaymentLedger interface {
	Get(ctx context.Context, paymentID id.PaymentID) (*paymentmodels.Payment, error)
	ConsumeIfVerified(ctx context.Context, paymentID id.PaymentID, candidateID id.CandidateID, licenseID id.LicenseID, at time.Time) error
}

// Renderer turns a license into a downloadable document.
type Renderer interface {
	Render(l *models.License, c *candidatemodels.Candidate, photo []byte) (*artifact.Document, error)
	VerifyPayload(encoded string) (*artifact.Payload, error)
}

// PhotoSource fetches a candidate photo by reference.
type PhotoSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// EventEmitter appends notification events inside the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, eventType notification.EventType, aggregateID string, payload any) error
}

// Config holds issuance parameters.
type Config struct {
	Jurisdiction   string
	ValidityYears  int
	InitialPoints  int
	DefaultClass   string
	NumberAttempts int
}

func DefaultConfig() Config {
	return Config{
		Jurisdiction:   "ID",
		ValidityYears:  10,
		InitialPoints:  12,
		DefaultClass:   "B",
		NumberAttempts: 5,
	}
}

// Service issues, revokes and renders licenses.
type Service struct {
	store       Store
	tx          tx.Runner
	candidates  CandidateDirectory
	staff       StaffAuthorizer
	eligibility Evaluator
	payments    PaymentLedger
	renderer    Renderer
	photos      PhotoSource
	events      EventEmitter
	numbers     models.NumberGenerator
	cfg         Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
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

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithEvents(events EventEmitter) Option {
	return func(s *Service) {
		s.events = events
	}
}

func WithRenderer(r Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

func WithPhotos(p PhotoSource) Option {
	return func(s *Service) {
		s.photos = p
	}
}

// WithNumberGenerator replaces the random number generator.
func WithNumberGenerator(gen models.NumberGenerator) Option {
	return func(s *Service) {
		s.numbers = gen
	}
}

func New(store Store, runner tx.Runner, candidates CandidateDirectory, staff StaffAuthorizer, evaluator Evaluator, payments PaymentLedger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		tx:          runner,
		candidates:  candidates,
		staff:       staff,
		eligibility: evaluator,
		payments:    payments,
		numbers:     models.RandomNumber,
		cfg:         DefaultConfig(),
		tracer:      otel.Tracer("licensing/license"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = artifact.NewRenderer("Driver Licensing Authority", nil)
	}
	if s.cfg.NumberAttempts <= 0 {
		s.cfg.NumberAttempts = 1
	}
	return s
}

// Get returns the candidate's active license, or the most recent one when
// none is active. Status is reported as of the request time.
func (s *Service) Get(ctx context.Context, candidateID id.CandidateID) (*models.License, error) {
	l, err := s.findActive(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l, err = s.store.Latest(ctx, candidateID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "license not found")
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load license")
		}
	}
	return l.AsOf(requestcontext.Now(ctx)), nil
}

// Revoke ends an active license. Only admins may revoke.
func (s *Service) Revoke(ctx context.Context, licenseID id.LicenseID, adminID id.StaffID, reason string) (*models.License, error) {
	if _, err := s.staff.Authorize(ctx, adminID, staffmodels.RoleAdmin); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, licenseID)
	if err != nil {
		return nil, err
	}

	var out *models.License
	err = s.tx.RunInTx(tx.WithShardKey(ctx, current.CandidateID.String()), func(ctx context.Context) error {
		l, err := s.load(ctx, licenseID)
		if err != nil {
			return err
		}
		if err := l.Revoke(reason, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.store.UpdateStatus(ctx, l, models.StatusActive); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeInvalidState, "license was changed concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke license")
		}
		out = l
		return s.emit(ctx, notification.EventLicenseRevoked, l.CandidateID.String(), licensePayload(l))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementRevocation()
	s.log(ctx, "license revoked",
		"license_id", out.ID,
		"candidate_id", out.CandidateID,
		"admin_id", adminID,
	)
	return out, nil
}

// ResolveCandidate accepts a candidate id or the id of one of the
// candidate's payments and returns the candidate id.
func (s *Service) ResolveCandidate(ctx context.Context, raw string) (id.CandidateID, error) {
	candidateID, err := id.ParseCandidateID(raw)
	if err != nil {
		return id.CandidateID{}, dErrors.New(dErrors.CodeInvalidInput, "id must be a candidate or payment UUID")
	}
	ok, err := s.candidates.Exists(ctx, candidateID)
	if err != nil {
		return id.CandidateID{}, err
	}
	if ok {
		return candidateID, nil
	}
	p, err := s.payments.Get(ctx, id.PaymentID(candidateID))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return id.CandidateID{}, dErrors.New(dErrors.CodeNotFound, "no candidate or payment with this id")
		}
		return id.CandidateID{}, err
	}
	return p.CandidateID, nil
}

// CountActive counts unexpired active licenses.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	n, err := s.store.CountActive(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count licenses")
	}
	return n, nil
}

func (s *Service) load(ctx context.Context, licenseID id.LicenseID) (*models.License, error) {
	l, err := s.store.FindByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "license not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load license")
	}
	return l, nil
}

// findActive returns nil, nil when the candidate holds no active license.
func (s *Service) findActive(ctx context.Context, candidateID id.CandidateID) (*models.License, error) {
	l, err := s.store.FindActive(ctx, candidateID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load license")
	}
	return l, nil
}

func (s *Service) emit(ctx context.Context, eventType notification.EventType, aggregateID string, payload any) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Emit(ctx, eventType, aggregateID, payload); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record notification")
	}
	return nil
}

func licensePayload(l *models.License) map[string]any {
	return map[string]any{
		"license_id":   l.ID.String(),
		"candidate_id": l.CandidateID.String(),
		"number":       l.Number,
		"class":        l.Class,
		"status":       l.Status,
		"issued_at":    l.IssuedAt,
		"expires_at":   l.ExpiresAt,
		"reason":       l.RevocationReason,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}
