package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	candidatemodels "licensing/internal/candidate/models"
	"licensing/internal/notification"
	"licensing/internal/payment/gateway"
	"licensing/internal/payment/metrics"
	"licensing/internal/payment/models"
	staffmodels "licensing/internal/staff/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
	"licensing/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	Latest(ctx context.Context, candidateID id.CandidateID) (*models.Payment, error)
	UpdateReviewIfPending(ctx context.Context, p *models.Payment) error
	SetGateway(ctx context.Context, paymentID id.PaymentID, token, redirect string) error
	ConsumeIfVerified(ctx context.Context, paymentID id.PaymentID, candidateID id.CandidateID, licenseID id.LicenseID, at time.Time) error
	CountByStatus(ctx context.Context, status models.Status) (int, error)
}

// CandidateLookup loads the payer.
type CandidateLookup interface {
	Get(ctx context.Context, candidateID id.CandidateID) (*candidatemodels.Candidate, error)
}

// StaffAuthorizer resolves the reviewing admin.
type StaffAuthorizer interface {
	Authorize(ctx context.Context, staffID id.StaffID, role staffmodels.Role) (*staffmodels.Staff, error)
}

// Gateway opens a hosted checkout for a new payment.
type Gateway interface {
	CreateCharge(ctx context.Context, p *models.Payment, customer gateway.Customer) (*gateway.Charge, error)
}

// EventEmitter appends notification events inside the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, eventType notification.EventType, aggregateID string, payload any) error
}

// Service records license fee payments and their review.
type Service struct {
	store      Store
	tx         tx.Runner
	candidates CandidateLookup
	staff      StaffAuthorizer
	gateway    Gateway
	events     EventEmitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
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

func WithGateway(g Gateway) Option {
	return func(s *Service) {
		s.gateway = g
	}
}

func WithEvents(events EventEmitter) Option {
	return func(s *Service) {
		s.events = events
	}
}

func New(store Store, runner tx.Runner, candidates CandidateLookup, staff StaffAuthorizer, opts ...Option) *Service {
	s := &Service{store: store, tx: runner, candidates: candidates, staff: staff}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest describes a payment made by a candidate.
type SubmitRequest struct {
	CandidateID id.CandidateID
	Amount      int64
	Currency    string
	Reference   string
}

// Submit records a pending payment. When a gateway is configured a checkout
// token is attached; gateway failures leave the payment pending for manual
// review.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Payment, error) {
	c, err := s.candidates.Get(ctx, req.CandidateID)
	if err != nil {
		return nil, err
	}
	p, err := models.NewPayment(c.ID, req.Amount, req.Currency, req.Reference, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}
	s.metrics.IncrementStatus(string(p.Status))
	s.log(ctx, "payment submitted",
		"payment_id", p.ID,
		"candidate_id", p.CandidateID,
		"amount", p.Amount,
		"currency", p.Currency,
	)

	if s.gateway != nil {
		s.attachCharge(ctx, p, c)
	}
	return p, nil
}

func (s *Service) attachCharge(ctx context.Context, p *models.Payment, c *candidatemodels.Candidate) {
	charge, err := s.gateway.CreateCharge(ctx, p, gateway.Customer{FullName: c.FullName, Email: c.Email})
	if err == nil {
		err = s.store.SetGateway(ctx, p.ID, charge.Token, charge.RedirectURL)
	}
	if err != nil {
		s.metrics.IncrementGatewayFailure()
		if s.logger != nil {
			s.logger.WarnContext(ctx, "payment gateway charge failed",
				"payment_id", p.ID,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		return
	}
	p.GatewayToken = charge.Token
	p.GatewayRedirect = charge.RedirectURL
}

// Verify accepts a pending payment. It succeeds at most once.
func (s *Service) Verify(ctx context.Context, paymentID id.PaymentID, adminID id.StaffID) (*models.Payment, error) {
	return s.review(ctx, paymentID, adminID, notification.EventPaymentVerified, func(p *models.Payment, now time.Time) error {
		return p.Verify(adminID, now)
	})
}

// Reject declines a pending payment with a reason.
func (s *Service) Reject(ctx context.Context, paymentID id.PaymentID, adminID id.StaffID, reason string) (*models.Payment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	return s.review(ctx, paymentID, adminID, notification.EventPaymentRejected, func(p *models.Payment, now time.Time) error {
		return p.Reject(adminID, reason, now)
	})
}

func (s *Service) review(ctx context.Context, paymentID id.PaymentID, adminID id.StaffID, event notification.EventType, decide func(*models.Payment, time.Time) error) (*models.Payment, error) {
	if _, err := s.staff.Authorize(ctx, adminID, staffmodels.RoleAdmin); err != nil {
		return nil, err
	}

	var out *models.Payment
	err := s.tx.RunInTx(tx.WithShardKey(ctx, paymentID.String()), func(ctx context.Context) error {
		p, err := s.Get(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := decide(p, requestcontext.Now(ctx).UTC()); err != nil {
			return err
		}
		if err := s.store.UpdateReviewIfPending(ctx, p); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeInvalidState, "payment was already reviewed")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update payment")
		}
		out = p
		return s.emit(ctx, event, p.CandidateID.String(), map[string]any{
			"payment_id":   p.ID.String(),
			"candidate_id": p.CandidateID.String(),
			"status":       p.Status,
			"reason":       p.RejectionReason,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementStatus(string(out.Status))
	s.log(ctx, "payment reviewed",
		"payment_id", out.ID,
		"status", out.Status,
		"admin_id", adminID,
	)
	return out, nil
}

// Get returns a payment or NotFound.
func (s *Service) Get(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	p, err := s.store.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return p, nil
}

// Latest returns the candidate's most recent payment, or nil when none exists.
func (s *Service) Latest(ctx context.Context, candidateID id.CandidateID) (*models.Payment, error) {
	p, err := s.store.Latest(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return p, nil
}

// ConsumeIfVerified binds a verified payment to licenseID. Store sentinels
// (ErrAlreadyUsed, ErrInvalidState, ErrNotFound) are returned unchanged so the
// issuing transaction can tell a lost race from an ineligible payment.
func (s *Service) ConsumeIfVerified(ctx context.Context, paymentID id.PaymentID, candidateID id.CandidateID, licenseID id.LicenseID, at time.Time) error {
	return s.store.ConsumeIfVerified(ctx, paymentID, candidateID, licenseID, at)
}

func (s *Service) CountPending(ctx context.Context) (int, error) {
	n, err := s.store.CountByStatus(ctx, models.StatusPending)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count payments")
	}
	return n, nil
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

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}
