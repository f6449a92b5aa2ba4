package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"licensing/internal/eligibility"
	"licensing/internal/license/models"
	"licensing/internal/notification"
	staffmodels "licensing/internal/staff/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
	"licensing/pkg/requestcontext"
)

// IssueRequest asks for a license for one candidate.
type IssueRequest struct {
	CandidateID id.CandidateID
	AdminID     id.StaffID
	Class       string
	AdminNotes  string
}

// IssueResult is the license the candidate holds after the call. WasCreated
// is false when an earlier call (or a concurrent one) already issued it.
type IssueResult struct {
	License    *models.License
	WasCreated bool
}

// Issue mints the candidate's license at most once.
//
// The existing-license check is only a fast path. The authoritative guard is
// the transaction: the funding payment is consumed with a conditional write
// and the license insert is refused by the one-active-per-candidate index, so
// a concurrent loser rolls back and observes the winner's license.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	ctx, span := s.tracer.Start(ctx, "license.Issue",
		trace.WithAttributes(attribute.String("candidate_id", req.CandidateID.String())))
	defer span.End()
	start := time.Now()

	res, err := s.issue(ctx, req)
	s.metrics.ObserveIssueLatency(time.Since(start))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotEligible) {
			s.metrics.IncrementIssuance("not_eligible")
		} else {
			s.metrics.IncrementIssuance("error")
		}
		return nil, fail(span, err)
	}

	outcome := "existing"
	if res.WasCreated {
		outcome = "created"
	}
	s.metrics.IncrementIssuance(outcome)
	span.SetAttributes(
		attribute.Bool("was_created", res.WasCreated),
		attribute.String("license_number", res.License.Number),
	)
	s.log(ctx, "license issuance handled",
		"candidate_id", req.CandidateID,
		"license_id", res.License.ID,
		"license_number", res.License.Number,
		"was_created", res.WasCreated,
		"admin_id", req.AdminID,
	)
	return res, nil
}

func (s *Service) issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if _, err := s.staff.Authorize(ctx, req.AdminID, staffmodels.RoleAdmin); err != nil {
		return nil, err
	}
	class, err := models.ParseClass(req.Class, s.cfg.DefaultClass)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).UTC()

	current, err := s.findActive(ctx, req.CandidateID)
	if err != nil {
		return nil, err
	}
	if current != nil && !current.ExpiredAt(now) {
		return &IssueResult{License: current.AsOf(now)}, nil
	}

	verdict, err := s.eligibility.Evaluate(ctx, req.CandidateID)
	if err != nil {
		return nil, err
	}
	if !verdict.Eligible {
		return nil, dErrors.WithDetails(dErrors.CodeNotEligible, notEligibleMessage(verdict), verdict)
	}

	for attempt := 1; attempt <= s.cfg.NumberAttempts; attempt++ {
		l, err := s.mint(req, class, verdict.PaymentID, now)
		if err != nil {
			return nil, err
		}
		err = s.tx.RunInTx(tx.WithShardKey(ctx, req.CandidateID.String()), func(ctx context.Context) error {
			return s.persist(ctx, l, current, now)
		})
		switch {
		case err == nil:
			return &IssueResult{License: l, WasCreated: true}, nil
		case errors.Is(err, models.ErrNumberTaken):
			s.metrics.IncrementNumberCollision()
			s.log(ctx, "license number collision, retrying",
				"candidate_id", req.CandidateID,
				"attempt", attempt,
			)
		case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrAlreadyUsed):
			return s.resolveLostRace(ctx, req.CandidateID, now)
		case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.WithDetails(dErrors.CodeNotEligible, "the funding payment is no longer verified", verdict)
		default:
			if _, coded := dErrors.As(err); coded {
				return nil, err
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue license")
		}
	}
	return nil, dErrors.New(dErrors.CodeInternal,
		fmt.Sprintf("could not allocate a unique license number in %d attempts", s.cfg.NumberAttempts))
}

func (s *Service) mint(req IssueRequest, class models.Class, paymentID id.PaymentID, now time.Time) (*models.License, error) {
	number, err := s.numbers(s.cfg.Jurisdiction, now.Year())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate license number")
	}
	return models.NewLicense(models.Issuance{
		CandidateID:   req.CandidateID,
		Number:        number,
		Class:         class,
		IssuedBy:      req.AdminID,
		AdminNotes:    req.AdminNotes,
		PaymentID:     paymentID,
		IssuedAt:      now,
		ValidityYears: s.cfg.ValidityYears,
		Points:        s.cfg.InitialPoints,
	})
}

// persist runs inside the issuing transaction. Store sentinels are returned
// unwrapped so Issue can classify the failure after rollback.
func (s *Service) persist(ctx context.Context, l *models.License, elapsed *models.License, now time.Time) error {
	if elapsed != nil {
		renewed := *elapsed
		if err := renewed.Expire(now); err != nil {
			return err
		}
		if err := s.store.UpdateStatus(ctx, &renewed, models.StatusActive); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return sentinel.ErrConflict
			}
			return err
		}
	}
	if err := s.payments.ConsumeIfVerified(ctx, l.PaymentID, l.CandidateID, l.ID, now); err != nil {
		return err
	}
	if err := s.store.CreateIfAbsent(ctx, l); err != nil {
		return err
	}
	return s.emit(ctx, notification.EventLicenseIssued, l.CandidateID.String(), licensePayload(l))
}

// resolveLostRace runs after a rolled back issuance: either another request
// issued the license, or the payment went to a license that no longer holds
// the active slot.
func (s *Service) resolveLostRace(ctx context.Context, candidateID id.CandidateID, now time.Time) (*IssueResult, error) {
	existing, err := s.findActive(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.ExpiredAt(now) {
		return &IssueResult{License: existing.AsOf(now)}, nil
	}
	return nil, dErrors.New(dErrors.CodeNotEligible, "the verified payment already funded another license")
}

func notEligibleMessage(v *eligibility.Verdict) string {
	if len(v.Unmet) == 0 {
		return "candidate is not eligible for a license"
	}
	unmet := make([]string, len(v.Unmet))
	for i, r := range v.Unmet {
		unmet[i] = string(r)
	}
	return "candidate is not eligible for a license: unmet " + strings.Join(unmet, ", ")
}
