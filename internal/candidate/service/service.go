package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"licensing/internal/candidate/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/email"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/requestcontext"
)

type Store interface {
	CreateIfEmailAvailable(ctx context.Context, c *models.Candidate) error
	FindByID(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	FindByEmail(ctx context.Context, email string) (*models.Candidate, error)
	UpdatePhoto(ctx context.Context, candidateID id.CandidateID, ref string, now time.Time) error
	Count(ctx context.Context) (int, error)
}

// Service manages candidate registration and profile data.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a candidate. Duplicate emails are a Conflict.
func (s *Service) Register(ctx context.Context, reg models.Registration) (*models.Candidate, error) {
	c, err := models.NewCandidate(id.NewCandidateID(), reg.FullName, reg.Email, reg.PhotoRef, requestcontext.Now(ctx).UTC())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.store.CreateIfEmailAvailable(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register candidate")
	}

	s.log(ctx, "candidate registered", "candidate_id", c.ID)
	return c, nil
}

// Get returns a candidate or NotFound.
func (s *Service) Get(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	c, err := s.store.FindByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	return c, nil
}

// Exists reports whether a candidate is registered.
func (s *Service) Exists(ctx context.Context, candidateID id.CandidateID) (bool, error) {
	_, err := s.Get(ctx, candidateID)
	if err == nil {
		return true, nil
	}
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count candidates")
	}
	return n, nil
}

// UpdatePhoto replaces the candidate's photo reference.
func (s *Service) UpdatePhoto(ctx context.Context, candidateID id.CandidateID, ref string) (*models.Candidate, error) {
	c, err := s.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyPhoto(ref, requestcontext.Now(ctx).UTC()); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.store.UpdatePhoto(ctx, c.ID, c.PhotoRef, c.UpdatedAt); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update photo")
	}
	s.log(ctx, "candidate photo updated", "candidate_id", c.ID)
	return c, nil
}

// ImportReport summarises a legacy import.
type ImportReport struct {
	Imported int
	Skipped  int
	Errors   []string
}

// ImportLegacy registers candidates from legacy records. Records without a
// name take one derived from the email. Records that fail validation or
// collide on email are skipped and reported.
func (s *Service) ImportLegacy(ctx context.Context, records []map[string]any) ImportReport {
	var report ImportReport
	for i, rec := range records {
		reg := models.FromLegacy(rec)
		if reg.FullName == "" {
			reg.FullName = email.DeriveName(reg.Email)
		}
		if _, err := s.Register(ctx, reg); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, recordError(i, reg.Email, err))
			continue
		}
		report.Imported++
	}
	return report
}

func recordError(i int, email string, err error) string {
	if email == "" {
		email = "<no email>"
	}
	return fmt.Sprintf("record %d (%s): %s", i, email, err.Error())
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}
