package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"licensing/internal/exam/metrics"
	"licensing/internal/exam/models"
	"licensing/internal/notification"
	staffmodels "licensing/internal/staff/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
	"licensing/pkg/requestcontext"
)

type Store interface {
	CreateSchedule(ctx context.Context, sch *models.ExamSchedule) error
	FindSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.ExamSchedule, error)
	UpdateScheduleIfUnchanged(ctx context.Context, updated *models.ExamSchedule, status models.ScheduleStatus, examinerID id.StaffID) error
	ListSchedulesByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamSchedule, error)
	ListSchedulesByStatus(ctx context.Context, status models.ScheduleStatus) ([]*models.ExamSchedule, error)
	CountSchedulesByStatus(ctx context.Context, status models.ScheduleStatus) (int, error)
	AppendResult(ctx context.Context, r *models.ExamResult) error
	LatestResult(ctx context.Context, candidateID id.CandidateID, kind models.Kind) (*models.ExamResult, error)
	ListResults(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamResult, error)
	PassRate(ctx context.Context, kind models.Kind) (passed, total int, err error)
}

// CandidateChecker confirms a candidate is registered.
type CandidateChecker interface {
	Exists(ctx context.Context, candidateID id.CandidateID) (bool, error)
}

// StaffAuthorizer resolves an admin or examiner id.
type StaffAuthorizer interface {
	Authorize(ctx context.Context, staffID id.StaffID, role staffmodels.Role) (*staffmodels.Staff, error)
}

// EventEmitter appends notification events inside the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, eventType notification.EventType, aggregateID string, payload any) error
}

// Config holds grading and window parameters.
type Config struct {
	PassThreshold int
	Window        models.Window
}

// DefaultConfig passes at 50 and opens the window two hours before the slot
// until four hours after it.
func DefaultConfig() Config {
	return Config{
		PassThreshold: 50,
		Window:        models.Window{OpensBefore: 2 * time.Hour, ClosesAfter: 4 * time.Hour},
	}
}

// Service owns exam schedules and the exam result record.
type Service struct {
	store      Store
	tx         tx.Runner
	candidates CandidateChecker
	staff      StaffAuthorizer
	events     EventEmitter
	cfg        Config
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

func New(store Store, runner tx.Runner, candidates CandidateChecker, staff StaffAuthorizer, opts ...Option) *Service {
	s := &Service{
		store:      store,
		tx:         runner,
		candidates: candidates,
		staff:      staff,
		cfg:        DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookRequest describes a new exam slot.
type BookRequest struct {
	CandidateID id.CandidateID
	Kind        models.Kind
	SlotAt      time.Time
	Location    string
}

// Book creates a schedule in the scheduled state.
func (s *Service) Book(ctx context.Context, req BookRequest) (*models.ExamSchedule, error) {
	if err := s.requireCandidate(ctx, req.CandidateID); err != nil {
		return nil, err
	}
	kind, err := models.ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	sch, err := models.NewSchedule(req.CandidateID, kind, req.SlotAt, req.Location, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateSchedule(ctx, sch); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to book exam")
	}
	s.metrics.IncrementTransition(string(sch.Status))
	s.log(ctx, "exam booked",
		"schedule_id", sch.ID,
		"candidate_id", sch.CandidateID,
		"kind", sch.Kind,
	)
	return sch, nil
}

// Approve moves a scheduled exam to approved.
func (s *Service) Approve(ctx context.Context, scheduleID id.ScheduleID, adminID id.StaffID) (*models.ExamSchedule, error) {
	if _, err := s.staff.Authorize(ctx, adminID, staffmodels.RoleAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scheduleID, notification.EventExamApproved, func(sch *models.ExamSchedule, now time.Time) error {
		return sch.Approve(now)
	})
}

// Reject moves a scheduled exam to rejected; reason becomes the admin message.
func (s *Service) Reject(ctx context.Context, scheduleID id.ScheduleID, adminID id.StaffID, reason string) (*models.ExamSchedule, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	if _, err := s.staff.Authorize(ctx, adminID, staffmodels.RoleAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scheduleID, notification.EventExamRejected, func(sch *models.ExamSchedule, now time.Time) error {
		return sch.Reject(reason, now)
	})
}

// Cancel withdraws an approved exam. The actor is either the owning
// candidate or an active admin.
func (s *Service) Cancel(ctx context.Context, scheduleID id.ScheduleID, actorID uuid.UUID) (*models.ExamSchedule, error) {
	sch, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if uuid.UUID(sch.CandidateID) != actorID {
		if _, err := s.staff.Authorize(ctx, id.StaffID(actorID), staffmodels.RoleAdmin); err != nil {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the candidate or an admin may cancel this exam")
		}
	}
	return s.mutate(ctx, scheduleID, "", func(sch *models.ExamSchedule, now time.Time) error {
		return sch.Cancel(now)
	})
}

// AssignExaminer lets an examiner claim an unassigned approved exam.
func (s *Service) AssignExaminer(ctx context.Context, scheduleID id.ScheduleID, examinerID id.StaffID) (*models.ExamSchedule, error) {
	if _, err := s.staff.Authorize(ctx, examinerID, staffmodels.RoleExaminer); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scheduleID, "", func(sch *models.ExamSchedule, now time.Time) error {
		return sch.AssignExaminer(examinerID, now)
	})
}

// Begin records the candidate starting the exam. Outside the window it fails
// with OutOfWindow.
func (s *Service) Begin(ctx context.Context, scheduleID id.ScheduleID, candidateID id.CandidateID) (*models.ExamSchedule, error) {
	return s.mutate(ctx, scheduleID, "", func(sch *models.ExamSchedule, now time.Time) error {
		return sch.Begin(candidateID, now, s.cfg.Window)
	})
}

// Grade completes the exam and appends its result in the same transaction.
func (s *Service) Grade(ctx context.Context, scheduleID id.ScheduleID, examinerID id.StaffID, score int) (*models.ExamResult, error) {
	if _, err := s.staff.Authorize(ctx, examinerID, staffmodels.RoleExaminer); err != nil {
		return nil, err
	}

	var result *models.ExamResult
	var graded *models.ExamSchedule
	err := s.tx.RunInTx(tx.WithShardKey(ctx, scheduleID.String()), func(ctx context.Context) error {
		sch, err := s.loadSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		prevStatus, prevExaminer := sch.Status, sch.ExaminerID
		result, err = sch.Grade(examinerID, score, s.cfg.PassThreshold, requestcontext.Now(ctx).UTC())
		if err != nil {
			return err
		}
		if err := s.store.UpdateScheduleIfUnchanged(ctx, sch, prevStatus, prevExaminer); err != nil {
			return translateUpdate(err)
		}
		if err := s.store.AppendResult(ctx, result); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record exam result")
		}
		graded = sch
		return s.emit(ctx, notification.EventExamGraded, sch.CandidateID.String(), resultPayload(result))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(graded.Status))
	s.metrics.IncrementResult(string(result.Kind), result.Passed)
	s.log(ctx, "exam graded",
		"schedule_id", scheduleID,
		"candidate_id", result.CandidateID,
		"kind", result.Kind,
		"passed", result.Passed,
	)
	return result, nil
}

// RecordRequest is a result entered directly by an admin, without a schedule.
type RecordRequest struct {
	CandidateID id.CandidateID
	Kind        models.Kind
	Score       int
	TakenAt     time.Time
	Location    string
	ExaminerID  id.StaffID
}

// RecordResult appends an externally held exam result.
func (s *Service) RecordResult(ctx context.Context, adminID id.StaffID, req RecordRequest) (*models.ExamResult, error) {
	if _, err := s.staff.Authorize(ctx, adminID, staffmodels.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.requireCandidate(ctx, req.CandidateID); err != nil {
		return nil, err
	}
	kind, err := models.ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).UTC()
	takenAt := req.TakenAt.UTC()
	if req.TakenAt.IsZero() {
		takenAt = now
	}
	if takenAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "taken_at must not be in the future")
	}
	examiner := req.ExaminerID
	if examiner.IsNil() {
		examiner = adminID
	}
	result, err := models.NewResult(req.CandidateID, kind, req.Score, s.cfg.PassThreshold, takenAt, req.Location, examiner, id.ScheduleID{})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(tx.WithShardKey(ctx, req.CandidateID.String()), func(ctx context.Context) error {
		if err := s.store.AppendResult(ctx, result); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record exam result")
		}
		return s.emit(ctx, notification.EventExamGraded, result.CandidateID.String(), resultPayload(result))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementResult(string(result.Kind), result.Passed)
	s.log(ctx, "exam result recorded",
		"candidate_id", result.CandidateID,
		"kind", result.Kind,
		"passed", result.Passed,
	)
	return result, nil
}

// LatestResult returns the authoritative result for kind, or nil when the
// candidate has none.
func (s *Service) LatestResult(ctx context.Context, candidateID id.CandidateID, kind models.Kind) (*models.ExamResult, error) {
	r, err := s.store.LatestResult(ctx, candidateID, kind)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exam result")
	}
	return r, nil
}

func (s *Service) ListResults(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamResult, error) {
	results, err := s.store.ListResults(ctx, candidateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list exam results")
	}
	return results, nil
}

func (s *Service) ListSchedules(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamSchedule, error) {
	schedules, err := s.store.ListSchedulesByCandidate(ctx, candidateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list exam schedules")
	}
	return schedules, nil
}

// ListByStatus backs the admin queue views.
func (s *Service) ListByStatus(ctx context.Context, status models.ScheduleStatus) ([]*models.ExamSchedule, error) {
	schedules, err := s.store.ListSchedulesByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list exam schedules")
	}
	return schedules, nil
}

// ListPendingSchedules returns bookings awaiting an admin decision.
func (s *Service) ListPendingSchedules(ctx context.Context) ([]*models.ExamSchedule, error) {
	return s.ListByStatus(ctx, models.StatusScheduled)
}

func (s *Service) CountPendingSchedules(ctx context.Context) (int, error) {
	n, err := s.store.CountSchedulesByStatus(ctx, models.StatusScheduled)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count exam schedules")
	}
	return n, nil
}

// PassRate is the share of candidates whose latest result of kind passed.
// It is zero when nobody has sat the exam.
func (s *Service) PassRate(ctx context.Context, kind models.Kind) (float64, error) {
	passed, total, err := s.store.PassRate(ctx, kind)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute pass rate")
	}
	if total == 0 {
		return 0, nil
	}
	return float64(passed) / float64(total), nil
}

func (s *Service) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.ExamSchedule, error) {
	return s.loadSchedule(ctx, scheduleID)
}

func (s *Service) loadSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.ExamSchedule, error) {
	sch, err := s.store.FindSchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "exam schedule not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exam schedule")
	}
	return sch, nil
}

// mutate applies fn to the stored schedule and writes it back only if no
// concurrent transition happened in between. A non-empty event is emitted in
// the same transaction.
func (s *Service) mutate(ctx context.Context, scheduleID id.ScheduleID, event notification.EventType, fn func(*models.ExamSchedule, time.Time) error) (*models.ExamSchedule, error) {
	var out *models.ExamSchedule
	err := s.tx.RunInTx(tx.WithShardKey(ctx, scheduleID.String()), func(ctx context.Context) error {
		sch, err := s.loadSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		prevStatus, prevExaminer := sch.Status, sch.ExaminerID
		if err := fn(sch, requestcontext.Now(ctx).UTC()); err != nil {
			return err
		}
		if err := s.store.UpdateScheduleIfUnchanged(ctx, sch, prevStatus, prevExaminer); err != nil {
			return translateUpdate(err)
		}
		out = sch
		if event == "" {
			return nil
		}
		return s.emit(ctx, event, sch.CandidateID.String(), schedulePayload(sch))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementTransition(string(out.Status))
	s.log(ctx, "exam schedule updated",
		"schedule_id", out.ID,
		"status", out.Status,
	)
	return out, nil
}

func translateUpdate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "exam schedule not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "exam schedule was changed concurrently")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update exam schedule")
	}
}

func (s *Service) requireCandidate(ctx context.Context, candidateID id.CandidateID) error {
	ok, err := s.candidates.Exists(ctx, candidateID)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "candidate not found")
	}
	return nil
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

func schedulePayload(sch *models.ExamSchedule) map[string]any {
	return map[string]any{
		"schedule_id":   sch.ID.String(),
		"candidate_id":  sch.CandidateID.String(),
		"kind":          sch.Kind,
		"slot_at":       sch.SlotAt,
		"status":        sch.Status,
		"admin_message": sch.AdminMessage,
	}
}

func resultPayload(r *models.ExamResult) map[string]any {
	return map[string]any{
		"result_id":    r.ID.String(),
		"candidate_id": r.CandidateID.String(),
		"kind":         r.Kind,
		"score":        r.Score,
		"passed":       r.Passed,
		"taken_at":     r.TakenAt,
	}
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}
