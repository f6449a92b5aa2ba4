package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"licensing/internal/exam/models"
	"licensing/internal/exam/service"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/httputil"
	"licensing/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/exam-mocks.go -package=mocks Service

// Service defines the exam operations exposed over HTTP.
type Service interface {
	Book(ctx context.Context, req service.BookRequest) (*models.ExamSchedule, error)
	Approve(ctx context.Context, scheduleID id.ScheduleID, adminID id.StaffID) (*models.ExamSchedule, error)
	Reject(ctx context.Context, scheduleID id.ScheduleID, adminID id.StaffID, reason string) (*models.ExamSchedule, error)
	Cancel(ctx context.Context, scheduleID id.ScheduleID, actorID uuid.UUID) (*models.ExamSchedule, error)
	AssignExaminer(ctx context.Context, scheduleID id.ScheduleID, examinerID id.StaffID) (*models.ExamSchedule, error)
	Begin(ctx context.Context, scheduleID id.ScheduleID, candidateID id.CandidateID) (*models.ExamSchedule, error)
	Grade(ctx context.Context, scheduleID id.ScheduleID, examinerID id.StaffID, score int) (*models.ExamResult, error)
	RecordResult(ctx context.Context, adminID id.StaffID, req service.RecordRequest) (*models.ExamResult, error)
	GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.ExamSchedule, error)
	ListByStatus(ctx context.Context, status models.ScheduleStatus) ([]*models.ExamSchedule, error)
	ListSchedules(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamSchedule, error)
	ListResults(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamResult, error)
}

// Handler serves exam schedule and result endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts exam routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/exams/schedules", h.HandleBook)
	r.Get("/exams/schedules", h.HandleList)
	r.Get("/exams/schedules/{scheduleID}", h.HandleGet)
	r.Post("/exams/schedules/{scheduleID}/approve", h.HandleApprove)
	r.Post("/exams/schedules/{scheduleID}/reject", h.HandleReject)
	r.Post("/exams/schedules/{scheduleID}/cancel", h.HandleCancel)
	r.Post("/exams/schedules/{scheduleID}/assign", h.HandleAssign)
	r.Post("/exams/schedules/{scheduleID}/begin", h.HandleBegin)
	r.Post("/exams/schedules/{scheduleID}/grade", h.HandleGrade)
	r.Post("/exams/results", h.HandleRecordResult)
	r.Get("/candidates/{candidateID}/exams", h.HandleCandidateExams)
}

// HandleBook handles POST /exams/schedules.
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BookRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	candidateID, err := bookingCandidate(ctx, req.CandidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sch, err := h.service.Book(ctx, service.BookRequest{
		CandidateID: candidateID,
		Kind:        models.Kind(req.Kind),
		SlotAt:      req.SlotAt,
		Location:    req.Location,
	})
	if err != nil {
		h.fail(ctx, w, "exam booking failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sch)
}

// HandleList handles GET /exams/schedules?status=. The default is the
// pending approval queue.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := models.StatusScheduled
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseScheduleStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		status = parsed
	}
	schedules, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ScheduleListResponse{Status: status, Schedules: schedules})
}

// HandleGet handles GET /exams/schedules/{scheduleID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sch, err := h.service.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

// HandleApprove handles POST /exams/schedules/{scheduleID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdminRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	adminID, err := staffActor(ctx, req.AdminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sch, err := h.service.Approve(ctx, scheduleID, adminID)
	if err != nil {
		h.fail(ctx, w, "exam approval failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

// HandleReject handles POST /exams/schedules/{scheduleID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	adminID, err := staffActor(ctx, req.AdminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sch, err := h.service.Reject(ctx, scheduleID, adminID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "exam rejection failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

// HandleCancel handles POST /exams/schedules/{scheduleID}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CancelRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	raw, err := requestcontext.ActorID(ctx, req.ActorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "actor_id must be a valid UUID"))
		return
	}
	sch, err := h.service.Cancel(ctx, scheduleID, actorID)
	if err != nil {
		h.fail(ctx, w, "exam cancellation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

// HandleAssign handles POST /exams/schedules/{scheduleID}/assign.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExaminerRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	examinerID, err := staffActor(ctx, req.ExaminerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sch, err := h.service.AssignExaminer(ctx, scheduleID, examinerID)
	if err != nil {
		h.fail(ctx, w, "examiner assignment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

// HandleBegin handles POST /exams/schedules/{scheduleID}/begin.
func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[BeginRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	raw, err := requestcontext.ActorID(ctx, req.CandidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidateID, err := id.ParseCandidateID(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sch, err := h.service.Begin(ctx, scheduleID, candidateID)
	if err != nil {
		h.fail(ctx, w, "exam begin failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

// HandleGrade handles POST /exams/schedules/{scheduleID}/grade.
func (h *Handler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GradeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	examinerID, err := staffActor(ctx, req.ExaminerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.Grade(ctx, scheduleID, examinerID, *req.Score)
	if err != nil {
		h.fail(ctx, w, "exam grading failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleRecordResult handles POST /exams/results.
func (h *Handler) HandleRecordResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RecordResultRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	adminID, err := staffActor(ctx, req.AdminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidateID, err := id.ParseCandidateID(req.CandidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var examinerID id.StaffID
	if req.ExaminerID != "" {
		if examinerID, err = id.ParseStaffID(req.ExaminerID); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	result, err := h.service.RecordResult(ctx, adminID, service.RecordRequest{
		CandidateID: candidateID,
		Kind:        models.Kind(req.Kind),
		Score:       *req.Score,
		TakenAt:     req.TakenAt,
		Location:    req.Location,
		ExaminerID:  examinerID,
	})
	if err != nil {
		h.fail(ctx, w, "exam result recording failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleCandidateExams handles GET /candidates/{candidateID}/exams.
func (h *Handler) HandleCandidateExams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	schedules, err := h.service.ListSchedules(ctx, candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	results, err := h.service.ListResults(ctx, candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CandidateExamsResponse{Schedules: schedules, Results: results})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func staffActor(ctx context.Context, bodyID string) (id.StaffID, error) {
	raw, err := requestcontext.ActorID(ctx, bodyID)
	if err != nil {
		return id.StaffID{}, err
	}
	return id.ParseStaffID(raw)
}

// bookingCandidate lets staff book for any candidate while a candidate token
// may only book for itself.
func bookingCandidate(ctx context.Context, bodyID string) (id.CandidateID, error) {
	p := requestcontext.PrincipalFrom(ctx)
	if p.IsZero() || p.Role == "candidate" {
		raw, err := requestcontext.ActorID(ctx, bodyID)
		if err != nil {
			return id.CandidateID{}, err
		}
		return id.ParseCandidateID(raw)
	}
	return id.ParseCandidateID(bodyID)
}
