package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"licensing/internal/eligibility"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/httputil"
	"licensing/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/eligibility-mocks.go -package=mocks Service

// Service defines the eligibility operation exposed over HTTP.
type Service interface {
	Evaluate(ctx context.Context, candidateID id.CandidateID) (*eligibility.Verdict, error)
}

// Handler serves the eligibility endpoint.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts eligibility routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/eligibility/{candidateID}", h.HandleEvaluate)
}

// HandleEvaluate handles GET /eligibility/{candidateID}.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Evaluate(ctx, candidateID)
	if err != nil {
		h.logger.WarnContext(ctx, "eligibility evaluation failed",
			"request_id", requestcontext.RequestID(ctx),
			"candidate_id", candidateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}
