package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"licensing/internal/candidate/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/httputil"
	"licensing/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/candidate-mocks.go -package=mocks Service

// Service defines the candidate operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, reg models.Registration) (*models.Candidate, error)
	Get(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	UpdatePhoto(ctx context.Context, candidateID id.CandidateID, ref string) (*models.Candidate, error)
}

// Handler serves candidate endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts candidate routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/candidates", h.HandleRegister)
	r.Get("/candidates/{candidateID}", h.HandleGet)
	r.Put("/candidates/{candidateID}/photo", h.HandleUpdatePhoto)
}

// HandleRegister handles POST /candidates.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Register(ctx, req.ToRegistration())
	if err != nil {
		h.logger.WarnContext(ctx, "candidate registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(c))
}

// HandleGet handles GET /candidates/{candidateID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

// HandleUpdatePhoto handles PUT /candidates/{candidateID}/photo.
func (h *Handler) HandleUpdatePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdatePhotoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.UpdatePhoto(ctx, candidateID, req.PhotoRef)
	if err != nil {
		h.logger.WarnContext(ctx, "candidate photo update failed",
			"request_id", requestID,
			"candidate_id", candidateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}
