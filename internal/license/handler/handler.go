package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"licensing/internal/artifact"
	"licensing/internal/license/models"
	"licensing/internal/license/service"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/httputil"
	"licensing/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/license-mocks.go -package=mocks Service

// Service defines the license operations exposed over HTTP.
type Service interface {
	ResolveCandidate(ctx context.Context, raw string) (id.CandidateID, error)
	Issue(ctx context.Context, req service.IssueRequest) (*service.IssueResult, error)
	Get(ctx context.Context, candidateID id.CandidateID) (*models.License, error)
	Download(ctx context.Context, candidateID id.CandidateID) (*artifact.Document, error)
	Revoke(ctx context.Context, licenseID id.LicenseID, adminID id.StaffID, reason string) (*models.License, error)
	Verify(ctx context.Context, payload string) (*service.Verification, error)
}

// Handler serves license endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts license routes. The static verify and download segments
// take precedence over the candidate id pattern.
func (h *Handler) Register(r chi.Router) {
	r.Post("/license/issue/{subjectID}", h.HandleIssue)
	r.Get("/license/verify", h.HandleVerify)
	r.Get("/license/download/{candidateID}", h.HandleDownload)
	r.Get("/license/{candidateID}", h.HandleGet)
	r.Post("/license/{licenseID}/revoke", h.HandleRevoke)
}

// HandleIssue handles POST /license/issue/{subjectID}, where the id names the
// candidate or one of the candidate's payments.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	candidateID, err := h.service.ResolveCandidate(ctx, chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	adminID, err := staffActor(ctx, req.AdminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Issue(ctx, service.IssueRequest{
		CandidateID: candidateID,
		AdminID:     adminID,
		Class:       req.LicenseClass,
		AdminNotes:  req.AdminNotes,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "license issuance failed",
			"request_id", requestID,
			"candidate_id", candidateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if res.WasCreated {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, IssueResponse{
		License:          res.License,
		WasCreated:       res.WasCreated,
		LegacyWasCreated: res.WasCreated,
	})
}

// HandleGet handles GET /license/{candidateID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	candidateID, err := ownCandidate(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	l, err := h.service.Get(r.Context(), candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

// HandleDownload handles GET /license/download/{candidateID}.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := ownCandidate(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.Download(ctx, candidateID)
	if err != nil {
		h.logger.WarnContext(ctx, "license download failed",
			"request_id", requestcontext.RequestID(ctx),
			"candidate_id", candidateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		h.logger.ErrorContext(ctx, "failed to write license document",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// HandleRevoke handles POST /license/{licenseID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	licenseID, err := id.ParseLicenseID(chi.URLParam(r, "licenseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	adminID, err := staffActor(ctx, req.AdminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	l, err := h.service.Revoke(ctx, licenseID, adminID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "license revocation failed",
			"request_id", requestID,
			"license_id", licenseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

// HandleVerify handles GET /license/verify?payload=...
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	payload := strings.TrimSpace(r.URL.Query().Get("payload"))
	if payload == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "payload is required"))
		return
	}
	v, err := h.service.Verify(r.Context(), payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// ownCandidate parses the path candidate and keeps candidates to their own
// license. Staff may read any license.
func ownCandidate(r *http.Request) (id.CandidateID, error) {
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		return id.CandidateID{}, err
	}
	p := requestcontext.PrincipalFrom(r.Context())
	if p.Role == "candidate" && !strings.EqualFold(p.Subject, candidateID.String()) {
		return id.CandidateID{}, dErrors.New(dErrors.CodeForbidden, "candidates may only access their own license")
	}
	return candidateID, nil
}

func staffActor(ctx context.Context, bodyID string) (id.StaffID, error) {
	raw, err := requestcontext.ActorID(ctx, bodyID)
	if err != nil {
		return id.StaffID{}, err
	}
	return id.ParseStaffID(raw)
}
