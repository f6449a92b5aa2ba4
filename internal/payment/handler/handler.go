package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"licensing/internal/payment/models"
	"licensing/internal/payment/service"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/httputil"
	"licensing/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/payment-mocks.go -package=mocks Service

// Service defines the payment operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*models.Payment, error)
	Verify(ctx context.Context, paymentID id.PaymentID, adminID id.StaffID) (*models.Payment, error)
	Reject(ctx context.Context, paymentID id.PaymentID, adminID id.StaffID, reason string) (*models.Payment, error)
	Get(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	Latest(ctx context.Context, candidateID id.CandidateID) (*models.Payment, error)
}

// Handler serves payment endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts payment routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payments", h.HandleSubmit)
	r.Get("/payments/{paymentID}", h.HandleGet)
	r.Post("/payments/{paymentID}/verify", h.HandleVerify)
	r.Post("/payments/{paymentID}/reject", h.HandleReject)
	r.Get("/candidates/{candidateID}/payments/latest", h.HandleLatest)
}

// HandleSubmit handles POST /payments.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
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
	p, err := h.service.Submit(ctx, service.SubmitRequest{
		CandidateID: candidateID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "payment submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /payments/{paymentID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), paymentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleLatest handles GET /candidates/{candidateID}/payments/latest.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Latest(r.Context(), candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if p == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "candidate has no payments"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleVerify handles POST /payments/{paymentID}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	adminID, err := staffActor(ctx, req.AdminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Verify(ctx, paymentID, adminID)
	if err != nil {
		h.logger.WarnContext(ctx, "payment verification failed",
			"request_id", requestID,
			"payment_id", paymentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleReject handles POST /payments/{paymentID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	adminID, err := staffActor(ctx, req.AdminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Reject(ctx, paymentID, adminID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "payment rejection failed",
			"request_id", requestID,
			"payment_id", paymentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func staffActor(ctx context.Context, bodyID string) (id.StaffID, error) {
	raw, err := requestcontext.ActorID(ctx, bodyID)
	if err != nil {
		return id.StaffID{}, err
	}
	return id.ParseStaffID(raw)
}
