package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"licensing/internal/admin"
	"licensing/pkg/platform/httputil"
	"licensing/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/admin-mocks.go -package=mocks Service

// Service defines the dashboard operations exposed over HTTP.
type Service interface {
	Stats(ctx context.Context) (*admin.Stats, error)
}

// Handler serves the admin dashboard.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/dashboard", h.HandleDashboard)
}

// HandleDashboard handles GET /admin/dashboard.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard figures failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin.NewDashboardResponse(st))
}
