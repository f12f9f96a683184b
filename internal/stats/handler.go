package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vitalreg/internal/transport/http/shared"
	"vitalreg/pkg/requestcontext"
)

// Summarizer is the aggregation operation the handler depends on.
type Summarizer interface {
	Summarize(ctx context.Context) (Summary, error)
}

// Handler serves the dashboard statistics endpoint.
type Handler struct {
	service Summarizer
	logger  *slog.Logger
}

// NewHandler constructs a statistics handler.
func NewHandler(service Summarizer, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the statistics endpoint. The router applies the session
// requirement to this group.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/statistics", h.HandleStatistics)
}

// HandleStatistics handles GET /api/statistics.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.service.Summarize(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "statistics aggregation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, summary)
}
