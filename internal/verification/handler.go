package verification

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vitalreg/internal/transport/http/shared"
	"vitalreg/pkg/requestcontext"
)

// Verifier is the lookup operation the handler depends on.
type Verifier interface {
	Verify(ctx context.Context, certificateNumber string) (Result, error)
}

// VerifyResponse is the public lookup payload. Metadata fields appear only
// on a valid certificate.
type VerifyResponse struct {
	Valid         bool   `json:"valid"`
	Type          string `json:"type,omitempty"`
	ApplicationID string `json:"applicationId,omitempty"`
	IssuedDate    string `json:"issuedDate,omitempty"`
	IssuingOffice string `json:"issuingOffice,omitempty"`
}

// Handler serves the public verification endpoint.
type Handler struct {
	service Verifier
	logger  *slog.Logger
}

// NewHandler constructs a verification handler.
func NewHandler(service Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the public verification endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/verify/{certificateNumber}", h.HandleVerify)
}

// HandleVerify handles GET /api/verify/{certificateNumber}.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.Verify(ctx, chi.URLParam(r, "certificateNumber"))
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	resp := VerifyResponse{Valid: result.Valid}
	if result.Valid {
		resp.Type = result.Type
		resp.ApplicationID = result.ApplicationID
		resp.IssuedDate = result.IssuedDate.Format(time.RFC3339)
		resp.IssuingOffice = result.IssuingOffice
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
