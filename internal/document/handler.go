package document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vitalreg/internal/transport/http/shared"
	dErrors "vitalreg/pkg/domain-errors"
	"vitalreg/pkg/requestcontext"
)

// uploadField is the multipart form field carrying the file.
const uploadField = "document"

// maxRequestOverhead covers the non-file multipart fields when bounding the
// request body.
const maxRequestOverhead = 64 * 1024

// Attacher defines the document operations the handler depends on.
type Attacher interface {
	Attach(ctx context.Context, params AttachParams, content io.Reader) (*Document, error)
	ListForApplication(ctx context.Context, applicationID, applicationType string) ([]*Document, error)
	MaxUploadBytes() int64
}

// DocumentResponse is the API shape of a document record.
type DocumentResponse struct {
	ID              int64     `json:"id"`
	ApplicationID   string    `json:"applicationId"`
	ApplicationType string    `json:"applicationType"`
	DocumentType    string    `json:"documentType,omitempty"`
	FileName        string    `json:"fileName"`
	FileSize        int64     `json:"fileSize"`
	MimeType        string    `json:"mimeType"`
	UploadedBy      string    `json:"uploadedBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewDocumentResponse maps a record to its API shape.
func NewDocumentResponse(doc *Document) DocumentResponse {
	return DocumentResponse{
		ID:              doc.ID,
		ApplicationID:   doc.ApplicationID,
		ApplicationType: doc.ApplicationType,
		DocumentType:    doc.DocumentType,
		FileName:        doc.FileName,
		FileSize:        doc.FileSize,
		MimeType:        doc.MimeType,
		UploadedBy:      doc.UploadedBy,
		CreatedAt:       doc.CreatedAt,
	}
}

// Handler serves the document upload and listing endpoints.
type Handler struct {
	service Attacher
	logger  *slog.Logger
}

// NewHandler constructs a document handler.
func NewHandler(service Attacher, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the document endpoints. The router applies the session
// requirement to this group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/documents/upload", h.HandleUpload)
	r.Get("/api/documents/{applicationId}/{applicationType}", h.HandleList)
}

// HandleUpload handles POST /api/documents/upload. The multipart body is
// bounded a little above the file ceiling so an oversized upload fails
// cleanly instead of streaming to disk first.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := h.service.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+maxRequestOverhead)
	if err := r.ParseMultipartForm(limit + maxRequestOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, sizeLimitMessage(limit)))
			return
		}
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid multipart request"))
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "No document uploaded"))
		return
	}
	defer file.Close()

	params := AttachParams{
		ApplicationID:   r.FormValue("applicationId"),
		ApplicationType: r.FormValue("applicationType"),
		DocumentType:    r.FormValue("documentType"),
		FileName:        header.Filename,
		FileSize:        header.Size,
		MimeType:        header.Header.Get("Content-Type"),
		UploaderID:      requestcontext.UserID(ctx),
	}
	if params.ApplicationID == "" {
		shared.WriteError(w, dErrors.NewValidation("Validation failed", map[string]string{
			"applicationId": "this field is required",
		}))
		return
	}

	doc, err := h.service.Attach(ctx, params, file)
	if err != nil {
		h.logger.InfoContext(ctx, "document upload rejected",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", params.ApplicationID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, NewDocumentResponse(doc))
}

// HandleList handles GET /api/documents/{applicationId}/{applicationType}.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.service.ListForApplication(ctx,
		chi.URLParam(r, "applicationId"),
		chi.URLParam(r, "applicationType"),
	)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, NewDocumentResponse(doc))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
