package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"vitalreg/internal/audit"
	"vitalreg/internal/registration/models"
	dErrors "vitalreg/pkg/domain-errors"
	"vitalreg/pkg/requestcontext"
)

// MaxFileSize is the default upload size ceiling; Config.MaxFileSize
// overrides it.
const MaxFileSize = 5 * 1024 * 1024

// allowedMimeTypes is the upload allow-list. Registry offices accept
// scanned forms and photos, nothing else.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// AttachParams describes one upload to associate with an application.
type AttachParams struct {
	ApplicationID   string
	ApplicationType string
	DocumentType    string
	FileName        string
	FileSize        int64
	MimeType        string
	UploaderID      string
}

// Service validates uploads and persists their association records.
type Service struct {
	store       Store
	storage     Storage
	publisher   *audit.Publisher
	logger      *slog.Logger
	maxFileSize int64
}

// Config carries the service dependencies.
type Config struct {
	Store     Store
	Storage   Storage
	Publisher *audit.Publisher
	Logger    *slog.Logger

	// MaxFileSize bounds uploads in bytes; zero means MaxFileSize.
	MaxFileSize int64
}

// New constructs the document service.
func New(cfg Config) *Service {
	maxFileSize := cfg.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}
	return &Service{
		store:       cfg.Store,
		storage:     cfg.Storage,
		publisher:   cfg.Publisher,
		logger:      cfg.Logger,
		maxFileSize: maxFileSize,
	}
}

// MaxUploadBytes returns the configured upload size ceiling.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxFileSize
}

// Attach validates the upload, stores its bytes, and persists the metadata
// record. Validation happens before any bytes are written.
func (s *Service) Attach(ctx context.Context, params AttachParams, content io.Reader) (*Document, error) {
	if err := s.validateUpload(params); err != nil {
		return nil, err
	}

	path, err := s.storage.Save(ctx, params.FileName, content)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc := &Document{
		ApplicationID:   params.ApplicationID,
		ApplicationType: params.ApplicationType,
		DocumentType:    params.DocumentType,
		FileName:        params.FileName,
		FilePath:        path,
		FileSize:        params.FileSize,
		MimeType:        params.MimeType,
		UploadedBy:      params.UploaderID,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	s.publish(ctx, doc)
	return doc, nil
}

// ListForApplication returns the documents attached to one application.
func (s *Service) ListForApplication(ctx context.Context, applicationID, applicationType string) ([]*Document, error) {
	if !validApplicationType(applicationType) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid application type")
	}
	return s.store.ListByApplication(ctx, applicationID, applicationType)
}

func (s *Service) validateUpload(params AttachParams) error {
	if !validApplicationType(params.ApplicationType) {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid application type")
	}
	if !allowedMimeTypes[params.MimeType] {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid file type. Only JPEG, PNG and PDF files are allowed")
	}
	if params.FileSize > s.maxFileSize {
		return dErrors.New(dErrors.CodeBadRequest, sizeLimitMessage(s.maxFileSize))
	}
	return nil
}

// sizeLimitMessage renders the rejection message for the configured ceiling.
func sizeLimitMessage(limit int64) string {
	const megabyte = 1 << 20
	if limit >= megabyte && limit%megabyte == 0 {
		return fmt.Sprintf("File too large. Maximum size is %dMB", limit/megabyte)
	}
	return fmt.Sprintf("File too large. Maximum size is %d bytes", limit)
}

func validApplicationType(t string) bool {
	return t == string(models.KindBirth) || t == string(models.KindDeath)
}

func (s *Service) publish(ctx context.Context, doc *Document) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(audit.Event{
		ActorID:   doc.UploadedBy,
		Action:    audit.ActionDocumentUploaded,
		Subject:   doc.ApplicationID,
		Detail:    doc.FileName,
		RequestID: requestcontext.RequestID(ctx),
	})
}
