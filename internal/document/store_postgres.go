package document

import (
	"context"
	"database/sql"
	"fmt"
)

const documentColumns = `id, application_id, application_type, document_type, file_name,
	file_path, file_size, mime_type, uploaded_by, created_at`

// PostgresStore persists document metadata in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	query := `
		INSERT INTO documents (
			application_id, application_type, document_type, file_name,
			file_path, file_size, mime_type, uploaded_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		doc.ApplicationID, doc.ApplicationType, doc.DocumentType, doc.FileName,
		doc.FilePath, doc.FileSize, doc.MimeType, doc.UploadedBy, doc.CreatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, applicationID, applicationType string) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE application_id = $1 AND application_type = $2
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, applicationID, applicationType)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var (
			doc      Document
			fileSize sql.NullInt64
			mimeType sql.NullString
		)
		err := rows.Scan(
			&doc.ID, &doc.ApplicationID, &doc.ApplicationType, &doc.DocumentType, &doc.FileName,
			&doc.FilePath, &fileSize, &mimeType, &doc.UploadedBy, &doc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.FileSize = fileSize.Int64
		doc.MimeType = mimeType.String
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
