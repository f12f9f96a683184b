// Package document links uploaded-file metadata to a registration
// application. File bytes live in an opaque blob store; this package owns
// only the association record.
package document

import "time"

// Document is the metadata record for one uploaded file.
type Document struct {
	ID              int64
	ApplicationID   string
	ApplicationType string
	DocumentType    string
	FileName        string
	FilePath        string
	FileSize        int64
	MimeType        string
	UploadedBy      string
	CreatedAt       time.Time
}
