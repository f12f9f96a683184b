package document_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"vitalreg/internal/document"
	"vitalreg/pkg/requestcontext"
	"vitalreg/pkg/testutil"
)

type DocumentSuite struct {
	suite.Suite
	dir     string
	service *document.Service
	router  chi.Router
}

func TestDocumentSuite(t *testing.T) {
	suite.Run(t, new(DocumentSuite))
}

func (s *DocumentSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.service = document.New(document.Config{
		Store:   document.NewInMemoryStore(),
		Storage: document.NewDiskStorage(s.dir),
		Logger:  slog.Default(),
	})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithUserID(r.Context(), "user-1")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	document.NewHandler(s.service, slog.Default()).Register(r)
	s.router = r
}

func (s *DocumentSuite) attach(mimeType string, size int64) (*document.Document, error) {
	return s.service.Attach(context.Background(), document.AttachParams{
		ApplicationID:   "BR2025001",
		ApplicationType: "birth",
		DocumentType:    "hospital_record",
		FileName:        "record.pdf",
		FileSize:        size,
		MimeType:        mimeType,
		UploaderID:      "user-1",
	}, strings.NewReader("file contents"))
}

func (s *DocumentSuite) TestAttach() {
	s.Run("valid upload persists bytes and metadata", func() {
		doc, err := s.attach("application/pdf", 1024)
		s.Require().NoError(err)
		s.NotZero(doc.ID)
		s.Equal("record.pdf", doc.FileName)
		s.Equal(".pdf", filepath.Ext(doc.FilePath))

		data, err := os.ReadFile(doc.FilePath)
		s.Require().NoError(err)
		s.Equal("file contents", string(data))
	})

	s.Run("disallowed mime type is rejected before any write", func() {
		before, _ := os.ReadDir(s.dir)

		_, err := s.attach("application/x-msdownload", 1024)
		s.Require().Error(err)
		s.Contains(err.Error(), "Invalid file type")

		after, _ := os.ReadDir(s.dir)
		s.Len(after, len(before))
	})

	s.Run("oversized file is rejected", func() {
		_, err := s.attach("image/png", document.MaxFileSize+1)
		s.Require().Error(err)
		s.Contains(err.Error(), "File too large")
	})

	s.Run("configured ceiling overrides the default", func() {
		svc := document.New(document.Config{
			Store:       document.NewInMemoryStore(),
			Storage:     document.NewDiskStorage(s.T().TempDir()),
			Logger:      slog.Default(),
			MaxFileSize: 1 << 20,
		})
		s.EqualValues(1<<20, svc.MaxUploadBytes())

		_, err := svc.Attach(context.Background(), document.AttachParams{
			ApplicationID:   "BR2025001",
			ApplicationType: "birth",
			FileName:        "record.pdf",
			FileSize:        (1 << 20) + 1,
			MimeType:        "application/pdf",
			UploaderID:      "user-1",
		}, strings.NewReader("x"))
		s.Require().Error(err)
		s.Contains(err.Error(), "Maximum size is 1MB")

		_, err = svc.Attach(context.Background(), document.AttachParams{
			ApplicationID:   "BR2025001",
			ApplicationType: "birth",
			FileName:        "record.pdf",
			FileSize:        1 << 20,
			MimeType:        "application/pdf",
			UploaderID:      "user-1",
		}, strings.NewReader("x"))
		s.NoError(err)
	})

	s.Run("unknown application type is rejected", func() {
		_, err := s.service.Attach(context.Background(), document.AttachParams{
			ApplicationID:   "BR2025001",
			ApplicationType: "marriage",
			FileName:        "record.pdf",
			FileSize:        1024,
			MimeType:        "application/pdf",
			UploaderID:      "user-1",
		}, strings.NewReader("x"))
		s.Require().Error(err)
	})
}

func (s *DocumentSuite) TestListForApplication() {
	_, err := s.attach("application/pdf", 1024)
	s.Require().NoError(err)
	_, err = s.attach("image/jpeg", 2048)
	s.Require().NoError(err)

	docs, err := s.service.ListForApplication(context.Background(), "BR2025001", "birth")
	s.Require().NoError(err)
	s.Len(docs, 2)

	docs, err = s.service.ListForApplication(context.Background(), "BR2025001", "death")
	s.Require().NoError(err)
	s.Empty(docs)
}

func multipartUpload(t *testing.T, filename, mimeType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="document"; filename="`+filename+`"`)
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create multipart part: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		t.Fatalf("write multipart part: %v", err)
	}
	if err := w.WriteField("applicationId", "BR2025001"); err != nil {
		t.Fatalf("write multipart field: %v", err)
	}
	if err := w.WriteField("applicationType", "birth"); err != nil {
		t.Fatalf("write multipart field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (s *DocumentSuite) TestHandleUpload() {
	s.Run("accepts a pdf upload", func() {
		req := multipartUpload(s.T(), "record.pdf", "application/pdf", []byte("%PDF-1.4 test"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[document.DocumentResponse](s.T(), rr)
		s.Equal("BR2025001", resp.ApplicationID)
		s.Equal("record.pdf", resp.FileName)
		s.Equal("user-1", resp.UploadedBy)
	})

	s.Run("rejects an executable", func() {
		req := multipartUpload(s.T(), "malware.exe", "application/x-msdownload", []byte{0x4d, 0x5a})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorMessage(s.T(), rr, "Invalid file type. Only JPEG, PNG and PDF files are allowed")
	})

	s.Run("rejects a file above the ceiling", func() {
		req := multipartUpload(s.T(), "huge.png", "image/png", bytes.Repeat([]byte("a"), document.MaxFileSize+1))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("bounds the request body by the configured ceiling", func() {
		svc := document.New(document.Config{
			Store:       document.NewInMemoryStore(),
			Storage:     document.NewDiskStorage(s.T().TempDir()),
			Logger:      slog.Default(),
			MaxFileSize: 1 << 20,
		})
		r := chi.NewRouter()
		document.NewHandler(svc, slog.Default()).Register(r)

		req := multipartUpload(s.T(), "huge.png", "image/png", bytes.Repeat([]byte("a"), (1<<20)+(64<<10)+1))
		rr := testutil.DoRequest(r, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorMessage(s.T(), rr, "File too large. Maximum size is 1MB")
	})

	s.Run("requires an application id", func() {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("document", "record.pdf")
		s.Require().NoError(err)
		_, err = part.Write([]byte("x"))
		s.Require().NoError(err)
		s.Require().NoError(w.Close())

		req, err := http.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
		s.Require().NoError(err)
		req.Header.Set("Content-Type", w.FormDataContentType())

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("lists uploaded documents", func() {
		req := multipartUpload(s.T(), "photo.jpg", "image/jpeg", []byte("jpeg-bytes"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		listReq := testutil.NewRequest(s.T(), http.MethodGet, "/api/documents/BR2025001/birth")
		rr = testutil.DoRequest(s.router, listReq)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		list := *testutil.UnmarshalResponse[[]document.DocumentResponse](s.T(), rr)
		s.NotEmpty(list)
	})
}
