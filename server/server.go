// Package server exposes extraction over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/extraction"
	"github.com/wudi/resumetext/observability"
	"github.com/wudi/resumetext/security"
)

// FormField is the multipart field carrying the upload.
const FormField = "file"

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// multipart overhead allowed on top of the largest accepted file.
const formOverhead = 1 << 20

// Extractor is the extraction entry point the server calls.
type Extractor interface {
	Extract(ctx context.Context, src document.Source) (*extraction.Result, error)
}

// Server serves the extraction API.
type Server struct {
	extractor Extractor
	limits    security.Limits
	logger    observability.Logger
}

// New returns a Server.
func New(ext Extractor, limits security.Limits, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Server{extractor: ext, limits: limits, logger: logger}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/v1/extract", s.handleExtract)
	return r
}

type extractResponse struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Method    string `json:"method"`
	Pages     int    `json:"pages"`
	Fallback  string `json:"fallback,omitempty"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	id := RequestIDFrom(r.Context())
	log := s.logger.With(observability.String("request_id", id))

	maxBody := max(s.limits.MaxPDFSize, s.limits.MaxImageSize) + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	file, header, err := r.FormFile(FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, id, http.StatusRequestEntityTooLarge, "File size exceeds the maximum allowed upload size.", security.ReasonSize)
			return
		}
		s.fail(w, id, http.StatusBadRequest, "No file selected", security.ReasonMissing)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, id, http.StatusBadRequest, "Failed to read file", "")
		return
	}

	mimeType := resolveMIME(header.Header.Get("Content-Type"), header.Filename, data)
	if err := s.limits.Check(mimeType, int64(len(data))); err != nil {
		var ve *security.ValidationError
		status := http.StatusBadRequest
		reason := ""
		if errors.As(err, &ve) {
			reason = ve.Reason
			switch ve.Reason {
			case security.ReasonSize:
				status = http.StatusRequestEntityTooLarge
			case security.ReasonType:
				status = http.StatusUnsupportedMediaType
			}
		}
		log.Info("upload rejected", observability.String("mime", mimeType), observability.String("reason", reason))
		s.fail(w, id, status, err.Error(), reason)
		return
	}

	ctx := r.Context()
	if s.limits.MaxExtractTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.limits.MaxExtractTime)
		defer cancel()
	}
	src := document.Source{
		Data: data,
		Kind: document.DetectKind(mimeType, header.Filename, data),
		Name: header.Filename,
	}
	start := time.Now()
	res, err := s.extractor.Extract(ctx, src)
	if err != nil {
		status, kind := statusFor(err)
		log.Warn("extract failed",
			observability.String("kind", kind),
			observability.Int("status", status),
			observability.Error("error", err),
		)
		s.fail(w, id, status, extraction.UserMessage(err), kind)
		return
	}
	log.Info("extract served",
		observability.String("method", string(res.Method)),
		observability.Int("pages", res.Pages),
		observability.Duration("took", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, extractResponse{
		RequestID: id,
		Text:      res.Text,
		Method:    string(res.Method),
		Pages:     res.Pages,
		Fallback:  string(res.Fallback),
	})
}

func (s *Server) fail(w http.ResponseWriter, id string, status int, msg, kind string) {
	writeJSON(w, status, errorResponse{RequestID: id, Error: msg, Kind: kind})
}

// statusFor maps an extraction failure to an HTTP status and error kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return 499, "canceled"
	}
	switch extraction.KindOf(err) {
	case extraction.KindUnsupportedType:
		return http.StatusUnsupportedMediaType, string(extraction.KindUnsupportedType)
	case extraction.KindPasswordProtected, extraction.KindInvalidDocument,
		extraction.KindUnreadableDocument, extraction.KindNoTextInImage,
		extraction.KindImageExtraction:
		return http.StatusUnprocessableEntity, string(extraction.KindOf(err))
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// resolveMIME prefers the declared part type, then the content, then the
// file extension.
func resolveMIME(declared, name string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if sniffed := document.SniffMIME(data); sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/") {
		return sniffed
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return "application/octet-stream"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ctxKey struct{}

// requestID assigns each request a UUID, honouring a valid incoming one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestIDFrom returns the request id stored by the router, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
