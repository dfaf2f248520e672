package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"studynotes/api/internal/ai"
	"studynotes/api/internal/auth"
	"studynotes/api/internal/content"
	"studynotes/api/internal/document"
	"studynotes/api/internal/export"
)

// maxBodyBytes bounds request bodies; note content is the largest payload.
const maxBodyBytes = 4 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks, ready := s.service.Readiness(ctx)
		status, statusCode := "ready", http.StatusOK
		if !ready {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     ready,
			"status": status,
			"checks": checks,
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "notes":
		if len(parts) == 2 {
			s.handleNotesCollection(w, r, session)
			return
		}
		s.handleNote(w, r, session, parts[2], parts[3:])
		return
	case "users":
		if len(parts) == 4 && parts[3] == "notes" && r.Method == http.MethodGet {
			page, err := ParsePage(r.URL.Query().Get("page"), r.URL.Query().Get("pageSize"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			payload, err := s.service.ListUserNotes(r.Context(), session, parts[2], r.URL.Query().Get("search"), page)
			respond(w, http.StatusOK, payload, err)
			return
		}
	case "search":
		if len(parts) == 2 && r.Method == http.MethodGet {
			query := r.URL.Query()
			page, err := ParsePage(query.Get("page"), query.Get("pageSize"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			payload, err := s.service.SearchNotes(r.Context(), session, query.Get("q"), query.Get("subject"), page)
			respond(w, http.StatusOK, payload, err)
			return
		}
	case "groups":
		s.handleGroups(w, r, session, parts[2:])
		return
	case "import":
		if len(parts) == 3 && parts[2] == "text" && r.Method == http.MethodPost {
			var body ImportTextInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.ImportText(r.Context(), body)
			respond(w, http.StatusOK, payload, err)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleNotesCollection(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		page, err := ParsePage(query.Get("page"), query.Get("pageSize"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		var payload map[string]any
		switch scope := query.Get("scope"); scope {
		case "", "public":
			payload, err = s.service.ListPublicNotes(r.Context(), query.Get("search"), page)
		case "mine":
			payload, err = s.service.ListMyNotes(r.Context(), session, query.Get("search"), page)
		default:
			writeError(w, http.StatusBadRequest, "INVALID_SCOPE", "scope must be public or mine", nil)
			return
		}
		respond(w, http.StatusOK, payload, err)
	case http.MethodPost:
		var body CreateNoteInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateNote(r.Context(), session, body)
		respond(w, http.StatusCreated, payload, err)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleNote(w http.ResponseWriter, r *http.Request, session Session, noteID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetNote(r.Context(), session, noteID)
			respond(w, http.StatusOK, payload, err)
		case http.MethodPut:
			var body UpdateNoteInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateNote(r.Context(), session, noteID, body)
			respond(w, http.StatusOK, payload, err)
		case http.MethodDelete:
			err := s.service.DeleteNote(r.Context(), session, noteID)
			respond(w, http.StatusOK, map[string]any{"ok": true}, err)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	var (
		payload map[string]any
		err     error
	)
	switch {
	case rest[0] == "content" && r.Method == http.MethodGet:
		payload, err = s.service.GetNoteContent(r.Context(), session, noteID)
	case rest[0] == "view" && r.Method == http.MethodGet:
		payload, err = s.service.ViewNote(r.Context(), session, noteID)
	case rest[0] == "summary" && r.Method == http.MethodPost:
		payload, err = s.service.SummarizeNote(r.Context(), session, noteID)
	case rest[0] == "quiz" && r.Method == http.MethodPost:
		payload, err = s.service.QuizNote(r.Context(), session, noteID)
	case rest[0] == "mindmap" && r.Method == http.MethodPost:
		payload, err = s.service.MindmapNote(r.Context(), session, noteID)
	case rest[0] == "export" && r.Method == http.MethodGet:
		s.handleExport(w, r, session, noteID)
		return
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	respond(w, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, session Session, noteID string) {
	format, ok := export.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf', 'docx' or 'md'", nil)
		return
	}
	result, err := s.service.ExportNote(r.Context(), session, noteID, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Type", result.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleGroups(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		query := r.URL.Query()
		page, err := ParsePage(query.Get("page"), query.Get("pageSize"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		payload, err := s.service.ListPublicGroups(r.Context(), query.Get("search"), page)
		respond(w, http.StatusOK, payload, err)
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body CreateGroupInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateGroup(r.Context(), session, body)
		respond(w, http.StatusCreated, payload, err)
	case len(rest) == 2 && rest[1] == "members" && r.Method == http.MethodPost:
		payload, err := s.service.JoinGroup(r.Context(), session, rest[0])
		respond(w, http.StatusOK, payload, err)
	case len(rest) == 2 && rest[1] == "notes" && r.Method == http.MethodGet:
		page, err := ParsePage(r.URL.Query().Get("page"), r.URL.Query().Get("pageSize"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		payload, err := s.service.ListGroupNotes(r.Context(), session, rest[0], page)
		respond(w, http.StatusOK, payload, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, payload)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		log.Printf("app: %s: %v", code, err)
	}
	writeError(w, status, code, message, details)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body too large")
		}
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, document.ErrMalformedContent):
		return http.StatusUnprocessableEntity, "CONTENT_MALFORMED", "Note content is not a valid document", nil
	case errors.Is(err, content.ErrBlobNotFound):
		return http.StatusNotFound, "CONTENT_UNAVAILABLE", "Note content is unavailable", nil
	case errors.Is(err, ai.ErrNotEnoughContent):
		return http.StatusUnprocessableEntity, "NOT_ENOUGH_CONTENT", "Not enough content to work with", nil
	case errors.Is(err, ai.ErrTransformFailed):
		return http.StatusBadGateway, "AI_TRANSFORM_FAILED", "The AI provider could not complete the request", map[string]any{"retryable": true}
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unsupported export format", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export renderer is not installed", nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
