package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mehdiakbarifar/chavosh/internal/identity"
)

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

// callerEmail is the identity the client claims after a successful
// verification. The approval gate revalidates it on every request, so a
// forged header for an unapproved identity buys nothing.
func callerEmail(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Email"))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/verify" {
		s.handleAuthVerify(w, r)
		return
	}

	if r.URL.Path == "/api/messages" {
		switch r.Method {
		case http.MethodGet:
			s.handleListMessages(w, r)
		case http.MethodPost:
			s.handlePostMessage(w, r)
		case http.MethodDelete:
			s.handleDeleteAllMessages(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	segments := splitPath(r.URL.Path)

	if len(segments) == 3 && segments[0] == "api" && segments[1] == "messages" && r.Method == http.MethodDelete {
		s.handleDeleteMessage(w, r, segments[2])
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/upload" {
		s.handleUpload(w, r)
		return
	}

	if len(segments) == 2 && segments[0] == "uploads" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		s.handleServeAttachment(w, r, segments[1])
		return
	}

	if len(segments) == 3 && segments[0] == "api" && segments[1] == "admin" {
		s.handleAdmin(w, r, segments[2])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	result, err := s.service.VerifyIdentity(r.Context(), body.Token)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": string(result.State),
		"email":  string(result.Email),
		"name":   result.Name,
	})
}

func (s *HTTPServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.service.Messages(callerEmail(r))
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *HTTPServer) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
		return
	}
	defer r.Body.Close()

	caller := callerEmail(r)

	var body struct {
		HTML    string `json:"html"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && (body.HTML != "" || body.Message != "") {
		msg, err := s.service.PostText(r.Context(), caller, body.HTML, body.Message)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
		return
	}

	// Older producers send a bare string or a {text, date} object.
	msg, err := s.service.PostLegacy(r.Context(), caller, raw)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *HTTPServer) handleDeleteAllMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAllMessages(r.Context(), callerEmail(r)); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleDeleteMessage(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteMessage(r.Context(), callerEmail(r), id); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "NO_FILE", "No file uploaded", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "NO_FILE", "No file uploaded", nil)
		return
	}
	defer file.Close()

	msg, err := s.service.Upload(r.Context(), callerEmail(r), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *HTTPServer) handleServeAttachment(w http.ResponseWriter, r *http.Request, ref string) {
	rc, err := s.service.OpenAttachment(r.Context(), callerEmail(r), ref)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("uploads: streaming %s failed: %v", ref, err)
	}
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, action string) {
	caller := callerEmail(r)

	switch {
	case r.Method == http.MethodGet && action == "pending":
		pending, err := s.service.PendingIdentities(caller)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
		return

	case r.Method == http.MethodGet && action == "approved":
		approved, err := s.service.ApprovedIdentities(caller)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"approved": approved})
		return

	case r.Method == http.MethodPost && (action == "approve" || action == "deny"):
		var body struct {
			Email string `json:"email"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var err error
		if action == "approve" {
			err = s.service.ApproveIdentity(r.Context(), caller, body.Email)
		} else {
			err = s.service.DenyIdentity(r.Context(), caller, body.Email)
		}
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

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
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-User-Email")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
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
	if errors.Is(err, identity.ErrInvalidAssertion) || errors.Is(err, identity.ErrExpiredAssertion) {
		return http.StatusUnauthorized, "INVALID_ASSERTION", "Identity assertion rejected", nil
	}
	if errors.Is(err, identity.ErrInvalidIdentity) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email is required", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
