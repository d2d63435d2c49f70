package web

import (
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/filecompare/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleDownloadReports streams the report ZIP of the cookie's session.
func (s *Server) handleDownloadReports(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := cookieSession(r)
	if !ok {
		s.respondError(w, r, errNoSession)
		return
	}
	s.serveBundle(w, r, sessionID)
}

// handleCleanupSession deletes the cookie's session and forgets it.
func (s *Server) handleCleanupSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := cookieSession(r)
	if !ok {
		s.respondError(w, r, errNoSession)
		return
	}
	if err := s.service.Cleanup(r.Context(), sessionID); err != nil {
		s.respondError(w, r, err)
		return
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Comparison session data and temporary files cleaned up successfully.",
	})
}

// handleGetSession returns the stored result of a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Result(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetReport streams one pair report as CSV.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report := chi.URLParam(r, "report")
	rc, err := s.service.Report(r.Context(), chi.URLParam(r, "sessionID"), report)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report))
	s.copyBody(w, r, rc)
}

// handleDownloadSession streams the report ZIP of a session named in the URL.
func (s *Server) handleDownloadSession(w http.ResponseWriter, r *http.Request) {
	s.serveBundle(w, r, chi.URLParam(r, "sessionID"))
}

// handleDeleteSession deletes a session named in the URL.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Cleanup(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveBundle(w http.ResponseWriter, r *http.Request, sessionID string) {
	rc, name, err := s.service.Bundle(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	s.copyBody(w, r, rc)
}

// copyBody streams rc to the client. Headers are already sent when a copy
// fails, so the failure is only logged.
func (s *Server) copyBody(w http.ResponseWriter, r *http.Request, rc io.Reader) {
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context()).Warn("response copy failed", "error", err)
	}
}
