package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/JonMunkholm/filecompare/internal/logging"
	"github.com/JonMunkholm/filecompare/internal/web/templates"
)

// SessionCookie remembers the browser's last comparison session.
const SessionCookie = "fc_session"

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params := templates.IndexParams{
		Extensions:      core.SupportedExtensions(),
		MaxFilesPerSide: s.cfg.Compare.MaxFilesPerSide,
		MaxFileSizeMB:   s.cfg.Compare.MaxFileSize >> 20,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.IndexPage(params).Render(r.Context(), w)
}

// handleCompare runs a comparison over the uploaded file sets.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, tooBig.Limit))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadForm, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := s.parseCompareForm(r)

	res, err := s.service.Compare(withClientInfo(r), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.setSessionCookie(w, res.SessionID)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, res)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.ResultPage(res).Render(r.Context(), w)
}

// parseCompareForm reads the comparison options. Malformed manualPairs or
// ignoreConfig JSON is logged and treated as absent.
func (s *Server) parseCompareForm(r *http.Request) core.CompareInput {
	logger := logging.FromContext(r.Context())
	form := r.MultipartForm

	in := core.CompareInput{
		Source1:        uploads(form, "source1Files"),
		Source2:        uploads(form, "source2Files"),
		SortFileNames:  formBool(r, "sortFiles"),
		IncludeHeader1: formBool(r, "s1IncludeHeader"),
		IncludeHeader2: formBool(r, "s2IncludeHeader"),
	}

	if raw := strings.TrimSpace(r.FormValue("manualPairs")); raw != "" && raw != "[]" {
		if err := json.Unmarshal([]byte(raw), &in.ManualPairs); err != nil {
			logger.Warn("ignoring malformed manualPairs", "value", raw, "error", err)
			in.ManualPairs = nil
		} else {
			logger.Info("received manual pairs", "count", len(in.ManualPairs))
		}
	}

	if raw := strings.TrimSpace(r.FormValue("ignoreConfig")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Ignore); err != nil {
			logger.Warn("ignoring malformed ignoreConfig", "value", raw, "error", err)
			in.Ignore = core.IgnoreSpec{}
		}
	}

	return in
}

// uploads collects the files of a field, accepting both the bare name and
// the "name[]" form browsers send for multi-file inputs. Parts without a
// file name (nothing selected) are skipped.
func uploads(form *multipart.Form, field string) []core.Upload {
	if form == nil {
		return nil
	}
	var out []core.Upload
	for _, key := range []string{field + "[]", field} {
		for _, fh := range form.File[key] {
			if fh.Filename == "" {
				continue
			}
			out = append(out, core.Upload{
				Name: fh.Filename,
				Size: fh.Size,
				Open: func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}
	return out
}

// formBool accepts "true", "1" and the checkbox default "on".
func formBool(r *http.Request, key string) bool {
	v := strings.TrimSpace(r.FormValue(key))
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// maxRequestBytes bounds a whole compare request: every file at its limit
// on both sides plus room for the form fields.
func (s *Server) maxRequestBytes() int64 {
	const formOverhead = 1 << 20
	c := s.cfg.Compare
	return c.MaxFileSize*int64(2*c.MaxFilesPerSide) + formOverhead
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(s.cfg.Storage.Retention.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// cookieSession returns the session of the caller's last comparison.
func cookieSession(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
