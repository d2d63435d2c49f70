package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/JonMunkholm/filecompare/internal/web/templates"
)

// dashboardLogLimit is how many recent comparisons the dashboard lists.
const dashboardLogLimit = 50

// handleHealth reports liveness and comparison slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"limiter": s.service.LimiterStatus(),
	})
}

// handleDashboard renders usage totals and recent comparisons.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := templates.DashboardParams{Limiter: s.service.LimiterStatus()}

	usage, err := s.service.Usage(r.Context())
	if err == nil {
		params.Usage = usage
		params.Logs, err = s.service.Logs(r.Context(), core.LogFilter{Limit: dashboardLogLimit})
	}
	if err != nil {
		params.AuditError = core.MapError(err).Message
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.DashboardPage(params).Render(r.Context(), w)
}

// handleComparisonLogs lists audit rows, newest first. Query parameters:
// session, since (RFC 3339 or YYYY-MM-DD), limit, offset.
func (s *Server) handleComparisonLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.LogFilter{
		SessionID: q.Get("session"),
		Since:     parseSince(q.Get("since")),
		Limit:     parseIntParam(r, "limit", 0),
		Offset:    parseIntParam(r, "offset", 0),
	}

	logs, err := s.service.Logs(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if logs == nil {
		logs = []core.ComparisonLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleUsageMetrics returns the audit totals.
func (s *Server) handleUsageMetrics(w http.ResponseWriter, r *http.Request) {
	usage, err := s.service.Usage(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// parseIntParam parses a non-negative integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func parseSince(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t
	}
	return time.Time{}
}
