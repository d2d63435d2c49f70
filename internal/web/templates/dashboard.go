package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/a-h/templ"
)

// DashboardParams feeds the admin dashboard.
type DashboardParams struct {
	Usage   core.UsageMetrics
	Limiter core.LimiterStatus
	Logs    []core.ComparisonLog
	// AuditError is shown instead of history when the audit log failed.
	AuditError string
}

// DashboardPage renders usage totals and the most recent comparisons.
func DashboardPage(p DashboardParams) templ.Component {
	return page("Admin dashboard", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>Dashboard</h1><p>Active comparisons: %d of %d</p>`,
			p.Limiter.Active, p.Limiter.MaxConcurrent); err != nil {
			return err
		}
		if p.AuditError != "" {
			return ErrorAlert(p.AuditError, "", "DB003").Render(ctx, w)
		}

		u := p.Usage
		if _, err := fmt.Fprintf(w, `<table class="metrics"><tr><th>Total comparisons</th><th>Last 24 hours</th><th>Files processed</th><th>Matched pairs</th><th>Mismatched pairs</th></tr>
<tr><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr></table>`,
			u.TotalComparisons, u.ComparisonsLast24Hours, u.TotalFilesProcessed,
			u.TotalMatchedPairsOverall, u.TotalMismatchedPairsOverall); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<h2>Recent comparisons</h2><table><tr><th>Time</th><th>Session</th><th>Files</th><th>Pairs</th><th>Matched</th><th>Mismatched</th><th>Duration</th><th>Client</th><th></th></tr>`); err != nil {
			return err
		}
		for _, l := range p.Logs {
			label := "zip"
			if l.ErrorMessage != "" {
				label = templ.EscapeString(l.ErrorMessage)
			}
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td>%d / %d</td><td>%d</td><td>%d</td><td>%d</td><td>%d ms</td><td>%s</td><td><a href="/admin/download-session-zip/%s">%s</a></td></tr>`,
				l.Timestamp.Format("2006-01-02 15:04:05"), templ.EscapeString(l.SessionID),
				l.Source1FileCount, l.Source2FileCount, l.PairsConsidered,
				l.FullyMatchedPairs, l.MismatchedPairs, l.ExecutionTimeMs,
				templ.EscapeString(l.IPAddress), templ.EscapeString(l.SessionID), label); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</table>`)
		return err
	}))
}
