package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/a-h/templ"
)

// IndexParams feeds the upload form.
type IndexParams struct {
	Extensions      []string
	MaxFilesPerSide int
	MaxFileSizeMB   int64
}

// IndexPage renders the comparison upload form.
func IndexPage(p IndexParams) templ.Component {
	return page("File Compare", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		accept := templ.EscapeString(strings.Join(p.Extensions, ","))
		_, err := fmt.Fprintf(w, `<h1>Compare files</h1>
<form method="post" action="/compare" enctype="multipart/form-data">
<fieldset><legend>Source 1</legend><input type="file" name="source1Files[]" multiple accept="%[1]s">
<label><input type="checkbox" name="s1IncludeHeader" value="true"> Compare header row</label></fieldset>
<fieldset><legend>Source 2</legend><input type="file" name="source2Files[]" multiple accept="%[1]s">
<label><input type="checkbox" name="s2IncludeHeader" value="true"> Compare header row</label></fieldset>
<label><input type="checkbox" name="sortFiles" value="true" checked> Pair files by sorted name</label>
<p><label>Manual pairs (JSON)<br><textarea name="manualPairs" rows="3" cols="80" placeholder='[{"source1FileName":"a.csv","source2FileName":"b.csv"}]'></textarea></label></p>
<p><label>Ignored columns (JSON)<br><textarea name="ignoreConfig" rows="3" cols="80" placeholder='{"source1Ignore":["id"],"source2Ignore":["2"]}'></textarea></label></p>
<p><small>Up to %[2]d files per source, %[3]d MB each. Supported: %[1]s</small></p>
<button type="submit">Compare</button>
</form>`, accept, p.MaxFilesPerSide, p.MaxFileSizeMB)
		return err
	}))
}

// ResultPage renders the metrics and per-pair outcome of a comparison.
func ResultPage(res *core.ComparisonResult) templ.Component {
	return page("Comparison result", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := res.Metrics
		if _, err := fmt.Fprintf(w, `<h1>Comparison %s</h1>
<table class="metrics"><tr><th>Files S1</th><th>Files S2</th><th>Pairs</th><th>Matched</th><th>Mismatched</th><th>Only S1</th><th>Only S2</th><th>Line matches</th><th>Line mismatches</th></tr>
<tr><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr></table>
<p><a href="/download-reports">Download all reports</a></p>
<form method="post" action="/cleanup-comparison-session"><button type="submit">Delete session</button></form>`,
			templ.EscapeString(res.SessionID),
			m.TotalFilesS1, m.TotalFilesS2, m.PairsConsidered, m.FullyMatchedPairs, m.MismatchedPairs,
			m.FilesOnlyInSource1, m.FilesOnlyInSource2, m.TotalLineMatches, m.TotalLineMismatches); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<h2>Pairs</h2><table><tr><th>Source 1</th><th>Source 2</th><th>Status</th><th>Match</th><th>Mismatch</th><th>Missing S1</th><th>Missing S2</th><th>Report</th></tr>`); err != nil {
			return err
		}
		for _, p := range res.Pairs {
			if err := pairRow(ctx, w, res.SessionID, p); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</table>`)
		return err
	}))
}

func pairRow(_ context.Context, w io.Writer, sessionID string, p core.PairResult) error {
	report := ""
	if p.ReportPath != "" {
		report = fmt.Sprintf(`<a href="/api/sessions/%s/reports/%s">csv</a>`,
			templ.EscapeString(sessionID), templ.EscapeString(p.ReportPath))
	}
	status := string(p.Status)
	if p.ErrorMessage != "" {
		status += `<br><small>` + templ.EscapeString(p.ErrorMessage) + `</small>`
	}
	_, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td class="%s">%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%s</td></tr>`,
		templ.EscapeString(p.Source1FileName), templ.EscapeString(p.Source2FileName),
		templ.EscapeString(string(p.Status)), status,
		p.MatchCount, p.MismatchCount, p.MissingInSource1Cnt, p.MissingInSource2Cnt, report)
	return err
}
