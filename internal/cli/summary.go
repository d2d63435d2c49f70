package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/fatih/color"
)

// Status colors share one escape length so tabwriter columns stay aligned.
var (
	okColor   = color.New(color.FgGreen)
	diffColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
)

func statusColor(s core.Status) *color.Color {
	switch {
	case s == core.StatusMatched:
		return okColor
	case s.IsOneSided():
		return warnColor
	default:
		return diffColor
	}
}

// printSummary writes one line per pair followed by the totals.
func printSummary(w io.Writer, res *core.ComparisonResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tSOURCE 1\tSOURCE 2\tMATCH\tMISMATCH\tMISSING S1\tMISSING S2\tREPORT")
	for _, p := range res.Pairs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			statusColor(p.Status).Sprint(p.Status),
			orDash(p.Source1FileName), orDash(p.Source2FileName),
			p.MatchCount, p.MismatchCount, p.MissingInSource1Cnt, p.MissingInSource2Cnt,
			orDash(p.ReportPath))
	}
	_ = tw.Flush()

	for _, p := range res.Pairs {
		if p.ErrorMessage != "" {
			fmt.Fprintln(w, diffColor.Sprint("error: ")+p.ErrorMessage)
		}
	}

	m := res.Metrics
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Files: %d in source 1, %d in source 2\n", m.TotalFilesS1, m.TotalFilesS2)
	fmt.Fprintf(w, "Pairs: %d compared, %d matched, %d mismatched\n",
		m.PairsConsidered, m.FullyMatchedPairs, m.MismatchedPairs)
	fmt.Fprintf(w, "Unpaired: %d only in source 1, %d only in source 2\n",
		m.FilesOnlyInSource1, m.FilesOnlyInSource2)
	fmt.Fprintf(w, "Lines: %d matched, %d mismatched, %d missing in source 1, %d missing in source 2\n",
		m.TotalLineMatches, m.TotalLineMismatches, m.TotalLinesMissingInS1, m.TotalLinesMissingInS2)

	if m.AllMatched() && res.ErrorCount == 0 {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "All files match.")
	} else {
		color.New(color.FgRed, color.Bold).Fprintln(w, "Differences found.")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
