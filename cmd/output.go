package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aqlhr/policy-intel-cli/internal/i18n"
	"github.com/aqlhr/policy-intel-cli/internal/model"
	"github.com/aqlhr/policy-intel-cli/internal/risk"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatAssessmentList renders history rows as a table.
func formatAssessmentList(w io.Writer, results []model.PolicyRiskResult, lang string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tID\tTITLE\tOVERALL\tLEVEL")
	for i := range results {
		r := &results[i]
		l := lang
		if l == "" {
			l = r.Lang
		}
		overall := risk.OverallDisplay(r)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.RequestID,
			r.Title(),
			i18n.FormatPercent(overall, l),
			risk.Level(overall, l),
		)
	}
	tw.Flush()
}

// formatTrend renders daily overall-risk averages.
func formatTrend(w io.Writer, points []risk.TrendPoint) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tASSESSMENTS\tAVG OVERALL")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", p.Day.Format("2006-01-02"), p.Count, p.Overall.Value)
	}
	tw.Flush()
}
