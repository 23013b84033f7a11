package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aqlhr/policy-intel-cli/internal/risk"
	"github.com/aqlhr/policy-intel-cli/internal/store"
)

var (
	historyQuery string
	historyFrom  string
	historyTo    string
	historyOrder string
	historyAsc   bool
	historyLimit int
	historyTrend bool
	historyLang  string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored assessments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := parseListFilter(historyQuery, historyFrom, historyTo, historyOrder, historyAsc, historyLimit)
		if err != nil {
			return err
		}

		results, err := st.ListAssessments(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list assessments")
		}

		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No assessments found.")
			return nil
		}

		if historyTrend {
			points := risk.Trend(results)
			if historyJSON {
				return writeJSON(os.Stdout, points)
			}
			formatTrend(os.Stdout, points)
			return nil
		}

		if historyJSON {
			return writeJSON(os.Stdout, results)
		}
		formatAssessmentList(os.Stdout, results, historyLang)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyQuery, "query", "", "substring match on title")
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "inclusive lower bound (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "exclusive upper bound (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historyOrder, "order", store.OrderByCreatedAt, "sort key: created_at or overall")
	historyCmd.Flags().BoolVar(&historyAsc, "asc", false, "sort ascending")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "max rows")
	historyCmd.Flags().BoolVar(&historyTrend, "trend", false, "show daily overall-risk averages instead of rows")
	historyCmd.Flags().StringVar(&historyLang, "lang", "", "display language (default: each row's own)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(historyCmd)
}

func parseListFilter(query, from, to, orderBy string, asc bool, limit int) (store.ListFilter, error) {
	filter := store.ListFilter{
		Query:   query,
		OrderBy: orderBy,
		Asc:     asc,
		Limit:   limit,
	}
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, eris.Wrap(err, "parse --from")
		}
		filter.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, eris.Wrap(err, "parse --to")
		}
		filter.To = t
	}
	return filter, nil
}
