package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aqlhr/policy-intel-cli/internal/i18n"
	"github.com/aqlhr/policy-intel-cli/internal/model"
	"github.com/aqlhr/policy-intel-cli/internal/risk"
	"github.com/aqlhr/policy-intel-cli/pkg/analysis"
)

var (
	analyzeFile   string
	analyzeText   string
	analyzeDocID  string
	analyzeTitle  string
	analyzeTags   []string
	analyzeLang   string
	analyzeStream bool
	analyzeSave   bool
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a policy for compliance, business, and implementation risk",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req, err := buildAnalyzeRequest()
		if err != nil {
			return err
		}

		client, err := initAnalysis()
		if err != nil {
			return err
		}

		onProgress := func(ev model.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Phase, ev.Message)
		}

		result, err := client.Analyze(ctx, req, onProgress)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		if analyzeSave {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.SaveAssessment(ctx, result); err != nil {
				return eris.Wrap(err, "save assessment")
			}
			zap.L().Info("assessment saved", zap.String("request_id", result.RequestID))
		}

		if analyzeJSON {
			return writeJSON(os.Stdout, result)
		}
		formatAssessment(os.Stdout, result, req.Lang)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "YAML request file")
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "policy text to analyze")
	analyzeCmd.Flags().StringVar(&analyzeDocID, "doc", "", "stored policy document ID")
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "policy title")
	analyzeCmd.Flags().StringSliceVar(&analyzeTags, "tag", nil, "retrieval corpus tags")
	analyzeCmd.Flags().StringVar(&analyzeLang, "lang", "", "report language (en or ar, default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeStream, "stream", true, "stream progress over SSE")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the assessment to history")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the raw result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

// buildAnalyzeRequest assembles the request from flags, with a YAML
// request file as the base when -f is given. Flags win over file values.
func buildAnalyzeRequest() (analysis.AnalyzeRequest, error) {
	var req analysis.AnalyzeRequest
	if analyzeFile != "" {
		loaded, err := loadAnalyzeRequest(analyzeFile)
		if err != nil {
			return req, err
		}
		req = loaded
	}

	if analyzeText != "" {
		req.Text = analyzeText
	}
	if analyzeDocID != "" {
		req.PolicyDocID = analyzeDocID
	}
	if analyzeTitle != "" {
		req.Title = analyzeTitle
	}
	if len(analyzeTags) > 0 {
		req.Tags = analyzeTags
	}
	if analyzeLang != "" {
		req.Lang = analyzeLang
	}
	req.Stream = analyzeStream

	if req.Text == "" && req.PolicyDocID == "" {
		return req, eris.New("either --text or --doc is required")
	}
	return req, nil
}

func loadAnalyzeRequest(path string) (analysis.AnalyzeRequest, error) {
	var req analysis.AnalyzeRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, eris.Wrapf(err, "read request file %s", path)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, eris.Wrapf(err, "parse request file %s", path)
	}
	return req, nil
}

// formatAssessment renders the per-family breakdown, overall verdict,
// and prioritized mitigations as a terminal report.
func formatAssessment(w io.Writer, result *model.PolicyRiskResult, lang string) {
	if lang == "" {
		lang = result.Lang
	}

	fmt.Fprintf(w, "%s  (%s)\n\n", result.Title(), result.RequestID)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, family := range model.Families {
		score, ok := risk.FamilyScore(result, family)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", family, i18n.FormatPercent(score, lang), risk.Level(score, lang))
		for _, dim := range model.FamilyDimensions[family] {
			s, ok := result.Scores.Family(family)[dim]
			if !ok {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\t\n", dim, i18n.FormatPercent(s, lang))
		}
	}
	overall := risk.OverallDisplay(result)
	fmt.Fprintf(tw, "overall\t%s\t%s\n", i18n.FormatPercent(overall, lang), risk.Level(overall, lang))
	tw.Flush()

	mitigations := risk.SortMitigations(result.Mitigations)
	if len(mitigations) > 0 {
		fmt.Fprintln(w, "\nMitigations:")
		for i, m := range mitigations {
			fmt.Fprintf(w, "%d. %s (impact %s, effort %s, roi %.1f)\n", i+1, m.Strategy, m.Impact, m.Effort, m.ROI)
			for _, action := range m.Actions {
				fmt.Fprintf(w, "   - %s\n", action)
			}
		}
	}
}
