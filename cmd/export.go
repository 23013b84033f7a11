package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqlhr/policy-intel-cli/internal/export"
)

var (
	exportFormat string
	exportLang   string
	exportQuery  string
	exportFrom   string
	exportTo     string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export <out-file>",
	Short: "Export stored assessments to CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		outPath := args[0]

		format, err := resolveExportFormat(outPath, exportFormat)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := parseListFilter(exportQuery, exportFrom, exportTo, "", false, exportLimit)
		if err != nil {
			return err
		}

		results, err := st.ListAssessments(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list assessments")
		}

		f, err := os.Create(outPath)
		if err != nil {
			return eris.Wrapf(err, "create %s", outPath)
		}
		defer f.Close() //nolint:errcheck

		switch format {
		case export.FormatCSV:
			err = export.WriteCSV(f, results, exportLang)
		case export.FormatXLSX:
			err = export.WriteXLSX(f, results, exportLang)
		}
		if err != nil {
			return eris.Wrapf(err, "export %s", format)
		}

		zap.L().Info("export written",
			zap.String("path", outPath),
			zap.String("format", format),
			zap.Int("rows", len(results)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or xlsx (default: from file extension)")
	exportCmd.Flags().StringVar(&exportLang, "lang", "en", "report language")
	exportCmd.Flags().StringVar(&exportQuery, "query", "", "substring match on title")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "inclusive lower bound (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "exclusive upper bound (YYYY-MM-DD)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max rows (0 = all)")
	rootCmd.AddCommand(exportCmd)
}

func resolveExportFormat(path, explicit string) (string, error) {
	format := explicit
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = export.FormatCSV
		case ".xlsx":
			format = export.FormatXLSX
		}
	}
	switch format {
	case export.FormatCSV, export.FormatXLSX:
		return format, nil
	default:
		return "", eris.Errorf("cannot determine export format for %s (use --format)", path)
	}
}
