package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqlhr/policy-intel-cli/internal/model"
	"github.com/aqlhr/policy-intel-cli/internal/risk"
)

var (
	taskFromFile string
	taskAssignee string
	taskTop      int
	taskIndex    int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "File follow-up tasks for an assessment's top mitigations",
	Long:  "Reads the most recent stored assessment (or a result JSON file) and files one task per top mitigation with the task service.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		result, err := resolveTaskSource(cmd)
		if err != nil {
			return err
		}

		if len(result.Mitigations) == 0 {
			return eris.New("assessment has no mitigations to file")
		}

		var mitigations []model.Mitigation
		if taskIndex >= 0 {
			// Index addresses the producer's original ordering.
			if taskIndex >= len(result.Mitigations) {
				return eris.Errorf("mitigation index %d out of range (have %d)", taskIndex, len(result.Mitigations))
			}
			mitigations = result.Mitigations[taskIndex : taskIndex+1]
		} else {
			mitigations = risk.SortMitigations(result.Mitigations)
			if taskTop > 0 && taskTop < len(mitigations) {
				mitigations = mitigations[:taskTop]
			}
		}

		client, err := initTasks()
		if err != nil {
			return err
		}

		for _, m := range mitigations {
			payload, err := client.CreateMitigationTask(ctx, m, result.Title(), taskAssignee)
			if err != nil {
				return eris.Wrapf(err, "file task for %q", m.Strategy)
			}
			zap.L().Info("task filed",
				zap.String("title", payload.Title),
				zap.String("priority", payload.Priority),
				zap.String("due", payload.DueDate),
			)
			fmt.Fprintf(os.Stdout, "filed: %s (due %s)\n", payload.Title, payload.DueDate)
		}
		return nil
	},
}

func init() {
	taskCmd.Flags().StringVarP(&taskFromFile, "file", "f", "", "result JSON file (default: most recent stored assessment)")
	taskCmd.Flags().StringVar(&taskAssignee, "assignee", "", "assignee user ID")
	taskCmd.Flags().IntVar(&taskTop, "top", 1, "number of top mitigations to file (0 = all)")
	taskCmd.Flags().IntVar(&taskIndex, "index", -1, "file exactly this mitigation, by position in the assessment")
	rootCmd.AddCommand(taskCmd)
}

func resolveTaskSource(cmd *cobra.Command) (*model.PolicyRiskResult, error) {
	ctx := cmd.Context()

	if taskFromFile != "" {
		data, err := os.ReadFile(taskFromFile)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", taskFromFile)
		}
		var result model.PolicyRiskResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, eris.Wrapf(err, "parse %s", taskFromFile)
		}
		return &result, nil
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	results, err := st.ListRecent(ctx, 1)
	if err != nil {
		return nil, eris.Wrap(err, "load latest assessment")
	}
	if len(results) == 0 {
		return nil, eris.New("no stored assessments; run analyze --save first")
	}
	return &results[0], nil
}
