package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aqlhr/policy-intel-cli/internal/store"
	"github.com/aqlhr/policy-intel-cli/pkg/analysis"
)

var (
	batchConcurrency int
	batchLang        string
	batchSave        bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <request.yaml>...",
	Short: "Analyze multiple policies from YAML request files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initAnalysis()
		if err != nil {
			return err
		}

		var st store.Store
		if batchSave {
			st, err = openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		return processBatch(ctx, args, batchConcurrency, func(ctx context.Context, req analysis.AnalyzeRequest) error {
			result, err := client.Analyze(ctx, req, nil)
			if err != nil {
				return err
			}
			if st != nil {
				if err := st.SaveAssessment(ctx, result); err != nil {
					return eris.Wrap(err, "save assessment")
				}
			}
			fmt.Fprintf(os.Stdout, "%s\t%s\t%.2f\n", result.RequestID, result.Title(), result.Scores.Overall.Value)
			return nil
		})
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "max concurrent analyses")
	batchCmd.Flags().StringVar(&batchLang, "lang", "", "report language applied to requests without one")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist each assessment to history")
	rootCmd.AddCommand(batchCmd)
}

// processBatch analyzes each request file with bounded concurrency. A
// failed file is logged and counted; it does not stop the rest.
func processBatch(ctx context.Context, files []string, concurrency int, analyzeOne func(context.Context, analysis.AnalyzeRequest) error) error {
	if concurrency < 1 {
		concurrency = 1
	}

	start := time.Now()
	var succeeded, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			req, err := loadAnalyzeRequest(path)
			if err != nil {
				failed.Add(1)
				zap.L().Error("batch request skipped", zap.String("file", path), zap.Error(err))
				return nil
			}
			if req.Lang == "" {
				req.Lang = batchLang
			}
			req.Stream = false

			if err := analyzeOne(ctx, req); err != nil {
				failed.Add(1)
				zap.L().Error("batch analysis failed", zap.String("file", path), zap.Error(err))
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}

	err := g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err != nil {
		return eris.Wrap(err, "batch")
	}
	if failed.Load() > 0 {
		return eris.Errorf("%d of %d analyses failed", failed.Load(), len(files))
	}
	return nil
}
