package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/export"
	"github.com/sells-group/lead-qualifier/internal/fetcher"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/pipeline"
	"github.com/sells-group/lead-qualifier/internal/scorer"
)

var (
	qualifyOutput string
	qualifyFormat string
	qualifySave   bool
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify <input-file>",
	Short: "Run lead qualification for a batch of profile URLs",
	Long:  "Reads a JSON or YAML qualification document, fetches and scores every profile, and writes the ranked qualified leads.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read input document %s", args[0])
		}
		input, err := model.ParseBatchInput(data)
		if err != nil {
			return err
		}
		if err := input.Validate(); err != nil {
			return err
		}

		format, err := export.ParseFormat(qualifyFormat)
		if err != nil {
			return err
		}

		leads, stats, err := runQualification(ctx, input)
		if err != nil {
			return err
		}

		agg := scorer.Aggregator{MinScore: input.MinimumScore, MaxResults: input.MaxResults}
		qualified := agg.Aggregate(leads)
		stats = agg.Finalize(stats, qualified)

		if qualifySave {
			if err := saveRun(ctx, input, qualified, stats); err != nil {
				return err
			}
		}

		out := os.Stdout
		if qualifyOutput != "" {
			f, err := os.Create(qualifyOutput)
			if err != nil {
				return eris.Wrapf(err, "create output file %s", qualifyOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return export.Write(out, format, export.Report{Leads: qualified, Stats: stats})
	},
}

// runQualification builds the fetch-and-score pipeline from config and the
// input document and runs it to completion.
func runQualification(ctx context.Context, input *model.BatchInput) ([]model.ScoredLead, model.RunStats, error) {
	engine, err := scorer.New(input.QualificationCriteria, input.ScoringWeights, input.EmptyCriterionPolicy)
	if err != nil {
		return nil, model.RunStats{}, err
	}

	fetch := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		BaseURL:   cfg.Source.BaseURL,
		APIKey:    cfg.Source.APIKey,
		UserAgent: cfg.Source.UserAgent,
		Timeout:   time.Duration(cfg.Source.TimeoutSecs) * time.Second,
		HostRPS:   float64(cfg.Source.HostRPS),
	})

	p := pipeline.New(fetch, engine, pipeline.Options{
		Concurrency:  input.Concurrency,
		RequestDelay: time.Duration(input.RequestDelayMs) * time.Millisecond,
		Retry: pipeline.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
			Multiplier:     cfg.Retry.Multiplier,
		},
		Breaker: pipeline.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			ResetTimeout:     time.Duration(cfg.Breaker.ResetTimeoutSecs) * time.Second,
		},
	})

	if input.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(input.TimeoutSecs)*time.Second)
		defer cancel()
	}

	return p.Run(ctx, input.ProfileURLs)
}

func saveRun(ctx context.Context, input *model.BatchInput, leads []model.ScoredLead, stats model.RunStats) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, *input)
	if err != nil {
		return err
	}
	if err := st.CompleteRun(ctx, run.ID, leads, stats); err != nil {
		return err
	}
	zap.L().Info("run archived", zap.String("run_id", run.ID))
	return nil
}

func init() {
	qualifyCmd.Flags().StringVarP(&qualifyOutput, "output", "o", "", "output file (default stdout)")
	qualifyCmd.Flags().StringVarP(&qualifyFormat, "format", "f", "table", "output format (json, csv, table)")
	qualifyCmd.Flags().BoolVar(&qualifySave, "save", false, "archive the run in the store")
	rootCmd.AddCommand(qualifyCmd)
}
