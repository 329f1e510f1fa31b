package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/scorer"
	"github.com/sells-group/lead-qualifier/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the qualification HTTP server",
	Long:  "Accepts qualification documents over HTTP, runs them asynchronously, and archives results in the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /qualify", func(w http.ResponseWriter, r *http.Request) {
			data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}

			input, err := model.ParseBatchInput(data)
			if err != nil {
				http.Error(w, `{"error":"invalid qualification document"}`, http.StatusBadRequest)
				return
			}
			if err := input.Validate(); err != nil {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}

			run, err := st.CreateRun(r.Context(), *input)
			if err != nil {
				http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
				return
			}

			// The run outlives the request; tie it to the server context.
			go func() {
				leads, stats, err := runQualification(ctx, input)
				if err != nil {
					zap.L().Error("async qualification failed",
						zap.String("run_id", run.ID),
						zap.Error(err),
					)
					_ = st.FailRun(ctx, run.ID)
					return
				}
				agg := scorer.Aggregator{MinScore: input.MinimumScore, MaxResults: input.MaxResults}
				qualified := agg.Aggregate(leads)
				stats = agg.Finalize(stats, qualified)
				if err := st.CompleteRun(ctx, run.ID, qualified, stats); err != nil {
					zap.L().Error("archive run failed",
						zap.String("run_id", run.ID),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("async qualification complete",
					zap.String("run_id", run.ID),
					zap.Int("qualified", stats.Qualified),
				)
			}()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "accepted",
				"run_id": run.ID,
			})
		})

		mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
			runs, err := st.ListRuns(r.Context(), store.RunFilter{
				Status: model.RunStatus(r.URL.Query().Get("status")),
			})
			if err != nil {
				http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(runs)
		})

		mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			run, err := st.GetRun(r.Context(), r.PathValue("id"))
			if err != nil {
				http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(run)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
