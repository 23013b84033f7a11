package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqlhr/policy-intel-cli/internal/model"
	"github.com/aqlhr/policy-intel-cli/internal/risk"
	"github.com/aqlhr/policy-intel-cli/internal/store"
	"github.com/aqlhr/policy-intel-cli/pkg/analysis"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local assessment API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initAnalysis()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		r := newRouter(client, st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
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

func newRouter(client analysis.Client, st store.Store) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/assessments", func(w http.ResponseWriter, req *http.Request) {
		filter, err := listFilterFromQuery(req)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		results, err := st.ListAssessments(req.Context(), filter)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, results)
	})

	r.Get("/api/assessments/trend", func(w http.ResponseWriter, req *http.Request) {
		filter, err := listFilterFromQuery(req)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		results, err := st.ListAssessments(req.Context(), filter)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, risk.Trend(results))
	})

	r.Post("/api/analyze", func(w http.ResponseWriter, req *http.Request) {
		var body analysis.AnalyzeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
			return
		}
		if body.Text == "" && body.PolicyDocID == "" {
			respondError(w, http.StatusBadRequest, eris.New("text or policyDocId is required"))
			return
		}
		body.Stream = false

		result, err := client.Analyze(req.Context(), body, nil)
		if err != nil {
			var apiErr *analysis.APIError
			if errors.As(err, &apiErr) {
				respondError(w, http.StatusBadGateway, err)
				return
			}
			respondError(w, http.StatusInternalServerError, err)
			return
		}

		saved := true
		if err := st.SaveAssessment(req.Context(), result); err != nil {
			saved = false
			zap.L().Error("save assessment failed", zap.String("request_id", result.RequestID), zap.Error(err))
		}

		respondJSON(w, http.StatusOK, analyzeResponse{PolicyRiskResult: result, Saved: saved})
	})

	return r
}

// analyzeResponse is the result plus whether it made it into history.
// Analysis already cost the caller a request, so a failed save is reported
// rather than turned into an error status.
type analyzeResponse struct {
	*model.PolicyRiskResult
	Saved bool `json:"saved"`
}

func listFilterFromQuery(req *http.Request) (store.ListFilter, error) {
	q := req.URL.Query()
	filter := store.ListFilter{
		Query:   q.Get("query"),
		OrderBy: q.Get("order"),
		Asc:     q.Get("asc") == "true",
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, eris.Wrap(err, "invalid limit")
		}
		filter.Limit = n
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, eris.Wrap(err, "invalid from")
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, eris.Wrap(err, "invalid to")
		}
		filter.To = t
	}
	return filter, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
