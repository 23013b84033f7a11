package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aqlhr/policy-intel-cli/internal/store"
	"github.com/aqlhr/policy-intel-cli/pkg/analysis"
	"github.com/aqlhr/policy-intel-cli/pkg/tasks"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "policy-intel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore initializes and migrates the history store. Callers should
// defer st.Close().
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initAnalysis() (analysis.Client, error) {
	if cfg.API.BaseURL == "" {
		return nil, eris.New("analysis base URL is required (POLICYINTEL_API_BASE_URL)")
	}
	opts := []analysis.Option{}
	if cfg.API.Lang != "" {
		opts = append(opts, analysis.WithDefaultLang(cfg.API.Lang))
	}
	return analysis.NewClient(cfg.API.BaseURL, analysis.StaticToken(cfg.API.Token), opts...), nil
}

func initTasks() (tasks.Client, error) {
	base := cfg.Tasks.BaseURL
	if base == "" {
		return nil, eris.New("tasks base URL is required (POLICYINTEL_TASKS_BASE_URL)")
	}
	opts := []tasks.Option{}
	if cfg.Tasks.RatePerSecond > 0 {
		opts = append(opts, tasks.WithRateLimit(cfg.Tasks.RatePerSecond))
	}
	return tasks.NewClient(base, analysis.StaticToken(cfg.API.Token), opts...), nil
}
