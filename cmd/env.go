package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/partner-cli/internal/reconcile"
	"github.com/sells-group/partner-cli/internal/reference"
	"github.com/sells-group/partner-cli/internal/store"
	"github.com/sells-group/partner-cli/pkg/postgrest"
)

// loadEngine reads the reference tables and builds the engine. Table
// defects are logged; they never stop a run.
func loadEngine() (*reconcile.Engine, error) {
	tables, err := reference.Load(cfg.Reference.Path)
	if err != nil {
		return nil, err
	}
	for _, d := range tables.Validate() {
		zap.L().Warn("reference table defect",
			zap.String("kind", string(d.Kind)),
			zap.String("name", d.Name),
			zap.String("message", d.Message),
		)
	}
	return reconcile.NewEngine(tables), nil
}

// initStore opens the configured record store. Callers own Close.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL, cfg.Store.Table)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Table, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "postgrest":
		client := postgrest.NewClient(cfg.PostgREST.BaseURL, cfg.PostgREST.APIKey,
			postgrest.WithRateLimit(cfg.PostgREST.RatePerSec),
			postgrest.WithPageSize(cfg.PostgREST.PageSize),
		)
		return store.NewPostgREST(client, cfg.Store.Table, store.RetryOptions{
			MaxAttempts:      cfg.PostgREST.MaxAttempts,
			InitialBackoff:   cfg.PostgREST.InitialBackoff,
			FailureThreshold: cfg.PostgREST.FailureThreshold,
			ResetTimeout:     cfg.PostgREST.ResetTimeout,
		}), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore validates config for mode, opens the store and migrates it.
func openStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
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
