package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/partner-cli/internal/db"
	"github.com/sells-group/partner-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. table may be
// schema-qualified; empty selects DefaultTable.
func NewPostgres(ctx context.Context, connString, table string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresWithPool(pool, table, pool.Close), nil
}

func newPostgresWithPool(pool db.Pool, table string, closeFn func()) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, table: table, closeFn: closeFn}
}

// tableIdent quotes the partner table, splitting an optional schema prefix.
func (s *PostgresStore) tableIdent() string {
	return pgx.Identifier(strings.SplitN(s.table, ".", 2)).Sanitize()
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                  TEXT,
	partner_type          TEXT,
	area                  TEXT,
	address               TEXT,
	notes                 TEXT,
	services_provided     TEXT,
	proximity_to_location TEXT,
	website               TEXT,
	instagram_handle      TEXT,
	facebook_url          TEXT,
	tiktok_handle         TEXT,
	youtube_url           TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status     TEXT NOT NULL DEFAULT 'running',
	dry_run    BOOLEAN NOT NULL DEFAULT false,
	summary    JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reconcile_runs_status ON reconcile_runs(status);
CREATE INDEX IF NOT EXISTS idx_reconcile_runs_created_at ON reconcile_runs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(postgresMigration, s.tableIdent()))
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListPartners(ctx context.Context, filter PartnerFilter) ([]model.Partner, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(partnerColumns, ", "), s.tableIdent())
	var args []any
	if filter.OnlyUnzoned {
		query += ` WHERE area IS NULL OR BTRIM(area) = ''`
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT $1`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list partners")
	}
	defer rows.Close()

	var partners []model.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan partner")
		}
		partners = append(partners, p)
	}
	return partners, eris.Wrap(rows.Err(), "postgres: list partners iterate")
}

func (s *PostgresStore) ApplyPatch(ctx context.Context, id string, patch model.Patch) error {
	if patch.Empty() {
		return nil
	}
	set, args, err := patchSetClause(patch, func(i int) string { return fmt.Sprintf("$%d", i) })
	if err != nil {
		return err
	}
	n := len(args)
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET %s, updated_at = now() WHERE id = $%d`, s.tableIdent(), set, n+1),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: apply patch %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "partner %s", id)
	}
	return nil
}

// InsertPartners bulk-imports partners with COPY and a fill-only upsert on id.
func (s *PostgresStore) InsertPartners(ctx context.Context, partners []model.Partner) (int64, error) {
	rows := make([][]any, 0, len(partners))
	for _, p := range partners {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		rows = append(rows, partnerRow(p))
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        s.table,
		Columns:      partnerColumns,
		ConflictKeys: []string{"id"},
		FillOnly:     true,
	}, rows)
	return n, eris.Wrap(err, "postgres: import partners")
}

func (s *PostgresStore) CreateRun(ctx context.Context, dryRun bool) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO reconcile_runs (id, status, dry_run, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(model.RunStatusRunning), dryRun, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		DryRun:    dryRun,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, runErr error) error {
	var summaryJSON []byte
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = b
	}
	status, msg := runStatusFor(runErr)

	tag, err := s.pool.Exec(ctx,
		`UPDATE reconcile_runs SET status = $1, summary = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(status), summaryJSON, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, dry_run, summary, error, created_at, updated_at FROM reconcile_runs WHERE 1=1`
	var args []any
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argN)
	args = append(args, limit)
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var summaryJSON []byte
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.Status, &r.DryRun, &summaryJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		if len(summaryJSON) > 0 {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
