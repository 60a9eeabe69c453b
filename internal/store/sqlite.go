package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/partner-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// An empty table name selects DefaultTable.
func NewSQLite(dsn, table string) (*SQLiteStore, error) {
	if table == "" {
		table = DefaultTable
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, table: table}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id                    TEXT PRIMARY KEY,
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
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	dry_run    INTEGER NOT NULL DEFAULT 0,
	summary    TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reconcile_runs_status ON reconcile_runs(status);
CREATE INDEX IF NOT EXISTS idx_reconcile_runs_created_at ON reconcile_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteMigration, quoteIdent(s.table)))
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListPartners(ctx context.Context, filter PartnerFilter) ([]model.Partner, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(partnerColumns, ", "), quoteIdent(s.table))
	var args []any
	if filter.OnlyUnzoned {
		query += ` WHERE area IS NULL OR TRIM(area) = ''`
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list partners")
	}
	defer rows.Close() //nolint:errcheck

	var partners []model.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan partner")
		}
		partners = append(partners, p)
	}
	return partners, eris.Wrap(rows.Err(), "sqlite: list partners iterate")
}

func (s *SQLiteStore) ApplyPatch(ctx context.Context, id string, patch model.Patch) error {
	if patch.Empty() {
		return nil
	}
	set, args, err := patchSetClause(patch, func(int) string { return "?" })
	if err != nil {
		return err
	}
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s, updated_at = ? WHERE id = ?`, quoteIdent(s.table), set),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: apply patch %s", id)
	}
	return checkRowsAffected(res, "partner", id)
}

// InsertPartners upserts partners by id. Existing rows only have their blank
// columns filled. Partners without an id get a new UUID.
func (s *SQLiteStore) InsertPartners(ctx context.Context, partners []model.Partner) (int64, error) {
	if len(partners) == 0 {
		return 0, nil
	}

	updates := make([]string, 0, len(partnerColumns)-1)
	for _, c := range partnerColumns[1:] {
		col := quoteIdent(c)
		updates = append(updates, fmt.Sprintf("%s = CASE WHEN COALESCE(TRIM(%s), '') = '' THEN excluded.%s ELSE %s END", col, col, col, col))
	}
	stmt := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s, updated_at = datetime('now')`,
		quoteIdent(s.table),
		strings.Join(partnerColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(partnerColumns)), ", "),
		strings.Join(updates, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	prep, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer prep.Close() //nolint:errcheck

	var n int64
	for _, p := range partners {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		res, err := prep.ExecContext(ctx, partnerRow(p)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import partner %q", p.Name)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return n, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, dryRun bool) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reconcile_runs (id, status, dry_run, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), dryRun, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		DryRun:    dryRun,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, runErr error) error {
	var summaryJSON sql.NullString
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = sql.NullString{String: string(b), Valid: true}
	}
	status, msg := runStatusFor(runErr)

	res, err := s.db.ExecContext(ctx,
		`UPDATE reconcile_runs SET status = ?, summary = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), summaryJSON, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, dry_run, summary, error, created_at, updated_at FROM reconcile_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var summaryJSON, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.Status, &r.DryRun, &summaryJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Error = errMsg.String
		if summaryJSON.Valid {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
