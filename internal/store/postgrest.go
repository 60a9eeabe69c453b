package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/resilience"
	"github.com/sells-group/partner-cli/pkg/postgrest"
)

// PostgRESTStore implements Store over a PostgREST endpoint. Every call is
// retried on transient failures and guarded by a circuit breaker.
//
// Write-once columns are patched one at a time behind a blank-value filter,
// so a value another writer set after the partner was read is kept. Imports
// skip rows whose id already exists.
type PostgRESTStore struct {
	client  postgrest.Client
	table   string
	retry   RetryOptions
	breaker *resilience.CircuitBreaker
}

// RetryOptions tunes the PostgREST store's retry and breaker behavior.
type RetryOptions struct {
	MaxAttempts      int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// NewPostgREST wraps client as a Store. An empty table selects DefaultTable.
func NewPostgREST(client postgrest.Client, table string, opts RetryOptions) *PostgRESTStore {
	if table == "" {
		table = DefaultTable
	}
	cbCfg := resilience.DefaultCircuitBreakerConfig()
	cbCfg.ShouldTrip = retryablePostgREST
	if opts.FailureThreshold > 0 {
		cbCfg.FailureThreshold = opts.FailureThreshold
	}
	if opts.ResetTimeout > 0 {
		cbCfg.ResetTimeout = opts.ResetTimeout
	}
	return &PostgRESTStore{
		client:  client,
		table:   table,
		retry:   opts,
		breaker: resilience.NewCircuitBreaker(cbCfg),
	}
}

// retryablePostgREST treats throttling and 5xx responses as transient along
// with the usual network failures.
func retryablePostgREST(err error) bool {
	var apiErr *postgrest.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

func (s *PostgRESTStore) retryConfig(operation string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig().WithMaxAttempts(s.retry.MaxAttempts)
	if s.retry.InitialBackoff > 0 {
		cfg.InitialBackoff = s.retry.InitialBackoff
	}
	cfg.ShouldRetry = retryablePostgREST
	cfg.OnRetry = resilience.RetryLogger("postgrest", operation)
	return cfg
}

func (s *PostgRESTStore) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Do(ctx, s.retryConfig(operation), fn)
	})
}

func (s *PostgRESTStore) patchRows(ctx context.Context, operation, table string, filter url.Values, body map[string]any) (int, error) {
	var n int
	err := s.call(ctx, operation, func(ctx context.Context) error {
		var err error
		n, err = s.client.Patch(ctx, table, filter, body)
		return err
	})
	return n, err
}

func idFilter(id string) url.Values {
	filter := url.Values{}
	filter.Set("id", "eq."+id)
	return filter
}

// blankFilter matches row id only while column f is NULL or whitespace.
func blankFilter(id string, f model.Field) url.Values {
	filter := idFilter(id)
	filter.Set("or", fmt.Sprintf(`(%[1]s.is.null,%[1]s.match.^\s*$)`, f))
	return filter
}

func (s *PostgRESTStore) selectRows(ctx context.Context, operation, table string, query url.Values) ([]json.RawMessage, error) {
	return resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) ([]json.RawMessage, error) {
		return resilience.DoVal(ctx, s.retryConfig(operation), func(ctx context.Context) ([]json.RawMessage, error) {
			return s.client.Select(ctx, table, query)
		})
	})
}

// Migrate is a no-op: the PostgREST schema is owned by the database.
func (s *PostgRESTStore) Migrate(_ context.Context) error {
	zap.L().Info("postgrest: schema is managed by the database, skipping migrate",
		zap.String("table", s.table),
	)
	return nil
}

func (s *PostgRESTStore) Close() error { return nil }

func (s *PostgRESTStore) ListPartners(ctx context.Context, filter PartnerFilter) ([]model.Partner, error) {
	q := url.Values{}
	q.Set("select", strings.Join(partnerColumns, ","))
	q.Set("order", "id.asc")
	if filter.OnlyUnzoned {
		q.Set("or", "(area.is.null,area.eq.)")
	}

	raw, err := s.selectRows(ctx, "list_partners", s.table, q)
	if err != nil {
		return nil, eris.Wrap(err, "postgrest: list partners")
	}

	partners := make([]model.Partner, 0, len(raw))
	for _, r := range raw {
		var p model.Partner
		if err := json.Unmarshal(r, &p); err != nil {
			return nil, eris.Wrap(err, "postgrest: decode partner")
		}
		partners = append(partners, p)
	}
	// The server-side filter only matches exact blanks; whitespace-only
	// areas are dropped here.
	if filter.OnlyUnzoned {
		partners = unzonedOnly(partners)
	}
	if filter.Limit > 0 && len(partners) > filter.Limit {
		partners = partners[:filter.Limit]
	}
	return partners, nil
}

func unzonedOnly(partners []model.Partner) []model.Partner {
	out := partners[:0]
	for _, p := range partners {
		if !p.HasZone() {
			out = append(out, p)
		}
	}
	return out
}

func (s *PostgRESTStore) ApplyPatch(ctx context.Context, id string, patch model.Patch) error {
	if patch.Empty() {
		return nil
	}
	for _, f := range patch.Fields() {
		if !validField(f) {
			return eris.Errorf("store: unknown patch field %q", f)
		}
	}
	now := time.Now().UTC()

	// The first write carries the freely writable columns and proves the row
	// exists.
	body := map[string]any{"updated_at": now}
	var guarded []model.PatchEntry
	for _, e := range patch.Entries() {
		if writeOnce(e.Field) {
			guarded = append(guarded, e)
			continue
		}
		body[string(e.Field)] = e.Value
	}
	n, err := s.patchRows(ctx, "apply_patch", s.table, idFilter(id), body)
	if err != nil {
		return eris.Wrapf(err, "postgrest: apply patch %s", id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "postgrest: apply patch: partner %s", id)
	}

	for _, e := range guarded {
		n, err := s.patchRows(ctx, "apply_patch", s.table, blankFilter(id, e.Field),
			map[string]any{string(e.Field): e.Value, "updated_at": now})
		if err != nil {
			return eris.Wrapf(err, "postgrest: apply patch %s: %s", id, e.Field)
		}
		if n == 0 {
			zap.L().Info("postgrest: column already set, keeping stored value",
				zap.String("partner_id", id),
				zap.String("field", string(e.Field)),
			)
		}
	}
	return nil
}

// InsertPartners posts partners in one batch, skipping ids that already
// exist. The returned count is the number of rows submitted.
func (s *PostgRESTStore) InsertPartners(ctx context.Context, partners []model.Partner) (int64, error) {
	if len(partners) == 0 {
		return 0, nil
	}
	rows := make([]model.Partner, len(partners))
	for i, p := range partners {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		rows[i] = p
	}
	err := s.call(ctx, "insert_partners", func(ctx context.Context) error {
		return s.client.Insert(ctx, s.table, rows, true)
	})
	if err != nil {
		return 0, eris.Wrap(err, "postgrest: import partners")
	}
	return int64(len(rows)), nil
}

func (s *PostgRESTStore) CreateRun(ctx context.Context, dryRun bool) (*model.Run, error) {
	now := time.Now().UTC()
	run := &model.Run{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		DryRun:    dryRun,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.call(ctx, "create_run", func(ctx context.Context) error {
		return s.client.Insert(ctx, RunsTable, []*model.Run{run}, false)
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgrest: insert run")
	}
	return run, nil
}

func (s *PostgRESTStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, runErr error) error {
	status, msg := runStatusFor(runErr)
	body := map[string]any{
		"status":     status,
		"summary":    summary,
		"error":      msg,
		"updated_at": time.Now().UTC(),
	}
	n, err := s.patchRows(ctx, "complete_run", RunsTable, idFilter(runID), body)
	if err != nil {
		return eris.Wrapf(err, "postgrest: complete run %s", runID)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "postgrest: complete run: run %s", runID)
	}
	return nil
}

func (s *PostgRESTStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	q := url.Values{}
	q.Set("order", "created_at.desc")
	if filter.Status != "" {
		q.Set("status", "eq."+string(filter.Status))
	}

	raw, err := s.selectRows(ctx, "list_runs", RunsTable, q)
	if err != nil {
		return nil, eris.Wrap(err, "postgrest: list runs")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(filter.Offset, 0)
	if offset >= len(raw) {
		return nil, nil
	}
	raw = raw[offset:]
	if len(raw) > limit {
		raw = raw[:limit]
	}

	runs := make([]model.Run, 0, len(raw))
	for _, r := range raw {
		var run model.Run
		if err := json.Unmarshal(r, &run); err != nil {
			return nil, eris.Wrap(err, "postgrest: decode run")
		}
		runs = append(runs, run)
	}
	return runs, nil
}
