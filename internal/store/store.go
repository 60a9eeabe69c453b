// Package store persists marketing partners and reconcile run history. The
// reconcile engine reads partners through ListPartners and writes partial
// updates through ApplyPatch; implementations exist for SQLite, Postgres and
// a PostgREST endpoint.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/partner-cli/internal/model"
)

// DefaultTable is the partner table name used when none is configured.
const DefaultTable = "marketing_partners"

// RunsTable holds reconcile run history.
const RunsTable = "reconcile_runs"

// ErrNotFound is returned when a patch or run update matches no row.
var ErrNotFound = eris.New("not found")

// PartnerFilter narrows ListPartners.
type PartnerFilter struct {
	// OnlyUnzoned returns partners whose area is NULL or blank.
	OnlyUnzoned bool `json:"only_unzoned,omitempty"`
	// Limit caps the number of partners returned. Zero means no limit.
	Limit int `json:"limit,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for partner reconciliation.
type Store interface {
	// Partners
	ListPartners(ctx context.Context, filter PartnerFilter) ([]model.Partner, error)
	ApplyPatch(ctx context.Context, id string, patch model.Patch) error
	InsertPartners(ctx context.Context, partners []model.Partner) (int64, error)

	// Runs
	CreateRun(ctx context.Context, dryRun bool) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, runErr error) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// partnerColumns is the column order used for every partner read and import.
var partnerColumns = []string{
	"id",
	"name",
	string(model.FieldCategory),
	string(model.FieldZone),
	string(model.FieldAddress),
	"notes",
	"services_provided",
	"proximity_to_location",
	string(model.FieldWebsite),
	string(model.FieldInstagramHandle),
	string(model.FieldFacebookURL),
	string(model.FieldTikTokHandle),
	string(model.FieldYouTubeURL),
}

// writeOnce reports whether a patched column may only be written while blank.
// Updates re-check this in SQL against the row's current value.
func writeOnce(f model.Field) bool {
	return f != model.FieldCategory
}

func validField(f model.Field) bool {
	if f == model.FieldCategory || f == model.FieldZone {
		return true
	}
	for _, e := range model.EnrichmentFields {
		if f == e {
			return true
		}
	}
	return false
}

// patchSetClause builds the SET list for an UPDATE applying patch. placeholder
// returns the bind marker for the i-th (1-based) argument.
func patchSetClause(patch model.Patch, placeholder func(i int) string) (string, []any, error) {
	entries := patch.Entries()
	sets := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries))
	for i, e := range entries {
		if !validField(e.Field) {
			return "", nil, eris.Errorf("store: unknown patch field %q", e.Field)
		}
		col := quoteIdent(string(e.Field))
		ph := placeholder(i + 1)
		if writeOnce(e.Field) {
			sets = append(sets, fmt.Sprintf("%s = CASE WHEN COALESCE(TRIM(%s), '') = '' THEN %s ELSE %s END", col, col, ph, col))
		} else {
			sets = append(sets, fmt.Sprintf("%s = %s", col, ph))
		}
		args = append(args, e.Value)
	}
	return strings.Join(sets, ", "), args, nil
}

// quoteIdent double-quotes a single SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// partnerRow flattens a partner into partnerColumns order for inserts.
func partnerRow(p model.Partner) []any {
	str := func(s *string) any {
		if s == nil {
			return nil
		}
		return *s
	}
	var cat, zone any
	if p.Category != nil {
		cat = string(*p.Category)
	}
	if p.Zone != nil {
		zone = string(*p.Zone)
	}
	return []any{
		p.ID, p.Name, cat, zone,
		str(p.Address), str(p.Notes), str(p.ServicesDescription), str(p.ProximityHint),
		str(p.Website), str(p.InstagramHandle), str(p.FacebookURL), str(p.TikTokHandle), str(p.YouTubeURL),
	}
}

type scannable interface {
	Scan(dest ...any) error
}

// scanPartner reads one row in partnerColumns order.
func scanPartner(row scannable) (model.Partner, error) {
	var p model.Partner
	var name, cat, zone *string
	err := row.Scan(
		&p.ID, &name, &cat, &zone,
		&p.Address, &p.Notes, &p.ServicesDescription, &p.ProximityHint,
		&p.Website, &p.InstagramHandle, &p.FacebookURL, &p.TikTokHandle, &p.YouTubeURL,
	)
	if err != nil {
		return p, err
	}
	if name != nil {
		p.Name = *name
	}
	if cat != nil {
		c := model.Category(*cat)
		p.Category = &c
	}
	if zone != nil {
		z := model.Zone(*zone)
		p.Zone = &z
	}
	return p, nil
}

func runStatusFor(runErr error) (model.RunStatus, string) {
	if runErr != nil {
		return model.RunStatusFailed, runErr.Error()
	}
	return model.RunStatusComplete, ""
}
