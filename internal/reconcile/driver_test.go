package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/store"
)

// memStore is an in-memory store.Store for driver tests.
type memStore struct {
	mu        sync.Mutex
	partners  map[string]model.Partner
	patches   map[string]model.Patch
	failIDs   map[string]bool
	listErr   error
	lastList  store.PartnerFilter
	runs      []*model.Run
	completed map[string]error
}

var _ store.Store = (*memStore)(nil)

func newMemStore(partners ...model.Partner) *memStore {
	m := &memStore{
		partners:  make(map[string]model.Partner),
		patches:   make(map[string]model.Patch),
		failIDs:   make(map[string]bool),
		completed: make(map[string]error),
	}
	for _, p := range partners {
		m.partners[p.ID] = p
	}
	return m
}

func (m *memStore) ListPartners(_ context.Context, filter store.PartnerFilter) ([]model.Partner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Partner
	for _, p := range m.partners {
		if filter.OnlyUnzoned && p.HasZone() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) ApplyPatch(_ context.Context, id string, patch model.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIDs[id] {
		return eris.Errorf("memstore: write %s: connection reset by peer", id)
	}
	p, ok := m.partners[id]
	if !ok {
		return eris.Wrapf(store.ErrNotFound, "partner %s", id)
	}
	m.partners[id] = p.Apply(patch)
	m.patches[id] = patch
	return nil
}

func (m *memStore) InsertPartners(_ context.Context, partners []model.Partner) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range partners {
		m.partners[p.ID] = p
	}
	return int64(len(partners)), nil
}

func (m *memStore) CreateRun(_ context.Context, dryRun bool) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &model.Run{ID: fmt.Sprintf("run-%d", len(m.runs)+1), Status: model.RunStatusRunning, DryRun: dryRun}
	m.runs = append(m.runs, r)
	return r, nil
}

func (m *memStore) CompleteRun(_ context.Context, runID string, summary *model.RunSummary, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == runID {
			r.Summary = summary
			r.Status = model.RunStatusComplete
			if runErr != nil {
				r.Status = model.RunStatusFailed
				r.Error = runErr.Error()
			}
			m.completed[runID] = runErr
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListRuns(_ context.Context, _ store.RunFilter) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Run, len(m.runs))
	for i, r := range m.runs {
		out[i] = *r
	}
	return out, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func fixturePartners() []model.Partner {
	return []model.Partner{
		{ID: "01", Name: "Annenberg PetSpace"},
		{ID: "02", Name: "Santa Monica Pet Rescue", Zone: zonePtr(model.ZoneSouthBay), Category: catPtr(model.CategoryRescue)},
		{ID: "03", Name: "Unknown Co", Category: catPtr(model.CategoryOther)},
		{ID: "04", Name: ""},
		{ID: "05", Name: "Torrance Grooming", Category: catPtr(model.CategoryOther)},
		{ID: "06", Name: "Bad Zone Co"},
	}
}

func TestDriver_Run(t *testing.T) {
	st := newMemStore(fixturePartners()...)
	d := NewDriver(st, testEngine(t))

	summary, err := d.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Processed)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 2, summary.Recategorized)
	assert.Equal(t, 2, summary.ZonesAssigned)
	assert.Equal(t, 3, summary.FieldsEnriched)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.Unchanged)
	assert.Equal(t, summary.Processed, summary.Updated+summary.Unchanged+summary.Skipped+summary.Failed)
	assert.Equal(t, []string{"03", "04", "06"}, summary.Unzoned)

	require.Len(t, summary.Defects, 2)
	assert.Equal(t, model.DefectMissingName, summary.Defects[0].Kind)
	assert.Equal(t, model.DefectInvalidZone, summary.Defects[1].Kind)

	assert.Equal(t, model.ZoneSouthBay, st.partners["02"].CurrentZone())
	assert.Equal(t, model.ZoneSouthBay, st.partners["05"].CurrentZone())
	assert.Equal(t, model.CategoryGroomer, st.partners["05"].CurrentCategory())
	assert.NotContains(t, st.patches, "03")

	require.Len(t, st.runs, 1)
	assert.Equal(t, model.RunStatusComplete, st.runs[0].Status)
	assert.Same(t, summary, st.runs[0].Summary)
}

func TestDriver_SecondRunIsNoop(t *testing.T) {
	st := newMemStore(fixturePartners()...)
	d := NewDriver(st, testEngine(t))

	_, err := d.Run(context.Background(), Options{})
	require.NoError(t, err)
	st.patches = make(map[string]model.Patch)

	summary, err := d.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 5, summary.Unchanged)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, st.patches)
}

func TestDriver_DryRunWritesNothing(t *testing.T) {
	st := newMemStore(fixturePartners()...)
	d := NewDriver(st, testEngine(t))

	var seen []string
	summary, err := d.Run(context.Background(), Options{
		DryRun: true,
		OnResult: func(p model.Partner, res Result, applyErr error) {
			assert.NoError(t, applyErr)
			if !res.Patch.Empty() {
				seen = append(seen, p.ID)
			}
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Updated)
	assert.Empty(t, st.patches)
	assert.False(t, st.partners["05"].HasZone())
	sort.Strings(seen)
	assert.Equal(t, []string{"01", "05"}, seen)
	assert.True(t, st.runs[0].DryRun)
}

func TestDriver_StoreFailureIsPerRecord(t *testing.T) {
	st := newMemStore(fixturePartners()...)
	st.failIDs["01"] = true
	d := NewDriver(st, testEngine(t))

	summary, err := d.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Updated)
	assert.Contains(t, summary.Unzoned, "01")

	var failure *model.Defect
	for i := range summary.Defects {
		if summary.Defects[i].Kind == model.DefectStoreFailure {
			failure = &summary.Defects[i]
		}
	}
	require.NotNil(t, failure)
	assert.Equal(t, "01", failure.PartnerID)
	assert.Contains(t, failure.Message, "connection reset")
	assert.Equal(t, model.ZoneSouthBay, st.partners["05"].CurrentZone())
}

func TestDriver_ListFailureFailsRun(t *testing.T) {
	st := newMemStore()
	st.listErr = eris.New("memstore: connection refused")
	d := NewDriver(st, testEngine(t))

	_, err := d.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list partners")

	require.Len(t, st.runs, 1)
	assert.Equal(t, model.RunStatusFailed, st.runs[0].Status)
	assert.Contains(t, st.runs[0].Error, "connection refused")
}

func TestDriver_PassesFilter(t *testing.T) {
	st := newMemStore(fixturePartners()...)
	d := NewDriver(st, testEngine(t))

	summary, err := d.Run(context.Background(), Options{OnlyUnzoned: true, Limit: 3})
	require.NoError(t, err)
	assert.True(t, st.lastList.OnlyUnzoned)
	assert.Equal(t, 3, st.lastList.Limit)
	assert.Equal(t, 3, summary.Processed)
}

func TestDriver_ConcurrentMatchesSequential(t *testing.T) {
	var partners []model.Partner
	for i := 0; i < 60; i++ {
		partners = append(partners, fixturePartners()...)
		for j := range partners[len(partners)-6:] {
			partners[len(partners)-6+j].ID = fmt.Sprintf("%02d-%02d", i, j)
		}
	}

	seq, err := NewDriver(newMemStore(partners...), testEngine(t)).Run(context.Background(), Options{Concurrency: 1})
	require.NoError(t, err)
	par, err := NewDriver(newMemStore(partners...), testEngine(t)).Run(context.Background(), Options{Concurrency: 8})
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestDriver_CanceledContext(t *testing.T) {
	st := newMemStore(fixturePartners()...)
	d := NewDriver(st, testEngine(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, Options{})
	require.Error(t, err)
	require.Len(t, st.runs, 1)
	assert.Equal(t, model.RunStatusFailed, st.runs[0].Status)
}

func TestDriver_SQLiteEndToEnd(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "partners.db"), "")
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = st.InsertPartners(ctx, fixturePartners())
	require.NoError(t, err)

	d := NewDriver(st, testEngine(t))
	first, err := d.Run(ctx, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Updated)

	second, err := d.Run(ctx, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)

	partners, err := st.ListPartners(ctx, store.PartnerFilter{})
	require.NoError(t, err)
	byID := make(map[string]model.Partner)
	for _, p := range partners {
		byID[p.ID] = p
	}
	assert.Equal(t, model.ZoneWestsideCoastal, byID["01"].CurrentZone())
	assert.Equal(t, "annenbergpetspace", *byID["01"].InstagramHandle)
	assert.Equal(t, model.ZoneSouthBay, byID["02"].CurrentZone())

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
