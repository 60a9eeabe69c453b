package reconcile

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/resilience"
	"github.com/sells-group/partner-cli/internal/store"
)

// Options controls a reconcile run.
type Options struct {
	// DryRun evaluates every partner but writes no patches.
	DryRun bool
	// OnlyUnzoned restricts the run to partners with no zone.
	OnlyUnzoned bool
	// Concurrency is the number of partners evaluated in parallel. Default 1.
	Concurrency int
	// Limit caps the number of partners fetched. Zero means all.
	Limit int
	// OnResult, when set, is called once per partner after its patch is
	// applied (or skipped). Calls are serialized.
	OnResult func(p model.Partner, res Result, applyErr error)
}

// Driver runs the engine over every partner in a store.
type Driver struct {
	store  store.Store
	engine *Engine
}

// NewDriver creates a Driver.
func NewDriver(st store.Store, engine *Engine) *Driver {
	return &Driver{store: st, engine: engine}
}

// Run fetches partners, evaluates each, applies non-empty patches and records
// the run. A failed patch is counted and reported without stopping the run;
// only a failed fetch or a canceled context fails the run itself.
func (d *Driver) Run(ctx context.Context, opts Options) (*model.RunSummary, error) {
	run, err := d.store.CreateRun(ctx, opts.DryRun)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.Bool("dry_run", opts.DryRun))

	summary, runErr := d.process(ctx, log, opts)

	// The run row is closed even when ctx was canceled mid-run.
	if err := d.store.CompleteRun(context.WithoutCancel(ctx), run.ID, summary, runErr); err != nil {
		log.Error("failed to record run completion", zap.Error(err))
	}
	if runErr != nil {
		return summary, runErr
	}

	log.Info("reconcile complete",
		zap.Int("processed", summary.Processed),
		zap.Int("updated", summary.Updated),
		zap.Int("recategorized", summary.Recategorized),
		zap.Int("zones_assigned", summary.ZonesAssigned),
		zap.Int("fields_enriched", summary.FieldsEnriched),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("unzoned", len(summary.Unzoned)),
	)
	return summary, nil
}

func (d *Driver) process(ctx context.Context, log *zap.Logger, opts Options) (*model.RunSummary, error) {
	partners, err := d.store.ListPartners(ctx, store.PartnerFilter{
		OnlyUnzoned: opts.OnlyUnzoned,
		Limit:       opts.Limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list partners")
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	log.Info("reconciling partners",
		zap.Int("partners", len(partners)),
		zap.Int("concurrency", concurrency),
	)

	agg := &aggregator{summary: &model.RunSummary{}, onResult: opts.OnResult}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, p := range partners {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := d.engine.Evaluate(p)
			plog := log.With(zap.String("partner_id", p.ID))
			for _, def := range res.Defects {
				plog.Warn("partner defect",
					zap.String("kind", string(def.Kind)),
					zap.String("message", def.Message),
				)
			}

			var applyErr error
			if !opts.DryRun && !res.Patch.Empty() {
				applyErr = d.store.ApplyPatch(gctx, p.ID, res.Patch)
				if applyErr != nil {
					plog.Error("apply patch failed",
						zap.Strings("fields", fieldNames(res.Patch)),
						zap.String("class", resilience.ClassifyError(applyErr)),
						zap.Error(applyErr),
					)
				}
			}
			if applyErr == nil && !res.Patch.Empty() {
				plog.Debug("partner patched",
					zap.String("rule", res.Rule),
					zap.String("step", string(res.Step)),
					zap.Strings("fields", fieldNames(res.Patch)),
				)
			}
			agg.add(p, res, applyErr)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return agg.finish(), eris.Wrap(err, "reconcile: run interrupted")
	}
	if err := ctx.Err(); err != nil {
		return agg.finish(), eris.Wrap(err, "reconcile: run interrupted")
	}
	return agg.finish(), nil
}

// aggregator folds per-partner results into a RunSummary.
type aggregator struct {
	mu       sync.Mutex
	summary  *model.RunSummary
	onResult func(model.Partner, Result, error)
}

func (a *aggregator) add(p model.Partner, res Result, applyErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.summary
	s.Processed++
	s.Defects = append(s.Defects, res.Defects...)

	switch {
	case res.Skipped:
		s.Skipped++
	case applyErr != nil:
		s.Failed++
		s.Defects = append(s.Defects, model.Defect{
			Kind:      model.DefectStoreFailure,
			PartnerID: p.ID,
			Name:      p.Name,
			Message:   applyErr.Error(),
		})
	case !res.Patch.Empty():
		s.Updated++
		for _, f := range res.Patch.Fields() {
			switch f {
			case model.FieldCategory:
				s.Recategorized++
			case model.FieldZone:
				s.ZonesAssigned++
			default:
				s.FieldsEnriched++
			}
		}
	default:
		s.Unchanged++
	}

	if !p.HasZone() && (applyErr != nil || !res.Patch.Has(model.FieldZone)) {
		s.Unzoned = append(s.Unzoned, p.ID)
	}

	if a.onResult != nil {
		a.onResult(p, res, applyErr)
	}
}

// finish sorts list fields so the summary does not depend on scheduling.
func (a *aggregator) finish() *model.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.summary
	sort.Strings(s.Unzoned)
	sort.SliceStable(s.Defects, func(i, j int) bool {
		if s.Defects[i].PartnerID != s.Defects[j].PartnerID {
			return s.Defects[i].PartnerID < s.Defects[j].PartnerID
		}
		return s.Defects[i].Kind < s.Defects[j].Kind
	})
	return s
}

func fieldNames(p model.Patch) []string {
	fields := p.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
