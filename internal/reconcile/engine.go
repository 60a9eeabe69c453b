// Package reconcile evaluates partners against the classifier, the zone
// resolver and the known-business table, and drives a reconcile run over a
// record store.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/sells-group/partner-cli/internal/classify"
	"github.com/sells-group/partner-cli/internal/enrich"
	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
	"github.com/sells-group/partner-cli/internal/zone"
)

// Result is the outcome of evaluating one partner.
type Result struct {
	PartnerID string         `json:"partner_id"`
	Name      string         `json:"name"`
	Patch     model.Patch    `json:"patch"`
	Category  model.Category `json:"category,omitempty"`
	Rule      string         `json:"rule,omitempty"`
	Zone      model.Zone     `json:"zone,omitempty"`
	Step      zone.Step      `json:"step,omitempty"`
	Known     bool           `json:"known"`
	Skipped   bool           `json:"skipped,omitempty"`
	Defects   []model.Defect `json:"defects,omitempty"`
}

// Engine combines the classifier, resolver and merger. It is safe for
// concurrent use: all state is read-only after construction.
type Engine struct {
	tables     *reference.Tables
	classifier *classify.Classifier
	resolver   *zone.Resolver
}

// NewEngine builds an Engine over tables.
func NewEngine(tables *reference.Tables) *Engine {
	return &Engine{
		tables:     tables,
		classifier: classify.New(tables),
		resolver:   zone.NewResolver(tables),
	}
}

// Tables returns the reference tables the engine was built with.
func (e *Engine) Tables() *reference.Tables {
	return e.tables
}

// Evaluate computes the patch for p. A partner with no name is skipped. A
// computed category or zone outside the closed sets leaves the partner
// unchanged and is reported as a defect.
func (e *Engine) Evaluate(p model.Partner) Result {
	res := Result{PartnerID: p.ID, Name: p.Name}

	if strings.TrimSpace(p.Name) == "" {
		res.Skipped = true
		res.Defects = append(res.Defects, model.Defect{
			Kind:      model.DefectMissingName,
			PartnerID: p.ID,
			Message:   "partner has no name",
		})
		return res
	}

	known, ok := e.tables.Lookup(p.Name)
	res.Known = ok

	res.Category, res.Rule = e.classifier.Explain(classify.InputFor(p))

	zin := zone.InputFor(p)
	zin.Address = enrich.FillAddress(p, known)
	m := e.resolver.Explain(zin)
	res.Zone, res.Step = m.Zone, m.Step

	if !res.Category.Valid() {
		res.Defects = append(res.Defects, model.Defect{
			Kind:      model.DefectInvalidCategory,
			PartnerID: p.ID,
			Name:      p.Name,
			Message:   fmt.Sprintf("category %q from rule %s is not a known category", res.Category, res.Rule),
		})
	}
	if res.Zone != model.ZoneIndeterminate && !res.Zone.Valid() {
		res.Defects = append(res.Defects, model.Defect{
			Kind:      model.DefectInvalidZone,
			PartnerID: p.ID,
			Name:      p.Name,
			Message:   fmt.Sprintf("zone %q from step %s is not a known zone", res.Zone, res.Step),
		})
	}
	if len(res.Defects) > 0 {
		return res
	}

	res.Patch = enrich.Merge(p, res.Category, res.Zone, known)
	return res
}
