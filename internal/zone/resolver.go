// Package zone places partners into geographic service areas from their
// name, address, notes and proximity hint.
package zone

import (
	"strings"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
	"github.com/sells-group/partner-cli/internal/textnorm"
)

// Step identifies which resolution step produced a zone.
type Step string

const (
	StepOnline         Step = "online_indicator"
	StepKnownName      Step = "known_name"
	StepNeighborhood   Step = "neighborhood"
	StepOutOfArea      Step = "out_of_area"
	StepNamedOutOfArea Step = "named_out_of_area"
	StepNone           Step = "none"
)

// Input is the text a zone decision is made from.
type Input struct {
	Name          string
	Address       string
	Notes         string
	ProximityHint string
}

// InputFor builds an Input from a stored partner.
func InputFor(p model.Partner) Input {
	in := Input{Name: p.Name}
	if p.Address != nil {
		in.Address = *p.Address
	}
	if p.Notes != nil {
		in.Notes = *p.Notes
	}
	if p.ProximityHint != nil {
		in.ProximityHint = *p.ProximityHint
	}
	return in
}

// Match explains a resolution: the zone, the step, and the keyword or
// table key that fired.
type Match struct {
	Zone    model.Zone
	Step    Step
	Keyword string
}

// Resolver is a pure function of its tables and input.
type Resolver struct {
	tables         *reference.Tables
	online         []string
	zones          []reference.ZoneDef
	outOfArea      []string
	outOfAreaNames []string
}

// NewResolver creates a Resolver over the given reference tables. Keywords
// are case-folded once here.
func NewResolver(tables *reference.Tables) *Resolver {
	if tables == nil {
		tables = &reference.Tables{}
	}
	r := &Resolver{
		tables:         tables,
		online:         lowerAll(tables.OnlineIndicators),
		outOfArea:      lowerAll(tables.OutOfAreaKeywords),
		outOfAreaNames: lowerAll(tables.OutOfAreaNames),
	}
	for _, z := range tables.Zones {
		r.zones = append(r.zones, reference.ZoneDef{Name: z.Name, Neighborhoods: lowerAll(z.Neighborhoods)})
	}
	return r
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = textnorm.Lower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Resolve returns the partner's zone, or model.ZoneIndeterminate.
func (r *Resolver) Resolve(in Input) model.Zone {
	return r.Explain(in).Zone
}

// Explain runs the resolution steps in strict order and reports the first hit.
func (r *Resolver) Explain(in Input) Match {
	name := textnorm.Lower(strings.TrimSpace(in.Name))
	addr := textnorm.Lower(in.Address)

	if kw, ok := textnorm.FirstContained(name, r.online); ok {
		return Match{Zone: model.ZoneOutOfArea, Step: StepOnline, Keyword: kw}
	}

	if b, ok := r.tables.Lookup(name); ok && b.Zone != "" {
		return Match{Zone: b.Zone, Step: StepKnownName, Keyword: textnorm.Key(b.Name)}
	}

	// Address is checked before name for each neighborhood; the first zone
	// in table order with any hit wins.
	for _, z := range r.zones {
		for _, n := range z.Neighborhoods {
			if addr != "" && strings.Contains(addr, n) {
				return Match{Zone: z.Name, Step: StepNeighborhood, Keyword: n}
			}
			if strings.Contains(name, n) {
				return Match{Zone: z.Name, Step: StepNeighborhood, Keyword: n}
			}
		}
	}

	blob := strings.Join([]string{name, addr, textnorm.Lower(in.Notes), textnorm.Lower(in.ProximityHint)}, " ")
	if kw, ok := textnorm.FirstContained(blob, r.outOfArea); ok {
		return Match{Zone: model.ZoneOutOfArea, Step: StepOutOfArea, Keyword: kw}
	}

	if kw, ok := textnorm.FirstContained(name, r.outOfAreaNames); ok {
		return Match{Zone: model.ZoneOutOfArea, Step: StepNamedOutOfArea, Keyword: kw}
	}

	return Match{Zone: model.ZoneIndeterminate, Step: StepNone}
}
