// Package classify assigns partners to the category taxonomy using an
// ordered, first-match-wins list of keyword rules over the partner's name,
// service description and notes.
package classify

import (
	"strings"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
	"github.com/sells-group/partner-cli/internal/textnorm"
)

// Input is the text a category decision is made from. Blank fields are fine.
type Input struct {
	Name     string
	Current  model.Category
	Services string
	Notes    string
}

// InputFor builds an Input from a stored partner.
func InputFor(p model.Partner) Input {
	in := Input{Name: p.Name, Current: p.CurrentCategory()}
	if p.ServicesDescription != nil {
		in.Services = *p.ServicesDescription
	}
	if p.Notes != nil {
		in.Notes = *p.Notes
	}
	return in
}

// text is the folded view of an Input that rules evaluate against.
type text struct {
	name     string
	services string // trimmed
	notes    string
	current  model.Category
}

func fold(in Input) text {
	return text{
		name:     textnorm.Lower(strings.TrimSpace(in.Name)),
		services: strings.TrimSpace(textnorm.Lower(in.Services)),
		notes:    textnorm.Lower(in.Notes),
		current:  model.Category(strings.TrimSpace(string(in.Current))),
	}
}

// rule is one precedence step. Match returns the category and true when the
// rule fires; later rules are never consulted after that.
type rule struct {
	Name  string
	Match func(t text) (model.Category, bool)
}

// Classifier evaluates the rule list in order.
type Classifier struct {
	rules []rule
}

// New builds the production classifier. Tables may be nil, which disables
// the known-name category override.
func New(tables *reference.Tables) *Classifier {
	return &Classifier{rules: defaultRules(tables)}
}

// Classify returns the category the partner should have. It never fails:
// when no rule fires it keeps the current category, or "other" when unset.
func (c *Classifier) Classify(in Input) model.Category {
	cat, _ := c.Explain(in)
	return cat
}

// Explain is Classify plus the name of the rule that decided.
func (c *Classifier) Explain(in Input) (model.Category, string) {
	t := fold(in)
	for _, r := range c.rules {
		if cat, ok := r.Match(t); ok {
			return cat, r.Name
		}
	}
	if t.current != "" {
		return t.current, RuleFallback
	}
	return model.CategoryOther, RuleFallback
}

// RuleNames lists the rules in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return append(names, RuleFallback)
}
