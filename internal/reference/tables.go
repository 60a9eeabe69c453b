// Package reference holds the static lookup tables that drive partner
// classification and zone assignment: zone neighborhoods, online and
// out-of-area indicators, and the known-business table.
package reference

import (
	"fmt"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/textnorm"
)

// ZoneDef pairs a zone label with its neighborhood keywords. Order matters.
type ZoneDef struct {
	Name          model.Zone `yaml:"name" json:"name"`
	Neighborhoods []string   `yaml:"neighborhoods" json:"neighborhoods"`
}

// KnownBusiness is an authoritative override for a business identified by
// its exact name. Every field is optional.
type KnownBusiness struct {
	Name            string         `yaml:"name" json:"name"`
	Zone            model.Zone     `yaml:"zone,omitempty" json:"zone,omitempty"`
	Category        model.Category `yaml:"category,omitempty" json:"category,omitempty"`
	Website         string         `yaml:"website,omitempty" json:"website,omitempty"`
	Address         string         `yaml:"address,omitempty" json:"address,omitempty"`
	InstagramHandle string         `yaml:"instagram_handle,omitempty" json:"instagram_handle,omitempty"`
	FacebookURL     string         `yaml:"facebook_url,omitempty" json:"facebook_url,omitempty"`
	TikTokHandle    string         `yaml:"tiktok_handle,omitempty" json:"tiktok_handle,omitempty"`
	YouTubeURL      string         `yaml:"youtube_url,omitempty" json:"youtube_url,omitempty"`
}

// Value returns the enrichment value the business carries for f, or "".
func (b KnownBusiness) Value(f model.Field) string {
	switch f {
	case model.FieldWebsite:
		return b.Website
	case model.FieldAddress:
		return b.Address
	case model.FieldInstagramHandle:
		return b.InstagramHandle
	case model.FieldFacebookURL:
		return b.FacebookURL
	case model.FieldTikTokHandle:
		return b.TikTokHandle
	case model.FieldYouTubeURL:
		return b.YouTubeURL
	}
	return ""
}

// Tables is the immutable reference configuration for one run.
type Tables struct {
	Zones             []ZoneDef       `yaml:"zones" json:"zones"`
	OnlineIndicators  []string        `yaml:"online_indicators" json:"online_indicators"`
	OutOfAreaKeywords []string        `yaml:"out_of_area_keywords" json:"out_of_area_keywords"`
	OutOfAreaNames    []string        `yaml:"out_of_area_names" json:"out_of_area_names"`
	Businesses        []KnownBusiness `yaml:"businesses" json:"businesses"`

	byKey map[string]*KnownBusiness
}

// index (re)builds the name lookup. Later duplicates lose to the first entry.
func (t *Tables) index() {
	t.byKey = make(map[string]*KnownBusiness, len(t.Businesses))
	for i := range t.Businesses {
		k := textnorm.Key(t.Businesses[i].Name)
		if _, dup := t.byKey[k]; dup {
			continue
		}
		t.byKey[k] = &t.Businesses[i]
	}
}

// Lookup returns the known business whose key equals the normalized name.
func (t *Tables) Lookup(name string) (*KnownBusiness, bool) {
	if t == nil {
		return nil, false
	}
	key := textnorm.Key(name)
	if t.byKey == nil {
		for i := range t.Businesses {
			if textnorm.Key(t.Businesses[i].Name) == key {
				return &t.Businesses[i], true
			}
		}
		return nil, false
	}
	b, ok := t.byKey[key]
	return b, ok
}

// Validate checks the tables against the closed enumerations and the
// neighborhood-disjointness invariant. It returns one defect per problem.
func (t *Tables) Validate() []model.Defect {
	var defects []model.Defect
	add := func(kind model.DefectKind, name, format string, args ...any) {
		defects = append(defects, model.Defect{Kind: kind, Name: name, Message: fmt.Sprintf(format, args...)})
	}

	if len(t.Zones) == 0 {
		add(model.DefectEmptyTable, "", "no zones defined")
	}

	owner := make(map[string]model.Zone)
	for _, z := range t.Zones {
		if !z.Name.Valid() || z.Name == model.ZoneOutOfArea {
			add(model.DefectUnknownTableValue, string(z.Name), "zone %q is not a neighborhood zone", z.Name)
		}
		if len(z.Neighborhoods) == 0 {
			add(model.DefectEmptyTable, string(z.Name), "zone %q has no neighborhoods", z.Name)
		}
		for _, n := range z.Neighborhoods {
			k := textnorm.Lower(n)
			if prev, ok := owner[k]; ok {
				add(model.DefectOverlappingNeighborhood, n,
					"neighborhood %q listed under both %q and %q", k, prev, z.Name)
				continue
			}
			owner[k] = z.Name
		}
	}

	seen := make(map[string]bool, len(t.Businesses))
	for _, b := range t.Businesses {
		k := textnorm.Key(b.Name)
		if k == "" {
			add(model.DefectUnknownTableValue, b.Name, "known business with blank name")
			continue
		}
		if seen[k] {
			add(model.DefectDuplicateBusiness, b.Name, "known business %q listed more than once", k)
		}
		seen[k] = true
		if b.Zone != "" && !b.Zone.Valid() {
			add(model.DefectUnknownTableValue, b.Name, "unknown zone %q", b.Zone)
		}
		if b.Category != "" && !b.Category.Valid() {
			add(model.DefectUnknownTableValue, b.Name, "unknown category %q", b.Category)
		}
	}

	return defects
}
