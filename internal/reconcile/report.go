package reconcile

import (
	"sort"
	"strings"

	"github.com/sells-group/partner-cli/internal/model"
)

// Unset labels partners with no category or no zone in a Distribution.
const Unset = "(unset)"

// Count is one row of a distribution.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distribution is the category and zone breakdown of a set of partners.
type Distribution struct {
	Total      int     `json:"total"`
	Categories []Count `json:"categories"`
	Zones      []Count `json:"zones"`
}

// Distribute counts partners per category and per zone. Known values are
// listed in taxonomy order, followed by unrecognized values sorted by label,
// then Unset. Labels with a zero count are omitted.
func Distribute(partners []model.Partner) Distribution {
	cats := make(map[string]int)
	zones := make(map[string]int)
	for _, p := range partners {
		cats[labelOf(string(p.CurrentCategory()))]++
		zones[labelOf(string(p.CurrentZone()))]++
	}

	known := func(values []string) map[string]bool {
		m := make(map[string]bool, len(values))
		for _, v := range values {
			m[v] = true
		}
		return m
	}

	catOrder := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		catOrder = append(catOrder, string(c))
	}
	zoneOrder := make([]string, 0, len(model.Zones))
	for _, z := range model.Zones {
		zoneOrder = append(zoneOrder, string(z))
	}

	return Distribution{
		Total:      len(partners),
		Categories: ordered(cats, catOrder, known(catOrder)),
		Zones:      ordered(zones, zoneOrder, known(zoneOrder)),
	}
}

func labelOf(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return Unset
	}
	return v
}

func ordered(counts map[string]int, order []string, known map[string]bool) []Count {
	out := make([]Count, 0, len(counts))
	for _, label := range order {
		if n := counts[label]; n > 0 {
			out = append(out, Count{Label: label, Count: n})
		}
	}

	var other []string
	for label := range counts {
		if !known[label] && label != Unset {
			other = append(other, label)
		}
	}
	sort.Strings(other)
	for _, label := range other {
		out = append(out, Count{Label: label, Count: counts[label]})
	}

	if n := counts[Unset]; n > 0 {
		out = append(out, Count{Label: Unset, Count: n})
	}
	return out
}
