// Package enrich builds the partial update for a partner from the
// classifier result, the resolved zone and the known-business record.
// Existing values always win: zone is write-once and contact fields are
// only ever filled while blank.
package enrich

import (
	"strings"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
)

// Merge returns the fields of p that should change. The patch is empty when
// the record is already correct.
//
// category is written when it differs from the current value. zone is
// written only when p has no zone and zone is determinate. Enrichment fields
// come from known (which may be nil) and are written only when blank on p.
func Merge(p model.Partner, category model.Category, zone model.Zone, known *reference.KnownBusiness) model.Patch {
	var patch model.Patch

	if category != "" && category != model.Category(strings.TrimSpace(string(p.CurrentCategory()))) {
		patch.Set(model.FieldCategory, string(category))
	}

	if !p.HasZone() && zone != model.ZoneIndeterminate {
		patch.Set(model.FieldZone, string(zone))
	}

	if known == nil {
		return patch
	}
	for _, f := range model.EnrichmentFields {
		v := strings.TrimSpace(known.Value(f))
		if v == "" || !p.Blank(f) {
			continue
		}
		patch.Set(f, v)
	}
	return patch
}

// FillAddress returns the address zone resolution should see: the record's
// own address, or the known address the merge is about to fill in.
func FillAddress(p model.Partner, known *reference.KnownBusiness) string {
	if !p.Blank(model.FieldAddress) {
		return p.Value(model.FieldAddress)
	}
	if known != nil {
		return known.Address
	}
	return ""
}
