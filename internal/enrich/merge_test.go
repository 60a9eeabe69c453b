package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
)

func catPtr(c model.Category) *model.Category { return &c }
func zonePtr(z model.Zone) *model.Zone        { return &z }

func TestMerge_EmptyWhenAlreadyCorrect(t *testing.T) {
	p := model.Partner{
		ID:       "p1",
		Name:     "Bark Avenue",
		Category: catPtr(model.CategoryGroomer),
		Zone:     zonePtr(model.ZoneSouthBay),
	}
	patch := Merge(p, model.CategoryGroomer, model.ZoneWestsideCoastal, nil)
	assert.True(t, patch.Empty())
}

func TestMerge_CategoryOnlyWhenChanged(t *testing.T) {
	p := model.Partner{Name: "x", Category: catPtr(model.CategoryOther)}

	patch := Merge(p, model.CategoryMedia, model.ZoneIndeterminate, nil)
	v, ok := patch.Get(model.FieldCategory)
	assert.True(t, ok)
	assert.Equal(t, "media", v)
	assert.Equal(t, 1, patch.Len())

	patch = Merge(p, model.CategoryOther, model.ZoneIndeterminate, nil)
	assert.True(t, patch.Empty())
}

func TestMerge_CategoryFromUnset(t *testing.T) {
	patch := Merge(model.Partner{Name: "x"}, model.CategoryOther, model.ZoneIndeterminate, nil)
	v, _ := patch.Get(model.FieldCategory)
	assert.Equal(t, "other", v)
}

func TestMerge_ZoneMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		current *model.Zone
		zone    model.Zone
		want    bool
	}{
		{"unset gets zone", nil, model.ZoneSouthValley, true},
		{"blank gets zone", zonePtr("  "), model.ZoneSouthValley, true},
		{"set keeps zone", zonePtr(model.ZoneNorthValley), model.ZoneSouthValley, false},
		{"sentinel kept", zonePtr(model.ZoneOutOfArea), model.ZoneSouthValley, false},
		{"same zone not rewritten", zonePtr(model.ZoneSouthValley), model.ZoneSouthValley, false},
		{"indeterminate never written", nil, model.ZoneIndeterminate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := model.Partner{Name: "x", Category: catPtr(model.CategoryOther), Zone: tt.current}
			patch := Merge(p, model.CategoryOther, tt.zone, nil)
			assert.Equal(t, tt.want, patch.Has(model.FieldZone))
		})
	}
}

func TestMerge_FillOnly(t *testing.T) {
	existing := "https://mine.example"
	blank := "   "
	p := model.Partner{
		Name:        "Bowie Barker",
		Category:    catPtr(model.CategoryMedia),
		Zone:        zonePtr(model.ZoneSouthBay),
		Website:     &existing,
		FacebookURL: &blank,
	}
	known := &reference.KnownBusiness{
		Name:            "bowie barker",
		Website:         "https://known.example",
		Address:         "1 Main St, Torrance",
		InstagramHandle: "bowiebarker",
		FacebookURL:     "https://facebook.com/bowie",
	}

	patch := Merge(p, model.CategoryMedia, model.ZoneSouthBay, known)

	assert.False(t, patch.Has(model.FieldWebsite))
	assert.Equal(t, []model.Field{
		model.FieldAddress,
		model.FieldInstagramHandle,
		model.FieldFacebookURL,
	}, patch.Fields())

	applied := p.Apply(patch)
	assert.Equal(t, "https://mine.example", *applied.Website)
	assert.Equal(t, "bowiebarker", *applied.InstagramHandle)
	assert.True(t, Merge(applied, model.CategoryMedia, model.ZoneSouthBay, known).Empty())
}

func TestMerge_PatchOrder(t *testing.T) {
	known := &reference.KnownBusiness{Name: "x", YouTubeURL: "yt", Website: "w"}
	patch := Merge(model.Partner{Name: "x"}, model.CategoryMedia, model.ZoneSouthBay, known)
	assert.Equal(t, []model.Field{
		model.FieldCategory,
		model.FieldZone,
		model.FieldWebsite,
		model.FieldYouTubeURL,
	}, patch.Fields())
}

func TestFillAddress(t *testing.T) {
	addr := "12 Ocean Ave, Santa Monica"
	known := &reference.KnownBusiness{Address: "99 Van Nuys Blvd"}

	assert.Equal(t, addr, FillAddress(model.Partner{Address: &addr}, known))
	assert.Equal(t, "99 Van Nuys Blvd", FillAddress(model.Partner{}, known))
	assert.Equal(t, "", FillAddress(model.Partner{}, nil))
}
