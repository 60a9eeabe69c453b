package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/partner-cli/internal/model"
)

func TestDistribute(t *testing.T) {
	partners := []model.Partner{
		{ID: "1", Category: catPtr(model.CategoryRescue), Zone: zonePtr(model.ZoneSouthBay)},
		{ID: "2", Category: catPtr(model.CategoryGroomer), Zone: zonePtr(model.ZoneWestsideCoastal)},
		{ID: "3", Category: catPtr(model.CategoryGroomer)},
		{ID: "4", Category: catPtr("Vet"), Zone: zonePtr("  ")},
		{ID: "5"},
	}

	d := Distribute(partners)
	assert.Equal(t, 5, d.Total)
	assert.Equal(t, []Count{
		{Label: "groomer", Count: 2},
		{Label: "rescue", Count: 1},
		{Label: "Vet", Count: 1},
		{Label: Unset, Count: 1},
	}, d.Categories)
	assert.Equal(t, []Count{
		{Label: string(model.ZoneWestsideCoastal), Count: 1},
		{Label: string(model.ZoneSouthBay), Count: 1},
		{Label: Unset, Count: 3},
	}, d.Zones)
}

func TestDistribute_Empty(t *testing.T) {
	d := Distribute(nil)
	assert.Zero(t, d.Total)
	assert.Empty(t, d.Categories)
	assert.Empty(t, d.Zones)
}
