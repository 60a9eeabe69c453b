package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch_SetKeepsInsertionOrder(t *testing.T) {
	var p Patch
	assert.True(t, p.Empty())

	p.Set(FieldZone, "South Bay")
	p.Set(FieldWebsite, "https://a.example")
	p.Set(FieldZone, "Westside & Coastal")

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []Field{FieldZone, FieldWebsite}, p.Fields())

	v, ok := p.Get(FieldZone)
	assert.True(t, ok)
	assert.Equal(t, "Westside & Coastal", v)
	assert.True(t, p.Has(FieldWebsite))
	assert.False(t, p.Has(FieldAddress))
}

func TestPatch_EntriesIsACopy(t *testing.T) {
	var p Patch
	p.Set(FieldAddress, "1 Main St")

	entries := p.Entries()
	entries[0].Value = "changed"

	v, _ := p.Get(FieldAddress)
	assert.Equal(t, "1 Main St", v)
}

func TestPatch_Map(t *testing.T) {
	var p Patch
	p.Set(FieldCategory, "groomer")
	p.Set(FieldInstagramHandle, "paws")

	assert.Equal(t, map[string]any{"partner_type": "groomer", "instagram_handle": "paws"}, p.Map())
}

func TestPatch_MarshalJSON(t *testing.T) {
	var p Patch
	p.Set(FieldZone, "South Bay")
	p.Set(FieldCategory, "rescue")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"area":"South Bay","partner_type":"rescue"}`, string(out))

	out, err = json.Marshal(Patch{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}
