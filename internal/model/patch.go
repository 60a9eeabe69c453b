package model

import (
	"bytes"
	"encoding/json"
)

// PatchEntry is a single field assignment within a Patch.
type PatchEntry struct {
	Field Field
	Value string
}

// Patch is a partial update for one partner: only the fields that should
// change. Entries keep insertion order so writes and logs are deterministic.
type Patch struct {
	entries []PatchEntry
}

// Set adds or replaces the value for f.
func (p *Patch) Set(f Field, value string) {
	for i := range p.entries {
		if p.entries[i].Field == f {
			p.entries[i].Value = value
			return
		}
	}
	p.entries = append(p.entries, PatchEntry{Field: f, Value: value})
}

// Get returns the value for f and whether it is present.
func (p Patch) Get(f Field) (string, bool) {
	for _, e := range p.entries {
		if e.Field == f {
			return e.Value, true
		}
	}
	return "", false
}

// Has reports whether f is present in the patch.
func (p Patch) Has(f Field) bool {
	_, ok := p.Get(f)
	return ok
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return len(p.entries) == 0
}

// Len returns the number of fields in the patch.
func (p Patch) Len() int {
	return len(p.entries)
}

// Entries returns the patch entries in insertion order.
func (p Patch) Entries() []PatchEntry {
	out := make([]PatchEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Fields returns the patched field names in insertion order.
func (p Patch) Fields() []Field {
	out := make([]Field, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Field
	}
	return out
}

// Map returns the patch as a column→value map.
func (p Patch) Map() map[string]any {
	m := make(map[string]any, len(p.entries))
	for _, e := range p.entries {
		m[string(e.Field)] = e.Value
	}
	return m
}

// MarshalJSON encodes the patch as a JSON object in insertion order.
func (p Patch) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(e.Field))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
