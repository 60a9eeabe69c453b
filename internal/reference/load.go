package reference

import (
	"bytes"
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Default returns the production reference tables compiled into the binary.
func Default() (*Tables, error) {
	t, err := Parse(defaultTables)
	if err != nil {
		return nil, eris.Wrap(err, "reference: parse embedded tables")
	}
	return t, nil
}

// Load reads reference tables from a YAML file. An empty path yields Default.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: read %s", path)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: parse %s", path)
	}
	return t, nil
}

// Parse decodes a YAML tables document and indexes the known businesses.
// Unknown keys are rejected so typos in hand-edited tables surface early.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, eris.Wrap(err, "reference: decode yaml")
	}
	t.index()
	return &t, nil
}

// Marshal encodes the tables back to YAML.
func Marshal(t *Tables) ([]byte, error) {
	out, err := yaml.Marshal(t)
	if err != nil {
		return nil, eris.Wrap(err, "reference: encode yaml")
	}
	return out, nil
}
