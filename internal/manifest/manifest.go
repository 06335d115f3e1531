// Package manifest reads import manifests describing the content of a trail
// store and builds the store from them.
//
// A manifest lists the field catalog and the trails:
//
//	fields: [action, page]
//	trails:
//	  - uuid: 6f1c2a52-0b7e-4c36-9d0e-3cfa8d5e4a11
//	    events:
//	      - timestamp: 1700000000
//	        values: {action: view, page: /}
//
// Manifests are YAML (.yaml, .yml), TOML (.toml) or CUE (.cue). Fields
// missing from an event's values are stored empty.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/trailsql/internal/trail"
)

// ErrUnsupportedFormat is returned for a manifest file with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported manifest format")

// Manifest is the decoded content of an import manifest.
type Manifest struct {
	Fields []string `yaml:"fields" toml:"fields" json:"fields"`
	Trails []Trail  `yaml:"trails" toml:"trails" json:"trails"`
}

// Trail is one trail of a Manifest. A trail with no events is kept.
type Trail struct {
	UUID   string  `yaml:"uuid" toml:"uuid" json:"uuid"`
	Events []Event `yaml:"events" toml:"events" json:"events"`
}

// Event is one event; Values maps field names to values.
type Event struct {
	Timestamp uint64            `yaml:"timestamp" toml:"timestamp" json:"timestamp"`
	Values    map[string]string `yaml:"values" toml:"values" json:"values"`
}

// Load reads and validates the manifest at path. The format is chosen by
// file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m *Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		m, err = ParseYAML(data)
	case ".toml":
		m, err = ParseTOML(data)
	case ".cue":
		m, err = ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseYAML decodes a YAML manifest. Unknown keys are rejected.
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &m, nil
}

// ParseTOML decodes a TOML manifest. Unknown keys are rejected.
func ParseTOML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return &m, nil
}

// ParseCUE evaluates a CUE manifest and decodes the result. filename is
// used in error positions only.
func ParseCUE(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE manifest is not concrete: %w", err)
	}

	var m Manifest
	if err := v.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &m, nil
}

// Validate checks the catalog, every trail UUID and every value key.
func (m *Manifest) Validate() error {
	if err := trail.ValidateFields(m.Fields); err != nil {
		return err
	}

	known := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		known[f] = true
	}

	for i, tr := range m.Trails {
		if _, err := uuid.Parse(tr.UUID); err != nil {
			return fmt.Errorf("trail %d: invalid uuid %q: %w", i, tr.UUID, err)
		}
		for j, ev := range tr.Events {
			for name := range ev.Values {
				if !known[name] {
					return fmt.Errorf("trail %d event %d: unknown field %q", i, j, name)
				}
			}
		}
	}
	return nil
}

// NumEvents returns the total number of events in m.
func (m *Manifest) NumEvents() int {
	n := 0
	for _, tr := range m.Trails {
		n += len(tr.Events)
	}
	return n
}
