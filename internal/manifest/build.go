package manifest

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/roach88/trailsql/internal/trail"
)

// Summary describes a store written by Build.
type Summary struct {
	Path   string `json:"path"`
	Fields int    `json:"fields"`
	Trails int    `json:"trails"`
	Events int    `json:"events"`
}

// Build writes the store described by m to path, which must not exist.
// Trails sharing a UUID are merged. Nothing is left at path on error.
func Build(ctx context.Context, m *Manifest, path string) (*Summary, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	c, err := trail.NewConstructor(path, m.Fields)
	if err != nil {
		return nil, err
	}

	trails := make(map[uuid.UUID]bool)
	for i, tr := range m.Trails {
		id, err := uuid.Parse(tr.UUID)
		if err != nil {
			c.Abort()
			return nil, fmt.Errorf("trail %d: %w", i, err)
		}
		trails[id] = true

		if len(tr.Events) == 0 {
			if err := c.AddTrail(id); err != nil {
				c.Abort()
				return nil, fmt.Errorf("trail %d: %w", i, err)
			}
			continue
		}
		for j, ev := range tr.Events {
			if err := c.Add(id, ev.Timestamp, m.row(ev)); err != nil {
				c.Abort()
				return nil, fmt.Errorf("trail %d event %d: %w", i, j, err)
			}
		}
	}

	if err := c.Finalize(ctx); err != nil {
		return nil, err
	}

	s := &Summary{Path: path, Fields: len(m.Fields), Trails: len(trails), Events: m.NumEvents()}
	log.Printf("[DEBUG] built %s: %d fields, %d trails, %d events", path, s.Fields, s.Trails, s.Events)
	return s, nil
}

// row orders an event's values by catalog position.
func (m *Manifest) row(ev Event) [][]byte {
	vals := make([][]byte, len(m.Fields))
	for i, f := range m.Fields {
		if v, ok := ev.Values[f]; ok {
			vals[i] = []byte(v)
		}
	}
	return vals
}
