// Package replay loads recorded observation sessions and feeds them to the engine one
// batch per tick.
package replay

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stylewatch/internal/game/encounter"
)

// Recording is a captured sequence of per-tick observation batches.
type Recording struct {
	Name  string            `yaml:"name"`
	Ticks []encounter.Batch `yaml:"ticks"`
}

// Validate checks that ticks strictly increase, that no actor id repeats within a batch,
// and that every projectile sighting has a key and does not land before it is seen.
//
// Postcondition: Returns nil if valid, or an error describing all violations.
func (r *Recording) Validate() error {
	var errs []string
	if len(r.Ticks) == 0 {
		errs = append(errs, "recording has no ticks")
	}
	var prev int
	for i, b := range r.Ticks {
		if i > 0 && b.Tick <= prev {
			errs = append(errs, fmt.Sprintf("ticks[%d]: tick %d does not follow %d", i, b.Tick, prev))
		}
		prev = b.Tick

		seen := make(map[string]bool, len(b.Hostiles)+len(b.Defenders))
		for _, h := range b.Hostiles {
			if h.ID == "" {
				errs = append(errs, fmt.Sprintf("tick %d: hostile with empty id", b.Tick))
			} else if seen[h.ID] {
				errs = append(errs, fmt.Sprintf("tick %d: duplicate actor %q", b.Tick, h.ID))
			}
			seen[h.ID] = true
		}
		for _, d := range b.Defenders {
			if d.ID == "" {
				errs = append(errs, fmt.Sprintf("tick %d: defender with empty id", b.Tick))
			} else if seen[d.ID] {
				errs = append(errs, fmt.Sprintf("tick %d: duplicate actor %q", b.Tick, d.ID))
			}
			seen[d.ID] = true
		}
		for _, p := range b.Projectiles {
			if p.Key == "" {
				errs = append(errs, fmt.Sprintf("tick %d: projectile with empty key", b.Tick))
			}
			if p.LandsOnTick < b.Tick {
				errs = append(errs, fmt.Sprintf("tick %d: projectile %q lands on tick %d before it was seen", b.Tick, p.Key, p.LandsOnTick))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("recording %q: %s", r.Name, strings.Join(errs, "; "))
	}
	return nil
}

// LoadFromBytes parses and validates a recording from YAML.
//
// Postcondition: Returns a validated Recording or a non-nil error.
func LoadFromBytes(data []byte) (*Recording, error) {
	var r Recording
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing recording YAML: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Load reads a recording file.
//
// Precondition: path must name a readable YAML file.
// Postcondition: Returns a validated Recording or a non-nil error.
func Load(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recording %s: %w", path, err)
	}
	r, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading recording %s: %w", path, err)
	}
	return r, nil
}

// ErrExhausted is returned by Cursor.Next once every batch has been delivered. It wraps io.EOF.
var ErrExhausted = fmt.Errorf("recording exhausted: %w", io.EOF)

// Cursor delivers the batches of a recording in order.
type Cursor struct {
	rec  *Recording
	next int
}

// NewCursor returns a Cursor positioned at the first batch of rec.
//
// Precondition: rec must be non-nil.
func NewCursor(rec *Recording) *Cursor {
	if rec == nil {
		panic("replay.NewCursor: recording must not be nil")
	}
	return &Cursor{rec: rec}
}

// Next returns the next batch, or ErrExhausted after the last one.
func (c *Cursor) Next() (encounter.Batch, error) {
	if c.next >= len(c.rec.Ticks) {
		return encounter.Batch{}, ErrExhausted
	}
	b := c.rec.Ticks[c.next]
	c.next++
	return b, nil
}

// Remaining returns the number of undelivered batches.
func (c *Cursor) Remaining() int { return len(c.rec.Ticks) - c.next }
