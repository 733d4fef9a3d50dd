// Package memory keeps short-term observations of friendly actors in perception range:
// where each was last tick, which guard posture it holds, and the damage it took since
// the last tick boundary.
package memory

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/stylewatch/internal/game/geom"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

// HitKind classifies a damage event received by a defender.
type HitKind int

const (
	// HitDamage is a hit that dealt damage.
	HitDamage HitKind = iota
	// HitBlocked is a zero-effect hit.
	HitBlocked
)

// String returns a short label for the hit kind.
func (k HitKind) String() string {
	switch k {
	case HitDamage:
		return "damage"
	case HitBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k HitKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *HitKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "damage":
		*k = HitDamage
	case "blocked":
		*k = HitBlocked
	default:
		return fmt.Errorf("unknown hit kind %q", text)
	}
	return nil
}

// Hit is one damage event applied to a defender.
type Hit struct {
	Kind   HitKind `yaml:"kind" json:"kind"`
	Amount int     `yaml:"amount" json:"amount"`
}

// Observation is one tick's raw view of a friendly actor.
type Observation struct {
	ID    string         `yaml:"id"`
	Area  geom.Area      `yaml:"area"`
	Guard rotation.Style `yaml:"guard"`
	Hits  []Hit          `yaml:"hits"`
}

// Defender is the memorized state of one friendly actor.
type Defender struct {
	ID string
	// LastArea is the area the defender occupied at the end of the previous tick.
	// Valid only when Known is true.
	LastArea geom.Area
	Known    bool
	// Guard is the style the defender is currently protected against, or rotation.StyleNone.
	Guard rotation.Style
	// Hits holds damage events received since the last tick boundary.
	Hits []Hit

	current geom.Area
}

// Damaged reports whether any damage evidence arrived this tick.
func (d *Defender) Damaged() bool { return len(d.Hits) > 0 }

// Blocked reports whether a zero-effect hit arrived this tick.
func (d *Defender) Blocked() bool {
	for _, h := range d.Hits {
		if h.Kind == HitBlocked {
			return true
		}
	}
	return false
}

// Memory holds every defender currently in perception range, keyed by ID.
// It is not safe for concurrent mutation; reads during a tick are safe once Sync returns.
type Memory struct {
	defenders map[string]*Defender
}

// New returns an empty Memory.
func New() *Memory {
	return &Memory{defenders: make(map[string]*Defender)}
}

// Sync reconciles memory with the defenders observed this tick. Unseen defenders are
// forgotten; new ones are created without a known area until the next Advance.
//
// Postcondition: memory holds exactly the observed IDs; spawned and despawned are sorted.
func (m *Memory) Sync(observed []Observation) (spawned, despawned []string) {
	seen := make(map[string]struct{}, len(observed))
	for _, o := range observed {
		seen[o.ID] = struct{}{}
		d, ok := m.defenders[o.ID]
		if !ok {
			d = &Defender{ID: o.ID}
			m.defenders[o.ID] = d
			spawned = append(spawned, o.ID)
		}
		d.current = o.Area
		d.Guard = o.Guard
		d.Hits = append(d.Hits, o.Hits...)
	}
	for id := range m.defenders {
		if _, ok := seen[id]; !ok {
			delete(m.defenders, id)
			despawned = append(despawned, id)
		}
	}
	sort.Strings(spawned)
	sort.Strings(despawned)
	return spawned, despawned
}

// Get returns the defender with id.
//
// Postcondition: Returns (defender, true) if in memory, or (nil, false) otherwise.
func (m *Memory) Get(id string) (*Defender, bool) {
	d, ok := m.defenders[id]
	return d, ok
}

// KnownAreas returns the last known area of every defender, ordered by ID.
func (m *Memory) KnownAreas() []geom.Area {
	ids := make([]string, 0, len(m.defenders))
	for id, d := range m.defenders {
		if d.Known {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	areas := make([]geom.Area, 0, len(ids))
	for _, id := range ids {
		areas = append(areas, m.defenders[id].LastArea)
	}
	return areas
}

// Advance moves memory across the tick boundary: this tick's areas become the last
// known areas and damage evidence is discarded.
func (m *Memory) Advance() {
	for _, d := range m.defenders {
		d.LastArea = d.current
		d.Known = true
		d.Hits = nil
	}
}

// Len returns the number of defenders in memory.
func (m *Memory) Len() int { return len(m.defenders) }

// Clear forgets every defender.
func (m *Memory) Clear() {
	clear(m.defenders)
}
