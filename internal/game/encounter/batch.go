package encounter

import (
	"github.com/cory-johannsen/stylewatch/internal/game/geom"
	"github.com/cory-johannsen/stylewatch/internal/game/memory"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

// HostileObservation is one tick's raw view of a hostile actor.
type HostileObservation struct {
	ID    string `yaml:"id"`
	NPCID int    `yaml:"npc_id"`
	// Index is the host's stable actor index; lower indices are processed first.
	Index     int       `yaml:"index"`
	Area      geom.Area `yaml:"area"`
	Animation int       `yaml:"animation"`
	Overhead  int       `yaml:"overhead"`
	// Target is the ID of the actor being interacted with, or empty.
	Target string `yaml:"target"`
	// DamageTaken is set when the actor was hit by the observing side this tick.
	DamageTaken bool `yaml:"damage_taken"`
}

// ProjectileSighting is one report of an in-flight projectile. The same projectile may be
// reported on several sub-ticks and ticks; Key identifies it across reports.
type ProjectileSighting struct {
	Key     string     `yaml:"key"`
	Graphic int        `yaml:"graphic"`
	Source  geom.Point `yaml:"source"`
	// LandsOnTick is the tick after which the projectile is no longer in flight.
	LandsOnTick int `yaml:"lands_on_tick"`
}

// Batch is everything the host observed during one tick.
type Batch struct {
	Tick        int                  `yaml:"tick"`
	Hostiles    []HostileObservation `yaml:"hostiles"`
	Defenders   []memory.Observation `yaml:"defenders"`
	Projectiles []ProjectileSighting `yaml:"projectiles"`
	// Impacts are ground-impact points reported directly by the host.
	Impacts []geom.Point `yaml:"impacts"`
}

// Prediction is the displayable inference for one hostile actor.
type Prediction struct {
	ActorID              string           `json:"actor_id"`
	Index                int              `json:"index"`
	Styles               []rotation.Style `json:"styles"`
	ActionsUntilRotation int              `json:"actions_until_rotation"`
	NextActionTick       int              `json:"next_action_tick"`
	// StyleChanged is true when a rotation reset happened during the tick.
	StyleChanged bool `json:"style_changed"`
}
