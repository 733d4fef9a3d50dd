package rotation

// ProjectileTiming describes how long a projectile style takes to land.
type ProjectileTiming struct {
	// BaseDelay is the fixed number of ticks before the projectile can land.
	BaseDelay int
	// Speed is the number of tiles covered per tick of flight.
	Speed int
}

// Rules are the fixed constants of one hostile actor type.
type Rules struct {
	// RotationLength is the number of actions between forced style changes.
	RotationLength int
	// ActionInterval is the number of ticks between two actions.
	ActionInterval int
	// MaxAttackRange bounds movement-based disambiguation.
	MaxAttackRange int
	// FlinchGraceTicks is how long after its due action an actor can be flinched.
	FlinchGraceTicks int
	Ranged           ProjectileTiming
	Magic            ProjectileTiming
}

// DefaultRules returns the demonic gorilla constants.
func DefaultRules() Rules {
	return Rules{
		RotationLength:   3,
		ActionInterval:   5,
		MaxAttackRange:   10,
		FlinchGraceTicks: 4,
		Ranged:           ProjectileTiming{BaseDelay: 2, Speed: 6},
		Magic:            ProjectileTiming{BaseDelay: 1, Speed: 8},
	}
}

// ImpactDelay returns the number of ticks until an attack of style lands on a target
// distance tiles away. Melee and unknown styles land immediately; an unknown distance
// counts as zero.
//
// Postcondition: Returns >= 0.
func (r Rules) ImpactDelay(style Style, distance int, known bool) int {
	var t ProjectileTiming
	switch style {
	case Ranged:
		t = r.Ranged
	case Magic:
		t = r.Magic
	default:
		return 0
	}
	delay := max(t.BaseDelay, 0)
	if known && distance > 0 && t.Speed > 0 {
		delay += (distance + t.Speed - 1) / t.Speed
	}
	return delay
}

// State is the inferred rotation state of one hostile actor as of a tick boundary.
type State struct {
	// Feasible holds the styles the next action may use.
	Feasible StyleSet
	// ActionsUntilRotation counts actions left before a forced style change.
	ActionsUntilRotation int
	// NextActionTick is the earliest tick the actor is expected to act again.
	NextActionTick int
	// CombatInitiated persists until the actor drops its target.
	CombatInitiated bool

	StyleChangedThisTick  bool
	StyleChangedLastTick  bool
	PrayerChangedThisTick bool
	// TakenDamage is set when the actor was hit this tick.
	TakenDamage bool

	// MovementDisabledTicks suppresses movement disambiguation while > 0.
	MovementDisabledTicks int
	// RecentProjectile is the graphic id of a projectile that left the actor's tile this
	// tick, or 0.
	RecentProjectile int
}

// NewState returns the state of a freshly observed actor.
//
// Postcondition: Feasible == AllStyles; ActionsUntilRotation == r.RotationLength.
func NewState(r Rules) State {
	return State{Feasible: AllStyles, ActionsUntilRotation: r.RotationLength}
}
