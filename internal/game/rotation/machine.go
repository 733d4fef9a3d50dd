package rotation

// Attack is one classified action of a hostile actor.
type Attack struct {
	Style Style
	Tick  int
	// TargetTracked is false when the actor's target is not in memory.
	TargetTracked bool
	// Guard is the style the target is protected against; meaningful when TargetTracked.
	Guard Style
	// TargetDistance is the distance to the target's last known area.
	TargetDistance int
	DistanceKnown  bool
}

// CorrectlyGuarded reports whether the target was guarding against the attack. An
// untracked target is assumed to be guarded.
func (a Attack) CorrectlyGuarded() bool {
	return !a.TargetTracked || a.Guard == a.Style
}

func (a Attack) imposed() Style {
	if !a.TargetTracked {
		return StyleNone
	}
	return a.Guard
}

// Outcome reports what ApplyAttack decided.
type Outcome struct {
	CorrectGuard bool
	// Pending is true when the counter decrement awaits confirmation at Deadline.
	Pending  bool
	Deadline int
	// BrokeRotation is true when the attack style was outside the feasible set.
	BrokeRotation bool
	// Reset is true when a rotation reset occurred.
	Reset bool
}

// ApplyAttack folds a classified attack into the state.
//
// Precondition: a.Style is Melee, Ranged, Magic, or AreaEffect.
// Postcondition: Feasible is non-empty; 1 <= ActionsUntilRotation <= r.RotationLength
// whenever it was in range before; NextActionTick == a.Tick + r.ActionInterval.
func (s State) ApplyAttack(r Rules, a Attack) (State, Outcome) {
	s.CombatInitiated = true
	out := Outcome{CorrectGuard: a.CorrectlyGuarded()}

	if a.Style == AreaEffect {
		// an area attack is never thrown while meleeing
		s.Feasible = s.Feasible.Without(Melee)
	} else {
		if out.CorrectGuard {
			s.ActionsUntilRotation--
		} else {
			// a zero-damage hit counts as guarded but is never confirmed by damage
			out.Pending = true
			out.Deadline = a.Tick + r.ImpactDelay(a.Style, a.TargetDistance, a.DistanceKnown)
		}

		if s.Feasible.Has(a.Style) {
			s.Feasible = s.Feasible.Only(a.Style)
		} else {
			s.Feasible = SetOf(a.Style)
			s.ActionsUntilRotation = r.RotationLength
			if out.CorrectGuard {
				s.ActionsUntilRotation--
			}
			out.BrokeRotation = true
		}
	}

	s, out.Reset = s.CheckRotation(r, a.imposed())
	s.NextActionTick = a.Tick + r.ActionInterval
	return s, out
}

// CheckRotation performs a rotation reset when the counter is exhausted or the feasible
// set is empty. The excluded styles are removed from the refreshed set.
//
// Precondition: at most two distinct regular styles are excluded.
// Postcondition: Feasible is non-empty; reports whether a reset happened.
func (s State) CheckRotation(r Rules, excluded ...Style) (State, bool) {
	if s.ActionsUntilRotation > 0 && !s.Feasible.Empty() {
		return s, false
	}
	s.Feasible = AllStyles.Without(excluded...)
	s.ActionsUntilRotation = r.RotationLength
	s.StyleChangedThisTick = true
	return s, true
}

// ConfirmMiss applies a deferred counter decrement once a pending attack is judged to
// have dealt no damage.
func (s State) ConfirmMiss(r Rules) (State, bool) {
	s.ActionsUntilRotation--
	return s.CheckRotation(r)
}

// Flinched reports whether damage taken this tick interrupts the actor.
func (s State) Flinched(r Rules, tick int) bool {
	return s.TakenDamage && tick >= s.NextActionTick+r.FlinchGraceTicks
}

// Flinch delays the next action after an interrupting hit. When the target is out of
// melee reach the actor stops meleeing; guard is the target's protected style.
func (s State) Flinch(r Rules, tick int, targetOutOfReach, hasTarget bool, guard Style) (State, bool) {
	s.NextActionTick = tick + r.ActionInterval/2
	s.CombatInitiated = true
	if !targetOutOfReach {
		return s, false
	}
	s.Feasible = s.Feasible.Without(Melee)
	if !hasTarget {
		return s, false
	}
	return s.CheckRotation(r, Melee, guard)
}

// PrayerSwitch records an overhead change observed on the shared animation.
func (s State) PrayerSwitch(r Rules, tick int) State {
	s.NextActionTick = tick + r.ActionInterval
	s.PrayerChangedThisTick = true
	return s
}

// Narrow restricts the feasible set to st. An empty result is left for EndTick to heal.
func (s State) Narrow(st Style) State {
	s.Feasible = s.Feasible.Only(st)
	return s
}

// Exclude removes st from the feasible set.
func (s State) Exclude(st Style) State {
	s.Feasible = s.Feasible.Without(st)
	return s
}

// ConsumeMovementLock decrements the movement lock.
// Reports true when the lock was active and movement disambiguation must be skipped.
func (s State) ConsumeMovementLock() (State, bool) {
	if s.MovementDisabledTicks > 0 {
		s.MovementDisabledTicks--
		return s, true
	}
	return s, false
}

// MovementAmbiguous reports whether melee competes with another feasible style.
func (s State) MovementAmbiguous() bool {
	return s.Feasible.Has(Melee) && s.Feasible.Len() >= 2
}

// OverheadChanged records that the actor's overhead icon changed this tick, whether or
// not the change was classified as a prayer switch.
func (s State) OverheadChanged() State {
	s.PrayerChangedThisTick = true
	return s
}

// EndTick closes the tick: it locks movement after an overhead change, self-heals an
// empty feasible set, and clears the per-tick flags.
//
// Postcondition: Feasible is non-empty; reports whether self-healing was needed.
func (s State) EndTick(r Rules) (State, bool) {
	if s.PrayerChangedThisTick {
		if s.StyleChangedLastTick || s.StyleChangedThisTick {
			// a style change and prayer change within a tick of each other
			// freezes a melee approach for two ticks
			s.MovementDisabledTicks = 2
		} else {
			s.MovementDisabledTicks = 1
		}
	}

	healed := false
	if s.Feasible.Empty() || s.ActionsUntilRotation <= 0 {
		s, healed = s.CheckRotation(r)
	}

	s.TakenDamage = false
	s.PrayerChangedThisTick = false
	s.StyleChangedLastTick = s.StyleChangedThisTick
	s.StyleChangedThisTick = false
	s.RecentProjectile = 0
	return s, healed
}
