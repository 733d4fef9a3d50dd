package rotation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

func TestApplyAttack_CorrectGuardNarrowsAndDecrements(t *testing.T) {
	r := rotation.DefaultRules()
	r.RotationLength = 5
	s := rotation.State{Feasible: rotation.AllStyles, ActionsUntilRotation: 4}

	next, out := s.ApplyAttack(r, rotation.Attack{
		Style: rotation.Melee, Tick: 10, TargetTracked: true, Guard: rotation.Melee,
	})

	assert.True(t, out.CorrectGuard)
	assert.False(t, out.Pending)
	assert.Equal(t, rotation.SetOf(rotation.Melee), next.Feasible)
	assert.Equal(t, 3, next.ActionsUntilRotation)
	assert.True(t, next.CombatInitiated)
	assert.Equal(t, 10+r.ActionInterval, next.NextActionTick)
}

func TestApplyAttack_CounterExhaustedResets(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.State{Feasible: rotation.SetOf(rotation.Magic), ActionsUntilRotation: 1}

	next, out := s.ApplyAttack(r, rotation.Attack{Style: rotation.Magic, Tick: 3})

	assert.True(t, out.Reset)
	assert.Equal(t, rotation.AllStyles, next.Feasible)
	assert.Equal(t, r.RotationLength, next.ActionsUntilRotation)
	assert.True(t, next.StyleChangedThisTick)
}

func TestApplyAttack_ResetExcludesTargetGuard(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.State{Feasible: rotation.SetOf(rotation.Ranged), ActionsUntilRotation: 1}

	next, out := s.ApplyAttack(r, rotation.Attack{
		Style: rotation.Ranged, Tick: 3, TargetTracked: true, Guard: rotation.Ranged,
	})

	require.True(t, out.Reset)
	assert.Equal(t, rotation.SetOf(rotation.Melee, rotation.Magic), next.Feasible)
}

func TestApplyAttack_IncorrectGuardIsPending(t *testing.T) {
	r := rotation.DefaultRules()
	r.Ranged = rotation.ProjectileTiming{BaseDelay: 2, Speed: 3}
	s := rotation.NewState(r)

	next, out := s.ApplyAttack(r, rotation.Attack{
		Style: rotation.Ranged, Tick: 20, TargetTracked: true, Guard: rotation.Magic,
		TargetDistance: 6, DistanceKnown: true,
	})

	assert.False(t, out.CorrectGuard)
	assert.True(t, out.Pending)
	assert.Equal(t, 24, out.Deadline)
	assert.Equal(t, r.RotationLength, next.ActionsUntilRotation)
	assert.Equal(t, rotation.SetOf(rotation.Ranged), next.Feasible)

	healed, reset := next.ConfirmMiss(r)
	assert.False(t, reset)
	assert.Equal(t, r.RotationLength-1, healed.ActionsUntilRotation)
}

func TestApplyAttack_AreaEffectRemovesMelee(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.State{Feasible: rotation.AllStyles, ActionsUntilRotation: 2}

	next, out := s.ApplyAttack(r, rotation.Attack{Style: rotation.AreaEffect, Tick: 1})

	assert.False(t, out.Reset)
	assert.Equal(t, rotation.SetOf(rotation.Ranged, rotation.Magic), next.Feasible)
	assert.Equal(t, 2, next.ActionsUntilRotation)
}

func TestApplyAttack_AreaEffectOnMeleeOnlyResets(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.State{Feasible: rotation.SetOf(rotation.Melee), ActionsUntilRotation: 2}

	next, out := s.ApplyAttack(r, rotation.Attack{Style: rotation.AreaEffect, Tick: 1})

	assert.True(t, out.Reset)
	assert.Equal(t, rotation.AllStyles, next.Feasible)
	assert.Equal(t, r.RotationLength, next.ActionsUntilRotation)
}

func TestApplyAttack_BrokenRotation(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.State{Feasible: rotation.SetOf(rotation.Melee), ActionsUntilRotation: 2}

	guarded, out := s.ApplyAttack(r, rotation.Attack{Style: rotation.Magic, Tick: 1})
	assert.True(t, out.BrokeRotation)
	assert.Equal(t, rotation.SetOf(rotation.Magic), guarded.Feasible)
	assert.Equal(t, r.RotationLength-1, guarded.ActionsUntilRotation)

	unguarded, out := s.ApplyAttack(r, rotation.Attack{
		Style: rotation.Magic, Tick: 1, TargetTracked: true, Guard: rotation.Melee,
	})
	assert.True(t, out.BrokeRotation)
	assert.True(t, out.Pending)
	assert.Equal(t, r.RotationLength, unguarded.ActionsUntilRotation)
}

func TestRules_ImpactDelay(t *testing.T) {
	r := rotation.Rules{
		Ranged: rotation.ProjectileTiming{BaseDelay: 2, Speed: 3},
		Magic:  rotation.ProjectileTiming{BaseDelay: 1, Speed: 8},
	}
	assert.Equal(t, 0, r.ImpactDelay(rotation.Melee, 1, true))
	assert.Equal(t, 4, r.ImpactDelay(rotation.Ranged, 6, true))
	assert.Equal(t, 5, r.ImpactDelay(rotation.Ranged, 7, true))
	assert.Equal(t, 2, r.ImpactDelay(rotation.Ranged, 7, false))
	assert.Equal(t, 2, r.ImpactDelay(rotation.Magic, 8, true))
}

func TestFlinch(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.State{Feasible: rotation.SetOf(rotation.Melee), ActionsUntilRotation: 2, TakenDamage: true}

	require.True(t, s.Flinched(r, r.FlinchGraceTicks))
	next, reset := s.Flinch(r, 10, true, true, rotation.Magic)

	assert.True(t, reset)
	assert.Equal(t, rotation.SetOf(rotation.Ranged), next.Feasible)
	assert.Equal(t, 10+r.ActionInterval/2, next.NextActionTick)
	assert.True(t, next.CombatInitiated)

	inReach, reset := s.Flinch(r, 10, false, true, rotation.Magic)
	assert.False(t, reset)
	assert.Equal(t, rotation.SetOf(rotation.Melee), inReach.Feasible)
}

func TestEndTick_MovementLockAndFlags(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.NewState(r)
	s.StyleChangedThisTick = true
	s.PrayerChangedThisTick = true
	s.RecentProjectile = 1302

	next, healed := s.EndTick(r)
	assert.False(t, healed)
	assert.Equal(t, 2, next.MovementDisabledTicks)
	assert.True(t, next.StyleChangedLastTick)
	assert.False(t, next.StyleChangedThisTick)
	assert.False(t, next.PrayerChangedThisTick)
	assert.Zero(t, next.RecentProjectile)

	next, _ = next.EndTick(r)
	assert.False(t, next.StyleChangedLastTick)

	quiet := rotation.NewState(r)
	assert.True(t, quiet.OverheadChanged().PrayerChangedThisTick)
	quiet, _ = quiet.OverheadChanged().EndTick(r)
	assert.False(t, quiet.PrayerChangedThisTick)
	assert.Equal(t, 1, quiet.MovementDisabledTicks)

	locked, skip := quiet.ConsumeMovementLock()
	assert.True(t, skip)
	_, skip = locked.ConsumeMovementLock()
	assert.False(t, skip)
}

func TestEndTick_HealsEmptySet(t *testing.T) {
	r := rotation.DefaultRules()
	s := rotation.State{Feasible: rotation.SetOf(rotation.Ranged), ActionsUntilRotation: 2}
	s = s.Narrow(rotation.Melee)
	require.True(t, s.Feasible.Empty())

	next, healed := s.EndTick(r)
	assert.True(t, healed)
	assert.Equal(t, rotation.AllStyles, next.Feasible)
	assert.True(t, next.StyleChangedLastTick)
}

func TestStyle_ParseAndText(t *testing.T) {
	for _, st := range []rotation.Style{rotation.Melee, rotation.Ranged, rotation.Magic, rotation.AreaEffect, rotation.StyleNone} {
		parsed, err := rotation.ParseStyle(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}
	_, err := rotation.ParseStyle("bogus")
	assert.Error(t, err)

	var st rotation.Style
	require.NoError(t, st.UnmarshalText([]byte("Magic")))
	assert.Equal(t, rotation.Magic, st)
	assert.Equal(t, "{melee,magic}", rotation.SetOf(rotation.Magic, rotation.Melee, rotation.AreaEffect).String())
}

func TestState_Property_InvariantsHold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := rotation.DefaultRules()
		r.RotationLength = rapid.IntRange(1, 6).Draw(rt, "rotation_length")
		s := rotation.NewState(r)
		styles := []rotation.Style{rotation.Melee, rotation.Ranged, rotation.Magic, rotation.AreaEffect}
		guards := []rotation.Style{rotation.StyleNone, rotation.Melee, rotation.Ranged, rotation.Magic}

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for tick := 0; tick < steps; tick++ {
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				s, _ = s.ApplyAttack(r, rotation.Attack{
					Style:         rapid.SampledFrom(styles).Draw(rt, "style"),
					Tick:          tick,
					TargetTracked: rapid.Bool().Draw(rt, "tracked"),
					Guard:         rapid.SampledFrom(guards).Draw(rt, "guard"),
				})
			case 1:
				s, _ = s.ConfirmMiss(r)
			case 2:
				s.TakenDamage = true
				s, _ = s.Flinch(r, tick, rapid.Bool().Draw(rt, "out_of_reach"), true, rapid.SampledFrom(guards).Draw(rt, "flinch_guard"))
			case 3:
				s = s.Narrow(rapid.SampledFrom(styles[:3]).Draw(rt, "narrow"))
			case 4:
				s = s.Exclude(rotation.Melee)
			}
			if rapid.Bool().Draw(rt, "overhead_changed") {
				s = s.OverheadChanged()
			}
			s, _ = s.EndTick(r)

			assert.False(rt, s.Feasible.Empty(), "feasible set empty after tick %d", tick)
			assert.GreaterOrEqual(rt, s.ActionsUntilRotation, 1)
			assert.LessOrEqual(rt, s.ActionsUntilRotation, r.RotationLength)
		}
	})
}
