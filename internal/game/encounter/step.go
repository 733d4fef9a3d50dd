package encounter

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/stylewatch/internal/game/classify"
	"github.com/cory-johannsen/stylewatch/internal/game/geom"
	"github.com/cory-johannsen/stylewatch/internal/game/memory"
	"github.com/cory-johannsen/stylewatch/internal/game/movement"
	"github.com/cory-johannsen/stylewatch/internal/game/pending"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

type stepResult struct {
	state   rotation.State
	pending *pending.Entry
}

// step computes one hostile's next state. It reads memory, the hostile's own record and
// other hostiles' observations and previous areas, and writes nothing shared.
func (e *Engine) step(h *hostile) stepResult {
	s := h.state
	o := h.obs
	tick := e.tick
	s.TakenDamage = o.DamageTaken
	// lastOverhead is seeded from the first observation, so a new actor never changes here
	if o.Overhead != h.lastOverhead {
		s = s.OverheadChanged()
	}

	var target *memory.Defender
	if o.Target != "" {
		target, _ = e.memory.Get(o.Target)
	}
	targetKnown := target != nil && target.Known

	if h.lastTarget != "" && o.Target == "" {
		s.CombatInitiated = false
	} else if targetKnown && !s.CombatInitiated && tick < s.NextActionTick &&
		o.Area.InMeleeDistance(target.LastArea) {
		s.CombatInitiated = true
		s.NextActionTick = tick + 1
	}

	var res stepResult
	if s.Flinched(e.rules, tick) {
		s = e.flinch(h, s, target)
	} else {
		sig := classify.Signals{
			Tick:           tick,
			Animation:      o.Animation,
			LastAnimation:  h.lastAnimation,
			Overhead:       o.Overhead,
			LastOverhead:   h.lastOverhead,
			HasTarget:      o.Target != "",
			Feasible:       s.Feasible,
			NextActionTick: s.NextActionTick,
			Projectile:     s.RecentProjectile,
			TargetTracked:  target != nil,
			TargetKnown:    targetKnown,
			Impacts:        e.impacts,
		}
		if target != nil {
			sig.TargetDamaged = target.Damaged()
			sig.TargetArea = target.LastArea
		}
		c := e.classifier.Classify(sig)
		if c.Attacked() {
			s, res.pending = e.attack(h, s, c, target)
		}
		if c.PrayerSwitch {
			s = s.PrayerSwitch(e.rules, tick)
		}
	}

	var locked bool
	s, locked = s.ConsumeMovementLock()
	if !locked && s.CombatInitiated && o.Target != "" && !s.StyleChangedThisTick &&
		s.MovementAmbiguous() && targetKnown && h.hasLastArea {
		s = e.disambiguate(h, s, target)
	}

	if s.TakenDamage {
		s.CombatInitiated = true
	}
	res.state = s
	return res
}

func (e *Engine) flinch(h *hostile, s rotation.State, target *memory.Defender) rotation.State {
	outOfReach := false
	guard := rotation.StyleNone
	if target != nil {
		guard = target.Guard
		outOfReach = target.Known &&
			!h.obs.Area.InMeleeDistance(target.LastArea) &&
			!h.obs.Area.Intersects(target.LastArea)
	}
	s, reset := s.Flinch(e.rules, e.tick, outOfReach, h.obs.Target != "", guard)
	e.log.Debug("hostile flinched",
		zap.String("actor", h.id),
		zap.Bool("melee_excluded", outOfReach),
		zap.Bool("reset", reset),
		zap.Int("next_action_tick", s.NextActionTick),
		zap.Int("tick", e.tick),
	)
	return s
}

func (e *Engine) attack(h *hostile, s rotation.State, c classify.Result, target *memory.Defender) (rotation.State, *pending.Entry) {
	a := rotation.Attack{Style: c.Style, Tick: e.tick}
	if target != nil {
		a.TargetTracked = true
		a.Guard = target.Guard
		if target.Known && target.LastArea.Plane == h.obs.Area.Plane {
			a.TargetDistance = h.obs.Area.DistanceTo(target.LastArea)
			a.DistanceKnown = true
		}
	}

	s, out := s.ApplyAttack(e.rules, a)
	e.log.Debug("hostile attacked",
		zap.String("actor", h.id),
		zap.Stringer("style", c.Style),
		zap.String("rule", c.Rule),
		zap.String("target", h.obs.Target),
		zap.Bool("correct_guard", out.CorrectGuard),
		zap.Bool("broke_rotation", out.BrokeRotation),
		zap.Stringer("feasible", s.Feasible),
		zap.Int("actions_until_rotation", s.ActionsUntilRotation),
		zap.Int("tick", e.tick),
	)
	if out.Reset {
		e.log.Debug("rotation reset",
			zap.String("actor", h.id),
			zap.Stringer("feasible", s.Feasible),
			zap.Int("tick", e.tick),
		)
	}
	if !out.Pending {
		return s, nil
	}
	entry := &pending.Entry{
		Attacker: h.id,
		Style:    c.Style,
		Target:   h.obs.Target,
		Deadline: out.Deadline,
	}
	e.log.Debug("attack pending confirmation",
		zap.String("actor", h.id),
		zap.Stringer("style", c.Style),
		zap.Int("deadline", out.Deadline),
		zap.Int("tick", e.tick),
	)
	return s, entry
}

// disambiguate uses the predicted approach toward the target to decide whether the
// hostile is trying to melee.
func (e *Engine) disambiguate(h *hostile, s rotation.State, target *memory.Defender) rotation.State {
	predicted, ok := movement.NextStep(h.lastArea, target.LastArea, e.obstaclesFor(h), e.blocker, true)
	if !ok {
		return s
	}
	if h.obs.Area.DistanceTo(target.LastArea) > e.rules.MaxAttackRange ||
		!target.LastArea.HasLineOfSight(h.lastArea, e.blocker) {
		return s
	}

	before := s.Feasible
	switch {
	case predicted.Origin() != h.lastArea.Origin():
		if predicted.Origin() == h.obs.Area.Origin() {
			s = s.Narrow(rotation.Melee)
		} else {
			s = s.Exclude(rotation.Melee)
		}
	case e.tick >= s.NextActionTick && s.RecentProjectile == 0 && !e.impactAt(target.LastArea):
		s = s.Narrow(rotation.Melee)
	}
	if s.Feasible != before {
		e.log.Debug("movement narrowed styles",
			zap.String("actor", h.id),
			zap.Stringer("from", before),
			zap.Stringer("to", s.Feasible),
			zap.Int("tick", e.tick),
		)
	}
	return s
}

// obstaclesFor lists the areas h cannot step into. Hostiles processed before h this
// tick block with their current area, the rest with their previous one.
func (e *Engine) obstaclesFor(h *hostile) []geom.Area {
	out := make([]geom.Area, 0, len(e.hostiles)+len(e.defenderAreas))
	for _, other := range e.hostiles {
		if other == h {
			continue
		}
		if before(other, h) {
			out = append(out, other.obs.Area)
		} else if other.hasLastArea {
			out = append(out, other.lastArea)
		}
	}
	return append(out, e.defenderAreas...)
}

func (e *Engine) impactAt(area geom.Area) bool {
	for _, p := range e.impacts {
		if area.DistanceToPoint(p) == 0 {
			return true
		}
	}
	return false
}

func before(a, b *hostile) bool {
	if a.index != b.index {
		return a.index < b.index
	}
	return a.id < b.id
}
