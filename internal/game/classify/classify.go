// Package classify turns one tick of raw signals about a hostile actor into at most one
// classified attack. Decisions are made by ordered rule lists so each rule can be tested
// on its own.
package classify

import (
	"github.com/cory-johannsen/stylewatch/internal/game/geom"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

// IDs are the animation and projectile identifiers of one hostile actor type.
type IDs struct {
	MeleeAnimation  int
	RangedAnimation int
	MagicAnimation  int
	// SharedAnimation plays for both the area attack and an overhead prayer switch.
	SharedAnimation  int
	RangedProjectile int
	MagicProjectile  int
}

// Signals is the raw view of one hostile actor for one tick.
type Signals struct {
	Tick           int
	Animation      int
	LastAnimation  int
	Overhead       int
	LastOverhead   int
	HasTarget      bool
	Feasible       rotation.StyleSet
	NextActionTick int
	// Projectile is the graphic id attributed to the actor this tick, or 0.
	Projectile int
	// TargetTracked is true when the target is a memorized defender.
	TargetTracked bool
	// TargetArea is the target's last known area; valid when TargetKnown.
	TargetArea  geom.Area
	TargetKnown bool
	// TargetDamaged is true when the target received damage evidence this tick.
	TargetDamaged bool
	// Impacts are the ground-impact points of area attacks seen this tick.
	Impacts []geom.Point
}

// OverheadChanged reports whether the overhead icon differs from last tick.
func (s Signals) OverheadChanged() bool {
	return s.Overhead != s.LastOverhead
}

func (s Signals) impactOnTarget() bool {
	if !s.TargetKnown {
		return false
	}
	for _, p := range s.Impacts {
		if s.TargetArea.DistanceToPoint(p) == 0 {
			return true
		}
	}
	return false
}

// Result is the classification of one tick.
type Result struct {
	// Style is the classified attack, or rotation.StyleNone.
	Style rotation.Style
	// PrayerSwitch is true when the shared animation was an overhead change.
	PrayerSwitch bool
	// Rule names the rule that produced Style.
	Rule string
}

// Attacked reports whether an attack was classified.
func (r Result) Attacked() bool { return r.Style != rotation.StyleNone }

// Rule is one entry of an ordered decision list.
type Rule struct {
	Name  string
	Match func(Signals) bool
	Style rotation.Style
}

// Classifier applies the decision lists for one set of IDs.
type Classifier struct {
	ids       IDs
	primary   []Rule
	secondary []Rule
}

// New builds a Classifier for ids.
func New(ids IDs) *Classifier {
	c := &Classifier{ids: ids}
	c.primary = []Rule{
		{Name: "melee-animation", Style: rotation.Melee, Match: func(s Signals) bool { return s.Animation == ids.MeleeAnimation }},
		{Name: "ranged-animation", Style: rotation.Ranged, Match: func(s Signals) bool { return s.Animation == ids.RangedAnimation }},
		{Name: "magic-animation", Style: rotation.Magic, Match: func(s Signals) bool { return s.Animation == ids.MagicAnimation }},
		{Name: "shared-animation-area", Style: rotation.AreaEffect, Match: func(s Signals) bool {
			return c.sharedAnimation(s) && !s.OverheadChanged()
		}},
	}
	c.secondary = []Rule{
		{Name: "magic-projectile", Style: rotation.Magic, Match: func(s Signals) bool { return s.Projectile != 0 && s.Projectile == ids.MagicProjectile }},
		{Name: "ranged-projectile", Style: rotation.Ranged, Match: func(s Signals) bool { return s.Projectile != 0 && s.Projectile == ids.RangedProjectile }},
		{Name: "impact-on-target", Style: rotation.AreaEffect, Match: Signals.impactOnTarget},
		{Name: "target-damaged", Style: rotation.Melee, Match: func(s Signals) bool { return s.TargetTracked && s.TargetDamaged }},
	}
	return c
}

// sharedAnimation reports whether the shared animation is eligible. It also plays on
// spawn, so a target is required, and an area attack needs a ranged or magic option.
func (c *Classifier) sharedAnimation(s Signals) bool {
	return s.Animation == c.ids.SharedAnimation && s.HasTarget &&
		(s.Feasible.Has(rotation.Ranged) || s.Feasible.Has(rotation.Magic))
}

// Classify maps signals to at most one attack.
//
// Postcondition: Result.Style is StyleNone when the animation did not change; a prayer
// switch only yields an attack when s.Tick >= s.NextActionTick.
func (c *Classifier) Classify(s Signals) Result {
	if s.Animation == s.LastAnimation {
		return Result{}
	}
	if r, ok := firstMatch(c.primary, s); ok {
		return Result{Style: r.Style, Rule: r.Name}
	}
	if !c.sharedAnimation(s) {
		return Result{}
	}

	// the prayer-switch animation takes priority over attack animations, so
	// any attack this tick has to be inferred from other evidence
	res := Result{PrayerSwitch: true}
	if s.Tick < s.NextActionTick {
		return res
	}
	if r, ok := firstMatch(c.secondary, s); ok {
		res.Style = r.Style
		res.Rule = r.Name
	}
	return res
}

func firstMatch(rules []Rule, s Signals) (Rule, bool) {
	for _, r := range rules {
		if r.Match(s) {
			return r, true
		}
	}
	return Rule{}, false
}
