package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stylewatch/internal/game/classify"
	"github.com/cory-johannsen/stylewatch/internal/game/geom"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

var ids = classify.IDs{
	MeleeAnimation:   7226,
	RangedAnimation:  7227,
	MagicAnimation:   7225,
	SharedAnimation:  7228,
	RangedProjectile: 1302,
	MagicProjectile:  1304,
}

// base describes a prayer switch on the shared animation at a tick where an action is due.
func base() classify.Signals {
	return classify.Signals{
		Tick:           20,
		Animation:      ids.SharedAnimation,
		LastAnimation:  -1,
		Overhead:       1,
		LastOverhead:   0,
		HasTarget:      true,
		Feasible:       rotation.AllStyles,
		NextActionTick: 20,
		TargetTracked:  true,
		TargetArea:     geom.NewArea(5, 5, 1, 1, 0),
		TargetKnown:    true,
	}
}

func TestClassify_DirectAnimations(t *testing.T) {
	c := classify.New(ids)
	tests := []struct {
		anim int
		want rotation.Style
	}{
		{ids.MeleeAnimation, rotation.Melee},
		{ids.RangedAnimation, rotation.Ranged},
		{ids.MagicAnimation, rotation.Magic},
		{4242, rotation.StyleNone},
	}
	for _, tc := range tests {
		s := base()
		s.Animation = tc.anim
		got := c.Classify(s)
		assert.Equal(t, tc.want, got.Style, "animation %d", tc.anim)
		assert.False(t, got.PrayerSwitch)
	}
}

func TestClassify_UnchangedAnimationIsSilent(t *testing.T) {
	c := classify.New(ids)
	s := base()
	s.Animation = ids.MeleeAnimation
	s.LastAnimation = ids.MeleeAnimation
	assert.Equal(t, classify.Result{}, c.Classify(s))
}

func TestClassify_SharedAnimation(t *testing.T) {
	c := classify.New(ids)
	tests := []struct {
		name     string
		mutate   func(*classify.Signals)
		want     rotation.Style
		rule     string
		switched bool
	}{
		{"overhead unchanged is area attack", func(s *classify.Signals) { s.Overhead = s.LastOverhead }, rotation.AreaEffect, "shared-animation-area", false},
		{"no target ignores spawn animation", func(s *classify.Signals) { s.Overhead = s.LastOverhead; s.HasTarget = false }, rotation.StyleNone, "", false},
		{"melee only ignores animation", func(s *classify.Signals) { s.Feasible = rotation.SetOf(rotation.Melee) }, rotation.StyleNone, "", false},
		{"switch before action is due", func(s *classify.Signals) { s.NextActionTick = 21; s.Projectile = ids.MagicProjectile }, rotation.StyleNone, "", true},
		{"switch with magic projectile", func(s *classify.Signals) { s.Projectile = ids.MagicProjectile }, rotation.Magic, "magic-projectile", true},
		{"switch with ranged projectile", func(s *classify.Signals) { s.Projectile = ids.RangedProjectile }, rotation.Ranged, "ranged-projectile", true},
		{"projectile wins over impact", func(s *classify.Signals) {
			s.Projectile = ids.RangedProjectile
			s.Impacts = []geom.Point{{X: 5, Y: 5}}
		}, rotation.Ranged, "ranged-projectile", true},
		{"switch with impact on target", func(s *classify.Signals) { s.Impacts = []geom.Point{{X: 5, Y: 5}} }, rotation.AreaEffect, "impact-on-target", true},
		{"impact elsewhere falls through", func(s *classify.Signals) { s.Impacts = []geom.Point{{X: 6, Y: 5}} }, rotation.StyleNone, "", true},
		{"impact wins over damage", func(s *classify.Signals) {
			s.Impacts = []geom.Point{{X: 5, Y: 5}}
			s.TargetDamaged = true
		}, rotation.AreaEffect, "impact-on-target", true},
		{"switch with damage is melee", func(s *classify.Signals) { s.TargetDamaged = true }, rotation.Melee, "target-damaged", true},
		{"damage on untracked target", func(s *classify.Signals) {
			s.TargetDamaged = true
			s.TargetTracked = false
			s.TargetKnown = false
		}, rotation.StyleNone, "", true},
		{"switch without evidence", func(*classify.Signals) {}, rotation.StyleNone, "", true},
	}
	for _, tc := range tests {
		s := base()
		tc.mutate(&s)
		got := c.Classify(s)
		assert.Equal(t, tc.want, got.Style, tc.name)
		assert.Equal(t, tc.rule, got.Rule, tc.name)
		assert.Equal(t, tc.switched, got.PrayerSwitch, tc.name)
		assert.Equal(t, tc.want != rotation.StyleNone, got.Attacked(), tc.name)
	}
}

func TestClassify_Property_AtMostOneRegularOrAreaStyle(t *testing.T) {
	c := classify.New(ids)
	anims := []int{-1, ids.MeleeAnimation, ids.RangedAnimation, ids.MagicAnimation, ids.SharedAnimation}
	rapid.Check(t, func(rt *rapid.T) {
		s := base()
		s.Animation = rapid.SampledFrom(anims).Draw(rt, "anim")
		s.LastAnimation = rapid.SampledFrom(anims).Draw(rt, "last_anim")
		s.Overhead = rapid.IntRange(0, 2).Draw(rt, "overhead")
		s.LastOverhead = rapid.IntRange(0, 2).Draw(rt, "last_overhead")
		s.NextActionTick = rapid.IntRange(15, 25).Draw(rt, "next_action")
		s.TargetDamaged = rapid.Bool().Draw(rt, "damaged")

		got := c.Classify(s)
		if s.Animation == s.LastAnimation {
			assert.False(rt, got.Attacked())
			return
		}
		assert.Contains(rt, []rotation.Style{
			rotation.StyleNone, rotation.Melee, rotation.Ranged, rotation.Magic, rotation.AreaEffect,
		}, got.Style)
		if got.PrayerSwitch && s.Tick < s.NextActionTick {
			assert.False(rt, got.Attacked())
		}
	})
}
