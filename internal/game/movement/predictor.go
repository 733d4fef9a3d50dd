// Package movement predicts the single tile step a hostile actor takes toward its target
// under greedy pathing with collision against other actors and terrain.
package movement

import "github.com/cory-johannsen/stylewatch/internal/game/geom"

// NextStep returns the area from would occupy next tick when walking toward target.
// Candidate steps are tried diagonal first, then along x, then along y; a step is legal
// when its destination intersects no obstacle and covers no tile terrain blocks (a nil
// terrain is open ground), and a diagonal step additionally needs
// both of its orthogonal components to be legal. With stopAdjacent the walker halts once
// orthogonally adjacent and only steps along x from a diagonal contact.
//
// Postcondition: Returns (area, true) with area equal to from or one tile away from it,
// or (geom.Area{}, false) when planes differ, the walker stands on its target with
// stopAdjacent set, or no legal step exists.
func NextStep(from, target geom.Area, obstacles []geom.Area, terrain geom.Blocker, stopAdjacent bool) (geom.Area, bool) {
	if from.Plane != target.Plane {
		return geom.Area{}, false
	}
	if from.Intersects(target) {
		if stopAdjacent {
			return geom.Area{}, false
		}
		return from, true
	}

	ax, ay := from.AxisDistances(target)
	if stopAdjacent && ax+ay == 1 {
		return from, true
	}

	dx, dy := target.X-from.X, target.Y-from.Y
	sx, sy := sign(dx), sign(dy)
	free := func(stepX, stepY int) bool { return canStep(from, stepX, stepY, obstacles, terrain) }

	if stopAdjacent && ax == 1 && ay == 1 {
		if free(sx, 0) {
			return from.Translate(sx, 0), true
		}
		return geom.Area{}, false
	}

	switch {
	case (sx != 0 || sy != 0) && free(sx, sy):
		return from.Translate(sx, sy), true
	case dx != 0 && free(sx, 0):
		return from.Translate(sx, 0), true
	case dy != 0 && max(abs(dx), abs(dy)) > 1 && free(0, sy):
		// no y-only step when the target is within one tile
		return from.Translate(0, sy), true
	}
	return geom.Area{}, false
}

func canStep(from geom.Area, dx, dy int, obstacles []geom.Area, terrain geom.Blocker) bool {
	if blocked(from.Translate(dx, dy), obstacles, terrain) {
		return false
	}
	if dx != 0 && dy != 0 {
		return !blocked(from.Translate(dx, 0), obstacles, terrain) && !blocked(from.Translate(0, dy), obstacles, terrain)
	}
	return true
}

func blocked(dest geom.Area, obstacles []geom.Area, terrain geom.Blocker) bool {
	for _, o := range obstacles {
		if dest.Intersects(o) {
			return true
		}
	}
	if terrain == nil {
		return false
	}
	for x := dest.X; x < dest.X+max(dest.Width, 1); x++ {
		for y := dest.Y; y < dest.Y+max(dest.Height, 1); y++ {
			if terrain(geom.Point{X: x, Y: y, Plane: dest.Plane}) {
				return true
			}
		}
	}
	return false
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
