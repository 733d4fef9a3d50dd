// Package geom provides the minimal tile-grid geometry used by the encounter engine:
// points, rectangular areas, Chebyshev distances, melee adjacency, and line of sight.
package geom

import "math"

// Unreachable is the distance reported between positions on different planes.
const Unreachable = math.MaxInt32

// Point is a single tile on a plane.
type Point struct {
	X     int `yaml:"x" json:"x"`
	Y     int `yaml:"y" json:"y"`
	Plane int `yaml:"plane" json:"plane"`
}

// DistanceTo returns the Chebyshev distance between p and q.
//
// Postcondition: Returns Unreachable when the planes differ, otherwise >= 0.
func (p Point) DistanceTo(q Point) int {
	if p.Plane != q.Plane {
		return Unreachable
	}
	return max(abs(p.X-q.X), abs(p.Y-q.Y))
}

// Area is an axis-aligned rectangle of tiles anchored at its south-west corner.
type Area struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	Plane  int `yaml:"plane" json:"plane"`
}

// NewArea builds an Area; non-positive sizes are clamped to one tile.
func NewArea(x, y, width, height, plane int) Area {
	return Area{X: x, Y: y, Width: max(width, 1), Height: max(height, 1), Plane: plane}
}

// AreaOf returns the 1x1 area covering p.
func AreaOf(p Point) Area {
	return Area{X: p.X, Y: p.Y, Width: 1, Height: 1, Plane: p.Plane}
}

// Origin returns the south-west tile of a.
func (a Area) Origin() Point {
	return Point{X: a.X, Y: a.Y, Plane: a.Plane}
}

// Translate returns a shifted by (dx, dy).
func (a Area) Translate(dx, dy int) Area {
	a.X += dx
	a.Y += dy
	return a
}

func (a Area) maxX() int { return a.X + max(a.Width, 1) - 1 }
func (a Area) maxY() int { return a.Y + max(a.Height, 1) - 1 }

// Contains reports whether p lies inside a.
func (a Area) Contains(p Point) bool {
	return p.Plane == a.Plane &&
		p.X >= a.X && p.X <= a.maxX() &&
		p.Y >= a.Y && p.Y <= a.maxY()
}

// AxisDistances returns the gap between a and b along each axis; 0 where they overlap.
//
// Postcondition: Both results are >= 0. Planes are not compared.
func (a Area) AxisDistances(b Area) (dx, dy int) {
	return axisGap(a.X, a.maxX(), b.X, b.maxX()), axisGap(a.Y, a.maxY(), b.Y, b.maxY())
}

func axisGap(lowA, highA, lowB, highB int) int {
	switch {
	case lowB > highA:
		return lowB - highA
	case lowA > highB:
		return lowA - highB
	default:
		return 0
	}
}

// DistanceTo returns the Chebyshev distance between the closest tiles of a and b.
//
// Postcondition: Returns 0 iff the areas intersect; Unreachable when planes differ.
func (a Area) DistanceTo(b Area) int {
	if a.Plane != b.Plane {
		return Unreachable
	}
	dx, dy := a.AxisDistances(b)
	return max(dx, dy)
}

// DistanceToPoint returns the Chebyshev distance from the nearest tile of a to p.
func (a Area) DistanceToPoint(p Point) int {
	return a.DistanceTo(AreaOf(p))
}

// Intersects reports whether a and b share at least one tile.
func (a Area) Intersects(b Area) bool {
	return a.DistanceTo(b) == 0
}

// InMeleeDistance reports whether b is orthogonally adjacent to a.
// Diagonal contact and overlap are not melee distance.
func (a Area) InMeleeDistance(b Area) bool {
	if a.Plane != b.Plane {
		return false
	}
	dx, dy := a.AxisDistances(b)
	return dx+dy == 1
}

// Nearest returns the tile of a closest to p.
func (a Area) Nearest(p Point) Point {
	return Point{
		X:     clamp(p.X, a.X, a.maxX()),
		Y:     clamp(p.Y, a.Y, a.maxY()),
		Plane: a.Plane,
	}
}

// Center returns the middle tile of a, rounding toward the origin.
func (a Area) Center() Point {
	return Point{X: a.X + (max(a.Width, 1)-1)/2, Y: a.Y + (max(a.Height, 1)-1)/2, Plane: a.Plane}
}

// Blocker reports whether a tile blocks line of sight.
type Blocker func(Point) bool

// HasLineOfSight traces a Bresenham line between the nearest tiles of a and b and
// reports whether no intermediate tile is blocked.
//
// Postcondition: Returns false when planes differ; returns true when blocked is nil.
func (a Area) HasLineOfSight(b Area, blocked Blocker) bool {
	if a.Plane != b.Plane {
		return false
	}
	if blocked == nil {
		return true
	}
	from := a.Nearest(b.Center())
	to := b.Nearest(from)
	it := NewLineIterator(from, to)
	for it.Next() {
		cur := it.Point()
		if cur == from || cur == to {
			continue
		}
		if blocked(cur) {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
