// Package world provides the static terrain of an encounter arena: which tiles block
// line of sight and movement.
package world

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/stylewatch/internal/game/geom"
)

// Arena is the terrain of one encounter location.
type Arena struct {
	ID   string
	Name string
	// Bounds limits the tiles the arena describes; tiles outside are open.
	Bounds geom.Area
	// Obstacles are rectangles of tiles that block line of sight and movement.
	Obstacles []geom.Area
	blocked   map[geom.Point]struct{}
}

// Validate checks the arena invariants.
//
// Postcondition: Returns nil iff ID is non-empty and every obstacle lies on the bounds'
// plane inside the bounds; otherwise an error listing every violation.
func (a *Arena) Validate() error {
	var errs []string
	if a.ID == "" {
		errs = append(errs, "arena id must not be empty")
	}
	for i, o := range a.Obstacles {
		if o.Plane != a.Bounds.Plane {
			errs = append(errs, fmt.Sprintf("obstacle %d is on plane %d, arena is on plane %d", i, o.Plane, a.Bounds.Plane))
			continue
		}
		if !a.Bounds.Contains(o.Origin()) || !a.Bounds.Contains(geom.Point{X: o.X + o.Width - 1, Y: o.Y + o.Height - 1, Plane: o.Plane}) {
			errs = append(errs, fmt.Sprintf("obstacle %d at (%d,%d) is outside the arena bounds", i, o.X, o.Y))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("arena %q: %s", a.ID, strings.Join(errs, "; "))
	}
	return nil
}

// index expands the obstacle rectangles into a tile set.
func (a *Arena) index() {
	a.blocked = make(map[geom.Point]struct{})
	for _, o := range a.Obstacles {
		for x := o.X; x < o.X+o.Width; x++ {
			for y := o.Y; y < o.Y+o.Height; y++ {
				a.blocked[geom.Point{X: x, Y: y, Plane: o.Plane}] = struct{}{}
			}
		}
	}
}

// Blocks reports whether p blocks line of sight and movement. It satisfies geom.Blocker
// and is safe for concurrent use once the arena is loaded.
func (a *Arena) Blocks(p geom.Point) bool {
	_, ok := a.blocked[p]
	return ok
}

// BlockedTiles returns the number of blocking tiles.
func (a *Arena) BlockedTiles() int { return len(a.blocked) }
