package geom

// LineIterator steps through the tiles of a 2D Bresenham line, start and end inclusive.
type LineIterator struct {
	cur, target  Point
	deltaX       int
	deltaY       int
	stepX, stepY int
	err          int
	started      bool
}

// NewLineIterator creates an iterator from start to end on start's plane.
func NewLineIterator(start, end Point) *LineIterator {
	it := &LineIterator{
		cur:    start,
		target: Point{X: end.X, Y: end.Y, Plane: start.Plane},
		deltaX: abs(end.X - start.X),
		deltaY: -abs(end.Y - start.Y),
		stepX:  1,
		stepY:  1,
	}
	if start.X > end.X {
		it.stepX = -1
	}
	if start.Y > end.Y {
		it.stepY = -1
	}
	it.err = it.deltaX + it.deltaY
	return it
}

// Next advances to the next tile. Returns false once the end tile has been visited.
func (it *LineIterator) Next() bool {
	if !it.started {
		it.started = true
		return true
	}
	if it.cur == it.target {
		return false
	}
	e2 := 2 * it.err
	if e2 >= it.deltaY {
		it.err += it.deltaY
		it.cur.X += it.stepX
	}
	if e2 <= it.deltaX {
		it.err += it.deltaX
		it.cur.Y += it.stepY
	}
	return true
}

// Point returns the current tile.
func (it *LineIterator) Point() Point {
	return it.cur
}
