package drag

import "math"

const (
	// EdgeMargin is the distance from a viewport edge, in pixels, inside
	// which a drag scrolls the timeline.
	EdgeMargin = 48.0
	// ScrollStep is the scroll offset applied per hover tick.
	ScrollStep = 24.0
)

// AutoScroll returns the scroll offset after one hover tick with the
// pointer at pointerX, measured from the viewport's left edge.
func AutoScroll(pointerX, viewportWidth, scrollLeft, maxScroll float64) float64 {
	if viewportWidth <= 0 || maxScroll <= 0 {
		return math.Max(scrollLeft, 0)
	}
	next := scrollLeft
	switch {
	case pointerX < EdgeMargin:
		next -= ScrollStep
	case pointerX > viewportWidth-EdgeMargin:
		next += ScrollStep
	}
	return math.Min(math.Max(next, 0), maxScroll)
}
