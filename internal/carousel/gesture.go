package carousel

import "math"

const (
	DefaultThresholdFraction = 0.15
	// MinSwipeDistance is used when the viewport width is unknown.
	MinSwipeDistance = 50.0
)

// Gesture tracks one pointer drag (touch or mouse) and classifies it on
// release.
type Gesture struct {
	fraction float64

	startX, startY float64
	x, y           float64
	active         bool
}

func NewGesture(thresholdFraction float64) *Gesture {
	if thresholdFraction <= 0 || thresholdFraction >= 1 {
		thresholdFraction = DefaultThresholdFraction
	}
	return &Gesture{fraction: thresholdFraction}
}

func (g *Gesture) Start(x, y float64) {
	g.startX, g.startY = x, y
	g.x, g.y = x, y
	g.active = true
}

// Move records the pointer position and returns the horizontal offset
// from the start point. It returns 0 when no gesture is active.
func (g *Gesture) Move(x, y float64) float64 {
	if !g.active {
		return 0
	}
	g.x, g.y = x, y
	return g.x - g.startX
}

func (g *Gesture) Active() bool {
	return g.active
}

func (g *Gesture) Cancel() {
	g.active = false
}

// End finishes the gesture. Vertical-dominant movement is scroll intent and
// never navigates. A rightward swipe goes to the previous item.
func (g *Gesture) End(viewportWidth float64) Command {
	if !g.active {
		return None
	}
	g.active = false

	return Classify(g.x-g.startX, g.y-g.startY, g.threshold(viewportWidth))
}

func (g *Gesture) threshold(viewportWidth float64) float64 {
	if viewportWidth <= 0 {
		return MinSwipeDistance
	}
	return g.fraction * viewportWidth
}

func Classify(dx, dy, threshold float64) Command {
	if math.Abs(dy) > math.Abs(dx) {
		return None
	}
	if math.Abs(dx) <= threshold {
		return None
	}
	if dx > 0 {
		return Previous
	}
	return Next
}

// KeyCommand maps arrow keys to commands. Keys are ignored while a
// confirmation dialog is open.
func KeyCommand(key string, dialogOpen bool) Command {
	if dialogOpen {
		return None
	}
	switch key {
	case "left", "ArrowLeft":
		return Previous
	case "right", "ArrowRight":
		return Next
	default:
		return None
	}
}
