package carousel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		dx, dy    float64
		threshold float64
		want      Command
	}{
		{"swipe left", -120, 10, 50, Next},
		{"swipe right", 120, -10, 50, Previous},
		{"below threshold", 40, 0, 50, None},
		{"exactly threshold", 50, 0, 50, None},
		{"vertical dominant", 300, 301, 50, None},
		{"vertical dominant negative", -500, -900, 50, None},
		{"diagonal tie counts as horizontal", 80, 80, 50, Previous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.dx, tt.dy, tt.threshold))
		})
	}
}

func TestClassify_VerticalNeverNavigates(t *testing.T) {
	for dx := -2000.0; dx <= 2000; dx += 125 {
		dy := dx
		if dy < 0 {
			dy = -dy
		}
		dy++
		assert.Equal(t, None, Classify(dx, dy, 1))
		assert.Equal(t, None, Classify(dx, -dy, 1))
	}
}

func TestGesture_ThresholdIsViewportFraction(t *testing.T) {
	g := NewGesture(0.15)

	g.Start(500, 100)
	assert.Equal(t, -100.0, g.Move(400, 105))
	// 15% of 800 is 120, a 100px swipe is not enough
	assert.Equal(t, None, g.End(800))

	g.Start(500, 100)
	g.Move(370, 100)
	assert.Equal(t, Next, g.End(800))
	assert.False(t, g.Active())
}

func TestGesture_UnknownViewportFallsBack(t *testing.T) {
	g := NewGesture(0)

	g.Start(0, 0)
	g.Move(60, 0)
	assert.Equal(t, Previous, g.End(0))
}

func TestGesture_EndWithoutStart(t *testing.T) {
	g := NewGesture(0.2)
	assert.Zero(t, g.Move(10, 10))
	assert.Equal(t, None, g.End(100))
}

func TestKeyCommand(t *testing.T) {
	assert.Equal(t, Previous, KeyCommand("left", false))
	assert.Equal(t, Next, KeyCommand("ArrowRight", false))
	assert.Equal(t, None, KeyCommand("up", false))
	assert.Equal(t, None, KeyCommand("left", true))
	assert.Equal(t, None, KeyCommand("right", true))
}
