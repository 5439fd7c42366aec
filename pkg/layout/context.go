package layout

import "github.com/go-drift/fabric/pkg/graphics"

// Context carries host display parameters that influence layout but are not
// constraints.
type Context struct {
	// PointScaleFactor is the number of physical pixels per point. Frames are
	// rounded to this grid. Zero disables rounding.
	PointScaleFactor float64 `json:"pointScaleFactor" yaml:"pointScaleFactor"`
	// FontSizeMultiplier scales text (accessibility font size). Zero means 1.
	FontSizeMultiplier float64 `json:"fontSizeMultiplier" yaml:"fontSizeMultiplier"`
	// ViewportOffset is the surface origin within the host window.
	ViewportOffset graphics.Offset `json:"viewportOffset" yaml:"viewportOffset"`
}

// DefaultContext returns a context for a 1x display with no font scaling.
func DefaultContext() Context {
	return Context{PointScaleFactor: 1, FontSizeMultiplier: 1}
}

// FontScale returns the effective font size multiplier.
func (c Context) FontScale() float64 {
	if c.FontSizeMultiplier <= 0 {
		return 1
	}
	return c.FontSizeMultiplier
}

// Metrics are the computed layout results stored on a shadow node.
type Metrics struct {
	// Frame is the node's rectangle relative to its parent.
	Frame graphics.Rect `json:"frame" yaml:"frame"`
	// Hidden marks nodes laid out with display: none.
	Hidden bool `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// Equal reports whether two metrics would render identically.
func (m Metrics) Equal(other Metrics) bool {
	return m.Hidden == other.Hidden && m.Frame.Equal(other.Frame)
}
