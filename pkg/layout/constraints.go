// Package layout defines the inputs and outputs of the layout contract:
// constraints and context in, frames out. It also measures text for leaf
// components that size themselves from their content.
package layout

import (
	"fmt"
	"math"

	"github.com/go-drift/fabric/pkg/graphics"
)

// Constraints bound the size a surface or node may take.
// A max of +Inf means unbounded along that axis.
type Constraints struct {
	MinWidth  float64 `json:"minWidth" yaml:"minWidth"`
	MaxWidth  float64 `json:"maxWidth" yaml:"maxWidth"`
	MinHeight float64 `json:"minHeight" yaml:"minHeight"`
	MaxHeight float64 `json:"maxHeight" yaml:"maxHeight"`
}

// Tight returns constraints that admit exactly size.
func Tight(size graphics.Size) Constraints {
	return Constraints{
		MinWidth:  size.Width,
		MaxWidth:  size.Width,
		MinHeight: size.Height,
		MaxHeight: size.Height,
	}
}

// Loose returns constraints from zero up to size.
func Loose(size graphics.Size) Constraints {
	return Constraints{MaxWidth: size.Width, MaxHeight: size.Height}
}

// Unbounded returns constraints with no upper limit on either axis.
func Unbounded() Constraints {
	return Constraints{MaxWidth: math.Inf(1), MaxHeight: math.Inf(1)}
}

// Normalize fixes up constraints received from the host: a zero max means
// unbounded and min never exceeds max.
func (c Constraints) Normalize() Constraints {
	if c.MaxWidth <= 0 {
		c.MaxWidth = math.Inf(1)
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = math.Inf(1)
	}
	c.MinWidth = math.Max(0, math.Min(c.MinWidth, c.MaxWidth))
	c.MinHeight = math.Max(0, math.Min(c.MinHeight, c.MaxHeight))
	return c
}

// HasBoundedWidth reports whether MaxWidth is finite.
func (c Constraints) HasBoundedWidth() bool {
	return !math.IsInf(c.MaxWidth, 1)
}

// HasBoundedHeight reports whether MaxHeight is finite.
func (c Constraints) HasBoundedHeight() bool {
	return !math.IsInf(c.MaxHeight, 1)
}

// IsTight reports whether only one size satisfies the constraints.
func (c Constraints) IsTight() bool {
	return c.MinWidth == c.MaxWidth && c.MinHeight == c.MaxHeight
}

// Constrain clamps size into the constraints.
func (c Constraints) Constrain(size graphics.Size) graphics.Size {
	return graphics.Size{
		Width:  clamp(size.Width, c.MinWidth, c.MaxWidth),
		Height: clamp(size.Height, c.MinHeight, c.MaxHeight),
	}
}

// Deflate shrinks the constraints by an inset on every side.
func (c Constraints) Deflate(inset float64) Constraints {
	shrink := func(v float64) float64 {
		if math.IsInf(v, 1) {
			return v
		}
		return math.Max(0, v-2*inset)
	}
	return Constraints{
		MinWidth:  shrink(c.MinWidth),
		MaxWidth:  shrink(c.MaxWidth),
		MinHeight: shrink(c.MinHeight),
		MaxHeight: shrink(c.MaxHeight),
	}
}

func (c Constraints) String() string {
	return fmt.Sprintf("Constraints(w=%g..%g, h=%g..%g)", c.MinWidth, c.MaxWidth, c.MinHeight, c.MaxHeight)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
