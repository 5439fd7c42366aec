package layout

import (
	"math"
	"testing"

	"github.com/go-drift/fabric/pkg/graphics"
)

func TestConstraintsNormalize(t *testing.T) {
	c := Constraints{MinWidth: 50, MaxWidth: 20}.Normalize()
	if c.MinWidth != 20 {
		t.Errorf("MinWidth = %g, want clamped to 20", c.MinWidth)
	}
	if !math.IsInf(c.MaxHeight, 1) {
		t.Errorf("zero MaxHeight should become unbounded, got %g", c.MaxHeight)
	}
}

func TestConstraintsConstrain(t *testing.T) {
	c := Constraints{MinWidth: 10, MaxWidth: 100, MinHeight: 10, MaxHeight: 100}
	tests := []struct {
		in, want graphics.Size
	}{
		{graphics.Size{Width: 5, Height: 5}, graphics.Size{Width: 10, Height: 10}},
		{graphics.Size{Width: 50, Height: 500}, graphics.Size{Width: 50, Height: 100}},
	}
	for _, tt := range tests {
		if got := c.Constrain(tt.in); got != tt.want {
			t.Errorf("Constrain(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConstraintsDeflate(t *testing.T) {
	c := Constraints{MaxWidth: 100, MaxHeight: math.Inf(1)}.Deflate(10)
	if c.MaxWidth != 80 {
		t.Errorf("MaxWidth = %g, want 80", c.MaxWidth)
	}
	if !math.IsInf(c.MaxHeight, 1) {
		t.Error("unbounded axis should stay unbounded")
	}
}

func TestTightAndLoose(t *testing.T) {
	size := graphics.Size{Width: 320, Height: 480}
	if !Tight(size).IsTight() {
		t.Error("Tight should be tight")
	}
	if Loose(size).IsTight() {
		t.Error("Loose should not be tight")
	}
	if Unbounded().HasBoundedWidth() {
		t.Error("Unbounded should not have bounded width")
	}
}

func TestMeasureSingleLine(t *testing.T) {
	m := DefaultTextMeasurer()
	// The 7x13 face advances 7 units per glyph; at fontSize 13 the scale is 1.
	got := m.Measure("hello", TextStyle{FontSize: 13}, math.Inf(1), DefaultContext())
	want := graphics.Size{Width: 35, Height: 13}
	if got != want {
		t.Errorf("Measure = %v, want %v", got, want)
	}
}

func TestMeasureWraps(t *testing.T) {
	m := DefaultTextMeasurer()
	// "aaa bbb" is 49 units wide; 30 units fit only one word per line.
	got := m.Measure("aaa bbb", TextStyle{FontSize: 13}, 30, DefaultContext())
	if got.Height != 26 {
		t.Errorf("Height = %g, want two lines (26)", got.Height)
	}
	if got.Width != 21 {
		t.Errorf("Width = %g, want widest word (21)", got.Width)
	}
}

func TestMeasureMaxLinesAndScale(t *testing.T) {
	m := DefaultTextMeasurer()
	ctx := Context{FontSizeMultiplier: 2}
	got := m.Measure("a\nb\nc", TextStyle{FontSize: 13, MaxLines: 2}, math.Inf(1), ctx)
	want := graphics.Size{Width: 14, Height: 52}
	if got != want {
		t.Errorf("Measure = %v, want %v", got, want)
	}
}

func TestMeasureEmpty(t *testing.T) {
	got := DefaultTextMeasurer().Measure("", TextStyle{}, 100, DefaultContext())
	if got != (graphics.Size{}) {
		t.Errorf("empty text measured %v, want zero", got)
	}
}

func TestMetricsEqual(t *testing.T) {
	a := Metrics{Frame: graphics.RectFromLTWH(0, 0, 10, 10)}
	b := a
	if !a.Equal(b) {
		t.Error("identical metrics should be equal")
	}
	b.Hidden = true
	if a.Equal(b) {
		t.Error("hidden flag should break equality")
	}
}
