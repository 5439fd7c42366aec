package layout

import (
	"math"
	"strings"
	"sync"

	"github.com/go-drift/fabric/pkg/graphics"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultFontSize is used when a text node does not set fontSize.
	DefaultFontSize = 14
)

// TextStyle is the subset of text attributes that affect measurement.
type TextStyle struct {
	FontSize float64
	// LineHeight overrides the face's line height when positive.
	LineHeight float64
	// MaxLines truncates wrapped text when positive.
	MaxLines int
}

// TextMeasurer measures strings using a font face. The face is scaled
// linearly from its nominal pixel size to the requested font size.
// It is safe for concurrent use.
type TextMeasurer struct {
	mu         sync.Mutex
	face       font.Face
	nominal    float64
	lineHeight float64
	space      float64
}

var (
	defaultMeasurer     *TextMeasurer
	defaultMeasurerOnce sync.Once
)

// DefaultTextMeasurer returns a shared measurer backed by the 7x13 basic
// bitmap face.
func DefaultTextMeasurer() *TextMeasurer {
	defaultMeasurerOnce.Do(func() {
		defaultMeasurer = NewTextMeasurer(basicfont.Face7x13, 13)
	})
	return defaultMeasurer
}

// NewTextMeasurer wraps face, whose glyphs are nominal pixels tall.
func NewTextMeasurer(face font.Face, nominal float64) *TextMeasurer {
	m := &TextMeasurer{face: face, nominal: nominal}
	m.lineHeight = fixedToFloat(face.Metrics().Height)
	m.space = fixedToFloat(font.MeasureString(face, " "))
	return m
}

// Measure returns the size of text laid out in style, wrapping at maxWidth.
// A non-finite or non-positive maxWidth disables wrapping.
func (m *TextMeasurer) Measure(text string, style TextStyle, maxWidth float64, ctx Context) graphics.Size {
	fontSize := style.FontSize
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	scale := fontSize * ctx.FontScale() / m.nominal

	lineHeight := m.lineHeight * scale
	if style.LineHeight > 0 {
		lineHeight = style.LineHeight * ctx.FontScale()
	}

	wrapAt := math.Inf(1)
	if maxWidth > 0 && !math.IsInf(maxWidth, 1) {
		wrapAt = maxWidth / scale
	}

	m.mu.Lock()
	lines, widest := m.wrap(text, wrapAt)
	m.mu.Unlock()

	if style.MaxLines > 0 && lines > style.MaxLines {
		lines = style.MaxLines
	}
	if text == "" {
		lines = 0
	}
	return graphics.Size{
		Width:  math.Ceil(widest * scale),
		Height: math.Ceil(float64(lines) * lineHeight),
	}
}

// wrap breaks text greedily at word boundaries and returns the line count
// and the widest line, both in nominal face units. Callers hold m.mu.
func (m *TextMeasurer) wrap(text string, maxWidth float64) (int, float64) {
	lines := 0
	widest := 0.0
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines++
			continue
		}
		current := 0.0
		for i, word := range words {
			w := fixedToFloat(font.MeasureString(m.face, word))
			switch {
			case i == 0:
				current = w
			case current+m.space+w <= maxWidth:
				current += m.space + w
			default:
				widest = math.Max(widest, current)
				lines++
				current = w
			}
		}
		widest = math.Max(widest, current)
		lines++
	}
	if !math.IsInf(maxWidth, 1) {
		widest = math.Min(widest, maxWidth)
	}
	return lines, widest
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
