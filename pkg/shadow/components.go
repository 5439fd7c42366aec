package shadow

import (
	"fmt"
	"math"

	"github.com/go-drift/fabric/pkg/errors"
	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
)

// Built-in component names.
const (
	RootViewName          ComponentName = "RootView"
	ViewName              ComponentName = "View"
	TextName              ComponentName = "Text"
	ParagraphName         ComponentName = "Paragraph"
	TextInputName         ComponentName = "TextInput"
	ImageName             ComponentName = "Image"
	SliderName            ComponentName = "Slider"
	ActivityIndicatorName ComponentName = "ActivityIndicator"
	ProgressViewName      ComponentName = "ProgressView"
	SegmentedControlName  ComponentName = "SegmentedControl"
)

// Intrinsic heights of fixed-height controls.
const (
	sliderHeight           = 40
	progressViewHeight     = 2
	segmentedControlHeight = 28
	smallIndicatorSize     = 20
	largeIndicatorSize     = 36
	fallbackControlWidth   = 100
)

// DefaultRegistry returns a registry with every built-in component.
func DefaultRegistry() *ComponentDescriptorRegistry {
	return NewComponentDescriptorRegistry(DefaultDescriptors()...)
}

// DefaultDescriptors returns the built-in descriptors, for callers that
// extend the set with their own.
func DefaultDescriptors() []ComponentDescriptor {
	return []ComponentDescriptor{
		NewConcreteDescriptor(RootViewName),
		NewConcreteDescriptor(ViewName),
		NewConcreteDescriptor(ImageName),
		NewConcreteDescriptor(TextName, WithPropsParser(parseTextProps), WithMeasure(measureText)),
		NewConcreteDescriptor(ParagraphName, WithPropsParser(parseTextProps), WithMeasure(measureText)),
		NewConcreteDescriptor(TextInputName, WithPropsParser(parseTextInputProps), WithMeasure(measureTextInput)),
		NewConcreteDescriptor(SliderName, WithPropsParser(parseSliderProps), WithMeasure(fixedHeight(sliderHeight))),
		NewConcreteDescriptor(ActivityIndicatorName, WithPropsParser(parseActivityIndicatorProps), WithMeasure(measureActivityIndicator)),
		NewConcreteDescriptor(ProgressViewName, WithPropsParser(parseProgressViewProps), WithMeasure(fixedHeight(progressViewHeight))),
		NewConcreteDescriptor(SegmentedControlName, WithPropsParser(parseSegmentedControlProps), WithMeasure(fixedHeight(segmentedControlHeight))),
	}
}

// TextProps are the props of Text and Paragraph nodes.
type TextProps struct {
	BaseProps
	Text          string
	FontSize      float64
	LineHeight    float64
	NumberOfLines int
}

// Style returns the measurement style of the text.
func (p *TextProps) Style() layout.TextStyle {
	return layout.TextStyle{FontSize: p.FontSize, LineHeight: p.LineHeight, MaxLines: p.NumberOfLines}
}

func parseTextProps(raw RawProps) (Props, error) {
	p := &TextProps{BaseProps: NewBaseProps(raw), FontSize: layout.DefaultFontSize}
	p.Text, _ = p.raw.String("text")
	if v, ok := p.raw.Float("fontSize"); ok {
		p.FontSize = v
	}
	p.LineHeight, _ = p.raw.Float("lineHeight")
	if v, ok := p.raw.Float("numberOfLines"); ok {
		p.NumberOfLines = int(v)
	}
	return p, nil
}

func measureText(node *Node, constraints layout.Constraints, ctx layout.Context) graphics.Size {
	p, ok := node.Props().(*TextProps)
	if !ok {
		return graphics.Size{}
	}
	return layout.DefaultTextMeasurer().Measure(p.Text, p.Style(), constraints.MaxWidth, ctx)
}

// TextInputProps are the props of TextInput nodes.
type TextInputProps struct {
	BaseProps
	Value       string
	Placeholder string
	Multiline   bool
	Editable    bool
	FontSize    float64
}

func parseTextInputProps(raw RawProps) (Props, error) {
	p := &TextInputProps{BaseProps: NewBaseProps(raw), Editable: true, FontSize: layout.DefaultFontSize}
	p.Value, _ = p.raw.String("value")
	p.Placeholder, _ = p.raw.String("placeholder")
	p.Multiline, _ = p.raw.Bool("multiline")
	if v, ok := p.raw.Bool("editable"); ok {
		p.Editable = v
	}
	if v, ok := p.raw.Float("fontSize"); ok {
		p.FontSize = v
	}
	return p, nil
}

func measureTextInput(node *Node, constraints layout.Constraints, ctx layout.Context) graphics.Size {
	p, ok := node.Props().(*TextInputProps)
	if !ok {
		return graphics.Size{}
	}
	text := p.Value
	if text == "" {
		text = p.Placeholder
	}
	style := layout.TextStyle{FontSize: p.FontSize}
	if !p.Multiline {
		style.MaxLines = 1
	}
	measurer := layout.DefaultTextMeasurer()
	size := measurer.Measure(text, style, constraints.MaxWidth, ctx)
	// An empty field still reserves one line.
	line := measurer.Measure("M", style, math.Inf(1), ctx)
	size.Height = math.Max(size.Height, line.Height)
	if constraints.HasBoundedWidth() {
		size.Width = constraints.MaxWidth
	}
	return size
}

// SliderProps are the props of Slider nodes.
type SliderProps struct {
	BaseProps
	Value    float64
	Minimum  float64
	Maximum  float64
	Step     float64
	Disabled bool
}

func parseSliderProps(raw RawProps) (Props, error) {
	p := &SliderProps{BaseProps: NewBaseProps(raw), Maximum: 1}
	if err := readFloat(p.raw, "value", &p.Value); err != nil {
		return nil, err
	}
	if err := readFloat(p.raw, "minimumValue", &p.Minimum); err != nil {
		return nil, err
	}
	if err := readFloat(p.raw, "maximumValue", &p.Maximum); err != nil {
		return nil, err
	}
	if err := readFloat(p.raw, "step", &p.Step); err != nil {
		return nil, err
	}
	p.Disabled, _ = p.raw.Bool("disabled")
	if p.Maximum < p.Minimum {
		return nil, fmt.Errorf("slider maximumValue %g is below minimumValue %g", p.Maximum, p.Minimum)
	}
	p.Value = math.Min(math.Max(p.Value, p.Minimum), p.Maximum)
	return p, nil
}

// ActivityIndicatorProps are the props of ActivityIndicator nodes.
type ActivityIndicatorProps struct {
	BaseProps
	Animating        bool
	Large            bool
	HidesWhenStopped bool
}

func parseActivityIndicatorProps(raw RawProps) (Props, error) {
	p := &ActivityIndicatorProps{BaseProps: NewBaseProps(raw), Animating: true, HidesWhenStopped: true}
	if v, ok := p.raw.Bool("animating"); ok {
		p.Animating = v
	}
	if v, ok := p.raw.Bool("hidesWhenStopped"); ok {
		p.HidesWhenStopped = v
	}
	if size, ok := p.raw.String("size"); ok {
		switch size {
		case "small":
		case "large":
			p.Large = true
		default:
			return nil, fmt.Errorf("activity indicator size %q is not small or large", size)
		}
	}
	return p, nil
}

func measureActivityIndicator(node *Node, _ layout.Constraints, _ layout.Context) graphics.Size {
	if p, ok := node.Props().(*ActivityIndicatorProps); ok && p.Large {
		return graphics.Size{Width: largeIndicatorSize, Height: largeIndicatorSize}
	}
	return graphics.Size{Width: smallIndicatorSize, Height: smallIndicatorSize}
}

// ProgressViewProps are the props of ProgressView nodes.
type ProgressViewProps struct {
	BaseProps
	Progress float64
}

func parseProgressViewProps(raw RawProps) (Props, error) {
	p := &ProgressViewProps{BaseProps: NewBaseProps(raw)}
	if err := readFloat(p.raw, "progress", &p.Progress); err != nil {
		return nil, err
	}
	p.Progress = math.Min(math.Max(p.Progress, 0), 1)
	return p, nil
}

// SegmentedControlProps are the props of SegmentedControl nodes.
type SegmentedControlProps struct {
	BaseProps
	Values        []string
	SelectedIndex int
}

func parseSegmentedControlProps(raw RawProps) (Props, error) {
	p := &SegmentedControlProps{BaseProps: NewBaseProps(raw), SelectedIndex: -1}
	switch values := p.raw["values"].(type) {
	case nil:
	case []string:
		p.Values = append([]string(nil), values...)
	case []any:
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("segmented control value %v is %T, want string", v, v)
			}
			p.Values = append(p.Values, s)
		}
	default:
		return nil, fmt.Errorf("segmented control values is %T, want a list", values)
	}
	if v, ok := p.raw.Float("selectedIndex"); ok {
		p.SelectedIndex = int(v)
	}
	if p.SelectedIndex >= len(p.Values) {
		p.SelectedIndex = -1
	}
	return p, nil
}

func fixedHeight(height float64) MeasureFunc {
	return func(_ *Node, constraints layout.Constraints, _ layout.Context) graphics.Size {
		width := float64(fallbackControlWidth)
		if constraints.HasBoundedWidth() {
			width = constraints.MaxWidth
		}
		return graphics.Size{Width: width, Height: height}
	}
}

func readFloat(raw RawProps, key string, dst *float64) error {
	v, present := raw[key]
	if !present {
		return nil
	}
	f, ok := raw.Float(key)
	if !ok {
		return &errors.FabricError{
			Op:   "shadow.parseProps",
			Kind: errors.KindComponent,
			Err:  fmt.Errorf("prop %q is %T, want a number", key, v),
		}
	}
	*dst = f
	return nil
}
