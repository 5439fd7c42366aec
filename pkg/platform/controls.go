package platform

import (
	"fmt"
	"math"

	"github.com/go-drift/fabric/pkg/shadow"
)

// Native event names.
const (
	EventChangeText  = "changeText"
	EventFocus       = "focus"
	EventBlur        = "blur"
	EventValueChange = "valueChange"
)

// TextInputView is the host view of TextInput nodes.
type TextInputView struct {
	BaseView
	value       string
	placeholder string
	editable    bool
	multiline   bool
	focused     bool
}

func newTextInputView(tag shadow.Tag, props shadow.Props) (View, error) {
	v := &TextInputView{BaseView: NewBaseView(tag, shadow.TextInputName, nil)}
	if err := v.UpdateProps(props); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateProps applies TextInput props.
func (v *TextInputView) UpdateProps(props shadow.Props) error {
	p, ok := props.(*shadow.TextInputProps)
	if !ok {
		return fmt.Errorf("text input %d: props are %T", v.tag, props)
	}
	v.props = props
	v.value, v.placeholder = p.Value, p.Placeholder
	v.editable, v.multiline = p.Editable, p.Multiline
	return nil
}

// Value returns the displayed text.
func (v *TextInputView) Value() string { return v.value }

// Placeholder returns the text shown while the field is empty.
func (v *TextInputView) Placeholder() string { return v.placeholder }

// Focused reports whether the field has keyboard focus.
func (v *TextInputView) Focused() bool { return v.focused }

// HandleEvent turns edits into a value patch. Edits to a read-only field
// are ignored.
func (v *TextInputView) HandleEvent(event string, args map[string]any) (shadow.RawProps, error) {
	switch event {
	case EventChangeText:
		text, ok := args["text"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a text string", ErrInvalidArguments, event)
		}
		if !v.editable || text == v.value {
			return nil, nil
		}
		v.value = text
		return shadow.RawProps{"value": text}, nil
	case EventFocus:
		v.focused = true
		return nil, nil
	case EventBlur:
		v.focused = false
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: text input event %q", ErrMethodNotFound, event)
	}
}

// SliderView is the host view of Slider nodes.
type SliderView struct {
	BaseView
	value    float64
	minimum  float64
	maximum  float64
	step     float64
	disabled bool
}

func newSliderView(tag shadow.Tag, props shadow.Props) (View, error) {
	v := &SliderView{BaseView: NewBaseView(tag, shadow.SliderName, nil)}
	if err := v.UpdateProps(props); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateProps applies Slider props.
func (v *SliderView) UpdateProps(props shadow.Props) error {
	p, ok := props.(*shadow.SliderProps)
	if !ok {
		return fmt.Errorf("slider %d: props are %T", v.tag, props)
	}
	v.props = props
	v.value, v.minimum, v.maximum = p.Value, p.Minimum, p.Maximum
	v.step, v.disabled = p.Step, p.Disabled
	return nil
}

// Value returns the thumb position.
func (v *SliderView) Value() float64 { return v.value }

// HandleEvent snaps a dragged value to the step grid and clamps it to the
// slider's range.
func (v *SliderView) HandleEvent(event string, args map[string]any) (shadow.RawProps, error) {
	if event != EventValueChange {
		return nil, fmt.Errorf("%w: slider event %q", ErrMethodNotFound, event)
	}
	value, ok := args["value"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: %s needs a numeric value", ErrInvalidArguments, event)
	}
	if v.disabled {
		return nil, nil
	}
	if v.step > 0 {
		value = v.minimum + math.Round((value-v.minimum)/v.step)*v.step
	}
	value = math.Min(math.Max(value, v.minimum), v.maximum)
	if value == v.value {
		return nil, nil
	}
	v.value = value
	return shadow.RawProps{"value": value}, nil
}

// ActivityIndicatorView is the host view of ActivityIndicator nodes.
type ActivityIndicatorView struct {
	BaseView
	animating        bool
	large            bool
	hidesWhenStopped bool
}

func newActivityIndicatorView(tag shadow.Tag, props shadow.Props) (View, error) {
	v := &ActivityIndicatorView{BaseView: NewBaseView(tag, shadow.ActivityIndicatorName, nil)}
	if err := v.UpdateProps(props); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateProps applies ActivityIndicator props.
func (v *ActivityIndicatorView) UpdateProps(props shadow.Props) error {
	p, ok := props.(*shadow.ActivityIndicatorProps)
	if !ok {
		return fmt.Errorf("activity indicator %d: props are %T", v.tag, props)
	}
	v.props = props
	v.animating, v.large, v.hidesWhenStopped = p.Animating, p.Large, p.HidesWhenStopped
	return nil
}

// Animating reports whether the spinner runs.
func (v *ActivityIndicatorView) Animating() bool { return v.animating }

// Large reports whether the large style is used.
func (v *ActivityIndicatorView) Large() bool { return v.large }

// Visible reports whether the indicator is drawn.
func (v *ActivityIndicatorView) Visible() bool { return v.animating || !v.hidesWhenStopped }
