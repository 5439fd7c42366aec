package platform

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/shadow"
)

// View is a mounted host view.
type View interface {
	// Base returns the state every view shares.
	Base() *BaseView

	// UpdateProps applies new props. Views reject props of the wrong type.
	UpdateProps(props shadow.Props) error

	// Dispose releases the view. It is called once, after the view has
	// been detached.
	Dispose()
}

// EventView is a view that turns native events into prop patches.
type EventView interface {
	View

	// HandleEvent returns the props patch an event implies. A nil patch
	// means the event changes nothing.
	HandleEvent(event string, args map[string]any) (shadow.RawProps, error)
}

// BaseView holds the identity, frame and position of a view. Views embed
// it.
type BaseView struct {
	tag      shadow.Tag
	name     shadow.ComponentName
	props    shadow.Props
	metrics  layout.Metrics
	parent   View
	children []View
	disposed bool
}

// NewBaseView returns the base state of a view.
func NewBaseView(tag shadow.Tag, name shadow.ComponentName, props shadow.Props) BaseView {
	return BaseView{tag: tag, name: name, props: props}
}

func (v *BaseView) Base() *BaseView { return v }

// Tag returns the view's tag.
func (v *BaseView) Tag() shadow.Tag { return v.tag }

// ComponentName returns the component the view renders.
func (v *BaseView) ComponentName() shadow.ComponentName { return v.name }

// Props returns the last props applied.
func (v *BaseView) Props() shadow.Props { return v.props }

// Metrics returns the view's frame.
func (v *BaseView) Metrics() layout.Metrics { return v.metrics }

// Parent returns the view the view is attached to, or nil.
func (v *BaseView) Parent() View { return v.parent }

// Children returns the attached children in order.
func (v *BaseView) Children() []View { return v.children }

// Disposed reports whether the view has been disposed.
func (v *BaseView) Disposed() bool { return v.disposed }

// UpdateProps stores props.
func (v *BaseView) UpdateProps(props shadow.Props) error {
	v.props = props
	return nil
}

// Dispose marks the view disposed.
func (v *BaseView) Dispose() { v.disposed = true }

func (v *BaseView) insert(self, child View, index int) error {
	cb := child.Base()
	if cb.parent != nil {
		return fmt.Errorf("view %d is already attached to %d", cb.tag, cb.parent.Base().tag)
	}
	if index < 0 || index > len(v.children) {
		return fmt.Errorf("index %d out of range [0,%d]", index, len(v.children))
	}
	v.children = slices.Insert(v.children, index, child)
	cb.parent = self
	return nil
}

func (v *BaseView) remove(tag shadow.Tag, index int) (View, error) {
	if index < 0 || index >= len(v.children) {
		return nil, fmt.Errorf("index %d out of range [0,%d)", index, len(v.children))
	}
	child := v.children[index]
	if got := child.Base().tag; got != tag {
		return nil, fmt.Errorf("view at index %d of %d is %d", index, v.tag, got)
	}
	v.children = slices.Delete(v.children, index, index+1)
	child.Base().parent = nil
	return child, nil
}

// ViewFactory creates the views of one component.
type ViewFactory interface {
	ComponentName() shadow.ComponentName
	Create(tag shadow.Tag, props shadow.Props) (View, error)
}

type viewFactoryFunc struct {
	name   shadow.ComponentName
	create func(tag shadow.Tag, props shadow.Props) (View, error)
}

func (f viewFactoryFunc) ComponentName() shadow.ComponentName { return f.name }

func (f viewFactoryFunc) Create(tag shadow.Tag, props shadow.Props) (View, error) {
	return f.create(tag, props)
}

// NewViewFactory adapts a function to ViewFactory.
func NewViewFactory(name shadow.ComponentName, create func(tag shadow.Tag, props shadow.Props) (View, error)) ViewFactory {
	return viewFactoryFunc{name: name, create: create}
}

// GenericViewFactory creates plain BaseViews for name.
func GenericViewFactory(name shadow.ComponentName) ViewFactory {
	return NewViewFactory(name, func(tag shadow.Tag, props shadow.Props) (View, error) {
		v := NewBaseView(tag, name, props)
		return &v, nil
	})
}

// ViewRegistry maps component names to view factories.
type ViewRegistry struct {
	mu        sync.RWMutex
	factories map[shadow.ComponentName]ViewFactory
}

// NewViewRegistry returns a registry holding factories.
func NewViewRegistry(factories ...ViewFactory) *ViewRegistry {
	r := &ViewRegistry{factories: make(map[shadow.ComponentName]ViewFactory, len(factories))}
	for _, f := range factories {
		r.RegisterFactory(f)
	}
	return r
}

// DefaultViewRegistry returns a registry with a factory for every built-in
// component.
func DefaultViewRegistry() *ViewRegistry {
	return NewViewRegistry(
		GenericViewFactory(shadow.RootViewName),
		GenericViewFactory(shadow.ViewName),
		GenericViewFactory(shadow.TextName),
		GenericViewFactory(shadow.ParagraphName),
		GenericViewFactory(shadow.ImageName),
		GenericViewFactory(shadow.ProgressViewName),
		GenericViewFactory(shadow.SegmentedControlName),
		NewViewFactory(shadow.TextInputName, newTextInputView),
		NewViewFactory(shadow.SliderName, newSliderView),
		NewViewFactory(shadow.ActivityIndicatorName, newActivityIndicatorView),
	)
}

// RegisterFactory registers f, replacing any factory for the same name.
func (r *ViewRegistry) RegisterFactory(f ViewFactory) {
	r.mu.Lock()
	r.factories[f.ComponentName()] = f
	r.mu.Unlock()
}

// Has reports whether a factory exists for name.
func (r *ViewRegistry) Has(name shadow.ComponentName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Create creates a view of name.
func (r *ViewRegistry) Create(name shadow.ComponentName, tag shadow.Tag, props shadow.Props) (View, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewTypeNotFound, name)
	}
	view, err := factory.Create(tag, props)
	if err != nil {
		return nil, fmt.Errorf("create %s %d: %w", name, tag, err)
	}
	return view, nil
}
