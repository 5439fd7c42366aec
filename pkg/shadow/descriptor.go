package shadow

import (
	"github.com/go-drift/fabric/pkg/graphics"
	"github.com/go-drift/fabric/pkg/layout"
)

// ComponentDescriptor creates and describes nodes of one component type.
type ComponentDescriptor interface {
	// Name is the component type name.
	Name() ComponentName

	// CreateProps parses raw on top of source. Source is nil for new nodes.
	CreateProps(source Props, raw RawProps) (Props, error)

	// CreateShadowNode creates a node. The children slice is copied.
	CreateShadowNode(tag Tag, props Props, children []*Node) *Node

	// Measure returns the intrinsic size of a leaf node within constraints.
	// The second result is false for containers, which are sized by their
	// children.
	Measure(node *Node, constraints layout.Constraints, ctx layout.Context) (graphics.Size, bool)
}

// PropsParser turns a merged raw blob into typed props.
type PropsParser func(raw RawProps) (Props, error)

// MeasureFunc computes the intrinsic size of a leaf node.
type MeasureFunc func(node *Node, constraints layout.Constraints, ctx layout.Context) graphics.Size

// ConcreteDescriptor is a ComponentDescriptor assembled from a props parser
// and an optional measure function.
type ConcreteDescriptor struct {
	name    ComponentName
	parse   PropsParser
	measure MeasureFunc
}

// DescriptorOption configures a ConcreteDescriptor.
type DescriptorOption func(*ConcreteDescriptor)

// WithPropsParser sets the typed props parser. The default produces BaseProps.
func WithPropsParser(parse PropsParser) DescriptorOption {
	return func(d *ConcreteDescriptor) { d.parse = parse }
}

// WithMeasure marks the component as a measured leaf.
func WithMeasure(measure MeasureFunc) DescriptorOption {
	return func(d *ConcreteDescriptor) { d.measure = measure }
}

// NewConcreteDescriptor creates a descriptor for name.
func NewConcreteDescriptor(name ComponentName, opts ...DescriptorOption) *ConcreteDescriptor {
	d := &ConcreteDescriptor{name: name, parse: parseBaseProps}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ConcreteDescriptor) Name() ComponentName { return d.name }

func (d *ConcreteDescriptor) CreateProps(source Props, raw RawProps) (Props, error) {
	merged := raw
	if source != nil {
		merged = source.Raw().Merge(raw)
	}
	return d.parse(merged)
}

func (d *ConcreteDescriptor) CreateShadowNode(tag Tag, props Props, children []*Node) *Node {
	if props == nil {
		props, _ = d.CreateProps(nil, nil)
	}
	return newNode(d, tag, props, children)
}

func (d *ConcreteDescriptor) Measure(node *Node, constraints layout.Constraints, ctx layout.Context) (graphics.Size, bool) {
	if d.measure == nil {
		return graphics.Size{}, false
	}
	return d.measure(node, constraints, ctx), true
}

func parseBaseProps(raw RawProps) (Props, error) {
	p := NewBaseProps(raw)
	return &p, nil
}
