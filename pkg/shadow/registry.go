package shadow

import (
	"slices"
	"sync/atomic"

	"github.com/go-drift/fabric/pkg/errors"
)

// ComponentDescriptorRegistry maps component names to descriptors. It is
// populated at construction and read-only afterwards.
type ComponentDescriptorRegistry struct {
	descriptors map[ComponentName]ComponentDescriptor
}

// NewComponentDescriptorRegistry builds a registry. Later descriptors with a
// duplicate name replace earlier ones.
func NewComponentDescriptorRegistry(descriptors ...ComponentDescriptor) *ComponentDescriptorRegistry {
	r := &ComponentDescriptorRegistry{descriptors: make(map[ComponentName]ComponentDescriptor, len(descriptors))}
	for _, d := range descriptors {
		r.descriptors[d.Name()] = d
	}
	return r
}

// Descriptor returns the descriptor for name or an UnknownComponentTypeError.
func (r *ComponentDescriptorRegistry) Descriptor(name ComponentName) (ComponentDescriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, &errors.UnknownComponentTypeError{ComponentName: string(name)}
	}
	return d, nil
}

// Has reports whether name is registered.
func (r *ComponentDescriptorRegistry) Has(name ComponentName) bool {
	_, ok := r.descriptors[name]
	return ok
}

// Names returns the registered component names in sorted order.
func (r *ComponentDescriptorRegistry) Names() []ComponentName {
	names := make([]ComponentName, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CreateShadowNode resolves name and creates a node from raw props.
func (r *ComponentDescriptorRegistry) CreateShadowNode(name ComponentName, tag Tag, raw RawProps, children []*Node) (*Node, error) {
	d, err := r.Descriptor(name)
	if err != nil {
		return nil, err
	}
	props, err := d.CreateProps(nil, raw)
	if err != nil {
		return nil, err
	}
	return d.CreateShadowNode(tag, props, children), nil
}

// TagAllocator hands out unique tags. It is safe for concurrent use.
type TagAllocator struct {
	next atomic.Int64
}

// NewTagAllocator returns an allocator whose first tag is start.
func NewTagAllocator(start Tag) *TagAllocator {
	a := &TagAllocator{}
	a.next.Store(int64(start) - 1)
	return a
}

// Next returns a fresh tag.
func (a *TagAllocator) Next() Tag {
	return Tag(a.next.Add(1))
}

// Builder creates nodes on behalf of one producer. It notifies an observer
// for every node it creates.
type Builder struct {
	registry *ComponentDescriptorRegistry
	tags     *TagAllocator
	onCreate func(*Node)
}

// NewBuilder returns a builder over registry. Tags and onCreate may be nil.
func NewBuilder(registry *ComponentDescriptorRegistry, tags *TagAllocator, onCreate func(*Node)) *Builder {
	if tags == nil {
		tags = NewTagAllocator(1)
	}
	return &Builder{registry: registry, tags: tags, onCreate: onCreate}
}

// Registry returns the builder's descriptor registry.
func (b *Builder) Registry() *ComponentDescriptorRegistry { return b.registry }

// Create builds a node with an explicit tag.
func (b *Builder) Create(name ComponentName, tag Tag, raw RawProps, children ...*Node) (*Node, error) {
	node, err := b.registry.CreateShadowNode(name, tag, raw, children)
	if err != nil {
		return nil, err
	}
	if b.onCreate != nil {
		b.onCreate(node)
	}
	return node, nil
}

// CreateAuto builds a node with a freshly allocated tag.
func (b *Builder) CreateAuto(name ComponentName, raw RawProps, children ...*Node) (*Node, error) {
	return b.Create(name, b.tags.Next(), raw, children...)
}

// NextTag allocates a tag without creating a node.
func (b *Builder) NextTag() Tag {
	return b.tags.Next()
}
