package mounting

import (
	"fmt"
	"slices"

	"github.com/go-drift/fabric/pkg/layout"
	"github.com/go-drift/fabric/pkg/shadow"
)

// StubView is one view of a StubViewTree.
type StubView struct {
	Tag           shadow.Tag
	ComponentName shadow.ComponentName
	Props         shadow.Props
	Metrics       layout.Metrics
	Children      []*StubView
	parent        *StubView
}

// StubViewTree is an in-memory host that applies mutation lists with strict
// validation. It stands in for a real view hierarchy in tests and tooling.
type StubViewTree struct {
	rootTag shadow.Tag
	views   map[shadow.Tag]*StubView
}

// NewStubViewTree builds a host tree mirroring root, as if every view had
// already been mounted.
func NewStubViewTree(root *shadow.Node) *StubViewTree {
	t := &StubViewTree{rootTag: root.Tag(), views: make(map[shadow.Tag]*StubView)}
	t.mirror(root, nil)
	return t
}

func (t *StubViewTree) mirror(node *shadow.Node, parent *StubView) {
	view := &StubView{
		Tag:           node.Tag(),
		ComponentName: node.ComponentName(),
		Props:         node.Props(),
		Metrics:       node.LayoutMetrics(),
		parent:        parent,
	}
	t.views[view.Tag] = view
	if parent != nil {
		parent.Children = append(parent.Children, view)
	}
	for _, child := range node.Children() {
		t.mirror(child, view)
	}
}

// Root returns the root view.
func (t *StubViewTree) Root() *StubView {
	return t.views[t.rootTag]
}

// View returns the view for tag, attached or not.
func (t *StubViewTree) View(tag shadow.Tag) (*StubView, bool) {
	v, ok := t.views[tag]
	return v, ok
}

// Len returns the number of live views.
func (t *StubViewTree) Len() int {
	return len(t.views)
}

// Apply applies mutations in order. It stops at the first invalid mutation
// and returns an error naming it; mutations before it stay applied.
func (t *StubViewTree) Apply(mutations MutationList) error {
	for i, m := range mutations {
		if err := t.apply(m); err != nil {
			return fmt.Errorf("mutation %d %s: %w", i, m, err)
		}
	}
	return nil
}

func (t *StubViewTree) apply(m Mutation) error {
	switch m.Type {
	case Create:
		if _, exists := t.views[m.Tag]; exists {
			return fmt.Errorf("view %d already exists", m.Tag)
		}
		t.views[m.Tag] = &StubView{
			Tag:           m.Tag,
			ComponentName: m.ComponentName,
			Props:         m.NewProps,
			Metrics:       m.Metrics,
		}
	case Delete:
		view, err := t.lookup(m.Tag)
		if err != nil {
			return err
		}
		if view.parent != nil {
			return fmt.Errorf("view %d is still attached to %d", m.Tag, view.parent.Tag)
		}
		if len(view.Children) > 0 {
			return fmt.Errorf("view %d still has %d children", m.Tag, len(view.Children))
		}
		if m.Tag == t.rootTag {
			return fmt.Errorf("root view %d cannot be deleted", m.Tag)
		}
		delete(t.views, m.Tag)
	case Insert:
		parent, err := t.lookup(m.ParentTag)
		if err != nil {
			return err
		}
		child, err := t.lookup(m.Tag)
		if err != nil {
			return err
		}
		if child.parent != nil {
			return fmt.Errorf("view %d is already attached to %d", m.Tag, child.parent.Tag)
		}
		if m.Index < 0 || m.Index > len(parent.Children) {
			return fmt.Errorf("index %d out of range [0,%d]", m.Index, len(parent.Children))
		}
		parent.Children = slices.Insert(parent.Children, m.Index, child)
		child.parent = parent
		child.Metrics = m.Metrics
	case Remove:
		parent, err := t.lookup(m.ParentTag)
		if err != nil {
			return err
		}
		if m.Index < 0 || m.Index >= len(parent.Children) {
			return fmt.Errorf("index %d out of range [0,%d)", m.Index, len(parent.Children))
		}
		child := parent.Children[m.Index]
		if child.Tag != m.Tag {
			return fmt.Errorf("view at index %d of %d is %d", m.Index, m.ParentTag, child.Tag)
		}
		parent.Children = slices.Delete(parent.Children, m.Index, m.Index+1)
		child.parent = nil
	case Update:
		view, err := t.lookup(m.Tag)
		if err != nil {
			return err
		}
		if m.OldProps != nil && !shadow.PropsEqual(view.Props, m.OldProps) {
			return fmt.Errorf("old props of %d do not match the mounted props", m.Tag)
		}
		view.Props = m.NewProps
	case UpdateLayout:
		view, err := t.lookup(m.Tag)
		if err != nil {
			return err
		}
		view.Metrics = m.Metrics
	default:
		return fmt.Errorf("unknown mutation type %d", m.Type)
	}
	return nil
}

func (t *StubViewTree) lookup(tag shadow.Tag) (*StubView, error) {
	view, ok := t.views[tag]
	if !ok {
		return nil, fmt.Errorf("view %d does not exist", tag)
	}
	return view, nil
}

// Verify reports the first difference between the mounted views and the
// shadow tree under root, or nil when they match. Views that are created
// but not attached anywhere count as leaks.
func (t *StubViewTree) Verify(root *shadow.Node) error {
	if root.Tag() != t.rootTag {
		return fmt.Errorf("root tag is %d, want %d", t.rootTag, root.Tag())
	}
	if err := verifyView(t.Root(), root); err != nil {
		return err
	}
	if want := root.Count(); len(t.views) != want {
		return fmt.Errorf("host holds %d views, tree has %d nodes", len(t.views), want)
	}
	return nil
}

func verifyView(view *StubView, node *shadow.Node) error {
	if view.Tag != node.Tag() {
		return fmt.Errorf("view %d mounted where %d belongs", view.Tag, node.Tag())
	}
	if view.ComponentName != node.ComponentName() {
		return fmt.Errorf("view %d is %s, want %s", view.Tag, view.ComponentName, node.ComponentName())
	}
	if !shadow.PropsEqual(view.Props, node.Props()) {
		return fmt.Errorf("view %d props differ", view.Tag)
	}
	if !view.Metrics.Equal(node.LayoutMetrics()) {
		return fmt.Errorf("view %d frame is %s, want %s", view.Tag, view.Metrics.Frame, node.LayoutMetrics().Frame)
	}
	children := node.Children()
	if len(view.Children) != len(children) {
		return fmt.Errorf("view %d has %d children, want %d", view.Tag, len(view.Children), len(children))
	}
	for i, child := range children {
		if err := verifyView(view.Children[i], child); err != nil {
			return err
		}
	}
	return nil
}
