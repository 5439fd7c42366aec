package shadow

import (
	"fmt"
	"strings"

	"github.com/go-drift/fabric/pkg/layout"
)

// Tag is the stable identity of a UI element across tree revisions.
type Tag int64

// SurfaceID identifies one independently managed UI root.
type SurfaceID int32

// ComponentName is the type name a descriptor is registered under.
type ComponentName string

// Node is an immutable shadow node.
type Node struct {
	tag        Tag
	descriptor ComponentDescriptor
	props      Props
	children   []*Node
	metrics    layout.Metrics
	revision   uint64
}

func newNode(desc ComponentDescriptor, tag Tag, props Props, children []*Node) *Node {
	owned := make([]*Node, 0, len(children))
	for _, child := range children {
		if child != nil {
			owned = append(owned, child)
		}
	}
	return &Node{
		tag:        tag,
		descriptor: desc,
		props:      props,
		children:   owned,
		revision:   1,
	}
}

// Tag returns the node's stable identity.
func (n *Node) Tag() Tag { return n.tag }

// ComponentName returns the component type of the node.
func (n *Node) ComponentName() ComponentName { return n.descriptor.Name() }

// Descriptor returns the descriptor that created the node.
func (n *Node) Descriptor() ComponentDescriptor { return n.descriptor }

// Props returns the node's props.
func (n *Node) Props() Props { return n.props }

// Children returns the node's children. The slice may be shared with other
// revisions and must not be modified.
func (n *Node) Children() []*Node { return n.children }

// LayoutMetrics returns the metrics computed by the last layout pass.
func (n *Node) LayoutMetrics() layout.Metrics { return n.metrics }

// Revision counts how many clones separate this node from the one first
// created for its tag.
func (n *Node) Revision() uint64 { return n.revision }

func (n *Node) clone() *Node {
	c := *n
	c.revision = n.revision + 1
	return &c
}

// CloneWithNewChildren returns a copy of node owning the given children.
// The source node is not modified.
func CloneWithNewChildren(node *Node, children []*Node) *Node {
	c := node.clone()
	c.children = make([]*Node, 0, len(children))
	for _, child := range children {
		if child != nil {
			c.children = append(c.children, child)
		}
	}
	return c
}

// CloneWithNewProps returns a copy of node carrying props. The children
// slice is shared with the source.
func CloneWithNewProps(node *Node, props Props) *Node {
	c := node.clone()
	c.props = props
	return c
}

// CloneWithLayout returns a copy of node carrying metrics. The children
// slice is shared with the source.
func CloneWithLayout(node *Node, metrics layout.Metrics) *Node {
	c := node.clone()
	c.metrics = metrics
	return c
}

// CloneWithRawProps parses patch on top of the node's current props through
// its descriptor and returns the updated clone.
func CloneWithRawProps(node *Node, patch RawProps) (*Node, error) {
	props, err := node.descriptor.CreateProps(node.props, patch)
	if err != nil {
		return nil, err
	}
	return CloneWithNewProps(node, props), nil
}

// CloneAlongPath replaces the node tagged target with fn's result and clones
// every ancestor on the path to it. Subtrees off the path are shared. The
// second result is false when target is not in the tree.
func CloneAlongPath(root *Node, target Tag, fn func(*Node) *Node) (*Node, bool) {
	if root == nil {
		return nil, false
	}
	if root.tag == target {
		return fn(root), true
	}
	for i, child := range root.children {
		replaced, ok := CloneAlongPath(child, target, fn)
		if !ok {
			continue
		}
		children := make([]*Node, len(root.children))
		copy(children, root.children)
		children[i] = replaced
		return CloneWithNewChildren(root, children), true
	}
	return nil, false
}

// Find returns the node with the given tag, or nil.
func (n *Node) Find(tag Tag) *Node {
	var found *Node
	n.Walk(func(node *Node) bool {
		if node.tag == tag {
			found = node
			return false
		}
		return true
	})
	return found
}

// Walk visits the subtree in pre-order until visit returns false.
func (n *Node) Walk(visit func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, child := range n.children {
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the subtree.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

func (n *Node) String() string {
	var sb strings.Builder
	n.dump(&sb, 0)
	return sb.String()
}

func (n *Node) dump(sb *strings.Builder, depth int) {
	fmt.Fprintf(sb, "%s%s#%d %s\n", strings.Repeat("  ", depth), n.ComponentName(), n.tag, n.metrics.Frame)
	for _, child := range n.children {
		child.dump(sb, depth+1)
	}
}
